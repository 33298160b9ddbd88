package section

import (
	"encoding/binary"
	"testing"

	"github.com/deanmlittle/sbpf/internal/ast"
)

func TestDynSymbolBytecodeLength(t *testing.T) {
	s := EntrySymbol(4, 0x1000)
	got := s.Bytecode()
	if len(got) != 24 {
		t.Fatalf("DynSymbol.Bytecode() length = %d, want 24", len(got))
	}
	if binary.LittleEndian.Uint32(got[0:4]) != 4 {
		t.Errorf("name offset encoded wrong: % x", got[0:4])
	}
	if got[4] != dynSymInfo {
		t.Errorf("info byte = 0x%02x, want 0x%02x", got[4], dynSymInfo)
	}
	if binary.LittleEndian.Uint16(got[6:8]) != 1 {
		t.Errorf("expected shndx 1 for entry symbol, got %+v", got[6:8])
	}
	if binary.LittleEndian.Uint64(got[8:16]) != 0x1000 {
		t.Errorf("expected value 0x1000, got % x", got[8:16])
	}
}

func TestCallTargetSymbolShndxZero(t *testing.T) {
	s := CallTargetSymbol(10)
	got := s.Bytecode()
	if binary.LittleEndian.Uint16(got[6:8]) != 0 {
		t.Errorf("expected shndx 0 for a call-target symbol")
	}
	if binary.LittleEndian.Uint64(got[8:16]) != 0 {
		t.Errorf("expected value 0 for a call-target symbol")
	}
}

func TestRelDynRelativeEncoding(t *testing.T) {
	r := RelDyn{Offset: 0x40, Type: ast.RSbf64Relative}
	got := r.Bytecode()
	if len(got) != 16 {
		t.Fatalf("RelDyn.Bytecode() length = %d, want 16", len(got))
	}
	if binary.LittleEndian.Uint64(got[0:8]) != 0x40 {
		t.Errorf("offset encoded wrong: % x", got[0:8])
	}
	if binary.LittleEndian.Uint64(got[8:16]) != rSbf64Relative {
		t.Errorf("expected r_info == R_SBF64_RELATIVE, got % x", got[8:16])
	}
}

func TestRelDynSyscallEncoding(t *testing.T) {
	r := RelDyn{Offset: 0x40, Type: ast.RSbfSyscall, SymIndex: 2}
	got := r.Bytecode()
	info := binary.LittleEndian.Uint64(got[8:16])
	if info != (uint64(2)<<32)|rSbfSyscall {
		t.Errorf("r_info = 0x%x, want sym=2 type=R_SBF_SYSCALL", info)
	}
}

func TestStrtabOffsetsAndDedup(t *testing.T) {
	st := NewStrtab()
	a := st.Add("entry")
	b := st.Add("sol_log_")
	aAgain := st.Add("entry")
	if a != aAgain {
		t.Errorf("expected repeated Add to return the same offset")
	}
	if a == b {
		t.Errorf("expected distinct names to get distinct offsets")
	}
	if st.Bytes()[0] != 0 {
		t.Errorf("expected the strtab to start with a NUL byte")
	}
}

func TestBuildDynamicEndsWithNull(t *testing.T) {
	payload := BuildDynamic(DynamicParams{RelOff: 8, RelSz: 16, SymtabOff: 24, StrtabOff: 48, StrtabSz: 8})
	if len(payload) < 16 {
		t.Fatalf("expected at least one (tag,value) pair")
	}
	lastTag := binary.LittleEndian.Uint64(payload[len(payload)-16 : len(payload)-8])
	if lastTag != DtNull {
		t.Errorf("expected DT_NULL as the final tag, got 0x%x", lastTag)
	}
}

func TestBuildDynamicOmitsRelcountWhenZero(t *testing.T) {
	withCount := BuildDynamic(DynamicParams{RelCount: 1})
	withoutCount := BuildDynamic(DynamicParams{RelCount: 0})
	if len(withCount) <= len(withoutCount) {
		t.Errorf("expected DT_RELCOUNT to add a tag/value pair when RelCount > 0")
	}
}

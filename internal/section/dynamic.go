package section

import (
	"bytes"
	"encoding/binary"

	"github.com/deanmlittle/sbpf/internal/ast"
)

// Dynamic section tags, exact values per spec.md section 6.
const (
	DtNull     = 0x00
	DtStrtab   = 0x05
	DtSymtab   = 0x06
	DtStrsz    = 0x0a
	DtSyment   = 0x0b
	DtTextrel  = 0x16
	DtFlags    = 0x1e
	DtRel      = 0x11
	DtRelsz    = 0x12
	DtRelent   = 0x13
	DtRelcount = 0x6ffffffa

	dfTextrel = 4
)

const (
	rSbf64Relative = 0x08
	rSbfSyscall    = 0x0a
)

// dynSymInfo is the fixed st_info value spec.md assigns to every
// published dynamic symbol: binding GLOBAL, type NOTYPE.
const dynSymInfo = 0x10

// DynSymbol is one `.dynsym` entry (Elf64_Sym layout, 24 bytes).
type DynSymbol struct {
	NameOffset uint32
	Shndx      uint16
	Value      uint64
}

// Bytecode renders the 24-byte Elf64_Sym record (grounded on dynsym.rs).
func (s DynSymbol) Bytecode() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, s.NameOffset)
	buf.WriteByte(dynSymInfo)
	buf.WriteByte(0) // st_other
	binary.Write(&buf, binary.LittleEndian, s.Shndx)
	binary.Write(&buf, binary.LittleEndian, s.Value)
	binary.Write(&buf, binary.LittleEndian, uint64(0)) // st_size
	return buf.Bytes()
}

// EntrySymbol builds the entry-point `.dynsym` entry: shndx 1, value
// the program's entry file offset (= e_entry, spec.md section 6).
func EntrySymbol(nameOffset uint32, entryOffset uint64) DynSymbol {
	return DynSymbol{NameOffset: nameOffset, Shndx: 1, Value: entryOffset}
}

// CallTargetSymbol builds a syscall call-target `.dynsym` entry: shndx
// 0, value 0 -- the runtime resolves it by name at load time.
func CallTargetSymbol(nameOffset uint32) DynSymbol {
	return DynSymbol{NameOffset: nameOffset, Shndx: 0, Value: 0}
}

// RelDyn is one `.rel.dyn` entry (Elf64_Rel layout, 16 bytes). For
// R_SBF64_RELATIVE the symbol index is always 0 (self-relative fixup
// applied at load time); for R_SBF_SYSCALL it is the 1-based `.dynsym`
// index of the named external symbol (spec.md section 6).
type RelDyn struct {
	Offset   uint64
	Type     ast.RelocType
	SymIndex uint32
}

// Bytecode renders the 16-byte Elf64_Rel record: r_offset, then
// r_info = (symindex << 32) | type.
func (r RelDyn) Bytecode() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, r.Offset)
	var relType uint64
	switch r.Type {
	case ast.RSbf64Relative:
		relType = rSbf64Relative
	case ast.RSbfSyscall:
		relType = rSbfSyscall
	}
	info := (uint64(r.SymIndex) << 32) | relType
	binary.Write(&buf, binary.LittleEndian, info)
	return buf.Bytes()
}

// Strtab builds a simple NUL-terminated string table, tracking each
// inserted name's offset for reuse in symbol records (grounded on the
// teacher's elf_sections.go string-table builder).
type Strtab struct {
	buf     bytes.Buffer
	offsets map[string]uint32
}

// NewStrtab returns a table seeded with the mandatory empty string at
// offset 0, as ELF string tables require.
func NewStrtab() *Strtab {
	t := &Strtab{offsets: make(map[string]uint32)}
	t.buf.WriteByte(0)
	return t
}

// Add inserts name if not already present and returns its offset.
func (t *Strtab) Add(name string) uint32 {
	if off, ok := t.offsets[name]; ok {
		return off
	}
	off := uint32(t.buf.Len())
	t.buf.WriteString(name)
	t.buf.WriteByte(0)
	t.offsets[name] = off
	return off
}

// Bytes returns the accumulated table payload, padded to a multiple of
// 8 (spec.md 4.6).
func (t *Strtab) Bytes() []byte { return padTo8(t.buf.Bytes()) }

// DynamicParams carries every cross-section fact BuildDynamic needs to
// cross-fill `.dynamic`'s tag values (spec.md 4.7 step 8).
type DynamicParams struct {
	RelOff       uint64
	RelSz        uint64
	SymtabOff    uint64
	StrtabOff    uint64
	StrtabSz     uint64
	RelCount     int // number of R_SBF64_RELATIVE entries
}

// BuildDynamic renders the `.dynamic` section payload: a sequence of
// 16-byte (tag, value) pairs terminated by DT_NULL, in the exact order
// spec.md section 6 lists them.
func BuildDynamic(p DynamicParams) []byte {
	entries := []struct {
		tag uint64
		val uint64
	}{
		{DtFlags, dfTextrel},
		{DtRel, p.RelOff},
		{DtRelsz, p.RelSz},
		{DtRelent, 16},
	}
	if p.RelCount > 0 {
		entries = append(entries, struct {
			tag uint64
			val uint64
		}{DtRelcount, uint64(p.RelCount)})
	}
	entries = append(entries,
		struct {
			tag uint64
			val uint64
		}{DtSymtab, p.SymtabOff},
		struct {
			tag uint64
			val uint64
		}{DtSyment, 24},
		struct {
			tag uint64
			val uint64
		}{DtStrtab, p.StrtabOff},
		struct {
			tag uint64
			val uint64
		}{DtStrsz, p.StrtabSz},
		struct {
			tag uint64
			val uint64
		}{DtTextrel, 0},
		struct {
			tag uint64
			val uint64
		}{DtNull, 0},
	)
	var buf bytes.Buffer
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.tag)
		binary.Write(&buf, binary.LittleEndian, e.val)
	}
	return buf.Bytes()
}

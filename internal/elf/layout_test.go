package elf

import "testing"

func TestLayoutStaticEntryAndProgramHeaderCount(t *testing.T) {
	text := make([]byte, 8)
	shstrtab, names := []byte{0, '.', 't', 'e', 'x', 't', 0, '.', 's', 'h', 's', 't', 'r', 't', 'a', 'b', 0}, map[string]uint32{".text": 1, ".shstrtab": 7}

	out := Layout(LayoutParams{Text: text, IsStatic: true}, shstrtab)

	if out.Header.PhNum != 1 {
		t.Errorf("static program: PhNum = %d, want 1", out.Header.PhNum)
	}
	wantEntry := uint64(HeaderSize + 1*ProgramHeaderSize)
	if out.Header.Entry != wantEntry {
		t.Errorf("Entry = %d, want %d", out.Header.Entry, wantEntry)
	}
	if out.Header.Type != EtDyn || out.Header.Machine != EmBpf {
		t.Errorf("expected ET_DYN/EM_BPF, got type=%d machine=%d", out.Header.Type, out.Header.Machine)
	}
	if len(out.ProgramHeaders) != 1 {
		t.Fatalf("expected 1 program header, got %d", len(out.ProgramHeaders))
	}
	ph := out.ProgramHeaders[0]
	if ph.Type != PtLoad || ph.Offset != wantEntry || ph.FileSz != uint64(len(text)) {
		t.Errorf("unexpected PT_LOAD header: %+v", ph)
	}

	_ = names
	emitted := Emit(out, names)
	if len(emitted) == 0 {
		t.Fatalf("expected non-empty emitted output")
	}
}

func TestLayoutDynamicThreeProgramHeaders(t *testing.T) {
	text := make([]byte, 8)
	dynamic := make([]byte, 32)
	dynsym := make([]byte, 48)
	dynstr := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	relDyn := make([]byte, 16)

	shstrtab := []byte{0}
	names := map[string]uint32{}
	_ = names

	out := Layout(LayoutParams{
		Text: text, Dynamic: dynamic, Dynsym: dynsym, Dynstr: dynstr, RelDyn: relDyn,
		IsStatic: false,
	}, shstrtab)

	if out.Header.PhNum != 3 {
		t.Errorf("dynamic program: PhNum = %d, want 3", out.Header.PhNum)
	}
	if len(out.ProgramHeaders) != 3 {
		t.Fatalf("expected 3 program headers, got %d", len(out.ProgramHeaders))
	}
	if out.ProgramHeaders[1].Type != PtLoad || out.ProgramHeaders[2].Type != PtDynamic {
		t.Errorf("expected PT_LOAD then PT_DYNAMIC, got %+v", out.ProgramHeaders[1:])
	}

	// section allocation order: .text, .dynamic, .dynsym, .dynstr, .rel.dyn, .shstrtab
	wantOrder := []string{".text", ".dynamic", ".dynsym", ".dynstr", ".rel.dyn", ".shstrtab"}
	if len(out.Sections) != len(wantOrder) {
		t.Fatalf("expected %d sections, got %d: %+v", len(wantOrder), len(out.Sections), out.Sections)
	}
	for i, name := range wantOrder {
		if out.Sections[i].Name != name {
			t.Errorf("section %d: got %q, want %q", i, out.Sections[i].Name, name)
		}
	}

	for i := 1; i < len(out.Sections); i++ {
		if out.Sections[i].Offset < out.Sections[i-1].Offset+out.Sections[i-1].Size() {
			t.Errorf("section %q overlaps the previous section", out.Sections[i].Name)
		}
	}
}

func TestHeaderBytecodeLength(t *testing.T) {
	h := Header64{}
	if len(h.Bytecode()) != HeaderSize {
		t.Errorf("Header64.Bytecode() length = %d, want %d", len(h.Bytecode()), HeaderSize)
	}
}

func TestProgramHeaderBytecodeLength(t *testing.T) {
	p := ProgramHeader64{}
	if len(p.Bytecode()) != ProgramHeaderSize {
		t.Errorf("ProgramHeader64.Bytecode() length = %d, want %d", len(p.Bytecode()), ProgramHeaderSize)
	}
}

func TestSectionHeaderBytecodeLength(t *testing.T) {
	s := SectionHeader64{}
	if len(s.Bytecode()) != SectionHeaderSize {
		t.Errorf("SectionHeader64.Bytecode() length = %d, want %d", len(s.Bytecode()), SectionHeaderSize)
	}
}

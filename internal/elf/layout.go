package elf

import "bytes"

// Section is a single named payload awaiting a file offset, grounded
// on the teacher's two-phase "build sections then assign offsets"
// elf_writer.go idiom.
type Section struct {
	Name      string
	Type      uint32
	Flags     uint64
	Align     uint64
	EntSize   uint64
	Link      uint32
	Info      uint32
	Payload   []byte
	Offset    uint64 // assigned by Layout
}

// Addr reports the section's virtual address, which this loader model
// always equates with its file offset (spec.md 4.7 step 4: vaddr ==
// paddr == offset for the single PT_LOAD region).
func (s Section) Addr() uint64 { return s.Offset }

// Size returns the payload length.
func (s Section) Size() uint64 { return uint64(len(s.Payload)) }

// Output is the fully laid-out program, ready for Emit.
type Output struct {
	Header         Header64
	ProgramHeaders []ProgramHeader64
	Sections       []Section // allocation order, excluding the null section
	ShStrNdx       uint16
	EntryOffset    uint64 // == Header.Entry; the program's base file offset
}

// LayoutParams carries the facts the layout pass needs beyond the
// section payloads themselves.
type LayoutParams struct {
	Text     []byte
	Rodata   []byte
	Dynamic  []byte // empty if static
	Dynsym   []byte // empty if static
	Dynstr   []byte // empty if static
	RelDyn   []byte // empty if static
	IsStatic bool
}

const (
	phEntEhdrOffset = HeaderSize
)

// Layout computes every section and program header's file offset
// following spec.md 4.7's ten-step algorithm, and returns an Output
// ready for Emit. It does not encode `.shstrtab`'s own payload -- the
// caller supplies the payload built by section.BuildShstrtab so name offsets
// are known before this pass assigns file offsets.
func Layout(p LayoutParams, shstrtabPayload []byte) Output {
	phCount := 1
	if !p.IsStatic {
		phCount = 3
	}

	entry := uint64(HeaderSize + phCount*ProgramHeaderSize)

	cursor := entry
	textSec := Section{Name: ".text", Type: ShtProgbits, Flags: ShfAlloc | ShfExecinstr, Align: 4, Offset: cursor, Payload: p.Text}
	cursor += uint64(len(p.Text))

	var sections []Section
	sections = append(sections, textSec)

	var rodataSec Section
	hasRodata := len(p.Rodata) > 0
	if hasRodata {
		rodataSec = Section{Name: ".rodata", Type: ShtProgbits, Flags: ShfAlloc, Align: 1, Offset: cursor, Payload: p.Rodata}
		cursor += uint64(len(p.Rodata))
		sections = append(sections, rodataSec)
	}

	cursor = align(cursor, 8)

	loadSize := uint64(len(p.Text)) + uint64(len(p.Rodata))
	var phdrs []ProgramHeader64
	phdrs = append(phdrs, ProgramHeader64{
		Type: PtLoad, Flags: PfR | PfX,
		Offset: entry, VAddr: entry, PAddr: entry,
		FileSz: loadSize, MemSz: loadSize, Align: 4096,
	})

	if !p.IsStatic {
		dynamicSec := Section{Name: ".dynamic", Type: ShtDynamic, Flags: ShfAlloc | ShfWrite, Align: 8, EntSize: 16, Link: 5, Offset: cursor, Payload: p.Dynamic}
		cursor += uint64(len(p.Dynamic))

		dynsymSec := Section{Name: ".dynsym", Type: ShtDynsym, Flags: ShfAlloc, Align: 8, EntSize: 24, Link: 5, Info: 1, Offset: cursor, Payload: p.Dynsym}
		cursor += uint64(len(p.Dynsym))

		dynstrSec := Section{Name: ".dynstr", Type: ShtStrtab, Flags: ShfAlloc, Align: 1, Offset: cursor, Payload: p.Dynstr}
		cursor += uint64(len(p.Dynstr))

		relDynSec := Section{Name: ".rel.dyn", Type: ShtRel, Flags: ShfAlloc, Align: 8, EntSize: 16, Link: 4, Offset: cursor, Payload: p.RelDyn}
		cursor += uint64(len(p.RelDyn))

		dynRegionStart := dynsymSec.Offset
		dynRegionSize := uint64(len(p.Dynsym)) + uint64(len(p.Dynstr)) + uint64(len(p.RelDyn))
		phdrs = append(phdrs, ProgramHeader64{
			Type: PtLoad, Flags: PfR,
			Offset: dynRegionStart, VAddr: dynRegionStart, PAddr: dynRegionStart,
			FileSz: dynRegionSize, MemSz: dynRegionSize, Align: 4096,
		})
		phdrs = append(phdrs, ProgramHeader64{
			Type: PtDynamic, Flags: PfR | PfW,
			Offset: dynamicSec.Offset, VAddr: dynamicSec.Offset, PAddr: dynamicSec.Offset,
			FileSz: uint64(len(p.Dynamic)), MemSz: uint64(len(p.Dynamic)), Align: 8,
		})

		sections = append(sections, dynamicSec, dynsymSec, dynstrSec, relDynSec)

		shstrtabSec := Section{Name: ".shstrtab", Type: ShtStrtab, Align: 1, Offset: cursor, Payload: shstrtabPayload}
		cursor += uint64(len(shstrtabPayload))
		sections = append(sections, shstrtabSec)
	} else {
		shstrtabSec := Section{Name: ".shstrtab", Type: ShtStrtab, Align: 1, Offset: cursor, Payload: shstrtabPayload}
		cursor += uint64(len(shstrtabPayload))
		sections = append(sections, shstrtabSec)
	}

	cursor = align(cursor, 8)
	shoff := cursor

	shStrNdx := uint16(len(sections)) // null section occupies index 0

	hdr := Header64{
		Type: EtDyn, Machine: EmBpf, Version: EvCurrent,
		Entry: entry,
		PhOff: phEntEhdrOffset, ShOff: shoff,
		PhEntSize: ProgramHeaderSize, PhNum: uint16(phCount),
		ShEntSize: SectionHeaderSize, ShNum: uint16(len(sections) + 1), // +1 for null
		ShStrNdx: shStrNdx,
	}

	return Output{
		Header:         hdr,
		ProgramHeaders: phdrs,
		Sections:       sections,
		ShStrNdx:       shStrNdx,
		EntryOffset:    entry,
	}
}

func align(v, to uint64) uint64 {
	if rem := v % to; rem != 0 {
		v += to - rem
	}
	return v
}

// Emit concatenates the ELF header, program headers, section payloads
// in allocation order, zero padding up to e_shoff, then the section
// header table -- a null entry first, followed by one record per
// section (spec.md 4.7 final paragraph).
func Emit(out Output, shstrtabNameOffsets map[string]uint32) []byte {
	var buf bytes.Buffer
	buf.Write(out.Header.Bytecode())
	for _, ph := range out.ProgramHeaders {
		buf.Write(ph.Bytecode())
	}
	for _, s := range out.Sections {
		buf.Write(s.Payload)
	}
	if pad := int(out.Header.ShOff) - buf.Len(); pad > 0 {
		buf.Write(make([]byte, pad))
	}

	buf.Write(SectionHeader64{}.Bytecode()) // null section header
	for _, s := range out.Sections {
		sh := SectionHeader64{
			NameOffset: shstrtabNameOffsets[s.Name],
			Type:       s.Type,
			Flags:      s.Flags,
			Addr:       s.Addr(),
			Offset:     s.Offset,
			Size:       s.Size(),
			Link:       s.Link,
			Info:       s.Info,
			AddrAlign:  s.Align,
			EntSize:    s.EntSize,
		}
		buf.Write(sh.Bytecode())
	}
	return buf.Bytes()
}

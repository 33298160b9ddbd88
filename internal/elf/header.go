// Package elf builds the byte-exact ELF64 structures the assembler
// emits: the file header, program headers, and section headers, plus
// the program-layout emitter that ties every section's bytes together
// into a single ET_DYN shared object (spec.md 4.7), grounded on
// original_source/crates/assembler/src/header.rs and the teacher's
// elf_complete.go / elf_writer.go offset-then-emit layout idiom.
package elf

import (
	"bytes"
	"encoding/binary"
)

const (
	// EtDyn marks the output as a position-independent shared object,
	// the only form the Solana loader accepts (spec.md 1).
	EtDyn = 3
	// EmBpf is the ELF e_machine value for the BPF instruction set.
	EmBpf = 247
	EvCurrent = 1

	ClassElf64   = 2
	DataLsb      = 1
	OsabiNone    = 0

	PtLoad    = 1
	PtDynamic = 2

	PfX = 1
	PfW = 2
	PfR = 4
)

// Header64 is the 64-byte ELF file header.
type Header64 struct {
	Type          uint16
	Machine       uint16
	Version       uint32
	Entry         uint64
	PhOff         uint64
	ShOff         uint64
	Flags         uint32
	PhEntSize     uint16
	PhNum         uint16
	ShEntSize     uint16
	ShNum         uint16
	ShStrNdx      uint16
}

// Bytecode renders the 64-byte Elf64_Ehdr, including the 16-byte
// e_ident prefix (header.rs).
func (h Header64) Bytecode() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 'E', 'L', 'F', ClassElf64, DataLsb, EvCurrent, OsabiNone, 0, 0, 0, 0, 0, 0, 0, 0})
	binary.Write(&buf, binary.LittleEndian, h.Type)
	binary.Write(&buf, binary.LittleEndian, h.Machine)
	binary.Write(&buf, binary.LittleEndian, h.Version)
	binary.Write(&buf, binary.LittleEndian, h.Entry)
	binary.Write(&buf, binary.LittleEndian, h.PhOff)
	binary.Write(&buf, binary.LittleEndian, h.ShOff)
	binary.Write(&buf, binary.LittleEndian, h.Flags)
	binary.Write(&buf, binary.LittleEndian, uint16(64)) // e_ehsize
	binary.Write(&buf, binary.LittleEndian, h.PhEntSize)
	binary.Write(&buf, binary.LittleEndian, h.PhNum)
	binary.Write(&buf, binary.LittleEndian, h.ShEntSize)
	binary.Write(&buf, binary.LittleEndian, h.ShNum)
	binary.Write(&buf, binary.LittleEndian, h.ShStrNdx)
	return buf.Bytes()
}

// HeaderSize is the fixed Elf64_Ehdr length.
const HeaderSize = 64

// ProgramHeader64 is a 56-byte Elf64_Phdr entry.
type ProgramHeader64 struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	VAddr  uint64
	PAddr  uint64
	FileSz uint64
	MemSz  uint64
	Align  uint64
}

// ProgramHeaderSize is the fixed Elf64_Phdr length.
const ProgramHeaderSize = 56

// Bytecode renders the 56-byte Elf64_Phdr (header.rs field order:
// type, flags, offset, vaddr, paddr, filesz, memsz, align).
func (p ProgramHeader64) Bytecode() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, p.Type)
	binary.Write(&buf, binary.LittleEndian, p.Flags)
	binary.Write(&buf, binary.LittleEndian, p.Offset)
	binary.Write(&buf, binary.LittleEndian, p.VAddr)
	binary.Write(&buf, binary.LittleEndian, p.PAddr)
	binary.Write(&buf, binary.LittleEndian, p.FileSz)
	binary.Write(&buf, binary.LittleEndian, p.MemSz)
	binary.Write(&buf, binary.LittleEndian, p.Align)
	return buf.Bytes()
}

// SectionHeader64 is a 64-byte Elf64_Shdr entry.
type SectionHeader64 struct {
	NameOffset uint32
	Type       uint32
	Flags      uint64
	Addr       uint64
	Offset     uint64
	Size       uint64
	Link       uint32
	Info       uint32
	AddrAlign  uint64
	EntSize    uint64
}

// SectionHeaderSize is the fixed Elf64_Shdr length.
const SectionHeaderSize = 64

// Bytecode renders the 64-byte Elf64_Shdr.
func (s SectionHeader64) Bytecode() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, s.NameOffset)
	binary.Write(&buf, binary.LittleEndian, s.Type)
	binary.Write(&buf, binary.LittleEndian, s.Flags)
	binary.Write(&buf, binary.LittleEndian, s.Addr)
	binary.Write(&buf, binary.LittleEndian, s.Offset)
	binary.Write(&buf, binary.LittleEndian, s.Size)
	binary.Write(&buf, binary.LittleEndian, s.Link)
	binary.Write(&buf, binary.LittleEndian, s.Info)
	binary.Write(&buf, binary.LittleEndian, s.AddrAlign)
	binary.Write(&buf, binary.LittleEndian, s.EntSize)
	return buf.Bytes()
}

// Section header sh_type values used by the assembler's output.
const (
	ShtNull     = 0
	ShtProgbits = 1
	ShtSymtab   = 2
	ShtStrtab   = 3
	ShtRel      = 9
	ShtDynamic  = 6
	ShtDynsym   = 11
)

// Section header sh_flags bits.
const (
	ShfWrite     = 1
	ShfAlloc     = 2
	ShfExecinstr = 4
)

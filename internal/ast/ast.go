// Package ast defines the tagged-union AST node set produced by the
// parser's first pass, grounded on astnode.rs: every node variant
// named in spec.md section 3, each carrying its source span.
package ast

import (
	"github.com/deanmlittle/sbpf/internal/diag"
	"github.com/deanmlittle/sbpf/internal/opcode"
	"github.com/deanmlittle/sbpf/internal/token"
)

// RelocType is the relocation kind an instruction requires.
type RelocType int

const (
	// RSbf64Relative is emitted for lddw operands referring to a
	// label (the lddw carries an absolute file address to which the
	// loader adds its load base).
	RSbf64Relative RelocType = iota
	// RSbfSyscall is emitted for call targets resolved by the
	// Solana runtime's syscall dispatch table.
	RSbfSyscall
)

// Node is implemented by every AST variant.
type Node interface {
	Span() diag.Span
	node()
}

type base struct {
	span diag.Span
}

func (b base) Span() diag.Span { return b.span }
func (base) node()             {}

// Directive is a recognized no-op layout directive (`.section ...`).
type Directive struct {
	base
	Name string
}

// GlobalDecl records the program's declared entry label.
type GlobalDecl struct {
	base
	EntryLabel string
}

// EquDecl binds a name to a constant immediate value.
type EquDecl struct {
	base
	Name  string
	Value token.Token
}

// ExternDecl retains externally-declared identifiers; parsed but
// unused, per spec.md's explicit open question.
type ExternDecl struct {
	base
	Names []string
}

// RodataDecl marks the `.rodata` phase switch.
type RodataDecl struct {
	base
}

// Label records a code- or rodata-phase label.
type Label struct {
	base
	Name string
}

// Instruction is a single assembled instruction, tagged with its
// `.text`-relative byte offset.
type Instruction struct {
	base
	Opcode   opcode.Opcode
	Operands []token.Token
	Offset   uint64
}

// Size returns the instruction's encoded length: 16 for lddw, 8
// otherwise (spec.md 8: size ∈ {8,16}; size == 16 iff opcode == lddw).
func (i Instruction) Size() uint64 {
	if i.Opcode.IsLddw() {
		return 16
	}
	return 8
}

// NeedsRelocation reports whether this instruction requires a
// `.rel.dyn` entry: a call (always, target resolved by the runtime)
// or an lddw whose final operand is still an unresolved identifier.
func (i Instruction) NeedsRelocation() bool {
	if i.Opcode == opcode.Call {
		return true
	}
	if i.Opcode.IsLddw() && len(i.Operands) > 0 {
		last := i.Operands[len(i.Operands)-1]
		return last.Type == token.Identifier
	}
	return false
}

// RelocationInfo returns the relocation type and target label name for
// an instruction that NeedsRelocation.
func (i Instruction) RelocationInfo() (RelocType, string) {
	last := i.Operands[len(i.Operands)-1]
	if i.Opcode.IsLddw() {
		return RSbf64Relative, last.Text
	}
	return RSbfSyscall, last.Text
}

// ROData is a single `.rodata` string-literal entry.
type ROData struct {
	base
	Name   string
	Str    string
	Offset uint64
}

// Size returns the byte length of the rodata entry's payload (no NUL
// terminator, per spec.md 9).
func (r ROData) Size() uint64 {
	return uint64(len(r.Str))
}

// NewDirective, NewGlobalDecl, ... construct nodes with their span.

func NewDirective(span diag.Span, name string) Directive {
	return Directive{base{span}, name}
}

func NewGlobalDecl(span diag.Span, entryLabel string) GlobalDecl {
	return GlobalDecl{base{span}, entryLabel}
}

func NewEquDecl(span diag.Span, name string, value token.Token) EquDecl {
	return EquDecl{base{span}, name, value}
}

func NewExternDecl(span diag.Span, names []string) ExternDecl {
	return ExternDecl{base{span}, names}
}

func NewRodataDecl(span diag.Span) RodataDecl {
	return RodataDecl{base{span}}
}

func NewLabel(span diag.Span, name string) Label {
	return Label{base{span}, name}
}

func NewInstruction(span diag.Span, op opcode.Opcode, operands []token.Token, offset uint64) Instruction {
	return Instruction{base{span}, op, operands, offset}
}

func NewROData(span diag.Span, name, str string, offset uint64) ROData {
	return ROData{base{span}, name, str, offset}
}

// Package parser implements the assembler's two-pass parser: first
// pass walks the token stream doing constant folding, opcode
// specialization, and relocation/dynamic-symbol recording; second
// pass resolves jump and lddw label operands into immediates.
// Grounded on original_source/crates/assembler/src/parser.rs, adjusted
// where spec.md is explicit and parser.rs is narrower (see DESIGN.md):
// jump and `ja` immediates accept constant folding here, matching
// spec.md 4.3.1's stated operand shapes.
package parser

import (
	"github.com/deanmlittle/sbpf/internal/ast"
	"github.com/deanmlittle/sbpf/internal/diag"
	"github.com/deanmlittle/sbpf/internal/opcode"
	"github.com/deanmlittle/sbpf/internal/token"
)

// CallTarget is a named syscall relocation target recorded in source
// order the first time it is referenced.
type CallTarget struct {
	Name   string
	Offset uint64
}

// Relocation is a single `.rel.dyn` entry awaiting section emission.
type Relocation struct {
	Offset uint64
	Type   ast.RelocType
	Name   string
}

// Result is everything the section builders and program layout need.
type Result struct {
	Nodes        []ast.Node
	Instructions []ast.Instruction
	Rodata       []ast.ROData
	CodeSize     uint64
	RodataSize   uint64

	EntryLabel  string
	EntryOffset uint64
	HasEntry    bool

	CallTargets  []CallTarget
	Relocations  []Relocation
	ProgIsStatic bool
}

type parser struct {
	toks  []token.Token
	diags *diag.Collector

	progIsStatic bool
	accumOffset  uint64
	rodataSize   uint64

	constMap     map[string]token.Token
	labelOffsets map[string]uint64

	entryLabel string
	hasEntry   bool

	callSeen    map[string]bool
	callTargets []CallTarget
	relocations []Relocation
}

// Parse runs both passes over tokens and returns the assembled
// intermediate representation. Check diags.HasErrors() before using
// the result: a non-empty diagnostic list suppresses emission.
func Parse(tokens []token.Token, diags *diag.Collector) Result {
	p := &parser{
		toks:         tokens,
		diags:        diags,
		progIsStatic: true,
		constMap:     make(map[string]token.Token),
		labelOffsets: make(map[string]uint64),
		callSeen:     make(map[string]bool),
	}
	nodes, instructions, rodata := p.firstPass()
	p.secondPass(instructions)

	var entryOffset uint64
	hasEntry := false
	if p.hasEntry {
		if off, ok := p.labelOffsets[p.entryLabel]; ok {
			entryOffset = off
			hasEntry = true
		}
	}

	return Result{
		Nodes:        nodes,
		Instructions: instructions,
		Rodata:       rodata,
		CodeSize:     p.accumOffset,
		RodataSize:   p.rodataSize,
		EntryLabel:   p.entryLabel,
		EntryOffset:  entryOffset,
		HasEntry:     hasEntry,
		CallTargets:  p.callTargets,
		Relocations:  p.relocations,
		ProgIsStatic: p.progIsStatic,
	}
}

func (p *parser) firstPass() (nodes []ast.Node, instructions []ast.Instruction, rodata []ast.ROData) {
	i := 0
	rodataPhase := false

	for i < len(p.toks) {
		t := p.toks[i]
		switch t.Type {
		case token.Directive:
			switch t.Text {
			case "global", "globl":
				if i+1 < len(p.toks) && p.toks[i+1].Type == token.Identifier {
					name := p.toks[i+1].Text
					p.entryLabel = name
					p.hasEntry = true
					nodes = append(nodes, ast.NewGlobalDecl(t.Span, name))
					i += 2
				} else {
					p.diags.Addf(diag.KindInvalidGlobalDecl, t.Span, t.Line, t.Col, "expected identifier after .global")
					i++
				}
			case "extern":
				j := i + 1
				var names []string
				for j < len(p.toks) && p.toks[j].Type == token.Identifier {
					names = append(names, p.toks[j].Text)
					j++
				}
				if len(names) == 0 {
					p.diags.Addf(diag.KindInvalidExternDecl, t.Span, t.Line, t.Col, "expected at least one identifier after .extern")
					i++
				} else {
					nodes = append(nodes, ast.NewExternDecl(t.Span, names))
					i = j
				}
			case "rodata":
				nodes = append(nodes, ast.NewRodataDecl(t.Span))
				rodataPhase = true
				i++
			case "equ":
				if i+3 < len(p.toks) &&
					p.toks[i+1].Type == token.Identifier &&
					p.toks[i+2].Type == token.Comma &&
					p.toks[i+3].Type == token.Immediate {
					name := p.toks[i+1].Text
					val := p.toks[i+3]
					p.constMap[name] = val
					nodes = append(nodes, ast.NewEquDecl(t.Span, name, val))
					i += 4
				} else {
					p.diags.Addf(diag.KindInvalidEquDecl, t.Span, t.Line, t.Col, "expected 'name, immediate' after .equ")
					i++
				}
			case "section":
				nodes = append(nodes, ast.NewDirective(t.Span, t.Text))
				i++
			default:
				p.diags.Addf(diag.KindInvalidDirective, t.Span, t.Line, t.Col, "unknown directive .%s", t.Text)
				i++
			}

		case token.Label:
			name := t.Text
			if rodataPhase {
				off, consumed, ok := p.parseRodataEntry(i)
				if !ok {
					i = consumed
					continue
				}
				entry := ast.NewROData(t.Span, name, p.toks[i+2].Str, off)
				rodata = append(rodata, entry)
				p.rodataSize += entry.Size()
				p.labelOffsets[name] = off
				i = consumed
			} else {
				nodes = append(nodes, ast.NewLabel(t.Span, name))
				p.labelOffsets[name] = p.accumOffset
				i++
			}

		case token.Opcode:
			if opcode.IsUnsupported(t.Text) {
				p.diags.Addf(diag.KindInvalidInstruction, t.Span, t.Line, t.Col,
					"unsupported opcode %q (byte-swap and deprecated store forms are not accepted)", t.Text)
				i++
				continue
			}
			inst, next, ok := p.parseInstruction(i)
			if !ok {
				p.diags.Addf(diag.KindInvalidInstruction, t.Span, t.Line, t.Col, "invalid operands for %q", t.Text)
				i++
				continue
			}
			if inst.NeedsRelocation() {
				p.progIsStatic = false
				rt, name := inst.RelocationInfo()
				p.relocations = append(p.relocations, Relocation{Offset: p.accumOffset, Type: rt, Name: name})
				if rt == ast.RSbfSyscall {
					if !p.callSeen[name] {
						p.callSeen[name] = true
						p.callTargets = append(p.callTargets, CallTarget{Name: name, Offset: p.accumOffset})
					}
				}
			}
			inst = ast.NewInstruction(t.Span, inst.Opcode, inst.Operands, p.accumOffset)
			p.accumOffset += inst.Size()
			nodes = append(nodes, inst)
			instructions = append(instructions, inst)
			i = next

		default:
			if t.Type == token.Identifier {
				if suggestion, ok := opcode.Suggest(t.Text); ok {
					p.diags.Addf(diag.KindUnexpectedToken, t.Span, t.Line, t.Col,
						"unknown instruction %q, did you mean %q?", t.Text, suggestion)
					i++
					continue
				}
			}
			p.diags.Addf(diag.KindUnexpectedToken, t.Span, t.Line, t.Col, "unexpected token %s", t)
			i++
		}
	}
	return nodes, instructions, rodata
}

// parseRodataEntry expects `NAME: .ascii "..."` starting at the Label
// token index i; it returns the entry's start offset (code size so
// far + rodata bytes accumulated so far), the next token index, and
// whether parsing succeeded.
func (p *parser) parseRodataEntry(i int) (offset uint64, next int, ok bool) {
	if i+2 >= len(p.toks) ||
		p.toks[i+1].Type != token.Directive ||
		p.toks[i+2].Type != token.StringLiteral {
		t := p.toks[i]
		p.diags.Addf(diag.KindInvalidRodataDecl, t.Span, t.Line, t.Col, "expected 'name: .ascii \"...\"'")
		return 0, i + 1, false
	}
	return p.accumOffset + p.rodataSize, i + 3, true
}

// foldImmediate resolves a chain `value (op value)*` starting at
// index idx into a single Immediate token, returning the next token
// index. Only the first term may be an Identifier (resolved against
// the constant map); chained terms must themselves be immediates,
// mirroring inline_and_fold_constant/_helper in parser.rs.
func (p *parser) foldImmediate(idx int) (token.Token, int, bool) {
	if idx >= len(p.toks) {
		return token.Token{}, idx, false
	}
	var acc token.Token
	switch p.toks[idx].Type {
	case token.Immediate:
		acc = p.toks[idx]
	case token.Identifier:
		v, ok := p.constMap[p.toks[idx].Text]
		if !ok {
			return token.Token{}, idx, false
		}
		acc = v
	default:
		return token.Token{}, idx, false
	}

	i := idx
	for i+2 < len(p.toks) {
		opTok := p.toks[i+1]
		valTok := p.toks[i+2]
		if valTok.Type != token.Immediate {
			break
		}
		var kind token.ImmKind
		var val int64
		switch opTok.Type {
		case token.Plus:
			kind, val = token.CombineAdd(acc, valTok)
		case token.Minus:
			kind, val = token.CombineSub(acc, valTok)
		default:
			i++
			return acc, i, true
		}
		acc = token.Token{Type: token.Immediate, ImmKind: kind, ImmVal: val}
		i += 2
	}
	return acc, i + 1, true
}

// parseInstruction dispatches on the opcode's family and returns the
// fully-specialized Instruction plus the next token index.
func (p *parser) parseInstruction(i int) (ast.Instruction, int, bool) {
	t := p.toks[i]
	op, fam := t.OpBase, t.OpFam

	switch fam {
	case opcode.FamilyLddw:
		if i+3 >= len(p.toks) {
			return ast.Instruction{}, i, false
		}
		if val, next, ok := p.foldImmediate(i + 3); ok &&
			p.toks[i+1].Type == token.Register && p.toks[i+2].Type == token.Comma {
			operands := []token.Token{p.toks[i+1], val}
			return ast.NewInstruction(t.Span, op, operands, 0), next, true
		}
		if p.toks[i+1].Type == token.Register && p.toks[i+2].Type == token.Comma && p.toks[i+3].Type == token.Identifier {
			operands := []token.Token{p.toks[i+1], p.toks[i+3]}
			return ast.NewInstruction(t.Span, op, operands, 0), i + 4, true
		}
		return ast.Instruction{}, i, false

	case opcode.FamilyLoadIndexed:
		if i+6 >= len(p.toks) {
			return ast.Instruction{}, i, false
		}
		if p.toks[i+1].Type != token.Register || p.toks[i+2].Type != token.Comma ||
			p.toks[i+3].Type != token.LeftBracket || p.toks[i+4].Type != token.Register ||
			(p.toks[i+5].Type != token.Plus && p.toks[i+5].Type != token.Minus) {
			return ast.Instruction{}, i, false
		}
		val, next, ok := p.foldImmediate(i + 6)
		if !ok || next >= len(p.toks) || p.toks[next].Type != token.RightBracket {
			return ast.Instruction{}, i, false
		}
		if p.toks[i+5].Type == token.Minus {
			val.ImmVal = -val.ImmVal
		}
		operands := []token.Token{p.toks[i+1], p.toks[i+4], val}
		return ast.NewInstruction(t.Span, op, operands, 0), next + 1, true

	case opcode.FamilyStore:
		if i+4 >= len(p.toks) {
			return ast.Instruction{}, i, false
		}
		if p.toks[i+1].Type != token.LeftBracket || p.toks[i+2].Type != token.Register ||
			(p.toks[i+3].Type != token.Plus && p.toks[i+3].Type != token.Minus) {
			return ast.Instruction{}, i, false
		}
		val, next, ok := p.foldImmediate(i + 4)
		if !ok || next+2 >= len(p.toks) || p.toks[next].Type != token.RightBracket ||
			p.toks[next+1].Type != token.Comma || p.toks[next+2].Type != token.Register {
			return ast.Instruction{}, i, false
		}
		if p.toks[i+3].Type == token.Minus {
			val.ImmVal = -val.ImmVal
		}
		operands := []token.Token{p.toks[i+2], val, p.toks[next+2]}
		return ast.NewInstruction(t.Span, op, operands, 0), next + 3, true

	case opcode.FamilyArithmetic:
		if i+3 >= len(p.toks) {
			return ast.Instruction{}, i, false
		}
		if p.toks[i+1].Type == token.Register && p.toks[i+2].Type == token.Comma {
			if val, next, ok := p.foldImmediate(i + 3); ok {
				operands := []token.Token{p.toks[i+1], val}
				return ast.NewInstruction(t.Span, op.SpecializeImm(), operands, 0), next, true
			}
			if p.toks[i+3].Type == token.Register {
				operands := []token.Token{p.toks[i+1], p.toks[i+3]}
				return ast.NewInstruction(t.Span, op.SpecializeReg(), operands, 0), i + 4, true
			}
		}
		return ast.Instruction{}, i, false

	case opcode.FamilyUnary:
		if i+1 >= len(p.toks) || p.toks[i+1].Type != token.Register {
			return ast.Instruction{}, i, false
		}
		operands := []token.Token{p.toks[i+1]}
		return ast.NewInstruction(t.Span, op, operands, 0), i + 2, true

	case opcode.FamilyJump:
		if i+3 >= len(p.toks) || p.toks[i+1].Type != token.Register || p.toks[i+2].Type != token.Comma {
			return ast.Instruction{}, i, false
		}
		if val, next, ok := p.foldImmediate(i + 3); ok &&
			next+1 < len(p.toks) && p.toks[next].Type == token.Comma && p.toks[next+1].Type == token.Identifier {
			operands := []token.Token{p.toks[i+1], val, p.toks[next+1]}
			return ast.NewInstruction(t.Span, op.SpecializeImm(), operands, 0), next + 2, true
		}
		if i+5 < len(p.toks) && p.toks[i+3].Type == token.Register && p.toks[i+4].Type == token.Comma && p.toks[i+5].Type == token.Identifier {
			operands := []token.Token{p.toks[i+1], p.toks[i+3], p.toks[i+5]}
			return ast.NewInstruction(t.Span, op.SpecializeReg(), operands, 0), i + 6, true
		}
		return ast.Instruction{}, i, false

	case opcode.FamilyJa:
		if i+1 >= len(p.toks) {
			return ast.Instruction{}, i, false
		}
		if val, next, ok := p.foldImmediate(i + 1); ok {
			return ast.NewInstruction(t.Span, op, []token.Token{val}, 0), next, true
		}
		if p.toks[i+1].Type == token.Identifier {
			return ast.NewInstruction(t.Span, op, []token.Token{p.toks[i+1]}, 0), i + 2, true
		}
		return ast.Instruction{}, i, false

	case opcode.FamilyCall:
		if i+1 >= len(p.toks) || p.toks[i+1].Type != token.Identifier {
			return ast.Instruction{}, i, false
		}
		return ast.NewInstruction(t.Span, op, []token.Token{p.toks[i+1]}, 0), i + 2, true

	case opcode.FamilyExit:
		return ast.NewInstruction(t.Span, op, nil, 0), i + 1, true
	}

	return ast.Instruction{}, i, false
}

// jumpFamilyOpcodes lists every specialized jump-family opcode whose
// last operand may be a label to resolve in the second pass.
var jumpFamilyOpcodes = map[opcode.Opcode]bool{
	opcode.JeqImm: true, opcode.JeqReg: true,
	opcode.JgtImm: true, opcode.JgtReg: true,
	opcode.JgeImm: true, opcode.JgeReg: true,
	opcode.JltImm: true, opcode.JltReg: true,
	opcode.JleImm: true, opcode.JleReg: true,
	opcode.JsetImm: true, opcode.JsetReg: true,
	opcode.JneImm: true, opcode.JneReg: true,
	opcode.JsgtImm: true, opcode.JsgtReg: true,
	opcode.JsgeImm: true, opcode.JsgeReg: true,
	opcode.JsltImm: true, opcode.JsltReg: true,
	opcode.JsleImm: true, opcode.JsleReg: true,
	opcode.Ja: true,
}

// secondPass walks instructions in order, replacing unresolved label
// operands with their computed immediates (spec.md 4.4).
func (p *parser) secondPass(instructions []ast.Instruction) {
	phCount := uint64(3)
	if p.progIsStatic {
		phCount = 1
	}
	phOffset := 64 + phCount*56

	for idx := range instructions {
		inst := &instructions[idx]
		if len(inst.Operands) == 0 {
			continue
		}
		last := &inst.Operands[len(inst.Operands)-1]

		if jumpFamilyOpcodes[inst.Opcode] && last.Type == token.Identifier {
			if target, ok := p.labelOffsets[last.Text]; ok {
				rel := (int64(target) - int64(inst.Offset)) / 8 - 1
				*last = token.Token{Type: token.Immediate, ImmKind: token.Int, ImmVal: rel}
			}
			// Unresolved jump targets are tolerated here: the
			// operand is left as an Identifier and the instruction
			// encoder rejects it with an encoding error, since
			// silently emitting a zero offset would produce a
			// wrong-but-valid-looking binary (see SPEC_FULL.md 9).
		}

		if inst.Opcode.IsLddw() && last.Type == token.Identifier {
			if target, ok := p.labelOffsets[last.Text]; ok {
				abs := int64(target) + int64(phOffset)
				*last = token.Token{Type: token.Immediate, ImmKind: token.Addr, ImmVal: abs}
			} else {
				p.diags.Addf(diag.KindUndefinedLabel, diag.Span{}, 0, 0, "undefined label %q", last.Text)
			}
		}
	}
}

// Package section builds the byte payloads for every ELF section the
// assembler emits: instruction encoding, `.text`, `.rodata`,
// `.dynamic`, `.dynsym`, `.dynstr`, `.rel.dyn`, and `.shstrtab`.
// Byte layouts are grounded on original_source/crates/assembler/src/
// astnode.rs (instruction encoding), section.rs (section-header field
// values) and dynsym.rs (dynamic symbol / relocation entry layout).
package section

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/deanmlittle/sbpf/internal/ast"
	"github.com/deanmlittle/sbpf/internal/opcode"
	"github.com/deanmlittle/sbpf/internal/token"
)

// RegisterHint records that a register received an Addr-kind
// immediate at a given code offset -- debug-info metadata consumed by
// downstream tooling, not emitted into the ELF itself.
type RegisterHint struct {
	Offset   uint64
	Register uint8
}

// EncodeInstruction renders a single instruction to its 8- or 16-byte
// wire form (spec.md 4.5). hint is non-nil when a register received an
// Addr-kind immediate.
func EncodeInstruction(inst ast.Instruction) (encoded []byte, hint *RegisterHint, err error) {
	op := inst.Opcode
	size := inst.Size()
	buf := make([]byte, size)
	buf[0] = op.Byte()

	switch {
	case op == opcode.Call:
		copy(buf[1:], []byte{0x10, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF})
		return buf, nil, nil

	case op.IsLddw():
		if len(inst.Operands) != 2 {
			return nil, nil, fmt.Errorf("lddw: expected 2 operands, got %d", len(inst.Operands))
		}
		dst := inst.Operands[0]
		imm := inst.Operands[1]
		if imm.Type != token.Immediate {
			return nil, nil, fmt.Errorf("lddw: unresolved operand %s", imm)
		}
		buf[1] = dst.RegNum
		v := uint64(imm.ImmVal)
		binary.LittleEndian.PutUint32(buf[4:8], uint32(v))
		binary.LittleEndian.PutUint32(buf[12:16], uint32(v>>32))
		if imm.ImmKind == token.Addr {
			hint = &RegisterHint{Offset: inst.Offset, Register: dst.RegNum}
		}
		return buf, hint, nil

	case op == opcode.Exit:
		return buf, nil, nil

	case len(inst.Operands) == 1 && inst.Operands[0].Type == token.Register:
		// unary [reg] form (`neg32`/`neg64`)
		buf[1] = inst.Operands[0].RegNum
		return buf, nil, nil

	case len(inst.Operands) == 1:
		// single-immediate form (`ja`)
		imm := inst.Operands[0]
		if imm.Type != token.Immediate {
			return nil, nil, fmt.Errorf("%s: unresolved jump target %s", mnemonicOf(op), imm)
		}
		if op.IsJa() {
			binary.LittleEndian.PutUint16(buf[2:4], uint16(int16(imm.ImmVal)))
		} else {
			binary.LittleEndian.PutUint32(buf[4:8], uint32(imm.ImmVal))
		}
		return buf, nil, nil

	case isRegRegFamily(op) && len(inst.Operands) == 2 && inst.Operands[1].Type == token.Register:
		dst := inst.Operands[0]
		src := inst.Operands[1]
		buf[1] = (src.RegNum << 4) | dst.RegNum
		return buf, nil, nil

	case len(inst.Operands) == 2:
		// [reg, imm]
		dst := inst.Operands[0]
		imm := inst.Operands[1]
		if imm.Type != token.Immediate {
			return nil, nil, fmt.Errorf("unresolved immediate operand %s", imm)
		}
		buf[1] = dst.RegNum
		binary.LittleEndian.PutUint32(buf[4:8], uint32(imm.ImmVal))
		if imm.ImmKind == token.Addr {
			hint = &RegisterHint{Offset: inst.Offset, Register: dst.RegNum}
		}
		return buf, hint, nil

	case len(inst.Operands) == 3 && isStoreFamily(op):
		// [reg_base, offset, reg_src] -> (src<<4)|base, offset
		base := inst.Operands[0]
		off := inst.Operands[1]
		src := inst.Operands[2]
		if off.Type != token.Immediate {
			return nil, nil, fmt.Errorf("unresolved store offset %s", off)
		}
		buf[1] = (src.RegNum << 4) | base.RegNum
		binary.LittleEndian.PutUint16(buf[2:4], uint16(int16(off.ImmVal)))
		return buf, nil, nil

	case len(inst.Operands) == 3 && isLoadIndexedFamily(op):
		// [reg_dst, reg_base, offset] -> (base<<4)|dst, offset
		dst := inst.Operands[0]
		base := inst.Operands[1]
		off := inst.Operands[2]
		if off.Type != token.Immediate {
			return nil, nil, fmt.Errorf("unresolved load offset %s", off)
		}
		buf[1] = (base.RegNum << 4) | dst.RegNum
		binary.LittleEndian.PutUint16(buf[2:4], uint16(int16(off.ImmVal)))
		return buf, nil, nil

	case len(inst.Operands) == 3:
		// jump reg,imm,target or reg,reg,target already resolved to immediate
		dst := inst.Operands[0]
		second := inst.Operands[1]
		target := inst.Operands[2]
		if target.Type != token.Immediate {
			return nil, nil, fmt.Errorf("unresolved jump target %s", target)
		}
		if second.Type == token.Register {
			buf[1] = (second.RegNum << 4) | dst.RegNum
		} else if second.Type == token.Immediate {
			buf[1] = dst.RegNum
			binary.LittleEndian.PutUint32(buf[4:8], uint32(second.ImmVal))
		} else {
			return nil, nil, fmt.Errorf("unexpected second jump operand %s", second)
		}
		binary.LittleEndian.PutUint16(buf[2:4], uint16(int16(target.ImmVal)))
		return buf, nil, nil
	}

	return nil, nil, fmt.Errorf("unencodable instruction shape: %d operands", len(inst.Operands))
}

func isRegRegFamily(op opcode.Opcode) bool {
	switch op {
	case opcode.Add32Reg, opcode.Sub32Reg, opcode.Mul32Reg, opcode.Div32Reg, opcode.Or32Reg,
		opcode.And32Reg, opcode.Lsh32Reg, opcode.Rsh32Reg, opcode.Mod32Reg, opcode.Xor32Reg,
		opcode.Mov32Reg, opcode.Arsh32Reg, opcode.Lmul32Reg, opcode.Udiv32Reg, opcode.Urem32Reg,
		opcode.Sdiv32Reg, opcode.Srem32Reg,
		opcode.Add64Reg, opcode.Sub64Reg, opcode.Mul64Reg, opcode.Div64Reg, opcode.Or64Reg,
		opcode.And64Reg, opcode.Lsh64Reg, opcode.Rsh64Reg, opcode.Mod64Reg, opcode.Xor64Reg,
		opcode.Mov64Reg, opcode.Arsh64Reg, opcode.Lmul64Reg, opcode.Uhmul64Reg, opcode.Udiv64Reg,
		opcode.Urem64Reg, opcode.Sdiv64Reg, opcode.Srem64Reg,
		opcode.Neg32, opcode.Neg64:
		return true
	}
	return false
}

func isStoreFamily(op opcode.Opcode) bool {
	switch op {
	case opcode.Stw, opcode.Sth, opcode.Stb, opcode.Stdw,
		opcode.Stxw, opcode.Stxh, opcode.Stxb, opcode.Stxdw:
		return true
	}
	return false
}

func isLoadIndexedFamily(op opcode.Opcode) bool {
	switch op {
	case opcode.LdxW, opcode.LdxH, opcode.LdxB, opcode.LdxDW:
		return true
	}
	return false
}

func mnemonicOf(op opcode.Opcode) string {
	return fmt.Sprintf("opcode(%d)", op)
}

// BuildText concatenates every instruction's encoding in AST order,
// returning the `.text` payload plus a debug map of register hints
// keyed by code offset.
func BuildText(instructions []ast.Instruction) ([]byte, map[uint64]RegisterHint, error) {
	var buf bytes.Buffer
	hints := make(map[uint64]RegisterHint)
	for _, inst := range instructions {
		encoded, hint, err := EncodeInstruction(inst)
		if err != nil {
			return nil, nil, fmt.Errorf("offset %d: %w", inst.Offset, err)
		}
		buf.Write(encoded)
		if hint != nil {
			hints[hint.Offset] = *hint
		}
	}
	return buf.Bytes(), hints, nil
}

// BuildRodata concatenates string-literal bytes with no terminator,
// padded to a multiple of 8 (spec.md 4.6).
func BuildRodata(entries []ast.ROData) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e.Str)
	}
	return padTo8(buf.Bytes())
}

func padTo8(b []byte) []byte {
	if rem := len(b) % 8; rem != 0 {
		b = append(b, make([]byte, 8-rem)...)
	}
	return b
}

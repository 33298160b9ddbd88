package section

import (
	"bytes"
	"testing"

	"github.com/deanmlittle/sbpf/internal/ast"
	"github.com/deanmlittle/sbpf/internal/diag"
	"github.com/deanmlittle/sbpf/internal/opcode"
	"github.com/deanmlittle/sbpf/internal/token"
)

func TestEncodeExit(t *testing.T) {
	inst := ast.NewInstruction(diag.Span{}, opcode.Exit, nil, 0)
	got, hint, err := EncodeInstruction(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x95, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("exit encoding = % x, want % x", got, want)
	}
	if hint != nil {
		t.Errorf("exit should not produce a debug hint")
	}
}

func TestEncodeMov64Imm(t *testing.T) {
	inst := ast.NewInstruction(diag.Span{}, opcode.Mov64Imm, []token.Token{
		{Type: token.Register, RegNum: 1},
		{Type: token.Immediate, ImmKind: token.Int, ImmVal: 42},
	}, 0)
	got, hint, err := EncodeInstruction(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0xb7, 0x01, 0, 0, 42, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("mov64 encoding = % x, want % x", got, want)
	}
	if hint != nil {
		t.Errorf("an Int-kind immediate should not produce a debug hint")
	}
}

func TestEncodeMov64ImmWithAddrHint(t *testing.T) {
	inst := ast.NewInstruction(diag.Span{}, opcode.Mov64Imm, []token.Token{
		{Type: token.Register, RegNum: 2},
		{Type: token.Immediate, ImmKind: token.Addr, ImmVal: 0x100},
	}, 8)
	_, hint, err := EncodeInstruction(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hint == nil || hint.Register != 2 || hint.Offset != 8 {
		t.Errorf("expected a debug hint for register 2 at offset 8, got %+v", hint)
	}
}

func TestEncodeAdd64Reg(t *testing.T) {
	inst := ast.NewInstruction(diag.Span{}, opcode.Add64Reg, []token.Token{
		{Type: token.Register, RegNum: 1},
		{Type: token.Register, RegNum: 3},
	}, 0)
	got, _, err := EncodeInstruction(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// byte 1: low nibble dst=1, high nibble src=3 -> 0x31
	want := []byte{0x0f, 0x31, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("add64 reg encoding = % x, want % x", got, want)
	}
}

func TestEncodeCall(t *testing.T) {
	inst := ast.NewInstruction(diag.Span{}, opcode.Call, []token.Token{
		{Type: token.Identifier, Text: "sol_log_"},
	}, 0)
	got, _, err := EncodeInstruction(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x85, 0x10, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("call encoding = % x, want % x", got, want)
	}
}

func TestEncodeLddw(t *testing.T) {
	inst := ast.NewInstruction(diag.Span{}, opcode.Lddw, []token.Token{
		{Type: token.Register, RegNum: 4},
		{Type: token.Immediate, ImmKind: token.Addr, ImmVal: 0x0102030405},
	}, 0)
	got, hint, err := EncodeInstruction(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("expected 16-byte encoding, got %d", len(got))
	}
	if got[0] != 0x18 || got[1] != 4 {
		t.Errorf("unexpected header bytes: % x", got[:2])
	}
	want := []byte{0x18, 0x04, 0, 0, 0x05, 0x04, 0x03, 0x02, 0, 0, 0, 0, 0x01, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("lddw encoding = % x, want % x", got, want)
	}
	if hint == nil || hint.Register != 4 {
		t.Errorf("expected an Addr debug hint for register 4, got %+v", hint)
	}
}

func TestEncodeStxw(t *testing.T) {
	inst := ast.NewInstruction(diag.Span{}, opcode.Stxw, []token.Token{
		{Type: token.Register, RegNum: 10},
		{Type: token.Immediate, ImmKind: token.Int, ImmVal: -8},
		{Type: token.Register, RegNum: 1},
	}, 0)
	got, _, err := EncodeInstruction(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// byte 1: low nibble base=10(0xa), high nibble src=1 -> 0x1a
	if got[0] != 0x63 || got[1] != 0x1a {
		t.Errorf("stxw encoding = % x", got)
	}
	// bytes 2-3: -8 as i16 LE = 0xFFF8
	if got[2] != 0xF8 || got[3] != 0xFF {
		t.Errorf("expected offset -8, got % x", got[2:4])
	}
}

func TestBuildTextConcatenatesInOrder(t *testing.T) {
	instructions := []ast.Instruction{
		ast.NewInstruction(diag.Span{}, opcode.Mov64Imm, []token.Token{
			{Type: token.Register, RegNum: 0},
			{Type: token.Immediate, ImmKind: token.Int, ImmVal: 1},
		}, 0),
		ast.NewInstruction(diag.Span{}, opcode.Exit, nil, 8),
	}
	text, hints, err := BuildText(instructions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(text) != 16 {
		t.Fatalf("expected 16 bytes total, got %d", len(text))
	}
	if len(hints) != 0 {
		t.Errorf("expected no debug hints, got %+v", hints)
	}
}

func TestBuildRodataPadsToEight(t *testing.T) {
	entries := []ast.ROData{
		ast.NewROData(diag.Span{}, "msg", "hi", 0),
	}
	got := BuildRodata(entries)
	if len(got)%8 != 0 {
		t.Errorf("expected rodata padded to a multiple of 8, got length %d", len(got))
	}
	if !bytes.HasPrefix(got, []byte("hi")) {
		t.Errorf("expected payload to start with the literal bytes, got % x", got)
	}
}

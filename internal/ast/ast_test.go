package ast

import (
	"testing"

	"github.com/deanmlittle/sbpf/internal/diag"
	"github.com/deanmlittle/sbpf/internal/opcode"
	"github.com/deanmlittle/sbpf/internal/token"
)

func TestInstructionSize(t *testing.T) {
	lddw := NewInstruction(diag.Span{}, opcode.Lddw, nil, 0)
	if lddw.Size() != 16 {
		t.Errorf("lddw size = %d, want 16", lddw.Size())
	}
	exit := NewInstruction(diag.Span{}, opcode.Exit, nil, 0)
	if exit.Size() != 8 {
		t.Errorf("exit size = %d, want 8", exit.Size())
	}
}

func TestNeedsRelocationCall(t *testing.T) {
	call := NewInstruction(diag.Span{}, opcode.Call, []token.Token{{Type: token.Identifier, Text: "sol_log_"}}, 0)
	if !call.NeedsRelocation() {
		t.Errorf("expected call to always need relocation")
	}
	typ, name := call.RelocationInfo()
	if typ != RSbfSyscall || name != "sol_log_" {
		t.Errorf("got %v %q, want RSbfSyscall \"sol_log_\"", typ, name)
	}
}

func TestNeedsRelocationLddwUnresolved(t *testing.T) {
	lddw := NewInstruction(diag.Span{}, opcode.Lddw, []token.Token{
		{Type: token.Register, RegNum: 1},
		{Type: token.Identifier, Text: "msg"},
	}, 0)
	if !lddw.NeedsRelocation() {
		t.Errorf("expected an lddw with an unresolved label operand to need relocation")
	}
	typ, name := lddw.RelocationInfo()
	if typ != RSbf64Relative || name != "msg" {
		t.Errorf("got %v %q, want RSbf64Relative \"msg\"", typ, name)
	}
}

func TestNeedsRelocationLddwResolvedImmediate(t *testing.T) {
	lddw := NewInstruction(diag.Span{}, opcode.Lddw, []token.Token{
		{Type: token.Register, RegNum: 1},
		{Type: token.Immediate, ImmKind: token.Addr, ImmVal: 256},
	}, 0)
	if lddw.NeedsRelocation() {
		t.Errorf("a fully-resolved lddw immediate should not need relocation")
	}
}

func TestRodataSizeHasNoTerminator(t *testing.T) {
	entry := NewROData(diag.Span{}, "msg", "hi", 0)
	if entry.Size() != 2 {
		t.Errorf("expected size 2 (no NUL terminator), got %d", entry.Size())
	}
}

package parser

import (
	"strings"
	"testing"

	"github.com/deanmlittle/sbpf/internal/diag"
	"github.com/deanmlittle/sbpf/internal/opcode"
	"github.com/deanmlittle/sbpf/internal/token"
)

func parseSource(t *testing.T, src string) (Result, *diag.Collector) {
	t.Helper()
	diags := diag.NewCollector("test.s")
	toks := token.New(src, diags).Tokenize()
	if diags.HasErrors() {
		t.Fatalf("lex errors: %s", diags.Report(false))
	}
	return Parse(toks, diags), diags
}

func TestMinimalHelloIsStaticWithSingleExit(t *testing.T) {
	result, diags := parseSource(t, ".global entry\nentry:\n  exit\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Report(false))
	}
	if !result.ProgIsStatic {
		t.Errorf("expected a static program (no calls, no lddw-to-label)")
	}
	if !result.HasEntry || result.EntryLabel != "entry" || result.EntryOffset != 0 {
		t.Errorf("expected entry at offset 0, got %+v", result)
	}
	if len(result.Instructions) != 1 || result.Instructions[0].Opcode != opcode.Exit {
		t.Fatalf("expected a single exit instruction, got %+v", result.Instructions)
	}
	if result.CodeSize != 8 {
		t.Errorf("expected code size 8, got %d", result.CodeSize)
	}
}

func TestConstantFolding(t *testing.T) {
	result, diags := parseSource(t, ".equ FOO, 10\nmov64 r1, FOO + 5\nexit\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Report(false))
	}
	inst := result.Instructions[0]
	if inst.Opcode != opcode.Mov64Imm {
		t.Fatalf("expected Mov64Imm, got %v", inst.Opcode)
	}
	imm := inst.Operands[1]
	if imm.Type != token.Immediate || imm.ImmVal != 15 {
		t.Errorf("expected folded immediate 15, got %+v", imm)
	}
}

func TestStoreOffsetFolds(t *testing.T) {
	result, diags := parseSource(t, ".equ BASE, 4\nstxw [r1 + BASE+4], r2\nexit\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Report(false))
	}
	inst := result.Instructions[0]
	if inst.Opcode != opcode.Stxw {
		t.Fatalf("expected Stxw, got %v", inst.Opcode)
	}
	if inst.Operands[0].RegNum != 1 {
		t.Errorf("expected base register r1, got %+v", inst.Operands[0])
	}
	offset := inst.Operands[1]
	if offset.Type != token.Immediate || offset.ImmVal != 8 {
		t.Errorf("expected folded offset 8, got %+v", offset)
	}
	if inst.Operands[2].RegNum != 2 {
		t.Errorf("expected source register r2, got %+v", inst.Operands[2])
	}
}

func TestArithmeticRegisterFallback(t *testing.T) {
	result, diags := parseSource(t, "add64 r1, r2\nexit\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Report(false))
	}
	inst := result.Instructions[0]
	if inst.Opcode != opcode.Add64Reg {
		t.Fatalf("expected Add64Reg, got %v", inst.Opcode)
	}
	if inst.Operands[0].RegNum != 1 || inst.Operands[1].RegNum != 2 {
		t.Errorf("unexpected operands: %+v", inst.Operands)
	}
}

func TestJumpLabelResolvesToRelativeOffset(t *testing.T) {
	result, diags := parseSource(t, "loop:\n  jeq r1, 0, loop\n  exit\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Report(false))
	}
	jmp := result.Instructions[0]
	target := jmp.Operands[2]
	if target.Type != token.Immediate {
		t.Fatalf("expected resolved immediate jump target, got %+v", target)
	}
	// loop is at offset 0, instruction is at offset 0: (0-0)/8 - 1 == -1
	if target.ImmVal != -1 {
		t.Errorf("expected relative offset -1, got %d", target.ImmVal)
	}
}

func TestLddwLabelResolvesToAbsoluteAddress(t *testing.T) {
	result, diags := parseSource(t, ".rodata\nmsg: .ascii \"hi\"\n.equ unused, 0\nlddw r1, msg\nexit\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Report(false))
	}
	inst := result.Instructions[0]
	imm := inst.Operands[1]
	if imm.Type != token.Immediate || imm.ImmKind != token.Addr {
		t.Fatalf("expected resolved Addr immediate, got %+v", imm)
	}
	if result.ProgIsStatic {
		t.Fatalf("an lddw referencing a label requires a relocation, so the program must be dynamic")
	}
	// dynamic program: ph_count = 3, phOffset = 64 + 3*56 = 232; msg
	// sits at rodata offset 0 (no code parsed yet when its label is seen).
	want := int64(0 + 232)
	if imm.ImmVal != want {
		t.Errorf("expected lddw target %d, got %d", want, imm.ImmVal)
	}
}

func TestCallMarksProgramDynamic(t *testing.T) {
	result, diags := parseSource(t, "call sol_log_\nexit\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Report(false))
	}
	if result.ProgIsStatic {
		t.Errorf("expected a call to mark the program dynamic")
	}
	if len(result.CallTargets) != 1 || result.CallTargets[0].Name != "sol_log_" {
		t.Fatalf("expected one call target, got %+v", result.CallTargets)
	}
	if len(result.Relocations) != 1 {
		t.Fatalf("expected one relocation, got %+v", result.Relocations)
	}
}

func TestDuplicateCallTargetDeduped(t *testing.T) {
	result, diags := parseSource(t, "call sol_log_\ncall sol_log_\nexit\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Report(false))
	}
	if len(result.CallTargets) != 1 {
		t.Errorf("expected a deduped call target list, got %+v", result.CallTargets)
	}
	if len(result.Relocations) != 2 {
		t.Errorf("expected one relocation per call site, got %d", len(result.Relocations))
	}
}

func TestUnsupportedOpcodeRejected(t *testing.T) {
	diags := diag.NewCollector("test.s")
	toks := token.New("be32 r1\nexit\n", diags).Tokenize()
	Parse(toks, diags)
	if !diags.HasErrors() {
		t.Fatalf("expected an error for the unsupported be32 opcode")
	}
}

func TestInvalidInstructionShapeReported(t *testing.T) {
	diags := diag.NewCollector("test.s")
	toks := token.New("add64 r1\nexit\n", diags).Tokenize()
	Parse(toks, diags)
	if !diags.HasErrors() {
		t.Fatalf("expected an error for add64 with a missing operand")
	}
}

func TestUnknownMnemonicSuggestsNearestMatch(t *testing.T) {
	diags := diag.NewCollector("test.s")
	toks := token.New("mov64r r0, 0\nexit\n", diags).Tokenize()
	Parse(toks, diags)
	if !diags.HasErrors() {
		t.Fatalf("expected an error for the unknown mnemonic mov64r")
	}
	found := false
	for _, e := range diags.Errors() {
		if strings.Contains(e.Message, `did you mean "mov64"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a did-you-mean suggestion pointing at mov64, got %+v", diags.Errors())
	}
}

package ws

import (
	"math/big"
	"strings"
	"testing"
)

const countdownAsm = `
push 3
loop:
  dup
  jz done
  dup
  printi
  push 1
  sub
  jmp loop
done:
  end
`

func TestAssembleCountdown(t *testing.T) {
	insts, err := Assemble(countdownAsm)
	if err != nil {
		t.Fatalf("assemble error: %v", err)
	}
	wantOps := []Opcode{Push, Label, Dup, Jz, Dup, Printi, Push, Sub, Jmp, Label, End}
	if len(insts) != len(wantOps) {
		t.Fatalf("got %d instructions, want %d", len(insts), len(wantOps))
	}
	for i, op := range wantOps {
		if insts[i].Op != op {
			t.Errorf("inst %d = %v, want %v", i, insts[i].Op, op)
		}
	}

	// loop and done intern to distinct labels; references match definitions.
	if insts[1].Label == insts[9].Label {
		t.Error("distinct label names interned to the same pattern")
	}
	if insts[8].Label != insts[1].Label {
		t.Errorf("jmp target %q, want %q", insts[8].Label, insts[1].Label)
	}
	if insts[3].Label != insts[9].Label {
		t.Errorf("jz target %q, want %q", insts[3].Label, insts[9].Label)
	}
}

func TestAssembleErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unknown mnemonic", "frobnicate"},
		{"missing operand", "push"},
		{"extra operand", "dup 3"},
		{"bad integer", "push ten"},
		{"missing label", "jmp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if _, ok := err.(*AssembleError); !ok {
				t.Errorf("error type = %T, want *AssembleError", err)
			}
		})
	}
}

func TestAssembleComments(t *testing.T) {
	insts, err := Assemble("push 1 ; trailing\n# whole line\n  end")
	if err != nil {
		t.Fatalf("assemble error: %v", err)
	}
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
}

func TestEmitTokensRoundTrip(t *testing.T) {
	insts, err := Assemble(countdownAsm)
	if err != nil {
		t.Fatalf("assemble error: %v", err)
	}
	toks := EmitTokens(insts)
	back, err := ParseAll(NewParseTable(AllFeatures), NewTokenLexer(toks))
	if err != nil {
		t.Fatalf("reparse error: %v", err)
	}
	if len(back) != len(insts) {
		t.Fatalf("round trip: got %d instructions, want %d", len(back), len(insts))
	}
	for i := range insts {
		if back[i].Op != insts[i].Op {
			t.Errorf("inst %d = %v, want %v", i, back[i].Op, insts[i].Op)
		}
		if insts[i].Op.Arg() == ArgLabel && back[i].Label != insts[i].Label {
			t.Errorf("inst %d label = %q, want %q", i, back[i].Label, insts[i].Label)
		}
		if insts[i].Op.Arg() == ArgInt && back[i].Arg.Cmp(insts[i].Arg) != 0 {
			t.Errorf("inst %d arg = %v, want %v", i, back[i].Arg, insts[i].Arg)
		}
	}
}

func TestEmitTextRoundTrip(t *testing.T) {
	insts := []Inst{
		{Op: Push, Arg: big.NewInt(-42)},
		{Op: Printi},
		{Op: End},
	}
	text := EmitText(insts, DefaultMapping())
	back, err := ParseAll(NewParseTable(0), NewTextLexer([]byte(text), DefaultMapping()))
	if err != nil {
		t.Fatalf("reparse error: %v", err)
	}
	if len(back) != 3 {
		t.Fatalf("got %d instructions, want 3", len(back))
	}
	if back[0].Arg.Cmp(big.NewInt(-42)) != 0 {
		t.Errorf("arg = %v, want -42", back[0].Arg)
	}
}

func TestDisassemble(t *testing.T) {
	insts, err := Assemble("push 7\nprinti\nend")
	if err != nil {
		t.Fatalf("assemble error: %v", err)
	}
	out := Disassemble(insts)
	for _, want := range []string{"push 7", "printi", "end"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

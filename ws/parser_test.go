package ws

import (
	"math/big"
	"testing"
)

var (
	S = Space
	T = Tab
	L = LF
)

func parseTokens(t *testing.T, features Features, toks []Token) []Inst {
	t.Helper()
	insts, err := ParseAll(NewParseTable(features), NewTokenLexer(toks))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return insts
}

func TestParsePushAddPrinti(t *testing.T) {
	// push 3; push 4; add; printi; end
	toks := []Token{
		S, S, S, T, T, L,
		S, S, S, T, S, S, L,
		T, S, S, S,
		T, L, S, T,
		L, L, L,
	}
	insts := parseTokens(t, 0, toks)
	if len(insts) != 5 {
		t.Fatalf("got %d instructions, want 5", len(insts))
	}
	wantOps := []Opcode{Push, Push, Add, Printi, End}
	for i, op := range wantOps {
		if insts[i].Op != op {
			t.Errorf("inst %d = %v, want %v", i, insts[i].Op, op)
		}
	}
	if insts[0].Arg.Cmp(big.NewInt(3)) != 0 {
		t.Errorf("push arg = %v, want 3", insts[0].Arg)
	}
	if insts[1].Arg.Cmp(big.NewInt(4)) != 0 {
		t.Errorf("push arg = %v, want 4", insts[1].Arg)
	}
}

func TestParseNegativeAndZeroLiterals(t *testing.T) {
	// push -5; push 0 (empty bits); push 0 (explicit zero bit)
	toks := []Token{
		S, S, T, T, S, T, L,
		S, S, L,
		S, S, S, S, L,
	}
	insts := parseTokens(t, 0, toks)
	if insts[0].Arg.Cmp(big.NewInt(-5)) != 0 {
		t.Errorf("arg = %v, want -5", insts[0].Arg)
	}
	if insts[1].Arg.Sign() != 0 {
		t.Errorf("empty literal = %v, want 0", insts[1].Arg)
	}
	if insts[2].Arg.Sign() != 0 {
		t.Errorf("zero literal = %v, want 0", insts[2].Arg)
	}
}

func TestParseLabelBitsPreserved(t *testing.T) {
	// Labels 01 and 1 denote the same number but are distinct labels.
	toks := []Token{
		L, S, S, S, T, L, // label 01
		L, S, S, T, L, // label 1
	}
	insts := parseTokens(t, 0, toks)
	if insts[0].Label != "01" {
		t.Errorf("label bits = %q, want %q", insts[0].Label, "01")
	}
	if insts[1].Label != "1" {
		t.Errorf("label bits = %q, want %q", insts[1].Label, "1")
	}
	if insts[0].Label == insts[1].Label {
		t.Error("labels with different leading zeros must stay distinct")
	}
}

func TestParseUnknownOpcode(t *testing.T) {
	// T L L L is no instruction prefix.
	_, err := ParseAll(NewParseTable(0), NewTokenLexer([]Token{T, L, L, L}))
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error = %v (%T), want *ParseError", err, err)
	}
	if pe.Kind != UnknownOpcode {
		t.Errorf("kind = %v, want UnknownOpcode", pe.Kind)
	}
}

func TestParseIncompleteInst(t *testing.T) {
	// T S is a valid prefix (arithmetic) but the stream ends.
	_, err := ParseAll(NewParseTable(0), NewTokenLexer([]Token{T, S}))
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error = %v (%T), want *ParseError", err, err)
	}
	if pe.Kind != IncompleteInst {
		t.Errorf("kind = %v, want IncompleteInst", pe.Kind)
	}
	if len(pe.Candidates) == 0 {
		t.Error("expected candidate opcodes for the prefix")
	}
}

func TestParseUnterminatedArg(t *testing.T) {
	// push with bits but no closing LF.
	_, err := ParseAll(NewParseTable(0), NewTokenLexer([]Token{S, S, S, T}))
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error = %v (%T), want *ParseError", err, err)
	}
	if pe.Kind != UnterminatedArg {
		t.Errorf("kind = %v, want UnterminatedArg", pe.Kind)
	}
	if pe.Op != Push {
		t.Errorf("op = %v, want Push", pe.Op)
	}
}

func TestFeatureGatingCopy(t *testing.T) {
	// copy 1: S T S, then the literal.
	toks := []Token{S, T, S, S, T, L}

	if _, err := ParseAll(NewParseTable(0), NewTokenLexer(toks)); err == nil {
		t.Error("copy parsed without the wspace 0.3 feature")
	}

	insts := parseTokens(t, Features(0).With(FeatWspace03), toks)
	if len(insts) != 1 || insts[0].Op != Copy {
		t.Fatalf("got %v, want [copy]", insts)
	}
	if insts[0].Arg.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("copy arg = %v, want 1", insts[0].Arg)
	}
}

func TestDetectFeatures(t *testing.T) {
	insts := []Inst{
		{Op: Push, Arg: big.NewInt(1)},
		{Op: Slide, Arg: big.NewInt(1)},
		{Op: DumpHeap},
		{Op: End},
	}
	feats := DetectFeatures(insts)
	if !feats.Contains(FeatWspace03) {
		t.Error("slide should imply wspace 0.3")
	}
	if !feats.Contains(FeatDumpStackHeap) {
		t.Error("dumpheap should imply the dump extension")
	}
	if feats.Contains(FeatDumpTrace) {
		t.Error("dumptrace not present")
	}
}

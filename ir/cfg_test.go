package ir

import (
	"testing"

	"github.com/tundra-lang/tundra/ws"
)

func mustAssemble(t *testing.T, src string) []ws.Inst {
	t.Helper()
	insts, err := ws.Assemble(src)
	if err != nil {
		t.Fatalf("assemble error: %v", err)
	}
	return insts
}

func compile(t *testing.T, src string, optimize bool) *Program {
	t.Helper()
	p, err := Compile(mustAssemble(t, src), CompileOptions{Optimize: optimize})
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return p
}

func compileErr(t *testing.T, src string) *MalformedError {
	t.Helper()
	p, err := Compile(mustAssemble(t, src), CompileOptions{})
	if err == nil {
		t.Fatalf("expected compile error, got program:\n%s", p)
	}
	me, ok := err.(*MalformedError)
	if !ok {
		t.Fatalf("error type = %T, want *MalformedError", err)
	}
	if p != nil {
		t.Error("partial program returned alongside error")
	}
	return me
}

func TestCFGStraightLine(t *testing.T) {
	p := compile(t, "push 1\npush 2\nadd\nprinti\nend", false)
	if len(p.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(p.Blocks))
	}
	if p.Blocks[p.Entry].Term.Kind != TermEnd {
		t.Errorf("terminator = %v, want end", p.Blocks[p.Entry].Term.Kind)
	}
}

func TestCFGSplitsAtLabels(t *testing.T) {
	p := compile(t, "push 1\njmp skip\nskip:\ndrop\nend", false)
	entry := p.Blocks[p.Entry]
	if entry.Term.Kind != TermJmp {
		t.Fatalf("entry terminator = %v, want jmp", entry.Term.Kind)
	}
	target := p.Blocks[entry.Term.Succs[0]]
	if target.Term.Kind != TermEnd {
		t.Errorf("target terminator = %v, want end", target.Term.Kind)
	}
	if len(target.Preds) != 1 || target.Preds[0] != entry.ID {
		t.Errorf("target preds = %v, want [%d]", target.Preds, entry.ID)
	}
}

func TestCFGConditionalEdges(t *testing.T) {
	p := compile(t, "push 1\njz zero\npush 10\nprinti\nend\nzero:\nend", false)
	entry := p.Blocks[p.Entry]
	if entry.Term.Kind != TermJz {
		t.Fatalf("entry terminator = %v, want jz", entry.Term.Kind)
	}
	if len(entry.Term.Succs) != 2 {
		t.Fatalf("jz successors = %v, want 2", entry.Term.Succs)
	}
	taken := p.Blocks[entry.Term.Succs[0]]
	if taken.Label == "" {
		t.Error("taken successor should be the labeled block")
	}
}

func TestCFGEntryLabel(t *testing.T) {
	p := compile(t, "start:\npush 1\nprinti\njmp start", false)
	entry := p.Blocks[p.Entry]
	if entry.Label == "" {
		t.Fatal("a label at the program start should name the entry block")
	}
	if id, ok := p.LabelBlock(entry.Label); !ok || id != p.Entry {
		t.Errorf("LabelBlock(%q) = %d, %v, want entry", entry.Label, id, ok)
	}
}

func TestCFGImplicitHaltAtStreamEnd(t *testing.T) {
	p := compile(t, "push 1\nprinti", false)
	if p.Blocks[p.Entry].Term.Kind != TermEnd {
		t.Errorf("terminator = %v, want implicit end", p.Blocks[p.Entry].Term.Kind)
	}
}

func TestCFGDuplicateLabel(t *testing.T) {
	me := compileErr(t, "a:\nend\na:\nend")
	if me.Kind != DuplicateLabel {
		t.Errorf("kind = %v, want DuplicateLabel", me.Kind)
	}
}

func TestCFGUndefinedLabel(t *testing.T) {
	me := compileErr(t, "jmp nowhere")
	if me.Kind != UndefinedLabel {
		t.Errorf("kind = %v, want UndefinedLabel", me.Kind)
	}
}

func TestCFGDistinctLabelBitPatterns(t *testing.T) {
	// Labels 1 and 01 have the same numeric value but different patterns;
	// both definitions must be accepted as distinct.
	insts := []ws.Inst{
		{Op: ws.Label, Label: "1"},
		{Op: ws.End},
		{Op: ws.Label, Label: "01"},
		{Op: ws.End},
	}
	if _, err := Compile(insts, CompileOptions{}); err != nil {
		t.Fatalf("compile error: %v", err)
	}

	dup := []ws.Inst{
		{Op: ws.Label, Label: "1"},
		{Op: ws.End},
		{Op: ws.Label, Label: "1"},
		{Op: ws.End},
	}
	if _, err := Compile(dup, CompileOptions{}); err == nil {
		t.Fatal("identical bit patterns must be rejected as duplicates")
	}
}

func TestCFGUnreachableTailSkipped(t *testing.T) {
	// The instructions after jmp and before the next label never run and
	// must not affect compilation (they would otherwise underflow).
	p := compile(t, "jmp over\nadd\nprinti\nover:\nend", false)
	for _, b := range p.Blocks {
		if len(b.Body) != 0 {
			t.Errorf("block @%d has body %v, want none", b.ID, b.Body)
		}
	}
}

func TestCFGShuffleRejected(t *testing.T) {
	insts := []ws.Inst{{Op: ws.Shuffle}, {Op: ws.End}}
	_, err := Compile(insts, CompileOptions{})
	me, ok := err.(*MalformedError)
	if !ok {
		t.Fatalf("error = %v (%T), want *MalformedError", err, err)
	}
	if me.Kind != UnsupportedInst {
		t.Errorf("kind = %v, want UnsupportedInst", me.Kind)
	}
}

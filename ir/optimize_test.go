package ir

import (
	"math/big"
	"testing"
)

func TestFoldAdd(t *testing.T) {
	p := compile(t, "push 3\npush 4\nadd\nprinti\nend", true)
	pr := findOp(t, p, OpPrinti)
	if got := constOf(t, p, pr.Args[0]); got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("folded value = %v, want 7", got)
	}
	for _, b := range p.Blocks {
		for _, id := range b.Body {
			if p.Values[id].Op == OpAdd {
				t.Error("add survived constant folding")
			}
		}
	}
}

func TestFoldFlooredDivMod(t *testing.T) {
	p := compile(t, "push -7\npush 2\ndiv\nprinti\npush -7\npush 2\nmod\nprinti\nend", true)
	var got []string
	for _, b := range p.Blocks {
		for _, id := range b.Body {
			v := p.Values[id]
			if v.Op == OpPrinti {
				got = append(got, constOf(t, p, v.Args[0]).String())
			}
		}
	}
	if len(got) != 2 || got[0] != "-4" || got[1] != "1" {
		t.Errorf("folded div/mod = %v, want [-4 1]", got)
	}
}

func TestFoldNeverRemovesDivByZero(t *testing.T) {
	p := compile(t, "push 1\npush 0\ndiv\nprinti\nend", true)
	findOp(t, p, OpDiv) // must survive; the fault is observable
}

func TestFoldDeadDivByZeroKept(t *testing.T) {
	// Result unused; the operation still faults and must not be removed as
	// dead.
	p := compile(t, "push 1\npush 0\ndiv\ndrop\nend", true)
	findOp(t, p, OpDiv)
}

func TestFoldBranch(t *testing.T) {
	// jz on a literal zero always takes the branch; the other arm is
	// removed entirely.
	src := `
push 0
jz a
push 10
printi
jmp m
a:
push 20
printi
jmp m
m:
end
`
	p := compile(t, src, true)
	var printed []string
	for _, b := range p.Blocks {
		if b.Term.Kind == TermJz || b.Term.Kind == TermJn {
			t.Errorf("conditional branch survived folding in block @%d", b.ID)
		}
		for _, id := range b.Body {
			v := p.Values[id]
			if v.Op == OpPrinti {
				printed = append(printed, constOf(t, p, v.Args[0]).String())
			}
		}
	}
	if len(printed) != 1 || printed[0] != "20" {
		t.Errorf("printed literals = %v, want [20]", printed)
	}
}

func TestOptimizeRemovesTrivialPhis(t *testing.T) {
	// Both arms deliver the same literal; the merge phi is trivial.
	src := `
push 1
push 0
jz a
jmp m
a:
jmp m
m:
printi
end
`
	p := compile(t, src, true)
	for _, b := range p.Blocks {
		if len(b.Phis) != 0 {
			t.Errorf("block @%d kept phis %v", b.ID, b.Phis)
		}
	}
	pr := findOp(t, p, OpPrinti)
	if got := constOf(t, p, pr.Args[0]); got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("printi arg = %v, want 1", got)
	}
}

func TestOptimizeRemovesDeadValues(t *testing.T) {
	// The duplicated sum is dropped unused.
	p := compile(t, "push 2\npush 3\nadd\ndup\ndrop\nprinti\nend", true)
	for _, b := range p.Blocks {
		for _, id := range b.Body {
			if v := p.Values[id]; v.Op != OpPrinti {
				t.Errorf("unexpected surviving value v%d = %v", id, v.Op)
			}
		}
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	for _, src := range []string{
		"push 3\npush 4\nadd\nprinti\nend",
		countdownSrc,
		"push 0\njz a\npush 1\nprinti\njmp m\na:\npush 2\nprinti\njmp m\nm:\nend",
	} {
		p := compile(t, src, true)
		before := p.String()
		Optimize(p)
		if after := p.String(); after != before {
			t.Errorf("second optimize changed the program:\nbefore:\n%s\nafter:\n%s", before, after)
		}
	}
}

func TestOptimizePrunesUnreachableArm(t *testing.T) {
	src := `
push 1
jz dead
jmp live
dead:
push 0
printi
jmp live
live:
end
`
	p := compile(t, src, true)
	for _, b := range p.Blocks {
		for _, id := range b.Body {
			if p.Values[id].Op == OpPrinti {
				t.Error("unreachable arm survived pruning")
			}
		}
	}
}

func TestFloorDivMod(t *testing.T) {
	cases := []struct {
		x, y, q, r int64
	}{
		{7, 2, 3, 1},
		{-7, 2, -4, 1},
		{7, -2, -4, -1},
		{-7, -2, 3, -1},
		{6, 3, 2, 0},
		{-6, 3, -2, 0},
		{0, 5, 0, 0},
	}
	for _, tc := range cases {
		x, y := big.NewInt(tc.x), big.NewInt(tc.y)
		if q := FloorDiv(x, y); q.Cmp(big.NewInt(tc.q)) != 0 {
			t.Errorf("FloorDiv(%d, %d) = %v, want %d", tc.x, tc.y, q, tc.q)
		}
		if r := FloorMod(x, y); r.Cmp(big.NewInt(tc.r)) != 0 {
			t.Errorf("FloorMod(%d, %d) = %v, want %d", tc.x, tc.y, r, tc.r)
		}
	}
}

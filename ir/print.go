package ir

import (
	"fmt"
	"strings"

	"github.com/tundra-lang/tundra/ws"
)

// ---------------------------------------------------------------------------
// Textual IR dump
// ---------------------------------------------------------------------------

// String renders the program in a readable SSA listing, one block per
// paragraph. Intended for diagnostics; the format is not parsed back.
func (p *Program) String() string {
	var sb strings.Builder
	for _, b := range p.Blocks {
		p.writeBlock(&sb, b)
	}
	return sb.String()
}

func (p *Program) writeBlock(sb *strings.Builder, b *Block) {
	fmt.Fprintf(sb, "block @%d", b.ID)
	if b.ID == p.Entry {
		sb.WriteString(" (entry)")
	}
	if b.Label != "" {
		fmt.Fprintf(sb, " (label %s)", ws.LabelNumber(b.Label))
	}
	if len(b.Preds) > 0 {
		sb.WriteString(" ; preds:")
		for _, pr := range b.Preds {
			fmt.Fprintf(sb, " @%d", pr)
		}
	}
	sb.WriteByte('\n')

	for _, id := range b.Phis {
		v := p.Values[id]
		fmt.Fprintf(sb, "  v%d = phi", id)
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(sb, " %s", p.operand(a))
		}
		sb.WriteByte('\n')
	}
	for _, id := range b.Body {
		v := p.Values[id]
		sb.WriteString("  ")
		if v.Op.Defines() {
			fmt.Fprintf(sb, "v%d = ", id)
		}
		sb.WriteString(v.Op.String())
		for _, a := range v.Args {
			fmt.Fprintf(sb, " %s", p.operand(a))
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("  ")
	sb.WriteString(b.Term.Kind.String())
	if b.Term.Cond != NoValue {
		fmt.Fprintf(sb, " %s", p.operand(b.Term.Cond))
	}
	for _, s := range b.Term.Succs {
		fmt.Fprintf(sb, " @%d", s)
	}
	sb.WriteString("\n\n")
}

// operand renders a value reference, inlining literals.
func (p *Program) operand(id ValueID) string {
	v := p.Values[id]
	if v.Op == OpConst {
		return v.Num.String()
	}
	return fmt.Sprintf("v%d", id)
}

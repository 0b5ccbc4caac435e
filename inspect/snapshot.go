// Package inspect builds structured, serializable views of compiled
// programs for tooling.
package inspect

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tundra-lang/tundra/ir"
	"github.com/tundra-lang/tundra/ws"
)

// ProgramSnapshot is a self-contained view of a compiled program. It
// carries no pointers back into the program, so it can be serialized
// and inspected after the program itself is gone.
type ProgramSnapshot struct {
	ID     string          `cbor:"id" json:"id"`
	Entry  int32           `cbor:"entry" json:"entry"`
	Blocks []BlockSnapshot `cbor:"blocks" json:"blocks"`
}

// BlockSnapshot is one basic block in snapshot form.
type BlockSnapshot struct {
	ID    int32           `cbor:"id" json:"id"`
	Label string          `cbor:"label,omitempty" json:"label,omitempty"`
	Preds []int32         `cbor:"preds,omitempty" json:"preds,omitempty"`
	Phis  []ValueSnapshot `cbor:"phis,omitempty" json:"phis,omitempty"`
	Body  []ValueSnapshot `cbor:"body,omitempty" json:"body,omitempty"`
	Term  TermSnapshot    `cbor:"term" json:"term"`
}

// ValueSnapshot is one SSA value in snapshot form. Num is the decimal
// text of the literal for constants and empty otherwise.
type ValueSnapshot struct {
	ID   int32   `cbor:"id" json:"id"`
	Op   string  `cbor:"op" json:"op"`
	Num  string  `cbor:"num,omitempty" json:"num,omitempty"`
	Args []int32 `cbor:"args,omitempty" json:"args,omitempty"`
	Pos  string  `cbor:"pos,omitempty" json:"pos,omitempty"`
}

// TermSnapshot is a block terminator in snapshot form.
type TermSnapshot struct {
	Kind  string  `cbor:"kind" json:"kind"`
	Cond  int32   `cbor:"cond,omitempty" json:"cond,omitempty"`
	Succs []int32 `cbor:"succs,omitempty" json:"succs,omitempty"`
}

// Snapshot captures a compiled program. Each snapshot gets a fresh ID so
// tooling can correlate snapshots across encode/decode round trips.
func Snapshot(p *ir.Program) *ProgramSnapshot {
	snap := &ProgramSnapshot{
		ID:     uuid.NewString(),
		Entry:  int32(p.Entry),
		Blocks: make([]BlockSnapshot, 0, len(p.Blocks)),
	}
	for _, b := range p.Blocks {
		snap.Blocks = append(snap.Blocks, snapshotBlock(p, b))
	}
	return snap
}

func snapshotBlock(p *ir.Program, b *ir.Block) BlockSnapshot {
	bs := BlockSnapshot{ID: int32(b.ID)}
	if b.Label != "" {
		bs.Label = ws.LabelNumber(b.Label).String()
	}
	for _, pr := range b.Preds {
		bs.Preds = append(bs.Preds, int32(pr))
	}
	for _, id := range b.Phis {
		bs.Phis = append(bs.Phis, snapshotValue(p.Value(id)))
	}
	for _, id := range b.Body {
		bs.Body = append(bs.Body, snapshotValue(p.Value(id)))
	}
	bs.Term = TermSnapshot{Kind: b.Term.Kind.String(), Cond: int32(b.Term.Cond)}
	for _, s := range b.Term.Succs {
		bs.Term.Succs = append(bs.Term.Succs, int32(s))
	}
	return bs
}

func snapshotValue(v *ir.Value) ValueSnapshot {
	vs := ValueSnapshot{ID: int32(v.ID), Op: v.Op.String()}
	if v.Num != nil {
		vs.Num = v.Num.String()
	}
	for _, a := range v.Args {
		vs.Args = append(vs.Args, int32(a))
	}
	if v.Pos != (ws.Pos{}) {
		vs.Pos = v.Pos.String()
	}
	return vs
}

// Stats summarizes a snapshot for quick display.
func (s *ProgramSnapshot) Stats() string {
	values := 0
	for _, b := range s.Blocks {
		values += len(b.Phis) + len(b.Body)
	}
	return fmt.Sprintf("%d blocks, %d values, entry @%d", len(s.Blocks), values, s.Entry)
}

package ir

import (
	"math/big"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("tundra.ir")

// ---------------------------------------------------------------------------
// Optimizer pipeline
// ---------------------------------------------------------------------------

// Optimize runs the pass pipeline to a fixed point: constant folding,
// unreachable-block elimination, trivial phi removal, and dead pure-value
// elimination. Running the pipeline on its own output changes nothing.
func Optimize(p *Program) {
	rounds := 0
	for {
		changed := foldConstants(p)
		changed = pruneUnreachableBlocks(p) || changed
		changed = removeTrivialPhis(p) || changed
		changed = removeDeadValues(p) || changed
		rounds++
		if !changed {
			break
		}
	}
	log.Debugf("optimize: fixed point after %d rounds, %d blocks", rounds, len(p.Blocks))
}

// foldConstants replaces arithmetic on literal operands with its result
// and rewrites conditional branches on literal conditions to plain jumps.
// Division and modulo by a literal zero are never folded; the fault is a
// run-time behavior the program is entitled to observe.
func foldConstants(p *Program) bool {
	changed := false
	for _, b := range p.Blocks {
		body := b.Body[:0]
		for _, id := range b.Body {
			v := p.Values[id]
			if folded := p.foldValue(v); folded {
				changed = true
				continue // literal now; drop from body
			}
			body = append(body, id)
		}
		b.Body = body

		if b.Term.Kind == TermJz || b.Term.Kind == TermJn {
			cond := p.Values[b.Term.Cond]
			if cond.Op != OpConst {
				continue
			}
			taken := cond.Num.Sign() == 0
			if b.Term.Kind == TermJn {
				taken = cond.Num.Sign() < 0
			}
			kept, dead := b.Term.Succs[0], b.Term.Succs[1]
			if !taken {
				kept, dead = dead, kept
			}
			p.removeEdge(b.ID, dead)
			b.Term = Term{Kind: TermJmp, Cond: NoValue, Succs: []BlockID{kept}, Pos: b.Term.Pos}
			changed = true
		}
	}
	return changed
}

// foldValue rewrites v into a literal when its operands are literal.
func (p *Program) foldValue(v *Value) bool {
	var x, y *big.Int
	switch v.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		lhs, rhs := p.Values[v.Args[0]], p.Values[v.Args[1]]
		if lhs.Op != OpConst || rhs.Op != OpConst {
			return false
		}
		x, y = lhs.Num, rhs.Num
	default:
		return false
	}

	var n *big.Int
	switch v.Op {
	case OpAdd:
		n = new(big.Int).Add(x, y)
	case OpSub:
		n = new(big.Int).Sub(x, y)
	case OpMul:
		n = new(big.Int).Mul(x, y)
	case OpDiv:
		if y.Sign() == 0 {
			return false
		}
		n = FloorDiv(x, y)
	case OpMod:
		if y.Sign() == 0 {
			return false
		}
		n = FloorMod(x, y)
	}
	v.Op = OpConst
	v.Num = n
	v.Args = nil
	return true
}

// removeEdge deletes one from→to edge: the first matching predecessor
// entry and the order-correlated argument of every phi in to.
func (p *Program) removeEdge(from, to BlockID) {
	tb := p.Blocks[to]
	for i, pr := range tb.Preds {
		if pr != from {
			continue
		}
		tb.Preds = append(tb.Preds[:i], tb.Preds[i+1:]...)
		for _, phi := range tb.Phis {
			pv := p.Values[phi]
			pv.Args = append(pv.Args[:i], pv.Args[i+1:]...)
		}
		return
	}
}

// pruneUnreachableBlocks removes blocks no longer reachable from the
// entry (after folding deleted edges) and the phi operands referring to
// them.
func pruneUnreachableBlocks(p *Program) bool {
	reachable := make([]bool, len(p.Blocks))
	work := []BlockID{p.Entry}
	reachable[p.Entry] = true
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range p.Blocks[id].stackEdges() {
			if !reachable[s] {
				reachable[s] = true
				work = append(work, s)
			}
		}
	}
	pruned := false
	for _, b := range p.Blocks {
		if !reachable[b.ID] {
			pruned = true
			break
		}
	}
	if !pruned {
		return false
	}

	// Drop edges from doomed predecessors before compacting.
	for _, b := range p.Blocks {
		if !reachable[b.ID] {
			continue
		}
		for i := len(b.Preds) - 1; i >= 0; i-- {
			if !reachable[b.Preds[i]] {
				p.removeEdgeAt(b, i)
			}
		}
	}
	p.compactBlocks(reachable)
	return true
}

// removeEdgeAt deletes the i-th predecessor entry of b and the matching
// phi operands.
func (p *Program) removeEdgeAt(b *Block, i int) {
	b.Preds = append(b.Preds[:i], b.Preds[i+1:]...)
	for _, phi := range b.Phis {
		pv := p.Values[phi]
		pv.Args = append(pv.Args[:i], pv.Args[i+1:]...)
	}
}

// compactBlocks renumbers blocks densely, keeping those marked.
func (p *Program) compactBlocks(keep []bool) {
	remap := make([]BlockID, len(p.Blocks))
	var kept []*Block
	for _, b := range p.Blocks {
		if !keep[b.ID] {
			remap[b.ID] = NoBlock
			continue
		}
		remap[b.ID] = BlockID(len(kept))
		kept = append(kept, b)
	}
	for _, b := range kept {
		b.ID = remap[b.ID]
		var succs []BlockID
		for _, s := range b.Term.Succs {
			if remap[s] != NoBlock {
				succs = append(succs, remap[s])
			}
		}
		b.Term.Succs = succs
		for i, pr := range b.Preds {
			b.Preds[i] = remap[pr]
		}
	}
	for _, v := range p.Values {
		if v.Block != NoBlock && remap[v.Block] != NoBlock {
			v.Block = remap[v.Block]
		} else if v.Block != NoBlock {
			v.Block = NoBlock
		}
	}
	for bits, id := range p.labels {
		if remap[id] == NoBlock {
			delete(p.labels, bits)
		} else {
			p.labels[bits] = remap[id]
		}
	}
	p.Entry = remap[p.Entry]
	p.Blocks = kept
}

// removeTrivialPhis replaces phis whose operands are all the same value
// (ignoring self-references) with that value.
func removeTrivialPhis(p *Program) bool {
	changed := false
	for {
		replaced := make(map[ValueID]ValueID)
		for _, b := range p.Blocks {
			phis := b.Phis[:0]
			for _, id := range b.Phis {
				phi := p.Values[id]
				same := NoValue
				trivial := true
				for _, a := range phi.Args {
					if a == id {
						continue
					}
					if same == NoValue {
						same = a
					} else if same != a {
						trivial = false
						break
					}
				}
				if trivial && same != NoValue {
					replaced[id] = same
					continue
				}
				phis = append(phis, id)
			}
			b.Phis = phis
		}
		if len(replaced) == 0 {
			return changed
		}
		changed = true

		resolve := func(id ValueID) ValueID {
			for {
				r, ok := replaced[id]
				if !ok {
					return id
				}
				id = r
			}
		}
		for _, b := range p.Blocks {
			for _, id := range b.Phis {
				v := p.Values[id]
				for i, a := range v.Args {
					v.Args[i] = resolve(a)
				}
			}
			for _, id := range b.Body {
				v := p.Values[id]
				for i, a := range v.Args {
					v.Args[i] = resolve(a)
				}
			}
			if b.Term.Cond != NoValue {
				b.Term.Cond = resolve(b.Term.Cond)
			}
		}
	}
}

// removeDeadValues drops pure values whose results are never consumed.
// Effectful operations and potential faults (div, mod, retrieve) stay.
func removeDeadValues(p *Program) bool {
	used := make([]bool, len(p.Values))
	for _, b := range p.Blocks {
		for _, id := range b.Phis {
			for _, a := range p.Values[id].Args {
				used[a] = true
			}
		}
		for _, id := range b.Body {
			for _, a := range p.Values[id].Args {
				used[a] = true
			}
		}
		if b.Term.Cond != NoValue {
			used[b.Term.Cond] = true
		}
	}

	changed := false
	for _, b := range p.Blocks {
		body := b.Body[:0]
		for _, id := range b.Body {
			v := p.Values[id]
			if v.Op.IsPure() && !used[id] {
				changed = true
				continue
			}
			body = append(body, id)
		}
		b.Body = body

		phis := b.Phis[:0]
		for _, id := range b.Phis {
			if !used[id] {
				changed = true
				continue
			}
			phis = append(phis, id)
		}
		b.Phis = phis
	}
	return changed
}

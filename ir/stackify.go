package ir

import (
	"fmt"

	"github.com/tundra-lang/tundra/ws"
)

// ---------------------------------------------------------------------------
// Stackifier: implicit operand stack to explicit SSA values
// ---------------------------------------------------------------------------
//
// The conversion runs in phases:
//
//  1. Each block is simulated in isolation. Values the block consumes from
//     below its own pushes are represented by sentinel IDs naming incoming
//     slots ("the i-th value below the incoming stack top").
//  2. The call-stack modeler adds return edges: for every call site, every
//     ret block reachable inside the callee's activation gets an edge to
//     the call's continuation block.
//  3. Incoming stack depths are propagated from the entry to a fixed point
//     over all edges, including call and return edges. Disagreement between
//     predecessors is a MalformedControlFlow rejection, as is a block that
//     reaches below an empty stack.
//  4. Unreachable blocks are pruned, every reachable block gets one phi per
//     incoming slot, sentinels are patched to phis, and phi arguments are
//     filled from each predecessor's exit stack.
//
// Redundant phis (single predecessor, or all-same arguments) are left for
// the optimizer's trivial-phi pass.

// Sentinel IDs encode incoming stack slots during simulation. Slot i is
// the i-th value below the incoming stack top.
func sentinel(i int) ValueID { return ValueID(-2 - i) }

func sentinelSlot(id ValueID) (int, bool) {
	if id <= -2 {
		return int(-2 - id), true
	}
	return 0, false
}

// maxStackOperand bounds copy/slide literal operands. Anything larger
// cannot correspond to a real incoming stack in a program this toolchain
// could have compiled.
const maxStackOperand = 1 << 20

// stackify converts the raw-instruction CFG into SSA form in place.
func stackify(p *Program) error {
	for _, b := range p.Blocks {
		if err := p.simulateBlock(b); err != nil {
			return err
		}
	}
	if err := p.modelReturns(); err != nil {
		return err
	}
	if err := p.propagateDepths(); err != nil {
		return err
	}
	p.pruneUnreachable()
	p.wirePhis()
	return nil
}

// simulateBlock abstractly interprets one block's stack effect, producing
// its body values, exit stack, and incoming-slot demand.
func (p *Program) simulateBlock(b *Block) error {
	var stack []ValueID // bottom-to-top
	access := 0

	// ensure materializes incoming slots at the bottom of the working
	// stack until it holds at least n entries.
	ensure := func(n int) {
		for len(stack) < n {
			stack = append([]ValueID{sentinel(access)}, stack...)
			access++
		}
	}
	pop := func() ValueID {
		ensure(1)
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(v ValueID) { stack = append(stack, v) }
	peek := func(n int) ValueID {
		ensure(n + 1)
		return stack[len(stack)-1-n]
	}

	intOperand := func(in ws.Inst) (int, error) {
		if in.Arg.Sign() < 0 || !in.Arg.IsInt64() || in.Arg.Int64() > maxStackOperand {
			return 0, &MalformedError{
				Kind: BadOperand, Pos: in.Pos, Block: b.ID,
				Detail: fmt.Sprintf("%s %s", in.Op, in.Arg),
			}
		}
		return int(in.Arg.Int64()), nil
	}

	emit := func(op ValueOp, pos ws.Pos, args ...ValueID) *Value {
		v := p.newValue(op, b.ID, pos, args...)
		b.Body = append(b.Body, v.ID)
		return v
	}

	for _, in := range b.raw {
		switch in.Op {
		case ws.Push:
			push(p.constValue(in.Arg))
		case ws.Dup:
			push(peek(0))
		case ws.Copy:
			n, err := intOperand(in)
			if err != nil {
				return err
			}
			push(peek(n))
		case ws.Swap:
			a, bb := pop(), pop()
			push(a)
			push(bb)
		case ws.Drop:
			pop()
		case ws.Slide:
			n, err := intOperand(in)
			if err != nil {
				return err
			}
			top := pop()
			ensure(n)
			stack = stack[:len(stack)-n]
			push(top)
		case ws.Add, ws.Sub, ws.Mul, ws.Div, ws.Mod:
			rhs, lhs := pop(), pop()
			var op ValueOp
			switch in.Op {
			case ws.Add:
				op = OpAdd
			case ws.Sub:
				op = OpSub
			case ws.Mul:
				op = OpMul
			case ws.Div:
				op = OpDiv
			case ws.Mod:
				op = OpMod
			}
			push(emit(op, in.Pos, lhs, rhs).ID)
		case ws.Store:
			val, addr := pop(), pop()
			emit(OpStore, in.Pos, addr, val)
		case ws.Retrieve:
			addr := pop()
			push(emit(OpRetrieve, in.Pos, addr).ID)
		case ws.Printc:
			emit(OpPrintc, in.Pos, pop())
		case ws.Printi:
			emit(OpPrinti, in.Pos, pop())
		case ws.Readc:
			emit(OpReadc, in.Pos, pop())
		case ws.Readi:
			emit(OpReadi, in.Pos, pop())
		case ws.DumpStack:
			emit(OpDumpStack, in.Pos)
		case ws.DumpHeap:
			emit(OpDumpHeap, in.Pos)
		case ws.DumpTrace:
			emit(OpDumpTrace, in.Pos)
		default:
			return &MalformedError{
				Kind: UnsupportedInst, Pos: in.Pos, Block: b.ID,
				Detail: in.Op.String(),
			}
		}
	}

	// Conditional branches consume their condition from the stack.
	if b.Term.Kind == TermJz || b.Term.Kind == TermJn {
		b.Term.Cond = pop()
	}

	b.access = access
	b.exitLocal = stack
	b.raw = nil
	return nil
}

// ---------------------------------------------------------------------------
// Call-stack modeler
// ---------------------------------------------------------------------------

// modelReturns resolves the implicit return-address stack into explicit
// return edges: each ret block reachable within a callee's activation gets
// an edge to every matching call site's continuation. It also rejects
// programs where a ret is reachable from the entry with a provably empty
// call stack.
func (p *Program) modelReturns() error {
	canReturn := make(map[BlockID]bool) // callee entry -> activation reaches a ret

	// retsFrom walks one activation: through ordinary edges, and across a
	// call only by skipping to its continuation when the callee is already
	// known to return.
	retsFrom := func(start BlockID) []BlockID {
		seen := make(map[BlockID]bool)
		var rets []BlockID
		work := []BlockID{start}
		for len(work) > 0 {
			id := work[len(work)-1]
			work = work[:len(work)-1]
			if seen[id] {
				continue
			}
			seen[id] = true
			b := p.Blocks[id]
			switch b.Term.Kind {
			case TermRet:
				rets = append(rets, id)
			case TermCall:
				if canReturn[b.Term.Succs[0]] {
					work = append(work, b.Term.Succs[1])
				}
			case TermJmp, TermJz, TermJn:
				work = append(work, b.Term.Succs...)
			}
		}
		return rets
	}

	// The canReturn relation is monotone; iterate to a fixed point.
	for {
		changed := false
		for _, b := range p.Blocks {
			if b.Term.Kind != TermCall {
				continue
			}
			callee := b.Term.Succs[0]
			if !canReturn[callee] && len(retsFrom(callee)) > 0 {
				canReturn[callee] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// Wire return edges per call site.
	for _, b := range p.Blocks {
		if b.Term.Kind != TermCall {
			continue
		}
		callee, cont := b.Term.Succs[0], b.Term.Succs[1]
		for _, r := range retsFrom(callee) {
			rb := p.Blocks[r]
			if !containsBlock(rb.Term.Succs, cont) {
				rb.Term.Succs = append(rb.Term.Succs, cont)
			}
			p.addEdge(r, cont)
		}
	}

	// A ret reached from the entry without an enclosing call would pop an
	// empty call stack. Rejected here rather than left to fault at run time.
	seen := make(map[BlockID]bool)
	work := []BlockID{p.Entry}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		b := p.Blocks[id]
		switch b.Term.Kind {
		case TermRet:
			return &MalformedError{Kind: ReturnUnderflow, Pos: b.Term.Pos, Block: id}
		case TermCall:
			if canReturn[b.Term.Succs[0]] {
				work = append(work, b.Term.Succs[1])
			}
		case TermJmp, TermJz, TermJn:
			work = append(work, b.Term.Succs...)
		}
	}
	return nil
}

func containsBlock(ids []BlockID, id BlockID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Depth propagation and phi wiring
// ---------------------------------------------------------------------------

// stackEdges lists the edges along which operand-stack state flows out of
// a block: branch targets, the callee of a call, and every continuation a
// ret may resume.
func (b *Block) stackEdges() []BlockID {
	switch b.Term.Kind {
	case TermJmp, TermJz, TermJn, TermRet:
		return b.Term.Succs
	case TermCall:
		return b.Term.Succs[:1]
	}
	return nil
}

// exitDepth is the operand stack depth leaving the block, given its
// resolved incoming depth.
func (b *Block) exitDepth() int {
	return b.inDepth - b.access + len(b.exitLocal)
}

// propagateDepths computes each reachable block's incoming stack depth to
// a fixed point and rejects underflow and cross-predecessor mismatches.
func (p *Program) propagateDepths() error {
	entry := p.Blocks[p.Entry]
	entry.inDepth = 0
	work := []BlockID{p.Entry}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		b := p.Blocks[id]
		if b.inDepth < b.access {
			return &MalformedError{
				Kind: StackUnderflow, Pos: b.Term.Pos, Block: id,
				Detail: fmt.Sprintf("needs %d values, stack holds %d", b.access, b.inDepth),
			}
		}
		out := b.exitDepth()
		for _, succ := range b.stackEdges() {
			sb := p.Blocks[succ]
			switch sb.inDepth {
			case -1:
				sb.inDepth = out
				work = append(work, succ)
			case out:
				// Consistent; fixed point for this edge.
			default:
				return &MalformedError{
					Kind: DepthMismatch, Pos: sb.Term.Pos, Block: succ,
					Detail: fmt.Sprintf("depth %d from block @%d, %d from another predecessor", out, id, sb.inDepth),
				}
			}
		}
	}
	return nil
}

// pruneUnreachable drops blocks the depth propagation never reached and
// renumbers the rest densely. Phis do not exist yet, so predecessor lists
// can be filtered directly.
func (p *Program) pruneUnreachable() {
	keep := make([]bool, len(p.Blocks))
	all := true
	for i, b := range p.Blocks {
		keep[i] = b.inDepth >= 0
		all = all && keep[i]
	}
	if all {
		return
	}
	for _, b := range p.Blocks {
		if !keep[b.ID] {
			continue
		}
		preds := b.Preds[:0]
		for _, pr := range b.Preds {
			if keep[pr] {
				preds = append(preds, pr)
			}
		}
		b.Preds = preds
	}
	p.compactBlocks(keep)
}

// wirePhis gives every block one phi per incoming stack slot, patches
// sentinel references to those phis, and fills phi arguments from each
// predecessor's exit stack. Phis[0] is the bottom incoming slot.
func (p *Program) wirePhis() {
	for _, b := range p.Blocks {
		b.Phis = make([]ValueID, b.inDepth)
		for i := range b.Phis {
			b.Phis[i] = p.newValue(OpPhi, b.ID, b.Term.Pos).ID
		}
	}

	patch := func(b *Block, id ValueID) ValueID {
		if slot, ok := sentinelSlot(id); ok {
			return b.Phis[b.inDepth-1-slot]
		}
		return id
	}

	for _, b := range p.Blocks {
		for _, id := range b.Body {
			v := p.Values[id]
			for i, a := range v.Args {
				v.Args[i] = patch(b, a)
			}
		}
		if b.Term.Cond != NoValue {
			b.Term.Cond = patch(b, b.Term.Cond)
		}
		for i, id := range b.exitLocal {
			b.exitLocal[i] = patch(b, id)
		}
	}

	// Fill phi arguments in predecessor order.
	for _, b := range p.Blocks {
		for _, pr := range b.Preds {
			pb := p.Blocks[pr]
			exit := pb.exitStack()
			for i, phi := range b.Phis {
				p.Values[phi].Args = append(p.Values[phi].Args, exit[i])
			}
		}
	}
}

// exitStack is the full operand stack leaving the block, bottom-to-top:
// the untouched deep part of the incoming stack followed by the simulated
// local part. Valid after wirePhis has patched sentinels.
func (b *Block) exitStack() []ValueID {
	deep := b.Phis[:b.inDepth-b.access]
	out := make([]ValueID, 0, len(deep)+len(b.exitLocal))
	out = append(out, deep...)
	return append(out, b.exitLocal...)
}

package ir

import (
	"github.com/tundra-lang/tundra/ws"
)

// ---------------------------------------------------------------------------
// CFG: basic blocks and edges
// ---------------------------------------------------------------------------

// BlockID indexes a basic block within its Program. IDs are dense; the
// optimizer renumbers blocks when pruning.
type BlockID int32

// NoBlock is the absent block reference.
const NoBlock BlockID = -1

// TermKind is the control instruction ending a basic block.
type TermKind uint8

const (
	TermJmp  TermKind = iota // Succs: [target]; also implicit fallthrough
	TermJz                   // Succs: [taken, fallthrough]; Cond popped, taken when zero
	TermJn                   // Succs: [taken, fallthrough]; Cond popped, taken when negative
	TermCall                 // Succs: [callee, continuation]
	TermRet                  // Succs: possible continuations (dynamic target via call stack)
	TermEnd                  // no successors; clean halt
)

var termNames = [...]string{
	TermJmp:  "jmp",
	TermJz:   "jz",
	TermJn:   "jn",
	TermCall: "call",
	TermRet:  "ret",
	TermEnd:  "end",
}

func (k TermKind) String() string { return termNames[k] }

// Term is a block terminator. Every block has exactly one.
//
// A ret terminator has no single static successor: its Succs list the
// continuation blocks it may resume (computed by the call-stack modeler)
// and the actual target is chosen by the dynamic call stack at run time.
type Term struct {
	Kind  TermKind
	Cond  ValueID // TermJz/TermJn condition; NoValue otherwise
	Succs []BlockID
	Pos   ws.Pos
}

// Block is a maximal straight-line instruction sequence. Phis carry the
// incoming operand stack (index 0 is the bottom slot); Body is the ordered
// list of computations and effects; Preds is order-correlated with every
// phi's argument list.
type Block struct {
	ID    BlockID
	Label string // label bit pattern when the block starts at a definition
	Phis  []ValueID
	Body  []ValueID
	Term  Term
	Preds []BlockID

	// Stackifier scratch, valid only during compilation.
	raw       []ws.Inst // non-control instructions in source order
	access    int       // incoming slots the block touches
	inDepth   int       // resolved incoming stack depth (-1 until known)
	exitLocal []ValueID // simulated exit stack, bottom-to-top, may hold sentinels
}

// Program is the SSA-form program: blocks, edges, and the value table.
type Program struct {
	Blocks []*Block
	Values []*Value
	Entry  BlockID

	consts map[string]ValueID
	labels map[string]BlockID
}

// Block returns the block for an ID.
func (p *Program) Block(id BlockID) *Block { return p.Blocks[id] }

// LabelBlock resolves a label bit pattern to its defining block.
func (p *Program) LabelBlock(bits string) (BlockID, bool) {
	id, ok := p.labels[bits]
	return id, ok
}

func (p *Program) newBlock(label string) *Block {
	b := &Block{ID: BlockID(len(p.Blocks)), Label: label, inDepth: -1, Term: Term{Cond: NoValue}}
	p.Blocks = append(p.Blocks, b)
	return b
}

func (p *Program) addEdge(from, to BlockID) {
	p.Blocks[to].Preds = append(p.Blocks[to].Preds, from)
}

// ---------------------------------------------------------------------------
// CFG construction
// ---------------------------------------------------------------------------

// buildCFG partitions an instruction stream into basic blocks and resolves
// label references. Blocks begin at the program start, at every label
// definition, and after every control transfer; instructions following an
// unconditional transfer before the next label are unreachable and pruned.
func buildCFG(insts []ws.Inst) (*Program, error) {
	p := &Program{
		consts: make(map[string]ValueID),
		labels: make(map[string]BlockID),
	}

	type pendingTerm struct {
		block BlockID
		inst  ws.Inst
		fall  BlockID // fallthrough / continuation block, NoBlock if none
	}
	var terms []pendingTerm

	cur := p.newBlock("")
	p.Entry = cur.ID
	skipping := false // discarding unreachable tail after an unconditional transfer

	for _, in := range insts {
		if in.Op == ws.Label {
			prev := cur
			if prev.ID == p.Entry && prev.Label == "" && len(prev.raw) == 0 && len(terms) == 0 {
				// A label at the very start names the entry block.
				if _, dup := p.labels[in.Label]; dup {
					return nil, &MalformedError{Kind: DuplicateLabel, Pos: in.Pos, Block: prev.ID, Label: in.Label}
				}
				prev.Label = in.Label
				p.labels[in.Label] = prev.ID
				continue
			}
			if _, dup := p.labels[in.Label]; dup {
				return nil, &MalformedError{Kind: DuplicateLabel, Pos: in.Pos, Block: NoBlock, Label: in.Label}
			}
			next := p.newBlock(in.Label)
			p.labels[in.Label] = next.ID
			if !skipping {
				// The previous block runs into the label: implicit jump.
				prev.Term = Term{Kind: TermJmp, Cond: NoValue, Succs: []BlockID{next.ID}, Pos: in.Pos}
				p.addEdge(prev.ID, next.ID)
			}
			cur = next
			skipping = false
			continue
		}
		if skipping {
			continue
		}

		switch in.Op {
		case ws.Jmp, ws.Ret, ws.End:
			terms = append(terms, pendingTerm{block: cur.ID, inst: in, fall: NoBlock})
			skipping = true
		case ws.Jz, ws.Jn, ws.Call:
			next := p.newBlock("")
			terms = append(terms, pendingTerm{block: cur.ID, inst: in, fall: next.ID})
			cur = next
		case ws.Shuffle:
			return nil, &MalformedError{
				Kind: UnsupportedInst, Pos: in.Pos, Block: cur.ID,
				Detail: "shuffle has no static stack model",
			}
		default:
			cur.raw = append(cur.raw, in)
		}
	}
	if !skipping {
		// The stream ran out without a control transfer: treat as a halt.
		cur.Term = Term{Kind: TermEnd, Cond: NoValue}
	}

	// Second pass: resolve label references now that all definitions are
	// known (forward references are legal).
	for _, t := range terms {
		b := p.Blocks[t.block]
		target := NoBlock
		if t.inst.Op.Arg() == ws.ArgLabel {
			id, ok := p.labels[t.inst.Label]
			if !ok {
				return nil, &MalformedError{Kind: UndefinedLabel, Pos: t.inst.Pos, Block: t.block, Label: t.inst.Label}
			}
			target = id
		}
		switch t.inst.Op {
		case ws.Jmp:
			b.Term = Term{Kind: TermJmp, Cond: NoValue, Succs: []BlockID{target}, Pos: t.inst.Pos}
			p.addEdge(t.block, target)
		case ws.Jz, ws.Jn:
			kind := TermJz
			if t.inst.Op == ws.Jn {
				kind = TermJn
			}
			b.Term = Term{Kind: kind, Cond: NoValue, Succs: []BlockID{target, t.fall}, Pos: t.inst.Pos}
			p.addEdge(t.block, target)
			p.addEdge(t.block, t.fall)
		case ws.Call:
			// The continuation is not a predecessor of the callee's exit;
			// its stack arrives along return edges added by the modeler.
			b.Term = Term{Kind: TermCall, Cond: NoValue, Succs: []BlockID{target, t.fall}, Pos: t.inst.Pos}
			p.addEdge(t.block, target)
		case ws.Ret:
			b.Term = Term{Kind: TermRet, Cond: NoValue, Pos: t.inst.Pos}
		case ws.End:
			b.Term = Term{Kind: TermEnd, Cond: NoValue, Pos: t.inst.Pos}
		}
	}
	return p, nil
}

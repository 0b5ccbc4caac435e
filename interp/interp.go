package interp

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/tliron/commonlog"

	"github.com/tundra-lang/tundra/ir"
	"github.com/tundra-lang/tundra/ws"
)

var log = commonlog.GetLogger("tundra.interp")

// ---------------------------------------------------------------------------
// Run outcomes
// ---------------------------------------------------------------------------

// Status is the terminal state of a run.
type Status uint8

const (
	Halted Status = iota
	Faulted
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// FaultKind classifies runtime faults.
type FaultKind uint8

const (
	DivByZero FaultKind = iota
	UnsetAddress
	ReturnUnderflow
	InputExhausted
	InvalidInput
	InvalidChar
	MissingPhiOperand
	IOFailure
)

func (k FaultKind) String() string {
	switch k {
	case DivByZero:
		return "division or modulo by zero"
	case UnsetAddress:
		return "load of never-stored heap address"
	case ReturnUnderflow:
		return "return with empty call stack"
	case InputExhausted:
		return "input exhausted"
	case InvalidInput:
		return "unreadable number on input"
	case InvalidChar:
		return "value is not a printable character"
	case MissingPhiOperand:
		return "no phi operand for taken edge"
	case IOFailure:
		return "output sink failed"
	}
	return fmt.Sprintf("FaultKind(%d)", uint8(k))
}

// FaultError carries the point of failure for a runtime fault.
type FaultError struct {
	Kind   FaultKind
	Block  ir.BlockID
	Pos    ws.Pos
	Detail string
	Err    error // underlying I/O error, if any
}

func (e *FaultError) Error() string {
	msg := fmt.Sprintf("fault: %s (block @%d)", e.Kind, e.Block)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Pos != (ws.Pos{}) {
		msg += fmt.Sprintf(" at %s", e.Pos)
	}
	return msg
}

func (e *FaultError) Unwrap() error { return e.Err }

// Outcome is the result of a run: Halted with an exit code, Faulted with
// a FaultError, or Cancelled by the caller's context or step budget.
type Outcome struct {
	Status   Status
	ExitCode int
	Fault    *FaultError
}

// Options bound a run.
type Options struct {
	// MaxSteps caps the number of terminator evaluations; 0 is unlimited.
	// Exceeding the budget cancels the run.
	MaxSteps int64
	// Trace receives dump-instruction output; nil discards it.
	Trace io.Writer
}

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// frame records the continuation of an active call.
type frame struct {
	cont ir.BlockID
}

type machine struct {
	prog  *ir.Program
	env   []*big.Int
	heap  *Heap
	in    Input
	out   Output
	trace io.Writer

	cur    ir.BlockID
	frames []frame
}

// Run executes a compiled program to a terminal state. The heap and call
// stack are created fresh for this run and discarded with it; nothing is
// carried across runs. Cancellation is checked cooperatively at every
// terminator.
func Run(ctx context.Context, p *ir.Program, in Input, out Output, opts Options) Outcome {
	m := &machine{
		prog:  p,
		env:   make([]*big.Int, len(p.Values)),
		heap:  NewHeap(),
		in:    in,
		out:   out,
		trace: opts.Trace,
		cur:   p.Entry,
	}
	if m.trace == nil {
		m.trace = io.Discard
	}

	prev := ir.NoBlock
	var steps int64
	for {
		b := p.Block(m.cur)
		if f := m.enterBlock(b, prev); f != nil {
			return faulted(f)
		}
		for _, id := range b.Body {
			if f := m.exec(b, p.Value(id)); f != nil {
				return faulted(f)
			}
		}

		// Cooperative abort point, once per terminator.
		steps++
		if ctx.Err() != nil {
			log.Debugf("run cancelled after %d steps", steps)
			return Outcome{Status: Cancelled}
		}
		if opts.MaxSteps > 0 && steps > opts.MaxSteps {
			log.Debugf("run exceeded step budget of %d", opts.MaxSteps)
			return Outcome{Status: Cancelled}
		}

		next, outcome, f := m.step(b)
		if f != nil {
			return faulted(f)
		}
		if outcome != nil {
			return *outcome
		}
		prev = m.cur
		m.cur = next
	}
}

func faulted(f *FaultError) Outcome {
	return Outcome{Status: Faulted, ExitCode: 1, Fault: f}
}

// enterBlock resolves the block's phis for the edge just taken. Operands
// are read before any are written: phis merge in parallel.
func (m *machine) enterBlock(b *ir.Block, prev ir.BlockID) *FaultError {
	if len(b.Phis) == 0 {
		return nil
	}
	edge := -1
	for i, pr := range b.Preds {
		if pr == prev {
			edge = i
			break
		}
	}
	if edge < 0 {
		return &FaultError{
			Kind: MissingPhiOperand, Block: b.ID,
			Detail: fmt.Sprintf("edge from @%d", prev),
		}
	}
	vals := make([]*big.Int, len(b.Phis))
	for i, id := range b.Phis {
		phi := m.prog.Value(id)
		if edge >= len(phi.Args) {
			return &FaultError{
				Kind: MissingPhiOperand, Block: b.ID,
				Detail: fmt.Sprintf("phi v%d has no operand for edge from @%d", id, prev),
			}
		}
		vals[i] = m.eval(phi.Args[edge])
	}
	for i, id := range b.Phis {
		m.env[id] = vals[i]
	}
	return nil
}

// eval returns the runtime value of an SSA reference.
func (m *machine) eval(id ir.ValueID) *big.Int {
	v := m.prog.Value(id)
	if v.Op == ir.OpConst {
		return v.Num
	}
	return m.env[id]
}

// exec runs one body instruction.
func (m *machine) exec(b *ir.Block, v *ir.Value) *FaultError {
	fault := func(kind FaultKind, detail string) *FaultError {
		return &FaultError{Kind: kind, Block: b.ID, Pos: v.Pos, Detail: detail}
	}

	switch v.Op {
	case ir.OpAdd:
		m.env[v.ID] = new(big.Int).Add(m.eval(v.Args[0]), m.eval(v.Args[1]))
	case ir.OpSub:
		m.env[v.ID] = new(big.Int).Sub(m.eval(v.Args[0]), m.eval(v.Args[1]))
	case ir.OpMul:
		m.env[v.ID] = new(big.Int).Mul(m.eval(v.Args[0]), m.eval(v.Args[1]))
	case ir.OpDiv:
		rhs := m.eval(v.Args[1])
		if rhs.Sign() == 0 {
			return fault(DivByZero, "")
		}
		m.env[v.ID] = ir.FloorDiv(m.eval(v.Args[0]), rhs)
	case ir.OpMod:
		rhs := m.eval(v.Args[1])
		if rhs.Sign() == 0 {
			return fault(DivByZero, "")
		}
		m.env[v.ID] = ir.FloorMod(m.eval(v.Args[0]), rhs)
	case ir.OpRetrieve:
		addr := m.eval(v.Args[0])
		val, ok := m.heap.Load(addr)
		if !ok {
			return fault(UnsetAddress, "address "+addr.String())
		}
		m.env[v.ID] = val
	case ir.OpStore:
		m.heap.Store(m.eval(v.Args[0]), m.eval(v.Args[1]))
	case ir.OpPrintc:
		n := m.eval(v.Args[0])
		if !n.IsInt64() || n.Int64() < 0 || n.Int64() > 0x10FFFF {
			return fault(InvalidChar, n.String())
		}
		if err := m.out.WriteChar(rune(n.Int64())); err != nil {
			return &FaultError{Kind: IOFailure, Block: b.ID, Pos: v.Pos, Err: err}
		}
	case ir.OpPrinti:
		if err := m.out.WriteInt(m.eval(v.Args[0])); err != nil {
			return &FaultError{Kind: IOFailure, Block: b.ID, Pos: v.Pos, Err: err}
		}
	case ir.OpReadc:
		r, err := m.in.ReadChar()
		if err != nil {
			return &FaultError{Kind: InputExhausted, Block: b.ID, Pos: v.Pos, Err: err}
		}
		m.heap.Store(m.eval(v.Args[0]), big.NewInt(int64(r)))
	case ir.OpReadi:
		n, err := m.in.ReadInt()
		if err != nil {
			if err == io.EOF {
				return &FaultError{Kind: InputExhausted, Block: b.ID, Pos: v.Pos, Err: err}
			}
			return &FaultError{Kind: InvalidInput, Block: b.ID, Pos: v.Pos, Err: err}
		}
		m.heap.Store(m.eval(v.Args[0]), n)
	case ir.OpDumpStack:
		m.dumpValues(b)
	case ir.OpDumpHeap:
		fmt.Fprintf(m.trace, "heap (%d cells):\n", m.heap.Len())
		for _, c := range m.heap.Snapshot() {
			fmt.Fprintf(m.trace, "  [%s] = %s\n", c.Addr, c.Val)
		}
	case ir.OpDumpTrace:
		fmt.Fprintf(m.trace, "at block @%d, call depth %d\n", b.ID, len(m.frames))
	}
	return nil
}

// dumpValues prints the live SSA values of the current block, the nearest
// equivalent of a stack dump in de-stacked form.
func (m *machine) dumpValues(b *ir.Block) {
	fmt.Fprintf(m.trace, "values in block @%d:\n", b.ID)
	for _, id := range b.Phis {
		if m.env[id] != nil {
			fmt.Fprintf(m.trace, "  v%d = %s\n", id, m.env[id])
		}
	}
	for _, id := range b.Body {
		if m.prog.Value(id).Op.Defines() && m.env[id] != nil {
			fmt.Fprintf(m.trace, "  v%d = %s\n", id, m.env[id])
		}
	}
}

// step evaluates the terminator, returning the next block or a terminal
// outcome.
func (m *machine) step(b *ir.Block) (ir.BlockID, *Outcome, *FaultError) {
	switch b.Term.Kind {
	case ir.TermJmp:
		return b.Term.Succs[0], nil, nil
	case ir.TermJz:
		if m.eval(b.Term.Cond).Sign() == 0 {
			return b.Term.Succs[0], nil, nil
		}
		return b.Term.Succs[1], nil, nil
	case ir.TermJn:
		if m.eval(b.Term.Cond).Sign() < 0 {
			return b.Term.Succs[0], nil, nil
		}
		return b.Term.Succs[1], nil, nil
	case ir.TermCall:
		cont := ir.NoBlock
		if len(b.Term.Succs) > 1 {
			cont = b.Term.Succs[1]
		}
		m.frames = append(m.frames, frame{cont: cont})
		return b.Term.Succs[0], nil, nil
	case ir.TermRet:
		if len(m.frames) == 0 {
			return ir.NoBlock, nil, &FaultError{Kind: ReturnUnderflow, Block: b.ID, Pos: b.Term.Pos}
		}
		f := m.frames[len(m.frames)-1]
		m.frames = m.frames[:len(m.frames)-1]
		if f.cont == ir.NoBlock {
			return ir.NoBlock, nil, &FaultError{
				Kind: ReturnUnderflow, Block: b.ID, Pos: b.Term.Pos,
				Detail: "call site has no continuation",
			}
		}
		return f.cont, nil, nil
	case ir.TermEnd:
		return ir.NoBlock, &Outcome{Status: Halted, ExitCode: 0}, nil
	}
	return ir.NoBlock, nil, &FaultError{Kind: MissingPhiOperand, Block: b.ID, Detail: "unknown terminator"}
}

package ir

import (
	"fmt"
	"math/big"

	"github.com/tundra-lang/tundra/ws"
)

// ---------------------------------------------------------------------------
// SSA values
// ---------------------------------------------------------------------------

// ValueID names an SSA value. The Program owns all values; instructions
// and phis refer to them by ID only, never by containment, so cyclic
// data flow (loops) never produces cyclic ownership.
type ValueID int32

// NoValue is the absent value reference.
const NoValue ValueID = -1

// ValueOp is the defining operation of an SSA value or effect statement.
type ValueOp uint8

const (
	OpConst ValueOp = iota // literal; Num holds the constant
	OpPhi                  // merge; Args order-correlated with block preds

	// Arithmetic. Args are [lhs, rhs]. Div and Mod use floored division
	// and fault at run time on a zero divisor.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	// Heap and I/O effects, kept in block body order.
	OpRetrieve // Args[0] = address; defines the loaded value
	OpStore    // Args[0] = address, Args[1] = value
	OpPrintc   // Args[0] = value
	OpPrinti   // Args[0] = value
	OpReadc    // Args[0] = destination address
	OpReadi    // Args[0] = destination address

	// Diagnostic effects (feature-gated extensions).
	OpDumpStack
	OpDumpHeap
	OpDumpTrace
)

var valueOpNames = [...]string{
	OpConst:     "const",
	OpPhi:       "phi",
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "div",
	OpMod:       "mod",
	OpRetrieve:  "retrieve",
	OpStore:     "store",
	OpPrintc:    "printc",
	OpPrinti:    "printi",
	OpReadc:     "readc",
	OpReadi:     "readi",
	OpDumpStack: "dumpstack",
	OpDumpHeap:  "dumpheap",
	OpDumpTrace: "dumptrace",
}

func (op ValueOp) String() string {
	if int(op) < len(valueOpNames) {
		return valueOpNames[op]
	}
	return fmt.Sprintf("ValueOp(%d)", uint8(op))
}

// IsPure reports whether the operation can be removed when its result is
// unused. Div and Mod are excluded: they carry an observable fault.
// Retrieve is excluded: loading a never-stored address faults.
func (op ValueOp) IsPure() bool {
	switch op {
	case OpConst, OpPhi, OpAdd, OpSub, OpMul:
		return true
	}
	return false
}

// Defines reports whether the operation produces a stack value.
func (op ValueOp) Defines() bool {
	switch op {
	case OpConst, OpPhi, OpAdd, OpSub, OpMul, OpDiv, OpMod, OpRetrieve:
		return true
	}
	return false
}

// Value is an SSA value or effect statement. Each value is defined by
// exactly one operation and consumed by any number of later ones.
type Value struct {
	ID    ValueID
	Op    ValueOp
	Num   *big.Int // OpConst only
	Args  []ValueID
	Block BlockID
	Pos   ws.Pos // source instruction that produced this value
}

// newValue appends a fresh value to the program.
func (p *Program) newValue(op ValueOp, block BlockID, pos ws.Pos, args ...ValueID) *Value {
	v := &Value{ID: ValueID(len(p.Values)), Op: op, Args: args, Block: block, Pos: pos}
	p.Values = append(p.Values, v)
	return v
}

// constValue returns a literal value, deduplicated program-wide.
func (p *Program) constValue(n *big.Int) ValueID {
	key := n.String()
	if id, ok := p.consts[key]; ok {
		return id
	}
	v := p.newValue(OpConst, NoBlock, ws.Pos{})
	v.Num = new(big.Int).Set(n)
	p.consts[key] = v.ID
	return v.ID
}

// Value returns the value for an ID.
func (p *Program) Value(id ValueID) *Value { return p.Values[id] }

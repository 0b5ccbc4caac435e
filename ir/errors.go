package ir

import (
	"fmt"

	"github.com/tundra-lang/tundra/ws"
)

// ---------------------------------------------------------------------------
// Compile-time errors
// ---------------------------------------------------------------------------

// MalformedKind classifies control-flow and stack-shape errors that make a
// program uncompilable.
type MalformedKind uint8

const (
	// DuplicateLabel: a label value defined more than once.
	DuplicateLabel MalformedKind = iota
	// UndefinedLabel: a call/jump references a label never defined.
	UndefinedLabel
	// StackUnderflow: a block consumes more values than any execution
	// could have placed on the stack at its entry.
	StackUnderflow
	// DepthMismatch: predecessors disagree on the stack depth entering a
	// block.
	DepthMismatch
	// ReturnUnderflow: a return is reachable from the entry with an empty
	// call stack.
	ReturnUnderflow
	// BadOperand: a copy/slide operand the static stack model cannot
	// express (negative).
	BadOperand
	// UnsupportedInst: an instruction with no SSA form (shuffle).
	UnsupportedInst
)

func (k MalformedKind) String() string {
	switch k {
	case DuplicateLabel:
		return "duplicate label"
	case UndefinedLabel:
		return "undefined label"
	case StackUnderflow:
		return "stack underflow"
	case DepthMismatch:
		return "stack depth mismatch"
	case ReturnUnderflow:
		return "return with empty call stack"
	case BadOperand:
		return "bad operand"
	case UnsupportedInst:
		return "unsupported instruction"
	}
	return fmt.Sprintf("MalformedKind(%d)", uint8(k))
}

// MalformedError is the compile-time rejection of a program whose control
// flow or stack discipline cannot be modeled. It aborts compilation; no
// partial IR is produced.
type MalformedError struct {
	Kind   MalformedKind
	Pos    ws.Pos  // offending instruction, when known
	Block  BlockID // offending block, when known
	Label  string  // label bit pattern for label errors
	Detail string
}

func (e *MalformedError) Error() string {
	msg := fmt.Sprintf("malformed control flow: %s", e.Kind)
	if e.Label != "" {
		msg += fmt.Sprintf(" %s", ws.LabelNumber(e.Label))
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Block != NoBlock {
		msg += fmt.Sprintf(" (block @%d)", e.Block)
	}
	if e.Pos != (ws.Pos{}) {
		msg += fmt.Sprintf(" at %s", e.Pos)
	}
	return msg
}

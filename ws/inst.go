package ws

import (
	"fmt"
	"math/big"
	"strings"
)

// ---------------------------------------------------------------------------
// Instruction stream model
// ---------------------------------------------------------------------------

// Opcode identifies a Whitespace operation.
type Opcode uint8

const (
	Push Opcode = iota
	Dup
	Copy
	Swap
	Drop
	Slide
	Add
	Sub
	Mul
	Div
	Mod
	Store
	Retrieve
	Label
	Call
	Jmp
	Jz
	Jn
	Ret
	End
	Printc
	Printi
	Readc
	Readi
	Shuffle
	DumpStack
	DumpHeap
	DumpTrace

	numOpcodes
)

// ArgKind describes the operand an opcode carries.
type ArgKind uint8

const (
	ArgNone ArgKind = iota
	ArgInt
	ArgLabel
)

// Feature flags gate instructions beyond the wspace 0.2 baseline.
type Feature uint8

// Features is a set of Feature flags.
type Features uint8

const (
	FeatWspace03 Feature = iota // Copy and Slide (wspace 0.3)
	FeatShuffle
	FeatDumpStackHeap
	FeatDumpTrace
)

// AllFeatures enables every known extension.
const AllFeatures Features = 0xFF

func (f Feature) String() string {
	switch f {
	case FeatWspace03:
		return "wspace 0.3"
	case FeatShuffle:
		return "shuffle"
	case FeatDumpStackHeap:
		return "dump stack/heap"
	case FeatDumpTrace:
		return "dump trace"
	}
	return fmt.Sprintf("Feature(%d)", uint8(f))
}

func (s Features) String() string {
	var parts []string
	for f := FeatWspace03; f <= FeatDumpTrace; f++ {
		if s.Contains(f) {
			parts = append(parts, f.String())
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// With returns the set with f added.
func (s Features) With(f Feature) Features { return s | 1<<f }

// Contains reports whether f is in the set.
func (s Features) Contains(f Feature) bool { return s&(1<<f) != 0 }

// opcodeInfo is the static description of one opcode: its mnemonic, its
// token encoding, its operand kind, and the feature (if any) gating it.
type opcodeInfo struct {
	name    string
	tokens  []Token
	arg     ArgKind
	feature Feature
	gated   bool
}

var opcodes = [numOpcodes]opcodeInfo{
	Push:      {name: "push", tokens: []Token{Space, Space}, arg: ArgInt},
	Dup:       {name: "dup", tokens: []Token{Space, LF, Space}},
	Copy:      {name: "copy", tokens: []Token{Space, Tab, Space}, arg: ArgInt, feature: FeatWspace03, gated: true},
	Swap:      {name: "swap", tokens: []Token{Space, LF, Tab}},
	Drop:      {name: "drop", tokens: []Token{Space, LF, LF}},
	Slide:     {name: "slide", tokens: []Token{Space, Tab, LF}, arg: ArgInt, feature: FeatWspace03, gated: true},
	Add:       {name: "add", tokens: []Token{Tab, Space, Space, Space}},
	Sub:       {name: "sub", tokens: []Token{Tab, Space, Space, Tab}},
	Mul:       {name: "mul", tokens: []Token{Tab, Space, Space, LF}},
	Div:       {name: "div", tokens: []Token{Tab, Space, Tab, Space}},
	Mod:       {name: "mod", tokens: []Token{Tab, Space, Tab, Tab}},
	Store:     {name: "store", tokens: []Token{Tab, Tab, Space}},
	Retrieve:  {name: "retrieve", tokens: []Token{Tab, Tab, Tab}},
	Label:     {name: "label", tokens: []Token{LF, Space, Space}, arg: ArgLabel},
	Call:      {name: "call", tokens: []Token{LF, Space, Tab}, arg: ArgLabel},
	Jmp:       {name: "jmp", tokens: []Token{LF, Space, LF}, arg: ArgLabel},
	Jz:        {name: "jz", tokens: []Token{LF, Tab, Space}, arg: ArgLabel},
	Jn:        {name: "jn", tokens: []Token{LF, Tab, Tab}, arg: ArgLabel},
	Ret:       {name: "ret", tokens: []Token{LF, Tab, LF}},
	End:       {name: "end", tokens: []Token{LF, LF, LF}},
	Printc:    {name: "printc", tokens: []Token{Tab, LF, Space, Space}},
	Printi:    {name: "printi", tokens: []Token{Tab, LF, Space, Tab}},
	Readc:     {name: "readc", tokens: []Token{Tab, LF, Tab, Space}},
	Readi:     {name: "readi", tokens: []Token{Tab, LF, Tab, Tab}},
	Shuffle:   {name: "shuffle", tokens: []Token{Space, Tab, Tab, Space}, feature: FeatShuffle, gated: true},
	DumpStack: {name: "dumpstack", tokens: []Token{LF, LF, Space, Space, Space}, feature: FeatDumpStackHeap, gated: true},
	DumpHeap:  {name: "dumpheap", tokens: []Token{LF, LF, Space, Space, Tab}, feature: FeatDumpStackHeap, gated: true},
	DumpTrace: {name: "dumptrace", tokens: []Token{LF, LF, Tab}, feature: FeatDumpTrace, gated: true},
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodes[op].name
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Arg returns the operand kind the opcode carries.
func (op Opcode) Arg() ArgKind { return opcodes[op].arg }

// Tokens returns the opcode's token encoding.
func (op Opcode) Tokens() []Token { return opcodes[op].tokens }

// Feature returns the feature gating the opcode, if any.
func (op Opcode) Feature() (Feature, bool) {
	info := opcodes[op]
	return info.feature, info.gated
}

// OpcodeByName resolves a mnemonic to its opcode.
func OpcodeByName(name string) (Opcode, bool) {
	for op := Opcode(0); op < numOpcodes; op++ {
		if opcodes[op].name == name {
			return op, true
		}
	}
	return 0, false
}

// Inst is one decoded instruction. Arg is set for ArgInt opcodes and Label
// for ArgLabel opcodes; both are nil/empty otherwise. Instructions are
// immutable once decoded.
type Inst struct {
	Op    Opcode
	Arg   *big.Int
	Label string // raw bit pattern, e.g. "0101"; leading zeros significant
	Pos   Pos    // position of the opcode's first token
}

// String renders the instruction in mnemonic form.
func (in Inst) String() string {
	switch in.Op.Arg() {
	case ArgInt:
		return fmt.Sprintf("%s %s", in.Op, in.Arg)
	case ArgLabel:
		return fmt.Sprintf("%s %s", in.Op, LabelNumber(in.Label))
	}
	return in.Op.String()
}

// LabelNumber interprets a label bit pattern as an unsigned integer for
// display. Distinct patterns with equal numeric value (leading zeros) are
// still distinct labels; only the raw pattern identifies a label.
func LabelNumber(bits string) *big.Int {
	n := new(big.Int)
	for _, b := range bits {
		n.Lsh(n, 1)
		if b == '1' {
			n.Or(n, big.NewInt(1))
		}
	}
	return n
}

// parseInt decodes a sign-and-magnitude bit sequence: the first bit is the
// sign (tab negative), the rest the magnitude, most significant first. An
// empty sequence is zero.
func parseInt(bits []Token) *big.Int {
	if len(bits) == 0 {
		return new(big.Int)
	}
	neg := bits[0] == Tab
	n := new(big.Int)
	for _, b := range bits[1:] {
		n.Lsh(n, 1)
		if b == Tab {
			n.Or(n, big.NewInt(1))
		}
	}
	if neg {
		n.Neg(n)
	}
	return n
}

// labelBits renders an argument token sequence as a bit pattern string.
func labelBits(bits []Token) string {
	var sb strings.Builder
	for _, b := range bits {
		if b == Tab {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

package ws

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: token stream to instruction stream
// ---------------------------------------------------------------------------

// ParseError reports a malformed instruction encoding.
type ParseError struct {
	Kind       ParseErrorKind
	Pos        Pos
	Seq        []Token  // the token sequence consumed so far
	Op         Opcode   // UnterminatedArg: the opcode whose argument ran out
	Candidates []Opcode // IncompleteInst: opcodes the prefix could begin
	Lex        error    // LexFailure: the underlying lexer error
}

// ParseErrorKind classifies parse failures.
type ParseErrorKind uint8

const (
	UnknownOpcode ParseErrorKind = iota
	IncompleteInst
	UnterminatedArg
	LexFailure
)

func (e *ParseError) Error() string {
	switch e.Kind {
	case UnknownOpcode:
		return fmt.Sprintf("unknown opcode %s at %s", tokenSeqString(e.Seq), e.Pos)
	case IncompleteInst:
		names := make([]string, len(e.Candidates))
		for i, op := range e.Candidates {
			names[i] = op.String()
		}
		return fmt.Sprintf("incomplete instruction %s at end of program (could begin %s)",
			tokenSeqString(e.Seq), strings.Join(names, ", "))
	case UnterminatedArg:
		return fmt.Sprintf("unterminated argument for %s at %s", e.Op, e.Pos)
	case LexFailure:
		return fmt.Sprintf("lex: %v", e.Lex)
	}
	return "parse error"
}

func (e *ParseError) Unwrap() error { return e.Lex }

func tokenSeqString(seq []Token) string {
	var sb strings.Builder
	for _, t := range seq {
		sb.WriteString(t.String())
	}
	return sb.String()
}

// parseNode is one node of the opcode prefix tree. A node is either a
// terminal for exactly one opcode or an interior prefix; the encoding is
// prefix-free so it is never both.
type parseNode struct {
	terminal   bool
	op         Opcode
	next       [3]*parseNode
	candidates []Opcode // opcodes whose encoding passes through this node
}

// ParseTable is the prefix tree over the opcode encodings enabled by a
// feature set.
type ParseTable struct {
	root parseNode
}

// NewParseTable builds the table for the baseline instruction set plus any
// enabled feature extensions.
func NewParseTable(features Features) *ParseTable {
	t := &ParseTable{}
	for op := Opcode(0); op < numOpcodes; op++ {
		if f, gated := op.Feature(); gated && !features.Contains(f) {
			continue
		}
		t.register(op)
	}
	return t
}

func (t *ParseTable) register(op Opcode) {
	n := &t.root
	for _, tok := range op.Tokens() {
		n.candidates = append(n.candidates, op)
		if n.next[tok] == nil {
			n.next[tok] = &parseNode{}
		}
		n = n.next[tok]
	}
	if n.terminal {
		panic(fmt.Sprintf("ws: conflicting encodings for %s and %s", n.op, op))
	}
	n.terminal = true
	n.op = op
}

// Parser decodes instructions from a lexer using a ParseTable.
type Parser struct {
	table *ParseTable
	lex   Lexer
}

// NewParser returns a parser over the given lexer.
func NewParser(table *ParseTable, lex Lexer) *Parser {
	return &Parser{table: table, lex: lex}
}

// Next decodes the next instruction. It returns ok=false at the end of the
// token stream.
func (p *Parser) Next() (Inst, bool, error) {
	n := &p.table.root
	var seq []Token
	var start Pos
	for {
		tok, pos, ok, err := p.lex.Next()
		if err != nil {
			return Inst{}, false, &ParseError{Kind: LexFailure, Pos: pos, Seq: seq, Lex: err}
		}
		if !ok {
			if len(seq) == 0 {
				return Inst{}, false, nil
			}
			return Inst{}, false, &ParseError{
				Kind: IncompleteInst, Pos: pos, Seq: seq, Candidates: n.candidates,
			}
		}
		if len(seq) == 0 {
			start = pos
		}
		seq = append(seq, tok)
		n = n.next[tok]
		if n == nil {
			return Inst{}, false, &ParseError{Kind: UnknownOpcode, Pos: start, Seq: seq}
		}
		if n.terminal {
			return p.parseArg(n.op, start)
		}
	}
}

// parseArg reads an LF-terminated bit sequence argument, if the opcode
// takes one.
func (p *Parser) parseArg(op Opcode, start Pos) (Inst, bool, error) {
	inst := Inst{Op: op, Pos: start}
	if op.Arg() == ArgNone {
		return inst, true, nil
	}
	var bits []Token
	for {
		tok, pos, ok, err := p.lex.Next()
		if err != nil {
			return Inst{}, false, &ParseError{Kind: LexFailure, Pos: pos, Lex: err}
		}
		if !ok {
			return Inst{}, false, &ParseError{Kind: UnterminatedArg, Pos: pos, Op: op}
		}
		if tok == LF {
			break
		}
		bits = append(bits, tok)
	}
	switch op.Arg() {
	case ArgInt:
		inst.Arg = parseInt(bits)
	case ArgLabel:
		inst.Label = labelBits(bits)
	}
	return inst, true, nil
}

// ParseAll decodes the whole stream, stopping at the first error.
func ParseAll(table *ParseTable, lex Lexer) ([]Inst, error) {
	p := NewParser(table, lex)
	var insts []Inst
	for {
		inst, ok, err := p.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return insts, nil
		}
		insts = append(insts, inst)
	}
}

// DetectFeatures reports which extensions an instruction stream uses.
func DetectFeatures(insts []Inst) Features {
	var fs Features
	for _, in := range insts {
		if f, gated := in.Op.Feature(); gated {
			fs = fs.With(f)
		}
	}
	return fs
}

package ws

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Assembly: textual mnemonic form of the instruction stream
// ---------------------------------------------------------------------------

// AssembleError reports a malformed assembly line.
type AssembleError struct {
	Line   int
	Detail string
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("asm: line %d: %s", e.Line, e.Detail)
}

// Assemble parses mnemonic assembly into an instruction stream. One
// instruction per line; `;` and `#` start comments. Labels are symbolic
// names and are interned to distinct bit patterns in order of first
// appearance.
//
//	push 10
//	loop:           ; same as `label loop`
//	  dup
//	  jz done
//	  printi
//	  push 1
//	  sub
//	  jmp loop
//	done:
//	  end
func Assemble(src string) ([]Inst, error) {
	labels := make(map[string]string) // name -> bit pattern
	intern := func(name string) string {
		if bits, ok := labels[name]; ok {
			return bits
		}
		// Dense patterns in order of first appearance.
		bits := strconv.FormatInt(int64(len(labels)), 2)
		labels[name] = bits
		return bits
	}

	var insts []Inst
	for lineno, line := range strings.Split(src, "\n") {
		pos := Pos{Line: lineno + 1, Col: 1}
		if i := strings.IndexAny(line, ";#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]

		// `name:` is shorthand for `label name`.
		if strings.HasSuffix(name, ":") && len(fields) == 1 {
			insts = append(insts, Inst{Op: Label, Label: intern(strings.TrimSuffix(name, ":")), Pos: pos})
			continue
		}

		op, ok := OpcodeByName(name)
		if !ok {
			return nil, &AssembleError{Line: lineno + 1, Detail: fmt.Sprintf("unknown mnemonic %q", name)}
		}
		inst := Inst{Op: op, Pos: pos}
		switch op.Arg() {
		case ArgNone:
			if len(fields) != 1 {
				return nil, &AssembleError{Line: lineno + 1, Detail: fmt.Sprintf("%s takes no operand", op)}
			}
		case ArgInt:
			if len(fields) != 2 {
				return nil, &AssembleError{Line: lineno + 1, Detail: fmt.Sprintf("%s requires an integer operand", op)}
			}
			n, ok := new(big.Int).SetString(fields[1], 10)
			if !ok {
				return nil, &AssembleError{Line: lineno + 1, Detail: fmt.Sprintf("bad integer %q", fields[1])}
			}
			inst.Arg = n
		case ArgLabel:
			if len(fields) != 2 {
				return nil, &AssembleError{Line: lineno + 1, Detail: fmt.Sprintf("%s requires a label operand", op)}
			}
			inst.Label = intern(fields[1])
		}
		insts = append(insts, inst)
	}
	return insts, nil
}

// Disassemble renders an instruction stream in mnemonic form. Labels are
// shown by their numeric value with the raw pattern in a comment when they
// differ (leading zeros).
func Disassemble(insts []Inst) string {
	var sb strings.Builder
	for _, in := range insts {
		if in.Op == Label {
			fmt.Fprintf(&sb, "label %s", LabelNumber(in.Label))
		} else {
			sb.WriteString("  ")
			sb.WriteString(in.String())
		}
		if in.Op.Arg() == ArgLabel {
			canonical := LabelNumber(in.Label).Text(2)
			if in.Label != canonical && !(in.Label == "" && canonical == "0") {
				fmt.Fprintf(&sb, " ; bits %s", in.Label)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// EmitTokens encodes an instruction stream back to tokens, the inverse of
// parsing. Useful for generating .ws sources from assembly.
func EmitTokens(insts []Inst) []Token {
	var toks []Token
	for _, in := range insts {
		toks = append(toks, in.Op.Tokens()...)
		switch in.Op.Arg() {
		case ArgInt:
			toks = append(toks, intTokens(in.Arg)...)
			toks = append(toks, LF)
		case ArgLabel:
			for _, b := range in.Label {
				if b == '1' {
					toks = append(toks, Tab)
				} else {
					toks = append(toks, Space)
				}
			}
			toks = append(toks, LF)
		}
	}
	return toks
}

// EmitText encodes an instruction stream as source text under a mapping.
func EmitText(insts []Inst, m Mapping) string {
	var sb strings.Builder
	for _, tok := range EmitTokens(insts) {
		switch tok {
		case Space:
			sb.WriteRune(m.Space)
		case Tab:
			sb.WriteRune(m.Tab)
		case LF:
			sb.WriteRune(m.LF)
		}
	}
	return sb.String()
}

func intTokens(n *big.Int) []Token {
	if n == nil || n.Sign() == 0 {
		return []Token{Space} // sign bit only: zero
	}
	var toks []Token
	if n.Sign() < 0 {
		toks = append(toks, Tab)
	} else {
		toks = append(toks, Space)
	}
	for _, b := range new(big.Int).Abs(n).Text(2) {
		if b == '1' {
			toks = append(toks, Tab)
		} else {
			toks = append(toks, Space)
		}
	}
	return toks
}

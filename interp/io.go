package interp

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// ---------------------------------------------------------------------------
// I/O surface
// ---------------------------------------------------------------------------

// Input supplies characters and numbers to read instructions. Both
// methods return io.EOF when the source is exhausted; the interpreter
// surfaces that as a fault.
type Input interface {
	ReadChar() (rune, error)
	ReadInt() (*big.Int, error)
}

// Output receives characters and numbers from print instructions, in
// strict execution order. Implementations must not reorder or buffer
// across calls in a way that loses output already written before a fault.
type Output interface {
	WriteChar(r rune) error
	WriteInt(n *big.Int) error
}

// readerInput reads characters as runes and numbers as base-10 lines.
type readerInput struct {
	r *bufio.Reader
}

// NewReaderInput wraps an io.Reader as an Input. Numbers are read one per
// line, base 10, with an optional sign.
func NewReaderInput(r io.Reader) Input {
	return &readerInput{r: bufio.NewReader(r)}
}

func (in *readerInput) ReadChar() (rune, error) {
	r, _, err := in.r.ReadRune()
	return r, err
}

func (in *readerInput) ReadInt() (*big.Int, error) {
	line, err := in.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return nil, err
	}
	line = strings.TrimSpace(line)
	n, ok := new(big.Int).SetString(line, 10)
	if !ok {
		return nil, fmt.Errorf("not a number: %q", line)
	}
	return n, nil
}

// writerOutput writes straight through to an io.Writer, so everything
// printed before a fault is preserved.
type writerOutput struct {
	w io.Writer
}

// NewWriterOutput wraps an io.Writer as an Output.
func NewWriterOutput(w io.Writer) Output {
	return &writerOutput{w: w}
}

func (out *writerOutput) WriteChar(r rune) error {
	_, err := fmt.Fprintf(out.w, "%c", r)
	return err
}

func (out *writerOutput) WriteInt(n *big.Int) error {
	_, err := fmt.Fprint(out.w, n.String())
	return err
}

package ws

import "fmt"

// ---------------------------------------------------------------------------
// Token: the three-character Whitespace alphabet
// ---------------------------------------------------------------------------

// Token is one of the three significant characters in a Whitespace program.
type Token uint8

const (
	Space Token = iota
	Tab
	LF
)

// String returns the conventional STL name for the token.
func (t Token) String() string {
	switch t {
	case Space:
		return "S"
	case Tab:
		return "T"
	case LF:
		return "L"
	}
	return fmt.Sprintf("Token(%d)", uint8(t))
}

// Mapping assigns a source rune to each token. The zero value is not
// usable; call DefaultMapping for the standard space/tab/linefeed mapping.
type Mapping struct {
	Space rune
	Tab   rune
	LF    rune
}

// DefaultMapping returns the standard Whitespace character mapping.
func DefaultMapping() Mapping {
	return Mapping{Space: ' ', Tab: '\t', LF: '\n'}
}

// TokenOf returns the token for a rune, or false if the rune is not
// significant under this mapping.
func (m Mapping) TokenOf(r rune) (Token, bool) {
	switch r {
	case m.Space:
		return Space, true
	case m.Tab:
		return Tab, true
	case m.LF:
		return LF, true
	}
	return 0, false
}

// Pos is a source position. Offset is in bytes; Line and Col are 1-based
// and count runes.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

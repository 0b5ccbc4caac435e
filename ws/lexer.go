package ws

import (
	"fmt"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: source characters to tokens
// ---------------------------------------------------------------------------

// Lexer produces a stream of tokens with their source positions. Next
// returns ok=false once the source is exhausted.
type Lexer interface {
	Next() (tok Token, pos Pos, ok bool, err error)
}

// LexError reports an invalid byte sequence in the source.
type LexError struct {
	Pos Pos
}

func (e *LexError) Error() string {
	return fmt.Sprintf("invalid UTF-8 sequence at %s", e.Pos)
}

// TextLexer scans UTF-8 (or raw byte) source for mapped token runes.
// Runes outside the mapping are ignored, per the language definition.
type TextLexer struct {
	src     []byte
	mapping Mapping
	offset  int
	line    int
	col     int
	ascii   bool // skip UTF-8 validation, treat source as bytes
}

// NewTextLexer returns a lexer over UTF-8 source text.
func NewTextLexer(src []byte, mapping Mapping) *TextLexer {
	return &TextLexer{src: src, mapping: mapping, line: 1, col: 1}
}

// NewByteLexer returns a lexer that treats the source as raw bytes,
// without UTF-8 validation.
func NewByteLexer(src []byte, mapping Mapping) *TextLexer {
	return &TextLexer{src: src, mapping: mapping, line: 1, col: 1, ascii: true}
}

// Next returns the next significant token.
func (l *TextLexer) Next() (Token, Pos, bool, error) {
	for l.offset < len(l.src) {
		pos := Pos{Offset: l.offset, Line: l.line, Col: l.col}

		var r rune
		var size int
		if l.ascii {
			r, size = rune(l.src[l.offset]), 1
		} else {
			r, size = utf8.DecodeRune(l.src[l.offset:])
			if r == utf8.RuneError && size == 1 {
				return 0, pos, false, &LexError{Pos: pos}
			}
		}
		l.offset += size
		if r == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}

		if tok, ok := l.mapping.TokenOf(r); ok {
			return tok, pos, true, nil
		}
	}
	return 0, Pos{Offset: l.offset, Line: l.line, Col: l.col}, false, nil
}

// tokenLexer replays a fixed token sequence. Used by tests and by the
// assembler when re-emitting instruction encodings.
type tokenLexer struct {
	toks []Token
	i    int
}

func (l *tokenLexer) Next() (Token, Pos, bool, error) {
	if l.i >= len(l.toks) {
		return 0, Pos{Offset: l.i}, false, nil
	}
	t := l.toks[l.i]
	pos := Pos{Offset: l.i, Line: 1, Col: l.i + 1}
	l.i++
	return t, pos, true, nil
}

// NewTokenLexer returns a Lexer over a pre-decoded token sequence.
func NewTokenLexer(toks []Token) Lexer {
	return &tokenLexer{toks: toks}
}

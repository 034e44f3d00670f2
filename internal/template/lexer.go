// Package template fills [[identifier]] placeholders in card titles,
// descriptions and native queries.
package template

import (
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants.
const (
	TokenText        TokenType = iota // Literal text
	TokenPlaceholder                  // [[identifier]]
	TokenEOF                          // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenPlaceholder:
		return "PLACEHOLDER"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Position tracks where a token starts.
type Position struct {
	Line   int
	Column int
}

// Token is a lexical token. For placeholders Value holds the identifier and
// Raw the full "[[identifier]]" text.
type Token struct {
	Type  TokenType
	Value string
	Raw   string
	Pos   Position
}

const (
	openDelim  = "[["
	closeDelim = "]]"
)

// Lexer splits a template into text and placeholder tokens. It never fails:
// malformed placeholders are returned as text.
type Lexer struct {
	input    string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, col: 1}
}

// Tokenize converts the input into tokens, ending with TokenEOF. Adjacent
// text is merged into one token.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.nextToken()
		if tok.Type == TokenText && len(tokens) > 0 && tokens[len(tokens)-1].Type == TokenText {
			tokens[len(tokens)-1].Value += tok.Value
			tokens[len(tokens)-1].Raw += tok.Raw
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

func (l *Lexer) nextToken() Token {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}
	}
	if l.matchString(openDelim) {
		if tok, ok := l.scanPlaceholder(); ok {
			return tok
		}
		// Not a placeholder: emit the first bracket as text and move on.
		l.markStart()
		l.advance()
		return Token{Type: TokenText, Value: "[", Raw: "[", Pos: l.startPosition()}
	}
	return l.scanText()
}

// scanText scans literal text until a placeholder opener or EOF.
func (l *Lexer) scanText() Token {
	l.markStart()
	start := l.pos
	for l.pos < len(l.input) && !l.matchString(openDelim) {
		l.advance()
	}
	text := l.input[start:l.pos]
	return Token{Type: TokenText, Value: text, Raw: text, Pos: l.startPosition()}
}

// scanPlaceholder scans "[[identifier]]". The identifier must be non-empty
// and contain no brackets; otherwise nothing is consumed.
func (l *Lexer) scanPlaceholder() (Token, bool) {
	body := l.input[l.pos+len(openDelim):]
	end := strings.IndexAny(body, "[]")
	if end <= 0 || !strings.HasPrefix(body[end:], closeDelim) {
		return Token{}, false
	}

	l.markStart()
	raw := l.input[l.pos : l.pos+len(openDelim)+end+len(closeDelim)]
	for range utf8.RuneCountInString(raw) {
		l.advance()
	}
	return Token{
		Type:  TokenPlaceholder,
		Value: body[:end],
		Raw:   raw,
		Pos:   l.startPosition(),
	}, true
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.col}
}

func (l *Lexer) startPosition() Position {
	return Position{Line: l.lastLine, Column: l.lastCol}
}

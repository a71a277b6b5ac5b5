package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF        TokenType = iota
	TokenKeyword              // obj, endobj, stream, xref, trailer, R, n, f, true, null, ...
	TokenInteger              // 123
	TokenReal                 // 3.14
	TokenString               // (hello)
	TokenHexString            // <48656C6C6F>, Value holds the decoded bytes
	TokenName                 // /Type, Value holds the name without the slash
	TokenArrayStart           // [
	TokenArrayEnd             // ]
	TokenDictStart            // <<
	TokenDictEnd              // >>
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of input"
	case TokenKeyword:
		return "keyword"
	case TokenInteger:
		return "integer"
	case TokenReal:
		return "real"
	case TokenString:
		return "string"
	case TokenHexString:
		return "hex string"
	case TokenName:
		return "name"
	case TokenArrayStart:
		return "'['"
	case TokenArrayEnd:
		return "']'"
	case TokenDictStart:
		return "'<<'"
	case TokenDictEnd:
		return "'>>'"
	default:
		return "unknown token"
	}
}

// Token represents a lexical token. Pos is the offset of its first byte and
// End the offset just past its last byte.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
	End   int64
}

// IsKeyword reports whether the token is the bare keyword kw.
func (t *Token) IsKeyword(kw string) bool {
	return t != nil && t.Type == TokenKeyword && string(t.Value) == kw
}

// Describe renders the token for diagnostics.
func (t *Token) Describe() string {
	if t == nil {
		return "nothing"
	}
	switch t.Type {
	case TokenEOF, TokenArrayStart, TokenArrayEnd, TokenDictStart, TokenDictEnd:
		return t.Type.String()
	case TokenName:
		return fmt.Sprintf("name /%s", t.Value)
	case TokenString, TokenHexString:
		return fmt.Sprintf("%s of %d bytes", t.Type, len(t.Value))
	default:
		return fmt.Sprintf("%s '%s'", t.Type, t.Value)
	}
}

// Lexer performs lexical analysis of PDF content. Whitespace and comments are
// consumed silently.
type Lexer struct {
	reader *bufio.Reader
	pos    int64
}

// NewLexer creates a lexer reading r, whose first byte sits at offset base in
// the underlying file.
func NewLexer(r io.Reader, base int64) *Lexer {
	return &Lexer{reader: bufio.NewReader(r), pos: base}
}

// Reset discards buffered input and continues lexing r from offset pos. The
// caller must have positioned r at pos.
func (l *Lexer) Reset(r io.Reader, pos int64) {
	l.reader.Reset(r)
	l.pos = pos
}

// Position returns the offset of the next unread byte.
func (l *Lexer) Position() int64 {
	return l.pos
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (*Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return nil, err
	}

	b, err := l.peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.pos, End: l.pos}, nil
	}
	if err != nil {
		return nil, err
	}

	start := l.pos
	switch b {
	case '[':
		l.readByte()
		return l.token(TokenArrayStart, nil, start), nil
	case ']':
		l.readByte()
		return l.token(TokenArrayEnd, nil, start), nil
	case '(':
		return l.readString()
	case '<':
		next, err := l.peekN(2)
		if err == nil && len(next) == 2 && next[1] == '<' {
			l.readByte()
			l.readByte()
			return l.token(TokenDictStart, nil, start), nil
		}
		return l.readHexString()
	case '>':
		next, err := l.peekN(2)
		if err == nil && len(next) == 2 && next[1] == '>' {
			l.readByte()
			l.readByte()
			return l.token(TokenDictEnd, nil, start), nil
		}
		return nil, l.errorf(start, "unexpected '>'")
	case '/':
		return l.readName()
	case ')', '{', '}':
		return nil, l.errorf(start, "unexpected '%c'", b)
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber()
	}
	return l.readKeyword()
}

func (l *Lexer) token(t TokenType, value []byte, start int64) *Token {
	return &Token{Type: t, Value: value, Pos: start, End: l.pos}
}

func (l *Lexer) errorf(offset int64, format string, args ...interface{}) error {
	return &LexError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// readByte reads a single byte and advances position
func (l *Lexer) readByte() (byte, error) {
	b, err := l.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

// peek looks at the next byte without consuming it
func (l *Lexer) peek() (byte, error) {
	b, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (l *Lexer) peekN(n int) ([]byte, error) {
	return l.reader.Peek(n)
}

// skipWhitespaceAndComments consumes whitespace and % comments. A comment must
// be closed by an end-of-line marker.
func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		b, err := l.peek()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case isWhitespace(b):
			l.readByte()
		case b == '%':
			if err := l.skipComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) skipComment() error {
	start := l.pos
	l.readByte()
	for {
		b, err := l.readByte()
		if err == io.EOF {
			return l.errorf(start, "unterminated comment")
		}
		if err != nil {
			return err
		}
		if b == '\r' || b == '\n' {
			return nil
		}
	}
}

// readString reads a literal string (hello), resolving escapes and keeping
// balanced inner parentheses.
func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.readByte()

	var buf bytes.Buffer
	depth := 1
	for {
		b, err := l.readByte()
		if err == io.EOF {
			return nil, l.errorf(start, "unterminated literal string")
		}
		if err != nil {
			return nil, err
		}

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return l.token(TokenString, buf.Bytes(), start), nil
			}
			buf.WriteByte(b)
		case '\\':
			next, err := l.readByte()
			if err == io.EOF {
				return nil, l.errorf(start, "unterminated literal string")
			}
			if err != nil {
				return nil, err
			}
			l.readEscape(&buf, next)
		case '\r':
			// An unescaped end-of-line is always read as a single \n.
			if peek, err := l.peek(); err == nil && peek == '\n' {
				l.readByte()
			}
			buf.WriteByte('\n')
		default:
			buf.WriteByte(b)
		}
	}
}

func (l *Lexer) readEscape(buf *bytes.Buffer, next byte) {
	switch next {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '(', ')', '\\':
		buf.WriteByte(next)
	case '\r', '\n':
		// line continuation
		if next == '\r' {
			if peek, err := l.peek(); err == nil && peek == '\n' {
				l.readByte()
			}
		}
	case '0', '1', '2', '3', '4', '5', '6', '7':
		val := next - '0'
		for i := 0; i < 2; i++ {
			peek, err := l.peek()
			if err != nil || !isOctalDigit(peek) {
				break
			}
			l.readByte()
			val = val*8 + (peek - '0')
		}
		buf.WriteByte(val)
	default:
		// unknown escapes drop the backslash
		buf.WriteByte(next)
	}
}

// readHexString reads <48656C6C6F> and returns the decoded bytes. Whitespace is
// ignored and an odd final digit is padded with a zero nibble.
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.readByte()

	var out []byte
	var hi byte
	half := false
	for {
		b, err := l.readByte()
		if err == io.EOF {
			return nil, l.errorf(start, "unterminated hex string")
		}
		if err != nil {
			return nil, err
		}
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, l.errorf(l.pos-1, "invalid hex digit '%c'", b)
		}
		if half {
			out = append(out, hi<<4|hexValue(b))
		} else {
			hi = hexValue(b)
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	if out == nil {
		out = []byte{}
	}
	return l.token(TokenHexString, out, start), nil
}

// readName reads a name object /Type, decoding #xx escapes.
func (l *Lexer) readName() (*Token, error) {
	start := l.pos
	l.readByte()

	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.readByte()

		if b != '#' {
			buf.WriteByte(b)
			continue
		}
		hex, err := l.peekN(2)
		if err != nil || len(hex) < 2 || !isHexDigit(hex[0]) || !isHexDigit(hex[1]) {
			return nil, l.errorf(l.pos-1, "invalid hex escape in name")
		}
		l.readByte()
		l.readByte()
		buf.WriteByte(hexValue(hex[0])<<4 | hexValue(hex[1]))
	}

	return l.token(TokenName, buf.Bytes(), start), nil
}

// readNumber reads an integer or real number
func (l *Lexer) readNumber() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	hasDecimal := false
	digits := 0

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if b == '.' {
			if hasDecimal {
				break
			}
			hasDecimal = true
		} else if isDigit(b) {
			digits++
		} else if buf.Len() != 0 || (b != '-' && b != '+') {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	if digits == 0 {
		return nil, l.errorf(start, "malformed number %q", buf.String())
	}
	tokenType := TokenInteger
	if hasDecimal {
		tokenType = TokenReal
	}
	return l.token(tokenType, buf.Bytes(), start), nil
}

// readKeyword reads a run of regular characters (obj, endobj, R, true, ...).
func (l *Lexer) readKeyword() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer

	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}

	return l.token(TokenKeyword, buf.Bytes(), start), nil
}

func isWhitespace(b byte) bool {
	// PDF whitespace: space, tab, LF, CR, FF, null
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

package generic

import (
	"strconv"
)

// TokenType classifies the lexical tokens of the PDF syntax.
type TokenType int

const (
	// TokenEOF marks the end of the input buffer.
	TokenEOF TokenType = iota
	// TokenInteger is a whole number, possibly signed.
	TokenInteger
	// TokenReal is a number containing a decimal point.
	TokenReal
	// TokenString is a literal string; Value holds the decoded bytes.
	TokenString
	// TokenHexString is a hexadecimal string; Value holds the decoded bytes.
	TokenHexString
	// TokenName is a name; Value holds the text with #xx sequences decoded,
	// without the leading slash.
	TokenName
	// TokenArrayBegin is "[".
	TokenArrayBegin
	// TokenArrayEnd is "]".
	TokenArrayEnd
	// TokenDictBegin is "<<".
	TokenDictBegin
	// TokenDictEnd is ">>".
	TokenDictEnd
	// TokenKeyword is any bareword: obj, endobj, stream, endstream, xref,
	// trailer, startxref, true, false, null, R, and anything else regular.
	TokenKeyword
)

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
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
	case TokenArrayBegin:
		return "'['"
	case TokenArrayEnd:
		return "']'"
	case TokenDictBegin:
		return "'<<'"
	case TokenDictEnd:
		return "'>>'"
	case TokenKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// Token is a single lexical token together with the byte offset at which it
// starts in the input buffer.
type Token struct {
	Type   TokenType
	Value  []byte
	Int    int64
	Float  float64
	Offset int64
}

// IsKeyword reports whether the token is the given bareword.
func (t Token) IsKeyword(kw string) bool {
	return t.Type == TokenKeyword && string(t.Value) == kw
}

// Lexer tokenizes a PDF byte buffer. The cursor is explicit state on the
// lexer, so multiple lexers over the same buffer are independent and a
// nested parse never disturbs an outer one.
type Lexer struct {
	data   []byte
	pos    int64
	peeked []Token
}

// NewLexer creates a lexer over data, starting at offset 0.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// NewLexerAt creates a lexer over data with the cursor at offset.
func NewLexerAt(data []byte, offset int64) *Lexer {
	return &Lexer{data: data, pos: offset}
}

// Pos returns the byte offset of the next unconsumed byte. Tokens obtained
// via Peek are not yet consumed; Pos is only meaningful for raw byte access
// when the peek buffer is empty.
func (l *Lexer) Pos() int64 {
	return l.pos
}

// SeekTo repositions the cursor and discards any peeked tokens.
func (l *Lexer) SeekTo(offset int64) {
	l.pos = offset
	l.peeked = l.peeked[:0]
}

// NextToken consumes and returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	if len(l.peeked) > 0 {
		tok := l.peeked[0]
		copy(l.peeked, l.peeked[1:])
		l.peeked = l.peeked[:len(l.peeked)-1]
		return tok, nil
	}
	return l.scan()
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	return l.PeekN(0)
}

// PeekN returns the n-th upcoming token (0 = next) without consuming any.
// The parser needs two tokens of lookahead to disambiguate "1 0 R" from a
// plain number.
func (l *Lexer) PeekN(n int) (Token, error) {
	for len(l.peeked) <= n {
		tok, err := l.scan()
		if err != nil {
			return Token{}, err
		}
		l.peeked = append(l.peeked, tok)
	}
	return l.peeked[n], nil
}

func isWhitespaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\x00' || b == '\x0c'
}

func isDelimiterByte(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' ||
		b == '[' || b == ']' || b == '{' || b == '}' ||
		b == '/' || b == '%'
}

// skipWhitespace advances past whitespace and comments.
func (l *Lexer) skipWhitespace() {
	for l.pos < int64(len(l.data)) {
		b := l.data[l.pos]
		if isWhitespaceByte(b) {
			l.pos++
			continue
		}
		if b == '%' {
			// Comment runs to end of line. %PDF- and %%EOF are located by
			// the xref resolver through direct buffer scans, never through
			// the token stream, so the lexer treats every comment alike.
			for l.pos < int64(len(l.data)) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// scan produces the next token from the raw buffer.
func (l *Lexer) scan() (Token, error) {
	l.skipWhitespace()

	start := l.pos
	if l.pos >= int64(len(l.data)) {
		return Token{Type: TokenEOF, Offset: start}, nil
	}

	b := l.data[l.pos]
	switch {
	case b == '[':
		l.pos++
		return Token{Type: TokenArrayBegin, Offset: start}, nil
	case b == ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Offset: start}, nil
	case b == '<':
		if l.pos+1 < int64(len(l.data)) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Type: TokenDictBegin, Offset: start}, nil
		}
		l.pos++
		return l.scanHexString(start)
	case b == '>':
		if l.pos+1 < int64(len(l.data)) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Offset: start}, nil
		}
		return Token{}, NewLexError(start, "unexpected '>'")
	case b == '(':
		l.pos++
		return l.scanLiteralString(start)
	case b == '/':
		l.pos++
		return l.scanName(start)
	case b == '{' || b == '}' || b == ')':
		return Token{}, NewLexError(start, "invalid delimiter %q", b)
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return l.scanNumber(start)
	default:
		return l.scanKeyword(start)
	}
}

// scanLiteralString scans a literal string after the opening parenthesis.
func (l *Lexer) scanLiteralString(start int64) (Token, error) {
	var out []byte
	depth := 1

	for {
		if l.pos >= int64(len(l.data)) {
			return Token{}, NewLexError(start, "unterminated string")
		}
		b := l.data[l.pos]
		l.pos++

		switch b {
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: out, Offset: start}, nil
			}
			out = append(out, b)
		case '\\':
			if l.pos >= int64(len(l.data)) {
				return Token{}, NewLexError(start, "unterminated string")
			}
			esc := l.data[l.pos]
			l.pos++
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, esc)
			case '\r':
				// Line continuation; swallow an optional LF.
				if l.pos < int64(len(l.data)) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
				// Line continuation.
			default:
				if esc >= '0' && esc <= '7' {
					val := int(esc - '0')
					for i := 0; i < 2 && l.pos < int64(len(l.data)); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(val))
				} else {
					// Unknown escapes drop the backslash.
					out = append(out, esc)
				}
			}
		default:
			out = append(out, b)
		}
	}
}

// scanHexString scans a hex string after the opening angle bracket. Internal
// whitespace is ignored; an odd trailing digit is padded with 0.
func (l *Lexer) scanHexString(start int64) (Token, error) {
	var out []byte
	var hi byte
	haveHi := false

	for {
		if l.pos >= int64(len(l.data)) {
			return Token{}, NewLexError(start, "unterminated hex string")
		}
		b := l.data[l.pos]
		l.pos++

		if b == '>' {
			if haveHi {
				out = append(out, hi<<4)
			}
			return Token{Type: TokenHexString, Value: out, Offset: start}, nil
		}
		if isWhitespaceByte(b) {
			continue
		}

		v, ok := hexDigit(b)
		if !ok {
			return Token{}, NewLexError(l.pos-1, "invalid hex digit %q", b)
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
}

func hexDigit(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

// scanName scans a name after the slash, decoding #xx sequences.
func (l *Lexer) scanName(start int64) (Token, error) {
	var out []byte
	for l.pos < int64(len(l.data)) {
		b := l.data[l.pos]
		if isWhitespaceByte(b) || isDelimiterByte(b) {
			break
		}
		l.pos++
		if b == '#' {
			if l.pos+1 >= int64(len(l.data)) {
				return Token{}, NewLexError(start, "truncated #xx escape in name")
			}
			hi, ok1 := hexDigit(l.data[l.pos])
			lo, ok2 := hexDigit(l.data[l.pos+1])
			if !ok1 || !ok2 {
				return Token{}, NewLexError(l.pos, "invalid #xx escape in name")
			}
			out = append(out, hi<<4|lo)
			l.pos += 2
		} else {
			out = append(out, b)
		}
	}
	return Token{Type: TokenName, Value: out, Offset: start}, nil
}

// scanNumber scans a number in PDF's relaxed grammar: optional sign, and
// either side of the decimal point may be empty. No exponents.
func (l *Lexer) scanNumber(start int64) (Token, error) {
	hasDigit := false
	hasDot := false

	if b := l.data[l.pos]; b == '+' || b == '-' {
		l.pos++
	}
	for l.pos < int64(len(l.data)) {
		b := l.data[l.pos]
		if b >= '0' && b <= '9' {
			hasDigit = true
			l.pos++
		} else if b == '.' && !hasDot {
			hasDot = true
			l.pos++
		} else {
			break
		}
	}

	text := string(l.data[start:l.pos])
	if !hasDigit {
		return Token{}, NewLexError(start, "invalid number %q", text)
	}

	if hasDot {
		// strconv accepts "4." and ".5" but not "-." (no digits, already
		// rejected above).
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, NewLexError(start, "invalid number %q", text)
		}
		return Token{Type: TokenReal, Value: []byte(text), Float: f, Offset: start}, nil
	}

	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, NewLexError(start, "invalid number %q", text)
	}
	return Token{Type: TokenInteger, Value: []byte(text), Int: i, Offset: start}, nil
}

// scanKeyword scans a bareword of regular characters.
func (l *Lexer) scanKeyword(start int64) (Token, error) {
	for l.pos < int64(len(l.data)) {
		b := l.data[l.pos]
		if isWhitespaceByte(b) || isDelimiterByte(b) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		return Token{}, NewLexError(start, "invalid character %q", l.data[start])
	}
	return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Offset: start}, nil
}

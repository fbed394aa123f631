package generic

import (
	"bytes"
	"fmt"
)

// Parser builds PDF objects from the token stream of a Lexer. The cursor is
// explicit state on the parser, so a nested parse (resolving one object
// while mid-parse of another) never disturbs the outer parse.
type Parser struct {
	data []byte
	lex  *Lexer

	// ResolveLength, when set, resolves an indirect /Length reference while
	// promoting a dictionary into a stream. When nil or unsuccessful, the
	// parser falls back to scanning for "endstream" and marks the stream's
	// length provisional.
	ResolveLength func(ref Reference) (int64, bool)
}

// NewParserFromBytes creates a parser over data, starting at offset 0.
func NewParserFromBytes(data []byte) *Parser {
	return &Parser{data: data, lex: NewLexer(data)}
}

// NewParserAt creates a parser over data with the cursor at offset.
func NewParserAt(data []byte, offset int64) *Parser {
	return &Parser{data: data, lex: NewLexerAt(data, offset)}
}

// Pos returns the current byte offset of the underlying lexer.
func (p *Parser) Pos() int64 {
	return p.lex.Pos()
}

// NextToken consumes and returns the next token.
func (p *Parser) NextToken() (Token, error) {
	return p.lex.NextToken()
}

// PeekToken returns the next token without consuming it.
func (p *Parser) PeekToken() (Token, error) {
	return p.lex.Peek()
}

// ExpectInteger consumes the next token, which must be an integer.
func (p *Parser) ExpectInteger() (int64, error) {
	tok, err := p.lex.NextToken()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, UnexpectedTokenError(TokenInteger, tok.Type, tok.Offset)
	}
	return tok.Int, nil
}

// ExpectKeyword consumes the next token, which must be the given bareword.
func (p *Parser) ExpectKeyword(kw string) error {
	tok, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	if !tok.IsKeyword(kw) {
		return fmt.Errorf("%w: expected keyword %q, got %s at offset %d",
			ErrUnexpectedToken, kw, tok.Type, tok.Offset)
	}
	return nil
}

// ParseValue parses one PDF value at the cursor and advances past it.
// References are recognized through two-token lookahead on the pattern
// "<int> <int> R".
func (p *Parser) ParseValue() (PdfObject, error) {
	tok, err := p.lex.Peek()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, fmt.Errorf("%w at offset %d", ErrUnexpectedEOF, tok.Offset)
	case TokenDictBegin:
		p.lex.NextToken()
		return p.parseDictionary()
	case TokenArrayBegin:
		p.lex.NextToken()
		return p.parseArray()
	case TokenName:
		p.lex.NextToken()
		return NameObject(tok.Value), nil
	case TokenString:
		p.lex.NextToken()
		return &StringObject{Value: tok.Value}, nil
	case TokenHexString:
		p.lex.NextToken()
		return &StringObject{Value: tok.Value, IsHex: true}, nil
	case TokenReal:
		p.lex.NextToken()
		return RealObject(tok.Float), nil
	case TokenInteger:
		return p.parseNumberOrReference()
	case TokenKeyword:
		switch string(tok.Value) {
		case "true":
			p.lex.NextToken()
			return BooleanObject(true), nil
		case "false":
			p.lex.NextToken()
			return BooleanObject(false), nil
		case "null":
			p.lex.NextToken()
			return NullObject{}, nil
		}
		return nil, fmt.Errorf("%w: unexpected keyword %q at offset %d",
			ErrUnexpectedToken, tok.Value, tok.Offset)
	default:
		return nil, fmt.Errorf("%w: unexpected %s at offset %d",
			ErrUnexpectedToken, tok.Type, tok.Offset)
	}
}

// parseNumberOrReference disambiguates a plain integer from the three-token
// reference pattern.
func (p *Parser) parseNumberOrReference() (PdfObject, error) {
	tok, err := p.lex.Peek()
	if err != nil {
		return nil, err
	}

	// A lookahead failure (lex error two tokens ahead) does not invalidate
	// the number itself; the error resurfaces when those tokens are read.
	t1, err1 := p.lex.PeekN(1)
	t2, err2 := p.lex.PeekN(2)
	if err1 == nil && err2 == nil &&
		tok.Int >= 0 && t1.Type == TokenInteger && t1.Int >= 0 && t2.IsKeyword("R") {
		p.lex.NextToken()
		p.lex.NextToken()
		p.lex.NextToken()
		return Reference{ObjectNumber: int(tok.Int), GenerationNumber: int(t1.Int)}, nil
	}

	p.lex.NextToken()
	return IntegerObject(tok.Int), nil
}

// parseDictionary parses entries after "<<" up to the matching ">>".
func (p *Parser) parseDictionary() (*DictionaryObject, error) {
	dict := NewDictionary()

	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("%w: dictionary not closed at offset %d", ErrUnexpectedEOF, tok.Offset)
		case TokenName:
			value, err := p.ParseValue()
			if err != nil {
				return nil, fmt.Errorf("invalid value for key /%s: %w", tok.Value, err)
			}
			dict.Set(string(tok.Value), value)
		default:
			return nil, UnexpectedTokenError(TokenName, tok.Type, tok.Offset)
		}
	}
}

// parseArray parses elements after "[" up to the matching "]".
func (p *Parser) parseArray() (ArrayObject, error) {
	var arr ArrayObject

	for {
		tok, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case TokenArrayEnd:
			p.lex.NextToken()
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("%w: array not closed at offset %d", ErrUnexpectedEOF, tok.Offset)
		default:
			elem, err := p.ParseValue()
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
	}
}

// ParseIndirectObject parses a top-level "N G obj ... endobj" definition at
// the cursor. A dictionary followed by the keyword "stream" is promoted
// into a StreamObject.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	objNum, err := p.ExpectInteger()
	if err != nil {
		return nil, fmt.Errorf("%w: bad object number: %v", ErrInvalidObject, err)
	}
	genNum, err := p.ExpectInteger()
	if err != nil {
		return nil, fmt.Errorf("%w: bad generation number: %v", ErrInvalidObject, err)
	}
	if err := p.ExpectKeyword("obj"); err != nil {
		return nil, err
	}

	obj, err := p.ParseValue()
	if err != nil {
		return nil, err
	}

	if dict, ok := obj.(*DictionaryObject); ok {
		tok, err := p.lex.Peek()
		if err == nil && tok.IsKeyword("stream") {
			p.lex.NextToken()
			stream, err := p.parseStreamPayload(dict)
			if err != nil {
				return nil, err
			}
			obj = stream
		}
	}

	// endobj is consumed when present; some producers omit it.
	if tok, err := p.lex.Peek(); err == nil && tok.IsKeyword("endobj") {
		p.lex.NextToken()
	}

	return NewIndirectObject(int(objNum), int(genNum), obj), nil
}

// parseStreamPayload reads the raw payload after the "stream" keyword. The
// payload begins after the single EOL following the keyword and runs for
// /Length bytes; an indirect /Length that cannot be resolved triggers a
// best-effort scan for "endstream".
func (p *Parser) parseStreamPayload(dict *DictionaryObject) (*StreamObject, error) {
	start := p.lex.Pos()
	if start < int64(len(p.data)) && p.data[start] == '\r' {
		start++
	}
	if start < int64(len(p.data)) && p.data[start] == '\n' {
		start++
	}

	length := int64(-1)
	switch l := dict.Get("Length").(type) {
	case IntegerObject:
		length = int64(l)
	case Reference:
		if p.ResolveLength != nil {
			if n, ok := p.ResolveLength(l); ok {
				length = n
			}
		}
	case nil:
		return nil, fmt.Errorf("%w: stream dictionary has no /Length", ErrInvalidObject)
	default:
		return nil, fmt.Errorf("%w: stream /Length is not an integer", ErrInvalidObject)
	}

	var stream *StreamObject
	if length >= 0 {
		if start+length > int64(len(p.data)) {
			return nil, fmt.Errorf("%w: stream payload truncated", ErrUnexpectedEOF)
		}
		stream = NewStream(dict, p.data[start:start+length])
		p.lex.SeekTo(start + length)
	} else {
		idx := bytes.Index(p.data[start:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("%w: missing endstream", ErrUnexpectedEOF)
		}
		payload := trimOneTrailingEOL(p.data[start : start+int64(idx)])
		stream = NewStream(dict, payload)
		stream.LengthProvisional = true
		p.lex.SeekTo(start + int64(idx))
	}

	if err := p.ExpectKeyword("endstream"); err != nil {
		return nil, fmt.Errorf("%w: stream payload does not end at endstream", ErrCorruptedFile)
	}
	return stream, nil
}

// trimOneTrailingEOL removes at most one EOL sequence from the end of the
// scanned payload, which belongs to the file structure rather than the
// stream data.
func trimOneTrailingEOL(data []byte) []byte {
	n := len(data)
	if n > 0 && data[n-1] == '\n' {
		n--
		if n > 0 && data[n-1] == '\r' {
			n--
		}
	} else if n > 0 && data[n-1] == '\r' {
		n--
	}
	return data[:n]
}

// ValidateStreamLength re-validates a provisionally sized stream against
// the /Length value resolved through the xref table. The scan may have
// included file-structure EOL bytes; anything beyond that tolerance is a
// corrupted file.
func ValidateStreamLength(s *StreamObject, length int64) error {
	if !s.LengthProvisional {
		return nil
	}
	actual := int64(len(s.Raw))
	switch {
	case actual == length:
	case actual > length && actual-length <= 2:
		s.Raw = s.Raw[:length]
	default:
		return fmt.Errorf("%w: stream length %d does not match declared /Length %d",
			ErrCorruptedFile, actual, length)
	}
	s.Dictionary.Set("Length", IntegerObject(length))
	s.LengthProvisional = false
	return nil
}

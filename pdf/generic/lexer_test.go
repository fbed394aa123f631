package generic

import (
	"bytes"
	"testing"
)

func TestLexerTokenOffsets(t *testing.T) {
	input := []byte("1 0 obj << /Type /Page >>")
	lexer := NewLexer(input)

	expected := []struct {
		typ    TokenType
		offset int64
	}{
		{TokenInteger, 0},
		{TokenInteger, 2},
		{TokenKeyword, 4},
		{TokenDictBegin, 8},
		{TokenName, 11},
		{TokenName, 17},
		{TokenDictEnd, 23},
		{TokenEOF, 25},
	}

	for i, want := range expected {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
		if tok.Type != want.typ {
			t.Errorf("token %d: expected %s, got %s", i, want.typ, tok.Type)
		}
		if tok.Offset != want.offset {
			t.Errorf("token %d: expected offset %d, got %d", i, want.offset, tok.Offset)
		}
	}
}

func TestLexerPeekDoesNotConsume(t *testing.T) {
	lexer := NewLexer([]byte("42 43"))

	tok, err := lexer.Peek()
	if err != nil || tok.Int != 42 {
		t.Fatalf("Peek: %v %v", tok, err)
	}

	tok2, err := lexer.PeekN(1)
	if err != nil || tok2.Int != 43 {
		t.Fatalf("PeekN(1): %v %v", tok2, err)
	}

	tok, err = lexer.NextToken()
	if err != nil || tok.Int != 42 {
		t.Fatalf("NextToken after peek: %v %v", tok, err)
	}
	tok, err = lexer.NextToken()
	if err != nil || tok.Int != 43 {
		t.Fatalf("second NextToken: %v %v", tok, err)
	}
}

func TestLexerSeekTo(t *testing.T) {
	input := []byte("111 222")
	lexer := NewLexer(input)

	if _, err := lexer.Peek(); err != nil {
		t.Fatal(err)
	}

	lexer.SeekTo(4)
	tok, err := lexer.NextToken()
	if err != nil || tok.Int != 222 {
		t.Fatalf("after SeekTo expected 222, got %v %v", tok, err)
	}
}

func TestLexerComments(t *testing.T) {
	input := []byte("% leading comment\n42 % trailing\n/Name")
	lexer := NewLexer(input)

	tok, err := lexer.NextToken()
	if err != nil || tok.Type != TokenInteger || tok.Int != 42 {
		t.Fatalf("expected 42, got %v %v", tok, err)
	}
	tok, err = lexer.NextToken()
	if err != nil || tok.Type != TokenName || string(tok.Value) != "Name" {
		t.Fatalf("expected /Name, got %v %v", tok, err)
	}
}

func TestLexerStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected []byte
	}{
		{"(a\\tb)", []byte("a\tb")},
		{"(a\\\nb)", []byte("ab")},   // line continuation
		{"(a\\\r\nb)", []byte("ab")}, // CRLF continuation
		{"(\\053)", []byte("+")},
		{"(\\q)", []byte("q")}, // unknown escape drops the backslash
	}

	for _, tt := range tests {
		lexer := NewLexer([]byte(tt.input))
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("%q: %v", tt.input, err)
		}
		if !bytes.Equal(tok.Value, tt.expected) {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, tok.Value)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []string{
		"(unterminated",
		"<AB", // unterminated hex
		"<A5G6>",
		">",
		"-",
		"/Bad#G0",
	}

	for _, input := range tests {
		lexer := NewLexer([]byte(input))
		_, err := lexer.NextToken()
		if err == nil {
			t.Errorf("%q: expected lex error", input)
			continue
		}
		if _, ok := err.(*LexError); !ok {
			t.Errorf("%q: expected *LexError, got %T", input, err)
		}
	}
}

func TestLexErrorOffset(t *testing.T) {
	lexer := NewLexer([]byte("42 >"))
	if _, err := lexer.NextToken(); err != nil {
		t.Fatal(err)
	}
	_, err := lexer.NextToken()
	lexErr, ok := err.(*LexError)
	if !ok {
		t.Fatalf("expected *LexError, got %v", err)
	}
	if lexErr.Offset != 3 {
		t.Errorf("expected offset 3, got %d", lexErr.Offset)
	}
}

func TestLexerEOFIsSticky(t *testing.T) {
	lexer := NewLexer([]byte("  "))
	for i := 0; i < 3; i++ {
		tok, err := lexer.NextToken()
		if err != nil || tok.Type != TokenEOF {
			t.Fatalf("call %d: expected EOF, got %v %v", i, tok, err)
		}
	}
}

package generic

import (
	"bytes"
	"testing"
)

func TestTextStringASCII(t *testing.T) {
	s := NewTextString("Hello")
	if !bytes.Equal(s.Value, []byte("Hello")) {
		t.Errorf("ASCII text must stay raw, got %v", s.Value)
	}
	if s.Text() != "Hello" {
		t.Errorf("Text() = %q", s.Text())
	}
}

func TestTextStringUnicode(t *testing.T) {
	s := NewTextString("Grüße 世界")
	if len(s.Value) < 2 || s.Value[0] != 0xFE || s.Value[1] != 0xFF {
		t.Fatalf("Unicode text must be UTF-16BE with BOM, got % X", s.Value)
	}
	if s.Text() != "Grüße 世界" {
		t.Errorf("Text() = %q", s.Text())
	}
}

func TestTextStringNoBOMStaysRaw(t *testing.T) {
	s := &StringObject{Value: []byte{0x48, 0x69}}
	if s.Text() != "Hi" {
		t.Errorf("Text() = %q", s.Text())
	}
}

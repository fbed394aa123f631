package generic

import (
	"errors"
	"fmt"
)

// Common errors for PDF parsing. Callers wrap these with context via %w;
// errors.Is against the sentinels is the supported way to classify failures.
var (
	ErrUnexpectedToken    = errors.New("unexpected token")
	ErrUnexpectedEOF      = errors.New("unexpected end of file")
	ErrInvalidObject      = errors.New("invalid PDF object")
	ErrInvalidXref        = errors.New("invalid xref")
	ErrCorruptedFile      = errors.New("corrupted file")
	ErrUnsupportedFeature = errors.New("unsupported feature")
)

// LexError reports a malformed token together with the byte offset at which
// lexing failed.
type LexError struct {
	Offset int64
	Msg    string
}

// Error implements the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Msg)
}

// NewLexError creates a LexError at the given offset.
func NewLexError(offset int64, format string, args ...interface{}) *LexError {
	return &LexError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// UnexpectedTokenError wraps ErrUnexpectedToken with the expected and actual
// token kinds and the offset of the offending token.
func UnexpectedTokenError(expected, actual TokenType, offset int64) error {
	return fmt.Errorf("%w: expected %s, got %s at offset %d",
		ErrUnexpectedToken, expected, actual, offset)
}

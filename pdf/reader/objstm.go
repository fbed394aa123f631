package reader

import (
	"fmt"

	"github.com/pdflex/pdflex/pdf/filters"
	"github.com/pdflex/pdflex/pdf/generic"
)

// ObjectStream is a parsed /Type /ObjStm container. The decoded payload
// starts with /N pairs of "objNum offset" integers; offsets are relative to
// /First.
type ObjectStream struct {
	N     int
	First int

	objectNumbers []int
	offsets       []int
	decoded       []byte
}

// ParseObjectStream decodes and indexes an object stream.
func ParseObjectStream(stream *generic.StreamObject) (*ObjectStream, error) {
	dict := stream.Dictionary

	n, ok := dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("%w: object stream lacks /N", generic.ErrInvalidObject)
	}
	first, ok := dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("%w: object stream lacks /First", generic.ErrInvalidObject)
	}

	decoded, err := filters.DecodeStreamObject(stream)
	if err != nil {
		return nil, err
	}
	if first > int64(len(decoded)) {
		return nil, fmt.Errorf("%w: /First beyond object stream payload", generic.ErrInvalidObject)
	}

	os := &ObjectStream{
		N:             int(n),
		First:         int(first),
		objectNumbers: make([]int, 0, n),
		offsets:       make([]int, 0, n),
		decoded:       decoded,
	}

	parser := generic.NewParserFromBytes(decoded[:first])
	for i := int64(0); i < n; i++ {
		objNum, err := parser.ExpectInteger()
		if err != nil {
			return nil, fmt.Errorf("%w: bad object stream header: %v", generic.ErrInvalidObject, err)
		}
		offset, err := parser.ExpectInteger()
		if err != nil {
			return nil, fmt.Errorf("%w: bad object stream header: %v", generic.ErrInvalidObject, err)
		}
		os.objectNumbers = append(os.objectNumbers, int(objNum))
		os.offsets = append(os.offsets, int(offset))
	}

	return os, nil
}

// ObjectNumbers returns the object numbers in stream order.
func (os *ObjectStream) ObjectNumbers() []int {
	return os.objectNumbers
}

// GetObject parses the object at the given index. Objects inside a stream
// are plain values: no "obj" wrapper and no nested streams.
func (os *ObjectStream) GetObject(index int) (generic.PdfObject, error) {
	if index < 0 || index >= len(os.offsets) {
		return nil, fmt.Errorf("%w: object stream index %d out of range [0, %d)",
			generic.ErrInvalidObject, index, len(os.offsets))
	}

	start := os.First + os.offsets[index]
	if start > len(os.decoded) {
		return nil, fmt.Errorf("%w: object stream offset beyond payload", generic.ErrInvalidObject)
	}

	parser := generic.NewParserAt(os.decoded, int64(start))
	obj, err := parser.ParseValue()
	if err != nil {
		return nil, fmt.Errorf("object stream index %d: %w", index, err)
	}
	return obj, nil
}

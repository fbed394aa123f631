// Package generic provides the PDF object model, lexer, and object parser.
package generic

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// PdfObject is the interface satisfied by every PDF value. The concrete
// variants form a closed set: NullObject, BooleanObject, IntegerObject,
// RealObject, NameObject, StringObject, ArrayObject, DictionaryObject,
// Reference, and StreamObject; consumers dispatch with type switches.
type PdfObject interface {
	// Write serializes the object in PDF syntax.
	Write(w io.Writer) error
	// Clone creates a deep copy of the object.
	Clone() PdfObject
}

// Reference is a weak pointer to an indirect object, resolved only through
// a document. Two references with equal (ObjectNumber, GenerationNumber)
// denote the same logical object across all xref sections.
type Reference struct {
	ObjectNumber     int
	GenerationNumber int
}

// NewReference creates a reference.
func NewReference(objNum, genNum int) Reference {
	return Reference{ObjectNumber: objNum, GenerationNumber: genNum}
}

// Write implements PdfObject.
func (r Reference) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d %d R", r.ObjectNumber, r.GenerationNumber)
	return err
}

// Clone implements PdfObject.
func (r Reference) Clone() PdfObject { return r }

// String returns the "N G R" form.
func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.GenerationNumber)
}

// IndirectObject wraps a PDF value with its object and generation numbers,
// as it appears at the top level of a file body.
type IndirectObject struct {
	ObjectNumber     int
	GenerationNumber int
	Object           PdfObject
}

// NewIndirectObject creates an indirect object.
func NewIndirectObject(objNum, genNum int, obj PdfObject) *IndirectObject {
	return &IndirectObject{
		ObjectNumber:     objNum,
		GenerationNumber: genNum,
		Object:           obj,
	}
}

// Write implements PdfObject, emitting the full "N G obj ... endobj" form.
func (i *IndirectObject) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d %d obj\n", i.ObjectNumber, i.GenerationNumber); err != nil {
		return err
	}
	if i.Object != nil {
		if err := i.Object.Write(w); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("\nendobj\n"))
	return err
}

// Clone implements PdfObject.
func (i *IndirectObject) Clone() PdfObject {
	var obj PdfObject
	if i.Object != nil {
		obj = i.Object.Clone()
	}
	return &IndirectObject{
		ObjectNumber:     i.ObjectNumber,
		GenerationNumber: i.GenerationNumber,
		Object:           obj,
	}
}

// GetReference returns a reference to this indirect object.
func (i *IndirectObject) GetReference() Reference {
	return Reference{ObjectNumber: i.ObjectNumber, GenerationNumber: i.GenerationNumber}
}

// NullObject is the PDF null value.
type NullObject struct{}

// Write implements PdfObject.
func (n NullObject) Write(w io.Writer) error {
	_, err := w.Write([]byte("null"))
	return err
}

// Clone implements PdfObject.
func (n NullObject) Clone() PdfObject { return NullObject{} }

// BooleanObject is a PDF boolean.
type BooleanObject bool

// Write implements PdfObject.
func (b BooleanObject) Write(w io.Writer) error {
	if b {
		_, err := w.Write([]byte("true"))
		return err
	}
	_, err := w.Write([]byte("false"))
	return err
}

// Clone implements PdfObject.
func (b BooleanObject) Clone() PdfObject { return b }

// IntegerObject is a PDF integer.
type IntegerObject int64

// Write implements PdfObject.
func (i IntegerObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatInt(int64(i), 10))
	return err
}

// Clone implements PdfObject.
func (i IntegerObject) Clone() PdfObject { return i }

// RealObject is a PDF real number.
type RealObject float64

// Write implements PdfObject.
func (r RealObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatFloat(float64(r), 'f', -1, 64))
	return err
}

// Clone implements PdfObject.
func (r RealObject) Clone() PdfObject { return r }

// NameObject is a PDF name, stored with #xx sequences already decoded.
type NameObject string

// Write implements PdfObject, re-escaping bytes outside the regular range.
func (n NameObject) Write(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		b := n[i]
		if b < '!' || b > '~' || b == '#' || isDelimiterByte(b) {
			fmt.Fprintf(&buf, "#%02X", b)
		} else {
			buf.WriteByte(b)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Clone implements PdfObject.
func (n NameObject) Clone() PdfObject { return n }

// String returns the name without the leading slash.
func (n NameObject) String() string { return string(n) }

// StringObject is a PDF string, written in literal or hex form.
type StringObject struct {
	Value []byte
	IsHex bool
}

// NewLiteralString creates a literal string.
func NewLiteralString(s string) *StringObject {
	return &StringObject{Value: []byte(s)}
}

// NewHexString creates a hex string.
func NewHexString(data []byte) *StringObject {
	return &StringObject{Value: data, IsHex: true}
}

// Write implements PdfObject.
func (s *StringObject) Write(w io.Writer) error {
	if s.IsHex {
		_, err := fmt.Fprintf(w, "<%s>", hex.EncodeToString(s.Value))
		return err
	}

	var buf bytes.Buffer
	buf.WriteByte('(')
	for _, b := range s.Value {
		switch b {
		case '\\':
			buf.WriteString(`\\`)
		case '(':
			buf.WriteString(`\(`)
		case ')':
			buf.WriteString(`\)`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if b < 32 || b > 126 {
				fmt.Fprintf(&buf, `\%03o`, b)
			} else {
				buf.WriteByte(b)
			}
		}
	}
	buf.WriteByte(')')
	_, err := w.Write(buf.Bytes())
	return err
}

// Clone implements PdfObject.
func (s *StringObject) Clone() PdfObject {
	val := make([]byte, len(s.Value))
	copy(val, s.Value)
	return &StringObject{Value: val, IsHex: s.IsHex}
}

// ArrayObject is an ordered sequence of PDF values.
type ArrayObject []PdfObject

// NewArray creates an array.
func NewArray(items ...PdfObject) ArrayObject {
	return ArrayObject(items)
}

// Write implements PdfObject.
func (a ArrayObject) Write(w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return err
	}
	for i, item := range a {
		if i > 0 {
			if _, err := w.Write([]byte(" ")); err != nil {
				return err
			}
		}
		if err := item.Write(w); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("]"))
	return err
}

// Clone implements PdfObject.
func (a ArrayObject) Clone() PdfObject {
	result := make(ArrayObject, len(a))
	for i, item := range a {
		result[i] = item.Clone()
	}
	return result
}

// Get returns the element at index, or nil when out of range.
func (a ArrayObject) Get(index int) PdfObject {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

// DictionaryObject is a mapping from names to PDF values. Keys are unique
// and insertion order is preserved for serialization.
type DictionaryObject struct {
	entries map[string]PdfObject
	order   []string
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *DictionaryObject {
	return &DictionaryObject{
		entries: make(map[string]PdfObject),
	}
}

// Write implements PdfObject.
func (d *DictionaryObject) Write(w io.Writer) error {
	if _, err := w.Write([]byte("<<")); err != nil {
		return err
	}
	for _, key := range d.order {
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
		if err := NameObject(key).Write(w); err != nil {
			return err
		}
		if _, err := w.Write([]byte(" ")); err != nil {
			return err
		}
		if err := d.entries[key].Write(w); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("\n>>"))
	return err
}

// Clone implements PdfObject.
func (d *DictionaryObject) Clone() PdfObject {
	result := NewDictionary()
	for _, key := range d.order {
		result.Set(key, d.entries[key].Clone())
	}
	return result
}

// Set sets a key, appending to the order on first assignment.
func (d *DictionaryObject) Set(key string, value PdfObject) {
	if _, exists := d.entries[key]; !exists {
		d.order = append(d.order, key)
	}
	d.entries[key] = value
}

// Get returns the value for key, or nil.
func (d *DictionaryObject) Get(key string) PdfObject {
	return d.entries[key]
}

// GetName returns the string value of a name entry, or "".
func (d *DictionaryObject) GetName(key string) string {
	if name, ok := d.Get(key).(NameObject); ok {
		return string(name)
	}
	return ""
}

// GetInt returns an integer entry.
func (d *DictionaryObject) GetInt(key string) (int64, bool) {
	if i, ok := d.Get(key).(IntegerObject); ok {
		return int64(i), true
	}
	return 0, false
}

// GetArray returns an array entry, or nil.
func (d *DictionaryObject) GetArray(key string) ArrayObject {
	if arr, ok := d.Get(key).(ArrayObject); ok {
		return arr
	}
	return nil
}

// GetDict returns a dictionary entry, or nil.
func (d *DictionaryObject) GetDict(key string) *DictionaryObject {
	if dict, ok := d.Get(key).(*DictionaryObject); ok {
		return dict
	}
	return nil
}

// Delete removes a key.
func (d *DictionaryObject) Delete(key string) {
	if _, exists := d.entries[key]; !exists {
		return
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Has reports whether the key exists.
func (d *DictionaryObject) Has(key string) bool {
	_, exists := d.entries[key]
	return exists
}

// Keys returns the keys in insertion order.
func (d *DictionaryObject) Keys() []string {
	return d.order
}

// Len returns the number of entries.
func (d *DictionaryObject) Len() int {
	return len(d.entries)
}

// StreamObject is a stream: a dictionary plus raw (encoded) payload bytes.
// Decoded bytes are computed once by the filter pipeline and cached here.
type StreamObject struct {
	Dictionary *DictionaryObject
	// Raw holds the payload exactly as it appears in the file.
	Raw []byte

	decoded    []byte
	hasDecoded bool

	// LengthProvisional is set when the payload length was determined by
	// scanning for "endstream" because /Length was an unresolvable indirect
	// reference at parse time. The document model re-validates the length
	// once the xref table is available.
	LengthProvisional bool
}

// NewStream creates a stream over the given payload bytes.
func NewStream(dict *DictionaryObject, data []byte) *StreamObject {
	if dict == nil {
		dict = NewDictionary()
	}
	return &StreamObject{Dictionary: dict, Raw: data}
}

// Write implements PdfObject, updating /Length to match the raw payload.
func (s *StreamObject) Write(w io.Writer) error {
	s.Dictionary.Set("Length", IntegerObject(len(s.Raw)))
	if err := s.Dictionary.Write(w); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\nstream\n")); err != nil {
		return err
	}
	if _, err := w.Write(s.Raw); err != nil {
		return err
	}
	_, err := w.Write([]byte("\nendstream"))
	return err
}

// Clone implements PdfObject.
func (s *StreamObject) Clone() PdfObject {
	raw := make([]byte, len(s.Raw))
	copy(raw, s.Raw)
	out := &StreamObject{
		Dictionary:        s.Dictionary.Clone().(*DictionaryObject),
		Raw:               raw,
		LengthProvisional: s.LengthProvisional,
	}
	if s.hasDecoded {
		out.decoded = make([]byte, len(s.decoded))
		copy(out.decoded, s.decoded)
		out.hasDecoded = true
	}
	return out
}

// SetDecoded caches the decoded payload.
func (s *StreamObject) SetDecoded(data []byte) {
	s.decoded = data
	s.hasDecoded = true
}

// Decoded returns the cached decoded payload, if present.
func (s *StreamObject) Decoded() ([]byte, bool) {
	return s.decoded, s.hasDecoded
}

// FilterNames returns the declared filter chain as a list of names. A
// single /Filter name yields a one-element list.
func (s *StreamObject) FilterNames() []string {
	switch f := s.Dictionary.Get("Filter").(type) {
	case NameObject:
		return []string{string(f)}
	case ArrayObject:
		var names []string
		for _, item := range f {
			if name, ok := item.(NameObject); ok {
				names = append(names, string(name))
			}
		}
		return names
	}
	return nil
}

// Rectangle is a PDF rectangle given by lower-left and upper-right corners.
type Rectangle struct {
	LLX, LLY float64
	URX, URY float64
}

// NewRectangle creates a rectangle from a 4-element numeric array.
func NewRectangle(arr ArrayObject) (*Rectangle, error) {
	if len(arr) != 4 {
		return nil, fmt.Errorf("%w: rectangle must have 4 elements, got %d", ErrInvalidObject, len(arr))
	}

	var values [4]float64
	for i, obj := range arr {
		switch v := obj.(type) {
		case IntegerObject:
			values[i] = float64(v)
		case RealObject:
			values[i] = float64(v)
		default:
			return nil, fmt.Errorf("%w: rectangle element %d must be numeric", ErrInvalidObject, i)
		}
	}

	return &Rectangle{LLX: values[0], LLY: values[1], URX: values[2], URY: values[3]}, nil
}

// ToArray converts the rectangle to a PDF array.
func (r *Rectangle) ToArray() ArrayObject {
	return ArrayObject{
		RealObject(r.LLX),
		RealObject(r.LLY),
		RealObject(r.URX),
		RealObject(r.URY),
	}
}

// Width returns the rectangle width.
func (r *Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns the rectangle height.
func (r *Rectangle) Height() float64 { return r.URY - r.LLY }

// TrailerDictionary is the dictionary at the end of an xref section.
type TrailerDictionary struct {
	*DictionaryObject
}

// NewTrailer creates an empty trailer dictionary.
func NewTrailer() *TrailerDictionary {
	return &TrailerDictionary{DictionaryObject: NewDictionary()}
}

// GetRoot returns the document catalog reference, or nil.
func (t *TrailerDictionary) GetRoot() *Reference {
	if ref, ok := t.Get("Root").(Reference); ok {
		return &ref
	}
	return nil
}

// GetInfo returns the document info reference, or nil.
func (t *TrailerDictionary) GetInfo() *Reference {
	if ref, ok := t.Get("Info").(Reference); ok {
		return &ref
	}
	return nil
}

// GetSize returns /Size, the total object count.
func (t *TrailerDictionary) GetSize() int64 {
	if size, ok := t.GetInt("Size"); ok {
		return size
	}
	return 0
}

// GetPrev returns /Prev, the offset of the next-older xref section.
func (t *TrailerDictionary) GetPrev() (int64, bool) {
	return t.GetInt("Prev")
}

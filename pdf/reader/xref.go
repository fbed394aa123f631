// Package reader implements the PDF document model: xref resolution,
// object loading, and page access.
package reader

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdflex/pdflex/pdf/filters"
	"github.com/pdflex/pdflex/pdf/generic"
)

// XRefType classifies a cross-reference entry.
type XRefType int

const (
	// XRefFree marks a freed object number.
	XRefFree XRefType = iota
	// XRefInFile locates an object at a byte offset in the file body.
	XRefInFile
	// XRefInObjStream locates an object inside an object stream.
	XRefInObjStream
)

// String returns a human-readable name for the entry type.
func (t XRefType) String() string {
	switch t {
	case XRefFree:
		return "free"
	case XRefInFile:
		return "in-file"
	case XRefInObjStream:
		return "in-object-stream"
	default:
		return "unknown"
	}
}

// XRefEntry is a single cross-reference entry after folding.
type XRefEntry struct {
	Type XRefType

	// Offset is the byte offset for in-file entries. For free entries it
	// holds the next free object number.
	Offset int64

	Generation int

	// ObjStreamNumber and IndexInStream locate in-object-stream entries.
	// Such objects always have generation 0.
	ObjStreamNumber int
	IndexInStream   int
}

// XRefSectionFormat distinguishes classic tables from xref streams.
type XRefSectionFormat int

const (
	// XRefSectionTable is a classic "xref" table with a trailer keyword.
	XRefSectionTable XRefSectionFormat = iota
	// XRefSectionStream is a cross-reference stream (PDF 1.5+).
	XRefSectionStream
)

// XRefSection is one revision's worth of cross-reference data.
type XRefSection struct {
	Format  XRefSectionFormat
	Offset  int64
	Entries map[int]XRefEntry
	Trailer *generic.TrailerDictionary
}

// XRefTable is the folded view of the whole /Prev chain. Sections are kept
// newest first; Entries holds the newest entry for each object number, so a
// newer free entry shadows an older in-file one.
type XRefTable struct {
	Entries  map[int]XRefEntry
	Sections []*XRefSection

	// Trailer is the newest trailer dictionary.
	Trailer *generic.TrailerDictionary

	// StartOffset is the offset named by the last startxref in the file.
	StartOffset int64
}

// Entry returns the folded entry for an object number.
func (t *XRefTable) Entry(objNum int) (XRefEntry, bool) {
	e, ok := t.Entries[objNum]
	return e, ok
}

// MaxObjectNumber returns the highest object number with an entry.
func (t *XRefTable) MaxObjectNumber() int {
	max := 0
	for n := range t.Entries {
		if n > max {
			max = n
		}
	}
	return max
}

// startxrefWindow bounds the tail scan for the startxref keyword.
const startxrefWindow = 2048

// FindStartXRef locates the last startxref keyword near the end of the
// file and returns the offset it names.
func FindStartXRef(data []byte) (int64, error) {
	windowStart := 0
	if len(data) > startxrefWindow {
		windowStart = len(data) - startxrefWindow
	}

	idx := bytes.LastIndex(data[windowStart:], []byte("startxref"))
	if idx == -1 {
		return 0, fmt.Errorf("%w: startxref not found", generic.ErrInvalidXref)
	}

	pos := windowStart + idx + len("startxref")
	for pos < len(data) && (data[pos] == ' ' || data[pos] == '\r' || data[pos] == '\n' || data[pos] == '\t') {
		pos++
	}
	start := pos
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		pos++
	}
	if start == pos {
		return 0, fmt.Errorf("%w: startxref names no offset", generic.ErrInvalidXref)
	}

	offset, err := strconv.ParseInt(string(data[start:pos]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad startxref offset: %v", generic.ErrInvalidXref, err)
	}
	return offset, nil
}

// ResolveXRef folds the full /Prev chain starting from the last startxref
// into a single table. Entries are merged newest-wins; a repeated offset in
// the chain is a cycle and fails rather than looping.
func ResolveXRef(data []byte) (*XRefTable, error) {
	start, err := FindStartXRef(data)
	if err != nil {
		return nil, err
	}
	return resolveXRefFrom(data, start)
}

func resolveXRefFrom(data []byte, start int64) (*XRefTable, error) {
	table := &XRefTable{
		Entries:     make(map[int]XRefEntry),
		StartOffset: start,
	}
	visited := make(map[int64]bool)

	offset := start
	for offset > 0 {
		if visited[offset] {
			return nil, fmt.Errorf("%w: cycle in xref chain at offset %d", generic.ErrInvalidXref, offset)
		}
		visited[offset] = true

		section, err := parseXRefSectionAt(data, offset)
		if err != nil {
			return nil, err
		}
		table.addSection(section)

		// A hybrid-reference file points at an xref stream holding the
		// entries hidden from pre-1.5 readers. The table's own entries
		// take precedence within the revision.
		if section.Format == XRefSectionTable {
			if stmOffset, ok := section.Trailer.GetInt("XRefStm"); ok {
				if visited[stmOffset] {
					return nil, fmt.Errorf("%w: cycle in xref chain at offset %d", generic.ErrInvalidXref, stmOffset)
				}
				visited[stmOffset] = true

				stmSection, err := parseXRefStreamAt(data, stmOffset)
				if err != nil {
					return nil, err
				}
				table.addHybridSection(section, stmSection)
			}
		}

		prev, ok := section.Trailer.GetPrev()
		if !ok {
			break
		}
		offset = prev
	}

	if table.Trailer == nil {
		return nil, fmt.Errorf("%w: no trailer found", generic.ErrInvalidXref)
	}
	return table, nil
}

// addSection merges a section into the fold. The chain is walked newest to
// oldest, so the first entry seen for an object number wins.
func (t *XRefTable) addSection(section *XRefSection) {
	t.Sections = append(t.Sections, section)
	for objNum, entry := range section.Entries {
		if _, exists := t.Entries[objNum]; !exists {
			t.Entries[objNum] = entry
		}
	}
	if t.Trailer == nil {
		t.Trailer = section.Trailer
	}
}

// addHybridSection merges the /XRefStm companion of a classic table. The
// table's in-use entries keep precedence, but the table marks objects that
// moved into object streams as free to hide them from pre-1.5 readers, so
// a stream entry may replace a free entry from its own table.
func (t *XRefTable) addHybridSection(table, stm *XRefSection) {
	t.Sections = append(t.Sections, stm)
	for objNum, entry := range stm.Entries {
		existing, exists := t.Entries[objNum]
		if !exists {
			t.Entries[objNum] = entry
			continue
		}
		if tableEntry, inTable := table.Entries[objNum]; inTable &&
			existing == tableEntry && tableEntry.Type == XRefFree && entry.Type != XRefFree {
			t.Entries[objNum] = entry
		}
	}
}

// parseXRefSectionAt dispatches on what lives at the offset: the keyword
// xref begins a classic table, an indirect object must be an xref stream.
func parseXRefSectionAt(data []byte, offset int64) (*XRefSection, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("%w: xref offset %d out of bounds", generic.ErrInvalidXref, offset)
	}

	parser := generic.NewParserAt(data, offset)
	tok, err := parser.PeekToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
	}

	if tok.IsKeyword("xref") {
		return parseXRefTableAt(data, offset)
	}
	if tok.Type == generic.TokenInteger {
		return parseXRefStreamAt(data, offset)
	}
	return nil, fmt.Errorf("%w: neither xref table nor xref stream at offset %d", generic.ErrInvalidXref, offset)
}

// parseXRefTableAt parses a classic xref table and its trailer dictionary.
func parseXRefTableAt(data []byte, offset int64) (*XRefSection, error) {
	parser := generic.NewParserAt(data, offset)
	if err := parser.ExpectKeyword("xref"); err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
	}

	section := &XRefSection{
		Format:  XRefSectionTable,
		Offset:  offset,
		Entries: make(map[int]XRefEntry),
	}

	for {
		tok, err := parser.PeekToken()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
		}
		if tok.IsKeyword("trailer") {
			parser.NextToken()
			break
		}
		if tok.Type != generic.TokenInteger {
			return nil, fmt.Errorf("%w: unexpected %s in xref table at offset %d",
				generic.ErrInvalidXref, tok.Type, tok.Offset)
		}

		startObj, err := parser.ExpectInteger()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
		}
		count, err := parser.ExpectInteger()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
		}

		for i := int64(0); i < count; i++ {
			first, err := parser.ExpectInteger()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
			}
			gen, err := parser.ExpectInteger()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
			}
			kind, err := parser.NextToken()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
			}

			objNum := int(startObj + i)
			entry := XRefEntry{Offset: first, Generation: int(gen)}
			switch {
			case kind.IsKeyword("n"):
				entry.Type = XRefInFile
			case kind.IsKeyword("f"):
				entry.Type = XRefFree
			default:
				return nil, fmt.Errorf("%w: bad xref entry marker at offset %d",
					generic.ErrInvalidXref, kind.Offset)
			}

			if _, exists := section.Entries[objNum]; !exists {
				section.Entries[objNum] = entry
			}
		}
	}

	trailerObj, err := parser.ParseValue()
	if err != nil {
		return nil, fmt.Errorf("%w: bad trailer: %v", generic.ErrInvalidXref, err)
	}
	dict, ok := trailerObj.(*generic.DictionaryObject)
	if !ok {
		return nil, fmt.Errorf("%w: trailer is not a dictionary", generic.ErrInvalidXref)
	}

	section.Trailer = &generic.TrailerDictionary{DictionaryObject: dict}
	return section, nil
}

// parseXRefStreamAt parses a cross-reference stream. Its /Length must be a
// direct integer, so no length resolver is wired in.
func parseXRefStreamAt(data []byte, offset int64) (*XRefSection, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("%w: xref stream offset %d out of bounds", generic.ErrInvalidXref, offset)
	}

	parser := generic.NewParserAt(data, offset)
	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrInvalidXref, err)
	}

	stream, ok := indirect.Object.(*generic.StreamObject)
	if !ok {
		return nil, fmt.Errorf("%w: object at offset %d is not an xref stream", generic.ErrInvalidXref, offset)
	}

	section, err := parseXRefStream(stream)
	if err != nil {
		return nil, err
	}
	section.Offset = offset
	return section, nil
}

// parseXRefStream decodes an xref stream and expands its /W-packed entries.
func parseXRefStream(stream *generic.StreamObject) (*XRefSection, error) {
	dict := stream.Dictionary

	decoded, err := filters.DecodeStreamObject(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode xref stream: %v", generic.ErrInvalidXref, err)
	}

	wArray := dict.GetArray("W")
	if len(wArray) != 3 {
		return nil, fmt.Errorf("%w: /W must have 3 elements", generic.ErrInvalidXref)
	}
	var w [3]int
	for i, v := range wArray {
		iv, ok := v.(generic.IntegerObject)
		if !ok || iv < 0 {
			return nil, fmt.Errorf("%w: bad /W element", generic.ErrInvalidXref)
		}
		w[i] = int(iv)
	}
	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 || w[1] == 0 {
		return nil, fmt.Errorf("%w: degenerate /W widths", generic.ErrInvalidXref)
	}

	var subsections [][2]int
	if indexArray := dict.GetArray("Index"); indexArray != nil {
		if len(indexArray)%2 != 0 {
			return nil, fmt.Errorf("%w: /Index must hold pairs", generic.ErrInvalidXref)
		}
		for i := 0; i < len(indexArray); i += 2 {
			start, ok1 := indexArray[i].(generic.IntegerObject)
			count, ok2 := indexArray[i+1].(generic.IntegerObject)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: bad /Index pair", generic.ErrInvalidXref)
			}
			subsections = append(subsections, [2]int{int(start), int(count)})
		}
	} else {
		size, ok := dict.GetInt("Size")
		if !ok {
			return nil, fmt.Errorf("%w: xref stream lacks /Size", generic.ErrInvalidXref)
		}
		subsections = [][2]int{{0, int(size)}}
	}

	section := &XRefSection{
		Format:  XRefSectionStream,
		Entries: make(map[int]XRefEntry),
		Trailer: &generic.TrailerDictionary{DictionaryObject: dict},
	}

	pos := 0
	for _, sub := range subsections {
		for i := 0; i < sub[1]; i++ {
			if pos+entrySize > len(decoded) {
				return nil, fmt.Errorf("%w: xref stream data shorter than /Index promises", generic.ErrInvalidXref)
			}
			row := decoded[pos : pos+entrySize]
			pos += entrySize

			objNum := sub[0] + i
			entry := parseXRefStreamRow(row, w)
			if _, exists := section.Entries[objNum]; !exists {
				section.Entries[objNum] = entry
			}
		}
	}

	return section, nil
}

// parseXRefStreamRow expands one packed row. A zero-width type field
// defaults to type 1; a zero-width third field defaults to 0.
func parseXRefStreamRow(row []byte, w [3]int) XRefEntry {
	readField := func(start, width int) int64 {
		var v int64
		for i := 0; i < width; i++ {
			v = v<<8 | int64(row[start+i])
		}
		return v
	}

	typ := int64(1)
	if w[0] > 0 {
		typ = readField(0, w[0])
	}
	field2 := readField(w[0], w[1])
	field3 := readField(w[0]+w[1], w[2])

	switch typ {
	case 0:
		return XRefEntry{Type: XRefFree, Offset: field2, Generation: int(field3)}
	case 2:
		return XRefEntry{Type: XRefInObjStream, ObjStreamNumber: int(field2), IndexInStream: int(field3)}
	default:
		return XRefEntry{Type: XRefInFile, Offset: field2, Generation: int(field3)}
	}
}

package reader

import (
	"fmt"
	"io"
	"regexp"

	"github.com/pdflex/pdflex/pdf/generic"
)

var objHeaderRegexp = regexp.MustCompile(`(?m)(\d{1,10})[ \t]+(\d{1,5})[ \t]+obj\b`)

// NewPdfFileReaderWithRepair reads a PDF, falling back to xref
// reconstruction when the xref chain is missing or unusable.
func NewPdfFileReaderWithRepair(r io.Reader) (*PdfFileReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF data: %w", err)
	}
	return NewPdfFileReaderFromBytesWithRepair(data)
}

// NewPdfFileReaderFromBytesWithRepair opens a PDF held in memory, trying
// the regular xref chain first and rebuilding it by scanning on failure.
func NewPdfFileReaderFromBytesWithRepair(data []byte) (*PdfFileReader, error) {
	reader, err := NewPdfFileReaderFromBytes(data)
	if err == nil {
		return reader, nil
	}

	return repairReader(data)
}

// repairReader reconstructs the xref by scanning the whole file for
// "N G obj" headers. A later definition of the same object number wins,
// matching incremental-update semantics.
func repairReader(data []byte) (*PdfFileReader, error) {
	r := newReaderShell(data)
	r.Repaired = true

	if err := r.parseHeader(); err != nil {
		return nil, err
	}

	entries := make(map[int]XRefEntry)
	matches := objHeaderRegexp.FindAllSubmatchIndex(data, -1)
	for _, m := range matches {
		objNum := parseDecimal(data[m[2]:m[3]])
		gen := parseDecimal(data[m[4]:m[5]])
		entries[objNum] = XRefEntry{
			Type:       XRefInFile,
			Offset:     int64(m[0]),
			Generation: gen,
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no objects found while rebuilding xref", generic.ErrCorruptedFile)
	}

	trailer, err := recoverTrailer(data, r, entries)
	if err != nil {
		return nil, err
	}

	section := &XRefSection{
		Format:  XRefSectionTable,
		Entries: entries,
		Trailer: trailer,
	}
	r.XRef = &XRefTable{
		Entries:  entries,
		Sections: []*XRefSection{section},
		Trailer:  trailer,
	}
	r.Trailer = trailer

	if err := r.loadDocumentStructure(); err != nil {
		return nil, err
	}
	return r, nil
}

func parseDecimal(digits []byte) int {
	n := 0
	for _, d := range digits {
		n = n*10 + int(d-'0')
	}
	return n
}

// recoverTrailer finds a usable trailer: the last parseable trailer
// dictionary in the file, or one rebuilt around a scanned /Type /Catalog.
func recoverTrailer(data []byte, r *PdfFileReader, entries map[int]XRefEntry) (*generic.TrailerDictionary, error) {
	trailerRegexp := regexp.MustCompile(`trailer\b`)
	locs := trailerRegexp.FindAllIndex(data, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		parser := generic.NewParserAt(data, int64(locs[i][1]))
		obj, err := parser.ParseValue()
		if err != nil {
			continue
		}
		if dict, ok := obj.(*generic.DictionaryObject); ok && dict.Has("Root") {
			return &generic.TrailerDictionary{DictionaryObject: dict}, nil
		}
	}

	// No classic trailer; the root must be found among the scanned
	// objects. Parsing here goes through the offsets already collected.
	scan := &XRefTable{Entries: entries}
	r.XRef = scan
	defer func() { r.XRef = nil }()

	for objNum, entry := range entries {
		obj, err := r.GetObject(objNum, entry.Generation)
		if err != nil {
			continue
		}
		dict, ok := obj.(*generic.DictionaryObject)
		if !ok {
			continue
		}
		if dict.GetName("Type") == "Catalog" {
			trailer := generic.NewTrailer()
			trailer.Set("Size", generic.IntegerObject(maxNumIn(entries)+1))
			trailer.Set("Root", generic.NewReference(objNum, entry.Generation))
			return trailer, nil
		}
	}

	return nil, fmt.Errorf("%w: no document catalog found while rebuilding xref", generic.ErrCorruptedFile)
}

func maxNumIn(entries map[int]XRefEntry) int {
	max := 0
	for n := range entries {
		if n > max {
			max = n
		}
	}
	return max
}

// Package writer appends incremental updates to existing PDFs and builds
// new files from scratch.
package writer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/pdflex/pdflex/pdf/generic"
	"github.com/pdflex/pdflex/pdf/reader"
)

// ErrNoRoot is returned when the underlying document has no usable catalog
// reference.
var ErrNoRoot = errors.New("document has no root reference")

// PDFVersion is a PDF version as (major, minor).
type PDFVersion struct {
	Major int
	Minor int
}

// Compare returns <0, 0 or >0 as v sorts before, equal to or after other.
func (v PDFVersion) Compare(other PDFVersion) int {
	if v.Major != other.Major {
		return v.Major - other.Major
	}
	return v.Minor - other.Minor
}

func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// DefaultOutputVersion is assumed when the input version cannot be parsed.
var DefaultOutputVersion = PDFVersion{Major: 1, Minor: 7}

// ParseVersion parses a version string like "1.7".
func ParseVersion(version string) PDFVersion {
	var major, minor int
	fmt.Sscanf(version, "%d.%d", &major, &minor)
	if major == 0 {
		return DefaultOutputVersion
	}
	return PDFVersion{Major: major, Minor: minor}
}

// IncrementalPdfFileWriter stages changes against an existing document and
// appends them as an incremental update. The original bytes are never
// touched, which keeps earlier signatures valid.
type IncrementalPdfFileWriter struct {
	Reader *reader.PdfFileReader

	// Objects holds the staged new and replacement objects.
	Objects map[reader.ObjectKey]*generic.IndirectObject

	nextObjNum   int
	originalData []byte

	rootRef generic.Reference
	infoRef *generic.Reference
	// removeInfo drops /Info from the new trailer even though the previous
	// revision carried one.
	removeInfo bool

	documentID     generic.ArrayObject
	trailerExtra   *generic.DictionaryObject
	forceWhenEmpty bool
}

// NewIncrementalPdfFileWriter creates a writer over an open document.
func NewIncrementalPdfFileWriter(r *reader.PdfFileReader) (*IncrementalPdfFileWriter, error) {
	trailer := r.TrailerView()
	if trailer == nil {
		return nil, ErrNoRoot
	}
	rootRef, ok := trailer.Get("Root").(generic.Reference)
	if !ok {
		return nil, ErrNoRoot
	}

	w := &IncrementalPdfFileWriter{
		Reader:       r,
		Objects:      make(map[reader.ObjectKey]*generic.IndirectObject),
		nextObjNum:   r.NextObjectID(),
		originalData: r.Data(),
		rootRef:      rootRef,
		documentID:   updatedDocumentID(r),
		trailerExtra: generic.NewDictionary(),
	}
	if infoRef, ok := trailer.Get("Info").(generic.Reference); ok {
		w.infoRef = &infoRef
	}
	return w, nil
}

// updatedDocumentID keeps the first /ID half, which encryption keys depend
// on, and derives a fresh second half for the new revision.
func updatedDocumentID(r *reader.PdfFileReader) generic.ArrayObject {
	id1, _ := r.DocumentID()
	if id1 == nil {
		id1 = generic.ComputeFileID(map[string]string{
			"role": "original",
			"size": fmt.Sprintf("%d", len(r.Data())),
		})
	}
	id2 := generic.ComputeFileID(map[string]string{
		"role":   "update",
		"parent": fmt.Sprintf("%x", id1),
		"size":   fmt.Sprintf("%d", len(r.Data())),
	})
	return generic.ArrayObject{generic.NewHexString(id1), generic.NewHexString(id2)}
}

// GetObject returns the staged version of an object if one exists, the
// stored one otherwise.
func (w *IncrementalPdfFileWriter) GetObject(objNum int) (generic.PdfObject, error) {
	gen := 0
	if entry, ok := w.Reader.XRef.Entry(objNum); ok {
		gen = entry.Generation
	}
	if indObj, ok := w.Objects[reader.ObjectKey{Number: objNum, Generation: gen}]; ok {
		return indObj.Object, nil
	}
	return w.Reader.GetObject(objNum, gen)
}

// ResolveObject implements reader.PdfHandler against the merged state.
func (w *IncrementalPdfFileWriter) ResolveObject(obj generic.PdfObject) (generic.PdfObject, error) {
	if ref, ok := obj.(generic.Reference); ok {
		return w.GetObject(ref.ObjectNumber)
	}
	return obj, nil
}

// TrailerView implements reader.PdfHandler: the trailer as the next
// revision will carry it.
func (w *IncrementalPdfFileWriter) TrailerView() *generic.DictionaryObject {
	return w.newTrailer()
}

// DocumentID implements reader.PdfHandler.
func (w *IncrementalPdfFileWriter) DocumentID() ([]byte, []byte) {
	return reader.TrailerDocumentID(w.newTrailer())
}

// GetRoot returns the document catalog, staged version preferred.
func (w *IncrementalPdfFileWriter) GetRoot() (*generic.DictionaryObject, error) {
	obj, err := w.GetObject(w.rootRef.ObjectNumber)
	if err != nil {
		return nil, err
	}
	root, ok := obj.(*generic.DictionaryObject)
	if !ok {
		return nil, fmt.Errorf("%w: catalog is %T", generic.ErrCorruptedFile, obj)
	}
	return root, nil
}

// RootRef returns the catalog reference carried into the new trailer.
func (w *IncrementalPdfFileWriter) RootRef() generic.Reference {
	return w.rootRef
}

// AddObject stages a new object and returns its reference.
func (w *IncrementalPdfFileWriter) AddObject(obj generic.PdfObject) generic.Reference {
	objNum := w.nextObjNum
	w.nextObjNum++

	key := reader.ObjectKey{Number: objNum, Generation: 0}
	w.Objects[key] = generic.NewIndirectObject(objNum, 0, obj)
	return generic.NewReference(objNum, 0)
}

// UpdateObject stages a replacement for an existing object, keeping its
// generation number.
func (w *IncrementalPdfFileWriter) UpdateObject(objNum int, obj generic.PdfObject) {
	gen := 0
	if entry, ok := w.Reader.XRef.Entry(objNum); ok {
		gen = entry.Generation
	}
	key := reader.ObjectKey{Number: objNum, Generation: gen}
	w.Objects[key] = generic.NewIndirectObject(objNum, gen, obj)
}

// MarkUpdate stages the current value of a reference for rewriting.
func (w *IncrementalPdfFileWriter) MarkUpdate(ref generic.Reference) error {
	obj, err := w.GetObject(ref.ObjectNumber)
	if err != nil {
		return err
	}
	w.UpdateObject(ref.ObjectNumber, obj)
	return nil
}

// UpdateRoot stages the catalog for rewriting.
func (w *IncrementalPdfFileWriter) UpdateRoot() error {
	return w.MarkUpdate(w.rootRef)
}

// SetInfo stages a new /Info dictionary; nil removes the entry from the
// trailer.
func (w *IncrementalPdfFileWriter) SetInfo(info *generic.DictionaryObject) generic.Reference {
	if info == nil {
		w.infoRef = nil
		w.removeInfo = true
		return generic.Reference{}
	}

	w.removeInfo = false
	if w.infoRef != nil {
		w.UpdateObject(w.infoRef.ObjectNumber, info)
		return *w.infoRef
	}
	ref := w.AddObject(info)
	w.infoRef = &ref
	return ref
}

// SetCustomTrailerEntry adds an entry to the new revision's trailer.
func (w *IncrementalPdfFileWriter) SetCustomTrailerEntry(key string, value generic.PdfObject) {
	w.trailerExtra.Set(key, value)
}

// EnsureOutputVersion raises the document version via the catalog /Version
// entry; the original header cannot change in an incremental update.
func (w *IncrementalPdfFileWriter) EnsureOutputVersion(version PDFVersion) error {
	if ParseVersion(w.Reader.Version).Compare(version) >= 0 {
		return nil
	}
	root, err := w.GetRoot()
	if err != nil {
		return err
	}
	if current := root.GetName("Version"); current != "" {
		if ParseVersion(current).Compare(version) >= 0 {
			return nil
		}
	}

	rootCopy := root.Clone().(*generic.DictionaryObject)
	rootCopy.Set("Version", generic.NameObject(version.String()))
	w.UpdateObject(w.rootRef.ObjectNumber, rootCopy)
	return nil
}

// NextObjectNumber returns the next object number the writer will allocate.
func (w *IncrementalPdfFileWriter) NextObjectNumber() int {
	return w.nextObjNum
}

// HasChanges reports whether any objects are staged.
func (w *IncrementalPdfFileWriter) HasChanges() bool {
	return len(w.Objects) > 0
}

// SetForceWrite makes Write append an (empty) update section even with no
// staged changes.
func (w *IncrementalPdfFileWriter) SetForceWrite(force bool) {
	w.forceWhenEmpty = force
}

// Write emits the document: the original bytes followed by the update
// section. With no staged changes the original bytes pass through
// unchanged.
func (w *IncrementalPdfFileWriter) Write(out io.Writer) error {
	if !w.HasChanges() && !w.forceWhenEmpty {
		_, err := out.Write(w.originalData)
		return err
	}

	data, _, err := w.render(nil)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// WriteUpdatedSection emits only the appended section, for callers that
// already hold the original bytes.
func (w *IncrementalPdfFileWriter) WriteUpdatedSection(out io.Writer) error {
	data, _, err := w.render(nil)
	if err != nil {
		return err
	}
	_, err = out.Write(data[len(w.originalData):])
	return err
}

// render builds the complete updated file in memory. When a signature
// placeholder is given, its dictionary is serialized with fixed-width
// /ByteRange and /Contents fields and their positions are reported back.
func (w *IncrementalPdfFileWriter) render(placeholder *SignaturePlaceholder) ([]byte, *SignatureInfo, error) {
	var buf bytes.Buffer
	buf.Write(w.originalData)
	// The first appended object must start on its own line.
	if len(w.originalData) > 0 && w.originalData[len(w.originalData)-1] != '\n' {
		buf.WriteByte('\n')
	}

	keys := make([]reader.ObjectKey, 0, len(w.Objects))
	for k := range w.Objects {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Number != keys[j].Number {
			return keys[i].Number < keys[j].Number
		}
		return keys[i].Generation < keys[j].Generation
	})

	offsets := make(map[reader.ObjectKey]int64, len(keys))
	var contentsOffset, byteRangeOffset int64

	for _, key := range keys {
		indObj := w.Objects[key]
		offsets[key] = int64(buf.Len())

		if placeholder != nil && key.Number == placeholder.SigDictRef.ObjectNumber {
			co, bro := writeSignatureDictObject(&buf, indObj, placeholder)
			contentsOffset, byteRangeOffset = co, bro
			continue
		}
		if err := indObj.Write(&buf); err != nil {
			return nil, nil, err
		}
	}

	xrefOffset := int64(buf.Len())
	writeXRefSection(&buf, keys, offsets, w.Objects)

	buf.WriteString("trailer\n")
	if err := w.newTrailer().Write(&buf); err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	data := buf.Bytes()
	if placeholder == nil {
		return data, nil, nil
	}

	// The signed ranges cover everything around the <...> hex literal,
	// delimiters excluded.
	contentsStart := contentsOffset + 1
	contentsEnd := contentsStart + int64(placeholder.ContentsSize*2)
	byteRange := [4]int64{
		0,
		contentsOffset,
		contentsEnd + 1,
		int64(len(data)) - contentsEnd - 1,
	}
	patch := fmt.Sprintf("[%010d %010d %010d %010d]",
		byteRange[0], byteRange[1], byteRange[2], byteRange[3])
	copy(data[byteRangeOffset:], patch)

	return data, &SignatureInfo{
		Data:           data,
		ByteRange:      byteRange,
		ContentsOffset: contentsStart,
		ContentsSize:   placeholder.ContentsSize,
	}, nil
}

// writeSignatureDictObject serializes the signature dictionary by hand so
// the /Contents and /ByteRange positions are known exactly.
func writeSignatureDictObject(buf *bytes.Buffer, indObj *generic.IndirectObject, placeholder *SignaturePlaceholder) (contentsOffset, byteRangeOffset int64) {
	fmt.Fprintf(buf, "%d %d obj\n<<\n", indObj.ObjectNumber, indObj.GenerationNumber)
	for _, key := range placeholder.SigDict.Keys() {
		fmt.Fprintf(buf, "/%s ", key)
		switch key {
		case "ByteRange":
			byteRangeOffset = int64(buf.Len())
			fmt.Fprintf(buf, "[%010d %010d %010d %010d]", 0, 0, 0, 0)
		case "Contents":
			contentsOffset = int64(buf.Len())
			buf.WriteByte('<')
			for i := 0; i < placeholder.ContentsSize; i++ {
				buf.WriteString("00")
			}
			buf.WriteByte('>')
		default:
			placeholder.SigDict.Get(key).Write(buf)
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(">>\nendobj\n")
	return contentsOffset, byteRangeOffset
}

// writeXRefSection emits a classic xref section over the staged objects,
// grouping consecutive object numbers into subsections.
func writeXRefSection(buf *bytes.Buffer, keys []reader.ObjectKey, offsets map[reader.ObjectKey]int64, objects map[reader.ObjectKey]*generic.IndirectObject) {
	buf.WriteString("xref\n")

	type subsection struct {
		start   int
		entries []reader.ObjectKey
	}
	var subsections []subsection
	for _, key := range keys {
		n := len(subsections)
		if n > 0 && key.Number == subsections[n-1].start+len(subsections[n-1].entries) {
			subsections[n-1].entries = append(subsections[n-1].entries, key)
			continue
		}
		subsections = append(subsections, subsection{start: key.Number, entries: []reader.ObjectKey{key}})
	}

	for _, sub := range subsections {
		fmt.Fprintf(buf, "%d %d\n", sub.start, len(sub.entries))
		for _, key := range sub.entries {
			fmt.Fprintf(buf, "%010d %05d n \n", offsets[key], objects[key].GenerationNumber)
		}
	}
}

// trailerStreamKeys are xref-stream dictionary entries that must not leak
// into a classic trailer when the previous revision used an xref stream.
var trailerStreamKeys = map[string]bool{
	"Type": true, "W": true, "Index": true, "Filter": true,
	"DecodeParms": true, "Length": true,
}

// newTrailer assembles the trailer for the appended revision.
func (w *IncrementalPdfFileWriter) newTrailer() *generic.DictionaryObject {
	trailer := generic.NewDictionary()

	if prev := w.Reader.TrailerView(); prev != nil {
		for _, key := range prev.Keys() {
			switch {
			case key == "Prev" || key == "XRefStm":
			case key == "Size" || key == "Root" || key == "Info" || key == "ID":
			case trailerStreamKeys[key]:
			default:
				trailer.Set(key, prev.Get(key))
			}
		}
	}

	trailer.Set("Size", generic.IntegerObject(w.nextObjNum))
	trailer.Set("Prev", generic.IntegerObject(w.Reader.XRef.StartOffset))
	trailer.Set("Root", w.rootRef)
	if w.infoRef != nil && !w.removeInfo {
		trailer.Set("Info", *w.infoRef)
	}
	trailer.Set("ID", w.documentID)

	for _, key := range w.trailerExtra.Keys() {
		trailer.Set(key, w.trailerExtra.Get(key))
	}
	return trailer
}

// pageObjectNumber locates the indirect object behind a zero-based page
// index. The reader caches objects by identity, so a pointer comparison
// against the page tree walk is exact.
func (w *IncrementalPdfFileWriter) pageObjectNumber(pageNum int) (int, int, error) {
	page, err := w.Reader.GetPage(pageNum)
	if err != nil {
		return 0, 0, err
	}
	for objNum, entry := range w.Reader.XRef.Entries {
		if entry.Type == reader.XRefFree {
			continue
		}
		gen := entry.Generation
		if entry.Type == reader.XRefInObjStream {
			gen = 0
		}
		obj, err := w.Reader.GetObject(objNum, gen)
		if err != nil {
			continue
		}
		if dict, ok := obj.(*generic.DictionaryObject); ok && dict == page {
			return objNum, gen, nil
		}
	}
	return 0, 0, fmt.Errorf("no indirect object found for page %d", pageNum)
}

// AddStreamToPage appends (or prepends) a content stream reference to a
// page's /Contents and merges extra resources into the page.
func (w *IncrementalPdfFileWriter) AddStreamToPage(pageNum int, streamRef generic.Reference, resources *generic.DictionaryObject, prepend bool) (generic.Reference, error) {
	page, err := w.Reader.GetPage(pageNum)
	if err != nil {
		return generic.Reference{}, err
	}
	pageObjNum, pageGen, err := w.pageObjectNumber(pageNum)
	if err != nil {
		return generic.Reference{}, err
	}

	pageCopy := page.Clone().(*generic.DictionaryObject)

	var contents generic.ArrayObject
	switch c := pageCopy.Get("Contents").(type) {
	case generic.Reference:
		contents = generic.ArrayObject{c}
	case generic.ArrayObject:
		contents = c
	case nil:
		contents = generic.ArrayObject{}
	default:
		contents = generic.ArrayObject{c}
	}
	if prepend {
		contents = append(generic.ArrayObject{streamRef}, contents...)
	} else {
		contents = append(contents, streamRef)
	}
	pageCopy.Set("Contents", contents)

	if resources != nil {
		merged := generic.NewDictionary()
		if existing, err := w.Reader.PageResources(page); err == nil && existing != nil {
			merged = existing.Clone().(*generic.DictionaryObject)
		}
		for _, key := range resources.Keys() {
			value := resources.Get(key)
			category, ok := value.(*generic.DictionaryObject)
			if !ok {
				merged.Set(key, value)
				continue
			}
			target := merged.GetDict(key)
			if target == nil {
				target = generic.NewDictionary()
			} else {
				target = target.Clone().(*generic.DictionaryObject)
			}
			for _, k := range category.Keys() {
				target.Set(k, category.Get(k))
			}
			merged.Set(key, target)
		}
		pageCopy.Set("Resources", merged)
	}

	w.UpdateObject(pageObjNum, pageCopy)
	return generic.NewReference(pageObjNum, pageGen), nil
}

// SignaturePlaceholder tracks a staged signature dictionary whose
// /Contents must be patched after the surrounding bytes are final.
type SignaturePlaceholder struct {
	SigDict      *generic.DictionaryObject
	SigDictRef   generic.Reference
	ContentsSize int
}

// SignatureInfo describes where the signature lives in the rendered file.
type SignatureInfo struct {
	Data           []byte
	ByteRange      [4]int64
	ContentsOffset int64
	ContentsSize   int
}

// GetDataToSign concatenates the two ByteRange windows.
func (s *SignatureInfo) GetDataToSign() []byte {
	part1 := s.Data[s.ByteRange[0] : s.ByteRange[0]+s.ByteRange[1]]
	part2 := s.Data[s.ByteRange[2] : s.ByteRange[2]+s.ByteRange[3]]

	result := make([]byte, len(part1)+len(part2))
	copy(result, part1)
	copy(result[len(part1):], part2)
	return result
}

// EmbedSignature writes the hex-encoded signature into the /Contents
// placeholder and returns the completed file.
func (s *SignatureInfo) EmbedSignature(signature []byte) []byte {
	result := make([]byte, len(s.Data))
	copy(result, s.Data)

	hexSig := fmt.Sprintf("%X", signature)
	if len(hexSig) > s.ContentsSize*2 {
		hexSig = hexSig[:s.ContentsSize*2]
	}
	for len(hexSig) < s.ContentsSize*2 {
		hexSig += "0"
	}
	copy(result[s.ContentsOffset:], hexSig)
	return result
}

// AddSignatureField creates a signature form field with a widget on the
// given page and wires it into the AcroForm.
func (w *IncrementalPdfFileWriter) AddSignatureField(name string, pageNum int, rect *generic.Rectangle) (generic.Reference, *generic.DictionaryObject, error) {
	page, err := w.Reader.GetPage(pageNum)
	if err != nil {
		return generic.Reference{}, nil, err
	}
	pageObjNum, pageGen, err := w.pageObjectNumber(pageNum)
	if err != nil {
		return generic.Reference{}, nil, err
	}
	pageRef := generic.NewReference(pageObjNum, pageGen)

	sigField := generic.NewDictionary()
	sigField.Set("Type", generic.NameObject("Annot"))
	sigField.Set("Subtype", generic.NameObject("Widget"))
	sigField.Set("FT", generic.NameObject("Sig"))
	sigField.Set("T", generic.NewTextString(name))
	sigField.Set("Rect", rect.ToArray())
	sigField.Set("F", generic.IntegerObject(132)) // print + locked
	sigField.Set("P", pageRef)
	sigFieldRef := w.AddObject(sigField)

	if err := w.attachFieldToAcroForm(sigFieldRef); err != nil {
		return generic.Reference{}, nil, err
	}

	pageCopy := page.Clone().(*generic.DictionaryObject)
	annots := pageCopy.GetArray("Annots")
	annots = append(annots, sigFieldRef)
	pageCopy.Set("Annots", annots)
	w.UpdateObject(pageObjNum, pageCopy)

	return sigFieldRef, sigField, nil
}

// attachFieldToAcroForm adds a field reference to the interactive form,
// creating the form and wiring it into the catalog when absent.
func (w *IncrementalPdfFileWriter) attachFieldToAcroForm(fieldRef generic.Reference) error {
	root, err := w.GetRoot()
	if err != nil {
		return err
	}

	if acroFormRef, ok := root.Get("AcroForm").(generic.Reference); ok {
		obj, err := w.GetObject(acroFormRef.ObjectNumber)
		if err != nil {
			return err
		}
		acroForm, ok := obj.(*generic.DictionaryObject)
		if !ok {
			return fmt.Errorf("%w: /AcroForm is %T", generic.ErrCorruptedFile, obj)
		}

		formCopy := acroForm.Clone().(*generic.DictionaryObject)
		fields := formCopy.GetArray("Fields")
		fields = append(fields, fieldRef)
		formCopy.Set("Fields", fields)
		sigFlags, _ := formCopy.GetInt("SigFlags")
		formCopy.Set("SigFlags", generic.IntegerObject(sigFlags|3))
		w.UpdateObject(acroFormRef.ObjectNumber, formCopy)
		return nil
	}

	acroForm := generic.NewDictionary()
	acroForm.Set("Fields", generic.ArrayObject{fieldRef})
	acroForm.Set("SigFlags", generic.IntegerObject(3))
	acroFormRef := w.AddObject(acroForm)

	rootCopy := root.Clone().(*generic.DictionaryObject)
	rootCopy.Set("AcroForm", acroFormRef)
	w.UpdateObject(w.rootRef.ObjectNumber, rootCopy)
	return nil
}

// PrepareSignature stages a signature dictionary with an all-zero
// /Contents placeholder and points the field's /V at it.
func (w *IncrementalPdfFileWriter) PrepareSignature(sigField *generic.DictionaryObject, sigFieldRef generic.Reference, contentsSize int) (*SignaturePlaceholder, error) {
	if contentsSize <= 0 {
		return nil, errors.New("signature contents size must be positive")
	}

	sigDict := generic.NewDictionary()
	sigDict.Set("Type", generic.NameObject("Sig"))
	sigDict.Set("Filter", generic.NameObject("Adobe.PPKLite"))
	sigDict.Set("SubFilter", generic.NameObject("adbe.pkcs7.detached"))
	sigDict.Set("ByteRange", generic.ArrayObject{
		generic.IntegerObject(0), generic.IntegerObject(0),
		generic.IntegerObject(0), generic.IntegerObject(0),
	})
	sigDict.Set("Contents", generic.NewHexString(make([]byte, contentsSize)))
	sigDictRef := w.AddObject(sigDict)

	fieldCopy := sigField.Clone().(*generic.DictionaryObject)
	fieldCopy.Set("V", sigDictRef)
	w.UpdateObject(sigFieldRef.ObjectNumber, fieldCopy)

	return &SignaturePlaceholder{
		SigDict:      sigDict,
		SigDictRef:   sigDictRef,
		ContentsSize: contentsSize,
	}, nil
}

// WriteWithSignature renders the update with the signature placeholder and
// reports the byte ranges a signer must cover.
func (w *IncrementalPdfFileWriter) WriteWithSignature(out io.Writer, placeholder *SignaturePlaceholder) (*SignatureInfo, error) {
	data, info, err := w.render(placeholder)
	if err != nil {
		return nil, err
	}
	if _, err := out.Write(data); err != nil {
		return nil, err
	}
	return info, nil
}

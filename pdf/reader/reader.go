package reader

import (
	"fmt"
	"io"
	"regexp"

	"github.com/pdflex/pdflex/pdf/filters"
	"github.com/pdflex/pdflex/pdf/generic"
)

// ObjectKey identifies an indirect object across all revisions.
type ObjectKey struct {
	Number     int
	Generation int
}

// PdfFileReader reads a PDF file and resolves objects on demand. Objects
// are parsed lazily, at most once per (number, generation) key.
type PdfFileReader struct {
	data    []byte
	Version string

	XRef    *XRefTable
	Trailer *generic.TrailerDictionary

	cache      map[ObjectKey]generic.PdfObject
	inProgress map[ObjectKey]bool
	objStreams map[int]*ObjectStream

	Root     *generic.DictionaryObject
	Info     *generic.DictionaryObject
	AcroForm *generic.DictionaryObject
	Pages    []*generic.DictionaryObject

	// Encrypted reports the presence of /Encrypt in the trailer. Content
	// decryption is not performed; encrypted payloads pass through raw.
	Encrypted bool

	// Repaired is set when the xref was reconstructed by scanning.
	Repaired bool
}

var pdfHeaderRegexp = regexp.MustCompile(`%PDF-(\d+\.\d+)`)

// NewPdfFileReader reads a whole PDF from r.
func NewPdfFileReader(r io.Reader) (*PdfFileReader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF data: %w", err)
	}
	return NewPdfFileReaderFromBytes(data)
}

// NewPdfFileReaderFromBytes opens a PDF held in memory. The buffer is
// retained and must not be modified afterwards.
func NewPdfFileReaderFromBytes(data []byte) (*PdfFileReader, error) {
	r := newReaderShell(data)

	if err := r.parseHeader(); err != nil {
		return nil, err
	}

	xref, err := ResolveXRef(data)
	if err != nil {
		return nil, err
	}
	r.XRef = xref
	r.Trailer = xref.Trailer

	if err := r.loadDocumentStructure(); err != nil {
		return nil, err
	}
	return r, nil
}

func newReaderShell(data []byte) *PdfFileReader {
	return &PdfFileReader{
		data:       data,
		cache:      make(map[ObjectKey]generic.PdfObject),
		inProgress: make(map[ObjectKey]bool),
		objStreams: make(map[int]*ObjectStream),
	}
}

func (r *PdfFileReader) parseHeader() error {
	if len(r.data) < 8 {
		return fmt.Errorf("%w: too short to be a PDF", generic.ErrCorruptedFile)
	}

	limit := len(r.data)
	if limit > 1024 {
		limit = 1024
	}
	match := pdfHeaderRegexp.FindSubmatch(r.data[:limit])
	if match == nil {
		return fmt.Errorf("%w: missing %%PDF header", generic.ErrCorruptedFile)
	}
	r.Version = string(match[1])
	return nil
}

// loadDocumentStructure resolves the catalog and walks the page tree.
func (r *PdfFileReader) loadDocumentStructure() error {
	r.Encrypted = r.Trailer.Has("Encrypt")

	rootRef := r.Trailer.GetRoot()
	if rootRef == nil {
		return fmt.Errorf("%w: trailer has no /Root", generic.ErrCorruptedFile)
	}

	rootObj, err := r.Resolve(*rootRef)
	if err != nil {
		return fmt.Errorf("cannot load document catalog: %w", err)
	}
	root, ok := rootObj.(*generic.DictionaryObject)
	if !ok {
		return fmt.Errorf("%w: /Root is not a dictionary", generic.ErrCorruptedFile)
	}
	r.Root = root

	if infoRef := r.Trailer.GetInfo(); infoRef != nil {
		if infoObj, err := r.Resolve(*infoRef); err == nil {
			if info, ok := infoObj.(*generic.DictionaryObject); ok {
				r.Info = info
			}
		}
	}

	if err := r.loadPages(); err != nil {
		return err
	}

	if acroForm, err := r.resolveDict(r.Root.Get("AcroForm")); err == nil && acroForm != nil {
		r.AcroForm = acroForm
	}

	return nil
}

// loadPages flattens the page tree into document order. A node revisited
// during the walk means the tree has a cycle.
func (r *PdfFileReader) loadPages() error {
	pagesObj, err := r.ResolveObject(r.Root.Get("Pages"))
	if err != nil {
		return fmt.Errorf("cannot load page tree root: %w", err)
	}
	pagesDict, ok := pagesObj.(*generic.DictionaryObject)
	if !ok {
		return fmt.Errorf("%w: /Pages is not a dictionary", generic.ErrCorruptedFile)
	}

	visited := make(map[*generic.DictionaryObject]bool)
	return r.walkPageTree(pagesDict, visited)
}

func (r *PdfFileReader) walkPageTree(node *generic.DictionaryObject, visited map[*generic.DictionaryObject]bool) error {
	if visited[node] {
		return fmt.Errorf("%w: cycle in page tree", generic.ErrCorruptedFile)
	}
	visited[node] = true

	if node.GetName("Type") == "Page" {
		r.Pages = append(r.Pages, node)
		return nil
	}

	kids := node.GetArray("Kids")
	for _, kid := range kids {
		kidObj, err := r.ResolveObject(kid)
		if err != nil {
			return err
		}
		kidDict, ok := kidObj.(*generic.DictionaryObject)
		if !ok {
			continue
		}
		if err := r.walkPageTree(kidDict, visited); err != nil {
			return err
		}
	}
	return nil
}

// Resolve loads the object a reference points to.
func (r *PdfFileReader) Resolve(ref generic.Reference) (generic.PdfObject, error) {
	return r.GetObject(ref.ObjectNumber, ref.GenerationNumber)
}

// ResolveObject resolves obj if it is a reference and returns it unchanged
// otherwise.
func (r *PdfFileReader) ResolveObject(obj generic.PdfObject) (generic.PdfObject, error) {
	if ref, ok := obj.(generic.Reference); ok {
		return r.Resolve(ref)
	}
	return obj, nil
}

// GetObject loads the object with the given number and generation. A
// missing or freed object resolves to null. Results are cached; a key that
// is already mid-resolution is a reference cycle through /Length or an
// object stream container and fails.
func (r *PdfFileReader) GetObject(objNum, gen int) (generic.PdfObject, error) {
	key := ObjectKey{Number: objNum, Generation: gen}
	if obj, ok := r.cache[key]; ok {
		return obj, nil
	}
	if r.inProgress[key] {
		return nil, fmt.Errorf("%w: self-referential object %d %d", generic.ErrInvalidObject, objNum, gen)
	}

	entry, ok := r.XRef.Entry(objNum)
	if !ok || entry.Type == XRefFree {
		r.cache[key] = generic.NullObject{}
		return generic.NullObject{}, nil
	}

	r.inProgress[key] = true
	defer delete(r.inProgress, key)

	var obj generic.PdfObject
	var err error
	switch entry.Type {
	case XRefInFile:
		if entry.Generation != gen {
			obj = generic.NullObject{}
		} else {
			obj, err = r.parseObjectAt(entry.Offset, objNum)
		}
	case XRefInObjStream:
		if gen != 0 {
			obj = generic.NullObject{}
		} else {
			obj, err = r.getObjectFromStream(objNum, entry.ObjStreamNumber, entry.IndexInStream)
		}
	}
	if err != nil {
		return nil, err
	}

	r.cache[key] = obj
	return obj, nil
}

// parseObjectAt parses the indirect object at a file offset and checks
// that the right object lives there.
func (r *PdfFileReader) parseObjectAt(offset int64, wantNum int) (generic.PdfObject, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("%w: object offset %d out of bounds", generic.ErrCorruptedFile, offset)
	}

	parser := generic.NewParserAt(r.data, offset)
	parser.ResolveLength = r.resolveLengthRef

	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, err
	}
	if indirect.ObjectNumber != wantNum {
		return nil, fmt.Errorf("%w: xref points object %d at offset %d, found object %d",
			generic.ErrCorruptedFile, wantNum, offset, indirect.ObjectNumber)
	}

	if stream, ok := indirect.Object.(*generic.StreamObject); ok && stream.LengthProvisional {
		if length, ok := r.resolveLengthRef(lengthRefOf(stream)); ok {
			if err := generic.ValidateStreamLength(stream, length); err != nil {
				return nil, err
			}
		}
	}

	return indirect.Object, nil
}

func lengthRefOf(stream *generic.StreamObject) generic.Reference {
	if ref, ok := stream.Dictionary.Get("Length").(generic.Reference); ok {
		return ref
	}
	return generic.Reference{}
}

// resolveLengthRef resolves an indirect /Length through the xref table.
func (r *PdfFileReader) resolveLengthRef(ref generic.Reference) (int64, bool) {
	if ref.ObjectNumber == 0 {
		return 0, false
	}
	obj, err := r.Resolve(ref)
	if err != nil {
		return 0, false
	}
	if n, ok := obj.(generic.IntegerObject); ok {
		return int64(n), true
	}
	return 0, false
}

// getObjectFromStream loads an object stored inside an object stream.
func (r *PdfFileReader) getObjectFromStream(objNum, containerNum, index int) (generic.PdfObject, error) {
	os, err := r.objectStream(containerNum)
	if err != nil {
		return nil, err
	}

	numbers := os.ObjectNumbers()
	if index < 0 || index >= len(numbers) {
		return nil, fmt.Errorf("%w: object stream %d has no index %d",
			generic.ErrInvalidObject, containerNum, index)
	}
	if numbers[index] != objNum {
		return nil, fmt.Errorf("%w: object stream %d index %d holds object %d, expected %d",
			generic.ErrCorruptedFile, containerNum, index, numbers[index], objNum)
	}

	return os.GetObject(index)
}

func (r *PdfFileReader) objectStream(containerNum int) (*ObjectStream, error) {
	if os, ok := r.objStreams[containerNum]; ok {
		return os, nil
	}

	containerObj, err := r.GetObject(containerNum, 0)
	if err != nil {
		return nil, err
	}
	stream, ok := containerObj.(*generic.StreamObject)
	if !ok {
		return nil, fmt.Errorf("%w: object %d is not an object stream", generic.ErrCorruptedFile, containerNum)
	}

	os, err := ParseObjectStream(stream)
	if err != nil {
		return nil, err
	}
	r.objStreams[containerNum] = os
	return os, nil
}

// DeepResolve replaces every reference reachable from obj with the object
// it points to. A reference cycle fails rather than recursing forever.
func (r *PdfFileReader) DeepResolve(obj generic.PdfObject) (generic.PdfObject, error) {
	return r.deepResolve(obj, make(map[ObjectKey]bool))
}

func (r *PdfFileReader) deepResolve(obj generic.PdfObject, seen map[ObjectKey]bool) (generic.PdfObject, error) {
	switch v := obj.(type) {
	case generic.Reference:
		key := ObjectKey{Number: v.ObjectNumber, Generation: v.GenerationNumber}
		if seen[key] {
			return nil, fmt.Errorf("%w: reference cycle through %s", generic.ErrInvalidObject, v)
		}
		seen[key] = true
		defer delete(seen, key)

		resolved, err := r.Resolve(v)
		if err != nil {
			return nil, err
		}
		return r.deepResolve(resolved, seen)
	case generic.ArrayObject:
		out := make(generic.ArrayObject, len(v))
		for i, item := range v {
			resolved, err := r.deepResolve(item, seen)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case *generic.DictionaryObject:
		out := generic.NewDictionary()
		for _, key := range v.Keys() {
			resolved, err := r.deepResolve(v.Get(key), seen)
			if err != nil {
				return nil, err
			}
			out.Set(key, resolved)
		}
		return out, nil
	default:
		return obj, nil
	}
}

// DecodeStream decodes a stream through its filter chain.
func (r *PdfFileReader) DecodeStream(stream *generic.StreamObject) ([]byte, error) {
	return filters.DecodeStreamObject(stream)
}

// GetPageCount returns the number of pages.
func (r *PdfFileReader) GetPageCount() int {
	return len(r.Pages)
}

// GetPage returns a page dictionary by zero-based index.
func (r *PdfFileReader) GetPage(index int) (*generic.DictionaryObject, error) {
	if index < 0 || index >= len(r.Pages) {
		return nil, fmt.Errorf("%w: page index %d out of range [0, %d)",
			generic.ErrInvalidObject, index, len(r.Pages))
	}
	return r.Pages[index], nil
}

// inheritablePageKeys are the page attributes that flow down the page tree
// through /Parent when a page does not set them itself.
var inheritablePageKeys = map[string]bool{
	"Resources": true,
	"MediaBox":  true,
	"Rotate":    true,
	"CropBox":   true,
}

// PageAttribute looks up a page attribute, walking up the /Parent chain
// for the inheritable ones. It returns nil when no ancestor defines the
// attribute.
func (r *PdfFileReader) PageAttribute(page *generic.DictionaryObject, key string) (generic.PdfObject, error) {
	node := page
	visited := make(map[*generic.DictionaryObject]bool)

	for node != nil {
		if visited[node] {
			return nil, fmt.Errorf("%w: cycle in page tree parents", generic.ErrCorruptedFile)
		}
		visited[node] = true

		if value := node.Get(key); value != nil {
			return r.ResolveObject(value)
		}
		if !inheritablePageKeys[key] {
			return nil, nil
		}

		parentObj, err := r.ResolveObject(node.Get("Parent"))
		if err != nil {
			return nil, err
		}
		parent, _ := parentObj.(*generic.DictionaryObject)
		node = parent
	}
	return nil, nil
}

// PageMediaBox returns the effective /MediaBox of a page, inherited if
// necessary.
func (r *PdfFileReader) PageMediaBox(page *generic.DictionaryObject) (*generic.Rectangle, error) {
	obj, err := r.PageAttribute(page, "MediaBox")
	if err != nil {
		return nil, err
	}
	arr, ok := obj.(generic.ArrayObject)
	if !ok {
		return nil, fmt.Errorf("%w: page has no /MediaBox", generic.ErrInvalidObject)
	}
	return generic.NewRectangle(arr)
}

// PageRotate returns the effective /Rotate of a page, normalized into
// [0, 360).
func (r *PdfFileReader) PageRotate(page *generic.DictionaryObject) (int, error) {
	obj, err := r.PageAttribute(page, "Rotate")
	if err != nil {
		return 0, err
	}
	rotate, ok := obj.(generic.IntegerObject)
	if !ok {
		return 0, nil
	}
	norm := int(rotate) % 360
	if norm < 0 {
		norm += 360
	}
	return norm, nil
}

// PageResources returns the effective /Resources of a page.
func (r *PdfFileReader) PageResources(page *generic.DictionaryObject) (*generic.DictionaryObject, error) {
	obj, err := r.PageAttribute(page, "Resources")
	if err != nil {
		return nil, err
	}
	dict, _ := obj.(*generic.DictionaryObject)
	return dict, nil
}

// NextObjectID returns the lowest object number safe to allocate for new
// objects: past both the trailer /Size and every existing entry.
func (r *PdfFileReader) NextObjectID() int {
	next := r.XRef.MaxObjectNumber() + 1
	if size := int(r.Trailer.GetSize()); size > next {
		next = size
	}
	return next
}

// Data returns the raw file bytes.
func (r *PdfFileReader) Data() []byte {
	return r.data
}

// TrailerView implements PdfHandler.
func (r *PdfFileReader) TrailerView() *generic.DictionaryObject {
	if r.Trailer == nil {
		return nil
	}
	return r.Trailer.DictionaryObject
}

// DocumentID implements PdfHandler.
func (r *PdfFileReader) DocumentID() ([]byte, []byte) {
	return documentID(r.TrailerView())
}

func (r *PdfFileReader) resolveDict(obj generic.PdfObject) (*generic.DictionaryObject, error) {
	if obj == nil {
		return nil, nil
	}
	resolved, err := r.ResolveObject(obj)
	if err != nil {
		return nil, err
	}
	dict, _ := resolved.(*generic.DictionaryObject)
	return dict, nil
}

// GetSignatureFields returns the /FT /Sig fields of the interactive form,
// including those nested one level under field kids.
func (r *PdfFileReader) GetSignatureFields() ([]*generic.DictionaryObject, error) {
	var sigFields []*generic.DictionaryObject
	if r.AcroForm == nil {
		return sigFields, nil
	}

	fields := r.AcroForm.GetArray("Fields")
	for _, fieldRef := range fields {
		field, err := r.resolveDict(fieldRef)
		if err != nil || field == nil {
			continue
		}

		if field.GetName("FT") == "Sig" {
			sigFields = append(sigFields, field)
		}

		for _, kidRef := range field.GetArray("Kids") {
			kid, err := r.resolveDict(kidRef)
			if err != nil || kid == nil {
				continue
			}
			if kid.GetName("FT") == "Sig" {
				sigFields = append(sigFields, kid)
			}
		}
	}
	return sigFields, nil
}

// EmbeddedSignature is a filled signature field together with its byte
// range over the file.
type EmbeddedSignature struct {
	Field      *generic.DictionaryObject
	Dictionary *generic.DictionaryObject
	ByteRange  [4]int64
	Contents   []byte

	reader *PdfFileReader
}

// GetEmbeddedSignatures returns the signatures already embedded in the
// document.
func (r *PdfFileReader) GetEmbeddedSignatures() ([]*EmbeddedSignature, error) {
	sigFields, err := r.GetSignatureFields()
	if err != nil {
		return nil, err
	}

	var sigs []*EmbeddedSignature
	for _, field := range sigFields {
		sigDict, err := r.resolveDict(field.Get("V"))
		if err != nil || sigDict == nil {
			continue
		}

		sig := &EmbeddedSignature{
			Field:      field,
			Dictionary: sigDict,
			reader:     r,
		}

		if byteRange := sigDict.GetArray("ByteRange"); len(byteRange) == 4 {
			for i, v := range byteRange {
				if iv, ok := v.(generic.IntegerObject); ok {
					sig.ByteRange[i] = int64(iv)
				}
			}
		}
		if contents, ok := sigDict.Get("Contents").(*generic.StringObject); ok {
			sig.Contents = contents.Value
		}

		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// SignedData returns the bytes the signature covers: the two ByteRange
// windows concatenated.
func (e *EmbeddedSignature) SignedData() []byte {
	data := e.reader.data
	offset1, len1 := e.ByteRange[0], e.ByteRange[1]
	offset2, len2 := e.ByteRange[2], e.ByteRange[3]

	if offset1 < 0 || len1 < 0 || offset2 < 0 || len2 < 0 ||
		offset1+len1 > int64(len(data)) || offset2+len2 > int64(len(data)) {
		return nil
	}

	result := make([]byte, len1+len2)
	copy(result[:len1], data[offset1:offset1+len1])
	copy(result[len1:], data[offset2:offset2+len2])
	return result
}

// SubFilter returns the signature encoding, e.g. ETSI.CAdES.detached.
func (e *EmbeddedSignature) SubFilter() string {
	return e.Dictionary.GetName("SubFilter")
}

// SigningTime returns the /M entry as document text.
func (e *EmbeddedSignature) SigningTime() string {
	if m, ok := e.Dictionary.Get("M").(*generic.StringObject); ok {
		return m.Text()
	}
	return ""
}

// Reason returns the stated signing reason.
func (e *EmbeddedSignature) Reason() string {
	if reason, ok := e.Dictionary.Get("Reason").(*generic.StringObject); ok {
		return reason.Text()
	}
	return ""
}

// Location returns the stated signing location.
func (e *EmbeddedSignature) Location() string {
	if loc, ok := e.Dictionary.Get("Location").(*generic.StringObject); ok {
		return loc.Text()
	}
	return ""
}

package reader

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/pdflex/pdflex/pdf/generic"
)

// fileBuilder assembles PDF fixtures byte by byte so tests control the
// exact offsets the xref machinery sees.
type fileBuilder struct {
	buf     bytes.Buffer
	pending []xrefRow
	maxNum  int
}

type xrefRow struct {
	num, gen int
	off      int64
}

func newFileBuilder(version string) *fileBuilder {
	b := &fileBuilder{}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", version)
	return b
}

func (b *fileBuilder) len() int64 { return int64(b.buf.Len()) }

func (b *fileBuilder) bytes() []byte { return b.buf.Bytes() }

// rawf appends formatted bytes and returns the offset they start at.
func (b *fileBuilder) rawf(format string, args ...interface{}) int64 {
	off := b.len()
	fmt.Fprintf(&b.buf, format, args...)
	return off
}

// note records an object written via rawf for the next xref section.
func (b *fileBuilder) note(num, gen int, off int64) {
	b.pending = append(b.pending, xrefRow{num: num, gen: gen, off: off})
	if num > b.maxNum {
		b.maxNum = num
	}
}

// addObject writes "num gen obj <body> endobj" and records it for the next
// xref section.
func (b *fileBuilder) addObject(num, gen int, body string) int64 {
	off := b.rawf("%d %d obj\n%s\nendobj\n", num, gen, body)
	b.note(num, gen, off)
	return off
}

// addStream writes an indirect stream object with a direct /Length.
func (b *fileBuilder) addStream(num int, dictEntries string, payload []byte) int64 {
	off := b.rawf("%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dictEntries, len(payload))
	b.buf.Write(payload)
	b.buf.WriteString("\nendstream\nendobj\n")
	b.note(num, 0, off)
	return off
}

// writeXrefTableWithTrailer emits a classic xref section covering the head
// of the free list and every object recorded since the previous section.
func (b *fileBuilder) writeXrefTableWithTrailer(trailer string) int64 {
	off := b.len()
	rows := append([]xrefRow(nil), b.pending...)
	b.pending = nil
	sort.Slice(rows, func(i, j int) bool { return rows[i].num < rows[j].num })

	b.buf.WriteString("xref\n0 1\n0000000000 65535 f \n")
	for _, row := range rows {
		fmt.Fprintf(&b.buf, "%d 1\n%010d %05d n \n", row.num, row.off, row.gen)
	}
	fmt.Fprintf(&b.buf, "trailer\n%s\n", trailer)
	return off
}

func (b *fileBuilder) writeXrefTable(extra string) int64 {
	return b.writeXrefTableWithTrailer(
		fmt.Sprintf("<< /Size %d /Root 1 0 R %s>>", b.maxNum+1, extra))
}

func (b *fileBuilder) finish(xrefOffset int64) []byte {
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return b.buf.Bytes()
}

// buildSimpleDocument returns a one-page document with inheritable page
// attributes set on the page tree root.
func buildSimpleDocument() []byte {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 "+
		"/MediaBox [0 0 612 792] /Rotate 90 /Resources << /ProcSet [/PDF] >> >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>")
	b.addStream(4, "", []byte("BT /F1 12 Tf (Hello) Tj ET"))
	return b.finish(b.writeXrefTable(""))
}

func TestOpenSimpleDocument(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(buildSimpleDocument())
	if err != nil {
		t.Fatalf("NewPdfFileReaderFromBytes failed: %v", err)
	}

	if r.Version != "1.7" {
		t.Errorf("Version = %q, want %q", r.Version, "1.7")
	}
	if r.GetPageCount() != 1 {
		t.Errorf("GetPageCount() = %d, want 1", r.GetPageCount())
	}
	if r.Repaired {
		t.Error("Repaired should be false for a well-formed file")
	}
	if r.Encrypted {
		t.Error("Encrypted should be false without /Encrypt")
	}
	if r.Root == nil || r.Root.GetName("Type") != "Catalog" {
		t.Error("Root is not the document catalog")
	}
}

func TestMissingHeader(t *testing.T) {
	_, err := NewPdfFileReaderFromBytes([]byte("not a pdf at all, no header anywhere"))
	if !errors.Is(err, generic.ErrCorruptedFile) {
		t.Errorf("expected ErrCorruptedFile, got %v", err)
	}
}

func TestResolveCaching(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(buildSimpleDocument())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	first, err := r.GetObject(2, 0)
	if err != nil {
		t.Fatalf("GetObject(2, 0) failed: %v", err)
	}
	second, err := r.GetObject(2, 0)
	if err != nil {
		t.Fatalf("GetObject(2, 0) failed: %v", err)
	}
	if first != second {
		t.Error("repeated GetObject should return the cached instance")
	}
}

func TestMissingAndFreeObjectsResolveToNull(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(buildSimpleDocument())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	obj, err := r.GetObject(99, 0)
	if err != nil {
		t.Fatalf("GetObject(99, 0) failed: %v", err)
	}
	if _, ok := obj.(generic.NullObject); !ok {
		t.Errorf("missing object resolved to %T, want NullObject", obj)
	}

	obj, err = r.GetObject(0, 65535)
	if err != nil {
		t.Fatalf("GetObject(0, 65535) failed: %v", err)
	}
	if _, ok := obj.(generic.NullObject); !ok {
		t.Errorf("free object resolved to %T, want NullObject", obj)
	}
}

func TestGenerationMismatchResolvesToNull(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(buildSimpleDocument())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	obj, err := r.GetObject(2, 5)
	if err != nil {
		t.Fatalf("GetObject(2, 5) failed: %v", err)
	}
	if _, ok := obj.(generic.NullObject); !ok {
		t.Errorf("generation mismatch resolved to %T, want NullObject", obj)
	}
}

func TestObjectNumberMismatch(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	off3 := b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R >>")
	// Point object 4 at object 3's bytes.
	b.note(4, 0, off3)
	data := b.finish(b.writeXrefTable(""))

	r, err := NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	_, err = r.GetObject(4, 0)
	if !errors.Is(err, generic.ErrCorruptedFile) {
		t.Errorf("expected ErrCorruptedFile for xref/object number mismatch, got %v", err)
	}
}

func TestIndirectStreamLength(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 100 100] >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>")
	payload := "q 1 0 0 1 0 0 cm Q"
	off4 := b.rawf("4 0 obj\n<< /Length 5 0 R >>\nstream\n%s\nendstream\nendobj\n", payload)
	b.note(4, 0, off4)
	b.addObject(5, 0, fmt.Sprintf("%d", len(payload)))
	data := b.finish(b.writeXrefTable(""))

	r, err := NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	obj, err := r.GetObject(4, 0)
	if err != nil {
		t.Fatalf("GetObject(4, 0) failed: %v", err)
	}
	stream, ok := obj.(*generic.StreamObject)
	if !ok {
		t.Fatalf("object 4 is %T, want *StreamObject", obj)
	}
	if string(stream.Raw) != payload {
		t.Errorf("stream payload = %q, want %q", stream.Raw, payload)
	}
	if stream.LengthProvisional {
		t.Error("length resolved through the xref should not stay provisional")
	}
}

func TestDeepResolveCycle(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R >>")
	b.addObject(6, 0, "[7 0 R]")
	b.addObject(7, 0, "<< /Next 6 0 R >>")
	data := b.finish(b.writeXrefTable(""))

	r, err := NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	_, err = r.DeepResolve(generic.NewReference(6, 0))
	if !errors.Is(err, generic.ErrInvalidObject) {
		t.Errorf("expected ErrInvalidObject for reference cycle, got %v", err)
	}
}

func TestDeepResolveFlattensReferences(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(buildSimpleDocument())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	resolved, err := r.DeepResolve(generic.NewReference(1, 0))
	if err != nil {
		t.Fatalf("DeepResolve failed: %v", err)
	}
	catalog, ok := resolved.(*generic.DictionaryObject)
	if !ok {
		t.Fatalf("resolved catalog is %T", resolved)
	}
	pages, ok := catalog.Get("Pages").(*generic.DictionaryObject)
	if !ok {
		t.Fatalf("/Pages not inlined, got %T", catalog.Get("Pages"))
	}
	kids := pages.GetArray("Kids")
	if len(kids) != 1 {
		t.Fatalf("Kids length = %d, want 1", len(kids))
	}
	if _, ok := kids[0].(*generic.DictionaryObject); !ok {
		t.Errorf("page kid not inlined, got %T", kids[0])
	}
}

func TestPageAttributeInheritance(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(buildSimpleDocument())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	page, err := r.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) failed: %v", err)
	}

	box, err := r.PageMediaBox(page)
	if err != nil {
		t.Fatalf("PageMediaBox failed: %v", err)
	}
	if box.Width() != 612 || box.Height() != 792 {
		t.Errorf("MediaBox = %gx%g, want 612x792", box.Width(), box.Height())
	}

	rotate, err := r.PageRotate(page)
	if err != nil {
		t.Fatalf("PageRotate failed: %v", err)
	}
	if rotate != 90 {
		t.Errorf("Rotate = %d, want 90 (inherited)", rotate)
	}

	res, err := r.PageResources(page)
	if err != nil {
		t.Fatalf("PageResources failed: %v", err)
	}
	if res == nil || !res.Has("ProcSet") {
		t.Error("Resources not inherited from the page tree root")
	}

	// Non-inheritable keys stop at the page itself.
	contents, err := r.PageAttribute(page, "Annots")
	if err != nil {
		t.Fatalf("PageAttribute failed: %v", err)
	}
	if contents != nil {
		t.Errorf("Annots = %v, want nil", contents)
	}
}

func TestPageRotateNormalized(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 10 10] >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R /Rotate 450 >>")
	data := b.finish(b.writeXrefTable(""))

	r, err := NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	page, _ := r.GetPage(0)
	rotate, err := r.PageRotate(page)
	if err != nil {
		t.Fatalf("PageRotate failed: %v", err)
	}
	if rotate != 90 {
		t.Errorf("Rotate = %d, want 90 (450 normalized)", rotate)
	}
}

func TestPageTreeCycle(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [2 0 R] /Count 1 >>")
	data := b.finish(b.writeXrefTable(""))

	_, err := NewPdfFileReaderFromBytes(data)
	if !errors.Is(err, generic.ErrCorruptedFile) {
		t.Errorf("expected ErrCorruptedFile for page tree cycle, got %v", err)
	}
}

func TestMissingRootFails(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>")
	data := b.finish(b.writeXrefTableWithTrailer("<< /Size 3 >>"))

	_, err := NewPdfFileReaderFromBytes(data)
	if !errors.Is(err, generic.ErrCorruptedFile) {
		t.Errorf("expected ErrCorruptedFile for trailer without /Root, got %v", err)
	}
}

func TestEncryptedFlag(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>")
	b.addObject(5, 0, "<< /Filter /Standard /V 2 >>")
	data := b.finish(b.writeXrefTable("/Encrypt 5 0 R "))

	r, err := NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !r.Encrypted {
		t.Error("Encrypted should be true when the trailer carries /Encrypt")
	}
}

func TestNextObjectID(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(buildSimpleDocument())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if got := r.NextObjectID(); got != 5 {
		t.Errorf("NextObjectID() = %d, want 5", got)
	}
}

func TestIncrementalUpdateResolution(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 10 10] >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R >>")
	firstXref := b.writeXrefTable("")
	b.rawf("startxref\n%d\n%%%%EOF\n", firstXref)

	// Second revision replaces the page.
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R /Rotate 180 >>")
	data := b.finish(b.writeXrefTable(fmt.Sprintf("/Prev %d ", firstXref)))

	r, err := NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if len(r.XRef.Sections) != 2 {
		t.Fatalf("Sections = %d, want 2", len(r.XRef.Sections))
	}
	page, err := r.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	rotate, err := r.PageRotate(page)
	if err != nil {
		t.Fatalf("PageRotate failed: %v", err)
	}
	if rotate != 180 {
		t.Errorf("Rotate = %d, want 180 from the newest revision", rotate)
	}
}

func TestGetEmbeddedSignatures(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R /AcroForm 5 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 10 10] >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R >>")
	b.addObject(5, 0, "<< /Fields [6 0 R] /SigFlags 3 >>")
	b.addObject(6, 0, "<< /FT /Sig /T (Signature1) /V 7 0 R >>")
	b.addObject(7, 0, "<< /Type /Sig /SubFilter /adbe.pkcs7.detached "+
		"/ByteRange [0 10 20 5] /Contents <DEADBEEF> /Reason (approval) >>")
	data := b.finish(b.writeXrefTable(""))

	r, err := NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	fields, err := r.GetSignatureFields()
	if err != nil {
		t.Fatalf("GetSignatureFields failed: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("signature fields = %d, want 1", len(fields))
	}

	sigs, err := r.GetEmbeddedSignatures()
	if err != nil {
		t.Fatalf("GetEmbeddedSignatures failed: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("embedded signatures = %d, want 1", len(sigs))
	}

	sig := sigs[0]
	if sig.SubFilter() != "adbe.pkcs7.detached" {
		t.Errorf("SubFilter = %q", sig.SubFilter())
	}
	if sig.Reason() != "approval" {
		t.Errorf("Reason = %q, want %q", sig.Reason(), "approval")
	}
	if !bytes.Equal(sig.Contents, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("Contents = % X", sig.Contents)
	}

	want := append(append([]byte{}, data[0:10]...), data[20:25]...)
	if !bytes.Equal(sig.SignedData(), want) {
		t.Error("SignedData did not concatenate the two ByteRange windows")
	}
}

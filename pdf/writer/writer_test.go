package writer

import (
	"bytes"
	"testing"
	"time"

	"github.com/pdflex/pdflex/pdf/generic"
	"github.com/pdflex/pdflex/pdf/reader"
)

func TestPdfFileWriterRoundTrip(t *testing.T) {
	w := NewPdfFileWriter("1.7")
	contents := []byte("BT /F1 24 Tf 100 700 Td (Round trip) Tj ET")
	w.AddPage(&generic.Rectangle{URX: 612, URY: 792}, contents)

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := reader.NewPdfFileReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if r.Version != "1.7" {
		t.Errorf("Version = %q, want 1.7", r.Version)
	}
	if r.GetPageCount() != 1 {
		t.Fatalf("GetPageCount() = %d, want 1", r.GetPageCount())
	}

	page, err := r.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	contentsObj, err := r.ResolveObject(page.Get("Contents"))
	if err != nil {
		t.Fatalf("resolving /Contents failed: %v", err)
	}
	stream, ok := contentsObj.(*generic.StreamObject)
	if !ok {
		t.Fatalf("/Contents is %T, want stream", contentsObj)
	}
	decoded, err := r.DecodeStream(stream)
	if err != nil {
		t.Fatalf("DecodeStream failed: %v", err)
	}
	if !bytes.Equal(decoded, contents) {
		t.Error("content stream did not survive the Flate round trip")
	}

	if r.Info == nil || r.Info.Get("Producer") == nil {
		t.Error("info dictionary missing /Producer")
	}
	id1, id2 := r.DocumentID()
	if id1 == nil || id2 == nil {
		t.Error("new document should carry an /ID")
	}
}

func TestPdfFileWriterMultiplePages(t *testing.T) {
	w := NewPdfFileWriter("")
	box := &generic.Rectangle{URX: 100, URY: 100}
	w.AddPage(box, nil)
	w.AddPage(box, nil)
	w.AddPage(box, nil)

	if w.PageCount() != 3 {
		t.Fatalf("PageCount() = %d, want 3", w.PageCount())
	}

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	r, err := reader.NewPdfFileReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if r.GetPageCount() != 3 {
		t.Errorf("GetPageCount() = %d, want 3", r.GetPageCount())
	}
}

func TestPdfFileWriterSignatureField(t *testing.T) {
	w := NewPdfFileWriter("1.7")
	w.AddPage(&generic.Rectangle{URX: 612, URY: 792}, nil)

	rect := &generic.Rectangle{LLX: 10, LLY: 10, URX: 200, URY: 60}
	if _, err := w.AddSignatureField("Signature1", 0, rect); err != nil {
		t.Fatalf("AddSignatureField failed: %v", err)
	}
	if _, err := w.AddSignatureField("Sig", 5, rect); err == nil {
		t.Error("expected an error for an out-of-range page index")
	}

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	r, err := reader.NewPdfFileReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	fields, err := r.GetSignatureFields()
	if err != nil {
		t.Fatalf("GetSignatureFields failed: %v", err)
	}
	if len(fields) != 1 {
		t.Errorf("signature fields = %d, want 1", len(fields))
	}
}

func TestFormatPdfDate(t *testing.T) {
	loc := time.FixedZone("", 5*3600+30*60)
	got := formatPdfDate(time.Date(2026, 8, 23, 14, 5, 9, 0, loc))
	if got != "D:20260823140509+05'30'" {
		t.Errorf("formatPdfDate = %q", got)
	}

	locNeg := time.FixedZone("", -7*3600)
	got = formatPdfDate(time.Date(2026, 1, 2, 3, 4, 5, 0, locNeg))
	if got != "D:20260102030405-07'00'" {
		t.Errorf("formatPdfDate = %q", got)
	}
}

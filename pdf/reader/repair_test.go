package reader

import (
	"errors"
	"testing"

	"github.com/pdflex/pdflex/pdf/generic"
)

func TestRepairBrokenStartXRef(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R >>")
	b.writeXrefTable("")
	// startxref names a bogus offset.
	data := b.finish(999999999)

	if _, err := NewPdfFileReaderFromBytes(data); err == nil {
		t.Fatal("plain open should fail on a bogus startxref")
	}

	r, err := NewPdfFileReaderFromBytesWithRepair(data)
	if err != nil {
		t.Fatalf("repair open failed: %v", err)
	}
	if !r.Repaired {
		t.Error("Repaired should be set after xref reconstruction")
	}
	if r.GetPageCount() != 1 {
		t.Errorf("GetPageCount() = %d, want 1", r.GetPageCount())
	}

	page, err := r.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	box, err := r.PageMediaBox(page)
	if err != nil {
		t.Fatalf("PageMediaBox failed: %v", err)
	}
	if box.Width() != 612 {
		t.Errorf("MediaBox width = %g, want 612", box.Width())
	}
}

func TestRepairPrefersWellFormedFile(t *testing.T) {
	r, err := NewPdfFileReaderFromBytesWithRepair(buildSimpleDocument())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if r.Repaired {
		t.Error("a well-formed file should not be marked repaired")
	}
}

func TestRepairLaterDefinitionWins(t *testing.T) {
	b := newFileBuilder("1.7")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 10 10] >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R /Rotate 270 >>")
	b.writeXrefTable("")
	data := b.finish(999999999)

	r, err := NewPdfFileReaderFromBytesWithRepair(data)
	if err != nil {
		t.Fatalf("repair open failed: %v", err)
	}
	page, err := r.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	rotate, err := r.PageRotate(page)
	if err != nil {
		t.Fatalf("PageRotate failed: %v", err)
	}
	if rotate != 270 {
		t.Errorf("Rotate = %d, want 270 from the later definition", rotate)
	}
}

func TestRepairSynthesizesTrailerFromCatalog(t *testing.T) {
	// No xref, no trailer, no startxref: only objects.
	b := newFileBuilder("1.4")
	b.addObject(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.addObject(2, 0, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 10 10] >>")
	b.addObject(3, 0, "<< /Type /Page /Parent 2 0 R >>")
	data := b.bytes()

	r, err := NewPdfFileReaderFromBytesWithRepair(data)
	if err != nil {
		t.Fatalf("repair open failed: %v", err)
	}
	if !r.Repaired {
		t.Error("Repaired should be set")
	}
	if r.Root == nil || r.Root.GetName("Type") != "Catalog" {
		t.Error("catalog not recovered from object scan")
	}
	if r.GetPageCount() != 1 {
		t.Errorf("GetPageCount() = %d, want 1", r.GetPageCount())
	}
}

func TestRepairNoObjectsFails(t *testing.T) {
	_, err := NewPdfFileReaderFromBytesWithRepair([]byte("%PDF-1.4\nnothing usable here\n"))
	if !errors.Is(err, generic.ErrCorruptedFile) {
		t.Errorf("expected ErrCorruptedFile, got %v", err)
	}
}

func TestRepairNoCatalogFails(t *testing.T) {
	b := newFileBuilder("1.4")
	b.addObject(1, 0, "<< /Type /Font /Subtype /Type1 >>")
	b.addObject(2, 0, "(just a string)")
	data := b.bytes()

	_, err := NewPdfFileReaderFromBytesWithRepair(data)
	if !errors.Is(err, generic.ErrCorruptedFile) {
		t.Errorf("expected ErrCorruptedFile without a catalog, got %v", err)
	}
}

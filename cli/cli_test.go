package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdflex/pdflex/config"
	"github.com/pdflex/pdflex/pdf/generic"
	"github.com/pdflex/pdflex/pdf/reader"
	"github.com/pdflex/pdflex/pdf/writer"
)

// writeFixturePDF builds a one-page document on disk and returns its path.
func writeFixturePDF(t *testing.T) string {
	t.Helper()

	w := writer.NewPdfFileWriter("1.7")
	w.AddPage(&generic.Rectangle{URX: 612, URY: 792}, []byte("BT (fixture) Tj ET"))

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("building fixture failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "fixture.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunUnknownCommandExitsNonzero(t *testing.T) {
	exitCode := -1
	osExit = func(code int) { exitCode = code }
	defer func() { osExit = os.Exit }()

	Run([]string{"pdflex", "frobnicate"})
	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1 for an unknown command", exitCode)
	}
}

func TestRunHelpExitsZero(t *testing.T) {
	exitCode := 0
	osExit = func(code int) { exitCode = code }
	defer func() { osExit = os.Exit }()

	Run([]string{"pdflex", "help"})
	if exitCode != 0 {
		t.Errorf("exit code = %d, want 0 for help", exitCode)
	}
}

func TestInspectPDF(t *testing.T) {
	path := writeFixturePDF(t)

	output, err := inspectPDF(path, &InspectOptions{})
	if err != nil {
		t.Fatalf("inspectPDF failed: %v", err)
	}
	if output.Version != "1.7" {
		t.Errorf("Version = %q, want 1.7", output.Version)
	}
	if output.Pages != 1 {
		t.Errorf("Pages = %d, want 1", output.Pages)
	}
	if output.Encrypted || output.Repaired {
		t.Error("fixture should be neither encrypted nor repaired")
	}
	if output.Objects == 0 {
		t.Error("object count should be nonzero")
	}
	if len(output.XRefSections) != 1 {
		t.Fatalf("xref sections = %d, want 1", len(output.XRefSections))
	}
	if output.XRefSections[0].Format != "table" {
		t.Errorf("section format = %q, want table", output.XRefSections[0].Format)
	}
	if output.Info["Producer"] == "" {
		t.Error("Info should carry /Producer")
	}
	if output.DocumentID == "" {
		t.Error("DocumentID should be set")
	}
}

func TestInspectPDFRepair(t *testing.T) {
	path := writeFixturePDF(t)

	// Break the startxref offset so a plain open fails.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx == -1 {
		t.Fatal("fixture has no startxref")
	}
	broken := append(append([]byte{}, data[:idx]...), []byte("startxref\n999999999\n%%EOF\n")...)
	brokenPath := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(brokenPath, broken, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := inspectPDF(brokenPath, &InspectOptions{}); err == nil {
		t.Fatal("expected plain inspect of a broken file to fail")
	}

	output, err := inspectPDF(brokenPath, &InspectOptions{Repair: true})
	if err != nil {
		t.Fatalf("inspectPDF with repair failed: %v", err)
	}
	if !output.Repaired {
		t.Error("Repaired should be set after reconstruction")
	}
	if output.Pages != 1 {
		t.Errorf("Pages = %d, want 1", output.Pages)
	}
}

func TestUpdatePDF(t *testing.T) {
	path := writeFixturePDF(t)
	outPath := filepath.Join(t.TempDir(), "out.pdf")

	cfg := &config.ToolConfig{
		Update: &config.UpdateConfig{
			Info:       map[string]string{"Title": "Updated Title"},
			MinVersion: "2.0",
		},
	}

	if err := updatePDF(path, outPath, cfg, &UpdateOptions{}); err != nil {
		t.Fatalf("updatePDF failed: %v", err)
	}

	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	updated, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) <= len(original) {
		t.Fatal("updated file should be longer than the original")
	}
	if !bytes.Equal(updated[:len(original)], original) {
		t.Error("update must not rewrite the original bytes")
	}

	r, err := reader.NewPdfFileReaderFromBytes(updated)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if r.Info == nil {
		t.Fatal("updated document has no /Info")
	}
	title, ok := r.Info.Get("Title").(*generic.StringObject)
	if !ok || title.Text() != "Updated Title" {
		t.Errorf("Title = %v, want Updated Title", r.Info.Get("Title"))
	}
	// Producer from the original info dictionary must survive the merge.
	if r.Info.Get("Producer") == nil {
		t.Error("Producer should be carried over from the original /Info")
	}
	if r.Root.GetName("Version") != "2.0" {
		t.Errorf("catalog /Version = %q, want 2.0", r.Root.GetName("Version"))
	}
}

func TestUpdatePDFNoChangesPassesThrough(t *testing.T) {
	path := writeFixturePDF(t)
	outPath := filepath.Join(t.TempDir(), "out.pdf")

	if err := updatePDF(path, outPath, nil, &UpdateOptions{}); err != nil {
		t.Fatalf("updatePDF failed: %v", err)
	}

	original, _ := os.ReadFile(path)
	updated, _ := os.ReadFile(outPath)
	if !bytes.Equal(original, updated) {
		t.Error("an empty change set should reproduce the original bytes")
	}
}

func TestUpdatePDFForceWrite(t *testing.T) {
	path := writeFixturePDF(t)
	outPath := filepath.Join(t.TempDir(), "out.pdf")

	if err := updatePDF(path, outPath, nil, &UpdateOptions{ForceWrite: true}); err != nil {
		t.Fatalf("updatePDF failed: %v", err)
	}

	updated, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	r, err := reader.NewPdfFileReaderFromBytes(updated)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if len(r.XRef.Sections) != 2 {
		t.Errorf("xref sections = %d, want 2", len(r.XRef.Sections))
	}
}

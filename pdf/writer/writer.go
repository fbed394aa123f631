package writer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/pdflex/pdflex/pdf/filters"
	"github.com/pdflex/pdflex/pdf/generic"
)

// PdfFileWriter builds a new PDF file from scratch.
type PdfFileWriter struct {
	Version    string
	Objects    map[int]*generic.IndirectObject
	nextObjNum int

	Root     *generic.DictionaryObject
	Info     *generic.DictionaryObject
	Pages    *generic.DictionaryObject
	pageList []*generic.DictionaryObject
	AcroForm *generic.DictionaryObject

	FileID []byte

	rootRef generic.Reference
	infoRef generic.Reference
}

// NewPdfFileWriter creates a writer for a new document.
func NewPdfFileWriter(version string) *PdfFileWriter {
	if version == "" {
		version = "1.7"
	}

	w := &PdfFileWriter{
		Version:    version,
		Objects:    make(map[int]*generic.IndirectObject),
		nextObjNum: 1,
	}

	w.Root = generic.NewDictionary()
	w.Root.Set("Type", generic.NameObject("Catalog"))

	w.Pages = generic.NewDictionary()
	w.Pages.Set("Type", generic.NameObject("Pages"))
	w.Pages.Set("Kids", generic.ArrayObject{})
	w.Pages.Set("Count", generic.IntegerObject(0))
	w.Root.Set("Pages", w.AddObject(w.Pages))

	w.Info = generic.NewDictionary()
	w.Info.Set("Producer", generic.NewTextString("pdflex"))
	w.Info.Set("CreationDate", generic.NewTextString(formatPdfDate(time.Now())))

	return w
}

// AddObject registers an object and returns its reference.
func (w *PdfFileWriter) AddObject(obj generic.PdfObject) generic.Reference {
	objNum := w.nextObjNum
	w.nextObjNum++

	w.Objects[objNum] = generic.NewIndirectObject(objNum, 0, obj)
	return generic.NewReference(objNum, 0)
}

// AddPage appends a page with the given media box. Non-nil contents are
// Flate-compressed into the page's content stream.
func (w *PdfFileWriter) AddPage(mediaBox *generic.Rectangle, contents []byte) generic.Reference {
	page := generic.NewDictionary()
	page.Set("Type", generic.NameObject("Page"))
	page.Set("Parent", w.getReference(w.Pages))
	page.Set("MediaBox", mediaBox.ToArray())

	if contents != nil {
		payload := contents
		dict := generic.NewDictionary()
		if encoded, err := filters.EncodeStream(contents, []string{"FlateDecode"}, nil); err == nil {
			dict.Set("Filter", generic.NameObject("FlateDecode"))
			payload = encoded
		}
		stream := generic.NewStream(dict, payload)
		stream.SetDecoded(contents)
		page.Set("Contents", w.AddObject(stream))
	}

	pageRef := w.AddObject(page)
	w.pageList = append(w.pageList, page)

	kids := w.Pages.GetArray("Kids")
	kids = append(kids, pageRef)
	w.Pages.Set("Kids", kids)
	w.Pages.Set("Count", generic.IntegerObject(len(w.pageList)))

	return pageRef
}

// PageCount returns the number of pages added so far.
func (w *PdfFileWriter) PageCount() int {
	return len(w.pageList)
}

// AddAcroForm creates the interactive form dictionary on first use.
func (w *PdfFileWriter) AddAcroForm() *generic.DictionaryObject {
	if w.AcroForm == nil {
		w.AcroForm = generic.NewDictionary()
		w.AcroForm.Set("Fields", generic.ArrayObject{})
		w.AcroForm.Set("SigFlags", generic.IntegerObject(0))
		w.Root.Set("AcroForm", w.AddObject(w.AcroForm))
	}
	return w.AcroForm
}

// AddSignatureField adds an empty signature field with a widget annotation
// on the given page.
func (w *PdfFileWriter) AddSignatureField(name string, pageIndex int, rect *generic.Rectangle) (generic.Reference, error) {
	if pageIndex < 0 || pageIndex >= len(w.pageList) {
		return generic.Reference{}, fmt.Errorf("page index %d out of range [0, %d)", pageIndex, len(w.pageList))
	}

	sigField := generic.NewDictionary()
	sigField.Set("Type", generic.NameObject("Annot"))
	sigField.Set("Subtype", generic.NameObject("Widget"))
	sigField.Set("FT", generic.NameObject("Sig"))
	sigField.Set("T", generic.NewTextString(name))
	sigField.Set("Rect", rect.ToArray())
	sigField.Set("F", generic.IntegerObject(132)) // print + locked
	sigField.Set("P", w.getReference(w.pageList[pageIndex]))
	sigFieldRef := w.AddObject(sigField)

	acroForm := w.AddAcroForm()
	fields := acroForm.GetArray("Fields")
	fields = append(fields, sigFieldRef)
	acroForm.Set("Fields", fields)
	sigFlags, _ := acroForm.GetInt("SigFlags")
	acroForm.Set("SigFlags", generic.IntegerObject(sigFlags|3))

	page := w.pageList[pageIndex]
	annots := page.GetArray("Annots")
	annots = append(annots, sigFieldRef)
	page.Set("Annots", annots)

	return sigFieldRef, nil
}

// Write serializes the whole document: header, body, classic xref table,
// trailer. Write may be called more than once.
func (w *PdfFileWriter) Write(out io.Writer) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%%PDF-%s\n", w.Version)
	// Binary marker comment so transports treat the file as binary.
	buf.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})

	if w.rootRef.ObjectNumber == 0 {
		w.rootRef = w.AddObject(w.Root)
		w.infoRef = w.AddObject(w.Info)
	}

	offsets := make(map[int]int64)
	for objNum := 1; objNum < w.nextObjNum; objNum++ {
		obj := w.Objects[objNum]
		if obj == nil {
			continue
		}
		offsets[objNum] = int64(buf.Len())
		if err := obj.Write(&buf); err != nil {
			return err
		}
	}

	if w.FileID == nil {
		w.FileID = generic.ComputeFileID(map[string]string{
			"time":    time.Now().String(),
			"version": w.Version,
		})
	}

	xrefOffset := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n0 %d\n", w.nextObjNum)
	buf.WriteString("0000000000 65535 f \n")
	for objNum := 1; objNum < w.nextObjNum; objNum++ {
		fmt.Fprintf(&buf, "%010d %05d n \n", offsets[objNum], 0)
	}

	trailer := generic.NewDictionary()
	trailer.Set("Size", generic.IntegerObject(w.nextObjNum))
	trailer.Set("Root", w.rootRef)
	trailer.Set("Info", w.infoRef)
	trailer.Set("ID", generic.ArrayObject{
		generic.NewHexString(w.FileID),
		generic.NewHexString(w.FileID),
	})

	buf.WriteString("trailer\n")
	if err := trailer.Write(&buf); err != nil {
		return err
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

// getReference finds the reference for an already-registered object,
// registering it when missing.
func (w *PdfFileWriter) getReference(obj generic.PdfObject) generic.Reference {
	for objNum, indObj := range w.Objects {
		if indObj.Object == obj {
			return generic.NewReference(objNum, 0)
		}
	}
	return w.AddObject(obj)
}

// formatPdfDate renders a time in the D:YYYYMMDDHHmmSSOHH'mm' form.
func formatPdfDate(t time.Time) string {
	_, offset := t.Zone()
	offsetHours := offset / 3600
	offsetMinutes := (offset % 3600) / 60

	sign := "+"
	if offset < 0 {
		sign = "-"
		offsetHours = -offsetHours
		offsetMinutes = -offsetMinutes
	}

	return fmt.Sprintf("D:%04d%02d%02d%02d%02d%02d%s%02d'%02d'",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		sign, offsetHours, offsetMinutes)
}

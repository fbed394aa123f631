package reader

import (
	"github.com/pdflex/pdflex/pdf/generic"
)

// PdfHandler is the querying surface shared by readers and writers: a
// writer mid-update resolves objects against its merged state the same way
// a plain reader resolves against the file.
type PdfHandler interface {
	// ResolveObject resolves obj if it is a reference, returning other
	// values unchanged.
	ResolveObject(obj generic.PdfObject) (generic.PdfObject, error)

	// TrailerView returns the current trailer dictionary.
	TrailerView() *generic.DictionaryObject

	// DocumentID returns both halves of the /ID array, nil when absent.
	DocumentID() ([]byte, []byte)
}

// documentID extracts the two /ID halves from a trailer dictionary.
func documentID(trailer *generic.DictionaryObject) ([]byte, []byte) {
	if trailer == nil {
		return nil, nil
	}

	idArray := trailer.GetArray("ID")
	if len(idArray) < 2 {
		return nil, nil
	}

	var id1, id2 []byte
	if str, ok := idArray[0].(*generic.StringObject); ok {
		id1 = str.Value
	}
	if str, ok := idArray[1].(*generic.StringObject); ok {
		id2 = str.Value
	}
	return id1, id2
}

// TrailerDocumentID is the exported form of documentID for other packages
// implementing PdfHandler.
func TrailerDocumentID(trailer *generic.DictionaryObject) ([]byte, []byte) {
	return documentID(trailer)
}

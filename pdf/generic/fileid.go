package generic

import (
	"crypto/md5"
	"sort"
)

// ComputeFileID derives a 16-byte file identifier from document metadata.
// The digest is deterministic for equal input so that repeated writes of
// the same document state agree on the identifier.
func ComputeFileID(info map[string]string) []byte {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := md5.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(info[k]))
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}

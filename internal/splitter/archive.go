package splitter

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// DefaultPrefix is the entry name prefix used when none is configured.
const DefaultPrefix = "correciones_SKU"

// Entry is one file of the produced archive
type Entry struct {
	Name string
	Data []byte
}

// EntryName returns the archive file name of a month bucket.
func EntryName(prefix string, key GroupKey) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%s-01.xlsx", prefix, key)
}

// BuildArchive writes entries, in order, to a deflate-compressed zip.
func BuildArchive(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, newError(KindArchive, StageArchiving, nil, "archive entry has no name")
		}
		if seen[e.Name] {
			return nil, newError(KindArchive, StageArchiving, nil, "duplicate archive entry %q", e.Name)
		}
		seen[e.Name] = true

		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			return nil, newError(KindArchive, StageArchiving, err, "failed to add %q", e.Name)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, newError(KindArchive, StageArchiving, err, "failed to write %q", e.Name)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, newError(KindArchive, StageArchiving, err, "failed to finalise archive")
	}
	return buf.Bytes(), nil
}

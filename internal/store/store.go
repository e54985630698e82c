// Package store persists pipeline and composite definitions as JSON
// files, one document per file, with a _metadata.json index per
// directory for cheap listing.
package store

import (
	"encoding/json"
	"os"
	"strings"
	"unicode"
)

const metadataFile = "_metadata.json"

// sanitizeID strips everything but letters, digits, '_' and '-' so ids
// cannot escape the storage directory.
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writeJSON writes a document atomically via a temp file rename.
func writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func readJSON(path string, doc any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, doc)
}

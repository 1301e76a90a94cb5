// Package catalog defines the document model for geospatial/forestry metadata
// records harvested from FSGeodata, GDD, and RDA exports, and the corpus
// snapshot both search indexes are built from.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DocumentID uniquely identifies a document within a corpus snapshot.
// IDs are stable across rebuilds; documents without a native ID get a
// content-hash ID at load time.
type DocumentID string

// Document is the unit of retrieval: one catalog entry merged from the
// per-source schemas (FSGeodata metadata XML, GDD DCAT-US JSON, RDA JSON).
type Document struct {
	ID          DocumentID `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Abstract    string     `json:"abstract,omitempty"`
	Purpose     string     `json:"purpose,omitempty"`
	Source      string     `json:"source,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	Themes      []string   `json:"themes,omitempty"`
}

// SearchText returns the text block indexed by both the lexical and the
// vector index. Field order is fixed so the same document always produces
// the same text.
func (d *Document) SearchText() string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(d.Title)
	b.WriteByte('\n')
	if d.Description != "" {
		b.WriteString("Description: ")
		b.WriteString(d.Description)
		b.WriteByte('\n')
	}
	if d.Abstract != "" {
		b.WriteString("Abstract: ")
		b.WriteString(d.Abstract)
		b.WriteByte('\n')
	}
	if d.Purpose != "" {
		b.WriteString("Purpose: ")
		b.WriteString(d.Purpose)
		b.WriteByte('\n')
	}
	if d.Source != "" {
		b.WriteString("Source: ")
		b.WriteString(d.Source)
		b.WriteByte('\n')
	}
	if len(d.Keywords) > 0 {
		b.WriteString("Keywords: ")
		b.WriteString(strings.Join(d.Keywords, ", "))
		b.WriteByte('\n')
	}
	return b.String()
}

// ContentID derives a stable identifier from title and source for documents
// the upstream catalog shipped without one.
func ContentID(title, source string) DocumentID {
	h := sha256.Sum256([]byte(title + "\x00" + source))
	return DocumentID(hex.EncodeToString(h[:8]))
}

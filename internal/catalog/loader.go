package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// LoadCatalog reads a catalog JSON file (an array of documents), drops
// entries without a title, assigns content-hash IDs to entries without one,
// and dedups by ID keeping the first occurrence. The returned order is the
// file order and becomes the corpus ordering.
func LoadCatalog(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var raw []Document
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	docs := make([]Document, 0, len(raw))
	seen := make(map[DocumentID]struct{}, len(raw))
	var skipped, deduped int

	for _, d := range raw {
		if d.Title == "" {
			skipped++
			continue
		}
		if d.ID == "" {
			d.ID = ContentID(d.Title, d.Source)
		}
		if _, dup := seen[d.ID]; dup {
			deduped++
			continue
		}
		seen[d.ID] = struct{}{}
		docs = append(docs, d)
	}

	if skipped > 0 || deduped > 0 {
		slog.Info("catalog_loaded",
			slog.String("path", path),
			slog.Int("documents", len(docs)),
			slog.Int("skipped_untitled", skipped),
			slog.Int("deduped", deduped))
	}

	return docs, nil
}

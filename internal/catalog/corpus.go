package catalog

// Corpus is an ordered, immutable snapshot of documents taken at index-build
// time. The lexical index numbers documents 0..N-1 positionally against this
// exact ordering, and the vector store resolves its native keys back to the
// same DocumentIDs, so one Corpus instance must back both indexes.
type Corpus struct {
	docs []Document
	pos  map[DocumentID]int
}

// NewCorpus builds a corpus from documents in the given order.
// Document IDs must be unique; later duplicates are skipped.
func NewCorpus(docs []Document) *Corpus {
	c := &Corpus{
		docs: make([]Document, 0, len(docs)),
		pos:  make(map[DocumentID]int, len(docs)),
	}
	for _, d := range docs {
		if _, seen := c.pos[d.ID]; seen {
			continue
		}
		c.pos[d.ID] = len(c.docs)
		c.docs = append(c.docs, d)
	}
	return c
}

// Len returns the number of documents in the corpus.
func (c *Corpus) Len() int { return len(c.docs) }

// IDAt returns the DocumentID at corpus position pos.
// Returns "" and false if pos is out of range.
func (c *Corpus) IDAt(pos int) (DocumentID, bool) {
	if pos < 0 || pos >= len(c.docs) {
		return "", false
	}
	return c.docs[pos].ID, true
}

// PositionOf maps a DocumentID back to its corpus position. This is the one
// sanctioned mapping between vector-backend identities and lexical positions.
func (c *Corpus) PositionOf(id DocumentID) (int, bool) {
	pos, ok := c.pos[id]
	return pos, ok
}

// DocumentAt returns the document at position pos.
func (c *Corpus) DocumentAt(pos int) (Document, bool) {
	if pos < 0 || pos >= len(c.docs) {
		return Document{}, false
	}
	return c.docs[pos], true
}

// Documents returns the ordered documents backing the corpus.
// The returned slice must not be mutated.
func (c *Corpus) Documents() []Document { return c.docs }

// Texts returns the search text for every document, in corpus order.
func (c *Corpus) Texts() []string {
	texts := make([]string, len(c.docs))
	for i := range c.docs {
		texts[i] = c.docs[i].SearchText()
	}
	return texts
}

// IDs returns all DocumentIDs in corpus order.
func (c *Corpus) IDs() []DocumentID {
	ids := make([]DocumentID, len(c.docs))
	for i := range c.docs {
		ids[i] = c.docs[i].ID
	}
	return ids
}

package search

import (
	"context"
	"strings"
	"sync"

	"alltech-shop/internal/models"
)

// MemoryClient is an in-process search Client for tests and
// credential-less local runs. Matching is a case-insensitive substring
// scan over product names, which is all the callers assert on.
type MemoryClient struct {
	mu      sync.Mutex
	indexes map[string]*MemoryIndex
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{indexes: make(map[string]*MemoryIndex)}
}

func (c *MemoryClient) Index(uid string) Index {
	return c.MemoryIndex(uid)
}

// MemoryIndex returns the concrete index so tests can inspect documents
// and inject failures.
func (c *MemoryClient) MemoryIndex(uid string) *MemoryIndex {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.indexes[uid]
	if !ok {
		idx = &MemoryIndex{docs: make(map[string]models.IndexDocument)}
		c.indexes[uid] = idx
	}
	return idx
}

type MemoryIndex struct {
	mu   sync.Mutex
	docs map[string]models.IndexDocument

	failWith error
	// Calls records mutation order for write-ordering assertions.
	Calls []string
}

// FailWith makes every subsequent operation return err (nil resets).
func (i *MemoryIndex) FailWith(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.failWith = err
}

// Document returns the stored document for id.
func (i *MemoryIndex) Document(id string) (models.IndexDocument, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	doc, ok := i.docs[id]
	return doc, ok
}

// Len reports the number of stored documents.
func (i *MemoryIndex) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.docs)
}

func (i *MemoryIndex) AddDocuments(ctx context.Context, docs []models.IndexDocument) error {
	return i.put("add", docs)
}

func (i *MemoryIndex) UpdateDocuments(ctx context.Context, docs []models.IndexDocument) error {
	return i.put("update", docs)
}

func (i *MemoryIndex) put(op string, docs []models.IndexDocument) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Calls = append(i.Calls, op)
	if i.failWith != nil {
		return i.failWith
	}
	for _, doc := range docs {
		i.docs[doc.ID] = doc
	}
	return nil
}

func (i *MemoryIndex) DeleteDocument(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Calls = append(i.Calls, "delete")
	if i.failWith != nil {
		return i.failWith
	}
	delete(i.docs, id)
	return nil
}

func (i *MemoryIndex) Search(ctx context.Context, query string, limit int) ([]models.IndexDocument, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Calls = append(i.Calls, "search")
	if i.failWith != nil {
		return nil, i.failWith
	}

	needle := strings.ToLower(query)
	var hits []models.IndexDocument
	for _, doc := range i.docs {
		if strings.Contains(strings.ToLower(doc.ProductName), needle) {
			hits = append(hits, doc)
			if limit > 0 && len(hits) == limit {
				break
			}
		}
	}
	return hits, nil
}

// Package mirror keeps one inventory collection and its search index in
// step. Every mutation writes the store first and the index second; a
// store failure leaves the index untouched, an index failure is reported
// but never rolls the store back.
package mirror

import (
	"context"
	"errors"
	"fmt"

	"alltech-shop/internal/models"
	"alltech-shop/internal/search"
	"alltech-shop/internal/store"
	"alltech-shop/pkg/logger"
)

var (
	// ErrDuplicateName rejects a create whose product name is already taken.
	ErrDuplicateName = errors.New("mirror: product name already exists")

	// ErrIndexWrite reports that the store write succeeded but the index
	// write did not. The store remains authoritative; the index is stale
	// until the next successful write for the same document.
	ErrIndexWrite = errors.New("mirror: index write failed")

	ErrNotFound = errors.New("mirror: item not found")
)

// Writer is the dual-write surface for one inventory kind.
type Writer struct {
	st   store.Store
	idx  search.Index
	kind models.Kind
	log  *logger.Logger
}

func NewWriter(st store.Store, sc search.Client, kind models.Kind, log *logger.Logger) *Writer {
	return &Writer{
		st:   st,
		idx:  sc.Index(kind.IndexUID),
		kind: kind,
		log:  log.WithComponent("mirror"),
	}
}

func (w *Writer) Kind() models.Kind { return w.kind }

func (w *Writer) collectionPath() string {
	return models.Path(w.kind.StorePath)
}

func (w *Writer) itemPath(id string) string {
	return models.Path(w.kind.StorePath, id)
}

// NameExists reports whether any item of this kind already carries the
// exact product name.
func (w *Writer) NameExists(ctx context.Context, name string) (bool, error) {
	entries, err := w.st.QueryByChild(ctx, w.collectionPath(), "product_name", name)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// Get reads one item and fills in its key.
func (w *Writer) Get(ctx context.Context, id string) (models.InventoryItem, error) {
	var item models.InventoryItem
	ok, err := w.st.Get(ctx, w.itemPath(id), &item)
	if err != nil {
		return models.InventoryItem{}, err
	}
	if !ok {
		return models.InventoryItem{}, ErrNotFound
	}
	item.ID = id
	return item, nil
}

// Create pushes a new item and mirrors it into the index. Duplicate
// product names are rejected before anything is written.
func (w *Writer) Create(ctx context.Context, item models.InventoryItem) (string, error) {
	taken, err := w.NameExists(ctx, item.ProductName)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("%w: %s", ErrDuplicateName, item.ProductName)
	}

	item.Timestamp = 0 // server-assigned
	id, err := w.st.Push(ctx, w.collectionPath(), item)
	if err != nil {
		return "", err
	}
	if err := w.idx.AddDocuments(ctx, []models.IndexDocument{item.IndexDocument(id)}); err != nil {
		w.log.Error("index add failed after store write", "kind", w.kind.Name, "id", id, "error", err)
		return id, fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return id, nil
}

// Put replaces the stored fields of an existing item, then mirrors the
// new state into the index.
func (w *Writer) Put(ctx context.Context, id string, item models.InventoryItem) error {
	if _, err := w.Get(ctx, id); err != nil {
		return err
	}

	fields := map[string]interface{}{
		"product_name": item.ProductName,
		"quantity":     item.Quantity,
		"price":        item.Price,
		"timestamp":    int64(0),
	}
	if err := w.st.Update(ctx, w.itemPath(id), fields); err != nil {
		return err
	}
	if err := w.idx.UpdateDocuments(ctx, []models.IndexDocument{item.IndexDocument(id)}); err != nil {
		w.log.Error("index update failed after store write", "kind", w.kind.Name, "id", id, "error", err)
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return nil
}

// Delete removes the item from the store, then from the index.
func (w *Writer) Delete(ctx context.Context, id string) error {
	if _, err := w.Get(ctx, id); err != nil {
		return err
	}
	if err := w.st.Delete(ctx, w.itemPath(id)); err != nil {
		return err
	}
	if err := w.idx.DeleteDocument(ctx, id); err != nil {
		w.log.Error("index delete failed after store write", "kind", w.kind.Name, "id", id, "error", err)
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return nil
}

// SyncIndex pushes the given document state into the index after a store
// write done elsewhere, such as a stock adjustment during a sale.
func (w *Writer) SyncIndex(ctx context.Context, doc models.IndexDocument) error {
	if err := w.idx.UpdateDocuments(ctx, []models.IndexDocument{doc}); err != nil {
		w.log.Error("index sync failed", "kind", w.kind.Name, "id", doc.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrIndexWrite, err)
	}
	return nil
}

// Search queries the mirrored index directly.
func (w *Writer) Search(ctx context.Context, query string, limit int) ([]models.IndexDocument, error) {
	return w.idx.Search(ctx, query, limit)
}

// Index exposes the underlying index for the typeahead engine.
func (w *Writer) Index() search.Index { return w.idx }

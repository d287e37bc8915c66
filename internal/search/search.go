// Package search wraps the external full-text index the inventory is
// mirrored into, and the debounced search-as-you-type engine built on it.
package search

import (
	"context"
	"errors"

	"alltech-shop/internal/models"
)

// ErrIndexRejected reports that the index service did not accept a
// mutation (it answered, but the task was not enqueued).
var ErrIndexRejected = errors.New("search: index rejected mutation")

// Index is one named collection of the search service.
type Index interface {
	AddDocuments(ctx context.Context, docs []models.IndexDocument) error
	UpdateDocuments(ctx context.Context, docs []models.IndexDocument) error
	DeleteDocument(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]models.IndexDocument, error)
}

// Client resolves named indexes.
type Client interface {
	Index(uid string) Index
}

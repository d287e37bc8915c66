// Package store abstracts the realtime document tree the shop data lives
// in. Documents are JSON leaves under slash-separated paths, keyed by
// chronologically ordered push IDs, with key-ordered range queries and
// live change notifications.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("store: not found")

// Entry is one document of a collection read, paired with its key.
type Entry struct {
	Key  string
	Data json.RawMessage
}

// Subscription is a live watch handle. Events signals that something under
// the watched path changed; consumers refetch whatever range they care
// about. Close is idempotent and must be called before a replacement watch
// is opened, so stale callbacks can never interleave with fresh ones.
type Subscription interface {
	Events() <-chan struct{}
	Err() error
	Close()
}

// Store is the realtime store client surface.
//
// Writes carrying a zero "timestamp" field receive a server-assigned
// timestamp that is non-decreasing across successive writes to a path.
type Store interface {
	// Get reads the document at path into v. The boolean reports whether
	// the document exists.
	Get(ctx context.Context, path string, v interface{}) (bool, error)

	// Set replaces the document at path.
	Set(ctx context.Context, path string, v interface{}) error

	// Update merges the given top-level fields into the document at path,
	// creating it if absent.
	Update(ctx context.Context, path string, fields map[string]interface{}) error

	// Push appends v under a fresh server-generated key and returns the key.
	Push(ctx context.Context, path string, v interface{}) (string, error)

	// Delete removes the document at path. Deleting a missing path is not
	// an error.
	Delete(ctx context.Context, path string) error

	// QueryByKey returns up to limit entries of the collection at path,
	// ordered by key ascending, starting strictly after the given key.
	// An empty after starts from the beginning; limit <= 0 returns all.
	QueryByKey(ctx context.Context, path, after string, limit int) ([]Entry, error)

	// QueryByChild returns the entries whose named child field equals value.
	QueryByChild(ctx context.Context, path, child string, value interface{}) ([]Entry, error)

	// Watch opens a live subscription to everything under path.
	Watch(ctx context.Context, path string) (Subscription, error)
}

// toPayload normalizes a write value into a generic JSON object so the
// implementations can substitute server timestamps.
func toPayload(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	delete(payload, "id")
	return payload, nil
}

func isZeroTimestamp(payload map[string]interface{}) bool {
	ts, ok := payload["timestamp"]
	if !ok {
		return false
	}
	switch n := ts.(type) {
	case float64:
		return n == 0
	case json.Number:
		return n.String() == "0"
	}
	return false
}

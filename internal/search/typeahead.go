package search

import (
	"context"
	"sync"
	"time"

	"alltech-shop/internal/models"
)

// DefaultDebounce is the quiet interval a query must survive before a
// request is issued.
const DefaultDebounce = 300 * time.Millisecond

type Status string

const (
	StatusOK    Status = "success"
	StatusInfo  Status = "info"
	StatusError Status = "error"
)

// Result is one typeahead outcome. StatusInfo marks the non-fatal
// "no items found" condition, distinct from a service failure.
type Result struct {
	Query   string                 `json:"query"`
	Hits    []models.IndexDocument `json:"hits"`
	Status  Status                 `json:"status"`
	Message string                 `json:"message,omitempty"`
}

// Typeahead debounces keystrokes against one index. Every SetQuery
// restarts the timer; only the query still standing when the timer fires
// is sent. In-flight requests are not cancelled when superseded: the last
// one to resolve wins, matching the observed front-end behavior.
type Typeahead struct {
	ctx   context.Context
	idx   Index
	delay time.Duration
	limit int

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	results chan Result
}

func NewTypeahead(ctx context.Context, idx Index, delay time.Duration, limit int) *Typeahead {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if limit <= 0 {
		limit = 20
	}
	return &Typeahead{
		ctx:     ctx,
		idx:     idx,
		delay:   delay,
		limit:   limit,
		results: make(chan Result, 16),
	}
}

// SetQuery registers the latest keystroke state. An empty query resolves
// immediately to an empty result set without touching the service.
func (t *Typeahead) SetQuery(query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if query == "" {
		t.emitLocked(Result{Query: "", Hits: []models.IndexDocument{}, Status: StatusOK})
		return
	}
	t.timer = time.AfterFunc(t.delay, func() { t.search(query) })
}

func (t *Typeahead) Results() <-chan Result { return t.results }

func (t *Typeahead) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	close(t.results)
}

func (t *Typeahead) search(query string) {
	hits, err := t.idx.Search(t.ctx, query, t.limit)

	result := Result{Query: query, Hits: hits, Status: StatusOK}
	switch {
	case err != nil:
		result.Hits = []models.IndexDocument{}
		result.Status = StatusError
		result.Message = "Error searching items"
	case len(hits) == 0:
		result.Hits = []models.IndexDocument{}
		result.Status = StatusInfo
		result.Message = "No items found"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitLocked(result)
}

func (t *Typeahead) emitLocked(r Result) {
	if t.closed {
		return
	}
	select {
	case t.results <- r:
	default:
		// Consumer lagging; newer state supersedes the dropped result.
	}
}

// Package pagination implements cursor pagination over a key-ordered
// collection, with live refresh of the loaded window.
package pagination

import (
	"context"
	"sync"

	"alltech-shop/internal/store"
)

// DefaultPageSize is the window grown per LoadMore when none is given.
const DefaultPageSize = 10

// FetchPage reads up to size entries starting strictly after the given
// key. It probes for size+1 entries so hasMore is exact: the probe entry
// is discarded, never shown, and the cursor stays at the last visible key.
func FetchPage(ctx context.Context, st store.Store, path, after string, size int) ([]store.Entry, bool, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	entries, err := st.QueryByKey(ctx, path, after, size+1)
	if err != nil {
		return nil, false, err
	}
	if len(entries) > size {
		return entries[:size], true, nil
	}
	return entries, false, nil
}

// Snapshot is the pager state published after a live refresh.
type Snapshot struct {
	Items   []store.Entry
	HasMore bool
}

// Pager accumulates pages of one collection and keeps the loaded window
// fresh. Each successful load replaces the previous watch with one
// covering the new window, so at most one subscription is live and stale
// events can never race a newer window.
type Pager struct {
	ctx  context.Context
	st   store.Store
	path string
	size int

	mu      sync.Mutex
	items   []store.Entry
	lastKey string
	hasMore bool
	loading bool
	err     error
	closed  bool
	sub     store.Subscription

	updates chan Snapshot
}

func NewPager(ctx context.Context, st store.Store, path string, size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{
		ctx:     ctx,
		st:      st,
		path:    path,
		size:    size,
		hasMore: true,
		updates: make(chan Snapshot, 1),
	}
}

// Items returns the loaded window.
func (p *Pager) Items() []store.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]store.Entry, len(p.items))
	copy(out, p.items)
	return out
}

// HasMore reports whether another LoadMore can grow the window.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Err returns the first load or watch failure. Once set, the pager stops
// loading.
func (p *Pager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Updates delivers snapshots produced by live refreshes and completed
// loads. Stale snapshots are dropped in favor of newer ones.
func (p *Pager) Updates() <-chan Snapshot { return p.updates }

// LoadMore grows the window by one page. It is a no-op while a load is in
// flight, after the collection is exhausted, and after an error.
func (p *Pager) LoadMore() {
	p.mu.Lock()
	if p.closed || p.loading || !p.hasMore || p.err != nil {
		p.mu.Unlock()
		return
	}
	p.loading = true
	after := p.lastKey
	p.mu.Unlock()

	go p.load(after)
}

func (p *Pager) load(after string) {
	entries, hasMore, err := FetchPage(p.ctx, p.st, p.path, after, p.size)

	p.mu.Lock()
	p.loading = false
	if p.closed {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.err = err
		p.mu.Unlock()
		return
	}
	p.items = append(p.items, entries...)
	p.hasMore = hasMore
	if len(p.items) > 0 {
		p.lastKey = p.items[len(p.items)-1].Key
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	// Watch first, publish second: once a snapshot is observable, changes
	// behind it are guaranteed to be picked up.
	p.resubscribe()
	p.publish(snap)
}

// resubscribe swaps the live watch for one matching the current window.
// The old subscription is closed before the new one is opened.
func (p *Pager) resubscribe() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	old := p.sub
	p.sub = nil
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}

	sub, err := p.st.Watch(p.ctx, p.path)
	if err != nil {
		p.fail(err)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		sub.Close()
		return
	}
	p.sub = sub
	p.mu.Unlock()

	go p.watch(sub)
}

func (p *Pager) watch(sub store.Subscription) {
	for range sub.Events() {
		p.refresh()
	}
	if err := sub.Err(); err != nil {
		p.fail(err)
	}
}

// refresh refetches the loaded window from the beginning, probing one
// past it so hasMore tracks inserts and deletes behind the cursor.
// Loads and refreshes are serialized through the loading flag: a refresh
// replacing the window while a load is appending past its old boundary
// would leave the boundary entry in twice.
func (p *Pager) refresh() {
	p.mu.Lock()
	if p.closed || p.err != nil || p.loading {
		p.mu.Unlock()
		return
	}
	p.loading = true
	window := len(p.items)
	p.mu.Unlock()
	if window == 0 {
		window = p.size
	}

	entries, hasMore, err := FetchPage(p.ctx, p.st, p.path, "", window)
	if err != nil {
		p.mu.Lock()
		p.loading = false
		p.mu.Unlock()
		p.fail(err)
		return
	}

	p.mu.Lock()
	p.loading = false
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.items = entries
	p.hasMore = hasMore
	if len(entries) > 0 {
		p.lastKey = entries[len(entries)-1].Key
	} else {
		p.lastKey = ""
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.publish(snap)
}

func (p *Pager) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.err != nil {
		return
	}
	p.err = err
	p.hasMore = false
}

func (p *Pager) snapshotLocked() Snapshot {
	items := make([]store.Entry, len(p.items))
	copy(items, p.items)
	return Snapshot{Items: items, HasMore: p.hasMore}
}

func (p *Pager) publish(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	// Keep only the freshest snapshot.
	select {
	case <-p.updates:
	default:
	}
	p.updates <- snap
}

func (p *Pager) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	sub := p.sub
	p.sub = nil
	close(p.updates)
	p.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

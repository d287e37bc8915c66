package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and credential-less local
// runs. It reproduces the semantics the services rely on: push-ID keys,
// key-ordered range reads, child-equality lookups, server timestamps that
// never decrease per path, and change notification fan-out.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]map[string]json.RawMessage // collection path -> key -> doc
	lastTS   map[string]int64                      // doc path -> last assigned timestamp
	watchers map[int]*memorySubscription
	nextID   int
	pushIDs  pushIDGenerator

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]map[string]json.RawMessage),
		lastTS:   make(map[string]int64),
		watchers: make(map[int]*memorySubscription),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

func splitDocPath(p string) (collection, key string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

func (m *Memory) Get(ctx context.Context, path string, v interface{}) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	collection, key := splitDocPath(path)
	doc, ok := m.docs[collection][key]
	if !ok {
		return false, nil
	}
	if v != nil {
		if err := json.Unmarshal(doc, v); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (m *Memory) Set(ctx context.Context, path string, v interface{}) error {
	payload, err := toPayload(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.stampLocked(path, payload)
	collection, key := splitDocPath(path)
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]json.RawMessage)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.docs[collection][key] = raw
	m.mu.Unlock()

	m.notify(path)
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	merged := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		merged[k] = v
	}
	// Round-trip so typed values (decimals, ints) compare like stored JSON.
	normalized, err := toPayload(merged)
	if err != nil {
		return err
	}

	m.mu.Lock()
	collection, key := splitDocPath(path)
	existing := make(map[string]interface{})
	if doc, ok := m.docs[collection][key]; ok {
		if err := json.Unmarshal(doc, &existing); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.stampLocked(path, normalized)
	for k, v := range normalized {
		existing[k] = v
	}
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]json.RawMessage)
	}
	raw, err := json.Marshal(existing)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.docs[collection][key] = raw
	m.mu.Unlock()

	m.notify(path)
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, v interface{}) (string, error) {
	key := m.pushIDs.Next(m.now())
	if err := m.Set(ctx, path+"/"+key, v); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	collection, key := splitDocPath(path)
	delete(m.docs[collection], key)
	m.mu.Unlock()

	m.notify(path)
	return nil
}

func (m *Memory) QueryByKey(ctx context.Context, path, after string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.docs[path]))
	for k := range m.docs[path] {
		if after == "" || k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Data: append(json.RawMessage(nil), m.docs[path][k]...)})
	}
	return entries, nil
}

func (m *Memory) QueryByChild(ctx context.Context, path, child string, value interface{}) ([]Entry, error) {
	want, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.docs[path]))
	for k := range m.docs[path] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var entries []Entry
	for _, k := range keys {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(m.docs[path][k], &fields); err != nil {
			continue
		}
		if got, ok := fields[child]; ok && bytes.Equal(bytes.TrimSpace(got), want) {
			entries = append(entries, Entry{Key: k, Data: append(json.RawMessage(nil), m.docs[path][k]...)})
		}
	}
	return entries, nil
}

func (m *Memory) Watch(ctx context.Context, path string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	sub := &memorySubscription{
		path:   path,
		events: make(chan struct{}, 1),
		remove: func() { m.removeWatcher(id) },
	}
	m.watchers[id] = sub
	return sub, nil
}

func (m *Memory) removeWatcher(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers, id)
}

// stampLocked assigns a server timestamp to payloads that asked for one
// (zero-valued "timestamp"), never going backwards for a given path.
func (m *Memory) stampLocked(path string, payload map[string]interface{}) {
	if !isZeroTimestamp(payload) {
		return
	}
	ts := m.now().UnixMilli()
	if last := m.lastTS[path]; ts < last {
		ts = last
	}
	m.lastTS[path] = ts
	payload["timestamp"] = ts
}

func (m *Memory) notify(path string) {
	m.mu.RLock()
	matched := make([]*memorySubscription, 0, len(m.watchers))
	for _, sub := range m.watchers {
		if path == sub.path || strings.HasPrefix(path, sub.path+"/") {
			matched = append(matched, sub)
		}
	}
	m.mu.RUnlock()

	// Signal outside the store lock; Close re-enters it.
	for _, sub := range matched {
		sub.signal()
	}
}

type memorySubscription struct {
	path   string
	events chan struct{}

	mu     sync.Mutex
	closed bool
	remove func()
}

func (s *memorySubscription) Events() <-chan struct{} { return s.events }

func (s *memorySubscription) Err() error { return nil }

func (s *memorySubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.remove()
	close(s.events)
}

func (s *memorySubscription) signal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- struct{}{}:
	default:
	}
}

package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"firebase.google.com/go/v4/db"

	"alltech-shop/pkg/logger"
)

// serverTimestamp is the realtime database sentinel that resolves to the
// write time on the server.
var serverTimestamp = map[string]string{".sv": "timestamp"}

// Firebase is the production Store, backed by the Firebase Realtime
// Database. CRUD and range queries go through the admin SDK; live watches
// use the database's REST event stream, which the Go SDK does not expose.
type Firebase struct {
	client *db.Client
	log    *logger.Logger

	// Event stream endpoint. streamToken, when set, is passed as the
	// auth query parameter.
	streamURL   string
	streamToken string
	streamHTTP  *http.Client
}

func NewFirebase(client *db.Client, streamURL, streamToken string, log *logger.Logger) *Firebase {
	return &Firebase{
		client:      client,
		log:         log.WithComponent("store"),
		streamURL:   strings.TrimRight(streamURL, "/"),
		streamToken: streamToken,
		// No timeout: the event stream is long-lived by design.
		streamHTTP: &http.Client{},
	}
}

func (f *Firebase) Get(ctx context.Context, path string, v interface{}) (bool, error) {
	var raw json.RawMessage
	if err := f.client.NewRef(path).Get(ctx, &raw); err != nil {
		return false, fmt.Errorf("store: get %s: %w", path, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if v != nil {
		if err := json.Unmarshal(raw, v); err != nil {
			return true, fmt.Errorf("store: decode %s: %w", path, err)
		}
	}
	return true, nil
}

func (f *Firebase) Set(ctx context.Context, path string, v interface{}) error {
	payload, err := f.preparePayload(v)
	if err != nil {
		return err
	}
	if err := f.client.NewRef(path).Set(ctx, payload); err != nil {
		return fmt.Errorf("store: set %s: %w", path, err)
	}
	return nil
}

func (f *Firebase) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	payload, err := f.preparePayload(fields)
	if err != nil {
		return err
	}
	if err := f.client.NewRef(path).Update(ctx, payload); err != nil {
		return fmt.Errorf("store: update %s: %w", path, err)
	}
	return nil
}

func (f *Firebase) Push(ctx context.Context, path string, v interface{}) (string, error) {
	payload, err := f.preparePayload(v)
	if err != nil {
		return "", err
	}
	ref, err := f.client.NewRef(path).Push(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("store: push %s: %w", path, err)
	}
	return ref.Key, nil
}

func (f *Firebase) Delete(ctx context.Context, path string) error {
	if err := f.client.NewRef(path).Delete(ctx); err != nil {
		return fmt.Errorf("store: delete %s: %w", path, err)
	}
	return nil
}

func (f *Firebase) QueryByKey(ctx context.Context, path, after string, limit int) ([]Entry, error) {
	q := f.client.NewRef(path).OrderByKey()
	if after != "" {
		// The SDK only offers inclusive StartAt. Keys are fixed-length
		// push IDs, so any suffix sorts strictly between a key and its
		// successor; appending the lowest alphabet character gives
		// exclusive start-after semantics without refetching the
		// boundary item.
		q = q.StartAt(after + "-")
	}
	if limit > 0 {
		q = q.LimitToFirst(limit)
	}
	nodes, err := q.GetOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", path, err)
	}
	return nodesToEntries(path, nodes)
}

func (f *Firebase) QueryByChild(ctx context.Context, path, child string, value interface{}) ([]Entry, error) {
	nodes, err := f.client.NewRef(path).OrderByChild(child).EqualTo(value).GetOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: query %s by %s: %w", path, child, err)
	}
	return nodesToEntries(path, nodes)
}

func nodesToEntries(path string, nodes []db.QueryNode) ([]Entry, error) {
	entries := make([]Entry, 0, len(nodes))
	for _, node := range nodes {
		var raw json.RawMessage
		if err := node.Unmarshal(&raw); err != nil {
			return nil, fmt.Errorf("store: decode %s/%s: %w", path, node.Key(), err)
		}
		entries = append(entries, Entry{Key: node.Key(), Data: raw})
	}
	return entries, nil
}

// Watch streams change events for path over the database's REST
// server-sent-events endpoint. Only the fact that something changed is
// surfaced; consumers refetch the range they display.
func (f *Firebase) Watch(ctx context.Context, path string) (Subscription, error) {
	url := f.streamURL + "/" + path + ".json"
	if f.streamToken != "" {
		url += "?auth=" + f.streamToken
	}

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("store: watch %s: %w", path, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := f.streamHTTP.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("store: watch %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("store: watch %s: unexpected status %d", path, resp.StatusCode)
	}

	sub := &firebaseSubscription{
		events: make(chan struct{}, 1),
		cancel: cancel,
	}
	go sub.run(resp, f.log, path)
	return sub, nil
}

func (f *Firebase) preparePayload(v interface{}) (map[string]interface{}, error) {
	payload, err := toPayload(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode payload: %w", err)
	}
	if isZeroTimestamp(payload) {
		payload["timestamp"] = serverTimestamp
	}
	return payload, nil
}

type firebaseSubscription struct {
	events chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	err    error
	closed bool
}

func (s *firebaseSubscription) Events() <-chan struct{} { return s.events }

func (s *firebaseSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the subscription. The events channel is owned by run and
// is closed when run returns, so consumers ranging over Events always
// unblock.
func (s *firebaseSubscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	// Idempotent; unblocks the stream read inside run.
	s.cancel()
}

func (s *firebaseSubscription) fail(err error) {
	s.mu.Lock()
	if !s.closed && s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// run consumes the event stream until it ends. put and patch events signal
// a change; cancel and auth_revoked terminate the subscription with an
// error.
func (s *firebaseSubscription) run(resp *http.Response, log *logger.Logger, path string) {
	defer func() {
		resp.Body.Close()
		s.cancel()

		// run is the only writer, so closing here can never race a send,
		// and it must happen regardless of who initiated the shutdown.
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	}()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "event:") {
			continue
		}
		switch strings.TrimSpace(strings.TrimPrefix(line, "event:")) {
		case "put", "patch":
			s.signal()
		case "keep-alive":
		case "cancel", "auth_revoked":
			s.fail(fmt.Errorf("store: watch %s terminated by server", path))
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.fail(fmt.Errorf("store: watch %s stream: %w", path, err))
		log.Warn("event stream ended", "path", path, "error", err)
	}
}

func (s *firebaseSubscription) signal() {
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

package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alltech-shop/pkg/logger"
)

type memTokens struct {
	mu      sync.Mutex
	pair    TokenPair
	updates int
}

func (m *memTokens) Tokens(ctx context.Context) (TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair, nil
}

func (m *memTokens) UpdateAccess(ctx context.Context, access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair.Access = access
	m.updates++
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.DefaultConfig())
}

func TestExchangeIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/firebase-auth/", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "firebase-token", body["idToken"])

		json.NewEncoder(w).Encode(TokenPair{Access: "a1", Refresh: "r1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	pair, err := c.ExchangeIDToken(context.Background(), "firebase-token")
	require.NoError(t, err)
	assert.Equal(t, TokenPair{Access: "a1", Refresh: "r1"}, pair)
}

func TestExchangeRejectsIncompletePair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access": "a1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.ExchangeIDToken(context.Background(), "t")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestDashboardPassesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shop1/dashboard/", r.URL.Path)
		require.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"revenue": 1200}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ts := &memTokens{pair: TokenPair{Access: "a1", Refresh: "r1"}}

	payload, err := c.Dashboard(context.Background(), ts)
	require.NoError(t, err)
	assert.JSONEq(t, `{"revenue": 1200}`, string(payload))
}

func TestDashboardRefreshesOnceOn401(t *testing.T) {
	var refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/refresh-token/":
			refreshCalls++
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "r1", body["refresh"])
			json.NewEncoder(w).Encode(map[string]string{"access": "a2"})
		case "/api/shop1/dashboard/":
			if r.Header.Get("Authorization") != "Bearer a2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"revenue": 7}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ts := &memTokens{pair: TokenPair{Access: "a1", Refresh: "r1"}}

	payload, err := c.Dashboard(context.Background(), ts)
	require.NoError(t, err)
	assert.JSONEq(t, `{"revenue": 7}`, string(payload))
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, 1, ts.updates, "the refreshed access token is persisted")
	assert.Equal(t, "a2", ts.pair.Access)
}

func TestDashboardSecond401IsSessionExpired(t *testing.T) {
	var refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/refresh-token/":
			refreshCalls++
			json.NewEncoder(w).Encode(map[string]string{"access": "still-bad"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ts := &memTokens{pair: TokenPair{Access: "a1", Refresh: "r1"}}

	_, err := c.Dashboard(context.Background(), ts)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, refreshCalls, "exactly one refresh attempt per request")
}

func TestDashboardRefreshFailureIsSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/refresh-token/" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ts := &memTokens{pair: TokenPair{Access: "a1", Refresh: "expired"}}

	_, err := c.Dashboard(context.Background(), ts)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestDetailedFollowsBackendPagination(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shop1/detailed/sales/", r.URL.Path)
		switch r.URL.Query().Get("page") {
		case "":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"count":   3,
				"next":    srvURL + "/api/shop1/detailed/sales/?page=2",
				"results": []map[string]string{{"id": "1"}, {"id": "2"}},
			})
		case "2":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"count":   3,
				"results": []map[string]string{{"id": "3"}},
			})
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := NewClient(srv.URL, testLogger())
	ts := &memTokens{pair: TokenPair{Access: "a1", Refresh: "r1"}}

	page, err := c.Detailed(context.Background(), ts, "sales", "")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	require.NotEmpty(t, page.Next)

	page, err = c.Detailed(context.Background(), ts, "sales", page.Next)
	require.NoError(t, err)
	assert.Empty(t, page.Next)
}

func TestDetailedRejectsForeignPageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the backend")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	ts := &memTokens{pair: TokenPair{Access: "a1", Refresh: "r1"}}

	_, err := c.Detailed(context.Background(), ts, "sales", "http://evil.example/steal")
	assert.ErrorIs(t, err, ErrUpstream)
}

// Package reports proxies the dashboard and detailed report endpoints of
// the Django backend. The backend issues its own token pair in exchange
// for a Firebase ID token; an expired access token is refreshed at most
// once per request before the session is declared dead.
package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"alltech-shop/pkg/logger"
)

// ErrSessionExpired means the access token was rejected and the refresh
// token could not mint a replacement. The caller must log in again.
var ErrSessionExpired = errors.New("reports: session expired")

// ErrUpstream wraps any non-auth backend failure.
var ErrUpstream = errors.New("reports: upstream error")

// TokenPair is the backend-issued credential set.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenSource supplies the current pair and persists a refreshed access
// token. Implemented by the session store.
type TokenSource interface {
	Tokens(ctx context.Context) (TokenPair, error)
	UpdateAccess(ctx context.Context, access string) error
}

// DetailedPage is one page of a detailed report. Next carries the
// backend's own pagination URL, empty on the last page.
type DetailedPage struct {
	Count    int             `json:"count"`
	Next     string          `json:"next,omitempty"`
	Previous string          `json:"previous,omitempty"`
	Results  json.RawMessage `json:"results"`
}

type Client struct {
	base  string
	httpc *http.Client
	log   *logger.Logger
}

func NewClient(base string, log *logger.Logger) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		httpc: &http.Client{Timeout: 30 * time.Second},
		log:   log.WithComponent("reports"),
	}
}

// ExchangeIDToken trades a verified Firebase ID token for the backend's
// token pair.
func (c *Client) ExchangeIDToken(ctx context.Context, idToken string) (TokenPair, error) {
	var pair TokenPair
	err := c.postJSON(ctx, c.base+"/api/firebase-auth/", map[string]string{"idToken": idToken}, &pair)
	if err != nil {
		return TokenPair{}, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		return TokenPair{}, fmt.Errorf("%w: incomplete token pair", ErrUpstream)
	}
	return pair, nil
}

// Refresh mints a new access token from the refresh token.
func (c *Client) Refresh(ctx context.Context, refresh string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	err := c.postJSON(ctx, c.base+"/api/refresh-token/", map[string]string{"refresh": refresh}, &out)
	if err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUpstream)
	}
	return out.Access, nil
}

// Dashboard fetches the aggregate dashboard payload. The shape is owned
// by the backend and passed through untouched.
func (c *Client) Dashboard(ctx context.Context, ts TokenSource) (json.RawMessage, error) {
	body, err := c.doAuthed(ctx, ts, c.base+"/api/shop1/dashboard/")
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Detailed fetches one page of a detailed report. pageURL, when set,
// must point back at the configured backend; it comes from a previous
// page's Next field.
func (c *Client) Detailed(ctx context.Context, ts TokenSource, reportType, pageURL string) (DetailedPage, error) {
	url := c.base + "/api/shop1/detailed/" + reportType + "/"
	if pageURL != "" {
		if !strings.HasPrefix(pageURL, c.base+"/") {
			return DetailedPage{}, fmt.Errorf("%w: page url outside backend", ErrUpstream)
		}
		url = pageURL
	}

	body, err := c.doAuthed(ctx, ts, url)
	if err != nil {
		return DetailedPage{}, err
	}
	var page DetailedPage
	if err := json.Unmarshal(body, &page); err != nil {
		return DetailedPage{}, fmt.Errorf("%w: decode page: %v", ErrUpstream, err)
	}
	return page, nil
}

// doAuthed performs an authenticated GET. A single 401 triggers one
// refresh and one retry; a second 401 ends the session.
func (c *Client) doAuthed(ctx context.Context, ts TokenSource, url string) (json.RawMessage, error) {
	pair, err := ts.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := c.get(ctx, url, pair.Access)
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized {
		return checkStatus(url, body, status)
	}

	c.log.Info("access token rejected, refreshing", "url", url)
	access, err := c.Refresh(ctx, pair.Refresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if err := ts.UpdateAccess(ctx, access); err != nil {
		return nil, err
	}

	body, status, err = c.get(ctx, url, access)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrSessionExpired
	}
	return checkStatus(url, body, status)
}

func checkStatus(url string, body []byte, status int) (json.RawMessage, error) {
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstream, url, status)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, url, access string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+access)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrUpstream, url, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

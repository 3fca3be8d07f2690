// Package client is the typed HTTP access layer for the reclaim API.
//
// Every call is a single round trip: there is no caching, retrying or request
// deduplication. A 401 response clears the session and fires OnUnauthorized.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/session"
)

// ErrUnexpectedShape is returned when a list body is neither an array nor a
// page envelope.
var ErrUnexpectedShape = model.ErrUnexpectedShape

// RequestError is a non-2xx response.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

// Client talks to one backend on behalf of one session.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session *session.Session

	// OnUnauthorized is called after the session is cleared because the
	// backend answered 401.
	OnUnauthorized func()
}

// New returns a client for baseURL (including the /api prefix) that
// authenticates with sess.
func New(baseURL string, sess *session.Session) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Session: sess,
		HTTP: &http.Client{
			Timeout:   60 * time.Second,
			Transport: &BearerTransport{Session: sess},
		},
	}
}

// BearerTransport adds the session token to every outgoing request.
type BearerTransport struct {
	Session *session.Session
	Base    http.RoundTripper
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	token := t.Session.Token()
	if token == "" || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(req)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) send(req *http.Request) (*response, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *Client) unauthorized() {
	if c.Session != nil {
		_ = c.Session.Clear()
	}
	if c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}

func errorMessage(status int, body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(status)
}

// call sends a JSON request and decodes a JSON response into out when out is
// not nil.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) blob(ctx context.Context, path string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.send(req)
	if err != nil {
		return nil, "", err
	}
	return resp.body, resp.header.Get("Content-Type"), nil
}

// Generation tracks which of several overlapping requests is the latest one
// issued. Callers take a ticket before a request and drop the result if the
// ticket is no longer current when it arrives.
type Generation struct {
	n atomic.Uint64
}

// Next issues a new ticket, invalidating every earlier one.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// Current reports whether ticket is still the latest issued.
func (g *Generation) Current(ticket uint64) bool {
	return g.n.Load() == ticket
}

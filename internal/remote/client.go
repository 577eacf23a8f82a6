// Package remote is the client of the link server. It implements the
// remote store operations the sync core depends on.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
)

var (
	// ErrUnavailable is returned by every call when no server is configured.
	ErrUnavailable = errors.New("remote store unavailable: no server configured")
	// ErrNotFound is returned when the server reports a missing link.
	ErrNotFound = errors.New("link not found")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Is lets errors.Is match ErrNotFound on 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// TokenGetter returns the current bearer token, or "" when signed out.
type TokenGetter func(ctx context.Context) (string, error)

// Service talks to the link server. Construct it once and share it.
type Service struct {
	baseURL string
	client  *http.Client

	mu       sync.RWMutex
	getToken TokenGetter
}

// New creates a client for baseURL. An empty baseURL yields a service whose
// calls all return ErrUnavailable.
func New(baseURL string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SetTokenGetter swaps the auth source. Pass nil on sign-out.
func (s *Service) SetTokenGetter(fn TokenGetter) {
	s.mu.Lock()
	s.getToken = fn
	s.mu.Unlock()
}

// Available reports whether a server is configured.
func (s *Service) Available() bool { return s.baseURL != "" }

// ─────────────────────────────────────────────────────────────────
// Link store operations
// ─────────────────────────────────────────────────────────────────

// ListLinks returns the signed-in owner's rows ordered by sort order.
func (s *Service) ListLinks(ctx context.Context) ([]domain.LinkRow, error) {
	var rows []domain.LinkRow
	if err := s.do(ctx, http.MethodGet, "/api/links", nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertLinks creates rows and returns them with their server-assigned ids.
func (s *Service) InsertLinks(ctx context.Context, rows []domain.LinkInsert) ([]domain.LinkRow, error) {
	var created []domain.LinkRow
	if err := s.do(ctx, http.MethodPost, "/api/links", nil, rows, &created); err != nil {
		return nil, err
	}
	return created, nil
}

type countResponse struct {
	Count int `json:"count"`
}

// UpdateLinks patches the rows selected by m.
func (s *Service) UpdateLinks(ctx context.Context, m domain.Match, p domain.LinkPatch) (int, error) {
	var res countResponse
	if err := s.do(ctx, http.MethodPatch, "/api/links", matchQuery(m), p, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// DeleteLinks removes the rows selected by m, or all of the owner's rows
// when m is zero.
func (s *Service) DeleteLinks(ctx context.Context, m domain.Match) (int, error) {
	var res countResponse
	if err := s.do(ctx, http.MethodDelete, "/api/links", matchQuery(m), nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

type clickRequest struct {
	LinkID     string `json:"linkId,omitempty"`
	OwnerID    string `json:"ownerId,omitempty"`
	URL        string `json:"url,omitempty"`
	DeltaCount int64  `json:"deltaCount"`
}

type clickResponse struct {
	Success    bool   `json:"success"`
	ID         string `json:"linkId"`
	ClickCount int64  `json:"clickCount"`
}

// Increment adds delta to a link's click count on the server.
func (s *Service) Increment(ctx context.Context, t domain.IncrementTarget, delta int64) (domain.ClickCount, error) {
	req := clickRequest{LinkID: t.LinkID, OwnerID: t.OwnerID, URL: t.URL, DeltaCount: delta}
	var res clickResponse
	if err := s.do(ctx, http.MethodPost, "/click-track", nil, req, &res); err != nil {
		return domain.ClickCount{}, err
	}
	id := res.ID
	if id == "" {
		id = t.LinkID
	}
	return domain.ClickCount{ID: id, ClickCount: res.ClickCount}, nil
}

// ─────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────

func matchQuery(m domain.Match) url.Values {
	q := url.Values{}
	switch {
	case m.ID != "":
		q.Set("id", m.ID)
	case m.URL != "":
		q.Set("url", m.URL)
	}
	return q
}

func (s *Service) token(ctx context.Context) (string, error) {
	s.mu.RLock()
	fn := s.getToken
	s.mu.RUnlock()
	if fn == nil {
		return "", nil
	}
	return fn(ctx)
}

func (s *Service) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if !s.Available() {
		return ErrUnavailable
	}

	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := s.token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get auth token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

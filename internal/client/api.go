// Package client talks to the hiring API and degrades to local state kept in
// package offline when the server cannot be reached.
package client

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
	"time"

	"spothire/internal/model"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Unreachable reports whether err means the server could not serve the
// request at all: a transport failure or a 5xx response. Client errors are
// not unreachable and must be surfaced.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

// SessionSummary is a QR session as listed by the server or kept locally.
type SessionSummary struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
	EmployerID string    `json:"employerId,omitempty"`
}

// Registration is a walk-in registration submitted after a scan.
type Registration struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	Area      string `json:"area,omitempty"`
	Education string `json:"education,omitempty"`
}

// SearchFilter narrows a candidate search.
type SearchFilter struct {
	Role      string
	Area      string
	Education string
}

func (f SearchFilter) query() url.Values {
	q := url.Values{}
	if f.Role != "" {
		q.Set("role", f.Role)
	}
	if f.Area != "" {
		q.Set("area", f.Area)
	}
	if f.Education != "" {
		q.Set("education", f.Education)
	}
	return q
}

// API is a thin JSON client for the hiring endpoints under baseURL, which
// includes the /api prefix.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (a *API) Search(ctx context.Context, f SearchFilter) ([]model.Candidate, error) {
	path := "/candidates/search"
	if q := f.query().Encode(); q != "" {
		path += "?" + q
	}
	var resp struct {
		Results []model.Candidate `json:"results"`
	}
	if err := a.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (a *API) Feed(ctx context.Context) (*model.FeedSnapshot, error) {
	var resp model.FeedSnapshot
	if err := a.do(ctx, http.MethodGet, "/feed", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) UpdateStatus(ctx context.Context, id, status string, note *string) (*model.Candidate, error) {
	body := map[string]interface{}{"id": id, "status": status}
	if note != nil {
		body["note"] = *note
	}
	var resp struct {
		Candidate model.Candidate `json:"candidate"`
	}
	if err := a.do(ctx, http.MethodPatch, "/candidates/status", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Candidate, nil
}

func (a *API) ListSessions(ctx context.Context, activeOnly bool) ([]SessionSummary, error) {
	path := "/qr/sessions"
	if activeOnly {
		path += "?active=true"
	}
	var resp struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	if err := a.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (a *API) StartSession(ctx context.Context, employerID string) (*SessionSummary, error) {
	var resp struct {
		Session SessionSummary `json:"session"`
	}
	body := map[string]string{"employerId": employerID}
	if err := a.do(ctx, http.MethodPost, "/qr/sessions", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (a *API) StopSession(ctx context.Context, id string) (*SessionSummary, error) {
	var resp struct {
		Session SessionSummary `json:"session"`
	}
	if err := a.do(ctx, http.MethodPatch, "/qr/sessions/"+url.PathEscape(id)+"/stop", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (a *API) Scan(ctx context.Context, code string) error {
	return a.do(ctx, http.MethodPost, "/qr/scan", map[string]string{"code": code}, nil)
}

func (a *API) Register(ctx context.Context, reg Registration) (*model.RegisteredCandidate, error) {
	var resp struct {
		Candidate model.RegisteredCandidate `json:"candidate"`
	}
	if err := a.do(ctx, http.MethodPost, "/qr/register", reg, &resp); err != nil {
		return nil, err
	}
	return &resp.Candidate, nil
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(data))
		}
		if msg.Message == "" {
			msg.Message = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Package api is the request/response client for the chat backend's session
// endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neilberkman/medichat/internal/core/models"
)

// Client talks to /api/sessions on the backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL (e.g. http://localhost:8000)
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the backend base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

type listSessionsResponse struct {
	Sessions []models.Session `json:"sessions"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type messagesResponse struct {
	Messages []models.HistoryMessage `json:"messages"`
}

// ListSessions returns the backend's sessions, newest first by convention.
// The order is not verified here.
func (c *Client) ListSessions(ctx context.Context) ([]models.Session, error) {
	var resp listSessionsResponse
	if err := c.do(ctx, "list sessions", http.MethodGet, "/api/sessions", &resp); err != nil {
		return nil, err
	}

	for i := range resp.Sessions {
		resp.Sessions[i].Order = i
	}
	return resp.Sessions, nil
}

// CreateSession creates a new session and returns its id
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp createSessionResponse
	if err := c.do(ctx, "create session", http.MethodPost, "/api/sessions", &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", &RequestError{Op: "create session", Err: errors.New("response has no session_id")}
	}
	return resp.SessionID, nil
}

// DeleteSession deletes a session by id
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, "delete session", http.MethodDelete, "/api/sessions/"+url.PathEscape(sessionID), nil)
}

// SessionMessages returns the ordered message history of a session
func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	var resp messagesResponse
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/messages"
	if err := c.do(ctx, "load messages", http.MethodGet, path, &resp); err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, m.ToMessage())
	}
	return messages, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, Err: err}
	}
	return nil
}

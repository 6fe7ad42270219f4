// Package weddingapi is a client for the wedding platform's guest endpoints.
//
// It implements core.GuestDirectory so the import service can check for
// existing guests and bulk-create new ones without knowing it talks HTTP.
package weddingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

// maxErrorBody caps how much of a failed response is read into APIError.
const maxErrorBody = 4 << 10

// APIError is a non-2xx response from the wedding API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wedding api: status %d: %s", e.StatusCode, e.Message)
}

// Client calls the wedding API. The bearer token is taken from the
// request's Session when present, otherwise from the configured token.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// New creates a client for baseURL. A zero timeout keeps http.Client's
// default of no timeout.
func New(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid wedding api url: %q", baseURL)
	}
	return &Client{
		baseURL:    u,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type checkEmailsRequest struct {
	Emails []string `json:"emails"`
}

type checkEmailsResponse struct {
	ExistingEmails []string `json:"existingEmails"`
}

// ExistingEmails returns the subset of emails already used by guests of
// weddingID.
func (c *Client) ExistingEmails(ctx context.Context, weddingID string, emails []string) ([]string, error) {
	var out checkEmailsResponse
	if err := c.doJSON(ctx, http.MethodPost, weddingPath(weddingID, "guests/check-emails"), checkEmailsRequest{Emails: emails}, &out); err != nil {
		return nil, err
	}
	return out.ExistingEmails, nil
}

type bulkCreateRequest struct {
	Guests []core.GuestInput `json:"guests"`
}

// BulkCreateGuests creates guests in one request and returns the server's tally.
func (c *Client) BulkCreateGuests(ctx context.Context, weddingID string, guests []core.GuestInput) (*core.BulkImportGuestResult, error) {
	var out core.BulkImportGuestResult
	if err := c.doJSON(ctx, http.MethodPost, weddingPath(weddingID, "guests/bulk"), bulkCreateRequest{Guests: guests}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func weddingPath(weddingID, rest string) string {
	return "/weddings/" + url.PathEscape(weddingID) + "/" + rest
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("wedding api: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("wedding api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokenFor(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wedding api: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("wedding api: decode response: %w", err)
	}
	return nil
}

func (c *Client) tokenFor(ctx context.Context) string {
	if s, ok := SessionFromContext(ctx); ok {
		return s.Token
	}
	return c.token
}

// errorMessage pulls a message out of an error body: JSON "message" or
// "error" first, then plain text, then the status text.
func errorMessage(status int, raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(status)
}

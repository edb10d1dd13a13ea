package api

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

	"stemlab/internal/services"
)

const defaultTimeout = 2 * time.Minute

// HTTPDoer is the subset of http.Client the API client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a running daemon over HTTP.
type Client struct {
	baseURL string
	http    HTTPDoer
}

// ClientOption adjusts Client construction.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, primarily for tests.
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// NewClient builds a client for the daemon at baseURL, e.g.
// "http://127.0.0.1:5000".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api client requires a server URL")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse server URL %q: %w", baseURL, err)
	}
	client := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.getJSON(ctx, "/healthz", &out)
	return out, err
}

// RequestCode asks the daemon to email a verification code.
func (c *Client) RequestCode(ctx context.Context, email string) error {
	var out OKResponse
	return c.postJSON(ctx, "/api/auth/request-code", RequestCodeRequest{Email: email}, &out)
}

// Verify redeems a verification code and returns the stored account.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (AccountSummary, error) {
	var out AccountSummary
	err := c.postJSON(ctx, "/api/auth/verify", req, &out)
	return out, err
}

// ListSessions fetches library metadata in creation order.
func (c *Client) ListSessions(ctx context.Context) ([]SessionMetadata, error) {
	var out LibraryListResponse
	if err := c.getJSON(ctx, "/api/library", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetSession fetches one saved session with its stems.
func (c *Client) GetSession(ctx context.Context, id string) (SessionDetail, error) {
	var out SessionDetail
	err := c.getJSON(ctx, "/api/library/"+url.PathEscape(id), &out)
	return out, err
}

// SaveSession stores stems as a new library session.
func (c *Client) SaveSession(ctx context.Context, req SaveSessionRequest) (SessionMetadata, error) {
	var out SessionMetadata
	err := c.postJSON(ctx, "/api/library", req, &out)
	return out, err
}

// DownloadBundle streams a session's zip archive to w and returns the byte
// count.
func (c *Client) DownloadBundle(ctx context.Context, id string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/library/"+url.PathEscape(id)+"/bundle", nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download bundle: %w", err)
	}
	return n, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError maps an error response back onto the service error markers so
// callers can use errors.Is the same way server-side code does.
func decodeError(resp *http.Response) error {
	detail := strings.TrimSpace(readDetail(resp.Body))
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	marker := services.ErrUpstream
	switch resp.StatusCode {
	case http.StatusBadRequest:
		marker = services.ErrValidation
	case http.StatusNotFound:
		marker = services.ErrNotFound
	case http.StatusServiceUnavailable:
		marker = services.ErrUnavailable
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func readDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil {
		return ""
	}
	var parsed ErrorResponse
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return string(data)
}

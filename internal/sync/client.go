package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	gosync "sync"
	"time"

	"github.com/hyperengineering/chronolog/internal/model"
)

// Transport performs the pull and push exchanges with the sync server.
// Every failure is a *SyncError. Implementations must be safe for concurrent use.
type Transport interface {
	// Pull fetches every change since the watermark. An empty since requests
	// a full sync.
	Pull(ctx context.Context, since string) (*model.PullResponse, error)

	// Push sends mutations in queue order, grouped by table.
	Push(ctx context.Context, mutations []model.PendingMutation) (*model.PushResponse, error)
}

// HTTPTransport implements Transport and the view endpoints over net/http.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    gosync.RWMutex
	token string
}

// NewHTTPTransport creates a transport for the server at serverURL.
func NewHTTPTransport(serverURL, token string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom timeouts).
func (c *HTTPTransport) WithHTTPClient(client *http.Client) *HTTPTransport {
	c.httpClient = client
	return c
}

// WithLogger routes request and response logging to logger.
func (c *HTTPTransport) WithLogger(logger *slog.Logger) *HTTPTransport {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *HTTPTransport) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPTransport) setHeaders(req *http.Request) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "chronolog-client/1.0")
	req.Header.Set("Accept", "application/json")
}

// do sends a request and returns the response body of a 2xx reply.
func (c *HTTPTransport) do(ctx context.Context, op, method, path string, body []byte) ([]byte, int, http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, nil, c.fail(newNetworkError(op, err))
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("body", truncateForLog(body, 2000)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, nil, c.fail(newNetworkError(op, err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, nil, c.fail(newNetworkError(op, err))
	}

	c.logger.Debug("response",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.String("body", truncateForLog(respBody, 4000)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, nil, c.fail(newStatusError(op, resp.StatusCode, respBody))
	}
	return respBody, resp.StatusCode, resp.Header, nil
}

// getJSON issues a GET and decodes the JSON reply into out.
func (c *HTTPTransport) getJSON(ctx context.Context, op, path string, out any) error {
	body, status, _, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(newDecodeError(op, status, err))
	}
	return nil
}

func (c *HTTPTransport) fail(err *SyncError) *SyncError {
	c.logger.Debug("transport error",
		slog.String("op", err.Operation),
		slog.String("kind", err.Kind.String()),
		slog.Int("status", err.StatusCode),
		slog.String("error", err.Error()))
	return err
}

func (c *HTTPTransport) Pull(ctx context.Context, since string) (*model.PullResponse, error) {
	path := "/api/sync/pull"
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}
	var result model.PullResponse
	if err := c.getJSON(ctx, "pull", path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPTransport) Push(ctx context.Context, mutations []model.PendingMutation) (*model.PushResponse, error) {
	body, err := json.Marshal(BuildPushRequest(mutations))
	if err != nil {
		return nil, c.fail(newNetworkError("push", err))
	}
	respBody, status, _, err := c.do(ctx, "push", http.MethodPost, "/api/sync/push", body)
	if err != nil {
		return nil, err
	}
	var result model.PushResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, c.fail(newDecodeError("push", status, err))
	}
	return &result, nil
}

// BuildPushRequest groups mutations by table, keeping queue order within
// each table. The mutation timestamp becomes clientUpdatedAt.
func BuildPushRequest(mutations []model.PendingMutation) *model.PushRequest {
	req := &model.PushRequest{Changes: make(map[string][]model.Change)}
	for _, m := range mutations {
		data := m.Data
		if data == nil {
			data = map[string]any{}
		}
		req.Changes[m.Table] = append(req.Changes[m.Table], model.Change{
			Operation:       m.Operation,
			Data:            data,
			ClientUpdatedAt: m.Timestamp,
		})
	}
	return req
}

func truncateForLog(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "... [truncated]"
}

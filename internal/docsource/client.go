package docsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client fetches raw markdown documents over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	backoff    func(attempt int) time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoff: Backoff,
	}
}

// WithRetries makes Fetch retry transient failures up to n more times.
func (c *Client) WithRetries(n int) *Client {
	if n > MaxRetries {
		n = MaxRetries
	}
	c.retries = n
	return c
}

// FetchError reports a non-successful HTTP response for a document.
type FetchError struct {
	Path   string
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("fetch %s: status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("fetch %s: status %d: %s", e.Path, e.Status, e.Body)
}

// Fetch retrieves the document at path, relative to the client's base URL.
// Any 2xx status is success; the content type is not checked.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for attempt := 0; ; attempt++ {
		body, err := c.fetchOnce(ctx, path)
		if err == nil || attempt >= c.retries || !IsRetryable(err) {
			return body, err
		}
		t := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, err
		case <-t.C:
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, path string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &FetchError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Package httpx provides the shared authenticated HTTP client the JSON
// catalog sources fetch pages with. It classifies failures into the
// transient/fatal taxonomy so the retry policy can decide in one place.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minsukl/toondex-ingest/internal/ingest"
)

// Config controls client behavior. APIKeyHeader defaults to
// Authorization with a Bearer token when APIKey is set.
type Config struct {
	UserAgent    string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
}

// Client performs single-page GETs against one source's API.
type Client struct {
	cfg Config
	hc  *http.Client
}

// New builds a Client with a pooled transport.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(),
		},
	}
}

// Get fetches url and returns the response body. Errors carry the
// taxonomy: network failures, timeouts, 429 and 5xx are transient;
// auth rejections and other client errors are fatal.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ingest.Fatal(fmt.Errorf("build request: %w", err))
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" {
		header := c.cfg.APIKeyHeader
		if header == "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		} else {
			req.Header.Set(header, c.cfg.APIKey)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, ingest.Transient(fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := ClassifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ingest.Transient(fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

// ClassifyStatus maps an HTTP status code onto the error taxonomy.
// 2xx returns nil.
func ClassifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return ingest.Transient(fmt.Errorf("http status %d", code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ingest.Fatal(fmt.Errorf("auth rejected with status %d", code))
	default:
		return ingest.Fatal(fmt.Errorf("http status %d", code))
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

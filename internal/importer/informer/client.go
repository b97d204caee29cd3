// Package informer reads member datasets from the Informer reporting API.
package informer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "unionhub/pkg/domain-errors"
)

const maxBody = 64 << 20

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DatasetURL resolves a dataset token against the base URL. An absolute URL
// is returned unchanged.
func (c *Client) DatasetURL(tokenOrURL string) (string, error) {
	tokenOrURL = strings.TrimSpace(tokenOrURL)
	if tokenOrURL == "" {
		return "", dErrors.New(dErrors.CodeValidation, "dataset token is required")
	}
	if u, err := url.Parse(tokenOrURL); err == nil && u.IsAbs() {
		return tokenOrURL, nil
	}
	if c.baseURL == "" {
		return "", dErrors.New(dErrors.CodeValidation, "informer base url is not configured")
	}
	return url.JoinPath(c.baseURL, "api", "datasets", tokenOrURL)
}

// Fetch downloads a dataset and returns its rows.
func (c *Client) Fetch(ctx context.Context, tokenOrURL string) ([]map[string]any, error) {
	endpoint, err := c.DatasetURL(tokenOrURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid dataset url")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "informer request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("informer returned status %d", resp.StatusCode))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read informer response")
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.InfoContext(ctx, "informer dataset fetched",
			"rows", len(rows),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return rows, nil
}

// decodeRows accepts a bare array or an object with a data array.
func decodeRows(raw []byte) ([]map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	dec := func(v any) error {
		d := json.NewDecoder(bytes.NewReader(raw))
		d.UseNumber()
		return d.Decode(v)
	}
	if len(raw) > 0 && raw[0] == '[' {
		var rows []map[string]any
		if err := dec(&rows); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed informer dataset")
		}
		return rows, nil
	}
	var wrapped struct {
		Data []map[string]any `json:"data"`
	}
	if err := dec(&wrapped); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed informer dataset")
	}
	return wrapped.Data, nil
}

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// TestContext carries one scenario's HTTP state against a running server.
type TestContext struct {
	BaseURL  string
	client   *http.Client
	headers  map[string]string
	token    string
	clientIP string
	vars     map[string]string

	lastStatus int
	lastHeader http.Header
	lastBody   []byte
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		headers: map[string]string{},
		vars:    map[string]string{},
	}
}

// Reset clears scenario state and picks a documentation-range client IP so
// that rate limit budgets do not leak between scenarios.
func (tc *TestContext) Reset() {
	tc.headers = map[string]string{}
	tc.vars = map[string]string{}
	tc.token = ""
	tc.clientIP = fmt.Sprintf("198.51.100.%d", rand.IntN(254)+1)
	tc.lastStatus = 0
	tc.lastHeader = nil
	tc.lastBody = nil
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, "", nil)
}

func (tc *TestContext) POST(path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	return tc.do(http.MethodPost, path, "application/json", bytes.NewReader(raw))
}

func (tc *TestContext) PostRaw(path, contentType, body string) error {
	return tc.do(http.MethodPost, path, contentType, strings.NewReader(body))
}

func (tc *TestContext) do(method, path, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	if tc.clientIP != "" {
		req.Header.Set("X-Forwarded-For", tc.clientIP)
	}
	for k, v := range tc.headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	return nil
}

func (tc *TestContext) SetHeader(key, value string) { tc.headers[key] = value }

func (tc *TestContext) SetAdminToken(token string) { tc.token = token }

func (tc *TestContext) ClearAdminToken() { tc.token = "" }

func (tc *TestContext) UseClientIP(ip string) { tc.clientIP = ip }

func (tc *TestContext) ClientIP() string { return tc.clientIP }

func (tc *TestContext) Save(key, value string) { tc.vars[key] = value }

func (tc *TestContext) Saved(key string) string { return tc.vars[key] }

// Expand replaces {name} placeholders with saved values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }

func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

func (tc *TestContext) GetLastResponseHeader(key string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(key)
}

// GetResponseField reads a dotted path from the last JSON object response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		doc, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", field, tc.lastBody)
		}
	}
	return doc, nil
}

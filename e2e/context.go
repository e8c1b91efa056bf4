package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext carries one scenario's HTTP state against a running server.
type TestContext struct {
	BaseURL    string
	AdminToken string

	client       *http.Client
	bearer       string
	lastStatus   int
	lastBody     []byte
	lastResponse map[string]any
}

// NewTestContext reads PROCESSGUARD_E2E_URL and PROCESSGUARD_E2E_ADMIN_TOKEN.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(os.Getenv("PROCESSGUARD_E2E_URL"), "/"),
		AdminToken: os.Getenv("PROCESSGUARD_E2E_ADMIN_TOKEN"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.bearer = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastResponse = nil
}

func (tc *TestContext) SetBearer(token string) { tc.bearer = token }

func (tc *TestContext) GetAdminToken() string { return tc.AdminToken }

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	return tc.do(http.MethodPost, path, reader)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+tc.bearer)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		_ = json.Unmarshal(tc.lastBody, &tc.lastResponse)
	}
	return nil
}

func (tc *TestContext) GetLastStatus() int { return tc.lastStatus }

func (tc *TestContext) GetLastBody() string { return string(tc.lastBody) }

// GetResponseField returns a top-level field of the last JSON object response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("last response is not a JSON object: %s", tc.lastBody)
	}
	v, ok := tc.lastResponse[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response: %s", field, tc.lastBody)
	}
	return v, nil
}

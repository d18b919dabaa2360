package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	jwttoken "filegov/internal/jwt_token"
	"filegov/internal/platform/config"
)

// TestContext holds state between the steps of one scenario.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	Tokens           *jwttoken.JWTService
	LastResponse     *http.Response
	LastResponseBody []byte
	LastRequestID    string

	closeServer func()
}

// NewTestContext targets BASE_URL when set, expecting a server started with
// --seed and the same JWT settings as this process. Otherwise it starts an
// in-process server.
func NewTestContext() (*TestContext, error) {
	tc := &TestContext{
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		closeServer: func() {},
	}
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		srv := config.FromEnv().Server
		tc.BaseURL = baseURL
		tc.Tokens = jwttoken.NewJWTService(srv.JWTSigningKey, srv.JWTIssuer, srv.JWTAudience, srv.TokenTTL)
		return tc, nil
	}

	server, tokens, err := startInProcess()
	if err != nil {
		return nil, err
	}
	tc.BaseURL = server.URL
	tc.Tokens = tokens
	tc.closeServer = server.Close
	return tc, nil
}

func (tc *TestContext) Close() {
	tc.closeServer()
}

// Do sends a request as the given actor and records the response. An empty
// handle sends no Authorization header.
func (tc *TestContext) Do(ctx context.Context, method, path, handle string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if handle != "" {
		token, err := tc.Tokens.IssueToken(ctx, handle)
		if err != nil {
			return fmt.Errorf("failed to issue token for %s: %w", handle, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

func (tc *TestContext) Status() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

// Decode unmarshals the last response body into v.
func (tc *TestContext) Decode(v any) error {
	if err := json.Unmarshal(tc.LastResponseBody, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w\nbody: %s", err, tc.LastResponseBody)
	}
	return nil
}

// Field returns a top-level field of the last JSON response.
func (tc *TestContext) Field(field string) (any, error) {
	var data map[string]any
	if err := tc.Decode(&data); err != nil {
		return nil, err
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response: %s", field, tc.LastResponseBody)
	}
	return value, nil
}

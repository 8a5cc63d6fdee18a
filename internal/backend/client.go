// Package backend is the typed client for the upstream commerce API. All
// remote calls the storefront makes go through it; authenticated calls get
// the bearer token attached and a single transparent refresh-and-retry on
// 401.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APIError is a non-2xx response from the backend, with the message pulled
// out of the JSON body when there is one and the raw text otherwise.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: status=%d message=%q", e.Status, e.Message)
}

// TokenSource supplies and refreshes the bearer credential for a session.
// *session.Manager implements it.
type TokenSource interface {
	Token(ctx context.Context, sessionID string) (string, error)
	Refresh(ctx context.Context, sessionID string) (string, error)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
	Log     *zap.Logger

	// Count, when set, records one upstream call per endpoint.
	Count func(endpoint string, err error)
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Tokens:  tokens,
		Log:     log,
	}
}

// do issues one authenticated call. On 401 with a token present it refreshes
// once and retries once; a 401 with no token is returned as-is since there
// is nothing to refresh. It never loops.
func (c *Client) do(ctx context.Context, sessionID, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	token, err := c.Tokens.Token(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("token lookup: %w", err)
	}

	resp, err := c.send(ctx, method, path, query, payload, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		drain(resp)

		newToken, refreshErr := c.Tokens.Refresh(ctx, sessionID)
		if refreshErr != nil {
			// Credentials are already cleared by the token source; the
			// caller sees the original authorization failure.
			return &APIError{Status: http.StatusUnauthorized, Message: "session expired"}
		}

		if resp, err = c.send(ctx, method, path, query, payload, newToken); err != nil {
			return err
		}
	}

	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (*http.Response, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	return resp, nil
}

// decode reads the response. 2xx bodies decode as JSON into out; anything
// else becomes an APIError with the message taken from the JSON error body
// when the content-type says JSON, falling back to the raw text.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return &APIError{Status: resp.StatusCode, Message: errorMessage(resp, raw)}
}

func errorMessage(resp *http.Response, raw []byte) string {
	ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(raw, &body) == nil {
			if body.Message != "" {
				return body.Message
			}
			if body.Error != "" {
				return body.Error
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func (c *Client) count(endpoint string, err error) {
	if c.Count != nil {
		c.Count(endpoint, err)
	}
}

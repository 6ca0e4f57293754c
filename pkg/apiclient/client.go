// Package apiclient is a Go client for the finance API. It keeps the access token
// in memory, the refresh cookie in a cookie jar, and renews an expired access
// token once for all requests that hit the expiry together.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	codeTokenExpired = "TOKEN_EXPIRED"
	refreshKey       = "refresh"
	refreshPath      = "/api/v1/auth/refresh-token"
)

// ErrSessionExpired is returned when the access token expired and could not be renewed.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Message string
	Code    string
	Errors  []string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL   string
	http      *http.Client
	onExpired func()

	mu    sync.RWMutex
	token string

	refreshes singleflight.Group
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. A cookie jar is added when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			copied := *hc
			c.http = &copied
		}
	}
}

// WithSessionExpiredHook is called once for every refresh attempt that fails.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, _ := cookiejar.New(nil)
		c.http.Jar = jar
	}
	return c
}

// Token returns the access token currently attached to requests.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// call sends the request with the current token. An expired token is renewed
// and the request retried at most once.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	used := c.Token()
	env, err := c.send(ctx, method, path, payload, used)
	if err != nil {
		return err
	}
	if env.status == http.StatusUnauthorized && env.Code == codeTokenExpired {
		next, err := c.renew(ctx, used)
		if err != nil {
			return err
		}
		if env, err = c.send(ctx, method, path, payload, next); err != nil {
			return err
		}
	}
	return env.decode(out)
}

// renew returns a token newer than used, refreshing only if nobody else already has.
func (c *Client) renew(ctx context.Context, used string) (string, error) {
	v, err, _ := c.refreshes.Do(refreshKey, func() (any, error) {
		if current := c.Token(); current != used {
			if current == "" {
				return "", ErrSessionExpired
			}
			return current, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	env, err := c.send(ctx, http.MethodPost, refreshPath, nil, "")
	if err == nil {
		var res struct {
			AccessToken string `json:"accessToken"`
		}
		if err = env.decode(&res); err == nil && res.AccessToken == "" {
			err = errors.New("refresh returned no access token")
		}
		if err == nil {
			c.SetToken(res.AccessToken)
			return res.AccessToken, nil
		}
	}

	c.SetToken("")
	if c.onExpired != nil {
		c.onExpired()
	}
	return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
}

type response struct {
	envelope
	status int
	raw    []byte
}

func (r *response) decode(out any) error {
	if r.status < 200 || r.status > 299 || !r.Success {
		return &APIError{Status: r.status, Message: r.Message, Code: r.Code, Errors: r.Errors}
	}
	if out == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := &response{status: resp.StatusCode, raw: raw}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.envelope); err != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
	}
	return out, nil
}

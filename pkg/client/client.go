// Package client is a Go client for the clinic API used by automation and
// the clinicctl command.
//
// GET responses are cached in memory. Every mutating call names the path
// prefixes it makes stale, and those entries are dropped before the call
// returns, so a read after a write always reaches the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultCacheTTL = 30 * time.Second

	headerAPIKey = "X-API-Key"
)

// ErrUnauthenticated means the server rejected the credentials. Callers
// should discard them. Transport failures never wrap this error.
var ErrUnauthenticated = errors.New("client: credentials rejected")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Token      string
	Timeout    time.Duration
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	cache   *cache.Cache

	mu     sync.RWMutex
	apiKey string
	token  string
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		apiKey:  cfg.APIKey,
		token:   cfg.Token,
	}, nil
}

// SetToken switches the client to a session token and drops the cache,
// since cached responses belong to the previous caller.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.apiKey = ""
	c.mu.Unlock()
	c.cache.Flush()
}

// ClearCredentials forgets the API key and session token.
func (c *Client) ClearCredentials() {
	c.mu.Lock()
	c.token = ""
	c.apiKey = ""
	c.mu.Unlock()
	c.cache.Flush()
}

func (c *Client) HasCredentials() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != "" || c.apiKey != ""
}

// Invalidate drops every cached response whose path starts with one of
// prefixes.
func (c *Client) Invalidate(prefixes ...string) {
	for key := range c.cache.Items() {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				c.cache.Delete(key)
				break
			}
		}
	}
}

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// get reads path, answering from the cache when it can.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	key := path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	if data, ok := c.cache.Get(key); ok {
		return decodeData(data.(json.RawMessage), out)
	}

	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	c.cache.Set(key, data, cache.DefaultExpiration)
	return decodeData(data, out)
}

// send performs a mutation and invalidates the given prefixes whether or
// not it succeeded; a failed write may still have changed server state.
func (c *Client) send(ctx context.Context, method, path string, body, out interface{}, invalidates ...string) error {
	defer c.Invalidate(invalidates...)

	data, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	return decodeData(data, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("client: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	switch {
	case c.apiKey != "":
		req.Header.Set(headerAPIKey, c.apiKey)
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: failed to read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("client: failed to decode response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Code:       env.Code,
			Fields:     env.Errors,
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, apiErr)
		}
		return nil, apiErr
	}
	return env.Data, nil
}

func decodeData(data json.RawMessage, out interface{}) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: failed to decode data: %w", err)
	}
	return nil
}

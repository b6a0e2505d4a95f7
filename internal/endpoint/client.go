package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Getter issues GET requests against the device API.
type Getter interface {
	Get(ctx context.Context, path string, dest any) error
}

// Poster issues JSON POST requests against the device API.
type Poster interface {
	Post(ctx context.Context, path string, body, dest any) error
}

// Requester is the full REST surface used by the dashboard.
type Requester interface {
	Getter
	Poster
}

// Ensure Client implements Requester at compile time.
var _ Requester = (*Client)(nil)

// Client talks to the device's REST API. Every request carries the
// session cookie held in the client's jar.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	jar       http.CookieJar
	userAgent string
	log       zerolog.Logger
}

const (
	defaultBaseURL   = "127.0.0.1:8080"
	defaultUserAgent = "pidash/0.1"
	requestTimeout   = 5 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout for REST calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithJar replaces the default in-memory cookie jar.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) {
		if jar != nil {
			c.jar = jar
			c.http.Jar = jar
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log.With().Str("component", "endpoint").Logger()
	}
}

// NewClient builds a Client for the device reachable at baseURL. A bare
// host:port is treated as plain HTTP.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c := &Client{
		baseURL: base,
		jar:     jar,
		http: &http.Client{
			Timeout: requestTimeout,
			Jar:     jar,
		},
		userAgent: defaultUserAgent,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns a copy of the device base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar returns the cookie jar holding the session credential.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Get fetches path and decodes the JSON body into dest.
func (c *Client) Get(ctx context.Context, path string, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

// Post sends body as JSON to path and decodes the JSON reply into dest.
func (c *Client) Post(ctx context.Context, path string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, dest)
}

// Resolve maps a relative endpoint path onto the device base URL.
func (c *Client) Resolve(path string) *url.URL {
	return c.baseURL.ResolveReference(&url.URL{Path: normalizePath(path)})
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, dest any) error {
	reqURL := c.Resolve(path)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("path", reqURL.Path).Str("request_id", requestID).Msg("api request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// The body is parsed before the status is considered so that a
	// non-JSON reply surfaces as a decode error regardless of status.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Path: reqURL.Path, Body: raw}
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func normalizePath(path string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse base url %q: missing host", baseURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// Package gateway is the single HTTP client used to talk to the CRM API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bizdesk/internal/session"
)

// Client is the CRM API client. All requests go through do so that headers,
// bearer tokens and 401 handling stay in one place.
type Client struct {
	BaseURL    string
	Session    *session.Session
	HTTPClient *http.Client
	Logger     *slog.Logger
}

const defaultTimeout = 15 * time.Second

// New creates a client with sane defaults. HTTPClient may be replaced before
// the first request but not while requests are running.
func New(baseURL string, s *session.Session) *Client {
	if s == nil {
		s = session.New(nil, nil)
	}
	return &Client{
		BaseURL:    baseURL,
		Session:    s,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// authFlow marks login-type calls whose 401 must not invalidate the session.
	authFlow bool
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) do(ctx context.Context, k call) error {
	endpoint := c.base() + "/" + strings.TrimLeft(k.path, "/")
	if len(k.query) > 0 {
		endpoint += "?" + k.query.Encode()
	}
	var buf bytes.Buffer
	if k.body != nil {
		if err := json.NewEncoder(&buf).Encode(k.body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, k.method, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if k.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.Session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logger().Debug("api request failed", "method", k.method, "path", k.path, "error", err)
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	c.logger().Debug("api request", "method", k.method, "path", k.path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := decodeError(resp.StatusCode, b)
		if resp.StatusCode == http.StatusUnauthorized && !k.authFlow {
			if err := c.Session.Invalidate(ctx, "unauthorized response from "+k.path); err != nil {
				c.logger().Warn("clear credentials", "error", err)
			}
		}
		return apiErr
	}
	if k.out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(k.out); err != nil && err != io.EOF {
			return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
		}
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, call{method: http.MethodGet, path: path, query: query, out: out})
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, call{method: method, path: path, body: body, out: out})
}

// Health pings the API without authentication concerns.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodGet, path: "health", authFlow: true})
}

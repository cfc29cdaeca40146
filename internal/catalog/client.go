package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Client composes a transport with the response interpreter and the
// rate-limit retry wrapper. It is safe for concurrent use when the
// transport is.
type Client struct {
	transport Transport
	interp    *Interpreter
	conn      ConnectivityChecker
	retry     RetryPolicy
	log       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides the default rate-limit retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithConnectivity sets the checker consulted when a transport returns nothing.
func WithConnectivity(conn ConnectivityChecker) Option {
	return func(c *Client) { c.conn = conn }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// NewClient creates a client over transport. If the transport can report
// connectivity it is used as the connectivity checker.
func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		retry:     DefaultRetryPolicy(),
	}
	if conn, ok := transport.(ConnectivityChecker); ok {
		c.conn = conn
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.interp = NewInterpreter(c.conn, c.log)
	return c
}

// Do performs one interpreted call with rate-limit retries. On success the
// returned response carries the status, headers and body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := Checkpoint(ctx); err != nil {
		return nil, err
	}
	return Retry(ctx, c.retry, c.log, func() (*Response, error) {
		resp, err := c.transport.Do(ctx, req)
		body, err := c.interp.Interpret(ctx, resp, err)
		if err != nil {
			return nil, err
		}
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	})
}

// Get fetches path and returns the success body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Post sends body to path.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put replaces the document at path.
func (c *Client) Put(ctx context.Context, path string, body []byte) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
	return err
}

// Delete removes the document at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
	return err
}

// Online reports connectivity, assuming up when no checker is configured.
func (c *Client) Online(ctx context.Context) bool {
	if c.conn == nil {
		return true
	}
	return c.conn.Online(ctx)
}

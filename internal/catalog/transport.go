package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Request is a single call against the catalog service.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Response is the raw result of a call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs one authenticated call. Retries are the caller's job.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Credentials identify the operator to the catalog service.
type Credentials struct {
	Tenant string
	Token  string
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	log        *slog.Logger
}

// NewHTTPTransport creates a transport for the service at baseURL.
func NewHTTPTransport(baseURL string, creds Credentials, timeout time.Duration, logger *slog.Logger) *HTTPTransport {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "catalog"),
	}
}

// Do sends the request with the credential headers attached.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	reqURL := t.baseURL + req.Path
	if len(req.Query) > 0 {
		reqURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("catalog: create request: %w", err)
	}
	httpReq.Header.Set("x-okapi-token", t.creds.Token)
	httpReq.Header.Set("x-okapi-tenant", t.creds.Tenant)
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("accept", "application/json, text/plain")

	t.log.DebugContext(ctx, "catalog request", slog.String("method", req.Method), slog.String("url", reqURL))

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: read body: %w", err)
	}

	t.log.DebugContext(ctx, "catalog response",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(data)),
	)

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Online reports whether the service host accepts TCP connections.
func (t *HTTPTransport) Online(ctx context.Context) bool {
	u, err := url.Parse(t.baseURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host = net.JoinHostPort(u.Hostname(), "443")
		} else {
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	dialer := net.Dialer{Timeout: 3 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

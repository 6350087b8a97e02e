// Package api is the client for the remote grooming REST API.
// Every call except login and registration carries the signed-in user's bearer credential.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"groomdesk/internal/adapters/http/perf"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 10 * time.Second

// DefaultSlowCallMs is the threshold above which calls log at WARN.
const DefaultSlowCallMs = 500

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Transport  http.RoundTripper // nil uses an otelhttp-wrapped default transport
	Collector  *perf.Collector   // optional
	SlowCallMs int
}

// Client talks to the remote API. A Client without a token can only log in or register;
// use WithToken to get a per-user client.
type Client struct {
	baseURL   string
	http      *http.Client
	token     string
	collector *perf.Collector
	slowMs    float64
}

// New creates an unauthenticated client.
// PRE: opts.BaseURL is an absolute URL
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	slow := opts.SlowCallMs
	if slow <= 0 {
		slow = DefaultSlowCallMs
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      &http.Client{Timeout: timeout, Transport: transport},
		collector: opts.Collector,
		slowMs:    float64(slow),
	}
}

// WithToken returns a copy of the client that authenticates as the token's owner.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the bearer credential, empty for an unauthenticated client.
func (c *Client) Token() string {
	return c.token
}

// envelope is the status part every response body carries.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// request describes one call. route is the path template used for timing labels.
type request struct {
	method      string
	route       string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	public      bool
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do performs the request and decodes the response body into out (if non-nil).
// POST: returns *Error for non-2xx or success=false; ErrUnauthorized without a network call
// when an authenticated route has no token
func (c *Client) do(ctx context.Context, req request, out any) error {
	if !req.public && c.token == "" {
		return ErrUnauthorized
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		ct := req.contentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.observe(req.method, req.route, status, start)
	if err != nil {
		slog.Warn("api_request_failed", "method", req.method, "route", req.route, "error", err)
		return fmt.Errorf("%s %s: %w", req.method, req.route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (env.Success != nil && !*env.Success) {
		apiErr := &Error{Status: resp.StatusCode, Message: env.Message}
		slog.Info("api_request_rejected", "method", req.method, "route", req.route, "status", resp.StatusCode, "message", env.Message)
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(method, route string, status int, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	if durationMs >= c.slowMs {
		slog.Warn("slow_api_call", "method", method, "route", route, "status", status, "duration_ms", durationMs)
	} else {
		slog.Debug("api_call", "method", method, "route", route, "status", status, "duration_ms", durationMs)
	}
	if c.collector != nil {
		c.collector.Record(perf.Entry{
			Kind:       perf.KindAPICall,
			Path:       method + " " + route,
			StatusCode: status,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

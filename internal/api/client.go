// Package api is the HTTP client for the teacher-performance backend.
//
// Methods are grouped by resource (teachers, reports, library configs, auth)
// and all take a context. Failures come back as *Error for non-2xx replies or
// as wrapped transport/decoding errors. There is no retry policy.
package api

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
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"teachdash/internal/jsonutil"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a per-request id for correlating backend logs.
const RequestIDHeader = "X-Request-ID"

// Error is a non-2xx reply from the backend.
type Error struct {
	StatusCode int
	Detail     string
	Method     string
	Path       string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client talks to one backend base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zap.NewNop(),
		tracer:  noop.NewTracerProvider().Tracer("teachdash/api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// request is one backend call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// do performs req and returns the raw body of a 2xx reply.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, req.method+" "+req.path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("teachdash.api.path", req.path),
		attribute.String("teachdash.request_id", requestID),
	)

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), req.body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.String("request_id", requestID),
			zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("read %s %s: %w", req.method, req.path, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("api request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data),
			Method:     req.method,
			Path:       req.path,
		}
		span.SetStatus(codes.Error, apiErr.Error())
		return nil, apiErr
	}
	return data, nil
}

// getJSON issues a GET and decodes the reply into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	return jsonutil.UnmarshalWithContext(data, out, "decode "+path)
}

// sendJSON issues method with a JSON body and decodes the reply into out
// (out may be nil).
func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	contentType := ""
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		r = bytes.NewReader(buf)
		contentType = "application/json"
	}
	data, err := c.do(ctx, request{method: method, path: path, body: r, contentType: contentType})
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return jsonutil.UnmarshalWithContext(data, out, "decode "+path)
}

// errorDetail extracts a readable message from an error body. The backend
// sends {"detail": "..."} or, for validation failures, {"detail": [{"msg": ...}]}.
func errorDetail(body []byte) string {
	var payload map[string]any
	if err := jsonutil.UnmarshalWithContext(body, &payload, "error body"); err != nil {
		return strings.TrimSpace(string(body))
	}
	if s := jsonutil.GetString(payload, "detail"); s != "" {
		return s
	}
	if items, ok := payload["detail"].([]any); ok {
		var msgs []string
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				if msg := jsonutil.GetString(m, "msg"); msg != "" {
					msgs = append(msgs, msg)
				}
			}
		}
		return strings.Join(msgs, "; ")
	}
	return jsonutil.GetString(payload, "message")
}

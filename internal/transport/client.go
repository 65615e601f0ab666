package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/packtrack/pkg/auth"
	"github.com/angelmondragon/packtrack/pkg/config"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/logger"
	"github.com/angelmondragon/packtrack/pkg/metrics"
	"github.com/angelmondragon/packtrack/pkg/types"
	"github.com/google/uuid"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerRequestID     = "X-Request-ID"

	responseBodyReadLimit int64 = 4 << 20
)

// PayloadKind tells how a successful response body was interpreted.
type PayloadKind int

const (
	// PayloadEmpty is a 204 or zero-length response.
	PayloadEmpty PayloadKind = iota
	// PayloadJSON holds the data field of a successful envelope.
	PayloadJSON
	// PayloadText holds a non-JSON body verbatim.
	PayloadText
)

// Payload is the unwrapped result of a successful request.
type Payload struct {
	Kind PayloadKind
	Data json.RawMessage
	Text string
}

// Bytes returns the payload as raw JSON-ish bytes; empty responses read as "{}".
func (p *Payload) Bytes() []byte {
	if p == nil {
		return []byte("null")
	}
	switch p.Kind {
	case PayloadEmpty:
		return []byte("{}")
	case PayloadText:
		return []byte(p.Text)
	}
	if len(p.Data) == 0 {
		return []byte("null")
	}
	return p.Data
}

// Decode unmarshals the payload into v.
func (p *Payload) Decode(v any) error {
	if err := json.Unmarshal(p.Bytes(), v); err != nil {
		return &UnexpectedError{Op: "decode payload", Err: err}
	}
	return nil
}

// RequestOptions carries the per-request overrides.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	// Body is sent verbatim when it is []byte, otherwise JSON-encoded.
	Body any
}

// Client issues requests against {baseUrl}/api/{version} and unwraps response envelopes.
type Client struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
	logger     *logger.Logger
	metrics    *metrics.ClientMetrics
	now        func() time.Time

	mu      sync.RWMutex
	headers map[string]string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.logger = log
	}
}

// WithMetrics attaches request collectors.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides time.Now, used for durations and token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a transport client from the API configuration.
func New(cfg config.APIConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "api base url is required")
	}

	headers := map[string]string{headerContentType: "application/json"}
	for key, value := range cfg.Headers {
		headers[http.CanonicalHeaderKey(key)] = value
	}

	client := &Client{
		httpClient: &http.Client{},
		endpoint:   cfg.Endpoint(),
		timeout:    cfg.RequestTimeout(),
		headers:    headers,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if token := strings.TrimSpace(cfg.Token); token != "" {
		if err := client.SetAuthToken(token); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// Endpoint returns the resolved base endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SetAuthToken attaches Authorization: Bearer {token} to every subsequent request.
func (c *Client) SetAuthToken(token string) error {
	header, err := auth.BearerHeader(token)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeConfig, err, "set auth token")
	}
	if auth.IsExpired(token, c.now()) {
		c.logger.Warn(context.Background(), "auth token is already expired")
	}
	c.mu.Lock()
	c.headers[headerAuthorization] = header
	c.mu.Unlock()
	return nil
}

// RemoveAuthToken stops sending the Authorization header.
func (c *Client) RemoveAuthToken() {
	c.mu.Lock()
	delete(c.headers, headerAuthorization)
	c.mu.Unlock()
}

// UpdateHeaders merges headers into the defaults.
func (c *Client) UpdateHeaders(headers map[string]string) {
	c.mu.Lock()
	for key, value := range headers {
		c.headers[http.CanonicalHeaderKey(key)] = value
	}
	c.mu.Unlock()
}

// Headers returns a copy of the default headers.
func (c *Client) Headers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.headers)
}

// Request performs one HTTP call. endpoint is relative to the versioned base, e.g. "/Package".
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) (*Payload, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.endpoint + endpoint

	var body io.Reader
	if opts.Body != nil {
		raw, ok := opts.Body.([]byte)
		if !ok {
			encoded, err := json.Marshal(opts.Body)
			if err != nil {
				return nil, &UnexpectedError{Op: "encode request body", Err: err}
			}
			raw = encoded
		}
		body = bytes.NewReader(raw)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return nil, &UnexpectedError{Op: "build request", Err: err}
	}
	c.applyHeaders(httpReq, opts.Headers)

	requestID := httpReq.Header.Get(headerRequestID)
	logCtx := c.logger.WithFields(ctx, map[string]any{
		"request_id": requestID,
		"method":     method,
		"url":        url,
	})

	started := c.now()
	payload, outcome, err := c.do(ctx, reqCtx, httpReq)
	elapsed := c.now().Sub(started)
	c.metrics.ObserveRequest(method, outcome, elapsed)

	logCtx = c.logger.WithField(logCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		c.logger.Warn(c.logger.WithField(logCtx, "outcome", outcome), err.Error())
		return nil, err
	}
	c.logger.Debug(logCtx, "request completed")
	return payload, nil
}

func (c *Client) applyHeaders(req *http.Request, overrides map[string]string) {
	c.mu.RLock()
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	c.mu.RUnlock()
	for key, value := range overrides {
		req.Header.Set(key, value)
	}
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, uuid.NewString())
	}
	if req.Body == nil {
		req.Header.Del(headerContentType)
	}
}

func (c *Client) do(parent, reqCtx context.Context, req *http.Request) (*Payload, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		netErr := c.networkError(parent, reqCtx, req, err)
		return nil, networkOutcome(netErr), netErr
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit+1))
	if err != nil {
		if reqCtx.Err() != nil {
			netErr := c.networkError(parent, reqCtx, req, err)
			return nil, networkOutcome(netErr), netErr
		}
		return nil, "unexpected", &UnexpectedError{Op: "read response body", Err: err}
	}
	if int64(len(raw)) > responseBodyReadLimit {
		return nil, "unexpected", &UnexpectedError{Op: "read response body", Err: ErrResponseTooLarge}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := statusText(resp)
		message := strings.TrimSpace(string(raw))
		if message == "" {
			message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, text)
		}
		return nil, "http_error", &APIError{
			StatusCode: resp.StatusCode,
			Status:     text,
			Message:    message,
			Errors:     []string{message},
			Body:       string(raw),
		}
	}

	if resp.StatusCode == http.StatusNoContent || len(raw) == 0 || contentLengthZero(resp) {
		return &Payload{Kind: PayloadEmpty}, "success", nil
	}

	if strings.Contains(strings.ToLower(resp.Header.Get(headerContentType)), "application/json") {
		var envelope types.Envelope[json.RawMessage]
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, "unexpected", &UnexpectedError{Op: "decode response envelope", Err: err}
		}
		if !envelope.IsSuccessful {
			return nil, "api_error", &APIError{
				StatusCode: resp.StatusCode,
				Status:     statusText(resp),
				Message:    envelope.FailureMessage(),
				Errors:     envelope.Errors,
				Body:       string(raw),
			}
		}
		data := json.RawMessage("null")
		if envelope.Data != nil {
			data = *envelope.Data
		}
		return &Payload{Kind: PayloadJSON, Data: data}, "success", nil
	}

	return &Payload{Kind: PayloadText, Text: string(raw)}, "success", nil
}

func (c *Client) networkError(parent, reqCtx context.Context, req *http.Request, err error) *NetworkError {
	timeout := false
	switch {
	case parent.Err() != nil:
		timeout = errors.Is(parent.Err(), context.DeadlineExceeded)
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		timeout = true
	default:
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) {
			timeout = netErr.Timeout()
		}
	}
	return &NetworkError{
		Method:  req.Method,
		URL:     req.URL.String(),
		Timeout: timeout,
		Err:     err,
	}
}

func networkOutcome(err *NetworkError) string {
	if err.Timeout {
		return "timeout"
	}
	return "network_error"
}

func contentLengthZero(resp *http.Response) bool {
	value := resp.Header.Get("Content-Length")
	if value == "" {
		return false
	}
	n, err := strconv.ParseInt(value, 10, 64)
	return err == nil && n == 0
}

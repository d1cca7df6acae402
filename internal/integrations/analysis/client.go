package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"medai-intake/internal/session"
)

const (
	// DefaultBaseURL includes the fixed /api/analyze prefix.
	DefaultBaseURL = "http://localhost:8080/api/analyze"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4096
	maxBody        = 1 << 20

	outcomeOK          = "ok"
	outcomeNetworkErr  = "network_error"
	outcomeServerError = "server_error"
)

// Recorder observes outbound requests. *metrics.ClientMetrics satisfies it.
type Recorder interface {
	ObserveRequest(endpoint, outcome string, seconds float64)
}

// NetworkError wraps a transport failure: the request never produced a
// response.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("analysis: network error calling %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError captures non-2xx responses.
type ServerError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("analysis: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *ServerError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a JSON client for the remote analysis service. It attaches the
// session token to every request and persists tokens the service issues.
type Client struct {
	baseURL        string
	demoRequestURL string
	httpClient     *http.Client
	session        *session.Session
	recorder       Recorder
	logger         *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithDemoRequestURL sets the absolute URL demo requests are posted to.
func WithDemoRequestURL(url string) Option {
	return func(c *Client) {
		c.demoRequestURL = strings.TrimSpace(url)
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client bound to sess.
func NewClient(sess *session.Session, opts ...Option) (*Client, error) {
	if sess == nil {
		return nil, errors.New("analysis: session must not be nil")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    sess,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type requestConfig struct {
	skipSession bool
}

// RequestOption tunes a single call to Do.
type RequestOption func(*requestConfig)

// WithoutSession sends the request without the session header and ignores any
// token on the response.
func WithoutSession() RequestOption {
	return func(rc *requestConfig) {
		rc.skipSession = true
	}
}

// resolvedHTTPClient returns the configured HTTP client, or a default with a
// 10s timeout if none was set.
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func endpointURL(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// endpointLabel keeps metric cardinality bounded to the path, never the host.
func endpointLabel(path string) string {
	if i := strings.Index(path, "://"); i >= 0 {
		rest := path[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			path = rest[j:]
		} else {
			path = "/"
		}
	}
	return strings.Trim(path, "/")
}

// Do sends one JSON request. body is marshalled when non-nil; out receives the
// decoded response when non-nil and the body is not empty. There is a single
// attempt per call.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var rc requestConfig
	for _, opt := range opts {
		opt(&rc)
	}

	url := endpointURL(c.baseURL, path)
	label := endpointLabel(path)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("analysis: marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("analysis: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-Id", newCorrelationID())

	if !rc.skipSession {
		token, tokErr := c.session.Token(ctx)
		if tokErr != nil {
			c.logger.Warn("analysis: session token unavailable", "err", tokErr)
		}
		if token != "" {
			req.Header.Set(session.HeaderName, token)
		}
	}

	start := time.Now()
	raw, err := c.doJSONRequest(req, url, rc)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		outcome := outcomeServerError
		var netErr *NetworkError
		if errors.As(err, &netErr) {
			outcome = outcomeNetworkErr
		}
		c.observe(label, outcome, elapsed)
		c.logger.Debug("analysis: request failed", "method", method, "endpoint", label, "err", err)
		return err
	}
	c.observe(label, outcomeOK, elapsed)

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if decErr := json.Unmarshal(raw, out); decErr != nil {
		return fmt.Errorf("analysis: decode response from %s: %w", label, decErr)
	}
	return nil
}

func (c *Client) doJSONRequest(req *http.Request, url string, rc requestConfig) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, &NetworkError{URL: url, Err: doErr}
	}
	defer func() { _ = res.Body.Close() }()

	if !rc.skipSession {
		c.persistToken(req.Context(), res.Header.Get(session.HeaderName))
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &ServerError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("read response body: %w", err)}
	}
	return buf, nil
}

func (c *Client) persistToken(ctx context.Context, token string) {
	wrote, err := c.session.Observe(ctx, token)
	if err != nil {
		c.logger.Warn("analysis: persist session token", "err", err)
		return
	}
	if wrote {
		c.logger.Debug("analysis: session token updated")
	}
}

func (c *Client) observe(endpoint, outcome string, seconds float64) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveRequest(endpoint, outcome, seconds)
}

var newCorrelationID = func() string {
	return uuid.NewString()
}

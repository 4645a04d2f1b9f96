// Package upstream holds the probe clients that touch each platform's
// rate-limit surface. Probes fetch only rate-limit material (GitHub's
// /rate_limit document, or a cheap authenticated endpoint whose status code
// and Retry-After header carry the signal); interpreting the payload is the
// governor's job, never this package's.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUpstreamUnavailable indicates the platform could not be reached or
// answered with a server error. The caller records it against the circuit
// breaker.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// maxProbeBody bounds how much of a probe response is read into memory.
const maxProbeBody = 1 << 20

// LatencyRecorder receives probe timing for observability.
type LatencyRecorder interface {
	// RecordProbeLatency records the latency of one upstream probe.
	RecordProbeLatency(platform string, statusCode int, latency time.Duration)
}

// requestConfig holds the assembled settings for a single probe request.
type requestConfig struct {
	path            string
	queryParameters map[string]string
	headers         map[string]string
}

// RequestOption configures a probe request.
type RequestOption func(*requestConfig)

// WithPath sets the URL path for the request.
func WithPath(path string) RequestOption {
	return func(c *requestConfig) {
		c.path = path
	}
}

// WithQueryParameters adds or updates query parameters for the request.
func WithQueryParameters(params map[string]string) RequestOption {
	return func(c *requestConfig) {
		if c.queryParameters == nil {
			c.queryParameters = make(map[string]string)
		}
		for k, v := range params {
			c.queryParameters[k] = v
		}
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(c *requestConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// Client is the shared HTTP plumbing for one platform's probes.
type Client struct {
	platform   string
	baseURL    string
	token      string
	httpClient *http.Client
	recorder   LatencyRecorder
}

// NewClient creates a probe client for a platform. The token is sent as a
// bearer Authorization header on every request.
func NewClient(platform, baseURL, token string, recorder LatencyRecorder) *Client {
	return &Client{
		platform: platform,
		baseURL:  baseURL,
		token:    token,
		recorder: recorder,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// do performs a probe request and returns the response with its body
// already read (bounded) and closed. Network failures map to
// ErrUpstreamUnavailable; any HTTP response, including 429s and 5xx,
// is returned for the caller to interpret.
func (c *Client) do(ctx context.Context, method string, options ...RequestOption) (*ProbeResponse, error) {
	config := &requestConfig{}
	for _, option := range options {
		option(config)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = config.path

	if len(config.queryParameters) > 0 {
		q := u.Query()
		for k, v := range config.queryParameters {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		slog.Error("upstream.probe.request_creation_failed",
			"component", "upstream",
			"event", "probe.error",
			"platform", c.platform,
			"error", err,
		)
		return nil, err
	}

	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	for k, v := range config.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		slog.Error("upstream.probe.request_failed",
			"component", "upstream",
			"event", "probe.error",
			"platform", c.platform,
			"path", config.path,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		if c.recorder != nil {
			c.recorder.RecordProbeLatency(c.platform, 0, duration)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if c.recorder != nil {
		c.recorder.RecordProbeLatency(c.platform, resp.StatusCode, duration)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrUpstreamUnavailable, err)
	}

	slog.Debug("upstream.probe.response",
		"component", "upstream",
		"event", "probe.response",
		"platform", c.platform,
		"path", config.path,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)

	return &ProbeResponse{
		StatusCode:        resp.StatusCode,
		Body:              body,
		RetryAfterSeconds: parseRetryAfterHeader(resp.Header),
	}, nil
}

// ProbeResponse is the raw outcome of one probe request.
type ProbeResponse struct {
	StatusCode        int
	Body              []byte
	RetryAfterSeconds *int
}

// parseRetryAfterHeader reads a seconds-valued Retry-After header. The HTTP
// standard also allows a date form; none of the governed platforms send it,
// so it is not supported until needed.
func parseRetryAfterHeader(headers http.Header) *int {
	str := headers.Get("Retry-After")
	if str == "" {
		return nil
	}
	seconds, err := strconv.Atoi(str)
	if err != nil {
		slog.Warn("upstream.probe.invalid_retry_after",
			"component", "upstream",
			"value", str,
			"error", err,
		)
		return nil
	}
	return &seconds
}

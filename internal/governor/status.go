package governor

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// StatusLevel is the derived severity of a platform's rate-limit position.
type StatusLevel string

const (
	StatusNormal   StatusLevel = "normal"
	StatusWarning  StatusLevel = "warning"
	StatusCritical StatusLevel = "critical"
	// StatusUnknown means the platform exposed no numeric quota data at
	// all, e.g. GitLab and Jira which only signal limits via status codes.
	StatusUnknown StatusLevel = "unknown"
)

// EndpointLimit is the quota position of one rate-limited resource within a
// platform. All fields are nullable: a platform that reports no numbers for
// a resource leaves them nil, and nil is excluded from aggregation rather
// than read as zero.
type EndpointLimit struct {
	Limit        *int       `json:"limit"`
	Remaining    *int       `json:"remaining"`
	UsagePercent *float64   `json:"usage_percent"`
	ResetTime    *time.Time `json:"reset_time"`
}

// EndpointLimits maps endpoint name (GitHub's "core", "search", ...) to its
// quota position.
type EndpointLimits map[string]*EndpointLimit

// PlatformRateLimits maps platform name to its endpoint limits.
type PlatformRateLimits map[string]EndpointLimits

// RateLimitStatus is the normalized, JSON-serializable record the HTTP
// layer serves per platform. A status is built fresh on every successful
// poll and never mutated afterwards; replacement is the only update path so
// concurrent readers cannot observe a half-built record.
type RateLimitStatus struct {
	Platform          string             `json:"platform"`
	LastUpdated       time.Time          `json:"last_updated"`
	DataFresh         bool               `json:"data_fresh"`
	Status            StatusLevel        `json:"status"`
	Limits            PlatformRateLimits `json:"limits"`
	Message           string             `json:"message,omitempty"`
	RetryAfterSeconds *int               `json:"retry_after_seconds,omitempty"`
}

// Payload is the raw rate-limit material a probe observed: the response
// body for platforms that publish quota JSON, or just the status code and
// Retry-After for platforms that do not.
type Payload struct {
	StatusCode        int
	Body              json.RawMessage
	Message           string
	RetryAfterSeconds *int
}

// TransformError indicates an upstream payload whose shape could not be
// normalized. The caller logs it and answers with a 503-class response; a
// partially-normalized status is never produced.
type TransformError struct {
	Platform string
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("cannot normalize %s rate-limit payload: %v", e.Platform, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// TransformFunc normalizes one platform's raw payload into endpoint limits.
type TransformFunc func(p Payload) (EndpointLimits, error)

// TransformRegistry maps platform identity to its transform. Platforms are
// registered at construction; an unknown platform is a lookup failure, not
// a default behavior.
type TransformRegistry struct {
	transforms map[string]TransformFunc
}

// NewTransformRegistry returns a registry preloaded with the built-in
// platform transforms.
func NewTransformRegistry() *TransformRegistry {
	r := &TransformRegistry{transforms: make(map[string]TransformFunc)}
	r.Register(PlatformGitHub, TransformGitHub)
	r.Register(PlatformGitLab, transformStatusCodePlatform(PlatformGitLab))
	r.Register(PlatformJira, transformStatusCodePlatform(PlatformJira))
	return r
}

// Register adds or replaces the transform for a platform.
func (r *TransformRegistry) Register(platform string, fn TransformFunc) {
	r.transforms[platform] = fn
}

// Lookup returns the transform for a platform.
func (r *TransformRegistry) Lookup(platform string) (TransformFunc, bool) {
	fn, ok := r.transforms[platform]
	return fn, ok
}

// githubRateLimitBody matches GitHub's GET /rate_limit response.
type githubRateLimitBody struct {
	Resources map[string]githubResource `json:"resources"`
}

type githubResource struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// TransformGitHub normalizes GitHub's numeric per-resource payload. Usage
// is round(100 * (limit - remaining) / limit) per resource, with a zero
// limit reading as zero usage rather than dividing by zero.
func TransformGitHub(p Payload) (EndpointLimits, error) {
	if len(p.Body) == 0 {
		return nil, &TransformError{Platform: PlatformGitHub, Err: fmt.Errorf("empty payload body")}
	}

	var body githubRateLimitBody
	if err := json.Unmarshal(p.Body, &body); err != nil {
		return nil, &TransformError{Platform: PlatformGitHub, Err: err}
	}
	if len(body.Resources) == 0 {
		return nil, &TransformError{Platform: PlatformGitHub, Err: fmt.Errorf("payload has no resources")}
	}

	limits := make(EndpointLimits, len(body.Resources))
	for name, res := range body.Resources {
		limit := res.Limit
		remaining := res.Remaining
		usage := 0.0
		if limit > 0 {
			usage = math.Round(100 * float64(limit-remaining) / float64(limit))
		}
		// Defective upstream counters (remaining above limit, or negative)
		// must not leak out-of-range percentages into aggregation.
		usage = math.Min(100, math.Max(0, usage))
		resetTime := time.Unix(res.Reset, 0)
		limits[name] = &EndpointLimit{
			Limit:        &limit,
			Remaining:    &remaining,
			UsagePercent: &usage,
			ResetTime:    &resetTime,
		}
	}
	return limits, nil
}

// transformStatusCodePlatform builds the transform for platforms that
// expose no quota headers (GitLab, Jira). The normalized result carries a
// single endpoint with no numeric data; the message and Retry-After from a
// 429 travel on the status record for display.
func transformStatusCodePlatform(platform string) TransformFunc {
	return func(p Payload) (EndpointLimits, error) {
		if p.StatusCode == 0 {
			return nil, &TransformError{Platform: platform, Err: fmt.Errorf("payload has no status code")}
		}
		return EndpointLimits{"rest": &EndpointLimit{}}, nil
	}
}

// StatusThresholds are the warning/critical cut points for OverallStatus,
// as max usage percent across endpoints.
type StatusThresholds struct {
	Warning  float64
	Critical float64
}

// DefaultStatusThresholds returns the standard 70/90 cut points.
func DefaultStatusThresholds() StatusThresholds {
	return StatusThresholds{Warning: 70, Critical: 90}
}

// OverallStatus derives one severity from the maximum usage percent across
// every endpoint of every platform in limits. Platforms with no numeric
// data contribute nothing; if nothing numeric exists at all the status is
// unknown rather than a fabricated normal.
func OverallStatus(limits PlatformRateLimits, thresholds StatusThresholds) StatusLevel {
	maxUsage := 0.0
	sawNumeric := false
	for _, endpoints := range limits {
		for _, ep := range endpoints {
			if ep == nil || ep.UsagePercent == nil {
				continue
			}
			sawNumeric = true
			if *ep.UsagePercent > maxUsage {
				maxUsage = *ep.UsagePercent
			}
		}
	}
	if !sawNumeric {
		return StatusUnknown
	}
	switch {
	case maxUsage >= thresholds.Critical:
		return StatusCritical
	case maxUsage >= thresholds.Warning:
		return StatusWarning
	default:
		return StatusNormal
	}
}

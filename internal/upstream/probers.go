package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/devpulse/devpulse/internal/governor"
)

// Prober produces the raw rate-limit payload for one platform. The worker
// consults the governor's breaker before calling Probe and reports the
// outcome back afterwards.
type Prober interface {
	Platform() string
	Probe(ctx context.Context) (governor.Payload, error)
}

// GitHubProber fetches GitHub's rate-limit document. The /rate_limit
// endpoint is free: reading it does not consume quota.
type GitHubProber struct {
	client *Client
}

func NewGitHubProber(baseURL, token string, recorder LatencyRecorder) *GitHubProber {
	return &GitHubProber{
		client: NewClient(governor.PlatformGitHub, baseURL, token, recorder),
	}
}

func (p *GitHubProber) Platform() string {
	return governor.PlatformGitHub
}

func (p *GitHubProber) Probe(ctx context.Context) (governor.Payload, error) {
	resp, err := p.client.do(ctx, http.MethodGet,
		WithPath("/rate_limit"),
		WithHeader("Accept", "application/vnd.github+json"),
	)
	if err != nil {
		return governor.Payload{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return governor.Payload{}, fmt.Errorf("%w: GET /rate_limit returned %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	return governor.Payload{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}, nil
}

// GitLabProber probes a cheap GitLab endpoint. GitLab publishes no quota
// headers, so the payload is just the status code plus any Retry-After;
// a 429 is a valid observation, not a probe failure.
type GitLabProber struct {
	client *Client
}

func NewGitLabProber(baseURL, token string, recorder LatencyRecorder) *GitLabProber {
	return &GitLabProber{
		client: NewClient(governor.PlatformGitLab, baseURL, token, recorder),
	}
}

func (p *GitLabProber) Platform() string {
	return governor.PlatformGitLab
}

func (p *GitLabProber) Probe(ctx context.Context) (governor.Payload, error) {
	resp, err := p.client.do(ctx, http.MethodGet, WithPath("/version"))
	if err != nil {
		return governor.Payload{}, err
	}
	return statusCodePayload(resp, "GitLab API accessible")
}

// JiraProber probes Jira's serverInfo endpoint, which is status-code based
// the same way GitLab is.
type JiraProber struct {
	client *Client
}

func NewJiraProber(baseURL, token string, recorder LatencyRecorder) *JiraProber {
	return &JiraProber{
		client: NewClient(governor.PlatformJira, baseURL, token, recorder),
	}
}

func (p *JiraProber) Platform() string {
	return governor.PlatformJira
}

func (p *JiraProber) Probe(ctx context.Context) (governor.Payload, error) {
	resp, err := p.client.do(ctx, http.MethodGet, WithPath("/rest/api/2/serverInfo"))
	if err != nil {
		return governor.Payload{}, err
	}
	return statusCodePayload(resp, "Jira API accessible")
}

// statusCodePayload maps a probe response from a quota-less platform into a
// governor payload. Server errors stay errors so the breaker counts them;
// 429 and success responses are observations the governor should see.
func statusCodePayload(resp *ProbeResponse, okMessage string) (governor.Payload, error) {
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return governor.Payload{}, fmt.Errorf("%w: probe returned %d", ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return governor.Payload{
			StatusCode:        resp.StatusCode,
			Message:           "rate limited",
			RetryAfterSeconds: resp.RetryAfterSeconds,
		}, nil
	default:
		return governor.Payload{
			StatusCode: resp.StatusCode,
			Message:    okMessage,
		}, nil
	}
}

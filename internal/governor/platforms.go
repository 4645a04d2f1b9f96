package governor

// Rate-limited platform identities. A platform is distinct from a tool: two
// integrations (say, two Jira instances) can share one rate-limit identity.
const (
	PlatformGitHub = "github"
	PlatformGitLab = "gitlab"
	PlatformJira   = "jira"
)

// CapabilityRateLimit marks a tool whose platform exposes a rate-limit
// surface worth governing.
const CapabilityRateLimit = "rate-limit"

// Tool describes an integration as the tool-handler layer reports it.
type Tool struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

// HasCapability reports whether the tool declares the given capability.
func (t Tool) HasCapability(capability string) bool {
	for _, c := range t.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// DefaultToolPlatforms returns the built-in tool-to-platform mapping. The
// governor takes this as an injected table rather than a package global so
// tests and future multi-instance deployments can extend it per instance.
func DefaultToolPlatforms() map[string]string {
	return map[string]string{
		"github": PlatformGitHub,
		"gitlab": PlatformGitLab,
		"jira":   PlatformJira,
	}
}

// ActivePlatforms filters tools to those declaring the rate-limit
// capability, maps each to its platform and de-duplicates preserving
// first-seen order. Tools absent from the mapping are silently dropped;
// an integration without a governed platform is simply not our concern.
func ActivePlatforms(toolPlatforms map[string]string, tools []Tool) []string {
	var platforms []string
	seen := make(map[string]struct{})
	for _, tool := range tools {
		if !tool.HasCapability(CapabilityRateLimit) {
			continue
		}
		platform, ok := toolPlatforms[tool.Name]
		if !ok {
			continue
		}
		if _, dup := seen[platform]; dup {
			continue
		}
		seen[platform] = struct{}{}
		platforms = append(platforms, platform)
	}
	return platforms
}

// MaxUsageForPlatform returns the maximum usage percent across the
// endpoints registered under the status's own platform. Nil statuses, nil
// endpoints and absent usage values all contribute zero.
func MaxUsageForPlatform(status *RateLimitStatus) float64 {
	if status == nil {
		return 0
	}
	endpoints, ok := status.Limits[status.Platform]
	if !ok {
		return 0
	}
	maxUsage := 0.0
	for _, ep := range endpoints {
		if ep == nil || ep.UsagePercent == nil {
			continue
		}
		if *ep.UsagePercent > maxUsage {
			maxUsage = *ep.UsagePercent
		}
	}
	return maxUsage
}

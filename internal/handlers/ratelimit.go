package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/governor"
	"github.com/devpulse/devpulse/internal/store"
)

// GetRateLimitHandler handles GET /api/v1/rate-limit/{platform} requests.
// Serves the governor's cached status when fresh; falls back to the last
// Redis snapshot, flagged stale, when the cache has expired or the process
// restarted. Handlers never probe upstream themselves.
func GetRateLimitHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		platform := strings.TrimPrefix(r.URL.Path, "/api/v1/rate-limit/")
		if platform == "" || strings.Contains(platform, "/") {
			writeJSONError(w, http.StatusNotFound, "unknown_platform", "No such platform")
			return
		}
		if !deps.governedPlatform(platform) {
			writeJSONError(w, http.StatusNotFound, "unknown_platform",
				"Platform is not governed by this deployment")
			return
		}

		status, ok := platformStatus(r, deps, platform)
		if !ok {
			writeJSONError(w, http.StatusServiceUnavailable, "status_unavailable",
				"No rate-limit data for platform yet")
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// GetAllRateLimitsHandler handles GET /api/v1/rate-limit requests, returning
// the status of every governed platform. Platforms with no data anywhere
// appear as unknown rather than being silently dropped.
func GetAllRateLimitsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		platforms := make(map[string]*governor.RateLimitStatus, len(deps.Platforms))
		for _, platform := range deps.Platforms {
			if status, ok := platformStatus(r, deps, platform); ok {
				platforms[platform] = status
				continue
			}
			platforms[platform] = &governor.RateLimitStatus{
				Platform:  platform,
				DataFresh: false,
				Status:    governor.StatusUnknown,
				Limits:    governor.PlatformRateLimits{},
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"platforms": platforms,
		})
	}
}

// platformStatus resolves the best available status for a platform: the
// governor's cache first, the Redis snapshot second.
func platformStatus(r *http.Request, deps *Dependencies, platform string) (*governor.RateLimitStatus, bool) {
	if status, ok := deps.Governor.Status(platform); ok {
		return status, true
	}

	if deps.Conns == nil || deps.Conns.Redis == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, err := deps.Conns.Redis.LoadSnapshot(ctx, platform)
	if err != nil {
		if !errors.Is(err, store.ErrSnapshotMiss) {
			slog.Error("api.rate_limit.snapshot_error",
				"component", "api",
				"event", "snapshot.error",
				"platform", platform,
				"error", err,
			)
		}
		return nil, false
	}
	return status, true
}

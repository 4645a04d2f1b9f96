package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/store"
)

// HistoryResponse wraps the recent poll samples for one platform.
type HistoryResponse struct {
	Platform string          `json:"platform"`
	Samples  []HistorySample `json:"samples"`
}

// HistorySample is the JSON shape of one recorded poll.
type HistorySample struct {
	PolledAt        string  `json:"polled_at"`
	Success         bool    `json:"success"`
	Status          string  `json:"status,omitempty"`
	MaxUsagePercent float64 `json:"max_usage_percent"`
	BreakerState    string  `json:"breaker_state"`
	LatencyMS       int64   `json:"latency_ms"`
}

// GetHistoryHandler handles GET /api/v1/history/{platform} requests,
// returning recent poll outcomes newest first. The limit query parameter
// caps the sample count.
func GetHistoryHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		platform := strings.TrimPrefix(r.URL.Path, "/api/v1/history/")
		if platform == "" || strings.Contains(platform, "/") {
			writeJSONError(w, http.StatusNotFound, "unknown_platform", "No such platform")
			return
		}
		if !deps.governedPlatform(platform) {
			writeJSONError(w, http.StatusNotFound, "unknown_platform",
				"Platform is not governed by this deployment")
			return
		}

		limit := store.DefaultHistoryLimit
		if str := r.URL.Query().Get("limit"); str != "" {
			value, err := strconv.Atoi(str)
			if err != nil || value <= 0 {
				writeJSONError(w, http.StatusBadRequest, "invalid_limit",
					"limit must be a positive integer")
				return
			}
			limit = value
		}

		samples, err := deps.History.RecentSamples(platform, limit)
		if err != nil {
			slog.Error("api.history.query_error",
				"component", "api",
				"event", "history.error",
				"platform", platform,
				"error", err,
			)
			writeJSONError(w, http.StatusInternalServerError, "history_unavailable",
				"Failed to query poll history")
			return
		}

		response := HistoryResponse{
			Platform: platform,
			Samples:  make([]HistorySample, 0, len(samples)),
		}
		for _, s := range samples {
			response.Samples = append(response.Samples, HistorySample{
				PolledAt:        s.PolledAt.UTC().Format(time.RFC3339),
				Success:         s.Success,
				Status:          s.Status,
				MaxUsagePercent: s.MaxUsagePercent,
				BreakerState:    s.BreakerState,
				LatencyMS:       s.LatencyMS,
			})
		}
		writeJSON(w, http.StatusOK, response)
	}
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/devpulse/devpulse/internal/governor"
)

// PollIntervalResponse tells a polling client how long to wait before its
// next status request.
type PollIntervalResponse struct {
	Platform   string `json:"platform"`
	IntervalMS int64  `json:"interval_ms"`
	Interval   string `json:"interval"`
}

// GetPollIntervalHandler handles GET /api/v1/poll-interval requests. The
// interval starts from the platform's usage-scaled schedule, then stretches
// for the caller's visibility signals (visible, active, background query
// flags) so hidden dashboards poll slower than ones being watched.
func GetPollIntervalHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		platform := r.URL.Query().Get("platform")
		if platform == "" {
			writeJSONError(w, http.StatusBadRequest, "missing_platform",
				"platform query parameter is required")
			return
		}
		if !deps.governedPlatform(platform) {
			writeJSONError(w, http.StatusNotFound, "unknown_platform",
				"Platform is not governed by this deployment")
			return
		}

		visible := queryFlag(r, "visible", true)
		active := queryFlag(r, "active", true)
		background := queryFlag(r, "background", false)

		interval := deps.Governor.NextPollInterval(platform)
		factor := governor.ActivityAccelerationFactor(visible, active, background)
		interval = governor.ClampInterval(time.Duration(float64(interval) * factor))

		writeJSON(w, http.StatusOK, PollIntervalResponse{
			Platform:   platform,
			IntervalMS: interval.Milliseconds(),
			Interval:   governor.FormatInterval(interval),
		})
	}
}

// queryFlag parses a boolean query parameter, keeping the default when the
// parameter is absent or malformed.
func queryFlag(r *http.Request, name string, defaultValue bool) bool {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(str)
	if err != nil {
		return defaultValue
	}
	return value
}

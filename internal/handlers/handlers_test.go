package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/governor"
	"github.com/devpulse/devpulse/internal/store"
)

// setupTestDeps builds a full handler environment: governor, in-memory
// SQLite history and a miniredis-backed snapshot store.
func setupTestDeps(t *testing.T) *Dependencies {
	t.Helper()

	gov, err := governor.New(governor.Options{BaseInterval: 5 * time.Minute})
	require.NoError(t, err)

	db := store.SetupTestDB(t)

	mr := miniredis.RunT(t)
	redisClient, err := store.NewRedisClient("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })

	return &Dependencies{
		Conns:     store.NewConnections(db, redisClient),
		Governor:  gov,
		History:   store.NewHistoryStore(db),
		Platforms: []string{"github", "gitlab", "jira"},
	}
}

func observeGitHub(t *testing.T, deps *Dependencies, limit, remaining int) *governor.RateLimitStatus {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"resources": map[string]any{
			"core": map[string]any{"limit": limit, "remaining": remaining, "reset": 1767100000},
		},
	})
	require.NoError(t, err)

	status, err := deps.Governor.Observe("github", governor.Payload{StatusCode: 200, Body: body})
	require.NoError(t, err)
	return status
}

func doRequest(handler http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGetRateLimitFresh(t *testing.T) {
	deps := setupTestDeps(t)
	observeGitHub(t, deps, 5000, 4000)

	rec := doRequest(GetRateLimitHandler(deps), http.MethodGet, "/api/v1/rate-limit/github")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status governor.RateLimitStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "github", status.Platform)
	assert.True(t, status.DataFresh)
	assert.Equal(t, governor.StatusNormal, status.Status)
}

func TestGetRateLimitStaleFallback(t *testing.T) {
	deps := setupTestDeps(t)

	// A snapshot exists but the governor cache is empty, as after a restart.
	snapshot := &governor.RateLimitStatus{
		Platform:    "github",
		LastUpdated: time.Now().Add(-time.Hour),
		DataFresh:   true,
		Status:      governor.StatusWarning,
		Limits:      governor.PlatformRateLimits{},
	}
	require.NoError(t, deps.Conns.Redis.SaveSnapshot(context.Background(), snapshot, time.Hour))

	rec := doRequest(GetRateLimitHandler(deps), http.MethodGet, "/api/v1/rate-limit/github")
	require.Equal(t, http.StatusOK, rec.Code)

	var status governor.RateLimitStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.DataFresh, "snapshot fallback must be flagged stale")
	assert.Equal(t, governor.StatusWarning, status.Status)
}

func TestGetRateLimitNoData(t *testing.T) {
	deps := setupTestDeps(t)

	rec := doRequest(GetRateLimitHandler(deps), http.MethodGet, "/api/v1/rate-limit/github")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "status_unavailable", body["error"])
}

func TestGetRateLimitUnknownPlatform(t *testing.T) {
	deps := setupTestDeps(t)

	rec := doRequest(GetRateLimitHandler(deps), http.MethodGet, "/api/v1/rate-limit/bitbucket")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(GetRateLimitHandler(deps), http.MethodGet, "/api/v1/rate-limit/github/extra")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRateLimitMethodNotAllowed(t *testing.T) {
	deps := setupTestDeps(t)

	rec := doRequest(GetRateLimitHandler(deps), http.MethodPost, "/api/v1/rate-limit/github")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetAllRateLimits(t *testing.T) {
	deps := setupTestDeps(t)
	observeGitHub(t, deps, 5000, 100)

	rec := doRequest(GetAllRateLimitsHandler(deps), http.MethodGet, "/api/v1/rate-limit")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Platforms map[string]governor.RateLimitStatus `json:"platforms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Platforms, 3)

	assert.Equal(t, governor.StatusCritical, body.Platforms["github"].Status)
	assert.Equal(t, governor.StatusUnknown, body.Platforms["gitlab"].Status)
	assert.False(t, body.Platforms["gitlab"].DataFresh)
	assert.Equal(t, governor.StatusUnknown, body.Platforms["jira"].Status)
}

func TestGetPollInterval(t *testing.T) {
	deps := setupTestDeps(t)

	rec := doRequest(GetPollIntervalHandler(deps), http.MethodGet, "/api/v1/poll-interval?platform=github")
	require.Equal(t, http.StatusOK, rec.Code)

	var body PollIntervalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "github", body.Platform)
	assert.Greater(t, body.IntervalMS, int64(0))
	assert.NotEmpty(t, body.Interval)
}

func TestGetPollIntervalActivityStretch(t *testing.T) {
	deps := setupTestDeps(t)

	active := doRequest(GetPollIntervalHandler(deps), http.MethodGet,
		"/api/v1/poll-interval?platform=github&visible=true&active=true")
	background := doRequest(GetPollIntervalHandler(deps), http.MethodGet,
		"/api/v1/poll-interval?platform=github&background=true")

	var activeBody, backgroundBody PollIntervalResponse
	require.NoError(t, json.Unmarshal(active.Body.Bytes(), &activeBody))
	require.NoError(t, json.Unmarshal(background.Body.Bytes(), &backgroundBody))

	assert.Equal(t, 3*activeBody.IntervalMS, backgroundBody.IntervalMS,
		"background polling should stretch the interval 3x")
}

func TestGetPollIntervalValidation(t *testing.T) {
	deps := setupTestDeps(t)

	rec := doRequest(GetPollIntervalHandler(deps), http.MethodGet, "/api/v1/poll-interval")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(GetPollIntervalHandler(deps), http.MethodGet, "/api/v1/poll-interval?platform=bitbucket")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistory(t *testing.T) {
	deps := setupTestDeps(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, deps.History.RecordSample(&store.PollSample{
			Platform:        "github",
			PolledAt:        time.Now().Add(time.Duration(i) * time.Minute),
			Success:         true,
			Status:          "normal",
			MaxUsagePercent: 20,
			BreakerState:    "closed",
			LatencyMS:       15,
		}))
	}

	rec := doRequest(GetHistoryHandler(deps), http.MethodGet, "/api/v1/history/github?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "github", body.Platform)
	assert.Len(t, body.Samples, 2)
	assert.Equal(t, "normal", body.Samples[0].Status)
	assert.True(t, body.Samples[0].Success)
}

func TestGetHistoryValidation(t *testing.T) {
	deps := setupTestDeps(t)

	rec := doRequest(GetHistoryHandler(deps), http.MethodGet, "/api/v1/history/bitbucket")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(GetHistoryHandler(deps), http.MethodGet, "/api/v1/history/github?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(GetHistoryHandler(deps), http.MethodGet, "/api/v1/history/github?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHistoryEmpty(t *testing.T) {
	deps := setupTestDeps(t)

	rec := doRequest(GetHistoryHandler(deps), http.MethodGet, "/api/v1/history/jira")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Samples)
}

func TestHealthHandler(t *testing.T) {
	rec := doRequest(HealthHandler, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestReadyHandler(t *testing.T) {
	deps := setupTestDeps(t)

	rec := doRequest(ReadyHandler(deps), http.MethodGet, "/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Database)
	assert.Equal(t, "ok", body.Redis)
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherproxy/internal/models"
	"weatherproxy/internal/usage"
)

func TestRenderStats(t *testing.T) {
	resp := models.NewStatsResponse(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), []models.UsageSummary{
		{Endpoint: models.EndpointForecast, Outcome: models.OutcomeSuccess, Count: 7, AvgDuration: 120 * time.Millisecond},
		{Endpoint: models.EndpointLocations, Outcome: models.OutcomeRateLimited, Count: 3},
	})

	out := renderStats(resp)

	assert.Contains(t, out, "Usage since 2024-05-01T12:00:00Z")
	assert.Contains(t, out, "forecast")
	assert.Contains(t, out, "rate_limited")
	assert.Contains(t, out, "120ms")
	assert.Contains(t, out, "10")
}

func TestRenderStats_Empty(t *testing.T) {
	out := renderStats(models.NewStatsResponse(time.Now(), nil))
	assert.Contains(t, out, "(no requests)")
}

func TestFetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stats", r.URL.Path)
		assert.Equal(t, "1h0m0s", r.URL.Query().Get("since"))
		if r.Header.Get("X-API-Key") != "gateway-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.NewErrorResponse("Invalid API key"))
			return
		}
		json.NewEncoder(w).Encode(models.NewStatsResponse(time.Now().Add(-time.Hour), []models.UsageSummary{
			{Endpoint: models.EndpointForecast, Outcome: models.OutcomeSuccess, Count: 4},
		}))
	}))
	defer srv.Close()

	stats, err := fetchStats(context.Background(), srv.Client(), srv.URL+"/", "gateway-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	require.Len(t, stats.Entries, 1)

	_, err = fetchStats(context.Background(), srv.Client(), srv.URL, "wrong", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway returned 401: Invalid API key")
}

func TestReadStats_SQLite(t *testing.T) {
	cfg := models.UsageConfig{
		Enabled: true,
		Type:    models.UsageTypeSQLite,
		DSN:     filepath.Join(t.TempDir(), "usage.db"),
	}

	recorder, err := usage.NewRecorder(cfg)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, recorder.Record(ctx, models.NewUsageEvent(models.EndpointForecast, models.OutcomeSuccess, 200, 50*time.Millisecond)))
	require.NoError(t, recorder.Record(ctx, models.NewUsageEvent(models.EndpointForecast, models.OutcomeSuccess, 200, 150*time.Millisecond)))
	require.NoError(t, recorder.Close())

	stats, err := readStats(ctx, cfg, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	require.Len(t, stats.Entries, 1)
	assert.Equal(t, 100*time.Millisecond, stats.Entries[0].AvgDuration)
}

func TestReadStats_MemoryNeedsServer(t *testing.T) {
	_, err := readStats(context.Background(), models.UsageConfig{Enabled: true, Type: models.UsageTypeMemory, MaxEvents: 10}, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url")
}

func TestReadStats_Disabled(t *testing.T) {
	_, err := readStats(context.Background(), models.UsageConfig{Enabled: false}, time.Hour)
	assert.ErrorIs(t, err, usage.ErrDisabled)
}

package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherproxy/internal/models"
	"weatherproxy/internal/observability"
	"weatherproxy/internal/version"
)

const searchBody = `[{"id":2801268,"name":"London","region":"City of London, Greater London","country":"United Kingdom","lat":51.52,"lon":-0.11,"url":"london-city-of-london-greater-london-united-kingdom"}]`

func testConfig(t *testing.T, upstreamURL string) *models.Config {
	t.Helper()
	cfg := models.NewDefaultConfig()
	cfg.Upstream.BaseURL = upstreamURL
	cfg.Upstream.APIKey = "provider-secret"
	cfg.Security.APIKey = "gateway-secret"
	cfg.Security.RateLimit.Requests = 2
	cfg.Metrics.Enabled = false
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, cfg *models.Config) *app {
	t.Helper()
	provider, err := observability.Setup(cfg.Metrics, cfg.Observability, version.GetInfo())
	require.NoError(t, err)

	a, err := newApp(cfg, provider, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func get(a *app, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	a.handlers.Wait()
	return rec
}

func TestApp_ServesLocationsEndToEnd(t *testing.T) {
	var gotQuery string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/search.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, searchBody)
	}))
	defer provider.Close()

	a := newTestApp(t, testConfig(t, provider.URL))

	rec := get(a, "/api/locations?query=London", "gateway-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "key=provider-secret&q=London", gotQuery)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	var locations []models.Location
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locations))
	require.Len(t, locations, 1)
	assert.Equal(t, "London", locations[0].Name)
}

func TestApp_EnforcesRateLimit(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, searchBody)
	}))
	defer provider.Close()

	a := newTestApp(t, testConfig(t, provider.URL))

	assert.Equal(t, http.StatusOK, get(a, "/api/locations?query=London", "gateway-secret").Code)
	assert.Equal(t, http.StatusOK, get(a, "/api/locations?query=Paris", "gateway-secret").Code)

	rec := get(a, "/api/locations?query=Berlin", "gateway-secret")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestApp_RateLimitDisabled(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, searchBody)
	}))
	defer provider.Close()

	cfg := testConfig(t, provider.URL)
	cfg.Security.RateLimit.Enabled = false
	a := newTestApp(t, cfg)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(a, "/api/locations?query=London", "gateway-secret").Code)
	}
}

func TestApp_RecordsUsage(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, searchBody)
	}))
	defer provider.Close()

	a := newTestApp(t, testConfig(t, provider.URL))
	require.NotNil(t, a.recorder)

	get(a, "/api/locations?query=London", "gateway-secret")
	get(a, "/api/locations?query=London", "wrong")

	rec := get(a, "/api/stats", "gateway-secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Total)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), stats.Since, time.Minute)
}

func TestApp_UsageDisabled(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Usage.Enabled = false
	a := newTestApp(t, cfg)

	assert.Nil(t, a.recorder)
	assert.Equal(t, http.StatusNotFound, get(a, "/api/stats", "gateway-secret").Code)
	assert.NoError(t, a.Close())
}

func TestApp_HealthNeedsNoCredential(t *testing.T) {
	a := newTestApp(t, testConfig(t, "http://127.0.0.1:1"))

	rec := get(a, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"weatherproxy/internal/auth"
	"weatherproxy/internal/gateway"
	"weatherproxy/internal/models"
	"weatherproxy/internal/observability"
	"weatherproxy/internal/ratelimit"
	"weatherproxy/internal/usage"
)

// defaultStatsWindow is used when GET /api/stats has no since parameter.
const defaultStatsWindow = 24 * time.Hour

// Gateway is the request pipeline the handlers delegate to.
type Gateway interface {
	Forecast(ctx context.Context, req gateway.Request, city, days string) (*models.Weather, gateway.Meta, error)
	Locations(ctx context.Context, req gateway.Request, query string) ([]models.Location, gateway.Meta, error)
}

// Handlers contains the HTTP handlers of the gateway.
type Handlers struct {
	gateway       Gateway
	apiKey        string
	recorder      usage.Recorder
	metrics       *observability.GatewayMetrics
	recordTimeout time.Duration
	pending       sync.WaitGroup
}

// HandlerOption configures optional Handlers dependencies.
type HandlerOption func(*Handlers)

// WithUsageRecorder enables the usage ledger and GET /api/stats.
func WithUsageRecorder(r usage.Recorder) HandlerOption {
	return func(h *Handlers) { h.recorder = r }
}

// WithGatewayMetrics records per-request metrics.
func WithGatewayMetrics(m *observability.GatewayMetrics) HandlerOption {
	return func(h *Handlers) { h.metrics = m }
}

// NewHandlers creates the handlers. apiKey protects GET /api/stats; the
// weather endpoints are authenticated by the pipeline itself.
func NewHandlers(gw Gateway, apiKey string, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		gateway:       gw,
		apiKey:        apiKey,
		recordTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck handles GET /health. It is unauthenticated and never touches
// the provider.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Forecast handles GET /api/forecast?city=<name>&days=<n>
func (h *Handlers) Forecast(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	weather, meta, err := h.gateway.Forecast(r.Context(), pipelineRequest(r), q.Get("city"), q.Get("days"))
	status := h.respond(w, meta, weather, err)

	h.account(r, models.EndpointForecast, status, meta, err, start)
}

// Locations handles GET /api/locations?query=<text>
func (h *Handlers) Locations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	locations, meta, err := h.gateway.Locations(r.Context(), pipelineRequest(r), r.URL.Query().Get("query"))
	status := h.respond(w, meta, locations, err)

	h.account(r, models.EndpointLocations, status, meta, err, start)
}

// Stats handles GET /api/stats?since=<duration>
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.ExtractAndValidate(r.Header, h.apiKey); err != nil {
		slog.Warn("Rejected credential", "reason", err.Error(), "path", r.URL.Path)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if h.recorder == nil {
		writeError(w, http.StatusNotFound, "Usage ledger is disabled")
		return
	}

	window := defaultStatsWindow
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "Since parameter must be a positive duration")
			return
		}
		window = d
	}
	since := time.Now().Add(-window)

	entries, err := h.recorder.Summary(r.Context(), since)
	if err != nil {
		slog.Error("Failed to summarize usage", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read usage statistics")
		return
	}

	writeJSON(w, http.StatusOK, models.NewStatsResponse(since, entries))
}

// respond writes either body or the pipeline error and returns the status
// code it used.
func (h *Handlers) respond(w http.ResponseWriter, meta gateway.Meta, body any, err error) int {
	if err == nil {
		ratelimit.SetHeaders(w, meta.Rate, false)
		writeJSON(w, http.StatusOK, body)
		return http.StatusOK
	}

	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		slog.Error("Unclassified pipeline error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return http.StatusInternalServerError
	}

	status := statusCode(gerr.Kind)
	ratelimit.SetHeaders(w, meta.Rate, gerr.Kind == gateway.KindRateLimited)
	writeError(w, status, gerr.Message)
	return status
}

// Wait blocks until every usage event handed to the ledger has been written
// or has timed out.
func (h *Handlers) Wait() {
	h.pending.Wait()
}

// account records metrics for an answered request and hands the usage event
// to the ledger in the background, so a slow ledger never delays a response.
// Ledger failures are logged and never affect the response.
func (h *Handlers) account(r *http.Request, endpoint string, status int, meta gateway.Meta, err error, start time.Time) {
	elapsed := time.Since(start)
	outcome := outcomeOf(err)

	h.metrics.RecordRequest(r.Context(), endpoint, outcome, status, elapsed)

	if h.recorder == nil {
		return
	}

	ev := models.NewUsageEvent(endpoint, outcome, status, elapsed)
	ev.RateKey = meta.RateKey

	ctx := context.WithoutCancel(r.Context())
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, h.recordTimeout)
		defer cancel()
		if err := h.recorder.Record(ctx, ev); err != nil {
			slog.Warn("Failed to record usage event", "error", err, "endpoint", endpoint)
		}
	}()
}

func outcomeOf(err error) string {
	if err == nil {
		return models.OutcomeSuccess
	}
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return gerr.Outcome()
	}
	return models.OutcomeInternalError
}

func pipelineRequest(r *http.Request) gateway.Request {
	return gateway.Request{Header: r.Header, RemoteAddr: r.RemoteAddr}
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing left but to log.
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, models.NewErrorResponse(message))
}

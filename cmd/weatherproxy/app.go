package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"weatherproxy/internal/api"
	"weatherproxy/internal/gateway"
	"weatherproxy/internal/models"
	"weatherproxy/internal/observability"
	"weatherproxy/internal/ratelimit"
	"weatherproxy/internal/upstream"
	"weatherproxy/internal/usage"
)

// app is the wired gateway: router plus the resources it owns.
type app struct {
	handler  http.Handler
	handlers *api.Handlers
	recorder usage.Recorder
}

// newApp wires the request path for cfg. Telemetry comes from provider,
// which may have metrics and tracing disabled.
func newApp(cfg *models.Config, provider *observability.Provider, log *slog.Logger) (*app, error) {
	mp, tp := provider.MeterProvider(), provider.TracerProvider()

	fetcher, err := observability.NewInstrumentedFetcher(
		upstream.NewClient(cfg.Upstream.Timeout, cfg.Upstream.UserAgent), mp, tp)
	if err != nil {
		return nil, fmt.Errorf("failed to instrument upstream client: %w", err)
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if rl := cfg.Security.RateLimit; rl.Enabled {
		limiter = ratelimit.NewWindowLimiter(rl.Requests, rl.Window)
	}

	pipeline := gateway.NewPipeline(
		cfg.Security.APIKey,
		limiter,
		fetcher,
		upstream.Endpoints{BaseURL: cfg.Upstream.BaseURL, APIKey: cfg.Upstream.APIKey},
		gateway.WithLogger(log),
		gateway.WithKeyFunc(ratelimit.NewKeyFunc(cfg.Security.RateLimit.KeyStrategy)),
	)

	gatewayMetrics, err := observability.NewGatewayMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway metrics: %w", err)
	}
	handlerOpts := []api.HandlerOption{api.WithGatewayMetrics(gatewayMetrics)}

	a := &app{}
	recorder, err := usage.NewRecorder(cfg.Usage)
	switch {
	case errors.Is(err, usage.ErrDisabled):
		log.Info("Usage ledger disabled")
	case err != nil:
		return nil, fmt.Errorf("failed to initialize usage ledger: %w", err)
	default:
		instrumented, err := observability.NewInstrumentedRecorder(recorder, mp, tp)
		if err != nil {
			recorder.Close()
			return nil, fmt.Errorf("failed to instrument usage ledger: %w", err)
		}
		a.recorder = instrumented
		handlerOpts = append(handlerOpts, api.WithUsageRecorder(instrumented))
		log.Info("Usage ledger ready", "type", cfg.Usage.Type)
	}

	var routeOpts []api.RouteOption
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	a.handlers = api.NewHandlers(pipeline, cfg.Security.APIKey, handlerOpts...)
	a.handler = api.SetupRoutes(a.handlers, cfg, routeOpts...)
	return a, nil
}

// Close waits for pending usage writes and releases the usage ledger.
func (a *app) Close() error {
	if a.handlers != nil {
		a.handlers.Wait()
	}
	if a.recorder == nil {
		return nil
	}
	return a.recorder.Close()
}

// Package gateway runs the request pipeline shared by every gateway
// endpoint: credential check, parameter validation, rate limiting, the
// provider call and decoding, in that order. The first failing stage ends
// the request with an *Error.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"weatherproxy/internal/auth"
	"weatherproxy/internal/models"
	"weatherproxy/internal/ratelimit"
	"weatherproxy/internal/upstream"
)

// Request is the transport-independent part of an inbound call the
// pipeline needs.
type Request struct {
	Header     http.Header
	RemoteAddr string
}

// Meta describes what the pipeline decided about a request, for response
// headers and the usage ledger. It is populated as far as the request got.
type Meta struct {
	RateKey string
	Rate    ratelimit.Info
}

// surface holds the caller-visible messages of one endpoint.
type surface struct {
	fetchFailed string
	serviceErr  string
	invalid     string
}

var (
	forecastSurface = surface{
		fetchFailed: "Failed to fetch weather data",
		serviceErr:  "Weather service error: ",
		invalid:     "Invalid response from weather service",
	}
	locationsSurface = surface{
		fetchFailed: "Failed to search locations",
		serviceErr:  "Location service error: ",
		invalid:     "Invalid response from location service",
	}
)

// Pipeline is safe for concurrent use. The limiter is the only shared
// mutable state.
type Pipeline struct {
	apiKey    string
	limiter   ratelimit.Limiter
	keyFunc   ratelimit.KeyFunc
	fetcher   upstream.Fetcher
	endpoints upstream.Endpoints
	logger    *slog.Logger

	limitWarn rate.Sometimes
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithKeyFunc selects how rate limit keys are derived. The default keys on
// the credential.
func WithKeyFunc(fn ratelimit.KeyFunc) Option {
	return func(p *Pipeline) { p.keyFunc = fn }
}

// NewPipeline creates a pipeline that accepts apiKey from callers and uses
// endpoints to reach the provider through fetcher.
func NewPipeline(apiKey string, limiter ratelimit.Limiter, fetcher upstream.Fetcher, endpoints upstream.Endpoints, opts ...Option) *Pipeline {
	p := &Pipeline{
		apiKey:    apiKey,
		limiter:   limiter,
		keyFunc:   ratelimit.NewKeyFunc(models.KeyStrategyCredential),
		fetcher:   fetcher,
		endpoints: endpoints,
		logger:    slog.Default(),
		limitWarn: rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.limiter == nil {
		p.limiter = ratelimit.Unlimited{}
	}
	return p
}

// Forecast returns the provider forecast for city. days may be empty.
func (p *Pipeline) Forecast(ctx context.Context, req Request, city, days string) (*models.Weather, Meta, error) {
	var meta Meta

	credential, err := p.authenticate(req)
	if err != nil {
		return nil, meta, err
	}

	q, err := models.NewForecastQuery(city, days)
	if err != nil {
		return nil, meta, newError(KindBadRequest, err.Error(), err)
	}

	if meta, err = p.admit(req, credential); err != nil {
		return nil, meta, err
	}

	raw, err := p.fetch(ctx, p.endpoints.Forecast(q.City, q.Days), forecastSurface)
	if err != nil {
		return nil, meta, err
	}

	w, err := upstream.DecodeForecast(raw)
	if err != nil {
		p.logger.Error("Undecodable forecast response", "error", err, "city", q.City, "body", raw)
		return nil, meta, newError(KindUpstreamError, forecastSurface.invalid, err)
	}

	p.logger.Debug("Forecast served", "city", q.City, "days", q.Days, "forecast_days", len(w.Forecast.ForecastDay))
	return w, meta, nil
}

// Locations returns the provider's matches for query.
func (p *Pipeline) Locations(ctx context.Context, req Request, query string) ([]models.Location, Meta, error) {
	var meta Meta

	credential, err := p.authenticate(req)
	if err != nil {
		return nil, meta, err
	}

	q, err := models.NewLocationQuery(query)
	if err != nil {
		return nil, meta, newError(KindBadRequest, err.Error(), err)
	}

	if meta, err = p.admit(req, credential); err != nil {
		return nil, meta, err
	}

	raw, err := p.fetch(ctx, p.endpoints.Search(q.Query), locationsSurface)
	if err != nil {
		return nil, meta, err
	}

	locs, err := upstream.DecodeLocations(raw)
	if err != nil {
		p.logger.Error("Undecodable location response", "error", err, "query", q.Query, "body", raw)
		return nil, meta, newError(KindUpstreamError, locationsSurface.invalid, err)
	}

	p.logger.Debug("Locations served", "query", q.Query, "results", len(locs))
	return locs, meta, nil
}

func (p *Pipeline) authenticate(req Request) (string, error) {
	credential, err := auth.ExtractAndValidate(req.Header, p.apiKey)
	if err != nil {
		p.logger.Warn("Rejected credential", "reason", err.Error(), "remote_addr", req.RemoteAddr)
		return "", newError(KindUnauthorized, err.Error(), err)
	}
	return credential, nil
}

func (p *Pipeline) admit(req Request, credential string) (Meta, error) {
	meta := Meta{RateKey: p.keyFunc(credential, req.Header, req.RemoteAddr)}

	info, err := p.limiter.Check(meta.RateKey)
	meta.Rate = info
	if err == nil {
		return meta, nil
	}

	if errors.Is(err, ratelimit.ErrRateLimited) {
		p.limitWarn.Do(func() {
			p.logger.Warn("Rate limit exceeded", "rate_key", meta.RateKey, "retry_after", info.RetryAfter)
		})
		gerr := newError(KindRateLimited, "Rate limit exceeded", err)
		gerr.RetryAfter = info.RetryAfter
		return meta, gerr
	}

	p.logger.Error("Rate limiter failed", "error", err, "rate_key", meta.RateKey)
	return meta, newError(KindInternal, "Internal server error", err)
}

func (p *Pipeline) fetch(ctx context.Context, rawURL string, s surface) (string, error) {
	raw, err := p.fetcher.Fetch(ctx, rawURL)
	if err == nil {
		return raw, nil
	}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		p.logger.Warn("Provider returned an error", "status", statusErr.Status, "body", statusErr.Body)
		return "", newError(KindUpstreamError, s.serviceErr+statusErr.ProviderMessage(), err)
	}

	p.logger.Error("Provider unreachable", "error", err, "url", upstream.Redact(rawURL))
	return "", newError(KindUpstreamUnavailable, s.fetchFailed, err)
}

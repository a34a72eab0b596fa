package models

import (
	"time"

	"github.com/google/uuid"
)

// Gateway endpoints recorded in the usage ledger.
const (
	EndpointForecast  = "forecast"
	EndpointLocations = "locations"
)

// Outcome values recorded in the usage ledger. They match the gateway error
// kinds plus OutcomeSuccess.
const (
	OutcomeSuccess             = "success"
	OutcomeBadRequest          = "bad_request"
	OutcomeUnauthorized        = "unauthorized"
	OutcomeRateLimited         = "rate_limited"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
	OutcomeUpstreamError       = "upstream_error"
	OutcomeInternalError       = "internal_error"
)

// UsageEvent is one gateway request as stored in the usage ledger. RateKey is
// the limiter key, never the raw credential.
type UsageEvent struct {
	ID         string        `json:"id"`
	OccurredAt time.Time     `json:"occurred_at"`
	Endpoint   string        `json:"endpoint"`
	Outcome    string        `json:"outcome"`
	Status     int           `json:"status"`
	RateKey    string        `json:"rate_key,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// NewUsageEvent stamps a new event with a fresh ID and the current time.
func NewUsageEvent(endpoint, outcome string, status int, duration time.Duration) UsageEvent {
	return UsageEvent{
		ID:         uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		Endpoint:   endpoint,
		Outcome:    outcome,
		Status:     status,
		Duration:   duration,
	}
}

// UsageSummary aggregates events for one endpoint/outcome pair.
type UsageSummary struct {
	Endpoint    string        `json:"endpoint"`
	Outcome     string        `json:"outcome"`
	Count       int64         `json:"count"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Package models - Gateway query types and input validation.
// This file defines the simplified queries clients send to the gateway.
//
// Validation Philosophy:
// - Fail fast with messages that are safe to return to the caller
// - Normalize input (trimmed strings, clamped day counts)
// - Out-of-range day counts above the maximum are capped, not rejected
package models

import (
	"errors"
	"strconv"
	"strings"
)

// Forecast day bounds. The provider caps free plans lower than MaxForecastDays;
// the gateway does not second-guess that.
const (
	MinForecastDays     = 1
	MaxForecastDays     = 10
	DefaultForecastDays = 5
)

var (
	ErrCityRequired  = errors.New("City parameter is required")
	ErrQueryRequired = errors.New("Query parameter is required")
)

// ForecastQuery is a validated request for a multi-day forecast.
type ForecastQuery struct {
	City string `json:"city"`
	Days int    `json:"days"`
}

// LocationQuery is a validated location search.
type LocationQuery struct {
	Query string `json:"query"`
}

// NewForecastQuery validates and normalizes raw query parameters. A days
// value that is empty or not an integer of at least MinForecastDays selects
// DefaultForecastDays; values above MaxForecastDays are capped.
func NewForecastQuery(city, days string) (ForecastQuery, error) {
	q := ForecastQuery{City: strings.TrimSpace(city), Days: DefaultForecastDays}
	if q.City == "" {
		return ForecastQuery{}, ErrCityRequired
	}

	n, err := strconv.Atoi(strings.TrimSpace(days))
	if err != nil || n < MinForecastDays {
		return q, nil
	}
	q.Days = ClampDays(n)

	return q, nil
}

// ClampDays caps n at MaxForecastDays.
func ClampDays(n int) int {
	if n > MaxForecastDays {
		return MaxForecastDays
	}
	return n
}

// NewLocationQuery validates a location search string.
func NewLocationQuery(query string) (LocationQuery, error) {
	q := LocationQuery{Query: strings.TrimSpace(query)}
	if q.Query == "" {
		return LocationQuery{}, ErrQueryRequired
	}
	return q, nil
}

// Package models - Gateway response types.
// Success responses are the provider records in weather.go, forwarded as-is.
// Every failure uses the single-field ErrorResponse body so clients only
// ever have to look for "error".
package models

import "time"

// ErrorResponse is the body of every non-2xx gateway response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Error: message}
}

// StatsResponse is returned by GET /api/stats.
type StatsResponse struct {
	Since     time.Time      `json:"since"`
	Generated time.Time      `json:"generated"`
	Total     int64          `json:"total"`
	Entries   []UsageSummary `json:"entries"`
}

// NewStatsResponse totals the given summaries.
func NewStatsResponse(since time.Time, entries []UsageSummary) *StatsResponse {
	resp := &StatsResponse{
		Since:     since.UTC(),
		Generated: time.Now().UTC(),
		Entries:   entries,
	}
	if resp.Entries == nil {
		resp.Entries = []UsageSummary{}
	}
	for _, e := range entries {
		resp.Total += e.Count
	}
	return resp
}

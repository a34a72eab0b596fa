// Package usage is the gateway's usage ledger: one event per answered
// forecast or location request, aggregated on demand for operators. The
// ledger is write-mostly and never consulted by the request path.
package usage

import (
	"context"
	"errors"
	"sort"
	"time"

	"weatherproxy/internal/models"
)

// ErrDisabled is returned by NewRecorder when the ledger is switched off.
var ErrDisabled = errors.New("usage ledger is disabled")

// Recorder persists usage events and summarizes them.
type Recorder interface {
	// Record stores one event.
	Record(ctx context.Context, ev models.UsageEvent) error

	// Summary aggregates events that occurred at or after since, one entry
	// per endpoint/outcome pair, ordered by endpoint then outcome.
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

type summaryKey struct {
	endpoint string
	outcome  string
}

type accumulator struct {
	count int64
	total time.Duration
}

// aggregate is shared by the backends that summarize in process.
type aggregate map[summaryKey]*accumulator

func (a aggregate) add(endpoint, outcome string, count int64, total time.Duration) {
	k := summaryKey{endpoint, outcome}
	acc, ok := a[k]
	if !ok {
		acc = &accumulator{}
		a[k] = acc
	}
	acc.count += count
	acc.total += total
}

func (a aggregate) summaries() []models.UsageSummary {
	out := make([]models.UsageSummary, 0, len(a))
	for k, acc := range a {
		s := models.UsageSummary{Endpoint: k.endpoint, Outcome: k.outcome, Count: acc.count}
		if acc.count > 0 {
			s.AvgDuration = acc.total / time.Duration(acc.count)
		}
		out = append(out, s)
	}
	sortSummaries(out)
	return out
}

func sortSummaries(s []models.UsageSummary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Endpoint != s[j].Endpoint {
			return s[i].Endpoint < s[j].Endpoint
		}
		return s[i].Outcome < s[j].Outcome
	})
}

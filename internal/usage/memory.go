package usage

import (
	"context"
	"sync"
	"time"

	"weatherproxy/internal/models"
)

// MemoryRecorder keeps the most recent events in a fixed-size ring. Older
// events are overwritten once the ring is full.
type MemoryRecorder struct {
	mu     sync.RWMutex
	events []models.UsageEvent
	next   int
	full   bool
}

// NewMemoryRecorder creates a ring holding up to maxEvents events.
func NewMemoryRecorder(maxEvents int) *MemoryRecorder {
	if maxEvents <= 0 {
		maxEvents = 1
	}
	return &MemoryRecorder{events: make([]models.UsageEvent, maxEvents)}
}

func (m *MemoryRecorder) Record(_ context.Context, ev models.UsageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[m.next] = ev
	m.next++
	if m.next == len(m.events) {
		m.next = 0
		m.full = true
	}
	return nil
}

func (m *MemoryRecorder) Summary(_ context.Context, since time.Time) ([]models.UsageSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.events)
	}

	agg := aggregate{}
	for _, ev := range m.events[:n] {
		if ev.OccurredAt.Before(since) {
			continue
		}
		agg.add(ev.Endpoint, ev.Outcome, 1, ev.Duration)
	}
	return agg.summaries(), nil
}

// Len reports how many events are held.
func (m *MemoryRecorder) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.full {
		return len(m.events)
	}
	return m.next
}

func (m *MemoryRecorder) Ping(context.Context) error { return nil }

func (m *MemoryRecorder) Close() error { return nil }

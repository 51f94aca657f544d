package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/readycheck/internal/repo"
	"github.com/hamed0406/readycheck/internal/report"
)

// DefaultHistory is used when New is given a non-positive size.
const DefaultHistory = 50

// Store keeps the most recent reports in a bounded slice, oldest first, plus
// alert state per probe.
type Store struct {
	mu      sync.RWMutex
	max     int
	reports []report.Report
	alerts  map[string]repo.AlertRecord
}

func New(history int) *Store {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Store{
		max:     history,
		reports: make([]report.Report, 0, history),
		alerts:  make(map[string]repo.AlertRecord),
	}
}

// ---- ReportStore ----

func (m *Store) Append(ctx context.Context, r report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.reports) == m.max {
		copy(m.reports, m.reports[1:])
		m.reports = m.reports[:m.max-1]
	}
	m.reports = append(m.reports, r)
	return nil
}

func (m *Store) Latest(ctx context.Context) (*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.reports) == 0 {
		return nil, nil
	}
	r := m.reports[len(m.reports)-1]
	return &r, nil
}

func (m *Store) List(ctx context.Context, limit int) ([]report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.reports) {
		limit = len(m.reports)
	}
	out := make([]report.Report, 0, limit)
	for i := len(m.reports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.reports[i])
	}
	return out, nil
}

// ---- AlertStore ----

func (m *Store) Get(ctx context.Context, probe string) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[probe]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) Set(ctx context.Context, probe string, lastState bool, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	m.alerts[probe] = repo.AlertRecord{Probe: probe, LastState: lastState, LastSentAt: ts}
	return nil
}

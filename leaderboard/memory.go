package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Gateway. Used when no DATABASE_URL is configured
// and in tests. Entries do not survive a restart.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Gateway = (*Memory)(nil)

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{}
}

// Submit records one entry.
func (m *Memory) Submit(_ context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Query returns matching entries, descending score, ties broken by fewer
// tries then earlier submission.
func (m *Memory) Query(_ context.Context, f Filter, limit int) ([]Entry, error) {
	m.mu.Lock()
	var matched []Entry
	for _, e := range m.entries {
		if f.GridSize > 0 && e.GridSize != f.GridSize {
			continue
		}
		if f.GameMode != "" && e.GameMode != f.GameMode {
			continue
		}
		matched = append(matched, e)
	}
	m.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		if matched[i].Tries != matched[j].Tries {
			return matched[i].Tries < matched[j].Tries
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Close is a no-op.
func (m *Memory) Close() {}

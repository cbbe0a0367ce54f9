package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/infraprobe/internal/domain"
	"github.com/hamed0406/infraprobe/internal/repo"
)

// Store is an in-process HistoryStore and AlertStore, used when no
// DATABASE_URL is configured.
type Store struct {
	mu      sync.RWMutex
	results map[string][]domain.TestResult // by environment
	alerts  map[string]repo.AlertRecord
}

func New() *Store {
	return &Store{
		results: make(map[string][]domain.TestResult),
		alerts:  make(map[string]repo.AlertRecord),
	}
}

func (m *Store) Append(_ context.Context, env string, r domain.TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[env] = append(m.results[env], r)
	return nil
}

func (m *Store) Latest(_ context.Context, env string) ([]domain.TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := make(map[string]int)
	out := make([]domain.TestResult, 0)
	for _, r := range m.results[env] {
		i, seen := idx[r.Name]
		if !seen {
			idx[r.Name] = len(out)
			out = append(out, r)
			continue
		}
		if !r.Timestamp.Before(out[i].Timestamp) {
			out[i] = r
		}
	}
	return out, nil
}

func (m *Store) Get(_ context.Context, key string) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) Set(_ context.Context, key string, failing bool, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	m.alerts[key] = repo.AlertRecord{Key: key, Failing: failing, LastSentAt: ts}
	return nil
}

var (
	_ repo.HistoryStore = (*Store)(nil)
	_ repo.AlertStore   = (*Store)(nil)
)

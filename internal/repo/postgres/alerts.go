package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/infraprobe/internal/repo"
)

const (
	getAlertSQL = `SELECT failing, last_sent_at FROM test_alerts WHERE key = $1`

	setAlertSQL = `
		INSERT INTO test_alerts (key, failing, last_sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET failing = EXCLUDED.failing, last_sent_at = EXCLUDED.last_sent_at`
)

// Get returns nil, nil for a test that has never been recorded.
func (s *Store) Get(ctx context.Context, key string) (*repo.AlertRecord, error) {
	rec := repo.AlertRecord{Key: key}
	err := s.pool.QueryRow(ctx, getAlertSQL, key).Scan(&rec.Failing, &rec.LastSentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert %s: %w", key, err)
	}
	return &rec, nil
}

// Set upserts the state of key. A zero sentAt is stored as NULL.
func (s *Store) Set(ctx context.Context, key string, failing bool, sentAt time.Time) error {
	var ts *time.Time
	if !sentAt.IsZero() {
		utc := sentAt.UTC()
		ts = &utc
	}
	if _, err := s.pool.Exec(ctx, setAlertSQL, key, failing, ts); err != nil {
		return fmt.Errorf("set alert %s: %w", key, err)
	}
	return nil
}

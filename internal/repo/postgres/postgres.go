package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/domain"
	"github.com/hamed0406/infraprobe/internal/repo"
)

var (
	_ repo.HistoryStore = (*Store)(nil)
	_ repo.AlertStore   = (*Store)(nil)
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS test_results (
  id          BIGSERIAL PRIMARY KEY,
  environment TEXT NOT NULL,
  name        TEXT NOT NULL,
  status      TEXT NOT NULL,
  duration    DOUBLE PRECISION NOT NULL,
  message     TEXT NOT NULL,
  details     JSONB NULL,
  ts          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_test_results_env_name_ts ON test_results (environment, name, ts DESC);

CREATE TABLE IF NOT EXISTS test_alerts (
  key          TEXT PRIMARY KEY,
  failing      BOOLEAN NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Debug("history_schema_ready")
	return nil
}

// ---- HistoryStore ----

func (s *Store) Append(ctx context.Context, env string, r domain.TestResult) error {
	var details map[string]any
	if len(r.Details) > 0 {
		details = r.Details
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO test_results
		   (environment, name, status, duration, message, details, ts)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7)`,
		env, r.Name, string(r.Status), r.Duration, r.Message, details, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context, env string) ([]domain.TestResult, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT ON (name)
       name, status, duration, message, details, ts
  FROM test_results
 WHERE environment = $1
 ORDER BY name, ts DESC`, env)
	if err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}
	defer rows.Close()

	var out []domain.TestResult
	for rows.Next() {
		var (
			r      domain.TestResult
			status string
		)
		if err := rows.Scan(&r.Name, &status, &r.Duration, &r.Message, &r.Details, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan latest: %w", err)
		}
		r.Status = domain.Status(status)
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

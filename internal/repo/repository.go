package repo

import (
	"context"

	"github.com/hamed0406/infraprobe/internal/domain"
)

// HistoryStore keeps every test result of every run, per environment.
type HistoryStore interface {
	Append(ctx context.Context, env string, r domain.TestResult) error
	// Latest returns the newest result of each test name in env.
	Latest(ctx context.Context, env string) ([]domain.TestResult, error)
}

package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/domain"
	"github.com/hamed0406/infraprobe/internal/metrics"
	"github.com/hamed0406/infraprobe/internal/probe"
	"github.com/hamed0406/infraprobe/internal/repo"
)

// MaxConcurrency caps the number of tests of one suite in flight.
const MaxConcurrency = 5

// Prober executes a single test. *probe.Prober implements it.
type Prober interface {
	Run(ctx context.Context, spec domain.TestSpec) (probe.Outcome, error)
}

// Runner executes suites one after another and the tests of a suite
// concurrently. It collects exactly one TestResult per test.
type Runner struct {
	Logger  *zap.Logger
	Prober  Prober
	History repo.HistoryStore // optional
	Env     string

	mu      sync.Mutex
	results []domain.TestResult
}

func New(logger *zap.Logger, prober Prober, env string, history repo.HistoryStore) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Logger:  logger,
		Prober:  prober,
		History: history,
		Env:     env,
	}
}

// RunCatalog runs every suite in order and returns all results.
func (r *Runner) RunCatalog(ctx context.Context, cat *domain.Catalog) []domain.TestResult {
	for _, s := range cat.TestSuites {
		r.RunSuite(ctx, s)
	}
	return r.Results()
}

// RunSuite executes the tests of s with at most min(len(tests), 5) running
// at once and returns the suite's results in declaration order.
func (r *Runner) RunSuite(ctx context.Context, s domain.TestSuite) []domain.TestResult {
	n := len(s.Tests)
	r.Logger.Info("suite_started", zap.String("suite", s.Name), zap.Int("tests", n))
	if n == 0 {
		return nil
	}

	start := time.Now()
	out := make([]domain.TestResult, n)
	p := pool.New().WithMaxGoroutines(min(n, MaxConcurrency))
	for i, spec := range s.Tests {
		p.Go(func() {
			out[i] = r.runOne(ctx, s.Name, spec)
		})
	}
	p.Wait()

	r.mu.Lock()
	r.results = append(r.results, out...)
	r.mu.Unlock()

	for _, res := range out {
		r.record(ctx, s.Name, res)
	}
	r.Logger.Info("suite_finished",
		zap.String("suite", s.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}

// runOne never panics and never returns without a result.
func (r *Runner) runOne(ctx context.Context, suite string, spec domain.TestSpec) (res domain.TestResult) {
	name := domain.QualifiedName(suite, spec.Name)

	if spec.Skip {
		return domain.NewResult(name, domain.StatusSkip, 0, "Test skipped by configuration", nil)
	}
	if err := ctx.Err(); err != nil {
		return domain.NewResult(name, domain.StatusSkip, 0, fmt.Sprintf("Run cancelled before start: %v", err), nil)
	}

	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			r.Logger.Debug("test_panic_stack", zap.String("test", name), zap.ByteString("stack", debug.Stack()))
			res = errorResult(name, time.Since(start), fmt.Errorf("panic: %v", v), spec)
		}
	}()

	outcome, err := r.Prober.Run(ctx, spec)
	elapsed := time.Since(start)
	if err != nil {
		return errorResult(name, elapsed, err, spec)
	}

	status := domain.StatusFail
	if outcome.Success {
		status = domain.StatusPass
	}
	return domain.NewResult(name, status, elapsed, outcome.Message, outcome.Details)
}

func errorResult(name string, d time.Duration, err error, spec domain.TestSpec) domain.TestResult {
	return domain.NewResult(name, domain.StatusError, d, fmt.Sprintf("Test execution failed: %v", err), map[string]any{
		"exception":   err.Error(),
		"test_config": spec.AsMap(),
	})
}

func (r *Runner) record(ctx context.Context, suite string, res domain.TestResult) {
	fields := []zap.Field{
		zap.String("test", res.Name),
		zap.String("status", string(res.Status)),
		zap.Float64("duration", res.Duration),
		zap.String("message", res.Message),
	}
	switch res.Status {
	case domain.StatusPass:
		r.Logger.Info("test_passed", fields...)
	case domain.StatusSkip:
		r.Logger.Info("test_skipped", fields...)
	case domain.StatusFail:
		r.Logger.Error("test_failed", fields...)
	default:
		r.Logger.Error("test_error", fields...)
	}

	metrics.RecordTestResult(suite, string(res.Status), time.Duration(res.Duration*float64(time.Second)))

	if r.History != nil {
		// results of a cancelled run are still worth keeping
		if err := r.History.Append(context.WithoutCancel(ctx), r.Env, res); err != nil {
			r.Logger.Warn("history_append_error", zap.String("test", res.Name), zap.Error(err))
		}
	}
}

// Results returns a copy of everything collected so far.
func (r *Runner) Results() []domain.TestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TestResult, len(r.results))
	copy(out, r.results)
	return out
}

package alert

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/domain"
	"github.com/hamed0406/infraprobe/internal/metrics"
	"github.com/hamed0406/infraprobe/internal/notify"
	"github.com/hamed0406/infraprobe/internal/repo"
)

type Config struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

// Alerter turns per-test state changes between runs into notifications.
type Alerter struct {
	logger   *zap.Logger
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      Config
	now      func() time.Time
}

func NewAlerter(logger *zap.Logger, alertDB repo.AlertStore, notifier notify.Notifier, cfg Config) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{
		logger:   logger,
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

func Key(env, test string) string { return env + "/" + test }

// Evaluate compares every result with the recorded state of its test and
// notifies on transitions: to failing (subject to the cooldown) and back to
// passing when recovery alerts are on. Skipped tests are ignored. It returns
// how many notifications were sent; store and delivery errors are combined
// and do not stop the remaining tests.
func (a *Alerter) Evaluate(ctx context.Context, env string, results []domain.TestResult) (int, error) {
	now := a.now()
	sent := 0
	var errs error

	for _, r := range results {
		if r.Status == domain.StatusSkip {
			continue
		}
		key := Key(env, r.Name)
		failing := r.Status.Failing()

		rec, err := a.alertDB.Get(ctx, key)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("get alert state %s: %w", key, err))
			continue
		}

		// A test first seen passing has nothing to recover from.
		stateChanged := (rec == nil && failing) || (rec != nil && rec.Failing != failing)

		// Cooldown only matters for failure alerts (suppresses noisy repeats).
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		failAlert := stateChanged && failing && cooled
		recoveryAlert := stateChanged && !failing && a.cfg.AlertOnRecovery // bypass cooldown

		if failAlert || recoveryAlert {
			err := a.notifier.Send(ctx, message(env, r))
			metrics.RecordNotification("test_alert", err)
			if err != nil {
				a.logger.Warn("alert_send_error", zap.String("test", r.Name), zap.Error(err))
				errs = multierr.Append(errs, err)
				// keep the old state so the next run tries again
				continue
			}
			sent++
			a.logger.Info("alert_sent", zap.String("test", r.Name), zap.Bool("failing", failing))
			errs = multierr.Append(errs, a.alertDB.Set(ctx, key, failing, now))
			continue
		}

		// State changed but nothing was sent (failure within cooldown,
		// recovery alerts disabled, first sighting): record without a send time.
		if rec == nil || stateChanged {
			var sentAt time.Time
			if rec != nil && rec.LastSentAt != nil {
				sentAt = *rec.LastSentAt
			}
			errs = multierr.Append(errs, a.alertDB.Set(ctx, key, failing, sentAt))
		}
	}
	return sent, errs
}

func message(env string, r domain.TestResult) notify.Message {
	title := "🔴 Test FAILING: " + r.Name
	color := notify.ColorRed
	if !r.Status.Failing() {
		title = "🟢 Test RECOVERED: " + r.Name
		color = notify.ColorGreen
	}
	return notify.Message{
		Title: title,
		Text:  r.Message,
		Color: color,
		Fields: []notify.Field{
			{Title: "Environment", Value: env, Short: true},
			{Title: "Status", Value: string(r.Status), Short: true},
			{Title: "Duration", Value: fmt.Sprintf("%.2fs", r.Duration), Short: true},
			{Title: "Checked", Value: r.Timestamp.Format(time.RFC3339), Short: true},
		},
		Footer:    "infratest",
		Timestamp: r.Timestamp,
	}
}

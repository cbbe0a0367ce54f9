package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/alert"
	"github.com/hamed0406/infraprobe/internal/catalog"
	"github.com/hamed0406/infraprobe/internal/config"
	"github.com/hamed0406/infraprobe/internal/domain"
	"github.com/hamed0406/infraprobe/internal/logging"
	"github.com/hamed0406/infraprobe/internal/metrics"
	"github.com/hamed0406/infraprobe/internal/notify"
	"github.com/hamed0406/infraprobe/internal/probe"
	"github.com/hamed0406/infraprobe/internal/repo"
	"github.com/hamed0406/infraprobe/internal/repo/memory"
	"github.com/hamed0406/infraprobe/internal/repo/postgres"
	"github.com/hamed0406/infraprobe/internal/report"
	"github.com/hamed0406/infraprobe/internal/runner"
)

type runOptions struct {
	region      string
	output      string
	verbose     bool
	notify      bool
	historyDSN  string
	pushgateway string
}

func newRunCmd() *cobra.Command {
	cfg := config.FromEnv()
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <config_file> <environment>",
		Short: "Run every test suite in the config against an environment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, cfg, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.region, "region", "r", cfg.Region, "AWS region")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON report to this file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "send state-change alerts to the configured webhooks")
	cmd.Flags().StringVar(&opts.historyDSN, "history-dsn", cfg.DatabaseURL, "Postgres DSN for run history (default in-memory)")
	cmd.Flags().StringVar(&opts.pushgateway, "pushgateway", os.Getenv("PUSHGATEWAY_URL"), "Prometheus Pushgateway URL")

	return cmd
}

// stateStore keeps run history and alert state in one backend.
type stateStore interface {
	repo.HistoryStore
	repo.AlertStore
}

func openStore(ctx context.Context, dsn string, logger *zap.Logger) (stateStore, func(), error) {
	if dsn == "" {
		return memory.New(), func() {}, nil
	}
	pg, err := postgres.New(ctx, dsn, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func runTests(cmd *cobra.Command, cfg config.Config, path, env string, opts runOptions) error {
	ctx := cmd.Context()

	level := cfg.Level
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(logging.Options{Name: "infratest", Dir: cfg.LogDir, Level: level, Console: true})
	if err != nil {
		return &exitError{code: exitFail, err: err}
	}
	defer logger.Sync()

	cat, err := catalog.Load(path)
	if err != nil {
		return &exitError{code: exitFail, err: err}
	}

	awsCfg, err := config.AWS(ctx, opts.region)
	if err != nil {
		return &exitError{code: exitFail, err: err}
	}

	store, closeStore, err := openStore(ctx, opts.historyDSN, logger)
	if err != nil {
		return &exitError{code: exitFail, err: fmt.Errorf("open history store: %w", err)}
	}
	defer closeStore()

	prober := probe.NewProber(logger, probe.NewClients(awsCfg), env, opts.region, probe.Naming(cat.Naming))
	r := runner.New(logger, prober, env, store)

	runID := uuid.NewString()
	logger.Info("run_started",
		zap.String("run_id", runID),
		zap.String("environment", env),
		zap.String("region", opts.region),
		zap.Int("tests", cat.TotalTests()),
	)

	start := time.Now()
	results := r.RunCatalog(ctx, cat)
	end := time.Now()

	rep := report.Build(results, report.Meta{
		Start:       start,
		End:         end,
		Environment: env,
		Region:      opts.region,
		RunID:       runID,
		Version:     version,
	})
	metrics.RecordRun(env, rep.Counts(), end.Sub(start))

	// Reporting and alerting still run after an interrupt.
	after := context.WithoutCancel(ctx)

	if opts.output != "" {
		if err := report.Save(opts.output, rep); err != nil {
			logger.Error("report_save_failed", zap.String("path", opts.output), zap.Error(err))
		} else {
			logger.Info("report_saved", zap.String("path", opts.output))
		}
	}

	report.PrintSummary(cmd.OutOrStdout(), rep, os.Getenv("NO_COLOR") == "")

	if opts.pushgateway != "" {
		if err := metrics.Push(after, opts.pushgateway, env); err != nil {
			logger.Warn("metrics_push_failed", zap.String("url", opts.pushgateway), zap.Error(err))
		}
	}

	if opts.notify {
		sendAlerts(after, logger, cfg, store, env, results)
	}

	logger.Info("run_finished",
		zap.String("run_id", runID),
		zap.String("overall_status", string(rep.Summary.OverallStatus)),
		zap.Float64("success_rate", rep.Summary.SuccessRate),
	)

	if ctx.Err() != nil {
		return &exitError{code: exitInterrupt, err: fmt.Errorf("interrupted: %w", ctx.Err())}
	}
	if rep.Summary.OverallStatus != domain.StatusPass {
		return &exitError{code: exitFail}
	}
	return nil
}

func sendAlerts(ctx context.Context, logger *zap.Logger, cfg config.Config, store repo.AlertStore, env string, results []domain.TestResult) {
	notifier, err := notify.FromWebhooks(cfg.SlackWebhookURL, cfg.SlackChannel, "infratest", cfg.TeamsWebhookURL)
	if err != nil {
		logger.Warn("alerts_disabled", zap.Error(err))
		return
	}
	a := alert.NewAlerter(logger, store, notifier, alert.Config{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
	})
	sent, err := a.Evaluate(ctx, env, results)
	if err != nil {
		logger.Warn("alerts_partial", zap.Int("sent", sent), zap.Error(err))
		return
	}
	logger.Info("alerts_sent", zap.Int("sent", sent))
}

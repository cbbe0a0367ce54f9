package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/config"
	"github.com/hamed0406/infraprobe/internal/genai"
	"github.com/hamed0406/infraprobe/internal/httpapi"
	apimw "github.com/hamed0406/infraprobe/internal/httpapi/middleware"
	"github.com/hamed0406/infraprobe/internal/logging"
	"github.com/hamed0406/infraprobe/internal/repo"
	"github.com/hamed0406/infraprobe/internal/repo/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	logger, err := logging.NewLogger(logging.Options{Name: "genai-api", Dir: cfg.LogDir, Level: cfg.Level})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	assistant, dataAPI, err := genai.FromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("genai_setup_failed", zap.Error(err))
	}

	// Run history is read-only here; infratest writes it.
	var history repo.HistoryStore
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("history_store_failed", zap.Error(err))
		}
		defer pg.Close()
		history = pg
	}

	api := httpapi.NewServer(logger, assistant, history)
	api.DataAPI = dataAPI

	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, origins(), cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_failed", zap.Error(err))
	}
	logger.Info("api_stopped")
}

func origins() []string {
	var out []string
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

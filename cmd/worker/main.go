package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gamecre8/internal/bootstrap"
	"gamecre8/internal/infra"
	"gamecre8/internal/runner"
)

type passRunner interface {
	RunPass(ctx context.Context, n int) (runner.PassReport, error)
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to wire services")
	}
	defer services.Close()

	logger.Info().Dur("interval", cfg.WorkerPollInterval).Int("batch", cfg.RunnerBatchSize).Msg("worker: started")
	poll(ctx, services.Runner, cfg.RunnerBatchSize, cfg.WorkerPollInterval, logger)
	logger.Info().Msg("worker: stopped")
}

// poll runs a pass right away and then once per interval until ctx ends.
// A pass that claimed a full batch is followed immediately by another one.
func poll(ctx context.Context, r passRunner, batch int, interval time.Duration, logger infra.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for {
			report, err := r.RunPass(ctx, batch)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error().Err(err).Msg("worker: pass failed")
				break
			}
			if report.Claimed > 0 {
				logger.Info().Int("claimed", report.Claimed).Int("done", report.Done).Int("failed", report.Failed).Msg("worker: pass complete")
			}
			if report.Claimed < max(batch, 1) || ctx.Err() != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

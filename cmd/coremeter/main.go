package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coremeter/internal/config"
	"coremeter/internal/domain"
	"coremeter/internal/logger"
	"coremeter/internal/meter"
	"coremeter/internal/report"
	"coremeter/internal/storage/sqlite"
	"coremeter/internal/system"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg)

	if err := cfg.Validate(); err != nil {
		log.Error("configuration rejected", "error", err)
		os.Exit(1)
	}

	source, err := system.NewTickSource(cfg.TickSource, log)
	if err != nil {
		log.Error("failed to select tick source", "error", err)
		os.Exit(1)
	}

	reporter, err := report.New(cfg.Output, os.Stdout)
	if err != nil {
		log.Error("failed to select output", "error", err)
		os.Exit(1)
	}

	run, err := measure(ctx, cfg, log, system.NewOnlineProcessors(log), source, reporter)
	if err != nil {
		log.Error("core utilization measurement failed", "error", err)
		os.Exit(1)
	}

	if cfg.ResultsDB != "" {
		if err := journal(ctx, cfg.ResultsDB, run, log); err != nil {
			log.Error("failed to record run", "path", cfg.ResultsDB, "error", err)
		}
	}
}

// measure runs exactly one window of cfg.Window and reports it.
func measure(
	ctx context.Context,
	cfg *config.Config,
	log logger.Logger,
	counter system.ProcessorCounter,
	source system.TickSource,
	reporter meter.Reporter,
) (*domain.Run, error) {
	m, err := meter.New(ctx, counter, source, reporter, log)
	if err != nil {
		return nil, err
	}

	log.Info("measuring core utilization",
		"processors", m.Processors(),
		"window", cfg.Window,
		"tick_source", source.Name(),
	)

	if err := m.BeginWindow(ctx); err != nil {
		return nil, err
	}

	if err := wait(ctx, cfg.Window); err != nil {
		return nil, fmt.Errorf("window interrupted: %w", err)
	}

	if err := m.EndWindow(ctx); err != nil {
		return nil, err
	}

	results, err := m.PrintResults()
	if err != nil {
		return nil, err
	}

	began, ended := m.Window()
	return &domain.Run{
		StartedAt:      began,
		EndedAt:        ended,
		Window:         cfg.Window,
		ProcessorCount: m.Processors(),
		TickSource:     source.Name(),
		Results:        results,
	}, nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func journal(ctx context.Context, path string, run *domain.Run, log logger.Logger) error {
	db, err := sqlite.NewSqliteDB(path, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("sqlite", "close", err)
		}
	}()

	if err := sqlite.NewRunRepository(db).SaveRun(ctx, run); err != nil {
		return err
	}

	log.Info("run recorded", "run_id", run.ID, "path", path)
	return nil
}

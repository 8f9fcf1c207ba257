package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lumenshop/lumenshop-admin/internal/app"
	"github.com/lumenshop/lumenshop-admin/internal/audit"
	jobmetrics "github.com/lumenshop/lumenshop-admin/internal/jobs"
	"github.com/lumenshop/lumenshop-admin/internal/lockout"
	"github.com/lumenshop/lumenshop-admin/internal/platform/db"
	"github.com/lumenshop/lumenshop-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	auditService := audit.NewService(audit.NewRepository(pool), logger)
	lockoutService := lockout.NewService(lockout.NewRepository(pool), auditService, lockout.Config{
		Threshold: cfg.LockoutThreshold,
		Window:    cfg.LockoutWindow,
	}, logger)

	auditPruneTask, err := jobs.NewAuditPruneTask(jobs.PrunePayload{Days: cfg.AuditRetentionDays})
	if err != nil {
		logger.Error("build audit prune task", slog.Any("error", err))
		os.Exit(1)
	}
	lockoutPruneTask, err := jobs.NewLockoutPruneTask(jobs.PrunePayload{Days: cfg.LockoutRetentionDays})
	if err != nil {
		logger.Error("build lockout prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditPrune, Handler: jobs.NewAuditPruneHandler(auditService, logger, metrics)},
			{Type: jobs.TaskLockoutPrune, Handler: jobs.NewLockoutPruneHandler(lockoutService, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 2 * * *", Task: auditPruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: lockoutPruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

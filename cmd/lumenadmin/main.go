package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/lumenshop/lumenshop-admin/internal/app"
	"github.com/lumenshop/lumenshop-admin/internal/audit"
	audithttp "github.com/lumenshop/lumenshop-admin/internal/audit/http"
	"github.com/lumenshop/lumenshop-admin/internal/auth"
	"github.com/lumenshop/lumenshop-admin/internal/identity"
	"github.com/lumenshop/lumenshop-admin/internal/lockout"
	"github.com/lumenshop/lumenshop-admin/internal/observability"
	"github.com/lumenshop/lumenshop-admin/internal/platform/cache"
	"github.com/lumenshop/lumenshop-admin/internal/platform/db"
	"github.com/lumenshop/lumenshop-admin/internal/rbac"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
	"github.com/lumenshop/lumenshop-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "lumen_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo, logger)

	lockoutRepo := lockout.NewRepository(dbpool)
	lockoutService := lockout.NewService(lockoutRepo, auditService, lockout.Config{
		Threshold: cfg.LockoutThreshold,
		Window:    cfg.LockoutWindow,
	}, logger)

	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo)
	guard := rbac.NewGuard(rbacService, identity.SessionProvider{}, auditService, metrics, logger)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, lockoutService)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacHandler := rbac.NewHandler(logger, rbacService, guard, auditService)
	auditHandler := audithttp.NewHandler(logger, auditService, guard)
	lockoutHandler := lockout.NewHandler(logger, lockoutService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		RBACHandler:    rbacHandler,
		AuditHandler:   auditHandler,
		LockoutHandler: lockoutHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}

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

	"github.com/araxson/enorae-sub010/internal/app"
	"github.com/araxson/enorae-sub010/internal/audit"
	"github.com/araxson/enorae-sub010/internal/auth"
	"github.com/araxson/enorae-sub010/internal/observability"
	"github.com/araxson/enorae-sub010/internal/platform/cache"
	"github.com/araxson/enorae-sub010/internal/platform/db"
	"github.com/araxson/enorae-sub010/internal/ratelimit"
	"github.com/araxson/enorae-sub010/internal/rbac"
	"github.com/araxson/enorae-sub010/internal/roles"
	"github.com/araxson/enorae-sub010/internal/tenancy"
	"github.com/araxson/enorae-sub010/jobs"
)

const serviceVersion = "0.1.0"

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

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.OTelEndpoint != "",
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		ServiceName: "enorae",
		Version:     serviceVersion,
	}, logger)
	if err != nil {
		logger.Warn("init tracing", slog.Any("error", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("shutdown tracing", slog.Any("error", err))
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	}

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

	matrix, err := rbac.LoadMatrix(cfg.CapabilityMatrixFile)
	if err != nil {
		logger.Error("load capability matrix", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	recorderOpts := []audit.Option{audit.WithFailureCounter(metrics.AuditFailures())}
	if cfg.AuditReplayEnabled {
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		recorderOpts = append(recorderOpts, audit.WithFallback(jobClient))
	}
	auditRepo := audit.NewRepository(dbpool)
	recorder := audit.NewRecorder(auditRepo, logger, recorderOpts...)

	sessions := auth.NewSessionStore(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	tokens := auth.NewTokens(cfg.TokenSecret(), cfg.JWTTTL)
	userRepo := auth.NewRepository(dbpool)
	roleRepo := roles.NewPGRepository(dbpool)
	verifier := auth.NewVerifier(
		auth.NewStore(sessions, tokens, userRepo, roleRepo),
		logger,
		auth.WithTimeout(cfg.VerifyTimeout),
		auth.WithObserver(metrics),
	)
	authMiddleware := auth.Middleware{
		Verifier:   verifier,
		Matrix:     matrix,
		CookieName: cfg.SessionCookie,
		Logger:     logger,
	}
	authHandler := auth.NewHandler(auth.HandlerDeps{
		Logger:   logger,
		Service:  auth.NewService(userRepo),
		Sessions: sessions,
		Tokens:   tokens,
		Verifier: verifier,
		Matrix:   matrix,
		Audit:    recorder,
	})

	resolver := tenancy.NewResolver(tenancy.NewRepository(dbpool))
	engine := roles.NewEngine(roleRepo, resolver, recorder, logger, roles.WithBulkMaxItems(cfg.BulkMaxItems))
	bulkLimiter := ratelimit.New(redisClient, cfg.BulkRateLimit, cfg.BulkRateWindow)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Auth:           authMiddleware,
		AuthHandler:    authHandler,
		TenancyHandler: tenancy.NewHandler(resolver, verifier),
		AdminRoles:     roles.NewHandler(engine, bulkLimiter, verifier, rbac.PlatformAdmins...),
		BusinessRoles:  roles.NewHandler(engine, bulkLimiter, verifier, rbac.BusinessUsers...),
		JobHandler:     jobs.NewHandler(inspector, logger),
		AuditHandler:   audit.NewHandler(auditRepo, logger),
		Metrics:        metrics,
		Health: map[string]app.Pinger{
			"postgres": dbpool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

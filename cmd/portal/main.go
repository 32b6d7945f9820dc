package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/zamcdf/cdf-portal/internal/app"
	"github.com/zamcdf/cdf-portal/internal/audit"
	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/geo"
	"github.com/zamcdf/cdf-portal/internal/identity"
	"github.com/zamcdf/cdf-portal/internal/observability"
	"github.com/zamcdf/cdf-portal/internal/platform/cache"
	"github.com/zamcdf/cdf-portal/internal/platform/db"
	"github.com/zamcdf/cdf-portal/internal/projects"
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

	if err := cfg.ValidateIdentity(); err != nil {
		logger.Error("config", slog.Any("error", err))
		os.Exit(1)
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

	// Reference data. An inconsistent hierarchy aborts startup: the service
	// must not run against a broken tree.
	var nodes []geo.Node
	switch cfg.GeographySource {
	case "postgres":
		nodes, err = geo.LoadPostgres(ctx, dbpool)
	default:
		nodes, err = geo.LoadFile(cfg.GeographyPath)
	}
	if err != nil {
		logger.Error("load geography", slog.Any("error", err))
		os.Exit(1)
	}
	index, err := geo.NewIndex(nodes)
	if err != nil {
		logger.Error("build geography index", slog.Any("error", err))
		os.Exit(1)
	}

	hierarchy := authz.DefaultHierarchy()
	if cfg.RolesPath != "" {
		hierarchy, err = authz.LoadHierarchy(cfg.RolesPath)
		if err != nil {
			logger.Error("load role hierarchy", slog.Any("error", err))
			os.Exit(1)
		}
	}
	roleResolver, err := authz.NewRoleResolver(hierarchy)
	if err != nil {
		logger.Error("build role resolver", slog.Any("error", err))
		os.Exit(1)
	}
	routeTable, err := authz.NewRouteTable(roleResolver, projects.Routes())
	if err != nil {
		logger.Error("build route table", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	recorder := audit.NewRecorder(asynqClient, logger, metrics)

	engine := authz.NewEngine(
		authz.NewSnapshot(index, roleResolver, routeTable, logger),
		logger,
		authz.WithAuditSink(recorder),
		authz.WithObserver(metrics),
	)

	var verifier identity.Verifier
	if cfg.StaticAccountsPath != "" {
		accounts, err := identity.LoadStaticAccounts(cfg.StaticAccountsPath)
		if err != nil {
			logger.Error("load static accounts", slog.Any("error", err))
			os.Exit(1)
		}
		verifier = identity.NewStaticVerifier(accounts)
		logger.Warn("using static account verifier", slog.Int("accounts", len(accounts)))
	} else {
		verifier = identity.NewHTTPVerifier(cfg.IdentityProviderURL, cfg.IdentityTimeout, logger)
	}
	verifier = identity.NewCachingVerifier(verifier, redisClient, cfg.IdentityCacheTTL, logger)

	projectRepo := projects.NewRepository(dbpool)
	projectService := projects.NewService(projectRepo, engine)
	projectHandler := projects.NewHandler(logger, projectService)

	router := app.NewRouter(app.MiddlewareConfig{
		Logger:   logger,
		Config:   cfg,
		Verifier: verifier,
		Engine:   engine,
		Metrics:  metrics,
	}, projectHandler)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("portal listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}

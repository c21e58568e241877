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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/migrations/products"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/app"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/cache"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/config"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/database"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/httpx"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/migrator"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/rpc"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/telemetry"
	productApi "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/application/api"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry: OTel tracing + metrics
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	// Crash reporting is optional; log and continue on failure.
	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	a := &app.Application{Config: cfg, Logger: log}
	checks := httpx.HealthChecks{}

	if cfg.Store == config.DriverPostgres {
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1) //nolint:gocritic // intentional: startup failure, deferred flushes are best-effort
		}
		defer pool.Close()
		a.Db = pool
		checks.Database = pool
		log.Info("database pool connected")

		total, current, err := migrator.Status(cfg.DatabaseURL, products.FS)
		switch {
		case err != nil:
			log.Warn("could not read migration status", "error", err)
		case current < int64(total):
			log.Warn("database schema is behind, run cmd/migrate", "applied", current, "available", total)
		}
	} else {
		log.Warn("using in-memory product store, data is lost on restart")
	}

	if cfg.Broker == config.DriverMemory {
		a.EventBus = events.NewInMemoryEventBus(log)
		log.Warn("using in-memory broker, requests from other processes are not received")
	} else {
		if cfg.EventForwarder {
			a.EventBus, err = events.NewEventBusWithForwarder(cfg, log)
		} else {
			a.EventBus, err = events.NewEventBus(cfg, log)
		}
		if err != nil {
			log.Error("failed to setup event bus", "error", err)
			os.Exit(1) //nolint:gocritic
		}
		if cfg.EventForwarder {
			if err := a.EventBus.StartForwarder(ctx); err != nil {
				log.Error("failed to start event forwarder", "error", err)
				os.Exit(1) //nolint:gocritic
			}
		}
	}
	defer a.EventBus.Close() //nolint:errcheck
	log.Info("event bus ready", "broker", cfg.Broker, "transactional", a.EventBus.Transactional())
	checks.EventBus = a.EventBus

	opts := []rpc.Option{rpc.WithErrorReporter(telemetry.CaptureError)}
	if cfg.ReplyCacheEnabled {
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1) //nolint:gocritic // intentional: startup failure
		}
		defer redisClient.Close() //nolint:errcheck
		a.Redis = redisClient
		checks.Redis = redisClient
		opts = append(opts, rpc.WithReplyCache(cache.NewReplyCache(redisClient, cfg.ServiceName, cfg.ReplyCacheTTL)))
		log.Info("redis connected", "reply_cache_ttl", cfg.ReplyCacheTTL)
	}

	srv, err := rpc.NewServer(a.EventBus, log, opts...)
	if err != nil {
		log.Error("failed to create rpc server", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	registerRoutes(srv, a)
	if err := srv.Start(ctx); err != nil {
		log.Error("failed to start rpc server", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:   cfg.ServiceName,
			IsDevelopment: cfg.Environment == config.EnvDevelopment,
		},
		logger.Middleware(log),
		logger.Recovery(log),
		telemetry.SentryMiddleware(),
		otelhttp.NewMiddleware(cfg.ServiceName),
	)
	httpx.OpsRoutes(r, checks, metricsHandler)

	ops := httpx.NewServer(cfg.OpsAddr, r)
	go func() {
		log.Info("ops server listening", "addr", ops.Addr, "env", cfg.Environment)
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server error", "error", err)
			stop()
		}
	}()

	log.Info("products service started", "store", cfg.Store, "broker", cfg.Broker)
	<-ctx.Done()

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
	// EventBus.Close() (via defer) waits for in-flight handlers.
	log.Info("products service stopped")
}

// registerRoutes registers every service's message patterns.
func registerRoutes(srv *rpc.Server, a *app.Application) {
	productApi.ProductRoutes(srv, a)
}

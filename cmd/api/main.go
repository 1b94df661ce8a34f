package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skaleclub_backend/internal/email"
	"skaleclub_backend/internal/events"
	apphttp "skaleclub_backend/internal/http"
	"skaleclub_backend/internal/http/router"
	"skaleclub_backend/internal/leadform"
	"skaleclub_backend/internal/leadform/archive"
	"skaleclub_backend/internal/leadform/cache"
	"skaleclub_backend/internal/notification"
	"skaleclub_backend/internal/scheduler"
	"skaleclub_backend/platform/config"
	"skaleclub_backend/platform/db"
	"skaleclub_backend/platform/logger"
	"skaleclub_backend/platform/redisclient"
	"skaleclub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadFormModule := leadform.NewModule(pool, eventBus, val, cfg, log)
	leadFormModule.RegisterHandlers(eventBus)

	if cfg.IsRedisEnabled() {
		redisClient, err := redisclient.New(ctx, cfg)
		if err != nil {
			log.Warn("redis unavailable; form config cache disabled", "error", err)
		} else {
			defer func() { _ = redisClient.Close() }()
			leadFormModule.SetCache(cache.New(redisClient, cfg.GetLeadFormCacheTTL()))
			log.Info("form config cache enabled", "ttl", cfg.GetLeadFormCacheTTL())
		}
	}

	if cfg.IsMinIOEnabled() {
		archiver, err := archive.NewMinIOArchiver(cfg)
		if err != nil {
			log.Error("failed to initialize form config archive", "error", err)
			panic("failed to initialize form config archive: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure form archive bucket", 5, 2*time.Second, func() error {
			return archiver.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketFormArchive())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		leadFormModule.SetArchiver(archiver)
		log.Info("form config archive enabled", "bucket", cfg.GetMinioBucketFormArchive())
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.SetConfigProvider(leadFormModule.ConfigService())
	notificationModule.SetClaimReleaser(leadFormModule.LeadService())
	notificationModule.RegisterHandlers(eventBus)

	hotLeadScheduler, closeScheduler := initHotLeadScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
		notificationModule.SetScheduler(hotLeadScheduler)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadFormModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		panic(err.Error())
	}
	log.Info("server stopped")
}

func initHotLeadScheduler(cfg *config.Config, log *logger.Logger) (scheduler.HotLeadScheduler, func()) {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; HOT lead alerts are sent inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize hot lead scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

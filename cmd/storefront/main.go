package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/timberline-supply/storefront/internal/api"
	"github.com/timberline-supply/storefront/internal/cache"
	"github.com/timberline-supply/storefront/internal/gateway"
	"github.com/timberline-supply/storefront/internal/idempotency"
	"github.com/timberline-supply/storefront/internal/notify"
	"github.com/timberline-supply/storefront/internal/quote"
	"github.com/timberline-supply/storefront/internal/rate"
	"github.com/timberline-supply/storefront/internal/store"
	"github.com/timberline-supply/storefront/internal/webhook"
	"github.com/timberline-supply/storefront/pkg/config"
	"github.com/timberline-supply/storefront/pkg/logger"
	"github.com/timberline-supply/storefront/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [storefront-api]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	if cfg.WooBaseURL == "" || cfg.WooConsumerKey == "" || cfg.WooConsumerSecret == "" {
		logg.Fatal("WOO_BASE_URL / WOO_CONSUMER_KEY / WOO_CONSUMER_SECRET must be configured")
	}
	if cfg.WebhookSecret == "" {
		logg.Warn("WEBHOOK_SECRET not configured; all webhook deliveries will be rejected")
	}

	// --- Postgres store ---
	st, err := store.New(ctx, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logger.L())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}
	defer st.Close()

	// --- Redis submission guard (advisory; the service runs without it) ---
	var guard quote.SubmissionGuard
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPass,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logg.Warnw("redis unreachable; submission idempotency guard disabled", "error", err)
		guard = idempotency.New(nil, cfg.IdempotencyWindow, logger.L())
	} else {
		guard = idempotency.New(rdb, cfg.IdempotencyWindow, logger.L())
	}
	cancel()

	// --- Rate limiter in front of WooCommerce ---
	limiter := rate.New(rate.Config{RequestsPerSecond: 10, Burst: 20})

	// --- Monitored gateway client ---
	tracker := gateway.NewHealthTracker()
	gw := gateway.NewClient(logger.L(), gateway.Config{
		BaseURL:        cfg.WooBaseURL,
		ConsumerKey:    cfg.WooConsumerKey,
		ConsumerSecret: cfg.WooConsumerSecret,
		OrderTimeout:   cfg.WooOrderTimeout,
		ProbeTimeout:   cfg.WooProbeTimeout,
	}, limiter, gateway.DefaultPolicy(), tracker)

	// --- Email dispatcher ---
	dispatcher := notify.NewDispatcher(logger.L(), notify.Config{
		BaseURL:          cfg.EmailAPIURL,
		Token:            cfg.EmailAPIToken,
		SalesEmail:       cfg.SalesEmail,
		CustomerTemplate: cfg.CustomerTemplate,
		SalesTemplate:    cfg.SalesTemplate,
	})

	// --- Submission orchestrator ---
	quoteSvc := quote.NewService(logger.L(), gw, st, dispatcher, guard)

	// --- Catalog caches ---
	listCache := cache.New[json.RawMessage](cfg.ListCacheTTL, cfg.CacheMaxEntries)
	detailCache := cache.New[json.RawMessage](cfg.DetailCacheTTL, cfg.CacheMaxEntries)

	// --- Webhook handler ---
	webhookHandler := webhook.NewHandler(
		logger.L(),
		webhook.NewVerifier(cfg.WebhookSecret),
		listCache,
		detailCache,
		st,
		cfg.WebhookTopicHeader,
		cfg.WebhookSignatureHeader,
	)

	// --- Fiber HTTP server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	quoteHandler := api.NewQuoteHandler(logger.L(), quoteSvc)
	catalogHandler := api.NewCatalogHandler(logger.L(), gw, listCache, detailCache)
	healthHandler := api.NewHealthHandler(gw, st, tracker)

	api.RegisterRoutes(app, quoteHandler, catalogHandler, healthHandler, webhookHandler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[storefront-api] running",
		"env", cfg.Env,
		"woo", cfg.WooBaseURL,
		"port", cfg.Port)

	<-ctx.Done()
	logg.Info("shutting down [storefront-api]...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := rdb.Close(); err != nil {
		logg.Warnw("redis.close_failed", "error", err)
	}
}

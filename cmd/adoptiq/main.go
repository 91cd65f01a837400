package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/adoptiq/internal/adapter/auth"
	"github.com/neomorfeo/adoptiq/internal/adapter/fsm"
	"github.com/neomorfeo/adoptiq/internal/adapter/memory"
	"github.com/neomorfeo/adoptiq/internal/adapter/otel"
	"github.com/neomorfeo/adoptiq/internal/adapter/redis"
	"github.com/neomorfeo/adoptiq/internal/adapter/river"
	"github.com/neomorfeo/adoptiq/internal/adapter/sqlite"
	"github.com/neomorfeo/adoptiq/internal/adapter/stripe"
	"github.com/neomorfeo/adoptiq/internal/app"
	"github.com/neomorfeo/adoptiq/internal/config"
	"github.com/neomorfeo/adoptiq/internal/domain"

	handler "github.com/neomorfeo/adoptiq/internal/adapter/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("adoptiq exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Observability ---
	otelCfg, err := otel.ConfigFromEnv()
	if err != nil {
		return err
	}
	providers, err := otel.Setup(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	store, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	counters, closeCounters, err := newCounterStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCounters()

	// The sweep worker calls back into the campaign service, which itself
	// publishes through the River client, so the service is bound late.
	var campaigns *app.CampaignService
	jobs, err := river.Setup(ctx, db, river.Options{
		Sweep: func(ctx context.Context) ([]domain.SweepOutcome, error) {
			return campaigns.ExpireDueAdoptions(ctx)
		},
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	publisher := otel.NewTracingPublisher(river.NewPublisher(jobs))
	processor := otel.NewTracingProcessor(
		stripe.New(cfg.ProcessorBaseURL, cfg.ProcessorAPIKey, stripe.WithLogger(logger)),
	)
	campaignRepo := otel.NewTracingCampaigns(store.Campaigns())
	registry := otel.NewTracingRegistry(store.Registry())
	validator := fsm.New()

	// --- Application ---
	campaigns = app.NewCampaignService(app.CampaignDeps{
		Languages:        store.Languages(),
		Campaigns:        campaignRepo,
		Partners:         store.Partners(),
		Payments:         store.Payments(),
		Registry:         registry,
		Processor:        processor,
		Publisher:        publisher,
		Validator:        validator,
		Logger:           logger,
		AdoptionValidity: cfg.AdoptionValidity,
	})
	payments := app.NewPaymentService(app.PaymentDeps{
		Payments:         store.Payments(),
		Campaigns:        campaignRepo,
		Partners:         store.Partners(),
		Registry:         registry,
		Publisher:        publisher,
		Validator:        validator,
		PaymentValidator: validator,
		Logger:           logger,
	})
	limiter := app.NewRateLimiter(counters)

	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := jobs.Stop(stopCtx); err != nil {
			logger.Error("river shutdown", "error", err)
		}
	}()

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(otelCfg.ServiceName, otelchi.WithChiRoutes(router)))
	if cfg.GlobalRPS > 0 {
		router.Use(handler.FloodGuard(cfg.GlobalRPS))
	}

	api := humachi.New(router, huma.DefaultConfig("adoptiq", otelCfg.ServiceVersion))

	deps := handler.Deps{
		Campaigns:       campaigns,
		Payments:        payments,
		Testimonies:     app.NewTestimonyService(store.Testimonies(), store.Languages()),
		Gate:            app.NewGate(app.NewAntiBot([]byte(cfg.AntiBotSecret)), limiter, logger),
		Limiter:         limiter,
		Auth:            auth.NewJWT([]byte(cfg.JWTSecret)),
		PaymentPolicy:   cfg.PaymentPolicy(),
		TestimonyPolicy: cfg.TestimonyPolicy(),
		Logger:          logger,
	}
	if cfg.ProcessorWebhookSecret != "" {
		deps.Webhooks = stripe.NewWebhooks(cfg.ProcessorWebhookSecret)
	} else {
		logger.Warn("processor webhook secret not set, webhook route disabled")
	}
	handler.Register(api, deps)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("adoptiq listening", "port", cfg.Port, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("stopped")
	return nil
}

// newCounterStore picks Redis when configured, otherwise an in-process map.
func newCounterStore(ctx context.Context, cfg config.Config) (domain.CounterStore, func(), error) {
	if cfg.RedisURL == "" {
		return memory.NewCounterStore(memory.DefaultSweepInterval), func() {}, nil
	}

	client, err := redis.Open(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return redis.NewCounterStore(client), func() { closeQuietly(client) }, nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("close failed", "error", err)
	}
}

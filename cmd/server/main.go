package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/boutique/internal"
	"github.com/dukerupert/boutique/internal/billing"
	"github.com/dukerupert/boutique/internal/cookie"
	"github.com/dukerupert/boutique/internal/handler/storefront"
	"github.com/dukerupert/boutique/internal/middleware"
	"github.com/dukerupert/boutique/internal/postgres"
	"github.com/dukerupert/boutique/internal/router"
	"github.com/dukerupert/boutique/internal/routes"
	"github.com/dukerupert/boutique/internal/service"
	"github.com/dukerupert/boutique/internal/telemetry"
	"github.com/dukerupert/boutique/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize stores
	cartStore := postgres.NewCartStore(pool)
	catalog := postgres.NewCatalog(pool)
	sessions := postgres.NewSessionStore(pool)
	organizations := postgres.NewOrganizationDirectory(pool)

	// Initialize Prometheus registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics("boutique", registry)
	checkoutMetrics := telemetry.NewCheckoutMetrics("boutique", registry)

	// Initialize billing provider
	var billingProvider billing.Provider
	switch cfg.Billing.Provider {
	case "mock":
		logger.Warn("Using mock billing provider, no payments will be taken")
		billingProvider = billing.NewMockProvider()
	default:
		logger.Info("Initializing Stripe billing provider...")
		stripeConfig := billing.StripeConfig{
			APIKey:   cfg.Billing.SecretKey,
			Currency: cfg.Currency,
		}
		stripeProvider, err := billing.NewStripeProvider(stripeConfig, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		logger.Info("Stripe billing provider initialized", "test_mode", stripeConfig.IsTestMode())
		billingProvider = stripeProvider
	}

	// Initialize services
	aggregator := service.NewAggregator(catalog, cfg.Checkout.CatalogTimeout, checkoutMetrics, logger)
	initiator := service.NewInitiator(billingProvider, organizations, cfg.Currency, cfg.Checkout.PaymentTimeout, checkoutMetrics, logger)
	checkoutService := service.NewCheckoutService(cartStore, aggregator, initiator, checkoutMetrics, logger)
	cartService := service.NewCartService(cartStore, catalog, aggregator, cfg.Checkout.CatalogTimeout, checkoutMetrics, logger)

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	storefrontDeps := routes.StorefrontDeps{
		CartHandler:     storefront.NewCartHandler(cartService),
		CheckoutHandler: storefront.NewCheckoutHandler(checkoutService, cfg.CheckoutSuccessURL(), cfg.CheckoutCancelURL()),
		CheckoutLimiter: middleware.NewRateLimiter(middleware.CheckoutRateLimiterConfig()),
	}

	opsDeps := routes.OpsDeps{
		Health: func(w http.ResponseWriter, req *http.Request) {
			if err := pool.Ping(req.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		},
		Metrics: metrics.Handler(),
	}

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	// Configure security headers
	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		// Relax CSP in development for easier debugging
		securityConfig.ContentSecurityPolicy = ""
		securityConfig.HSTSMaxAge = 0 // Disable HSTS in development
	}

	cookies := cookie.NewConfig("", cfg.Env == "prod")
	defaultRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		telemetry.SentryMiddleware(),
	)
	routes.RegisterOpsRoutes(r, opsDeps)

	shop := r.Group(
		middleware.WithPrincipal(sessions, cookies),
		telemetry.SentryContextMiddleware(middleware.SentryUser),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
		defaultRateLimiter.Middleware,
	)
	routes.RegisterStorefrontRoutes(shop, storefrontDeps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Sweep abandoned guest carts in the background
	sweeper := worker.NewWorker(cartStore, worker.Config{}, logger)
	go func() {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nattapol/talad/internal"
	"github.com/nattapol/talad/internal/billing"
	"github.com/nattapol/talad/internal/cookie"
	"github.com/nattapol/talad/internal/handler/storefront"
	"github.com/nattapol/talad/internal/middleware"
	"github.com/nattapol/talad/internal/postgres"
	"github.com/nattapol/talad/internal/router"
	"github.com/nattapol/talad/internal/routes"
	"github.com/nattapol/talad/internal/service"
	"github.com/nattapol/talad/internal/upstream"
	"github.com/redis/go-redis/v9"
)

// sessionPurgeInterval is how often expired sessions are swept from storage.
const sessionPurgeInterval = time.Hour

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
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

	// Optional product cache
	var cache *redis.Client
	if cfg.RedisUrl != "" {
		opts, err := redis.ParseURL(cfg.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		cache = redis.NewClient(opts)
		defer cache.Close()
		if err := cache.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("Product cache enabled")
	} else {
		logger.Info("REDIS_URL not set, product cache disabled")
	}

	// Upstream commerce API client
	logger.Info("Connecting to commerce API", "base_url", cfg.Upstream.BaseURL)
	api := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)

	// Optional Stripe billing for card payments
	var billingProvider billing.Provider
	if cfg.Stripe.SecretKey != "" {
		stripeProvider, err := billing.NewStripeProvider(cfg.Stripe.SecretKey)
		if err != nil {
			return fmt.Errorf("failed to initialize Stripe provider: %w", err)
		}
		billingProvider = stripeProvider
		logger.Info("Stripe billing initialized", "test_mode", stripeProvider.IsTestMode())
	} else {
		logger.Info("STRIPE_SECRET_KEY not set, card orders submit without a payment intent")
	}

	// Initialize services
	sessionStore := postgres.NewSessionStore(pool)
	sessionService := service.NewSessionService(api, sessionStore, cfg.Session.TTL, cfg.Session.RememberTTL, logger)
	catalogService := service.NewCatalogService(api, cache, logger)
	checkoutService := service.NewCheckoutService(api, catalogService, billingProvider, logger)

	// Session cookie manager
	cookies := cookie.NewManager(cfg.Session.CookieName, cfg.Session.CookieSecure)

	// Background sweep of expired sessions. Evicting their checkout state
	// keeps the in-memory session map bounded; stops when ctx is cancelled
	// at shutdown.
	go func() {
		ticker := time.NewTicker(sessionPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ids, err := sessionService.PurgeExpired(ctx)
				if err != nil {
					logger.Warn("session purge failed", "error", err)
					continue
				}
				for _, id := range ids {
					checkoutService.Reset(id)
				}
				if len(ids) > 0 {
					logger.Info("purged expired sessions", "count", len(ids))
				}
			}
		}
	}()

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	storefrontDeps := routes.StorefrontDeps{
		Auth:     storefront.NewAuthHandler(sessionService, checkoutService, cookies),
		Products: storefront.NewProductHandler(catalogService),
		Cart:     storefront.NewCartHandler(checkoutService),
		Checkout: storefront.NewCheckoutHandler(checkoutService),
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	metrics := middleware.NewMetrics("talad")

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.AccessLog(logger),
		middleware.WithRequestLogger(logger),
		middleware.WithSession(sessionService, cookies),
	)

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterStorefrontRoutes(r, storefrontDeps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting storefront gateway", "address", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	// Stop background work before draining connections.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/liqpass/liqpass-backend/internal/chain"
	"github.com/liqpass/liqpass-backend/internal/config"
	"github.com/liqpass/liqpass-backend/internal/events"
	"github.com/liqpass/liqpass-backend/internal/exchange"
	"github.com/liqpass/liqpass-backend/internal/handlers"
	"github.com/liqpass/liqpass-backend/internal/quote"
	"github.com/liqpass/liqpass-backend/internal/service"
	"github.com/liqpass/liqpass-backend/internal/store"
)

// expirySweepInterval is how often pending orders are checked for lapsed quotes.
const expirySweepInterval = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := loadConfig(configPath())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logger
	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("LiqPass backend starting up...")

	// Setup database connection
	dbPool, err := setupDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	// Initialize database schema and seed the SKU catalog
	pgStore := store.NewPostgresStore(dbPool, logger)
	if err := pgStore.Initialize(context.Background()); err != nil {
		logger.Fatal("Failed to initialize database schema", zap.Error(err))
	}
	if err := seedCatalog(pgStore, cfg, logger); err != nil {
		logger.Fatal("Failed to seed SKU catalog", zap.Error(err))
	}

	// Setup chain client
	chainClient, err := chain.NewClient(context.Background(), cfg.Chain, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chain client", zap.Error(err))
	}
	defer chainClient.Close()

	// Setup event publisher (nil when NATS is disabled; safe to call)
	publisher, err := events.NewPublisher(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer publisher.Close()

	// Setup quote engine and voucher signer
	catalog := quote.NewStaticCatalog(cfg.Catalog)
	engine := quote.NewEngine(catalog, logger)
	signer := quote.NewSigner(cfg.Quotes.SigningSecret, cfg.Quotes.Issuer)

	// Setup services
	orderService := service.NewOrderService(pgStore, engine, signer, publisher, logger)
	paymentService := service.NewPaymentService(pgStore, cfg.Chain, cfg.Payments, publisher, logger)
	claimService := service.NewClaimService(pgStore, publisher, logger)

	// Setup exchange adapter registry
	registry := exchange.NewRegistry(cfg.Exchanges.Timeout, enabledExchanges(cfg), logger)
	logger.Info("Exchange adapters registered", zap.Strings("exchanges", registry.Names()))

	// Background loops: order expiry sweeper and payment proof watcher
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go orderService.RunExpirySweeper(bgCtx, expirySweepInterval)

	watcher := chain.NewWatcher(chainClient, pgStore, paymentService,
		cfg.Chain.PollInterval, cfg.Chain.RequestTimeout, logger)
	go watcher.Run(bgCtx)

	// Setup HTTP server
	server := setupHTTPServer(cfg, orderService, paymentService, claimService, registry, dbPool, logger)

	// Setup graceful shutdown
	setupGracefulShutdown(server, bgCancel, cfg.Server.ShutdownTimeout, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("address", fmt.Sprintf(":%d", cfg.Server.Port)))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}

func configPath() string {
	if path := os.Getenv("LIQPASS_CONFIG"); path != "" {
		return path
	}
	return "configs/config.yaml"
}

// loadConfig loads and validates configuration from file
func loadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setupLogger initializes the logger
func setupLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config := zap.NewProductionConfig()
	config.Level = zapLevel
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// setupDatabase initializes the database connection pool
func setupDatabase(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	poolCfg, err := cfg.GetDatabaseConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully")
	return pool, nil
}

// seedCatalog mirrors the configured SKUs into the database so order rows
// always have a referent.
func seedCatalog(pgStore *store.PostgresStore, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := range cfg.Catalog {
		if err := pgStore.UpsertSKU(ctx, &cfg.Catalog[i]); err != nil {
			return err
		}
	}
	logger.Info("SKU catalog seeded", zap.Int("skus", len(cfg.Catalog)))
	return nil
}

// enabledExchanges maps the enabled exchange endpoints to their base URLs.
func enabledExchanges(cfg *config.Config) map[string]string {
	endpoints := make(map[string]string)
	if cfg.Exchanges.OKX.Enabled {
		endpoints["okx"] = cfg.Exchanges.OKX.BaseURL
	}
	if cfg.Exchanges.Binance.Enabled {
		endpoints["binance"] = cfg.Exchanges.Binance.BaseURL
	}
	if cfg.Exchanges.Hyperliquid.Enabled {
		endpoints["hyperliquid"] = cfg.Exchanges.Hyperliquid.BaseURL
	}
	return endpoints
}

// setupHTTPServer configures and returns the HTTP server
func setupHTTPServer(
	cfg *config.Config,
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	claimService *service.ClaimService,
	registry *exchange.Registry,
	dbPool *pgxpool.Pool,
	logger *zap.Logger,
) *http.Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","service":"liqpass-backend"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"liqpass-backend"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/preview", handlers.PreviewOrder(orderService, logger))
			r.Post("/", handlers.CreateOrder(orderService, logger))
			r.Get("/{id}", handlers.GetOrder(orderService, logger))
			r.Post("/{id}/cancel", handlers.CancelOrder(orderService, logger))
		})

		r.Route("/payment-proofs", func(r chi.Router) {
			r.Post("/", handlers.SubmitPaymentProof(paymentService, logger))
			r.Get("/{id}", handlers.GetPaymentProof(paymentService, logger))
		})

		r.Route("/claims", func(r chi.Router) {
			r.Post("/", handlers.CreateClaim(claimService, logger))
			r.Get("/", handlers.ListClaims(claimService, logger))
			r.Get("/{id}", handlers.GetClaim(claimService, logger))
			r.Patch("/{id}", handlers.UpdateClaim(claimService, logger))
		})

		r.Post("/exchange/verify", handlers.VerifyExchangeAccount(registry, logger))
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

// setupGracefulShutdown configures graceful shutdown handling
func setupGracefulShutdown(server *http.Server, stopBackground context.CancelFunc, timeout time.Duration, logger *zap.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	go func() {
		<-c
		logger.Info("Received shutdown signal, shutting down gracefully...")

		stopBackground()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown server gracefully", zap.Error(err))
		} else {
			logger.Info("Server shutdown completed")
		}
	}()
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/adapter"
	"github.com/escolahub/payments-gateway-go/internal/config"
	"github.com/escolahub/payments-gateway-go/internal/handler"
	"github.com/escolahub/payments-gateway-go/internal/infra/cache"
	"github.com/escolahub/payments-gateway-go/internal/infra/crypto"
	"github.com/escolahub/payments-gateway-go/internal/infra/observability"
	"github.com/escolahub/payments-gateway-go/internal/infra/resilience"
	"github.com/escolahub/payments-gateway-go/internal/infra/supabase"
	"github.com/escolahub/payments-gateway-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("adapter_cache_ttl", cfg.AdapterCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}
	if cfg.CredentialsKey == "" {
		logger.Fatal("CREDENTIALS_KEY is required")
	}

	// --- Tracing ---
	shutdown := observability.InitTracer("payments-gateway", cfg.OTLPEndpoint, logger)
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()
	adapter.SetTokenRefreshObserver(metrics.IncrTokenRefresh)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)

	sealer, err := crypto.NewSealer(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("credential sealer init failed", zap.Error(err))
	}

	// --- Services ---
	adapterCache := cache.New[adapter.Adapter](cfg.AdapterCacheTTL)
	factory := service.NewGatewayFactory(supabaseClient, sealer, httpClient, adapterCache, metrics, logger)
	paymentSvc := service.NewPaymentService(factory, supabaseClient, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(paymentSvc, supabaseClient, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/factoring-settlement-go/internal/config"
	"github.com/boddenberg/factoring-settlement-go/internal/domain"
	"github.com/boddenberg/factoring-settlement-go/internal/handler"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/cache"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/client"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/observability"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/resilience"
	"github.com/boddenberg/factoring-settlement-go/internal/infra/sequence"
	"github.com/boddenberg/factoring-settlement-go/internal/port"
	"github.com/boddenberg/factoring-settlement-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("sequence_api", cfg.SequenceAPIURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
		zap.Bool("auth_enabled", cfg.JWTSecret != ""),
		zap.Int("rate_limit_rps", cfg.RateLimitRPS),
	)

	// --- Tracing ---
	endpoint := ""
	if cfg.TracingEnabled {
		endpoint = cfg.OTLPEndpoint
	}
	shutdown, err := observability.InitTracer(context.Background(), endpoint, observability.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	instrumentCache := cache.New[*domain.SettlementInstrument](cfg.CacheTTL)
	defer instrumentCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Sequence allocator ---
	var allocator port.NossoNumeroAllocator
	if cfg.SequenceAPIURL != "" {
		logger.Info("using operation management API for nosso número", zap.String("url", cfg.SequenceAPIURL))
		allocator = client.NewSequenceClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SequenceAPIURL,
			resilience.NewCircuitBreaker("sequence-api"),
			resilienceCfg,
		)
	} else {
		logger.Warn("SEQUENCE_API_URL not set, nosso número allocated in memory",
			zap.Int64("start", cfg.SequenceStart),
		)
		allocator = sequence.NewMemory(cfg.SequenceStart)
	}

	// --- Services ---
	settlementSvc := service.NewSettlementService(
		allocator,
		instrumentCache,
		resilience.NewBulkhead(resilienceCfg.MaxConcurrency),
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(settlementSvc, metrics, logger, cfg.JWTSecret,
		handler.WithRateLimit(float64(cfg.RateLimitRPS), cfg.RateLimitBurst),
	)

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

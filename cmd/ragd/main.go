package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/osamaatef1/rag-service/internal/cache"
	"github.com/osamaatef1/rag-service/internal/chunker"
	"github.com/osamaatef1/rag-service/internal/config"
	"github.com/osamaatef1/rag-service/internal/db"
	dbFile "github.com/osamaatef1/rag-service/internal/db/file"
	dbRedis "github.com/osamaatef1/rag-service/internal/db/redis"
	"github.com/osamaatef1/rag-service/internal/domain"
	"github.com/osamaatef1/rag-service/internal/extract"
	logpkg "github.com/osamaatef1/rag-service/internal/logger"
	"github.com/osamaatef1/rag-service/internal/metrics"
	"github.com/osamaatef1/rag-service/internal/repository/embcache"
	registryrepo "github.com/osamaatef1/rag-service/internal/repository/registry"
	vectorrepo "github.com/osamaatef1/rag-service/internal/repository/vector"
	chiTransport "github.com/osamaatef1/rag-service/internal/transport/chi"
	openaiTransport "github.com/osamaatef1/rag-service/internal/transport/openai"
	embeddinguc "github.com/osamaatef1/rag-service/internal/usecase/embedding"
	healthuc "github.com/osamaatef1/rag-service/internal/usecase/health"
	ingestuc "github.com/osamaatef1/rag-service/internal/usecase/ingest"
	queryuc "github.com/osamaatef1/rag-service/internal/usecase/query"
	"github.com/osamaatef1/rag-service/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting rag-service API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	// Create the storage backend based on driver
	var store db.Store
	switch cfg.Storage.Driver {
	case "file":
		store, err = dbFile.NewStore(dbFile.Config{
			Path: cfg.Storage.Path,
		})
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Storage.Addrs,
			Password:  cfg.Storage.Password,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
	default:
		logger.Fatal("Unknown storage driver", zap.String("driver", cfg.Storage.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create storage", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Storage not ready", zap.Error(err))
	}
	logger.Info("Connected to storage")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Build embedder chain — composition root
	embedder := buildEmbedder(ctx, cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Provider:    cfg.LLM.Provider,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Logger:      logger,
	})

	// Repositories
	vectors := vectorrepo.New(store, cfg.Embedding.Dimensions)
	if err := vectors.EnsureDimension(ctx); err != nil {
		logger.Fatal("Embedding dimension check failed", zap.Error(err))
	}
	registry := registryrepo.New(store)

	// Chunking and extraction
	chunks, err := chunker.New(cfg.Chunking.Size, *cfg.Chunking.Overlap)
	if err != nil {
		logger.Fatal("Invalid chunking config", zap.Error(err))
	}
	extractors := extract.NewRegistry()
	fetcher := extract.NewFetcher(nil)

	// Query result cache
	queryCache, err := cache.New(cfg.QueryCache.MaxEntries, time.Duration(cfg.QueryCache.TTLSec)*time.Second)
	if err != nil {
		logger.Fatal("Invalid query cache config", zap.Error(err))
	}

	// Use case services
	ingestSvc := ingestuc.New(vectors, registry, chunks, embedder, extractors, fetcher).
		WithConcurrency(cfg.Ingest.Workers, cfg.Ingest.BatchSize)
	querySvc := queryuc.New(vectors, embedder, generator, queryCache).
		WithRetrieval(
			cfg.Retrieval.TopK,
			cfg.Retrieval.SimilarityThreshold,
			time.Duration(cfg.Retrieval.QueryTimeoutSec)*time.Second,
		)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder))

	// Chi server
	server := chiTransport.NewServer(ingestSvc, querySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI-compatible base -> Budget -> Cached.
// The cache sits outermost so cache hits never count against the token budget.
func buildEmbedder(ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	if cfg.Embedding.DailyTokenBudget > 0 || cfg.Embedding.MonthlyTokenBudget > 0 {
		tracker := embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider,
			cfg.Embedding.DailyTokenBudget,
			cfg.Embedding.MonthlyTokenBudget,
			embeddinguc.BudgetAction(cfg.Embedding.BudgetAction),
			logger,
		)
		if store != nil {
			tracker = tracker.WithStore(ctx, store)
		}
		embedder = embeddinguc.NewInstrumentedEmbedder(
			embedder, cfg.Embedding.Provider, cfg.Embedding.Model, tracker, logger)
		logger.Info("Embedding token budget enabled",
			zap.Int64("daily", cfg.Embedding.DailyTokenBudget),
			zap.Int64("monthly", cfg.Embedding.MonthlyTokenBudget),
			zap.String("action", cfg.Embedding.BudgetAction),
		)
	}

	if cfg.Embedding.CacheSize == 0 || store == nil {
		return embedder
	}
	return embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

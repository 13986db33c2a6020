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
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matchdex/matchdex/internal/config"
	"github.com/matchdex/matchdex/internal/db"
	dbRedis "github.com/matchdex/matchdex/internal/db/redis"
	"github.com/matchdex/matchdex/internal/domain"
	logpkg "github.com/matchdex/matchdex/internal/logger"
	"github.com/matchdex/matchdex/internal/metrics"
	budgetrepo "github.com/matchdex/matchdex/internal/repository/budget"
	"github.com/matchdex/matchdex/internal/repository/embcache"
	"github.com/matchdex/matchdex/internal/repository/textindex"
	"github.com/matchdex/matchdex/internal/repository/vecindex"
	chiTransport "github.com/matchdex/matchdex/internal/transport/chi"
	geminiEmb "github.com/matchdex/matchdex/internal/transport/gemini"
	hashembEmb "github.com/matchdex/matchdex/internal/transport/hashemb"
	openaiEmb "github.com/matchdex/matchdex/internal/transport/openai"
	aggregatoruc "github.com/matchdex/matchdex/internal/usecase/aggregator"
	embeddinguc "github.com/matchdex/matchdex/internal/usecase/embedding"
	engineuc "github.com/matchdex/matchdex/internal/usecase/engine"
	facadeuc "github.com/matchdex/matchdex/internal/usecase/facade"
	healthuc "github.com/matchdex/matchdex/internal/usecase/health"
	usageuc "github.com/matchdex/matchdex/internal/usecase/usage"
	"github.com/matchdex/matchdex/internal/version"
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

	logger.Info("Starting matchdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Strings("store_addrs", cfg.Store.Addrs),
	)

	ctx := context.Background()

	// Cache store is optional: without it the service runs fully in memory.
	var store db.Store
	if cfg.Store.Enabled() {
		switch cfg.Store.Driver {
		case "valkey", "redis":
			// Valkey speaks the Redis protocol, one driver serves both.
			store, err = dbRedis.NewStore(dbRedis.Config{
				Addrs:    cfg.Store.Addrs,
				Password: cfg.Store.Password,
			})
		default:
			logger.Fatal("Unknown store driver", zap.String("driver", cfg.Store.Driver))
		}
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.String("driver", cfg.Store.Driver))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMatchingMetrics()

	provName := cfg.Embedding.Provider
	provCfg := cfg.Embedding.Providers[provName]

	// Single BudgetTracker shared across both embedder chains and the usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if store != nil {
			// Connect persistence store, loads current counters.
			budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
			budget.WithStore(ctx, budgetStore)
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	docEmbedder, err := buildEmbedder(
		ctx, cfg.Embedding, provCfg, cfg.Embedding.DocumentInstruction,
		store, budgetChecker, logger,
	)
	if err != nil {
		logger.Fatal("Failed to create document embedder", zap.Error(err))
	}
	queryEmbedder, err := buildEmbedder(
		ctx, cfg.Embedding, provCfg, cfg.Embedding.QueryInstruction,
		store, budgetChecker, logger,
	)
	if err != nil {
		logger.Fatal("Failed to create query embedder", zap.Error(err))
	}
	logger.Info("Embedders created",
		zap.String("provider", provName),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	vectorDim := cfg.Embedding.Dimensions
	if vectorDim == 0 {
		vectorDim = domain.DefaultVectorConfig().Dimensions
	}

	// One engine per population, each owning its indexes.
	buildFacade := func(pop domain.Population) (*facadeuc.Service, *textindex.Index) {
		vectors, err := vecindex.New(pop, vectorDim)
		if err != nil {
			logger.Fatal("Failed to create vector index",
				zap.String("population", string(pop)), zap.Error(err))
		}
		texts, err := textindex.New(pop)
		if err != nil {
			logger.Fatal("Failed to create keyword index",
				zap.String("population", string(pop)), zap.Error(err))
		}
		eng, err := engineuc.New(pop, vectors, texts, docEmbedder, queryEmbedder, logger)
		if err != nil {
			logger.Fatal("Failed to create engine",
				zap.String("population", string(pop)), zap.Error(err))
		}
		return facadeuc.New(eng, logger), texts
	}

	resumes, resumesTexts := buildFacade(domain.PopulationResumes)
	defer func() { _ = resumesTexts.Close() }()
	jobs, jobsTexts := buildFacade(domain.PopulationJobs)
	defer func() { _ = jobsTexts.Close() }()

	prometheus.MustRegister(
		metrics.NewIndexSizeGauge(string(domain.PopulationResumes), func() float64 {
			return float64(resumes.Size(context.Background()))
		}),
		metrics.NewIndexSizeGauge(string(domain.PopulationJobs), func() float64 {
			return float64(jobs.Size(context.Background()))
		}),
	)

	// Aggregator over both populations
	sourceTimeout := time.Duration(cfg.Aggregator.SourceTimeoutSec) * time.Second
	aggSvc := aggregatoruc.New(resumes, jobs, sourceTimeout, logger)

	// Usage service reads from the shared BudgetTracker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader, provName)

	// Health service
	var storePinger healthuc.StorePinger
	if store != nil {
		storePinger = store
	}
	healthSvc := healthuc.New(map[string]healthuc.LivenessChecker{
		"resumes": resumes,
		"jobs":    jobs,
	}, newEmbeddingHealthChecker(queryEmbedder), storePinger)

	// Create chi server
	server := chiTransport.NewServer(resumes, jobs, aggSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

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

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	ctx context.Context,
	embCfg config.EmbeddingConfig,
	provCfg config.ProviderConfig,
	instruction string,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) (domain.Embedder, error) {
	var base domain.Embedder
	switch embCfg.Provider {
	case "hashemb":
		he, err := hashembEmb.NewEmbedder(embCfg.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("create hashemb embedder: %w", err)
		}
		base = he
	case "openai":
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      embCfg.Model,
			Dimensions: embCfg.Dimensions,
			Provider:   embCfg.Provider,
			Logger:     logger,
		})
	case "gemini":
		ge, err := geminiEmb.NewEmbedder(ctx, &geminiEmb.Config{
			APIKey:     provCfg.APIKey,
			Model:      embCfg.Model,
			Dimensions: embCfg.Dimensions,
			Provider:   embCfg.Provider,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini embedder: %w", err)
		}
		base = ge
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", embCfg.Provider)
	}

	// Cached. Only remote providers: the local hasher recomputes faster
	// than a cache lookup.
	embedder := base
	if embCfg.Provider != "hashemb" {
		cached, err := embcache.New(embedder, embCfg.CacheSize, store, metrics.EmbeddingCacheTotal, logger)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		embedder = cached
	}

	// Instrumented (budget + metrics)
	model := embCfg.Model
	if model == "" {
		model = base.Version()
	}
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, embCfg.Provider, model, budget, logger)

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), nil
	}

	return embedder, nil
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

			// Canonical log line, one line per request
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

package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/api/handlers"
	mw "github.com/Harshitk-cp/credo/internal/api/middleware"
	"github.com/Harshitk-cp/credo/internal/buildconfig"
	"github.com/Harshitk-cp/credo/internal/config"
	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/embedding"
	"github.com/Harshitk-cp/credo/internal/llm"
	"github.com/Harshitk-cp/credo/internal/service"
	"github.com/Harshitk-cp/credo/internal/similarity"
	"github.com/Harshitk-cp/credo/internal/store"
)

// App holds the router and request counters for lifecycle management.
type App struct {
	Router       *chi.Mux
	Ingestion    *service.IngestionService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	memoryStore := store.NewMemoryStore(db)
	beliefStore := store.NewBeliefStore(db)
	relationshipStore := store.NewRelationshipStore(db)
	conflictStore := store.NewConflictStore(db)

	// External clients via provider factories
	var embedder domain.EmbeddingClient
	if config.EmbeddingEnabled() {
		client, err := embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey(), config.EmbeddingDimension())
		if err != nil {
			logger.Warn("embedding client initialization failed",
				zap.String("provider", config.EmbeddingProvider()),
				zap.Error(err))
		} else {
			embedder = client
			logger.Info("embedding client initialized",
				zap.String("provider", config.EmbeddingProvider()),
				zap.Int("dimension", client.Dimension()))
		}
	}

	clients, err := llm.NewClients(config.LLMProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("LLM client initialization failed, using pattern engines",
			zap.String("provider", config.LLMProvider()),
			zap.Error(err))
		clients, _ = llm.NewClients(llm.ProviderPattern, "")
	} else {
		logger.Info("LLM clients initialized", zap.String("provider", config.LLMProvider()))
	}

	// Similarity
	selector := similarity.NewSelector(config.SimilarityStrategy(), embedder, logger)

	// Services
	graphSvc := service.NewGraphService(beliefStore, relationshipStore, logger)
	analyzer := service.NewAnalyzer(
		beliefStore, conflictStore, graphSvc,
		selector, beliefStore,
		clients.Extractor, clients.Synthesizer, embedder,
		service.BRCAConfigFromEnv(), logger,
	)
	ingestSvc := service.NewIngestionService(
		memoryStore, embedder, clients.Categorizer, analyzer,
		service.IngestionConfigFromEnv(), logger,
	)
	memorySvc := service.NewMemoryService(memoryStore, memoryStore, selector, logger)
	beliefSvc := service.NewBeliefService(beliefStore, conflictStore, beliefStore, selector, logger)

	// Handlers
	ingestHandler := handlers.NewIngestHandler(ingestSvc)
	memoryHandler := handlers.NewMemoryHandler(memorySvc)
	beliefHandler := handlers.NewBeliefHandler(beliefSvc)
	graphHandler := handlers.NewGraphHandler(graphSvc, relationshipStore)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Ingestion: ingestSvc,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", app.healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Ingestion
		r.Route("/ingest", func(r chi.Router) {
			r.Post("/", ingestHandler.Ingest)
			r.Post("/dry-run", ingestHandler.DryRun)
			r.Post("/validate", ingestHandler.Validate)
			r.Get("/stats", ingestHandler.Statistics)
		})

		// Memories
		r.Route("/memories", func(r chi.Router) {
			r.Get("/", memoryHandler.List)
			r.Get("/recall", memoryHandler.Recall)
			r.Delete("/", memoryHandler.DeleteMany)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", memoryHandler.GetByID)
				r.Delete("/", memoryHandler.Delete)
			})
		})

		// Beliefs
		r.Route("/beliefs", func(r chi.Router) {
			r.Get("/", beliefHandler.List)
			r.Get("/recall", beliefHandler.Recall)
			r.Get("/deprecated", beliefHandler.Deprecated)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", beliefHandler.GetByID)
				r.Post("/deactivate", beliefHandler.Deactivate)
				r.Get("/conflicts", beliefHandler.ConflictsForBelief)
			})
		})

		// Conflicts
		r.Route("/conflicts", func(r chi.Router) {
			r.Get("/", beliefHandler.UnresolvedConflicts)
			r.Post("/{id}/resolve", beliefHandler.ResolveConflict)
		})

		// Knowledge graph
		r.Route("/graph", func(r chi.Router) {
			r.Post("/relationships", graphHandler.CreateRelationship)
			r.Get("/relationships", graphHandler.ListRelationships)
			r.Post("/relationships/{id}/deactivate", graphHandler.DeactivateRelationship)
			r.Get("/beliefs/{id}/chain", graphHandler.DeprecationChain)
			r.Get("/beliefs/{id}/related", graphHandler.Related)
			r.Get("/clusters", graphHandler.Clusters)
			r.Get("/validate", graphHandler.Validate)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that manage no lifecycle.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func (app *App) healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}
		if !app.Ingestion.IsHealthy(r.Context()) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": "ingestion pipeline unhealthy"})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": buildconfig.Version()})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		stats := app.Ingestion.Statistics()

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"ingestion":      stats,
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.MemoryStore       = (*store.MemoryStore)(nil)
	_ domain.BeliefStore       = (*store.BeliefStore)(nil)
	_ domain.RelationshipStore = (*store.RelationshipStore)(nil)
	_ domain.ConflictStore     = (*store.ConflictStore)(nil)
	_ similarity.Backend       = (*store.MemoryStore)(nil)
	_ similarity.Backend       = (*store.BeliefStore)(nil)
	_ domain.EmbeddingClient   = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.DeterministicClient)(nil)
	_ domain.Categorizer       = (*llm.OpenAIClient)(nil)
	_ domain.BeliefExtractor   = (*llm.OpenAIClient)(nil)
	_ domain.MergeSynthesizer  = (*llm.OpenAIClient)(nil)
	_ domain.Categorizer       = (*llm.MockClient)(nil)
	_ domain.BeliefExtractor   = (*llm.MockClient)(nil)
)

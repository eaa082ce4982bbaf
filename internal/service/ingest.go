package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/config"
	"github.com/Harshitk-cp/credo/internal/domain"
)

// IngestionConfig carries the pipeline's limits and per-step deadlines.
type IngestionConfig struct {
	MaxContentChars   int
	MaxAgentIDChars   int
	MaxInflight       int
	EmbeddingEnabled  bool
	EmbedTimeout      time.Duration
	CategorizeTimeout time.Duration
	StoreTimeout      time.Duration
	BRCATimeout       time.Duration
}

func IngestionConfigFromEnv() IngestionConfig {
	return IngestionConfig{
		MaxContentChars:   config.IngestionMaxContentChars(),
		MaxAgentIDChars:   config.IngestionMaxAgentIDChars(),
		MaxInflight:       config.IngestionMaxInflight(),
		EmbeddingEnabled:  config.EmbeddingEnabled(),
		EmbedTimeout:      config.EmbedTimeout(),
		CategorizeTimeout: config.CategorizeTimeout(),
		StoreTimeout:      config.StoreTimeout(),
		BRCATimeout:       config.BRCATimeout(),
	}
}

// IngestionStats is a snapshot of the service counters.
type IngestionStats struct {
	Total     uint64 `json:"total"`
	Succeeded uint64 `json:"succeeded"`
	Partial   uint64 `json:"partial"`
	Failed    uint64 `json:"failed"`
	Inflight  int    `json:"inflight"`
	Capacity  int    `json:"capacity"`
}

// IngestionService is the end-to-end pipeline: validate, categorize,
// encode and store, then belief analysis. The memory write is the point
// of no return; everything after it degrades to a PARTIAL result.
type IngestionService struct {
	memories    domain.MemoryStore
	embedder    domain.EmbeddingClient
	categorizer domain.Categorizer
	analyzer    *Analyzer
	cfg         IngestionConfig
	inflight    chan struct{}
	logger      *zap.Logger

	total     atomic.Uint64
	succeeded atomic.Uint64
	partial   atomic.Uint64
	failed    atomic.Uint64
}

// NewIngestionService wires the pipeline. embedder may be nil; memories
// are then stored without embeddings and search falls back to keywords.
func NewIngestionService(
	memories domain.MemoryStore,
	embedder domain.EmbeddingClient,
	categorizer domain.Categorizer,
	analyzer *Analyzer,
	cfg IngestionConfig,
	logger *zap.Logger,
) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = 256
	}
	return &IngestionService{
		memories:    memories,
		embedder:    embedder,
		categorizer: categorizer,
		analyzer:    analyzer,
		cfg:         cfg,
		inflight:    make(chan struct{}, cfg.MaxInflight),
		logger:      logger,
	}
}

// ValidateInput checks the request limits. It is pure: same input, same
// answer, no side effects.
func (s *IngestionService) ValidateInput(input *domain.MemoryInput) error {
	if input == nil {
		return domain.E(domain.KindInvalidInput, "input is required")
	}
	agentID := strings.TrimSpace(input.AgentID)
	if agentID == "" {
		return domain.E(domain.KindInvalidInput, "agent_id must not be empty")
	}
	if utf8.RuneCountInString(agentID) > s.cfg.MaxAgentIDChars {
		return domain.E(domain.KindInvalidInput, "agent_id exceeds maximum length")
	}
	if strings.TrimSpace(input.Content) == "" {
		return domain.E(domain.KindInvalidInput, "content must not be empty")
	}
	if utf8.RuneCountInString(input.Content) > s.cfg.MaxContentChars {
		return domain.E(domain.KindInvalidInput, "content exceeds maximum length")
	}
	return nil
}

// Ingest runs the full pipeline and persists the memory.
func (s *IngestionService) Ingest(ctx context.Context, input *domain.MemoryInput) (*domain.IngestionResult, error) {
	return s.run(ctx, input, false)
}

// DryRunIngest runs validation, categorization, and a read-only belief
// analysis. Nothing is written; the returned memory id is synthetic.
func (s *IngestionService) DryRunIngest(ctx context.Context, input *domain.MemoryInput) (*domain.IngestionResult, error) {
	return s.run(ctx, input, true)
}

func (s *IngestionService) run(ctx context.Context, input *domain.MemoryInput, dryRun bool) (*domain.IngestionResult, error) {
	select {
	case s.inflight <- struct{}{}:
		defer func() { <-s.inflight }()
	default:
		return nil, domain.E(domain.KindOverloaded, "ingestion queue is full")
	}

	start := time.Now()
	s.total.Add(1)

	if err := s.ValidateInput(input); err != nil {
		s.failed.Add(1)
		return nil, err
	}

	agentID := strings.TrimSpace(input.AgentID)
	partial := false

	// Categorization degrades to the fallback label.
	category, err := s.categorize(ctx, input)
	if err != nil {
		s.logger.Warn("categorization failed, using fallback label",
			zap.String("agent_id", agentID),
			zap.Error(err))
		category = domain.FallbackCategory()
		partial = true
	}

	record := s.buildRecord(agentID, input, category)

	// Embedding degrades to an unembedded record.
	if s.cfg.EmbeddingEnabled && s.embedder != nil {
		ectx, cancel := context.WithTimeout(ctx, s.cfg.EmbedTimeout)
		vec, err := s.embedder.Embed(ectx, record.Content)
		cancel()
		if err != nil {
			s.logger.Warn("embedding failed, storing without embedding",
				zap.String("agent_id", agentID),
				zap.Error(err))
			partial = true
		} else {
			record.Embedding = vec
		}
	}

	if !dryRun {
		sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		err := s.memories.Create(sctx, record)
		cancel()
		if err != nil {
			s.failed.Add(1)
			return nil, domain.WrapErr(domain.KindStorage, "store memory", err)
		}
	}

	result := &domain.IngestionResult{
		MemoryID: record.ID.String(),
		AgentID:  agentID,
		Category: category,
		DryRun:   dryRun,
	}
	if dryRun {
		result.MemoryID = "dry-run-" + record.ID.String()
	}

	// The memory is durable (or simulated); belief analysis failures only
	// degrade the result from here on.
	bctx, cancel := context.WithTimeout(ctx, s.cfg.BRCATimeout)
	updateResult, err := s.analyzer.Analyze(bctx, record, dryRun)
	cancel()
	if err != nil {
		partial = true
		result.BeliefAnalysisError = beliefAnalysisError(err)
		s.logger.Warn("belief analysis failed",
			zap.String("agent_id", agentID),
			zap.String("memory_id", result.MemoryID),
			zap.String("reason", result.BeliefAnalysisError),
			zap.Error(err))
	} else {
		result.BeliefUpdateResult = updateResult
	}

	result.Partial = partial
	if partial {
		result.Status = domain.StatusPartial
		s.partial.Add(1)
	} else {
		result.Status = domain.StatusSuccess
		s.succeeded.Add(1)
	}
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func (s *IngestionService) categorize(ctx context.Context, input *domain.MemoryInput) (domain.CategoryLabel, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CategorizeTimeout)
	defer cancel()

	hints := input.Metadata.Tags
	return s.categorizer.Categorize(cctx, input.Content, hints)
}

func (s *IngestionService) buildRecord(agentID string, input *domain.MemoryInput, category domain.CategoryLabel) *domain.MemoryRecord {
	metadata := input.Metadata
	metadata.Confidence = domain.ClampConfidence(metadata.Confidence)
	if metadata.Source == "" {
		metadata.Source = input.Source
	}
	metadata.AccessCount = 0
	metadata.LastAccessedAt = nil

	createdAt := input.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &domain.MemoryRecord{
		ID:        uuid.New(),
		AgentID:   agentID,
		Content:   input.Content,
		Category:  category,
		Metadata:  metadata,
		CreatedAt: createdAt,
		Version:   1,
	}
}

// beliefAnalysisError maps an analysis failure to its wire-stable reason.
// A deadline or cancellation anywhere in the chain wins over the wrapping
// kind: the step that happened to be in flight when the analysis deadline
// expired did not itself fail.
func beliefAnalysisError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	switch kind := domain.KindOf(err); kind {
	case domain.KindTimeout:
		return "timeout"
	case domain.KindConflict:
		return "contention"
	case domain.KindCanceled:
		return "canceled"
	default:
		return string(kind)
	}
}

// Statistics returns a snapshot of the counters.
func (s *IngestionService) Statistics() IngestionStats {
	return IngestionStats{
		Total:     s.total.Load(),
		Succeeded: s.succeeded.Load(),
		Partial:   s.partial.Load(),
		Failed:    s.failed.Load(),
		Inflight:  len(s.inflight),
		Capacity:  cap(s.inflight),
	}
}

// IsHealthy probes the storage layer with a cheap lookup.
func (s *IngestionService) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := s.memories.GetByID(ctx, uuid.Nil)
	return err == nil || domain.IsKind(err, domain.KindNotFound)
}

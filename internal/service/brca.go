package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/credo/internal/config"
	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/similarity"
)

// BRCAConfig tunes the belief reinforcement and conflict analyzer.
type BRCAConfig struct {
	ReinforcementAlpha    float32
	WeakeningBeta         float32
	DeactivationThreshold float32
	SimilarityThreshold   float32
	ConflictThreshold     float32
	DefaultResolution     domain.ConflictResolution
	TopK                  int
	// ExtractTimeout bounds the extractor call on its own; zero means the
	// caller's deadline alone applies.
	ExtractTimeout time.Duration
}

func BRCAConfigFromEnv() BRCAConfig {
	resolution := domain.ConflictResolution(config.BRCADefaultResolution())
	if !domain.ValidConflictResolution(string(resolution)) {
		resolution = domain.ResolutionMarkUncertain
	}
	return BRCAConfig{
		ReinforcementAlpha:    float32(config.BRCAReinforcementAlpha()),
		WeakeningBeta:         float32(config.BRCAWeakeningBeta()),
		DeactivationThreshold: float32(config.BRCADeactivationThreshold()),
		SimilarityThreshold:   float32(config.BRCASimilarityThreshold()),
		ConflictThreshold:     float32(config.BRCAConflictThreshold()),
		DefaultResolution:     resolution,
		TopK:                  10,
		ExtractTimeout:        config.ExtractTimeout(),
	}
}

// Analyzer extracts candidate beliefs from a memory, matches them against
// the agent's existing beliefs, and applies reinforcement, weakening,
// conflict resolution, or new-belief creation.
type Analyzer struct {
	beliefs       domain.BeliefStore
	conflicts     domain.ConflictStore
	graph         *GraphService
	search        *similarity.Selector
	beliefBackend similarity.Backend
	extractor     domain.BeliefExtractor
	synthesizer   domain.MergeSynthesizer
	embedder      domain.EmbeddingClient
	retry         RetryPolicy
	cfg           BRCAConfig
	logger        *zap.Logger
}

// NewAnalyzer wires the analyzer. synthesizer and embedder may be nil:
// without a synthesizer MERGE falls back to KEEP_OLD, and without an
// embedder new beliefs are stored unembedded.
func NewAnalyzer(
	beliefs domain.BeliefStore,
	conflicts domain.ConflictStore,
	graph *GraphService,
	search *similarity.Selector,
	beliefBackend similarity.Backend,
	extractor domain.BeliefExtractor,
	synthesizer domain.MergeSynthesizer,
	embedder domain.EmbeddingClient,
	cfg BRCAConfig,
	logger *zap.Logger,
) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	return &Analyzer{
		beliefs:       beliefs,
		conflicts:     conflicts,
		graph:         graph,
		search:        search,
		beliefBackend: beliefBackend,
		extractor:     extractor,
		synthesizer:   synthesizer,
		embedder:      embedder,
		retry:         BeliefUpdatePolicy(),
		cfg:           cfg,
		logger:        logger,
	}
}

// Analyze runs belief analysis for one memory. With dryRun set it
// performs no writes and returns the projected effects instead.
func (a *Analyzer) Analyze(ctx context.Context, m *domain.MemoryRecord, dryRun bool) (*domain.BeliefUpdateResult, error) {
	start := time.Now()
	result := &domain.BeliefUpdateResult{
		Reinforced:        []domain.Belief{},
		Weakened:          []domain.Belief{},
		NewBeliefs:        []domain.Belief{},
		Conflicts:         []domain.BeliefConflict{},
		AnalysisTimestamp: start,
	}

	ectx := ctx
	if a.cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, a.cfg.ExtractTimeout)
		defer cancel()
	}
	proposals, err := a.extractor.ExtractBeliefs(ectx, m.Content, m.Category, m.AgentID)
	if err != nil {
		return nil, domain.WrapErr(domain.KindExtractionUnavailable, "extract beliefs", err)
	}

	for i := range proposals {
		p := proposals[i]
		p.Confidence = domain.ClampConfidence(p.Confidence)
		p.Polarity = p.Polarity.OrPositive()
		if p.Statement == "" {
			continue
		}
		if err := a.analyzeProposal(ctx, m, p, result, dryRun); err != nil {
			return nil, err
		}
	}

	result.OverallConfidence = overallConfidence(result)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func (a *Analyzer) analyzeProposal(ctx context.Context, m *domain.MemoryRecord, p domain.BeliefProposal, result *domain.BeliefUpdateResult, dryRun bool) error {
	matches, err := a.search.Search(ctx, a.beliefBackend, similarity.Query{
		Text:      p.Statement,
		AgentID:   m.AgentID,
		Threshold: a.cfg.SimilarityThreshold,
		Limit:     a.cfg.TopK,
	})
	if err != nil {
		return domain.WrapErr(domain.KindStorage, "belief similarity search", err)
	}

	var ids []uuid.UUID
	scores := map[uuid.UUID]float32{}
	for _, match := range matches {
		ids = append(ids, match.ID)
		scores[match.ID] = match.Score
	}
	candidates, err := a.beliefs.GetMany(ctx, ids)
	if err != nil {
		return domain.WrapErr(domain.KindStorage, "load matched beliefs", err)
	}

	// Partition: same-polarity matches agree; opposite-polarity matches
	// above the conflict threshold oppose. Candidates arrive ordered by
	// score, so agreement[0] is the best match.
	var agreement, opposition []domain.Belief
	for _, b := range candidates {
		if p.Polarity.Opposes(domain.DetectPolarity(b.Statement)) {
			if scores[b.ID] >= a.cfg.ConflictThreshold {
				opposition = append(opposition, b)
			}
			continue
		}
		agreement = append(agreement, b)
	}

	switch {
	case len(agreement) > 0:
		if err := a.reinforce(ctx, m, p, agreement[0], result, dryRun); err != nil {
			return err
		}
	case len(opposition) == 0:
		b, err := a.createBelief(ctx, m, p, p.Statement, dryRun)
		if err != nil {
			return err
		}
		result.NewBeliefs = append(result.NewBeliefs, *b)
	}

	if len(opposition) > 0 {
		if err := a.resolveConflicts(ctx, m, &p, opposition, scores, result, dryRun); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) reinforce(ctx context.Context, m *domain.MemoryRecord, p domain.BeliefProposal, b domain.Belief, result *domain.BeliefUpdateResult, dryRun bool) error {
	if dryRun {
		projected := b
		projected.Confidence = domain.ClampConfidence(b.Confidence + a.cfg.ReinforcementAlpha*p.Confidence)
		projected.ReinforcementCount++
		if !projected.HasEvidence(m.ID) {
			projected.EvidenceMemoryIDs = append(append([]uuid.UUID{}, b.EvidenceMemoryIDs...), m.ID)
		}
		result.Reinforced = append(result.Reinforced, projected)
		return nil
	}

	var updated domain.Belief
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		cur, err := a.beliefs.GetByID(ctx, b.ID)
		if err != nil {
			return err
		}
		conf := domain.ClampConfidence(cur.Confidence + a.cfg.ReinforcementAlpha*p.Confidence)
		evidence := cur.EvidenceMemoryIDs
		if !cur.HasEvidence(m.ID) {
			evidence = append(append([]uuid.UUID{}, evidence...), m.ID)
		}
		if err := a.beliefs.UpdateReinforcement(ctx, cur.ID, cur.Version, conf, cur.ReinforcementCount+1, evidence); err != nil {
			return err
		}
		updated = *cur
		updated.Confidence = conf
		updated.ReinforcementCount++
		updated.EvidenceMemoryIDs = evidence
		updated.Version++
		updated.LastUpdated = time.Now()
		return nil
	})
	if err != nil {
		return domain.WrapErr(domain.KindOf(err), "reinforce belief", err)
	}
	result.Reinforced = append(result.Reinforced, updated)

	if p.SourceBeliefID != nil && *p.SourceBeliefID != updated.ID {
		a.emitEdge(ctx, m.AgentID, *p.SourceBeliefID, updated.ID, domain.RelationReinforces, p.Confidence, "", nil, dryRun)
	}
	return nil
}

func (a *Analyzer) resolveConflicts(ctx context.Context, m *domain.MemoryRecord, p *domain.BeliefProposal, opposition []domain.Belief, scores map[uuid.UUID]float32, result *domain.BeliefUpdateResult, dryRun bool) error {
	now := time.Now()
	var created *domain.Belief

	newBelief := func(statement string) (*domain.Belief, error) {
		if created != nil {
			return created, nil
		}
		b, err := a.createBelief(ctx, m, *p, statement, dryRun)
		if err != nil {
			return nil, err
		}
		created = b
		result.NewBeliefs = append(result.NewBeliefs, *b)
		return b, nil
	}

	for _, x := range opposition {
		description := fmt.Sprintf("new statement %q contradicts existing belief %q (similarity %.2f)",
			p.Statement, x.Statement, scores[x.ID])
		conflict := domain.BeliefConflict{
			ID:          uuid.New(),
			BeliefID:    x.ID,
			MemoryID:    &m.ID,
			AgentID:     m.AgentID,
			Description: description,
			DetectedAt:  now,
			Severity:    domain.SeverityForDelta(x.Confidence - p.Confidence),
		}

		resolution := a.cfg.DefaultResolution
		if resolution == domain.ResolutionMerge && p.MergedStatement == "" && a.synthesizer == nil {
			// No way to synthesize a merged statement.
			resolution = domain.ResolutionKeepOld
		}

		switch resolution {
		case domain.ResolutionTakeNew:
			weakened, err := a.adjustConfidence(ctx, x, func(cur float32) float32 {
				return cur - a.cfg.WeakeningBeta*p.Confidence
			}, true, dryRun)
			if err != nil {
				return err
			}
			result.Weakened = append(result.Weakened, weakened)
			b, err := newBelief(p.Statement)
			if err != nil {
				return err
			}
			a.emitEdge(ctx, m.AgentID, b.ID, x.ID, domain.RelationSupersedes, p.Confidence, description, &now, dryRun)
			conflict.MarkResolved(domain.ResolutionTakeNew, "existing belief weakened and superseded", p.Confidence, now)

		case domain.ResolutionKeepOld:
			conflict.MarkResolved(domain.ResolutionKeepOld, "existing belief kept; contradicting evidence recorded only", x.Confidence, now)

		case domain.ResolutionMarkUncertain:
			weakened, err := a.adjustConfidence(ctx, x, func(cur float32) float32 {
				return cur * 0.8
			}, false, dryRun)
			if err != nil {
				return err
			}
			result.Weakened = append(result.Weakened, weakened)
			p.Confidence = domain.ClampConfidence(p.Confidence * 0.8)
			if _, err := newBelief(p.Statement); err != nil {
				return err
			}
			conflict.MarkResolved(domain.ResolutionMarkUncertain, "both beliefs marked uncertain", p.Confidence, now)

		case domain.ResolutionMerge:
			statement := p.MergedStatement
			if statement == "" {
				synthesized, err := a.synthesizer.SynthesizeMerge(ctx, x.Statement, p.Statement)
				if err != nil || synthesized == "" {
					a.logger.Warn("merge synthesis failed, keeping old belief",
						zap.String("belief_id", x.ID.String()),
						zap.Error(err))
					conflict.MarkResolved(domain.ResolutionKeepOld, "merge synthesis unavailable; existing belief kept", x.Confidence, now)
					break
				}
				statement = synthesized
			}
			b, err := newBelief(statement)
			if err != nil {
				return err
			}
			a.emitEdge(ctx, m.AgentID, b.ID, x.ID, domain.RelationReplaces, p.Confidence, description, &now, dryRun)
			conflict.MarkResolved(domain.ResolutionMerge, "merged into new belief", p.Confidence, now)

		case domain.ResolutionArchiveOld:
			archived := x
			if !dryRun {
				if err := a.beliefs.Deactivate(ctx, x.ID); err != nil {
					return domain.WrapErr(domain.KindOf(err), "deactivate archived belief", err)
				}
				if err := a.graph.relationships.CloseEffective(ctx, x.ID, now); err != nil {
					a.logger.Warn("close effective edges failed",
						zap.String("belief_id", x.ID.String()),
						zap.Error(err))
				}
			}
			archived.Active = false
			archived.LastUpdated = now
			result.Weakened = append(result.Weakened, archived)
			b, err := newBelief(p.Statement)
			if err != nil {
				return err
			}
			a.emitEdge(ctx, m.AgentID, b.ID, x.ID, domain.RelationSupersedes, p.Confidence, description, &now, dryRun)
			conflict.MarkResolved(domain.ResolutionArchiveOld, "existing belief archived", p.Confidence, now)

		case domain.ResolutionRequireManualReview:
			// Nothing is mutated; the conflict surfaces unresolved.
		}

		if !dryRun {
			if err := a.conflicts.Create(ctx, &conflict); err != nil {
				return domain.WrapErr(domain.KindStorage, "record conflict", err)
			}
		}
		result.Conflicts = append(result.Conflicts, conflict)
	}
	return nil
}

// adjustConfidence applies compute to the belief's current confidence
// under optimistic concurrency. With deactivate set, a result below the
// deactivation threshold also turns the belief inactive.
func (a *Analyzer) adjustConfidence(ctx context.Context, b domain.Belief, compute func(float32) float32, deactivate, dryRun bool) (domain.Belief, error) {
	if dryRun {
		projected := b
		projected.Confidence = domain.ClampConfidence(compute(b.Confidence))
		if deactivate && projected.Confidence < a.cfg.DeactivationThreshold {
			projected.Active = false
		}
		return projected, nil
	}

	var updated domain.Belief
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		cur, err := a.beliefs.GetByID(ctx, b.ID)
		if err != nil {
			return err
		}
		conf := domain.ClampConfidence(compute(cur.Confidence))
		if err := a.beliefs.UpdateConfidence(ctx, cur.ID, cur.Version, conf); err != nil {
			return err
		}
		updated = *cur
		updated.Confidence = conf
		updated.Version++
		updated.LastUpdated = time.Now()
		return nil
	})
	if err != nil {
		return domain.Belief{}, domain.WrapErr(domain.KindOf(err), "weaken belief", err)
	}

	if deactivate && updated.Confidence < a.cfg.DeactivationThreshold {
		if err := a.beliefs.Deactivate(ctx, updated.ID); err != nil {
			return domain.Belief{}, domain.WrapErr(domain.KindOf(err), "deactivate weakened belief", err)
		}
		updated.Active = false
	}
	return updated, nil
}

func (a *Analyzer) createBelief(ctx context.Context, m *domain.MemoryRecord, p domain.BeliefProposal, statement string, dryRun bool) (*domain.Belief, error) {
	category := p.Category
	if category.Primary == "" {
		category = m.Category
	}

	now := time.Now()
	b := &domain.Belief{
		ID:                 uuid.New(),
		AgentID:            m.AgentID,
		Statement:          statement,
		Confidence:         domain.ClampConfidence(p.Confidence),
		EvidenceMemoryIDs:  []uuid.UUID{m.ID},
		Category:           category,
		Tags:               category.Tags,
		Active:             true,
		ReinforcementCount: 1,
		CreatedAt:          now,
		LastUpdated:        now,
	}

	if a.embedder != nil {
		vec, err := a.embedder.Embed(ctx, statement)
		if err != nil {
			a.logger.Warn("belief embedding failed, storing without embedding",
				zap.String("agent_id", m.AgentID),
				zap.Error(err))
		} else {
			b.Embedding = vec
		}
	}

	if dryRun {
		return b, nil
	}
	if err := a.beliefs.Create(ctx, b); err != nil {
		return nil, domain.WrapErr(domain.KindStorage, "create belief", err)
	}
	return b, nil
}

// emitEdge records a relationship as a side effect of analysis. Edge
// failures never fail the analysis; the belief updates already stand.
func (a *Analyzer) emitEdge(ctx context.Context, agentID string, source, target uuid.UUID, t domain.RelationshipType, strength float32, reason string, effectiveFrom *time.Time, dryRun bool) {
	if dryRun || source == target {
		return
	}
	r := &domain.BeliefRelationship{
		SourceBeliefID:    source,
		TargetBeliefID:    target,
		AgentID:           agentID,
		Type:              t,
		Strength:          domain.ClampConfidence(strength),
		EffectiveFrom:     effectiveFrom,
		DeprecationReason: reason,
	}
	if err := a.graph.CreateRelationship(ctx, r); err != nil {
		a.logger.Warn("relationship emit failed",
			zap.String("type", string(t)),
			zap.String("source", source.String()),
			zap.String("target", target.String()),
			zap.Error(err))
	}
}

func overallConfidence(result *domain.BeliefUpdateResult) float32 {
	var sum float64
	var count int
	for _, set := range [][]domain.Belief{result.Reinforced, result.Weakened, result.NewBeliefs} {
		for _, b := range set {
			sum += float64(b.Confidence)
			count++
		}
	}
	if count == 0 {
		return 1.0
	}
	return float32(sum / float64(count))
}

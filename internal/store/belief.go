package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/similarity"
)

type BeliefStore struct {
	db    *pgxpool.Pool
	probe vectorProbe
}

func NewBeliefStore(db *pgxpool.Pool) *BeliefStore {
	return &BeliefStore{db: db}
}

const beliefColumns = `id, agent_id, statement, confidence, evidence_memory_ids, category, created_at, last_updated, reinforcement_count, active, tags, version`

func scanBelief(row pgx.Row) (*domain.Belief, error) {
	b := &domain.Belief{}
	err := row.Scan(
		&b.ID, &b.AgentID, &b.Statement, &b.Confidence, &b.EvidenceMemoryIDs,
		&b.Category, &b.CreatedAt, &b.LastUpdated, &b.ReinforcementCount,
		&b.Active, &b.Tags, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

const insertBeliefSQL = `INSERT INTO beliefs (id, agent_id, statement, confidence, evidence_memory_ids, category, tags, embedding, active, reinforcement_count, created_at, last_updated)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10, $10)
	 RETURNING id, created_at, last_updated, version`

func beliefInsertArgs(b *domain.Belief) []any {
	var embedding *pgvector.Vector
	if len(b.Embedding) > 0 {
		v := pgvector.NewVector(b.Embedding)
		embedding = &v
	}
	if b.ReinforcementCount == 0 {
		b.ReinforcementCount = 1
	}
	return []any{
		b.ID, b.AgentID, b.Statement, b.Confidence, b.EvidenceMemoryIDs,
		b.Category, b.Tags, embedding, b.ReinforcementCount, b.CreatedAt,
	}
}

func (s *BeliefStore) Create(ctx context.Context, b *domain.Belief) error {
	err := s.db.QueryRow(ctx, insertBeliefSQL, beliefInsertArgs(b)...).
		Scan(&b.ID, &b.CreatedAt, &b.LastUpdated, &b.Version)
	if err != nil {
		return err
	}
	b.Active = true
	return nil
}

// CreateBatch inserts beliefs in one round trip, preserving input order.
func (s *BeliefStore) CreateBatch(ctx context.Context, beliefs []*domain.Belief) error {
	if len(beliefs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, b := range beliefs {
		batch.Queue(insertBeliefSQL, beliefInsertArgs(b)...)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for _, b := range beliefs {
		if err := br.QueryRow().Scan(&b.ID, &b.CreatedAt, &b.LastUpdated, &b.Version); err != nil {
			return fmt.Errorf("batch insert belief: %w", err)
		}
		b.Active = true
	}
	return nil
}

func (s *BeliefStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Belief, error) {
	b, err := scanBelief(s.db.QueryRow(ctx,
		`SELECT `+beliefColumns+` FROM beliefs WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetMany returns the found beliefs in input order; missing ids are skipped.
func (s *BeliefStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Belief, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+beliefColumns+` FROM beliefs
		 WHERE id = ANY($1)
		 ORDER BY array_position($1::uuid[], id)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beliefs []domain.Belief
	for rows.Next() {
		b, err := scanBelief(rows)
		if err != nil {
			return nil, err
		}
		beliefs = append(beliefs, *b)
	}
	return beliefs, rows.Err()
}

func (s *BeliefStore) GetByAgent(ctx context.Context, agentID string, includeInactive bool, limit int) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + beliefColumns + ` FROM beliefs WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY confidence DESC, created_at DESC LIMIT $2`

	rows, err := s.db.Query(ctx, query, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beliefs []domain.Belief
	for rows.Next() {
		b, err := scanBelief(rows)
		if err != nil {
			return nil, err
		}
		beliefs = append(beliefs, *b)
	}
	return beliefs, rows.Err()
}

// versionedUpdate runs an optimistic update and distinguishes a missing
// row from a lost version race.
func (s *BeliefStore) versionedUpdate(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM beliefs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *BeliefStore) UpdateReinforcement(ctx context.Context, id uuid.UUID, expectedVersion int, confidence float32, reinforcementCount int, evidenceMemoryIDs []uuid.UUID) error {
	return s.versionedUpdate(ctx, id,
		`UPDATE beliefs
		 SET confidence = $1, reinforcement_count = $2, evidence_memory_ids = $3,
		     last_updated = NOW(), version = version + 1
		 WHERE id = $4 AND version = $5`,
		confidence, reinforcementCount, evidenceMemoryIDs, id, expectedVersion,
	)
}

func (s *BeliefStore) UpdateConfidence(ctx context.Context, id uuid.UUID, expectedVersion int, confidence float32) error {
	return s.versionedUpdate(ctx, id,
		`UPDATE beliefs
		 SET confidence = $1, last_updated = NOW(), version = version + 1
		 WHERE id = $2 AND version = $3`,
		confidence, id, expectedVersion,
	)
}

func (s *BeliefStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE beliefs
		 SET active = FALSE, last_updated = NOW(), version = version + 1
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindDeprecatedBeliefIDs returns the agent's beliefs targeted by an
// in-force deprecating edge.
func (s *BeliefStore) FindDeprecatedBeliefIDs(ctx context.Context, agentID string) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT target_belief_id FROM belief_relationships
		 WHERE agent_id = $1 AND active AND type = ANY($2)
		   AND (effective_from IS NULL OR effective_from <= NOW())
		   AND (effective_until IS NULL OR effective_until > NOW())`,
		agentID, deprecatingTypeList(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

// FindSupersedingBeliefIDs returns the sources of in-force deprecating
// edges pointing at the belief.
func (s *BeliefStore) FindSupersedingBeliefIDs(ctx context.Context, agentID string, beliefID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_belief_id FROM belief_relationships
		 WHERE agent_id = $1 AND target_belief_id = $2 AND active AND type = ANY($3)
		   AND (effective_from IS NULL OR effective_from <= NOW())
		   AND (effective_until IS NULL OR effective_until > NOW())
		 ORDER BY created_at DESC`,
		agentID, beliefID, deprecatingTypeList(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- similarity.Backend ---

func (s *BeliefStore) HasNativeVector(ctx context.Context) bool {
	return s.probe.check(ctx, s.db)
}

func (s *BeliefStore) NativeSimilar(ctx context.Context, q similarity.Query) ([]similarity.Match, error) {
	vec := pgvector.NewVector(q.Vector)
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, agent_id, statement, confidence, created_at,
	        1 - (embedding <=> $1) AS score
	 FROM beliefs
	 WHERE agent_id = $2 AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $3`
	if !q.IncludeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY score DESC, confidence DESC, created_at ASC LIMIT $4`

	rows, err := s.db.Query(ctx, query, vec, q.AgentID, q.Threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("belief similarity query: %w", err)
	}
	defer rows.Close()

	var matches []similarity.Match
	for rows.Next() {
		var m similarity.Match
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Content, &m.Confidence, &m.CreatedAt, &m.Score); err != nil {
			return nil, fmt.Errorf("scan belief similarity row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *BeliefStore) ListCandidates(ctx context.Context, agentID string, includeInactive, withEmbeddings bool) ([]similarity.Candidate, error) {
	cols := `id, agent_id, statement, confidence, created_at`
	if withEmbeddings {
		cols += `, embedding`
	}
	query := `SELECT ` + cols + ` FROM beliefs WHERE agent_id = $1`
	if !includeInactive {
		query += ` AND active`
	}

	rows, err := s.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []similarity.Candidate
	for rows.Next() {
		var c similarity.Candidate
		if withEmbeddings {
			var vec *pgvector.Vector
			if err := rows.Scan(&c.ID, &c.AgentID, &c.Content, &c.Confidence, &c.CreatedAt, &vec); err != nil {
				return nil, err
			}
			if vec != nil {
				c.Embedding = vec.Slice()
			}
		} else {
			if err := rows.Scan(&c.ID, &c.AgentID, &c.Content, &c.Confidence, &c.CreatedAt); err != nil {
				return nil, err
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *BeliefStore) KeywordCandidates(ctx context.Context, agentID string, keywords []string, includeInactive bool, limit int) ([]similarity.Candidate, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	args := []any{agentID}
	var ors []string
	for _, kw := range keywords {
		ors = append(ors, fmt.Sprintf("statement ILIKE '%%' || $%d || '%%'", len(args)+1))
		args = append(args, kw)
	}
	active := ""
	if !includeInactive {
		active = " AND active"
	}
	limitParam := len(args) + 1
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, agent_id, statement, confidence, created_at
		 FROM beliefs
		 WHERE agent_id = $1 AND (%s)%s
		 ORDER BY created_at DESC
		 LIMIT $%d`,
		strings.Join(ors, " OR "),
		active,
		limitParam,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("belief keyword query: %w", err)
	}
	defer rows.Close()

	var candidates []similarity.Candidate
	for rows.Next() {
		var c similarity.Candidate
		if err := rows.Scan(&c.ID, &c.AgentID, &c.Content, &c.Confidence, &c.CreatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

var _ domain.BeliefStore = (*BeliefStore)(nil)
var _ similarity.Backend = (*BeliefStore)(nil)

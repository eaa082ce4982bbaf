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

type MemoryStore struct {
	db    *pgxpool.Pool
	probe vectorProbe
}

func NewMemoryStore(db *pgxpool.Pool) *MemoryStore {
	return &MemoryStore{db: db}
}

const memoryColumns = `id, agent_id, content, category, importance, tags, source, confidence, access_count, last_accessed_at, custom, created_at, version`

func scanMemory(row pgx.Row) (*domain.MemoryRecord, error) {
	m := &domain.MemoryRecord{}
	err := row.Scan(
		&m.ID, &m.AgentID, &m.Content, &m.Category,
		&m.Metadata.Importance, &m.Metadata.Tags, &m.Metadata.Source, &m.Metadata.Confidence,
		&m.Metadata.AccessCount, &m.Metadata.LastAccessedAt, &m.Metadata.Custom,
		&m.CreatedAt, &m.Version,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MemoryStore) Create(ctx context.Context, m *domain.MemoryRecord) error {
	var embedding *pgvector.Vector
	if len(m.Embedding) > 0 {
		v := pgvector.NewVector(m.Embedding)
		embedding = &v
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO memories (id, agent_id, content, category, importance, tags, source, confidence, custom, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, version`,
		m.ID, m.AgentID, m.Content, m.Category,
		m.Metadata.Importance, m.Metadata.Tags, m.Metadata.Source, m.Metadata.Confidence,
		m.Metadata.Custom, embedding, m.CreatedAt,
	).Scan(&m.ID, &m.CreatedAt, &m.Version)
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m, err := scanMemory(s.db.QueryRow(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// GetMany returns the found records in input order; missing ids are skipped.
func (s *MemoryStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.MemoryRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE id = ANY($1)
		 ORDER BY array_position($1::uuid[], id)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []domain.MemoryRecord
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

func (s *MemoryStore) FindByAgent(ctx context.Context, agentID string, f domain.FilterOptions, limit int) ([]domain.MemoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	var conditions []string
	var args []any

	conditions = append(conditions, fmt.Sprintf("agent_id = $%d", len(args)+1))
	args = append(args, agentID)

	if f.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category->>'primary' = $%d", len(args)+1))
		args = append(args, f.Category)
	}
	if f.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *f.Until)
	}
	if f.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)+1))
		args = append(args, f.Source)
	}
	if f.MinRelevanceScore != nil {
		conditions = append(conditions, fmt.Sprintf("confidence >= $%d", len(args)+1))
		args = append(args, *f.MinRelevanceScore)
	}
	if f.MaxRelevanceScore != nil {
		conditions = append(conditions, fmt.Sprintf("confidence <= $%d", len(args)+1))
		args = append(args, *f.MaxRelevanceScore)
	}
	if len(f.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags && $%d", len(args)+1))
		args = append(args, f.Tags)
	}
	if f.MinCategoryConfidence != nil {
		conditions = append(conditions, fmt.Sprintf("(category->>'confidence')::real >= $%d", len(args)+1))
		args = append(args, *f.MinCategoryConfidence)
	}
	if f.MinAccessCount != nil {
		conditions = append(conditions, fmt.Sprintf("access_count >= $%d", len(args)+1))
		args = append(args, *f.MinAccessCount)
	}
	if f.MaxAgeSeconds != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= NOW() - make_interval(secs => $%d)", len(args)+1))
		args = append(args, *f.MaxAgeSeconds)
	}
	if f.ExcludeConflicted {
		conditions = append(conditions,
			"id NOT IN (SELECT memory_id FROM belief_conflicts WHERE memory_id IS NOT NULL AND resolved = FALSE)")
	}
	for key, value := range f.CustomFilters {
		conditions = append(conditions, fmt.Sprintf("custom->>$%d = $%d", len(args)+1, len(args)+2))
		args = append(args, key, value)
	}

	limitParam := len(args) + 1
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT `+memoryColumns+` FROM memories
		 WHERE %s
		 ORDER BY created_at DESC
		 LIMIT $%d`,
		strings.Join(conditions, " AND "),
		limitParam,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find memories query: %w", err)
	}
	defer rows.Close()

	var memories []domain.MemoryRecord
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM memories WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IncrementAccess bumps the access counters and nudges confidence up.
// Frequently recalled memories earn a little trust.
func (s *MemoryStore) IncrementAccess(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE memories
		 SET access_count = access_count + 1,
		     last_accessed_at = NOW(),
		     confidence = LEAST(confidence + 0.01, 0.99)
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

// --- similarity.Backend ---

func (s *MemoryStore) HasNativeVector(ctx context.Context) bool {
	return s.probe.check(ctx, s.db)
}

func (s *MemoryStore) NativeSimilar(ctx context.Context, q similarity.Query) ([]similarity.Match, error) {
	vec := pgvector.NewVector(q.Vector)
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, agent_id, content, confidence, created_at,
		        1 - (embedding <=> $1) AS score
		 FROM memories
		 WHERE agent_id = $2 AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $3
		 ORDER BY score DESC, confidence DESC, created_at ASC
		 LIMIT $4`,
		vec, q.AgentID, q.Threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("memory similarity query: %w", err)
	}
	defer rows.Close()

	var matches []similarity.Match
	for rows.Next() {
		var m similarity.Match
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Content, &m.Confidence, &m.CreatedAt, &m.Score); err != nil {
			return nil, fmt.Errorf("scan memory similarity row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *MemoryStore) ListCandidates(ctx context.Context, agentID string, _ bool, withEmbeddings bool) ([]similarity.Candidate, error) {
	cols := `id, agent_id, content, confidence, created_at`
	if withEmbeddings {
		cols += `, embedding`
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+cols+` FROM memories WHERE agent_id = $1`,
		agentID,
	)
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

func (s *MemoryStore) KeywordCandidates(ctx context.Context, agentID string, keywords []string, _ bool, limit int) ([]similarity.Candidate, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	args := []any{agentID}
	var ors []string
	for _, kw := range keywords {
		ors = append(ors, fmt.Sprintf("content ILIKE '%%' || $%d || '%%'", len(args)+1))
		args = append(args, kw)
	}
	limitParam := len(args) + 1
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, agent_id, content, confidence, created_at
		 FROM memories
		 WHERE agent_id = $1 AND (%s)
		 ORDER BY created_at DESC
		 LIMIT $%d`,
		strings.Join(ors, " OR "),
		limitParam,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memory keyword query: %w", err)
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

var _ domain.MemoryStore = (*MemoryStore)(nil)
var _ similarity.Backend = (*MemoryStore)(nil)

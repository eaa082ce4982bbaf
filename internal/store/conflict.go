package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harshitk-cp/credo/internal/domain"
)

type ConflictStore struct {
	db *pgxpool.Pool
}

func NewConflictStore(db *pgxpool.Pool) *ConflictStore {
	return &ConflictStore{db: db}
}

const conflictColumns = `id, belief_id, memory_id, conflicting_belief_id, agent_id, description, resolution, resolution_details, resolution_confidence, detected_at, resolved_at, resolved, severity`

func scanConflict(row pgx.Row) (*domain.BeliefConflict, error) {
	c := &domain.BeliefConflict{}
	err := row.Scan(
		&c.ID, &c.BeliefID, &c.MemoryID, &c.ConflictingBeliefID, &c.AgentID,
		&c.Description, &c.Resolution, &c.ResolutionDetails, &c.ResolutionConfidence,
		&c.DetectedAt, &c.ResolvedAt, &c.Resolved, &c.Severity,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConflictStore) Create(ctx context.Context, c *domain.BeliefConflict) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO belief_conflicts (id, belief_id, memory_id, conflicting_belief_id, agent_id, description, resolution, resolution_details, resolution_confidence, resolved, resolved_at, severity, detected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		 RETURNING id, detected_at`,
		c.ID, c.BeliefID, c.MemoryID, c.ConflictingBeliefID, c.AgentID,
		c.Description, c.Resolution, c.ResolutionDetails, c.ResolutionConfidence,
		c.Resolved, c.ResolvedAt, c.Severity,
	).Scan(&c.ID, &c.DetectedAt)
}

func (s *ConflictStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefConflict, error) {
	c, err := scanConflict(s.db.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM belief_conflicts WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ConflictStore) GetByBelief(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefConflict, error) {
	return s.list(ctx,
		`SELECT `+conflictColumns+` FROM belief_conflicts
		 WHERE belief_id = $1 OR conflicting_belief_id = $1
		 ORDER BY detected_at DESC`,
		beliefID,
	)
}

func (s *ConflictStore) ListUnresolved(ctx context.Context, agentID string, limit int) ([]domain.BeliefConflict, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(ctx,
		`SELECT `+conflictColumns+` FROM belief_conflicts
		 WHERE agent_id = $1 AND resolved = FALSE
		 ORDER BY detected_at DESC
		 LIMIT $2`,
		agentID, limit,
	)
}

func (s *ConflictStore) list(ctx context.Context, query string, args ...any) ([]domain.BeliefConflict, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []domain.BeliefConflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, *c)
	}
	return conflicts, rows.Err()
}

// Resolve marks an unresolved conflict resolved. Resolving twice is an error.
func (s *ConflictStore) Resolve(ctx context.Context, id uuid.UUID, resolution domain.ConflictResolution, details string, confidence float32) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_conflicts
		 SET resolution = $1, resolution_details = $2, resolution_confidence = $3,
		     resolved = TRUE, resolved_at = NOW()
		 WHERE id = $4 AND resolved = FALSE`,
		resolution, details, domain.ClampConfidence(confidence), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM belief_conflicts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return domain.E(domain.KindConflict, "conflict is already resolved")
}

var _ domain.ConflictStore = (*ConflictStore)(nil)

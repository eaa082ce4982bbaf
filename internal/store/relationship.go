package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harshitk-cp/credo/internal/domain"
)

type RelationshipStore struct {
	db *pgxpool.Pool
}

func NewRelationshipStore(db *pgxpool.Pool) *RelationshipStore {
	return &RelationshipStore{db: db}
}

const relationshipColumns = `id, source_belief_id, target_belief_id, agent_id, type, strength, metadata, created_at, last_updated, active, effective_from, effective_until, deprecation_reason, priority`

func scanRelationship(row pgx.Row) (*domain.BeliefRelationship, error) {
	r := &domain.BeliefRelationship{}
	err := row.Scan(
		&r.ID, &r.SourceBeliefID, &r.TargetBeliefID, &r.AgentID, &r.Type,
		&r.Strength, &r.Metadata, &r.CreatedAt, &r.LastUpdated, &r.Active,
		&r.EffectiveFrom, &r.EffectiveUntil, &r.DeprecationReason, &r.Priority,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RelationshipStore) Create(ctx context.Context, r *domain.BeliefRelationship) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO belief_relationships (id, source_belief_id, target_belief_id, agent_id, type, strength, metadata, active, effective_from, effective_until, deprecation_reason, priority, created_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10, $11, NOW(), NOW())
		 RETURNING id, created_at, last_updated`,
		r.ID, r.SourceBeliefID, r.TargetBeliefID, r.AgentID, r.Type,
		r.Strength, r.Metadata, r.EffectiveFrom, r.EffectiveUntil,
		r.DeprecationReason, r.Priority,
	).Scan(&r.ID, &r.CreatedAt, &r.LastUpdated)
	if err != nil {
		return err
	}
	r.Active = true
	return nil
}

func (s *RelationshipStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BeliefRelationship, error) {
	r, err := scanRelationship(s.db.QueryRow(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *RelationshipStore) GetBySource(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	return s.list(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships
		 WHERE source_belief_id = $1
		 ORDER BY created_at ASC`,
		beliefID,
	)
}

func (s *RelationshipStore) GetByTarget(ctx context.Context, beliefID uuid.UUID) ([]domain.BeliefRelationship, error) {
	return s.list(ctx,
		`SELECT `+relationshipColumns+` FROM belief_relationships
		 WHERE target_belief_id = $1
		 ORDER BY created_at ASC`,
		beliefID,
	)
}

func (s *RelationshipStore) GetByAgent(ctx context.Context, agentID string, activeOnly bool) ([]domain.BeliefRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM belief_relationships WHERE agent_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY created_at ASC`
	return s.list(ctx, query, agentID)
}

func (s *RelationshipStore) list(ctx context.Context, query string, args ...any) ([]domain.BeliefRelationship, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relationships []domain.BeliefRelationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, *r)
	}
	return relationships, rows.Err()
}

func (s *RelationshipStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_relationships
		 SET active = FALSE, last_updated = NOW()
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

// CloseEffective ends the effective window of the belief's open outgoing
// edges. Affecting zero rows is fine; the belief may have no open edges.
func (s *RelationshipStore) CloseEffective(ctx context.Context, sourceBeliefID uuid.UUID, until time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE belief_relationships
		 SET effective_until = $2, last_updated = NOW()
		 WHERE source_belief_id = $1 AND active AND effective_until IS NULL`,
		sourceBeliefID, until,
	)
	return err
}

var _ domain.RelationshipStore = (*RelationshipStore)(nil)

// Package store holds the pgx-backed persistence layer. One store struct
// per table, all sharing a single pgxpool.
package store

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// ErrNotFound is returned when a row does not exist. It carries the
// not_found kind so callers can classify it without unwrapping.
var ErrNotFound error = domain.E(domain.KindNotFound, "record not found")

// ErrVersionConflict is returned when an optimistic update loses the race:
// the row exists but its version moved past the expected one.
var ErrVersionConflict error = domain.E(domain.KindConflict, "version conflict: record was modified concurrently")

// vectorProbe caches whether the pgvector extension is installed. Probed
// once per store instance; a probe failure reads as "not available".
type vectorProbe struct {
	once sync.Once
	ok   bool
}

func (p *vectorProbe) check(ctx context.Context, db *pgxpool.Pool) bool {
	p.once.Do(func() {
		var ok bool
		err := db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`,
		).Scan(&ok)
		if err == nil {
			p.ok = ok
		}
	})
	return p.ok
}

// deprecatingTypeList renders the deprecating relation set as text for
// type = ANY($n) clauses.
func deprecatingTypeList() []string {
	types := make([]string, 0, len(domain.DeprecatingRelations))
	for t := range domain.DeprecatingRelations {
		types = append(types, string(t))
	}
	return types
}

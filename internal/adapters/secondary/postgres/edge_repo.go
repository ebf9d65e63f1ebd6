package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

type edgeRepo struct {
	pool *pgxpool.Pool
}

// NewEdgeRepository creates a new lineage edge repository
func NewEdgeRepository(pool *pgxpool.Pool) ports.EdgeRepository {
	return &edgeRepo{pool: pool}
}

func (r *edgeRepo) Append(ctx context.Context, e *domain.Edge) error {
	query := `
		INSERT INTO lineage_edge (child, parent, relation, actor, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`
	err := r.pool.QueryRow(ctx, query,
		e.Child.String(),
		e.Parent.String(),
		e.Relation,
		e.Actor,
		e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return &domain.UnknownComponentError{Fingerprints: []domain.Fingerprint{e.Child, e.Parent}}
		}
		return fmt.Errorf("insert lineage_edge: %w", err)
	}
	return nil
}

func (r *edgeRepo) List(ctx context.Context) ([]*domain.Edge, error) {
	query := `
		SELECT seq, child, parent, relation, actor, created_at
		FROM lineage_edge
		ORDER BY seq ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list lineage_edge: %w", err)
	}
	defer rows.Close()

	var out []*domain.Edge
	for rows.Next() {
		var (
			e             domain.Edge
			child, parent string
		)
		if err := rows.Scan(&e.Seq, &child, &parent, &e.Relation, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lineage_edge: %w", err)
		}
		if e.Child, err = domain.ParseFingerprint(child); err != nil {
			return nil, fmt.Errorf("edge %d child: %w", e.Seq, err)
		}
		if e.Parent, err = domain.ParseFingerprint(parent); err != nil {
			return nil, fmt.Errorf("edge %d parent: %w", e.Seq, err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

type snapshotRepo struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new BOM snapshot repository
func NewSnapshotRepository(pool *pgxpool.Pool) ports.SnapshotRepository {
	return &snapshotRepo{pool: pool}
}

const snapshotColumns = `id, project_id, created_at, roots, components, edges, predecessor_id`

func (r *snapshotRepo) Create(ctx context.Context, s *domain.Snapshot) error {
	rootsJSON, err := json.Marshal(s.Roots)
	if err != nil {
		return fmt.Errorf("marshal roots: %w", err)
	}
	componentsJSON, err := json.Marshal(s.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	edgesJSON, err := json.Marshal(s.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	query := `
		INSERT INTO bom_snapshot (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.ProjectID,
		s.CreatedAt,
		rootsJSON,
		componentsJSON,
		edgesJSON,
		s.PredecessorID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrSnapshotExists
		}
		return fmt.Errorf("insert bom_snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepo) GetByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM bom_snapshot WHERE id = $1`
	s, err := scanSnapshot(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, id)
		}
		return nil, fmt.Errorf("get bom_snapshot: %w", err)
	}
	return s, nil
}

func (r *snapshotRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM bom_snapshot
		WHERE project_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list bom_snapshot: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Snapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bom_snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var (
		s                                    domain.Snapshot
		rootsJSON, componentsJSON, edgesJSON []byte
	)
	if err := row.Scan(&s.ID, &s.ProjectID, &s.CreatedAt, &rootsJSON, &componentsJSON, &edgesJSON, &s.PredecessorID); err != nil {
		return nil, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	if err := json.Unmarshal(rootsJSON, &s.Roots); err != nil {
		return nil, fmt.Errorf("unmarshal roots: %w", err)
	}
	if err := json.Unmarshal(componentsJSON, &s.Components); err != nil {
		return nil, fmt.Errorf("unmarshal components: %w", err)
	}
	if err := json.Unmarshal(edgesJSON, &s.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	return &s, nil
}

// ============================================================================
// Signatures
// ============================================================================

type signatureRepo struct {
	pool *pgxpool.Pool
}

// NewSignatureRepository creates a new snapshot signature repository
func NewSignatureRepository(pool *pgxpool.Pool) ports.SignatureRepository {
	return &signatureRepo{pool: pool}
}

func (r *signatureRepo) Append(ctx context.Context, sig *domain.Signature) error {
	query := `
		INSERT INTO snapshot_signature (snapshot_id, key_id, algorithm, signature, actor, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		sig.SnapshotID,
		sig.KeyID,
		sig.Algorithm,
		sig.Signature,
		sig.Actor,
		sig.SignedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, sig.SnapshotID)
		}
		return fmt.Errorf("insert snapshot_signature: %w", err)
	}
	return nil
}

func (r *signatureRepo) ListBySnapshot(ctx context.Context, snapshotID string) ([]*domain.Signature, error) {
	query := `
		SELECT snapshot_id, key_id, algorithm, signature, actor, signed_at
		FROM snapshot_signature
		WHERE snapshot_id = $1
		ORDER BY signed_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot_signature: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Signature, 0)
	for rows.Next() {
		var sig domain.Signature
		if err := rows.Scan(&sig.SnapshotID, &sig.KeyID, &sig.Algorithm, &sig.Signature, &sig.Actor, &sig.SignedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot_signature: %w", err)
		}
		sig.SignedAt = sig.SignedAt.UTC()
		out = append(out, &sig)
	}
	return out, rows.Err()
}

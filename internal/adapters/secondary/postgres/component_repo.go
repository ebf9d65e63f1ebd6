package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

type componentRepo struct {
	pool *pgxpool.Pool
}

// NewComponentRepository creates a new component repository
func NewComponentRepository(pool *pgxpool.Pool) ports.ComponentRepository {
	return &componentRepo{pool: pool}
}

const componentColumns = `fingerprint, name, type, size_bytes, source_location, attributes, created_at`

func (r *componentRepo) Create(ctx context.Context, c *domain.Component) error {
	attrsJSON, err := json.Marshal(c.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	query := `
		INSERT INTO component (` + componentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (fingerprint) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query,
		c.Fingerprint.String(),
		c.Name,
		string(c.Type),
		c.SizeBytes,
		c.SourceLocation,
		attrsJSON,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert component: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrComponentExists
	}
	return nil
}

func (r *componentRepo) GetByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Component, error) {
	query := `SELECT ` + componentColumns + ` FROM component WHERE fingerprint = $1`
	c, err := scanComponent(r.pool.QueryRow(ctx, query, fp.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, fp)
		}
		return nil, fmt.Errorf("get component: %w", err)
	}
	return c, nil
}

func (r *componentRepo) List(ctx context.Context, filter ports.ComponentListFilter) ([]*domain.Component, error) {
	query := `
		SELECT ` + componentColumns + `
		FROM component
		WHERE ($1 = '' OR type = $1)
		  AND ($2::timestamptz IS NULL OR (created_at, fingerprint) > ($2, $3))
		ORDER BY created_at ASC, fingerprint ASC
		LIMIT $4
	`
	var after any
	if !filter.AfterCreatedAt.IsZero() {
		after = filter.AfterCreatedAt
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.pool.Query(ctx, query, string(filter.Type), after, filter.AfterFingerprint.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Component, 0)
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComponent(row pgx.Row) (*domain.Component, error) {
	var (
		c         domain.Component
		fpText    string
		typ       string
		attrsJSON []byte
	)
	if err := row.Scan(&fpText, &c.Name, &typ, &c.SizeBytes, &c.SourceLocation, &attrsJSON, &c.CreatedAt); err != nil {
		return nil, err
	}
	fp, err := domain.ParseFingerprint(fpText)
	if err != nil {
		return nil, fmt.Errorf("stored fingerprint %q: %w", fpText, err)
	}
	c.Fingerprint = fp
	c.Type = domain.ComponentType(typ)
	c.CreatedAt = c.CreatedAt.UTC()
	c.Attributes = map[string]string{}
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &c.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	return &c, nil
}

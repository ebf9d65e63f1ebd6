package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

type auditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(pool *pgxpool.Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	dataJSON, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("marshal audit data: %w", err)
	}
	query := `
		INSERT INTO audit_log (id, project_id, entity_type, entity_id, action, actor, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		entry.ID,
		entry.ProjectID,
		entry.EntityType,
		entry.EntityID,
		string(entry.Action),
		entry.Actor,
		dataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit_log: %w", err)
	}
	return nil
}

func (r *auditRepo) List(ctx context.Context, filter ports.AuditListFilter) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, project_id, entity_type, entity_id, action, actor, data, created_at
		FROM audit_log
		WHERE ($1 = '' OR entity_type = $1)
		  AND ($2 = '' OR entity_id = $2)
		  AND ($3 = '' OR action = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		ORDER BY created_at DESC
		LIMIT $5
	`
	var since any
	if !filter.Since.IsZero() {
		since = filter.Since
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, query, filter.EntityType, filter.EntityID, string(filter.Action), since, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit_log: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.AuditEntry, 0)
	for rows.Next() {
		var (
			e        domain.AuditEntry
			action   string
			dataJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.EntityType, &e.EntityID, &action, &e.Actor, &dataJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit_log: %w", err)
		}
		e.Action = domain.AuditAction(action)
		e.CreatedAt = e.CreatedAt.UTC()
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &e.Data); err != nil {
				return nil, fmt.Errorf("unmarshal audit data: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionRegister AuditAction = "REGISTER"
	AuditActionAddEdge  AuditAction = "ADD_EDGE"
	AuditActionRetract  AuditAction = "RETRACT_EDGE"
	AuditActionBuild    AuditAction = "BUILD_SNAPSHOT"
	AuditActionSign     AuditAction = "SIGN_SNAPSHOT"
	AuditActionVerify   AuditAction = "VERIFY"
)

const (
	AuditEntityComponent = "component"
	AuditEntityEdge      = "edge"
	AuditEntitySnapshot  = "snapshot"
)

// AuditEntry is an append-only record of an integrity-relevant action.
type AuditEntry struct {
	ID         uuid.UUID         `json:"id"`
	ProjectID  string            `json:"project_id,omitempty"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Action     AuditAction       `json:"action"`
	Actor      string            `json:"actor"`
	Data       map[string]string `json:"data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func NewAuditEntry(ctx context.Context, entityType, entityID string, action AuditAction, data map[string]string) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Actor:      ActorFromContext(ctx),
		Data:       data,
		CreatedAt:  time.Now().UTC(),
	}
}

// ============================================================================
// Actor propagation
// ============================================================================

type actorKey struct{}

const AnonymousActor = "anonymous"

func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return AnonymousActor
}

package ports

import (
	"context"
	"time"

	"ai-bom-service/internal/core/domain"
)

// ComponentListFilter pages the registry by (created_at, fingerprint)
// ascending. The zero After* values start from the beginning.
type ComponentListFilter struct {
	Type             domain.ComponentType
	AfterCreatedAt   time.Time
	AfterFingerprint domain.Fingerprint
	Limit            int
}

type AuditListFilter struct {
	EntityType string
	EntityID   string
	Action     domain.AuditAction
	Since      time.Time
	Limit      int
}

type ComponentRepository interface {
	// Create inserts the record if the fingerprint is absent and returns
	// domain.ErrComponentExists otherwise. It must be atomic.
	Create(ctx context.Context, component *domain.Component) error
	GetByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Component, error)
	List(ctx context.Context, filter ComponentListFilter) ([]*domain.Component, error)
}

type EdgeRepository interface {
	// Append stores the event and assigns its Seq.
	Append(ctx context.Context, edge *domain.Edge) error
	// List returns the whole edge log in Seq order.
	List(ctx context.Context) ([]*domain.Edge, error)
}

type SnapshotRepository interface {
	// Create returns domain.ErrSnapshotExists when the id is already stored.
	Create(ctx context.Context, snapshot *domain.Snapshot) error
	GetByID(ctx context.Context, id string) (*domain.Snapshot, error)
	// ListByProject returns snapshots oldest first.
	ListByProject(ctx context.Context, projectID string) ([]*domain.Snapshot, error)
}

type SignatureRepository interface {
	Append(ctx context.Context, sig *domain.Signature) error
	ListBySnapshot(ctx context.Context, snapshotID string) ([]*domain.Signature, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context, filter AuditListFilter) ([]*domain.AuditEntry, error)
}

// Store bundles the repositories of one storage driver.
type Store struct {
	Components ComponentRepository
	Edges      EdgeRepository
	Snapshots  SnapshotRepository
	Signatures SignatureRepository
	Audit      AuditRepository
	Close      func() error
}

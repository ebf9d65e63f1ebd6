package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

// MockComponentRepo is a mock of ComponentRepository.
type MockComponentRepo struct {
	mock.Mock
}

func (m *MockComponentRepo) Create(ctx context.Context, c *domain.Component) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockComponentRepo) GetByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Component, error) {
	args := m.Called(ctx, fp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Component), args.Error(1)
}

func (m *MockComponentRepo) List(ctx context.Context, filter ports.ComponentListFilter) ([]*domain.Component, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Component), args.Error(1)
}

// MockEdgeRepo is a mock of EdgeRepository.
type MockEdgeRepo struct {
	mock.Mock
}

func (m *MockEdgeRepo) Append(ctx context.Context, e *domain.Edge) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEdgeRepo) List(ctx context.Context) ([]*domain.Edge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Edge), args.Error(1)
}

// MockSnapshotRepo is a mock of SnapshotRepository.
type MockSnapshotRepo struct {
	mock.Mock
}

func (m *MockSnapshotRepo) Create(ctx context.Context, s *domain.Snapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSnapshotRepo) GetByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.Snapshot, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Snapshot), args.Error(1)
}

// MockSignatureRepo is a mock of SignatureRepository.
type MockSignatureRepo struct {
	mock.Mock
}

func (m *MockSignatureRepo) Append(ctx context.Context, sig *domain.Signature) error {
	args := m.Called(ctx, sig)
	return args.Error(0)
}

func (m *MockSignatureRepo) ListBySnapshot(ctx context.Context, snapshotID string) ([]*domain.Signature, error) {
	args := m.Called(ctx, snapshotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Signature), args.Error(1)
}

// MockAuditRepo is a mock of AuditRepository.
type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepo) List(ctx context.Context, filter ports.AuditListFilter) ([]*domain.AuditEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuditEntry), args.Error(1)
}

var (
	_ ports.ComponentRepository = (*MockComponentRepo)(nil)
	_ ports.EdgeRepository      = (*MockEdgeRepo)(nil)
	_ ports.SnapshotRepository  = (*MockSnapshotRepo)(nil)
	_ ports.SignatureRepository = (*MockSignatureRepo)(nil)
	_ ports.AuditRepository     = (*MockAuditRepo)(nil)
)

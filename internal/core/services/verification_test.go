package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/testutil"
)

func TestVerificationService_Verify_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.verify.Verify(context.Background(), sha(t, "never registered"))
	assert.ErrorIs(t, err, domain.ErrComponentNotFound)
}

func TestVerificationService_Verify_Unavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.put(t, "model.pt", domain.ComponentTypeModel, "weights")
	f.source.SetUnavailable("mem://model.pt", true)

	_, err := f.verify.Verify(ctx, c.Fingerprint)
	assert.ErrorIs(t, err, domain.ErrIOUnavailable)

	entries, err := f.audit.List(ctx, ports.AuditListFilter{Action: domain.AuditActionVerify})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "unavailable", entries[0].Data["status"])
}

func TestVerificationService_Verify_NoSourceLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fp := sha(t, "registered by digest only")
	_, _, err := f.registry.Register(ctx, domain.ComponentMetadata{Name: "x", Type: domain.ComponentTypeOther}, fp)
	require.NoError(t, err)

	_, err = f.verify.Verify(ctx, fp)
	assert.ErrorIs(t, err, domain.ErrIOUnavailable)
}

func TestVerificationService_Verify_MismatchPublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.put(t, "data.csv", domain.ComponentTypeDataset, "original")
	f.source.Put("mem://data.csv", []byte("tampered"))

	pub := new(testutil.MockPublisher)
	pub.On("Publish", mock.Anything, SubjectVerificationMismatch, mock.AnythingOfType("*domain.VerificationResult")).Return(nil).Once()
	svc := NewVerificationService(f.registry, f.source, f.engine, f.audit, pub, VerifyConfig{})

	result, err := svc.Verify(ctx, c.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationMismatch, result.Status)
	assert.Equal(t, sha(t, "tampered"), result.Actual)
	assert.Equal(t, int64(len("tampered")), result.SizeBytes)
	pub.AssertExpectations(t)
}

func TestVerificationService_VerifyAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(t, "ok.pt", domain.ComponentTypeModel, "ok")
	f.put(t, "flaky.pt", domain.ComponentTypeModel, "flaky")
	tampered := f.put(t, "tampered.csv", domain.ComponentTypeDataset, "clean")
	offline := f.put(t, "offline.csv", domain.ComponentTypeDataset, "offline")

	f.source.FailNext("mem://flaky.pt", 1)
	f.source.Put("mem://tampered.csv", []byte("dirty"))
	f.source.SetUnavailable("mem://offline.csv", true)

	report, err := f.verify.VerifyAll(ctx, ComponentFilter{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Checked)
	assert.Equal(t, 2, report.Verified)
	require.Len(t, report.Mismatched, 1)
	assert.Equal(t, tampered.Fingerprint, report.Mismatched[0].Fingerprint)
	require.Len(t, report.Unavailable, 1)
	assert.Equal(t, offline.Fingerprint, report.Unavailable[0].Fingerprint)

	// Counts include the open made by ingest.
	assert.Equal(t, 3, f.source.Opens("mem://flaky.pt"))
	assert.Equal(t, 2, f.source.Opens("mem://tampered.csv"))
	assert.Equal(t, 4, f.source.Opens("mem://offline.csv"))
}

func TestVerificationService_VerifyAll_AuditsOncePerComponent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offline := f.put(t, "offline.pt", domain.ComponentTypeModel, "offline")
	flaky := f.put(t, "flaky.pt", domain.ComponentTypeModel, "flaky")
	f.source.SetUnavailable("mem://offline.pt", true)
	f.source.FailNext("mem://flaky.pt", 1)

	report, err := f.verify.VerifyAll(ctx, ComponentFilter{})
	require.NoError(t, err)
	require.Len(t, report.Unavailable, 1)
	assert.Equal(t, 1, report.Verified)

	for fp, status := range map[domain.Fingerprint]string{offline.Fingerprint: "unavailable", flaky.Fingerprint: "verified"} {
		entries, err := f.audit.List(ctx, ports.AuditListFilter{EntityID: fp.String(), Action: domain.AuditActionVerify})
		require.NoError(t, err)
		require.Len(t, entries, 1, fp.String())
		assert.Equal(t, status, entries[0].Data["status"])
	}
}

func TestVerificationService_VerifyAll_TypeFilter(t *testing.T) {
	f := newFixture(t)
	f.put(t, "m.pt", domain.ComponentTypeModel, "m")
	f.put(t, "d.csv", domain.ComponentTypeDataset, "d")

	report, err := f.verify.VerifyAll(context.Background(), ComponentFilter{Type: domain.ComponentTypeDataset})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Verified)
}

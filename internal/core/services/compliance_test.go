package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-bom-service/internal/core/domain"
)

func controlResults(report *domain.ComplianceReport) map[string]domain.ControlResult {
	out := make(map[string]domain.ControlResult, len(report.Details))
	for _, d := range report.Details {
		out[d.Control] = d
	}
	return out
}

func TestComplianceService_Report(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.source.Put("mem://model.pt", []byte("weights"))
	model, _, err := f.ingest.Ingest(ctx, IngestRequest{
		Name: "model.pt", Type: domain.ComponentTypeModel, SourceLocation: "mem://model.pt",
		Attributes: map[string]string{"license": "apache-2.0"},
	})
	require.NoError(t, err)
	train := f.put(t, "train.csv", domain.ComponentTypeDataset, "train")
	holdout := f.put(t, "holdout.csv", domain.ComponentTypeDataset, "holdout")
	f.edge(t, model, train, domain.RelationTrainedOn)
	f.edge(t, model, holdout, domain.RelationEvaluatedOn)

	snap, _, err := f.snapshots.Build(ctx, "fraud", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)

	privPEM, _, _, err := GenerateSigningKey()
	require.NoError(t, err)
	key, err := ParseSigningKey(privPEM)
	require.NoError(t, err)
	signer := NewSigningService(f.store.Signatures, f.snapshots, key, f.audit)
	svc := NewComplianceService(f.snapshots, signer, f.audit)

	report, err := svc.Report(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, report.BomID)
	assert.Equal(t, len(domain.ComplianceMapping), report.Summary.Total)
	results := controlResults(report)
	assert.True(t, results["Traceability/Lineage"].Satisfied)
	assert.True(t, results["Risk management"].Satisfied)
	assert.True(t, results["Transparency"].Satisfied)
	assert.Equal(t, []string{domain.EvidenceSignatures}, results["Human oversight"].Missing)
	assert.Equal(t, []string{domain.EvidenceVerificationLogs}, results["Monitoring"].Missing)
	assert.Equal(t, 3, report.Summary.Satisfied)

	_, err = signer.Sign(ctx, snap.ID)
	require.NoError(t, err)
	_, err = f.verify.VerifyAll(ctx, ComponentFilter{})
	require.NoError(t, err)

	report, err = svc.Report(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Summary.Total, report.Summary.Satisfied)
}

func TestComplianceService_Report_MissingEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	model := f.put(t, "model.pt", domain.ComponentTypeModel, "weights")
	snap, _, err := f.snapshots.Build(ctx, "p", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)

	svc := NewComplianceService(f.snapshots, NewSigningService(f.store.Signatures, f.snapshots, nil, f.audit), f.audit)
	report, err := svc.Report(ctx, snap.ID)
	require.NoError(t, err)

	results := controlResults(report)
	assert.True(t, results["Traceability/Lineage"].Satisfied, "a lone component needs no edges")
	assert.Equal(t, []string{domain.EvidenceEvaluationEdges}, results["Risk management"].Missing)
	assert.Equal(t, []string{domain.EvidenceModelLicense}, results["Transparency"].Missing)

	_, err = svc.Report(ctx, "sha256:missing")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestComplianceService_DeployCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap, signer := buildSigned(t, f)
	svc := NewComplianceService(f.snapshots, signer, f.audit)

	check, err := svc.DeployCheck(ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, check.Intact)
	assert.True(t, check.HasModel)
	assert.False(t, check.Passed)
	assert.Equal(t, "unsigned BOM with model components", check.Reason)

	_, err = signer.Sign(ctx, snap.ID)
	require.NoError(t, err)
	check, err = svc.DeployCheck(ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, check.Passed)
	assert.Equal(t, 1, check.ValidSignatures)

	intruder := f.put(t, "intruder.bin", domain.ComponentTypeModel, "backdoor")
	tampered := NewSnapshotService(tamperedSnapshots{f.store.Snapshots, intruder.Fingerprint}, f.store.Components, f.lineage, f.engine, nil, nil)
	tamperedSvc := NewComplianceService(tampered, NewSigningService(f.store.Signatures, tampered, nil, nil), f.audit)
	check, err = tamperedSvc.DeployCheck(ctx, snap.ID)
	require.NoError(t, err)
	assert.False(t, check.Intact)
	assert.False(t, check.Passed)
}

func TestComplianceService_DeployCheck_DatasetOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := f.put(t, "data.csv", domain.ComponentTypeDataset, "rows")
	snap, _, err := f.snapshots.Build(ctx, "p", []domain.Fingerprint{data.Fingerprint})
	require.NoError(t, err)

	svc := NewComplianceService(f.snapshots, NewSigningService(f.store.Signatures, f.snapshots, nil, f.audit), f.audit)
	check, err := svc.DeployCheck(ctx, snap.ID)
	require.NoError(t, err)
	assert.False(t, check.HasModel)
	assert.True(t, check.Passed)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-bom-service/internal/core/domain"
)

func TestSnapshotService_Build_DeterministicID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	model := f.put(t, "model.pt", domain.ComponentTypeModel, "weights")
	data := f.put(t, "data.csv", domain.ComponentTypeDataset, "rows")
	f.edge(t, model, data, domain.RelationTrainedOn)

	first, created, err := f.snapshots.Build(ctx, "proj", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.snapshots.Build(ctx, "proj", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	history, err := f.snapshots.ListByProject(ctx, "proj")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSnapshotService_Build_ChangesWithGraph(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	model := f.put(t, "model.pt", domain.ComponentTypeModel, "weights")
	data := f.put(t, "data.csv", domain.ComponentTypeDataset, "rows")
	extra := f.put(t, "extra.csv", domain.ComponentTypeDataset, "more rows")
	f.edge(t, model, data, domain.RelationTrainedOn)

	v1, _, err := f.snapshots.Build(ctx, "proj", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)
	assert.Empty(t, v1.PredecessorID)

	f.edge(t, model, extra, domain.RelationTrainedOn)
	v2, created, err := f.snapshots.Build(ctx, "proj", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, v1.ID, v2.ID)
	assert.Equal(t, v1.ID, v2.PredecessorID)

	diff, err := f.snapshots.Diff(ctx, v1.ID, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Fingerprint{extra.Fingerprint}, diff.Added)
	assert.Empty(t, diff.Removed)
	require.Len(t, diff.AddedComponents, 1)
	assert.Equal(t, "extra.csv", diff.AddedComponents[0].Name)
	assert.Len(t, diff.AddedEdges, 1)

	// Same graph under another project is a different snapshot.
	other, created, err := f.snapshots.Build(ctx, "other", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, v2.ID, other.ID)
	assert.Empty(t, other.PredecessorID)

	summaries, err := f.snapshots.ListByProject(ctx, "proj")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, v1.ID, summaries[0].ID)
	assert.Equal(t, 3, summaries[1].ComponentCount)
}

func TestSnapshotService_SelfDiffEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	model := f.put(t, "model.pt", domain.ComponentTypeModel, "weights")

	snap, _, err := f.snapshots.Build(ctx, "proj", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)

	diff, err := f.snapshots.Diff(ctx, snap.ID, snap.ID)
	require.NoError(t, err)
	assert.True(t, diff.Empty())
	assert.Empty(t, diff.AddedComponents)
	assert.Empty(t, diff.RemovedComponents)
}

func TestSnapshotService_Build_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	model := f.put(t, "model.pt", domain.ComponentTypeModel, "weights")

	_, _, err := f.snapshots.Build(ctx, " ", []domain.Fingerprint{model.Fingerprint})
	assert.ErrorIs(t, err, domain.ErrMissingProjectID)

	_, _, err = f.snapshots.Build(ctx, "proj", nil)
	assert.ErrorIs(t, err, domain.ErrNoRoots)

	_, _, err = f.snapshots.Build(ctx, "proj", []domain.Fingerprint{sha(t, "ghost")})
	assert.ErrorIs(t, err, domain.ErrUnknownComponent)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = f.snapshots.Build(cancelled, "proj", []domain.Fingerprint{model.Fingerprint})
	assert.Error(t, err)
}

func TestSnapshotService_ViewAndIntegrity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	model := f.put(t, "model.pt", domain.ComponentTypeModel, "weights")
	data := f.put(t, "data.csv", domain.ComponentTypeDataset, "rows")
	f.edge(t, model, data, domain.RelationTrainedOn)

	snap, _, err := f.snapshots.Build(ctx, "proj", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)

	view, err := f.snapshots.View(ctx, snap.ID)
	require.NoError(t, err)
	assert.Len(t, view.ComponentRecords, 2)

	ok, digest, err := f.snapshots.VerifyIntegrity(ctx, snap.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, snap.ID, digest.String())

	_, err = f.snapshots.Get(ctx, "sha256:missing")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

// Register model.pt and data.csv, link them, build, verify, tamper, verify.
func TestScenario_BuildAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	model := f.put(t, "model.pt", domain.ComponentTypeModel, "model weights v1")
	data := f.put(t, "data.csv", domain.ComponentTypeDataset, "a,b\n1,2\n")
	assert.Equal(t, sha(t, "model weights v1"), model.Fingerprint)
	f.edge(t, model, data, domain.RelationTrainedOn)

	snap, _, err := f.snapshots.Build(ctx, "scenario", []domain.Fingerprint{model.Fingerprint})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Fingerprint{model.Fingerprint, data.Fingerprint}, snap.Components)
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, domain.EdgeKey{Child: model.Fingerprint, Parent: data.Fingerprint, Relation: domain.RelationTrainedOn}, snap.Edges[0])

	result, err := f.verify.Verify(ctx, data.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationVerified, result.Status)

	f.source.Put("mem://data.csv", []byte("a,b\n1,3\n"))
	result, err = f.verify.Verify(ctx, data.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationMismatch, result.Status)
	assert.Equal(t, data.Fingerprint, result.Expected)
	assert.NotEqual(t, data.Fingerprint, result.Actual)

	// The registry record is evidence and never rewritten.
	stored, err := f.registry.Get(ctx, data.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, data.Fingerprint, stored.Fingerprint)
}

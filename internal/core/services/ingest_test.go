package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/testutil"
)

func TestIngestService_Ingest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.Put("mem://model.pt", []byte("weights"))

	c, created, err := f.ingest.Ingest(ctx, IngestRequest{
		Name:           "model.pt",
		Type:           domain.ComponentTypeModel,
		SourceLocation: "mem://model.pt",
		Attributes:     map[string]string{"framework": "pytorch"},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, sha(t, "weights"), c.Fingerprint)
	assert.Equal(t, int64(7), c.SizeBytes)
	assert.Equal(t, "pytorch", c.Attributes["framework"])

	_, created, err = f.ingest.Ingest(ctx, IngestRequest{Name: "model.pt", Type: domain.ComponentTypeModel, SourceLocation: "mem://model.pt"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestIngestService_Ingest_ExpectedFingerprint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.Put("mem://data.csv", []byte("rows"))

	_, _, err := f.ingest.Ingest(ctx, IngestRequest{
		Name:                "data.csv",
		Type:                domain.ComponentTypeDataset,
		SourceLocation:      "mem://data.csv",
		ExpectedFingerprint: sha(t, "other rows"),
	})
	require.ErrorIs(t, err, domain.ErrMismatch)
	var mismatch *domain.MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, sha(t, "rows"), mismatch.Actual)

	missing, err := f.registry.Missing(ctx, sha(t, "rows"))
	require.NoError(t, err)
	assert.Len(t, missing, 1)
}

func TestIngestService_Ingest_Blake3(t *testing.T) {
	f := newFixture(t)
	f.source.Put("mem://a.bin", []byte("abc"))

	c, _, err := f.ingest.Ingest(context.Background(), IngestRequest{
		Name: "a.bin", Type: domain.ComponentTypeModel, SourceLocation: "mem://a.bin", Algorithm: domain.AlgorithmBLAKE3,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AlgorithmBLAKE3, c.Fingerprint.Algorithm)
	assert.Len(t, c.Fingerprint.Digest, 64)
}

func TestIngestService_Ingest_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.ingest.Ingest(ctx, IngestRequest{Name: "x", Type: domain.ComponentTypeModel})
	assert.ErrorIs(t, err, domain.ErrInvalidComponent)

	_, _, err = f.ingest.Ingest(ctx, IngestRequest{Name: "x", Type: domain.ComponentTypeModel, SourceLocation: "mem://absent"})
	assert.ErrorIs(t, err, domain.ErrIOUnavailable)

	f.source.Put("mem://x", []byte("x"))
	_, _, err = f.ingest.Ingest(ctx, IngestRequest{Name: "x", Type: domain.ComponentTypeModel, SourceLocation: "mem://x", Algorithm: "md5"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedAlgorithm)
}

func TestKServeImportService_Import(t *testing.T) {
	f := newFixture(t)
	f.source.Put("gs://models/resnet", []byte("resnet weights"))
	client := new(testutil.MockKServeClient)
	client.On("IsAvailable").Return(true)
	client.On("ListModelSources", mock.Anything, "serving").Return([]ports.KServeModelSource{
		{Namespace: "serving", Name: "resnet", UID: "u1", StorageURI: "gs://models/resnet", ModelFormat: "onnx"},
		{Namespace: "serving", Name: "custom"},
		{Namespace: "serving", Name: "broken", StorageURI: "gs://models/missing"},
	}, nil)

	svc := NewKServeImportService(client, f.ingest)
	report, err := svc.Import(context.Background(), "serving")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "serving/resnet", report.Results[0].Component.Name)
	assert.Equal(t, "onnx", report.Results[0].Component.Attributes["kserve.model_format"])
	assert.True(t, report.Results[1].Skipped)
	assert.NotEmpty(t, report.Results[2].Error)
}

func TestKServeImportService_Unavailable(t *testing.T) {
	client := new(testutil.MockKServeClient)
	client.On("IsAvailable").Return(false)

	_, err := NewKServeImportService(client, nil).Import(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrKServeNotAvailable)

	_, err = NewKServeImportService(nil, nil).Import(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrKServeNotAvailable)
}

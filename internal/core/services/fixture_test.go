package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ai-bom-service/internal/adapters/secondary/badgerstore"
	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/fingerprint"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/testutil"
)

// fixture wires every service over an in-memory badger store and a memory
// artifact source.
type fixture struct {
	store  *ports.Store
	source *testutil.MemorySource
	engine *fingerprint.Engine

	audit     *AuditService
	registry  *RegistryService
	lineage   *LineageService
	snapshots *SnapshotService
	ingest    *IngestService
	verify    *VerificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	store := s.Repositories()
	t.Cleanup(func() { _ = store.Close() })

	engine, err := fingerprint.New(domain.AlgorithmSHA256)
	require.NoError(t, err)

	f := &fixture{store: store, source: testutil.NewMemorySource(), engine: engine}
	events := NoopPublisher{}
	f.audit = NewAuditService(store.Audit)
	f.registry = NewRegistryService(store.Components, f.audit, events)
	f.lineage = NewLineageService(store.Edges, store.Components, f.audit, events, TraversalConfig{})
	require.NoError(t, f.lineage.Load(context.Background()))
	f.snapshots = NewSnapshotService(store.Snapshots, store.Components, f.lineage, engine, f.audit, events)
	f.ingest = NewIngestService(f.registry, f.source, engine)
	f.verify = NewVerificationService(f.registry, f.source, engine, f.audit, events, VerifyConfig{Concurrency: 2, MaxRetries: 2, RetryInterval: 1})
	return f
}

// put stores content at location and ingests it.
func (f *fixture) put(t *testing.T, name string, typ domain.ComponentType, content string) *domain.Component {
	t.Helper()
	location := "mem://" + name
	f.source.Put(location, []byte(content))
	c, _, err := f.ingest.Ingest(context.Background(), IngestRequest{Name: name, Type: typ, SourceLocation: location})
	require.NoError(t, err)
	return c
}

func (f *fixture) edge(t *testing.T, child, parent *domain.Component, relation string) {
	t.Helper()
	_, err := f.lineage.AddEdge(context.Background(), child.Fingerprint, parent.Fingerprint, relation)
	require.NoError(t, err)
}

func sha(t *testing.T, content string) domain.Fingerprint {
	t.Helper()
	engine, err := fingerprint.New(domain.AlgorithmSHA256)
	require.NoError(t, err)
	return engine.FingerprintBytes([]byte(content))
}

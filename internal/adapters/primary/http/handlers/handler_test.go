package handlers

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ai-bom-service/internal/adapters/primary/http/dto"
	"ai-bom-service/internal/adapters/primary/http/middleware"
	"ai-bom-service/internal/adapters/secondary/badgerstore"
	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/fingerprint"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/core/services"
	"ai-bom-service/internal/testutil"
)

type testServer struct {
	router *gin.Engine
	source *testutil.MemorySource
	kserve *testutil.MockKServeClient
}

func newTestServer(t *testing.T, key ed25519.PrivateKey) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	store := s.Repositories()
	t.Cleanup(func() { _ = store.Close() })

	engine, err := fingerprint.New(domain.AlgorithmSHA256)
	require.NoError(t, err)

	source := testutil.NewMemorySource()
	kserve := new(testutil.MockKServeClient)
	events := services.NoopPublisher{}

	audit := services.NewAuditService(store.Audit)
	registry := services.NewRegistryService(store.Components, audit, events)
	lineage := services.NewLineageService(store.Edges, store.Components, audit, events, services.TraversalConfig{})
	require.NoError(t, lineage.Load(context.Background()))
	snapshots := services.NewSnapshotService(store.Snapshots, store.Components, lineage, engine, audit, events)
	ingest := services.NewIngestService(registry, source, engine)
	verify := services.NewVerificationService(registry, source, engine, audit, events, services.VerifyConfig{Concurrency: 2, MaxRetries: 1, RetryInterval: 1})
	signing := services.NewSigningService(store.Signatures, snapshots, key, audit)
	compliance := services.NewComplianceService(snapshots, signing, audit)
	export := services.NewExportService(snapshots, store.Signatures, compliance)
	imports := services.NewKServeImportService(kserve, ingest)

	h := New(registry, ingest, lineage, snapshots, verify, signing, compliance, export, imports, audit)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Actor())
	h.RegisterRoutes(r.Group("/api/v1"))

	return &testServer{router: r, source: source, kserve: kserve}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// ingest stores content in the memory source and registers it over HTTP.
func (s *testServer) ingest(t *testing.T, name, typ, content string) string {
	t.Helper()
	location := "mem://" + name
	s.source.Put(location, []byte(content))
	w := s.do(t, http.MethodPost, "/artifacts", dto.IngestArtifactRequest{Name: name, Type: typ, SourceLocation: location})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.RegisterComponentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Component.Fingerprint
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// ============================================================================
// Components
// ============================================================================

func TestIngestArtifact(t *testing.T) {
	srv := newTestServer(t, nil)

	fp := srv.ingest(t, "model.pt", "model", "weights")
	assert.Contains(t, fp, "sha256:")

	// Same bytes again: existing record, 200.
	w := srv.do(t, http.MethodPost, "/artifacts", dto.IngestArtifactRequest{Name: "model.pt", Type: "model", SourceLocation: "mem://model.pt"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[dto.RegisterComponentResponse](t, w).Created)

	// Same bytes, different type.
	w = srv.do(t, http.MethodPost, "/artifacts", dto.IngestArtifactRequest{Name: "model.pt", Type: "dataset", SourceLocation: "mem://model.pt"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "type", decode[map[string]any](t, w)["field"])
}

func TestIngestArtifact_Errors(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(t, http.MethodPost, "/artifacts", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/artifacts", dto.IngestArtifactRequest{Name: "gone", Type: "model", SourceLocation: "mem://gone"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	srv.source.Put("mem://x", []byte("x"))
	w = srv.do(t, http.MethodPost, "/artifacts", dto.IngestArtifactRequest{
		Name: "x", Type: "model", SourceLocation: "mem://x",
		ExpectedFingerprint: "sha256:" + string(bytes.Repeat([]byte("0"), 64)),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "actual")
}

func TestRegisterAndGetComponent(t *testing.T) {
	srv := newTestServer(t, nil)
	fp := "sha256:" + string(bytes.Repeat([]byte("ab"), 32))

	w := srv.do(t, http.MethodPost, "/components", dto.RegisterComponentRequest{Fingerprint: fp, Name: "ds", Type: "dataset", SizeBytes: 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = srv.do(t, http.MethodGet, "/components/"+fp, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ds", decode[dto.ComponentResponse](t, w).Name)

	w = srv.do(t, http.MethodGet, "/components/sha256:"+string(bytes.Repeat([]byte("cd"), 32)), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/components/not-a-fingerprint", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListComponents(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.ingest(t, "a.pt", "model", "A")
	srv.ingest(t, "b.csv", "dataset", "B")
	srv.ingest(t, "c.pt", "model", "C")

	w := srv.do(t, http.MethodGet, "/components?type=model", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[dto.ListComponentsResponse](t, w).Count)

	w = srv.do(t, http.MethodGet, "/components?limit=1", nil)
	assert.Equal(t, 1, decode[dto.ListComponentsResponse](t, w).Count)

	w = srv.do(t, http.MethodGet, "/components?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================================================
// Lineage
// ============================================================================

func TestAddEdge_CycleAndUnknown(t *testing.T) {
	srv := newTestServer(t, nil)
	model := srv.ingest(t, "model.pt", "model", "M")
	data := srv.ingest(t, "data.csv", "dataset", "D")

	w := srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: model, Parent: data, Relation: domain.RelationTrainedOn}, middleware.HeaderActor, "alice")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "alice", decode[dto.EdgeResponse](t, w).Actor)

	w = srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: data, Parent: model, Relation: domain.RelationDerivedFrom})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, domain.ErrCycleDetected.Error(), body["error"])
	assert.NotEmpty(t, body["path"])

	missing := "sha256:" + string(bytes.Repeat([]byte("ee"), 32))
	w = srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: model, Parent: missing, Relation: domain.RelationDerivedFrom})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []any{missing}, decode[map[string]any](t, w)["fingerprints"])

	w = srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: model, Parent: data, Relation: "Bad Relation"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetractEdgeAndList(t *testing.T) {
	srv := newTestServer(t, nil)
	model := srv.ingest(t, "model.pt", "model", "M")
	data := srv.ingest(t, "data.csv", "dataset", "D")
	edge := dto.EdgeRequest{Child: model, Parent: data, Relation: domain.RelationTrainedOn}

	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/edges", edge).Code)
	w := srv.do(t, http.MethodGet, "/edges?fingerprint="+model, nil)
	assert.Equal(t, 1, decode[dto.ListEdgesResponse](t, w).Count)

	w = srv.do(t, http.MethodPost, "/edges/retractions", edge)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, domain.TombstoneRelation(domain.RelationTrainedOn), decode[dto.EdgeResponse](t, w).Relation)

	w = srv.do(t, http.MethodGet, "/edges", nil)
	assert.Equal(t, 0, decode[dto.ListEdgesResponse](t, w).Count)

	w = srv.do(t, http.MethodPost, "/edges/retractions", edge)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTraversals(t *testing.T) {
	srv := newTestServer(t, nil)
	base := srv.ingest(t, "base.pt", "model", "base")
	tuned := srv.ingest(t, "tuned.pt", "model", "tuned")
	data := srv.ingest(t, "data.csv", "dataset", "data")
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: tuned, Parent: base, Relation: domain.RelationFineTunedFrom}).Code)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: base, Parent: data, Relation: domain.RelationTrainedOn}).Code)

	w := srv.do(t, http.MethodGet, "/components/"+tuned+"/ancestors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.TraversalResponse](t, w)
	assert.Len(t, resp.Components, 2)
	assert.True(t, resp.Complete)

	w = srv.do(t, http.MethodGet, "/components/"+tuned+"/ancestors?max_depth=1", nil)
	resp = decode[dto.TraversalResponse](t, w)
	assert.Len(t, resp.Components, 1)
	assert.Equal(t, base, resp.Components[0].Fingerprint)

	w = srv.do(t, http.MethodGet, "/components/"+data+"/descendants", nil)
	assert.Len(t, decode[dto.TraversalResponse](t, w).Components, 2)
}

// ============================================================================
// BOM snapshots
// ============================================================================

func buildLineage(t *testing.T, srv *testServer) (model, data string) {
	t.Helper()
	model = srv.ingest(t, "model.pt", "model", "M")
	data = srv.ingest(t, "data.csv", "dataset", "D")
	w := srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: model, Parent: data, Relation: domain.RelationTrainedOn})
	require.Equal(t, http.StatusCreated, w.Code)
	return model, data
}

func TestBuildBom(t *testing.T) {
	srv := newTestServer(t, nil)
	model, _ := buildLineage(t, srv)

	w := srv.do(t, http.MethodPost, "/projects/fraud/boms", dto.BuildSnapshotRequest{Roots: []string{model}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[dto.BuildSnapshotResponse](t, w)
	assert.Equal(t, 2, first.ComponentCount)
	assert.Equal(t, 1, first.EdgeCount)

	w = srv.do(t, http.MethodPost, "/projects/fraud/boms", dto.BuildSnapshotRequest{Roots: []string{model}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.BomID, decode[dto.BuildSnapshotResponse](t, w).BomID)

	w = srv.do(t, http.MethodGet, "/projects/fraud/boms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]dto.BomSummaryResponse](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, first.BomID, history[0].BomID)

	w = srv.do(t, http.MethodGet, "/boms/"+first.BomID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[dto.SnapshotResponse](t, w)
	assert.Len(t, view.Components, 2)
	assert.Equal(t, "fraud", view.ProjectID)

	w = srv.do(t, http.MethodPost, "/projects/fraud/boms", dto.BuildSnapshotRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiffBoms(t *testing.T) {
	srv := newTestServer(t, nil)
	model, _ := buildLineage(t, srv)

	first := decode[dto.BuildSnapshotResponse](t, srv.do(t, http.MethodPost, "/projects/p/boms", dto.BuildSnapshotRequest{Roots: []string{model}}))
	code := srv.ingest(t, "train.py", "code", "print()")
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: model, Parent: code, Relation: domain.RelationDerivedFrom}).Code)
	second := decode[dto.BuildSnapshotResponse](t, srv.do(t, http.MethodPost, "/projects/p/boms", dto.BuildSnapshotRequest{Roots: []string{model}}))
	assert.Equal(t, first.BomID, second.PredecessorID)

	w := srv.do(t, http.MethodGet, "/boms/"+first.BomID+"/diff/"+second.BomID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	diff := decode[dto.DiffResponse](t, w)
	require.Len(t, diff.AddedComponents, 1)
	assert.Equal(t, code, diff.AddedComponents[0].Fingerprint)
	assert.Len(t, diff.AddedEdges, 1)
	assert.Empty(t, diff.RemovedComponents)

	w = srv.do(t, http.MethodGet, "/boms/"+first.BomID+"/diff/sha256:missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportBom(t *testing.T) {
	srv := newTestServer(t, nil)
	model, _ := buildLineage(t, srv)
	bom := decode[dto.BuildSnapshotResponse](t, srv.do(t, http.MethodPost, "/projects/p/boms", dto.BuildSnapshotRequest{Roots: []string{model}}))

	w := srv.do(t, http.MethodGet, "/boms/"+bom.BomID+"/export?format=cbor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/cbor", w.Header().Get("Content-Type"))
	var doc map[string]any
	require.NoError(t, cbor.Unmarshal(w.Body.Bytes(), &doc))
	assert.NotEmpty(t, doc)

	w = srv.do(t, http.MethodGet, "/boms/"+bom.BomID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	w = srv.do(t, http.MethodGet, "/boms/"+bom.BomID+"/export?format=spdx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignBom(t *testing.T) {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	srv := newTestServer(t, key)
	model, _ := buildLineage(t, srv)
	bom := decode[dto.BuildSnapshotResponse](t, srv.do(t, http.MethodPost, "/projects/p/boms", dto.BuildSnapshotRequest{Roots: []string{model}}))

	w := srv.do(t, http.MethodPost, "/boms/"+bom.BomID+"/signatures", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, services.KeyID(key.Public().(ed25519.PublicKey)), decode[dto.SignatureResponse](t, w).KeyID)

	w = srv.do(t, http.MethodGet, "/boms/"+bom.BomID+"/signatures", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sigs := decode[[]dto.SignatureResponse](t, w)
	require.Len(t, sigs, 1)
	require.NotNil(t, sigs[0].Valid)
	assert.True(t, *sigs[0].Valid)
}

func TestSignBom_NoKey(t *testing.T) {
	srv := newTestServer(t, nil)
	model, _ := buildLineage(t, srv)
	bom := decode[dto.BuildSnapshotResponse](t, srv.do(t, http.MethodPost, "/projects/p/boms", dto.BuildSnapshotRequest{Roots: []string{model}}))

	w := srv.do(t, http.MethodPost, "/boms/"+bom.BomID+"/signatures", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ============================================================================
// Compliance
// ============================================================================

func TestListMappings(t *testing.T) {
	srv := newTestServer(t, nil)
	w := srv.do(t, http.MethodGet, "/mappings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Mappings []domain.ComplianceControl `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Mappings, len(domain.ComplianceMapping))
	assert.Equal(t, "Technical documentation & logs", body.Mappings[0].Frameworks[domain.FrameworkEUAIAct])
}

func TestDeployCheckAndCompliance(t *testing.T) {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	srv := newTestServer(t, key)
	model, _ := buildLineage(t, srv)
	bom := decode[dto.BuildSnapshotResponse](t, srv.do(t, http.MethodPost, "/projects/p/boms", dto.BuildSnapshotRequest{Roots: []string{model}}))

	w := srv.do(t, http.MethodGet, "/boms/"+bom.BomID+"/deploy-check", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	check := decode[domain.DeployCheck](t, w)
	assert.True(t, check.HasModel)
	assert.False(t, check.Passed)

	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/boms/"+bom.BomID+"/signatures", nil).Code)

	w = srv.do(t, http.MethodGet, "/boms/"+bom.BomID+"/deploy-check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[domain.DeployCheck](t, w).ValidSignatures)

	w = srv.do(t, http.MethodGet, "/boms/"+bom.BomID+"/compliance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[domain.ComplianceReport](t, w)
	assert.Equal(t, len(domain.ComplianceMapping), report.Summary.Total)
	for _, d := range report.Details {
		if d.Control == "Human oversight" {
			assert.True(t, d.Satisfied)
		}
	}

	w = srv.do(t, http.MethodGet, "/boms/sha256:"+strings.Repeat("0", 64)+"/compliance", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ============================================================================
// Verification
// ============================================================================

func TestVerifyComponent(t *testing.T) {
	srv := newTestServer(t, nil)
	fp := srv.ingest(t, "model.pt", "model", "original")

	w := srv.do(t, http.MethodGet, "/verify/"+fp, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.VerificationVerified, decode[domain.VerificationResult](t, w).Status)

	srv.source.Put("mem://model.pt", []byte("tampered"))
	w = srv.do(t, http.MethodGet, "/verify/"+fp, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	result := decode[domain.VerificationResult](t, w)
	assert.Equal(t, domain.VerificationMismatch, result.Status)
	assert.Equal(t, fp, result.Expected.String())

	srv.source.SetUnavailable("mem://model.pt", true)
	w = srv.do(t, http.MethodGet, "/verify/"+fp, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = srv.do(t, http.MethodGet, "/verify/sha256:"+string(bytes.Repeat([]byte("01"), 32)), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyAll(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.ingest(t, "a.pt", "model", "A")
	srv.ingest(t, "b.csv", "dataset", "B")
	srv.source.Put("mem://b.csv", []byte("changed"))

	w := srv.do(t, http.MethodPost, "/verify", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[domain.VerificationReport](t, w)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Verified)
	assert.Len(t, report.Mismatched, 1)

	w = srv.do(t, http.MethodPost, "/verify", dto.VerifyAllRequest{Type: "model"})
	assert.Equal(t, 1, decode[domain.VerificationReport](t, w).Checked)
}

// ============================================================================
// Imports and audit
// ============================================================================

func TestImportKServe(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.source.Put("gs://models/fraud", []byte("fraud model"))
	srv.kserve.On("IsAvailable").Return(true)
	srv.kserve.On("ListModelSources", mock.Anything, "serving").Return([]ports.KServeModelSource{
		{Namespace: "serving", Name: "fraud", StorageURI: "gs://models/fraud", ModelFormat: "sklearn"},
		{Namespace: "serving", Name: "empty"},
	}, nil)

	w := srv.do(t, http.MethodPost, "/imports/kserve", dto.ImportKServeRequest{Namespace: "serving"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[services.KServeImportReport](t, w)
	assert.Equal(t, 1, report.Imported)
	assert.Len(t, report.Results, 2)
	srv.kserve.AssertExpectations(t)
}

func TestImportKServe_Disabled(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.kserve.On("IsAvailable").Return(false)

	w := srv.do(t, http.MethodPost, "/imports/kserve", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListAudit(t *testing.T) {
	srv := newTestServer(t, nil)
	buildLineage(t, srv)

	w := srv.do(t, http.MethodGet, "/audit?action="+string(domain.AuditActionAddEdge), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, body["count"])

	w = srv.do(t, http.MethodGet, "/audit?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

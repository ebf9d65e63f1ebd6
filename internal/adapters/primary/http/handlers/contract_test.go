package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-bom-service/internal/adapters/primary/http/dto"
)

// Contract tests pin the JSON field names and types clients depend on.

func assertFieldString(t *testing.T, resp map[string]any, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isStr := val.(string)
		assert.True(t, isStr, "field %q should be string, got %T", key, val)
	}
}

func assertFieldNumber(t *testing.T, resp map[string]any, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isNum := val.(float64)
		assert.True(t, isNum, "field %q should be number, got %T", key, val)
	}
}

func assertFieldArray(t *testing.T, resp map[string]any, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isArr := val.([]any)
		assert.True(t, isArr, "field %q should be array, got %T", key, val)
	}
}

func TestContract_BomHistory(t *testing.T) {
	srv := newTestServer(t, nil)
	model, _ := buildLineage(t, srv)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/projects/p/boms", dto.BuildSnapshotRequest{Roots: []string{model}}).Code)

	w := srv.do(t, http.MethodGet, "/projects/p/boms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]map[string]any](t, w)
	require.Len(t, history, 1)

	entry := history[0]
	assertFieldString(t, entry, "bomId")
	assertFieldString(t, entry, "timestamp")
	assertFieldNumber(t, entry, "componentCount")
	assertFieldNumber(t, entry, "edgeCount")
	assert.NotContains(t, entry, "predecessorId", "first snapshot has no predecessor")
}

func TestContract_Component(t *testing.T) {
	srv := newTestServer(t, nil)
	fp := srv.ingest(t, "model.pt", "model", "weights")

	w := srv.do(t, http.MethodGet, "/components/"+fp, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)

	for _, key := range []string{"fingerprint", "algorithm", "name", "type", "source_location", "created_at"} {
		assertFieldString(t, resp, key)
	}
	assertFieldNumber(t, resp, "size_bytes")
	assert.Equal(t, "sha256", resp["algorithm"])
}

func TestContract_SnapshotView(t *testing.T) {
	srv := newTestServer(t, nil)
	model, _ := buildLineage(t, srv)
	bom := decode[dto.BuildSnapshotResponse](t, srv.do(t, http.MethodPost, "/projects/p/boms", dto.BuildSnapshotRequest{Roots: []string{model}}))

	w := srv.do(t, http.MethodGet, "/boms/"+bom.BomID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)

	assertFieldString(t, resp, "bom_id")
	assertFieldString(t, resp, "project_id")
	assertFieldString(t, resp, "created_at")
	assertFieldArray(t, resp, "roots")
	assertFieldArray(t, resp, "components")
	assertFieldArray(t, resp, "edges")
}

func TestContract_CycleError(t *testing.T) {
	srv := newTestServer(t, nil)
	model, data := buildLineage(t, srv)

	w := srv.do(t, http.MethodPost, "/edges", dto.EdgeRequest{Child: data, Parent: model, Relation: "derived-from"})
	require.Equal(t, http.StatusConflict, w.Code)
	resp := decode[map[string]any](t, w)

	assertFieldString(t, resp, "error")
	assertFieldArray(t, resp, "path")
	edge, ok := resp["edge"].(map[string]any)
	require.True(t, ok, "edge should be an object")
	assertFieldString(t, edge, "child")
	assertFieldString(t, edge, "parent")
	assertFieldString(t, edge, "relation")
}

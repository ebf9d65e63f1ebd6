package dto

import (
	"time"

	"ai-bom-service/internal/core/domain"
)

type BuildSnapshotRequest struct {
	Roots []string `json:"roots" binding:"required,min=1"`
}

// BomSummaryResponse is one entry of a project's BOM history.
type BomSummaryResponse struct {
	BomID          string `json:"bomId"`
	Timestamp      string `json:"timestamp"`
	ComponentCount int    `json:"componentCount"`
	EdgeCount      int    `json:"edgeCount"`
	PredecessorID  string `json:"predecessorId,omitempty"`
}

type SnapshotResponse struct {
	BomID         string              `json:"bom_id"`
	ProjectID     string              `json:"project_id"`
	CreatedAt     string              `json:"created_at"`
	PredecessorID string              `json:"predecessor_id,omitempty"`
	Roots         []string            `json:"roots"`
	Components    []ComponentResponse `json:"components"`
	Edges         []EdgeKeyResponse   `json:"edges"`
}

type BuildSnapshotResponse struct {
	BomID          string `json:"bom_id"`
	ProjectID      string `json:"project_id"`
	CreatedAt      string `json:"created_at"`
	PredecessorID  string `json:"predecessor_id,omitempty"`
	ComponentCount int    `json:"component_count"`
	EdgeCount      int    `json:"edge_count"`
	Created        bool   `json:"created"`
}

type DiffResponse struct {
	From              string              `json:"from"`
	To                string              `json:"to"`
	AddedComponents   []ComponentResponse `json:"added_components"`
	RemovedComponents []ComponentResponse `json:"removed_components"`
	AddedEdges        []EdgeKeyResponse   `json:"added_edges"`
	RemovedEdges      []EdgeKeyResponse   `json:"removed_edges"`
}

type SignatureResponse struct {
	BomID     string `json:"bom_id"`
	KeyID     string `json:"key_id"`
	Algorithm string `json:"algorithm"`
	Signature string `json:"signature"`
	SignedAt  string `json:"signed_at"`
	Actor     string `json:"actor,omitempty"`
	Valid     *bool  `json:"valid,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func ToBomSummaryResponse(s domain.SnapshotSummary) BomSummaryResponse {
	return BomSummaryResponse{
		BomID:          s.ID,
		Timestamp:      s.CreatedAt.Format(time.RFC3339Nano),
		ComponentCount: s.ComponentCount,
		EdgeCount:      s.EdgeCount,
		PredecessorID:  s.PredecessorID,
	}
}

func ToSnapshotResponse(v *domain.SnapshotView) SnapshotResponse {
	return SnapshotResponse{
		BomID:         v.ID,
		ProjectID:     v.ProjectID,
		CreatedAt:     v.CreatedAt.Format(time.RFC3339Nano),
		PredecessorID: v.PredecessorID,
		Roots:         FingerprintStrings(v.Roots),
		Components:    ToComponentResponses(v.ComponentRecords),
		Edges:         ToEdgeKeyResponses(v.Edges),
	}
}

func ToBuildSnapshotResponse(s *domain.Snapshot, created bool) BuildSnapshotResponse {
	return BuildSnapshotResponse{
		BomID:          s.ID,
		ProjectID:      s.ProjectID,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339Nano),
		PredecessorID:  s.PredecessorID,
		ComponentCount: len(s.Components),
		EdgeCount:      len(s.Edges),
		Created:        created,
	}
}

func ToDiffResponse(d *domain.DiffView) DiffResponse {
	return DiffResponse{
		From:              d.From,
		To:                d.To,
		AddedComponents:   ToComponentResponses(d.AddedComponents),
		RemovedComponents: ToComponentResponses(d.RemovedComponents),
		AddedEdges:        ToEdgeKeyResponses(d.AddedEdges),
		RemovedEdges:      ToEdgeKeyResponses(d.RemovedEdges),
	}
}

func ToSignatureResponse(sig *domain.Signature) SignatureResponse {
	return SignatureResponse{
		BomID:     sig.SnapshotID,
		KeyID:     sig.KeyID,
		Algorithm: sig.Algorithm,
		Signature: sig.Signature,
		SignedAt:  sig.SignedAt.Format(time.RFC3339Nano),
		Actor:     sig.Actor,
	}
}

func ToSignatureCheckResponse(check domain.SignatureCheck) SignatureResponse {
	resp := ToSignatureResponse(&check.Signature)
	valid := check.Valid
	resp.Valid = &valid
	resp.Reason = check.Reason
	return resp
}

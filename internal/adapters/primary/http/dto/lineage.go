package dto

import (
	"time"

	"ai-bom-service/internal/core/domain"
)

type EdgeRequest struct {
	Child    string `json:"child" binding:"required"`
	Parent   string `json:"parent" binding:"required"`
	Relation string `json:"relation" binding:"required"`
}

type EdgeResponse struct {
	Seq       int64  `json:"seq"`
	Child     string `json:"child"`
	Parent    string `json:"parent"`
	Relation  string `json:"relation"`
	CreatedAt string `json:"created_at"`
	Actor     string `json:"actor,omitempty"`
}

type EdgeKeyResponse struct {
	Child    string `json:"child"`
	Parent   string `json:"parent"`
	Relation string `json:"relation"`
}

type ListEdgesResponse struct {
	Items []EdgeResponse `json:"items"`
	Count int            `json:"count"`
}

func ToEdgeResponse(e *domain.Edge) EdgeResponse {
	return EdgeResponse{
		Seq:       e.Seq,
		Child:     e.Child.String(),
		Parent:    e.Parent.String(),
		Relation:  e.Relation,
		CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		Actor:     e.Actor,
	}
}

func ToEdgeKeyResponses(keys []domain.EdgeKey) []EdgeKeyResponse {
	out := make([]EdgeKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, EdgeKeyResponse{Child: k.Child.String(), Parent: k.Parent.String(), Relation: k.Relation})
	}
	return out
}

func FingerprintStrings(fps []domain.Fingerprint) []string {
	out := make([]string, 0, len(fps))
	for _, fp := range fps {
		out = append(out, fp.String())
	}
	return out
}

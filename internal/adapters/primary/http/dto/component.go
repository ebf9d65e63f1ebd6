package dto

import (
	"time"

	"ai-bom-service/internal/core/domain"
)

type RegisterComponentRequest struct {
	Fingerprint    string            `json:"fingerprint" binding:"required"`
	Name           string            `json:"name" binding:"required,max=512"`
	Type           string            `json:"type" binding:"required"`
	SizeBytes      int64             `json:"size_bytes" binding:"gte=0"`
	SourceLocation string            `json:"source_location"`
	Attributes     map[string]string `json:"attributes"`
}

// IngestArtifactRequest asks the service to read and fingerprint the
// artifact itself.
type IngestArtifactRequest struct {
	Name                string            `json:"name" binding:"required,max=512"`
	Type                string            `json:"type" binding:"required"`
	SourceLocation      string            `json:"source_location" binding:"required"`
	Attributes          map[string]string `json:"attributes"`
	ExpectedFingerprint string            `json:"expected_fingerprint"`
	Algorithm           string            `json:"algorithm"`
}

type ComponentResponse struct {
	Fingerprint    string            `json:"fingerprint"`
	Algorithm      string            `json:"algorithm"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	SizeBytes      int64             `json:"size_bytes"`
	SourceLocation string            `json:"source_location"`
	CreatedAt      string            `json:"created_at"`
	Attributes     map[string]string `json:"attributes"`
}

type RegisterComponentResponse struct {
	Component ComponentResponse `json:"component"`
	Created   bool              `json:"created"`
}

type ListComponentsResponse struct {
	Items []ComponentResponse `json:"items"`
	Count int                 `json:"count"`
}

type TraversalResponse struct {
	Origin      string              `json:"origin"`
	Direction   string              `json:"direction"`
	Components  []ComponentResponse `json:"components"`
	Complete    bool                `json:"complete"`
	TruncatedBy string              `json:"truncated_by,omitempty"`
}

func ToComponentResponse(c *domain.Component) ComponentResponse {
	attrs := c.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return ComponentResponse{
		Fingerprint:    c.Fingerprint.String(),
		Algorithm:      string(c.Fingerprint.Algorithm),
		Name:           c.Name,
		Type:           string(c.Type),
		SizeBytes:      c.SizeBytes,
		SourceLocation: c.SourceLocation,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339Nano),
		Attributes:     attrs,
	}
}

func ToComponentResponses(components []*domain.Component) []ComponentResponse {
	items := make([]ComponentResponse, 0, len(components))
	for _, c := range components {
		items = append(items, ToComponentResponse(c))
	}
	return items
}

func ToTraversalResponse(t *domain.Traversal, direction string) TraversalResponse {
	return TraversalResponse{
		Origin:      t.Origin.String(),
		Direction:   direction,
		Components:  ToComponentResponses(t.Components),
		Complete:    t.Complete,
		TruncatedBy: string(t.TruncatedBy),
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/fingerprint"
	ports "ai-bom-service/internal/core/ports/output"
)

type ExportFormat string

const (
	ExportJSON   ExportFormat = "json"
	ExportJSONLD ExportFormat = "jsonld"
	ExportYAML   ExportFormat = "yaml"
	ExportCBOR   ExportFormat = "cbor"
	ExportC2PA   ExportFormat = "c2pa"
)

// ContentType is the media type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportJSONLD:
		return "application/ld+json"
	case ExportYAML:
		return "application/yaml"
	case ExportCBOR:
		return "application/cbor"
	}
	return "application/json"
}

// Extension is the file extension used by the CLI.
func (f ExportFormat) Extension() string {
	switch f {
	case ExportC2PA:
		return ".c2pa.json"
	case ExportYAML:
		return ".yaml"
	}
	return "." + string(f)
}

type exportComponent struct {
	Fingerprint    string            `json:"fingerprint" yaml:"fingerprint"`
	Name           string            `json:"name" yaml:"name"`
	Type           string            `json:"type" yaml:"type"`
	SizeBytes      int64             `json:"size_bytes" yaml:"size_bytes"`
	SourceLocation string            `json:"source_location,omitempty" yaml:"source_location,omitempty"`
	CreatedAt      time.Time         `json:"created_at" yaml:"created_at"`
	Attributes     map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

type exportEdge struct {
	Child    string `json:"child" yaml:"child"`
	Parent   string `json:"parent" yaml:"parent"`
	Relation string `json:"relation" yaml:"relation"`
}

type exportSignature struct {
	KeyID     string    `json:"key_id" yaml:"key_id"`
	Algorithm string    `json:"algorithm" yaml:"algorithm"`
	Signature string    `json:"signature" yaml:"signature"`
	SignedAt  time.Time `json:"signed_at" yaml:"signed_at"`
}

type exportDocument struct {
	Schema        string            `json:"schema" yaml:"schema"`
	ID            string            `json:"bom_id" yaml:"bom_id"`
	ProjectID     string            `json:"project_id" yaml:"project_id"`
	CreatedAt     time.Time         `json:"created_at" yaml:"created_at"`
	PredecessorID string            `json:"predecessor_id,omitempty" yaml:"predecessor_id,omitempty"`
	Roots         []string          `json:"roots" yaml:"roots"`
	Components    []exportComponent `json:"components" yaml:"components"`
	Edges         []exportEdge      `json:"edges" yaml:"edges"`
	Signatures    []exportSignature `json:"signatures" yaml:"signatures"`

	ComplianceReport *domain.ComplianceReport `json:"compliance_report,omitempty" yaml:"compliance_report,omitempty"`
}

type ExportService struct {
	snapshots  *SnapshotService
	signatures ports.SignatureRepository
	compliance *ComplianceService
}

// NewExportService builds an exporter. With a non-nil compliance service the
// document formats carry a compliance_report.
func NewExportService(snapshots *SnapshotService, signatures ports.SignatureRepository, compliance *ComplianceService) *ExportService {
	return &ExportService{snapshots: snapshots, signatures: signatures, compliance: compliance}
}

func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ExportJSON, nil
	case ExportJSON, ExportJSONLD, ExportYAML, ExportCBOR, ExportC2PA:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, s)
}

// Export renders a snapshot. The cbor format is the canonical manifest, so
// hashing the output reproduces the snapshot id.
func (s *ExportService) Export(ctx context.Context, snapshotID string, format ExportFormat) ([]byte, error) {
	if format == ExportCBOR {
		snapshot, err := s.snapshots.Get(ctx, snapshotID)
		if err != nil {
			return nil, err
		}
		return fingerprint.Canonical(snapshot.Manifest())
	}

	doc, err := s.document(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportJSON:
		return json.MarshalIndent(doc, "", "  ")
	case ExportYAML:
		return yaml.Marshal(doc)
	case ExportJSONLD:
		return json.MarshalIndent(map[string]any{
			"@context":    "https://schema.org/",
			"@type":       "Dataset",
			"@id":         "urn:aibom:" + doc.ID,
			"name":        doc.ProjectID,
			"version":     doc.ID,
			"dateCreated": doc.CreatedAt,
			"hasPart":     doc.Components,
		}, "", "  ")
	case ExportC2PA:
		return json.MarshalIndent(map[string]any{
			"manifest": map[string]any{
				"title":      doc.ProjectID,
				"version":    doc.ID,
				"assertions": []any{map[string]any{"label": "ai-bom", "data": doc}},
			},
		}, "", "  ")
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
}

func (s *ExportService) document(ctx context.Context, snapshotID string) (*exportDocument, error) {
	view, err := s.snapshots.View(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	sigs, err := s.signatures.ListBySnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	doc := &exportDocument{
		Schema:        domain.ManifestSchema,
		ID:            view.ID,
		ProjectID:     view.ProjectID,
		CreatedAt:     view.CreatedAt,
		PredecessorID: view.PredecessorID,
		Roots:         make([]string, 0, len(view.Roots)),
		Components:    make([]exportComponent, 0, len(view.ComponentRecords)),
		Edges:         make([]exportEdge, 0, len(view.Edges)),
		Signatures:    make([]exportSignature, 0, len(sigs)),
	}
	for _, r := range view.Roots {
		doc.Roots = append(doc.Roots, r.String())
	}
	for _, c := range view.ComponentRecords {
		doc.Components = append(doc.Components, exportComponent{
			Fingerprint:    c.Fingerprint.String(),
			Name:           c.Name,
			Type:           string(c.Type),
			SizeBytes:      c.SizeBytes,
			SourceLocation: c.SourceLocation,
			CreatedAt:      c.CreatedAt,
			Attributes:     c.Attributes,
		})
	}
	for _, e := range view.Edges {
		doc.Edges = append(doc.Edges, exportEdge{Child: e.Child.String(), Parent: e.Parent.String(), Relation: e.Relation})
	}
	for _, sig := range sigs {
		doc.Signatures = append(doc.Signatures, exportSignature{
			KeyID:     sig.KeyID,
			Algorithm: sig.Algorithm,
			Signature: sig.Signature,
			SignedAt:  sig.SignedAt,
		})
	}
	if s.compliance != nil {
		if doc.ComplianceReport, err = s.compliance.Report(ctx, snapshotID); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

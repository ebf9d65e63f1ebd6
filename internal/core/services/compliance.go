package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

// ComplianceService scores snapshots against domain.ComplianceMapping and
// gates deployment on signatures.
type ComplianceService struct {
	snapshots *SnapshotService
	signing   *SigningService
	audit     *AuditService
}

func NewComplianceService(snapshots *SnapshotService, signing *SigningService, audit *AuditService) *ComplianceService {
	return &ComplianceService{snapshots: snapshots, signing: signing, audit: audit}
}

func (s *ComplianceService) Mappings() []domain.ComplianceControl {
	return domain.ComplianceMapping
}

// Report evaluates every control for the snapshot. A control is satisfied
// when all of its evidence is present.
func (s *ComplianceService) Report(ctx context.Context, snapshotID string) (*domain.ComplianceReport, error) {
	view, err := s.snapshots.View(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	checks, err := s.signing.VerifySignatures(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	present := map[string]bool{
		domain.EvidenceComponents:       len(view.ComponentRecords) > 0,
		domain.EvidenceSourceLocations:  allSourced(view.ComponentRecords),
		domain.EvidenceLineageEdges:     len(view.Edges) > 0 || len(view.ComponentRecords) == 1,
		domain.EvidenceEvaluationEdges:  hasRelation(view.Edges, domain.RelationEvaluatedOn),
		domain.EvidenceSignatures:       countValid(checks) > 0,
		domain.EvidenceModelLicense:     modelsLicensed(view.ComponentRecords),
		domain.EvidenceVerificationLogs: s.allVerified(ctx, view.ComponentRecords),
	}

	report := &domain.ComplianceReport{BomID: view.ID, Details: make([]domain.ControlResult, 0, len(domain.ComplianceMapping))}
	for _, control := range domain.ComplianceMapping {
		result := domain.ControlResult{Control: control.Control, Satisfied: true}
		for _, evidence := range control.Evidence {
			if !present[evidence] {
				result.Satisfied = false
				result.Missing = append(result.Missing, evidence)
			}
		}
		if result.Satisfied {
			report.Summary.Satisfied++
		}
		report.Details = append(report.Details, result)
	}
	report.Summary.Total = len(report.Details)
	return report, nil
}

// DeployCheck passes when the snapshot is intact and, if it contains a
// model, carries at least one valid signature.
func (s *ComplianceService) DeployCheck(ctx context.Context, snapshotID string) (*domain.DeployCheck, error) {
	view, err := s.snapshots.View(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	intact, _, err := s.snapshots.VerifyIntegrity(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	checks, err := s.signing.VerifySignatures(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	result := &domain.DeployCheck{
		BomID:           view.ID,
		Intact:          intact,
		ValidSignatures: countValid(checks),
	}
	for _, c := range view.ComponentRecords {
		if c.Type == domain.ComponentTypeModel {
			result.HasModel = true
			break
		}
	}
	switch {
	case !intact:
		result.Reason = "snapshot contents no longer match its id"
	case result.HasModel && result.ValidSignatures == 0:
		result.Reason = "unsigned BOM with model components"
	default:
		result.Passed = true
	}
	if !result.Passed {
		log.WithFields(log.Fields{"bom_id": view.ID, "reason": result.Reason}).Warn("deploy check failed")
	}
	return result, nil
}

func (s *ComplianceService) allVerified(ctx context.Context, components []*domain.Component) bool {
	if len(components) == 0 {
		return false
	}
	for _, c := range components {
		entries, err := s.audit.List(ctx, ports.AuditListFilter{
			EntityID: c.Fingerprint.String(),
			Action:   domain.AuditActionVerify,
			Limit:    1,
		})
		if err != nil {
			log.WithError(err).WithField("fingerprint", c.Fingerprint.Short()).Warn("compliance: read verification log")
			return false
		}
		if len(entries) == 0 {
			return false
		}
	}
	return true
}

func allSourced(components []*domain.Component) bool {
	for _, c := range components {
		if c.SourceLocation == "" {
			return false
		}
	}
	return len(components) > 0
}

func hasRelation(edges []domain.EdgeKey, relation string) bool {
	for _, e := range edges {
		if e.Relation == relation {
			return true
		}
	}
	return false
}

func modelsLicensed(components []*domain.Component) bool {
	models := 0
	for _, c := range components {
		if c.Type != domain.ComponentTypeModel {
			continue
		}
		models++
		if c.Attributes["license"] == "" {
			return false
		}
	}
	return models > 0
}

func countValid(checks []domain.SignatureCheck) int {
	n := 0
	for _, c := range checks {
		if c.Valid {
			n++
		}
	}
	return n
}

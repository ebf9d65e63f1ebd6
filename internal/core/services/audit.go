package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record appends an audit entry. Failures are logged and never surface to
// the caller; the audited operation has already happened.
func (s *AuditService) Record(ctx context.Context, entry *domain.AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"action":    entry.Action,
			"entity":    entry.EntityType,
			"entity_id": entry.EntityID,
		}).Error("failed to append audit entry")
	}
}

func (s *AuditService) List(ctx context.Context, filter ports.AuditListFilter) ([]*domain.AuditEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}

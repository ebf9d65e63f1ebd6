package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/metrics"
)

const listPageSize = 200

// ComponentFilter narrows a registry listing. NamePattern is a doublestar
// glob matched against the component name.
type ComponentFilter struct {
	Type        domain.ComponentType
	NamePattern string
}

type RegistryService struct {
	repo     ports.ComponentRepository
	audit    *AuditService
	events   ports.EventPublisher
	validate *validator.Validate
}

func NewRegistryService(repo ports.ComponentRepository, audit *AuditService, events ports.EventPublisher) *RegistryService {
	return &RegistryService{
		repo:     repo,
		audit:    audit,
		events:   events,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register stores the component for fp, or returns the existing record
// unchanged. The bool reports whether a new record was created. A differing
// type for an existing fingerprint is a MetadataConflictError; every other
// field is first-write-wins.
func (s *RegistryService) Register(ctx context.Context, meta domain.ComponentMetadata, fp domain.Fingerprint) (*domain.Component, bool, error) {
	if err := fp.Validate(); err != nil {
		return nil, false, err
	}
	if err := s.validate.Struct(meta); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidComponent, err)
	}

	attrs := make(map[string]string, len(meta.Attributes))
	for k, v := range meta.Attributes {
		attrs[k] = v
	}
	component := &domain.Component{
		Fingerprint:    fp,
		Name:           meta.Name,
		Type:           meta.Type,
		SizeBytes:      meta.SizeBytes,
		SourceLocation: meta.SourceLocation,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		Attributes:     attrs,
	}

	err := s.repo.Create(ctx, component)
	if err == nil {
		metrics.RecordRegistration("created")
		log.WithFields(log.Fields{
			"fingerprint": fp.String(),
			"name":        component.Name,
			"type":        component.Type,
		}).Info("component registered")

		s.audit.Record(ctx, domain.NewAuditEntry(ctx, domain.AuditEntityComponent, fp.String(), domain.AuditActionRegister, map[string]string{
			"name":            component.Name,
			"type":            string(component.Type),
			"source_location": component.SourceLocation,
		}))
		publish(ctx, s.events, SubjectComponentRegistered, component)
		return component, true, nil
	}
	if !errors.Is(err, domain.ErrComponentExists) {
		metrics.RecordRegistration("error")
		return nil, false, fmt.Errorf("create component: %w", err)
	}

	existing, err := s.repo.GetByFingerprint(ctx, fp)
	if err != nil {
		metrics.RecordRegistration("error")
		return nil, false, fmt.Errorf("load existing component: %w", err)
	}
	if existing.Type != meta.Type {
		metrics.RecordRegistration("conflict")
		return nil, false, &domain.MetadataConflictError{
			Fingerprint: fp,
			Field:       "type",
			Existing:    string(existing.Type),
			Requested:   string(meta.Type),
		}
	}
	metrics.RecordRegistration("existing")
	return existing, false, nil
}

func (s *RegistryService) Get(ctx context.Context, fp domain.Fingerprint) (*domain.Component, error) {
	return s.repo.GetByFingerprint(ctx, fp)
}

// List lazily pages through the registry ordered by (createdAt, fingerprint).
// Each range over the returned sequence starts again from the beginning.
func (s *RegistryService) List(ctx context.Context, filter ComponentFilter) iter.Seq2[*domain.Component, error] {
	return func(yield func(*domain.Component, error) bool) {
		if filter.Type != "" && !filter.Type.Valid() {
			yield(nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidComponent, filter.Type))
			return
		}
		if filter.NamePattern != "" && !doublestar.ValidatePattern(filter.NamePattern) {
			yield(nil, fmt.Errorf("%w: invalid name pattern %q", domain.ErrInvalidComponent, filter.NamePattern))
			return
		}

		page := ports.ComponentListFilter{Type: filter.Type, Limit: listPageSize}
		for {
			items, err := s.repo.List(ctx, page)
			if err != nil {
				yield(nil, fmt.Errorf("list components: %w", err))
				return
			}
			for _, c := range items {
				if filter.NamePattern != "" {
					if ok, _ := doublestar.Match(filter.NamePattern, c.Name); !ok {
						continue
					}
				}
				if !yield(c, nil) {
					return
				}
			}
			if len(items) < page.Limit {
				return
			}
			last := items[len(items)-1]
			page.AfterCreatedAt = last.CreatedAt
			page.AfterFingerprint = last.Fingerprint
		}
	}
}

// Collect drains List up to limit records. limit <= 0 means no limit.
func (s *RegistryService) Collect(ctx context.Context, filter ComponentFilter, limit int) ([]*domain.Component, error) {
	out := make([]*domain.Component, 0)
	for c, err := range s.List(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Missing returns the fingerprints among fps that are not registered.
func (s *RegistryService) Missing(ctx context.Context, fps ...domain.Fingerprint) ([]domain.Fingerprint, error) {
	return missingComponents(ctx, s.repo, fps...)
}

func missingComponents(ctx context.Context, repo ports.ComponentRepository, fps ...domain.Fingerprint) ([]domain.Fingerprint, error) {
	var missing []domain.Fingerprint
	for _, fp := range domain.SortFingerprints(fps) {
		_, err := repo.GetByFingerprint(ctx, fp)
		if errors.Is(err, domain.ErrComponentNotFound) {
			missing = append(missing, fp)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup component %s: %w", fp, err)
		}
	}
	return missing, nil
}

// resolveComponents loads records for fps, in the given order.
func resolveComponents(ctx context.Context, repo ports.ComponentRepository, fps []domain.Fingerprint) ([]*domain.Component, error) {
	out := make([]*domain.Component, 0, len(fps))
	for _, fp := range fps {
		c, err := repo.GetByFingerprint(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("resolve component %s: %w", fp, err)
		}
		out = append(out, c)
	}
	return out, nil
}

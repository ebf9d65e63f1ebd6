package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/fingerprint"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/metrics"
)

// IngestRequest describes an artifact to fingerprint and register.
// ExpectedFingerprint, when set, must match the streamed content and selects
// the digest algorithm.
type IngestRequest struct {
	Name                string
	Type                domain.ComponentType
	SourceLocation      string
	Attributes          map[string]string
	ExpectedFingerprint domain.Fingerprint
	Algorithm           domain.Algorithm
}

type IngestService struct {
	registry *RegistryService
	source   ports.ArtifactSource
	engine   *fingerprint.Engine
}

func NewIngestService(registry *RegistryService, source ports.ArtifactSource, engine *fingerprint.Engine) *IngestService {
	return &IngestService{registry: registry, source: source, engine: engine}
}

// Ingest streams the artifact at req.SourceLocation through the fingerprint
// engine and registers the result.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*domain.Component, bool, error) {
	if req.SourceLocation == "" {
		return nil, false, fmt.Errorf("%w: source location is required", domain.ErrInvalidComponent)
	}

	algorithm := req.Algorithm
	if !req.ExpectedFingerprint.IsZero() {
		if err := req.ExpectedFingerprint.Validate(); err != nil {
			return nil, false, err
		}
		algorithm = req.ExpectedFingerprint.Algorithm
	}
	engine, err := s.engine.WithAlgorithm(algorithm)
	if err != nil {
		return nil, false, err
	}

	rc, err := s.source.Open(ctx, req.SourceLocation)
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()

	start := time.Now()
	fp, size, err := engine.Fingerprint(ctx, rc)
	if err != nil {
		return nil, false, err
	}
	metrics.ObserveFingerprint(engine.Algorithm(), size, time.Since(start))

	if !req.ExpectedFingerprint.IsZero() && fp != req.ExpectedFingerprint {
		log.WithFields(log.Fields{
			"source":   req.SourceLocation,
			"expected": req.ExpectedFingerprint.String(),
			"actual":   fp.String(),
		}).Warn("ingested content does not match claimed fingerprint")
		return nil, false, &domain.MismatchError{Expected: req.ExpectedFingerprint, Actual: fp}
	}

	return s.registry.Register(ctx, domain.ComponentMetadata{
		Name:           req.Name,
		Type:           req.Type,
		SizeBytes:      size,
		SourceLocation: req.SourceLocation,
		Attributes:     req.Attributes,
	}, fp)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/fingerprint"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/metrics"
)

type VerifyConfig struct {
	Concurrency   int
	MaxRetries    int
	RetryInterval time.Duration
}

type VerificationService struct {
	registry *RegistryService
	source   ports.ArtifactSource
	engine   *fingerprint.Engine
	audit    *AuditService
	events   ports.EventPublisher
	cfg      VerifyConfig
}

func NewVerificationService(
	registry *RegistryService,
	source ports.ArtifactSource,
	engine *fingerprint.Engine,
	audit *AuditService,
	events ports.EventPublisher,
	cfg VerifyConfig,
) *VerificationService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}
	return &VerificationService{
		registry: registry,
		source:   source,
		engine:   engine,
		audit:    audit,
		events:   events,
		cfg:      cfg,
	}
}

// Verify re-reads the artifact at the component's recorded source location
// and compares its digest to the registered fingerprint. A mismatch is a
// result, not an error; the registry record is left untouched.
func (s *VerificationService) Verify(ctx context.Context, fp domain.Fingerprint) (*domain.VerificationResult, error) {
	component, err := s.registry.Get(ctx, fp)
	if err != nil {
		if errors.Is(err, domain.ErrComponentNotFound) {
			metrics.RecordVerification("not_found")
		} else {
			metrics.RecordVerification("error")
		}
		return nil, err
	}

	return s.verify(ctx, component, s.check)
}

// verify runs one check of component and records its outcome exactly once,
// however many attempts check makes.
func (s *VerificationService) verify(ctx context.Context, component *domain.Component, check checkFunc) (*domain.VerificationResult, error) {
	fp := component.Fingerprint
	result, err := check(ctx, component)
	if err != nil {
		if errors.Is(err, domain.ErrIOUnavailable) {
			metrics.RecordVerification("unavailable")
		} else {
			metrics.RecordVerification("error")
		}
		if ctx.Err() == nil {
			s.audit.Record(ctx, domain.NewAuditEntry(ctx, domain.AuditEntityComponent, fp.String(), domain.AuditActionVerify, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			}))
		}
		return nil, err
	}

	metrics.RecordVerification(string(result.Status))
	s.audit.Record(ctx, domain.NewAuditEntry(ctx, domain.AuditEntityComponent, fp.String(), domain.AuditActionVerify, map[string]string{
		"status": string(result.Status),
		"actual": result.Actual.String(),
	}))
	if !result.Verified() {
		log.WithFields(log.Fields{
			"expected": result.Expected.String(),
			"actual":   result.Actual.String(),
			"source":   result.SourceLocation,
		}).Warn("artifact fingerprint mismatch")
		publish(ctx, s.events, SubjectVerificationMismatch, result)
	}
	return result, nil
}

type checkFunc func(ctx context.Context, component *domain.Component) (*domain.VerificationResult, error)

func (s *VerificationService) check(ctx context.Context, component *domain.Component) (*domain.VerificationResult, error) {
	if component.SourceLocation == "" {
		return nil, &domain.IOError{Location: component.Fingerprint.String(), Err: errors.New("no source location recorded")}
	}
	engine, err := s.engine.WithAlgorithm(component.Fingerprint.Algorithm)
	if err != nil {
		return nil, err
	}

	rc, err := s.source.Open(ctx, component.SourceLocation)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	start := time.Now()
	actual, size, err := engine.Fingerprint(ctx, rc)
	if err != nil {
		return nil, err
	}
	metrics.ObserveFingerprint(engine.Algorithm(), size, time.Since(start))

	status := domain.VerificationVerified
	if actual != component.Fingerprint {
		status = domain.VerificationMismatch
	}
	return &domain.VerificationResult{
		Fingerprint:    component.Fingerprint,
		Status:         status,
		Expected:       component.Fingerprint,
		Actual:         actual,
		SourceLocation: component.SourceLocation,
		SizeBytes:      size,
		CheckedAt:      time.Now().UTC(),
	}, nil
}

// VerifyAll checks every component matching filter with bounded
// concurrency. Unreadable sources are retried with backoff and then reported
// as unavailable; mismatches are never retried.
func (s *VerificationService) VerifyAll(ctx context.Context, filter ComponentFilter) (*domain.VerificationReport, error) {
	report := &domain.VerificationReport{
		Mismatched:  []*domain.VerificationResult{},
		Unavailable: []domain.VerificationFailure{},
		StartedAt:   time.Now().UTC(),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for component, err := range s.registry.List(gctx, filter) {
		if err != nil {
			_ = g.Wait()
			return nil, err
		}
		g.Go(func() error {
			result, err := s.verify(gctx, component, s.checkWithRetry)

			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			switch {
			case err != nil:
				if gctx.Err() != nil {
					return gctx.Err()
				}
				report.Unavailable = append(report.Unavailable, domain.VerificationFailure{
					Fingerprint:    component.Fingerprint,
					SourceLocation: component.SourceLocation,
					Error:          err.Error(),
				})
			case result.Verified():
				report.Verified++
			default:
				report.Mismatched = append(report.Mismatched, result)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verification sweep: %w", err)
	}

	sort.Slice(report.Mismatched, func(i, j int) bool {
		return report.Mismatched[i].Fingerprint.Less(report.Mismatched[j].Fingerprint)
	})
	sort.Slice(report.Unavailable, func(i, j int) bool {
		return report.Unavailable[i].Fingerprint.Less(report.Unavailable[j].Fingerprint)
	})
	report.FinishedAt = time.Now().UTC()

	log.WithFields(log.Fields{
		"checked":     report.Checked,
		"verified":    report.Verified,
		"mismatched":  len(report.Mismatched),
		"unavailable": len(report.Unavailable),
	}).Info("verification sweep finished")
	return report, nil
}

// checkWithRetry retries check while the source is unavailable.
func (s *VerificationService) checkWithRetry(ctx context.Context, component *domain.Component) (*domain.VerificationResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(s.cfg.MaxRetries, 0))), ctx)

	var result *domain.VerificationResult
	err := backoff.Retry(func() error {
		r, err := s.check(ctx, component)
		if err != nil {
			if errors.Is(err, domain.ErrIOUnavailable) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}, policy)
	return result, err
}

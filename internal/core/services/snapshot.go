package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/fingerprint"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/metrics"
)

type SnapshotService struct {
	// buildMu orders builds so predecessor links follow creation order.
	buildMu sync.Mutex

	snapshots  ports.SnapshotRepository
	components ports.ComponentRepository
	lineage    *LineageService
	engine     *fingerprint.Engine
	audit      *AuditService
	events     ports.EventPublisher
}

func NewSnapshotService(
	snapshots ports.SnapshotRepository,
	components ports.ComponentRepository,
	lineage *LineageService,
	engine *fingerprint.Engine,
	audit *AuditService,
	events ports.EventPublisher,
) *SnapshotService {
	return &SnapshotService{
		snapshots:  snapshots,
		components: components,
		lineage:    lineage,
		engine:     engine,
		audit:      audit,
		events:     events,
	}
}

// Build assembles the ancestor closure of roots into a hash-addressed
// snapshot. Building unchanged state again returns the stored snapshot and
// false.
func (s *SnapshotService) Build(ctx context.Context, projectID string, roots []domain.Fingerprint) (*domain.Snapshot, bool, error) {
	snapshot, created, err := s.build(ctx, projectID, roots)
	switch {
	case err != nil:
		metrics.RecordSnapshotBuild("error", 0)
	case created:
		metrics.RecordSnapshotBuild("created", len(snapshot.Components))
	default:
		metrics.RecordSnapshotBuild("deduplicated", len(snapshot.Components))
	}
	return snapshot, created, err
}

func (s *SnapshotService) build(ctx context.Context, projectID string, roots []domain.Fingerprint) (*domain.Snapshot, bool, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, false, domain.ErrMissingProjectID
	}
	if len(roots) == 0 {
		return nil, false, domain.ErrNoRoots
	}
	if err := validateFingerprints(roots...); err != nil {
		return nil, false, err
	}
	missing, err := missingComponents(ctx, s.components, roots...)
	if err != nil {
		return nil, false, err
	}
	if len(missing) > 0 {
		return nil, false, &domain.UnknownComponentError{Fingerprints: missing}
	}

	components, edges, version, err := s.lineage.Closure(ctx, roots)
	if err != nil {
		return nil, false, err
	}

	manifest := domain.NewManifest(projectID, roots, components, edges)
	id, err := s.engine.FingerprintManifest(manifest)
	if err != nil {
		return nil, false, fmt.Errorf("hash manifest: %w", err)
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	existing, err := s.snapshots.GetByID(ctx, id.String())
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, false, fmt.Errorf("lookup snapshot: %w", err)
	}

	predecessorID := ""
	history, err := s.snapshots.ListByProject(ctx, projectID)
	if err != nil {
		return nil, false, fmt.Errorf("list project snapshots: %w", err)
	}
	if len(history) > 0 {
		predecessorID = history[len(history)-1].ID
	}

	snapshot := &domain.Snapshot{
		ID:            id.String(),
		ProjectID:     projectID,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
		Roots:         manifest.Roots,
		Components:    manifest.Components,
		Edges:         manifest.Edges,
		PredecessorID: predecessorID,
	}
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		if errors.Is(err, domain.ErrSnapshotExists) {
			stored, getErr := s.snapshots.GetByID(ctx, snapshot.ID)
			if getErr != nil {
				return nil, false, fmt.Errorf("load concurrent snapshot: %w", getErr)
			}
			return stored, false, nil
		}
		return nil, false, fmt.Errorf("create snapshot: %w", err)
	}

	log.WithFields(log.Fields{
		"snapshot_id":   snapshot.ID,
		"project_id":    projectID,
		"components":    len(snapshot.Components),
		"edges":         len(snapshot.Edges),
		"graph_version": version,
	}).Info("bom snapshot created")

	entry := domain.NewAuditEntry(ctx, domain.AuditEntitySnapshot, snapshot.ID, domain.AuditActionBuild, map[string]string{
		"components":  fmt.Sprint(len(snapshot.Components)),
		"edges":       fmt.Sprint(len(snapshot.Edges)),
		"predecessor": predecessorID,
	})
	entry.ProjectID = projectID
	s.audit.Record(ctx, entry)
	publish(ctx, s.events, SubjectSnapshotCreated, snapshot.Summary())
	return snapshot, true, nil
}

func (s *SnapshotService) Get(ctx context.Context, id string) (*domain.Snapshot, error) {
	return s.snapshots.GetByID(ctx, id)
}

// View resolves the snapshot's component references.
func (s *SnapshotService) View(ctx context.Context, id string) (*domain.SnapshotView, error) {
	snapshot, err := s.snapshots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	components, err := resolveComponents(ctx, s.components, snapshot.Components)
	if err != nil {
		return nil, err
	}
	return &domain.SnapshotView{Snapshot: snapshot, ComponentRecords: components}, nil
}

func (s *SnapshotService) ListByProject(ctx context.Context, projectID string) ([]domain.SnapshotSummary, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, domain.ErrMissingProjectID
	}
	snapshots, err := s.snapshots.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.SnapshotSummary, 0, len(snapshots))
	for _, snap := range snapshots {
		summaries = append(summaries, snap.Summary())
	}
	return summaries, nil
}

// Diff compares the stored reference sets of two snapshots. The graph is
// not consulted.
func (s *SnapshotService) Diff(ctx context.Context, fromID, toID string) (*domain.DiffView, error) {
	from, err := s.snapshots.GetByID(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.snapshots.GetByID(ctx, toID)
	if err != nil {
		return nil, err
	}

	diff := domain.DiffSnapshots(from, to)
	added, err := resolveComponents(ctx, s.components, diff.Added)
	if err != nil {
		return nil, err
	}
	removed, err := resolveComponents(ctx, s.components, diff.Removed)
	if err != nil {
		return nil, err
	}
	return &domain.DiffView{SnapshotDiff: diff, AddedComponents: added, RemovedComponents: removed}, nil
}

// ManifestDigest recomputes the manifest fingerprint of a stored snapshot
// with the algorithm its id was created with.
func (s *SnapshotService) ManifestDigest(snapshot *domain.Snapshot) (domain.Fingerprint, error) {
	id, err := domain.ParseFingerprint(snapshot.ID)
	if err != nil {
		return domain.Fingerprint{}, fmt.Errorf("parse snapshot id: %w", err)
	}
	engine, err := s.engine.WithAlgorithm(id.Algorithm)
	if err != nil {
		return domain.Fingerprint{}, err
	}
	return engine.FingerprintManifest(snapshot.Manifest())
}

// VerifyIntegrity reports whether the stored contents still hash to the id.
func (s *SnapshotService) VerifyIntegrity(ctx context.Context, id string) (bool, domain.Fingerprint, error) {
	snapshot, err := s.snapshots.GetByID(ctx, id)
	if err != nil {
		return false, domain.Fingerprint{}, err
	}
	digest, err := s.ManifestDigest(snapshot)
	if err != nil {
		return false, domain.Fingerprint{}, err
	}
	return digest.String() == snapshot.ID, digest, nil
}

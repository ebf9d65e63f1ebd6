package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	"ai-bom-service/internal/core/lineage"
	ports "ai-bom-service/internal/core/ports/output"
	"ai-bom-service/internal/metrics"
)

// TraversalConfig bounds ancestor/descendant walks. A zero MaxDepth is
// unbounded; a zero Timeout leaves only the caller's deadline.
type TraversalConfig struct {
	MaxDepth int
	Timeout  time.Duration
}

// LineageService owns the edge log and its in-memory index. Writers hold the
// write lock across cycle check, persist and index update; readers share the
// read lock and see one consistent graph version.
type LineageService struct {
	mu    sync.RWMutex
	graph *lineage.Graph

	edges      ports.EdgeRepository
	components ports.ComponentRepository
	audit      *AuditService
	events     ports.EventPublisher
	traversal  TraversalConfig
}

func NewLineageService(
	edges ports.EdgeRepository,
	components ports.ComponentRepository,
	audit *AuditService,
	events ports.EventPublisher,
	traversal TraversalConfig,
) *LineageService {
	return &LineageService{
		graph:      lineage.New(),
		edges:      edges,
		components: components,
		audit:      audit,
		events:     events,
		traversal:  traversal,
	}
}

// Load rebuilds the index from the durable edge log.
func (s *LineageService) Load(ctx context.Context) error {
	events, err := s.edges.List(ctx)
	if err != nil {
		return fmt.Errorf("load edge log: %w", err)
	}

	graph := lineage.New()
	for _, e := range events {
		graph.Apply(e)
	}

	s.mu.Lock()
	s.graph = graph
	s.mu.Unlock()

	metrics.SetGraphVersion(graph.Version())
	log.WithFields(log.Fields{
		"events":   len(events),
		"last_seq": graph.LastSeq(),
	}).Info("lineage index loaded")
	return nil
}

// AddEdge records that child was derived from parent. Re-asserting an active
// edge returns the existing event.
func (s *LineageService) AddEdge(ctx context.Context, child, parent domain.Fingerprint, relation string) (*domain.Edge, error) {
	edge, err := s.addEdge(ctx, child, parent, relation)
	metrics.RecordEdgeOp("add", err)
	return edge, err
}

func (s *LineageService) addEdge(ctx context.Context, child, parent domain.Fingerprint, relation string) (*domain.Edge, error) {
	relation, ok := domain.CanonicalRelation(relation)
	if !ok {
		return nil, domain.ErrInvalidRelation
	}
	if err := validateFingerprints(child, parent); err != nil {
		return nil, err
	}
	// Components are never deleted, so this check stays valid outside the lock.
	missing, err := missingComponents(ctx, s.components, child, parent)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &domain.UnknownComponentError{Fingerprints: missing}
	}

	key := domain.EdgeKey{Child: child, Parent: parent, Relation: relation}

	s.mu.Lock()
	if existing, ok := s.graph.ActiveEdge(key); ok {
		s.mu.Unlock()
		return existing, nil
	}
	if path := s.graph.WouldCycle(child, parent); path != nil {
		s.mu.Unlock()
		return nil, &domain.CycleError{Child: child, Parent: parent, Relation: relation, Path: path}
	}
	edge := &domain.Edge{
		Child:     child,
		Parent:    parent,
		Relation:  relation,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Actor:     domain.ActorFromContext(ctx),
	}
	if err := s.edges.Append(ctx, edge); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("append edge: %w", err)
	}
	s.graph.Apply(edge)
	version := s.graph.Version()
	s.mu.Unlock()

	metrics.SetGraphVersion(version)
	log.WithFields(log.Fields{
		"child":    child.Short(),
		"parent":   parent.Short(),
		"relation": relation,
		"seq":      edge.Seq,
	}).Info("lineage edge added")

	s.audit.Record(ctx, domain.NewAuditEntry(ctx, domain.AuditEntityEdge, key.String(), domain.AuditActionAddEdge, map[string]string{
		"seq": fmt.Sprint(edge.Seq),
	}))
	publish(ctx, s.events, SubjectEdgeAdded, edge)
	return edge, nil
}

// RetractEdge appends a tombstone for an active edge.
func (s *LineageService) RetractEdge(ctx context.Context, child, parent domain.Fingerprint, relation string) (*domain.Edge, error) {
	edge, err := s.retractEdge(ctx, child, parent, relation)
	metrics.RecordEdgeOp("retract", err)
	return edge, err
}

func (s *LineageService) retractEdge(ctx context.Context, child, parent domain.Fingerprint, relation string) (*domain.Edge, error) {
	relation, ok := domain.CanonicalRelation(relation)
	if !ok {
		return nil, domain.ErrInvalidRelation
	}
	if err := validateFingerprints(child, parent); err != nil {
		return nil, err
	}
	key := domain.EdgeKey{Child: child, Parent: parent, Relation: relation}

	s.mu.Lock()
	if !s.graph.IsActive(key) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, key)
	}
	tombstone := &domain.Edge{
		Child:     child,
		Parent:    parent,
		Relation:  domain.TombstoneRelation(relation),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Actor:     domain.ActorFromContext(ctx),
	}
	if err := s.edges.Append(ctx, tombstone); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("append tombstone: %w", err)
	}
	s.graph.Apply(tombstone)
	version := s.graph.Version()
	s.mu.Unlock()

	metrics.SetGraphVersion(version)
	log.WithFields(log.Fields{
		"child":    child.Short(),
		"parent":   parent.Short(),
		"relation": relation,
		"seq":      tombstone.Seq,
	}).Info("lineage edge retracted")

	s.audit.Record(ctx, domain.NewAuditEntry(ctx, domain.AuditEntityEdge, key.String(), domain.AuditActionRetract, map[string]string{
		"seq": fmt.Sprint(tombstone.Seq),
	}))
	publish(ctx, s.events, SubjectEdgeRetracted, tombstone)
	return tombstone, nil
}

// Ancestors walks child -> parent links from fp. maxDepth < 0 applies the
// configured default; 0 is unbounded.
func (s *LineageService) Ancestors(ctx context.Context, fp domain.Fingerprint, maxDepth int) (*domain.Traversal, error) {
	return s.walk(ctx, fp, lineage.Up, maxDepth)
}

// Descendants walks parent -> child links from fp.
func (s *LineageService) Descendants(ctx context.Context, fp domain.Fingerprint, maxDepth int) (*domain.Traversal, error) {
	return s.walk(ctx, fp, lineage.Down, maxDepth)
}

func (s *LineageService) walk(ctx context.Context, fp domain.Fingerprint, dir lineage.Direction, maxDepth int) (*domain.Traversal, error) {
	if _, err := s.components.GetByFingerprint(ctx, fp); err != nil {
		return nil, err
	}
	if maxDepth < 0 {
		maxDepth = s.traversal.MaxDepth
	}

	walkCtx := ctx
	if s.traversal.Timeout > 0 {
		var cancel context.CancelFunc
		walkCtx, cancel = context.WithTimeout(ctx, s.traversal.Timeout)
		defer cancel()
	}

	s.mu.RLock()
	fps, reason := s.graph.Walk(walkCtx, fp, dir, maxDepth)
	s.mu.RUnlock()

	components, err := resolveComponents(ctx, s.components, fps)
	if err != nil {
		return nil, err
	}

	direction := "ancestors"
	if dir == lineage.Down {
		direction = "descendants"
	}
	complete := reason == domain.TruncatedNone
	metrics.RecordTraversal(direction, complete)
	if !complete {
		log.WithFields(log.Fields{
			"origin":    fp.Short(),
			"direction": direction,
			"reason":    reason,
			"found":     len(fps),
		}).Warn("lineage traversal truncated")
	}

	return &domain.Traversal{
		Origin:      fp,
		Components:  components,
		Complete:    complete,
		TruncatedBy: reason,
	}, nil
}

// Edges returns active edges, optionally only those touching fp.
func (s *LineageService) Edges(ctx context.Context, fp domain.Fingerprint) ([]*domain.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Edges(fp), nil
}

// Closure returns roots plus every ancestor, and the active edges among
// them, all read from one graph version. An interrupted walk is an error.
func (s *LineageService) Closure(ctx context.Context, roots []domain.Fingerprint) ([]domain.Fingerprint, []domain.EdgeKey, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[domain.Fingerprint]struct{}, len(roots))
	for _, root := range roots {
		set[root] = struct{}{}
	}
	for _, root := range roots {
		ancestors, reason := s.graph.Walk(ctx, root, lineage.Up, 0)
		if reason != domain.TruncatedNone {
			return nil, nil, 0, fmt.Errorf("%w: %s", domain.ErrTraversalAborted, reason)
		}
		for _, fp := range ancestors {
			set[fp] = struct{}{}
		}
	}

	fps := make([]domain.Fingerprint, 0, len(set))
	for fp := range set {
		fps = append(fps, fp)
	}
	return domain.SortFingerprints(fps), s.graph.EdgesWithin(set), s.graph.Version(), nil
}

// Version is the current graph version.
func (s *LineageService) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Version()
}

func validateFingerprints(fps ...domain.Fingerprint) error {
	for _, fp := range fps {
		if err := fp.Validate(); err != nil {
			return err
		}
	}
	return nil
}

package domain

import (
	"sort"
	"time"
)

// ManifestSchema versions the canonical snapshot manifest layout. Changing
// it changes every snapshot id.
const ManifestSchema = "aibom.snapshot/v1"

// Snapshot is an immutable, hash-addressed BOM. It references components
// and edges by fingerprint; it never copies records.
type Snapshot struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	CreatedAt     time.Time     `json:"created_at"`
	Roots         []Fingerprint `json:"roots"`
	Components    []Fingerprint `json:"components"`
	Edges         []EdgeKey     `json:"edges"`
	PredecessorID string        `json:"predecessor_id,omitempty"`
}

// Manifest is the canonical, hashed content of a snapshot. CreatedAt and
// PredecessorID are excluded so rebuilds hash identically.
type Manifest struct {
	Schema     string        `cbor:"schema"`
	ProjectID  string        `cbor:"project_id"`
	Roots      []Fingerprint `cbor:"roots"`
	Components []Fingerprint `cbor:"components"`
	Edges      []EdgeKey     `cbor:"edges"`
}

// Manifest returns the snapshot's canonical content with all sets sorted.
func (s *Snapshot) Manifest() Manifest {
	return NewManifest(s.ProjectID, s.Roots, s.Components, s.Edges)
}

func NewManifest(projectID string, roots, components []Fingerprint, edges []EdgeKey) Manifest {
	return Manifest{
		Schema:     ManifestSchema,
		ProjectID:  projectID,
		Roots:      SortFingerprints(roots),
		Components: SortFingerprints(components),
		Edges:      SortEdgeKeys(edges),
	}
}

// SnapshotSummary is the list view of a snapshot.
type SnapshotSummary struct {
	ID             string    `json:"bom_id"`
	ProjectID      string    `json:"project_id"`
	CreatedAt      time.Time `json:"timestamp"`
	ComponentCount int       `json:"component_count"`
	EdgeCount      int       `json:"edge_count"`
	PredecessorID  string    `json:"predecessor_id,omitempty"`
}

func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:             s.ID,
		ProjectID:      s.ProjectID,
		CreatedAt:      s.CreatedAt,
		ComponentCount: len(s.Components),
		EdgeCount:      len(s.Edges),
		PredecessorID:  s.PredecessorID,
	}
}

// SnapshotDiff is the set difference from snapshot From to snapshot To.
type SnapshotDiff struct {
	From         string        `json:"from"`
	To           string        `json:"to"`
	Added        []Fingerprint `json:"added"`
	Removed      []Fingerprint `json:"removed"`
	AddedEdges   []EdgeKey     `json:"added_edges"`
	RemovedEdges []EdgeKey     `json:"removed_edges"`
}

func (d *SnapshotDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// DiffSnapshots computes the pure set difference between two snapshots'
// stored reference sets.
func DiffSnapshots(from, to *Snapshot) *SnapshotDiff {
	fromComponents := make(map[Fingerprint]struct{}, len(from.Components))
	for _, fp := range from.Components {
		fromComponents[fp] = struct{}{}
	}
	toComponents := make(map[Fingerprint]struct{}, len(to.Components))
	for _, fp := range to.Components {
		toComponents[fp] = struct{}{}
	}
	fromEdges := make(map[EdgeKey]struct{}, len(from.Edges))
	for _, e := range from.Edges {
		fromEdges[e] = struct{}{}
	}
	toEdges := make(map[EdgeKey]struct{}, len(to.Edges))
	for _, e := range to.Edges {
		toEdges[e] = struct{}{}
	}

	diff := &SnapshotDiff{
		From:         from.ID,
		To:           to.ID,
		Added:        []Fingerprint{},
		Removed:      []Fingerprint{},
		AddedEdges:   []EdgeKey{},
		RemovedEdges: []EdgeKey{},
	}
	for fp := range toComponents {
		if _, ok := fromComponents[fp]; !ok {
			diff.Added = append(diff.Added, fp)
		}
	}
	for fp := range fromComponents {
		if _, ok := toComponents[fp]; !ok {
			diff.Removed = append(diff.Removed, fp)
		}
	}
	for e := range toEdges {
		if _, ok := fromEdges[e]; !ok {
			diff.AddedEdges = append(diff.AddedEdges, e)
		}
	}
	for e := range fromEdges {
		if _, ok := toEdges[e]; !ok {
			diff.RemovedEdges = append(diff.RemovedEdges, e)
		}
	}
	diff.Added = SortFingerprints(diff.Added)
	diff.Removed = SortFingerprints(diff.Removed)
	diff.AddedEdges = SortEdgeKeys(diff.AddedEdges)
	diff.RemovedEdges = SortEdgeKeys(diff.RemovedEdges)
	return diff
}

// SortFingerprints returns a sorted, de-duplicated copy.
func SortFingerprints(in []Fingerprint) []Fingerprint {
	seen := make(map[Fingerprint]struct{}, len(in))
	out := make([]Fingerprint, 0, len(in))
	for _, fp := range in {
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// SortEdgeKeys returns a sorted, de-duplicated copy.
func SortEdgeKeys(in []EdgeKey) []EdgeKey {
	seen := make(map[EdgeKey]struct{}, len(in))
	out := make([]EdgeKey, 0, len(in))
	for _, e := range in {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Signature is an append-only attestation over a snapshot's manifest digest.
type Signature struct {
	SnapshotID string    `json:"snapshot_id"`
	KeyID      string    `json:"key_id"`
	Algorithm  string    `json:"algorithm"`
	Signature  string    `json:"signature"`
	SignedAt   time.Time `json:"signed_at"`
	Actor      string    `json:"actor,omitempty"`
}

// SignatureCheck is the outcome of verifying one stored signature.
type SignatureCheck struct {
	Signature Signature `json:"signature"`
	Valid     bool      `json:"valid"`
	Reason    string    `json:"reason,omitempty"`
}

// SnapshotView is a snapshot with its component records resolved.
type SnapshotView struct {
	*Snapshot
	ComponentRecords []*Component `json:"component_records"`
}

// DiffView is a snapshot diff with added and removed components resolved.
type DiffView struct {
	*SnapshotDiff
	AddedComponents   []*Component `json:"added_components"`
	RemovedComponents []*Component `json:"removed_components"`
}

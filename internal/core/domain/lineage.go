package domain

import (
	"regexp"
	"strings"
	"time"
)

// TombstonePrefix marks an edge event that retracts an earlier relation.
const TombstonePrefix = "retracted:"

// Common relation types. Any relation matching the relation grammar is accepted.
const (
	RelationTrainedOn     = "trained-on"
	RelationFineTunedFrom = "fine-tuned-from"
	RelationDerivedFrom   = "derived-from"
	RelationEvaluatedOn   = "evaluated-on"
)

// Edge is one append-only lineage event: child was derived from parent.
// Relations with TombstonePrefix retract the matching earlier assertion.
type Edge struct {
	Seq       int64       `json:"seq"`
	Child     Fingerprint `json:"child"`
	Parent    Fingerprint `json:"parent"`
	Relation  string      `json:"relation"`
	CreatedAt time.Time   `json:"created_at"`
	Actor     string      `json:"actor,omitempty"`
}

func (e *Edge) IsTombstone() bool {
	return strings.HasPrefix(e.Relation, TombstonePrefix)
}

// Key identifies the relation an event asserts or retracts.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{
		Child:    e.Child,
		Parent:   e.Parent,
		Relation: strings.TrimPrefix(e.Relation, TombstonePrefix),
	}
}

// EdgeKey is the identity of an active relation.
type EdgeKey struct {
	Child    Fingerprint `json:"child" cbor:"child"`
	Parent   Fingerprint `json:"parent" cbor:"parent"`
	Relation string      `json:"relation" cbor:"relation"`
}

func (k EdgeKey) Less(other EdgeKey) bool {
	if k.Child != other.Child {
		return k.Child.Less(other.Child)
	}
	if k.Parent != other.Parent {
		return k.Parent.Less(other.Parent)
	}
	return k.Relation < other.Relation
}

func (k EdgeKey) String() string {
	return k.Child.String() + " -[" + k.Relation + "]-> " + k.Parent.String()
}

func TombstoneRelation(relation string) string {
	return TombstonePrefix + relation
}

const maxRelationLen = 128

var relationPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._:-]*$`)

// CanonicalRelation trims surrounding whitespace and checks the result
// against the relation grammar. Caller-supplied tombstones are rejected.
// The returned string is the only form used in edge keys.
func CanonicalRelation(relation string) (string, bool) {
	relation = strings.TrimSpace(relation)
	if len(relation) > maxRelationLen ||
		strings.HasPrefix(relation, TombstonePrefix) ||
		!relationPattern.MatchString(relation) {
		return "", false
	}
	return relation, true
}

type TruncationReason string

const (
	TruncatedNone     TruncationReason = ""
	TruncatedMaxDepth TruncationReason = "max_depth"
	TruncatedDeadline TruncationReason = "deadline"
)

// Traversal is the result of an ancestor or descendant walk. Complete is
// false when the walk stopped early; TruncatedBy says why.
type Traversal struct {
	Origin      Fingerprint      `json:"origin"`
	Components  []*Component     `json:"components"`
	Complete    bool             `json:"complete"`
	TruncatedBy TruncationReason `json:"truncated_by,omitempty"`
}

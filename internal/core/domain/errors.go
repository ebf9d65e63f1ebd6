package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Registry Errors
// ============================================================================

var (
	ErrComponentNotFound    = errors.New("component not found")
	ErrComponentExists      = errors.New("component already registered")
	ErrMetadataConflict     = errors.New("metadata conflicts with registered component")
	ErrInvalidComponent     = errors.New("invalid component metadata")
	ErrInvalidFingerprint   = errors.New("invalid fingerprint")
	ErrUnsupportedAlgorithm = errors.New("unsupported fingerprint algorithm")
)

// ============================================================================
// Lineage Errors
// ============================================================================

var (
	ErrUnknownComponent = errors.New("referenced component is not registered")
	ErrCycleDetected    = errors.New("edge would create a lineage cycle")
	ErrEdgeNotFound     = errors.New("active lineage edge not found")
	ErrInvalidRelation  = errors.New("relation must match [a-z0-9][a-z0-9._:-]* and must not use the retracted: prefix")
)

// ============================================================================
// Snapshot Errors
// ============================================================================

var (
	ErrSnapshotNotFound   = errors.New("bom snapshot not found")
	ErrSnapshotExists     = errors.New("bom snapshot already exists")
	ErrMissingProjectID   = errors.New("project ID is required")
	ErrNoRoots            = errors.New("at least one root fingerprint is required")
	ErrTraversalAborted   = errors.New("lineage traversal aborted before completion")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrSigningUnavailable = errors.New("no signing key configured")
)

// ============================================================================
// Verification / IO Errors
// ============================================================================

var (
	ErrIOUnavailable = errors.New("artifact content unavailable")
	ErrMismatch      = errors.New("artifact fingerprint mismatch")
)

// ============================================================================
// KServe Errors
// ============================================================================

var (
	ErrKServeNotAvailable = errors.New("kserve integration is not available")
)

// CycleError carries the edge that was rejected and the existing path that
// would close the loop (parent ... child).
type CycleError struct {
	Child    Fingerprint
	Parent   Fingerprint
	Relation string
	Path     []Fingerprint
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Path))
	for _, fp := range e.Path {
		parts = append(parts, fp.String())
	}
	return fmt.Sprintf("%s: %s -[%s]-> %s closes path %s",
		ErrCycleDetected, e.Child, e.Relation, e.Parent, strings.Join(parts, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// MetadataConflictError reports a registration that disagrees with the
// record already stored for the same content.
type MetadataConflictError struct {
	Fingerprint Fingerprint
	Field       string
	Existing    string
	Requested   string
}

func (e *MetadataConflictError) Error() string {
	return fmt.Sprintf("%s: %s field %q is %q, requested %q",
		ErrMetadataConflict, e.Fingerprint, e.Field, e.Existing, e.Requested)
}

func (e *MetadataConflictError) Unwrap() error { return ErrMetadataConflict }

// UnknownComponentError lists the fingerprints that were referenced but not
// registered.
type UnknownComponentError struct {
	Fingerprints []Fingerprint
}

func (e *UnknownComponentError) Error() string {
	parts := make([]string, 0, len(e.Fingerprints))
	for _, fp := range e.Fingerprints {
		parts = append(parts, fp.String())
	}
	return fmt.Sprintf("%s: %s", ErrUnknownComponent, strings.Join(parts, ", "))
}

func (e *UnknownComponentError) Unwrap() error { return ErrUnknownComponent }

// MismatchError reports content whose digest differs from the expected one.
type MismatchError struct {
	Expected Fingerprint
	Actual   Fingerprint
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrMismatch, e.Expected, e.Actual)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// IOError wraps a read failure for an artifact location.
type IOError struct {
	Location string
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrIOUnavailable, e.Location, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIOUnavailable, e.Err} }

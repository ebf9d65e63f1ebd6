package domain

import "time"

type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationMismatch VerificationStatus = "mismatch"
)

// VerificationResult is the outcome of re-hashing a component's source.
// A mismatch is evidence only; the registry record is never rewritten.
type VerificationResult struct {
	Fingerprint    Fingerprint        `json:"fingerprint"`
	Status         VerificationStatus `json:"status"`
	Expected       Fingerprint        `json:"expected"`
	Actual         Fingerprint        `json:"actual"`
	SourceLocation string             `json:"source_location"`
	SizeBytes      int64              `json:"size_bytes"`
	CheckedAt      time.Time          `json:"checked_at"`
}

func (r *VerificationResult) Verified() bool {
	return r.Status == VerificationVerified
}

// VerificationReport summarizes a registry sweep.
type VerificationReport struct {
	Checked     int                   `json:"checked"`
	Verified    int                   `json:"verified"`
	Mismatched  []*VerificationResult `json:"mismatched"`
	Unavailable []VerificationFailure `json:"unavailable"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
}

type VerificationFailure struct {
	Fingerprint    Fingerprint `json:"fingerprint"`
	SourceLocation string      `json:"source_location"`
	Error          string      `json:"error"`
}

package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

type Algorithm string

const (
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
	AlgorithmBLAKE3 Algorithm = "blake3"
)

// DigestSize returns the digest length in bytes, or 0 for unknown algorithms.
func (a Algorithm) DigestSize() int {
	switch a {
	case AlgorithmSHA256, AlgorithmBLAKE3:
		return 32
	case AlgorithmSHA512:
		return 64
	}
	return 0
}

func (a Algorithm) Valid() bool {
	return a.DigestSize() > 0
}

// Fingerprint is a content digest plus the algorithm that produced it.
// Its text form "<algorithm>:<hex>" is the registry key.
type Fingerprint struct {
	Algorithm Algorithm
	Digest    string
}

func (f Fingerprint) String() string {
	if f.IsZero() {
		return ""
	}
	return string(f.Algorithm) + ":" + f.Digest
}

func (f Fingerprint) IsZero() bool {
	return f.Algorithm == "" && f.Digest == ""
}

// Short returns the first 12 hex characters, for logs.
func (f Fingerprint) Short() string {
	if len(f.Digest) <= 12 {
		return f.Digest
	}
	return f.Digest[:12]
}

func (f Fingerprint) Validate() error {
	if !f.Algorithm.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, f.Algorithm)
	}
	raw, err := hex.DecodeString(f.Digest)
	if err != nil || len(raw) != f.Algorithm.DigestSize() || strings.ToLower(f.Digest) != f.Digest {
		return fmt.Errorf("%w: %s digest must be %d lowercase hex bytes", ErrInvalidFingerprint, f.Algorithm, f.Algorithm.DigestSize())
	}
	return nil
}

// Bytes returns the raw digest.
func (f Fingerprint) Bytes() []byte {
	raw, _ := hex.DecodeString(f.Digest)
	return raw
}

// ParseFingerprint accepts "<algorithm>:<hex>" or a bare sha256 hex digest.
func ParseFingerprint(s string) (Fingerprint, error) {
	s = strings.TrimSpace(s)
	var fp Fingerprint
	if alg, digest, ok := strings.Cut(s, ":"); ok {
		fp = Fingerprint{Algorithm: Algorithm(strings.ToLower(alg)), Digest: strings.ToLower(digest)}
	} else {
		fp = Fingerprint{Algorithm: AlgorithmSHA256, Digest: strings.ToLower(s)}
	}
	if err := fp.Validate(); err != nil {
		return Fingerprint{}, err
	}
	return fp, nil
}

func MustParseFingerprint(s string) Fingerprint {
	fp, err := ParseFingerprint(s)
	if err != nil {
		panic(err)
	}
	return fp
}

func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Fingerprint) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*f = Fingerprint{}
		return nil
	}
	fp, err := ParseFingerprint(string(text))
	if err != nil {
		return err
	}
	*f = fp
	return nil
}

// Less orders fingerprints by their text form.
func (f Fingerprint) Less(other Fingerprint) bool {
	return f.String() < other.String()
}

// Package fingerprint computes deterministic content digests for artifacts
// and canonical digests for structured manifests.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/zeebo/blake3"

	"ai-bom-service/internal/core/domain"
)

// chunkSize bounds memory per in-flight artifact; content is never buffered whole.
const chunkSize = 1 << 20

type Engine struct {
	algorithm domain.Algorithm
}

// New returns an engine for the given algorithm. An empty algorithm means sha256.
func New(algorithm domain.Algorithm) (*Engine, error) {
	if algorithm == "" {
		algorithm = domain.AlgorithmSHA256
	}
	if !algorithm.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedAlgorithm, algorithm)
	}
	return &Engine{algorithm: algorithm}, nil
}

func (e *Engine) Algorithm() domain.Algorithm {
	return e.algorithm
}

// WithAlgorithm returns an engine sharing nothing but the algorithm choice.
func (e *Engine) WithAlgorithm(algorithm domain.Algorithm) (*Engine, error) {
	if algorithm == "" || algorithm == e.algorithm {
		return e, nil
	}
	return New(algorithm)
}

func newHash(algorithm domain.Algorithm) hash.Hash {
	switch algorithm {
	case domain.AlgorithmSHA512:
		return sha512.New()
	case domain.AlgorithmBLAKE3:
		return blake3.New()
	default:
		return sha256.New()
	}
}

// Fingerprint streams r through the digest and returns the fingerprint and
// the number of bytes read. Read failures wrap domain.ErrIOUnavailable.
func (e *Engine) Fingerprint(ctx context.Context, r io.Reader) (domain.Fingerprint, int64, error) {
	h := newHash(e.algorithm)
	buf := make([]byte, chunkSize)
	var size int64
	for {
		if err := ctx.Err(); err != nil {
			return domain.Fingerprint{}, size, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			size += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Fingerprint{}, size, fmt.Errorf("%w: read artifact: %v", domain.ErrIOUnavailable, err)
		}
	}
	return e.sum(h), size, nil
}

// FingerprintBytes digests an in-memory byte slice.
func (e *Engine) FingerprintBytes(b []byte) domain.Fingerprint {
	h := newHash(e.algorithm)
	h.Write(b)
	return e.sum(h)
}

// FingerprintManifest digests the canonical encoding of v. Semantically
// equal values hash equal regardless of map construction order.
func (e *Engine) FingerprintManifest(v any) (domain.Fingerprint, error) {
	data, err := Canonical(v)
	if err != nil {
		return domain.Fingerprint{}, err
	}
	return e.FingerprintBytes(data), nil
}

func (e *Engine) sum(h hash.Hash) domain.Fingerprint {
	return domain.Fingerprint{
		Algorithm: e.algorithm,
		Digest:    hex.EncodeToString(h.Sum(nil)),
	}
}

package services

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

// GenerateSigningKey returns a new ed25519 key pair as PKCS#8 and PKIX PEM
// blocks, plus its key id.
func GenerateSigningKey() (privPEM, pubPEM []byte, keyID string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, "", fmt.Errorf("generate ed25519 key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, "", fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, nil, "", fmt.Errorf("marshal public key: %w", err)
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, KeyID(pub), nil
}

// LoadSigningKey reads a PKCS#8 PEM ed25519 private key.
func LoadSigningKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	return ParseSigningKey(data)
}

func ParseSigningKey(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("signing key: no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key is %T, want ed25519", key)
	}
	return priv, nil
}

// KeyID is the base64url encoding of the raw public key, so a signature can
// be checked without a key directory.
func KeyID(pub ed25519.PublicKey) string {
	return base64.URLEncoding.EncodeToString(pub)
}

type SigningService struct {
	signatures ports.SignatureRepository
	snapshots  *SnapshotService
	key        ed25519.PrivateKey
	audit      *AuditService
}

// NewSigningService builds a signer. A nil key leaves verification
// available and makes Sign return domain.ErrSigningUnavailable.
func NewSigningService(signatures ports.SignatureRepository, snapshots *SnapshotService, key ed25519.PrivateKey, audit *AuditService) *SigningService {
	return &SigningService{signatures: signatures, snapshots: snapshots, key: key, audit: audit}
}

// Sign attests the snapshot's manifest digest, recomputed from its stored
// contents, and appends the signature.
func (s *SigningService) Sign(ctx context.Context, snapshotID string) (*domain.Signature, error) {
	if s.key == nil {
		return nil, domain.ErrSigningUnavailable
	}
	snapshot, err := s.snapshots.Get(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	digest, err := s.snapshots.ManifestDigest(snapshot)
	if err != nil {
		return nil, err
	}
	if digest.String() != snapshot.ID {
		return nil, &domain.MismatchError{Expected: domain.MustParseFingerprint(snapshot.ID), Actual: digest}
	}

	sig := &domain.Signature{
		SnapshotID: snapshot.ID,
		KeyID:      KeyID(s.key.Public().(ed25519.PublicKey)),
		Algorithm:  "ed25519-" + string(digest.Algorithm),
		Signature:  base64.StdEncoding.EncodeToString(ed25519.Sign(s.key, digest.Bytes())),
		SignedAt:   time.Now().UTC().Truncate(time.Microsecond),
		Actor:      domain.ActorFromContext(ctx),
	}
	if err := s.signatures.Append(ctx, sig); err != nil {
		return nil, fmt.Errorf("store signature: %w", err)
	}

	log.WithFields(log.Fields{
		"snapshot_id": snapshot.ID,
		"key_id":      sig.KeyID,
	}).Info("bom snapshot signed")

	entry := domain.NewAuditEntry(ctx, domain.AuditEntitySnapshot, snapshot.ID, domain.AuditActionSign, map[string]string{
		"key_id":    sig.KeyID,
		"algorithm": sig.Algorithm,
	})
	entry.ProjectID = snapshot.ProjectID
	s.audit.Record(ctx, entry)
	return sig, nil
}

func (s *SigningService) List(ctx context.Context, snapshotID string) ([]*domain.Signature, error) {
	if _, err := s.snapshots.Get(ctx, snapshotID); err != nil {
		return nil, err
	}
	return s.signatures.ListBySnapshot(ctx, snapshotID)
}

// VerifySignatures checks every stored signature against the digest
// recomputed from the snapshot's stored contents.
func (s *SigningService) VerifySignatures(ctx context.Context, snapshotID string) ([]domain.SignatureCheck, error) {
	snapshot, err := s.snapshots.Get(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	digest, err := s.snapshots.ManifestDigest(snapshot)
	if err != nil {
		return nil, err
	}
	sigs, err := s.signatures.ListBySnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	checks := make([]domain.SignatureCheck, 0, len(sigs))
	for _, sig := range sigs {
		check := domain.SignatureCheck{Signature: *sig}
		check.Reason = checkSignature(sig, snapshot.ID, digest)
		check.Valid = check.Reason == ""
		checks = append(checks, check)
	}
	return checks, nil
}

func checkSignature(sig *domain.Signature, snapshotID string, digest domain.Fingerprint) string {
	if digest.String() != snapshotID {
		return "snapshot contents no longer match its id"
	}
	if sig.Algorithm != "ed25519-"+string(digest.Algorithm) {
		return fmt.Sprintf("unsupported algorithm %q", sig.Algorithm)
	}
	pub, err := base64.URLEncoding.DecodeString(sig.KeyID)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return "malformed key id"
	}
	raw, err := base64.StdEncoding.DecodeString(sig.Signature)
	if err != nil {
		return "malformed signature encoding"
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), digest.Bytes(), raw) {
		return "signature does not verify"
	}
	return ""
}

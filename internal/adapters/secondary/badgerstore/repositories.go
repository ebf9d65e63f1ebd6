package badgerstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"ai-bom-service/internal/core/domain"
	ports "ai-bom-service/internal/core/ports/output"
)

var (
	_ ports.ComponentRepository = (*componentRepo)(nil)
	_ ports.EdgeRepository      = (*edgeRepo)(nil)
	_ ports.SnapshotRepository  = (*snapshotRepo)(nil)
	_ ports.SignatureRepository = (*signatureRepo)(nil)
	_ ports.AuditRepository     = (*auditRepo)(nil)
)

// ============================================================================
// Components
// ============================================================================

type componentRepo struct {
	db *badger.DB
}

func NewComponentRepository(db *badger.DB) ports.ComponentRepository {
	return &componentRepo{db: db}
}

func componentKey(fp domain.Fingerprint) []byte {
	return key(prefixComponent, []byte(fp.String()))
}

func componentIndexKey(c *domain.Component) []byte {
	return key(prefixComponentIndex, nanos(c.CreatedAt), []byte("/"), []byte(c.Fingerprint.String()))
}

func (r *componentRepo) Create(ctx context.Context, c *domain.Component) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return updateRetrying(r.db, func(txn *badger.Txn) error {
		_, err := txn.Get(componentKey(c.Fingerprint))
		if err == nil {
			return domain.ErrComponentExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check component: %w", err)
		}
		if err := setJSON(txn, componentKey(c.Fingerprint), c); err != nil {
			return err
		}
		return txn.Set(componentIndexKey(c), nil)
	})
}

func (r *componentRepo) GetByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var c domain.Component
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, componentKey(fp), &c)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrComponentNotFound, fp)
	}
	if err != nil {
		return nil, fmt.Errorf("get component: %w", err)
	}
	return &c, nil
}

func (r *componentRepo) List(ctx context.Context, filter ports.ComponentListFilter) ([]*domain.Component, error) {
	out := make([]*domain.Component, 0, filter.Limit)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefixComponentIndex
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefixComponentIndex
		var after []byte
		if !filter.AfterCreatedAt.IsZero() {
			after = componentIndexKey(&domain.Component{CreatedAt: filter.AfterCreatedAt, Fingerprint: filter.AfterFingerprint})
			seek = after
		}
		for it.Seek(seek); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			k := it.Item().Key()
			if after != nil && bytes.Compare(k, after) <= 0 {
				continue
			}
			fpText := k[len(prefixComponentIndex)+9:]
			var c domain.Component
			if err := getJSON(txn, key(prefixComponent, fpText), &c); err != nil {
				return fmt.Errorf("load indexed component %s: %w", fpText, err)
			}
			if filter.Type != "" && c.Type != filter.Type {
				continue
			}
			out = append(out, &c)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	return out, nil
}

// ============================================================================
// Edges
// ============================================================================

type edgeRepo struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewEdgeRepository(db *badger.DB, seq *badger.Sequence) ports.EdgeRepository {
	return &edgeRepo{db: db, seq: seq}
}

func (r *edgeRepo) Append(ctx context.Context, e *domain.Edge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next, err := r.seq.Next()
	if err != nil {
		return fmt.Errorf("next edge sequence: %w", err)
	}
	e.Seq = int64(next) + 1
	return updateRetrying(r.db, func(txn *badger.Txn) error {
		return setJSON(txn, key(prefixEdge, u64(uint64(e.Seq))), e)
	})
}

func (r *edgeRepo) List(ctx context.Context) ([]*domain.Edge, error) {
	var out []*domain.Edge
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixEdge
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e domain.Edge
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				return err
			}
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	return out, nil
}

// ============================================================================
// Snapshots
// ============================================================================

type snapshotRepo struct {
	db *badger.DB
}

func NewSnapshotRepository(db *badger.DB) ports.SnapshotRepository {
	return &snapshotRepo{db: db}
}

func snapshotKey(id string) []byte {
	return key(prefixSnapshot, []byte(id))
}

func projectPrefix(projectID string) []byte {
	return key(prefixProjectIndex, []byte(projectID), []byte{0})
}

func (r *snapshotRepo) Create(ctx context.Context, s *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return updateRetrying(r.db, func(txn *badger.Txn) error {
		_, err := txn.Get(snapshotKey(s.ID))
		if err == nil {
			return domain.ErrSnapshotExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check snapshot: %w", err)
		}
		if err := setJSON(txn, snapshotKey(s.ID), s); err != nil {
			return err
		}
		return txn.Set(key(projectPrefix(s.ProjectID), nanos(s.CreatedAt), []byte("/"), []byte(s.ID)), nil)
	})
}

func (r *snapshotRepo) GetByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var s domain.Snapshot
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, snapshotKey(id), &s)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &s, nil
}

func (r *snapshotRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.Snapshot, error) {
	out := make([]*domain.Snapshot, 0)
	prefix := projectPrefix(projectID)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id := it.Item().Key()[len(prefix)+9:]
			var s domain.Snapshot
			if err := getJSON(txn, key(prefixSnapshot, id), &s); err != nil {
				return fmt.Errorf("load indexed snapshot %s: %w", id, err)
			}
			out = append(out, &s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list project snapshots: %w", err)
	}
	return out, nil
}

// ============================================================================
// Signatures
// ============================================================================

type signatureRepo struct {
	db *badger.DB
}

func NewSignatureRepository(db *badger.DB) ports.SignatureRepository {
	return &signatureRepo{db: db}
}

func signaturePrefix(snapshotID string) []byte {
	return key(prefixSignature, []byte(snapshotID), []byte{0})
}

func (r *signatureRepo) Append(ctx context.Context, sig *domain.Signature) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key(signaturePrefix(sig.SnapshotID), nanos(sig.SignedAt), []byte("/"), []byte(sig.KeyID))
	return updateRetrying(r.db, func(txn *badger.Txn) error {
		return setJSON(txn, k, sig)
	})
}

func (r *signatureRepo) ListBySnapshot(ctx context.Context, snapshotID string) ([]*domain.Signature, error) {
	out := make([]*domain.Signature, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = signaturePrefix(snapshotID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var sig domain.Signature
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &sig) }); err != nil {
				return err
			}
			out = append(out, &sig)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return out, nil
}

// ============================================================================
// Audit
// ============================================================================

type auditRepo struct {
	db *badger.DB
}

func NewAuditRepository(db *badger.DB) ports.AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := key(prefixAudit, nanos(entry.CreatedAt), []byte("/"), []byte(entry.ID.String()))
	return updateRetrying(r.db, func(txn *badger.Txn) error {
		return setJSON(txn, k, entry)
	})
}

// List returns matching entries newest first.
func (r *auditRepo) List(ctx context.Context, filter ports.AuditListFilter) ([]*domain.AuditEntry, error) {
	out := make([]*domain.AuditEntry, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefixAudit
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(key(prefixAudit, []byte{0xff})); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry domain.AuditEntry
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &entry) }); err != nil {
				return err
			}
			if !filter.Since.IsZero() && entry.CreatedAt.Before(filter.Since) {
				return nil
			}
			if !matchesAudit(&entry, filter) {
				continue
			}
			out = append(out, &entry)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return out, nil
}

func matchesAudit(e *domain.AuditEntry, f ports.AuditListFilter) bool {
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return true
}

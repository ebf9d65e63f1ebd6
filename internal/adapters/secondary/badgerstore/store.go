// Package badgerstore is the embedded storage driver.
//
// Key layout:
//
//	c/<fingerprint>                         component JSON
//	ci/<created_at ns>/<fingerprint>        registry order index
//	e/<seq>                                 edge event JSON
//	s/<snapshot id>                         snapshot JSON
//	sp/<project>\x00<created_at ns>/<id>    project history index
//	g/<snapshot id>\x00<signed_at ns>/<key> signature JSON
//	a/<created_at ns>/<uuid>                audit entry JSON
package badgerstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"

	ports "ai-bom-service/internal/core/ports/output"
)

var (
	prefixComponent      = []byte("c/")
	prefixComponentIndex = []byte("ci/")
	prefixEdge           = []byte("e/")
	prefixSnapshot       = []byte("s/")
	prefixProjectIndex   = []byte("sp/")
	prefixSignature      = []byte("g/")
	prefixAudit          = []byte("a/")
	keyEdgeSequence      = []byte("seq/edge")
)

type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	GCInterval time.Duration
}

// Store owns the badger handle shared by all repositories.
type Store struct {
	db      *badger.DB
	edgeSeq *badger.Sequence
	stopGC  chan struct{}
	gcDone  chan struct{}
}

func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(log.WithField("component", "badger"))
	if cfg.InMemory {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence(keyEdgeSequence, 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open edge sequence: %w", err)
	}

	s := &Store{db: db, edgeSeq: seq}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval)
	}
	return s, nil
}

// OpenInMemory opens a throwaway store for tests and dry runs.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

func (s *Store) runGC(interval time.Duration) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				log.WithError(err).Warn("badger value log GC failed")
			}
		}
	}
}

// Repositories returns the port bundle backed by this store. Closing the
// bundle closes the store.
func (s *Store) Repositories() *ports.Store {
	return &ports.Store{
		Components: NewComponentRepository(s.db),
		Edges:      NewEdgeRepository(s.db, s.edgeSeq),
		Snapshots:  NewSnapshotRepository(s.db),
		Signatures: NewSignatureRepository(s.db),
		Audit:      NewAuditRepository(s.db),
		Close:      s.Close,
	}
}

func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	if err := s.edgeSeq.Release(); err != nil {
		log.WithError(err).Warn("failed to release edge sequence")
	}
	return s.db.Close()
}

// ============================================================================
// Key helpers
// ============================================================================

func key(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func u64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func nanos(t time.Time) []byte {
	return u64(uint64(t.UnixNano()))
}

// updateRetrying runs fn in a read-write transaction, retrying on
// optimistic-concurrency conflicts.
func updateRetrying(db *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		err := db.Update(fn)
		if errors.Is(err, badger.ErrConflict) && attempt < 8 {
			continue
		}
		return err
	}
}

func getJSON(txn *badger.Txn, k []byte, v any) error {
	item, err := txn.Get(k)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	return txn.Set(k, data)
}

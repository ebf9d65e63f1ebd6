package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"ai-bom-service/internal/config"
	ports "ai-bom-service/internal/core/ports/output"
)

//go:embed schema.sql
var schemaSQL string

// Connect opens and pings a pool configured from cfg.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	log.Info("database connection established")
	return pool, nil
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Info("database schema applied")
	return nil
}

// writerLockKey is the session advisory lock held by the one process that
// owns the lineage index for a database.
const writerLockKey int64 = 0x6169626f6d

// ErrWriterLockHeld is returned when another process already owns the store.
var ErrWriterLockHeld = errors.New("another process holds the ai-bom writer lock on this database")

// WriterLock is a session advisory lock held on a connection taken out of the
// pool, so it lives until Release or until the connection drops.
type WriterLock struct {
	conn *pgx.Conn
}

// AcquireWriterLock takes the writer lock without waiting. The lineage index
// is loaded once and then only updated in-process, so a second writer would
// check cycles against a stale graph.
func AcquireWriterLock(ctx context.Context, pool *pgxpool.Pool) (*WriterLock, error) {
	pooled, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	conn := pooled.Hijack()

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, writerLockKey).Scan(&locked); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("take writer lock: %w", err)
	}
	if !locked {
		_ = conn.Close(ctx)
		return nil, ErrWriterLockHeld
	}
	log.Info("postgres writer lock acquired")
	return &WriterLock{conn: conn}, nil
}

// Release unlocks and closes the lock connection.
func (l *WriterLock) Release(ctx context.Context) error {
	if l == nil || l.conn == nil {
		return nil
	}
	_, err := l.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, writerLockKey)
	err = errors.Join(err, l.conn.Close(ctx))
	l.conn = nil
	return err
}

// NewStore bundles the postgres repositories. Closing the bundle releases
// the writer lock and closes the pool.
func NewStore(pool *pgxpool.Pool, lock *WriterLock) *ports.Store {
	return &ports.Store{
		Components: NewComponentRepository(pool),
		Edges:      NewEdgeRepository(pool),
		Snapshots:  NewSnapshotRepository(pool),
		Signatures: NewSignatureRepository(pool),
		Audit:      NewAuditRepository(pool),
		Close: func() error {
			err := lock.Release(context.Background())
			pool.Close()
			return err
		},
	}
}

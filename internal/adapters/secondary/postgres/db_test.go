package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool connects to the database named by AIBOM_TEST_POSTGRES_DSN.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("AIBOM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AIBOM_TEST_POSTGRES_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestWriterLock_SecondProcessFailsFast(t *testing.T) {
	ctx := context.Background()
	first := testPool(t)
	second := testPool(t)

	lock, err := AcquireWriterLock(ctx, first)
	require.NoError(t, err)

	_, err = AcquireWriterLock(ctx, second)
	assert.ErrorIs(t, err, ErrWriterLockHeld)

	require.NoError(t, lock.Release(ctx))
	require.NoError(t, lock.Release(ctx), "release is idempotent")

	again, err := AcquireWriterLock(ctx, second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestNewStore_CloseReleasesLock(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	other := testPool(t)

	lock, err := AcquireWriterLock(ctx, pool)
	require.NoError(t, err)
	store := NewStore(pool, lock)
	require.NoError(t, store.Close())

	next, err := AcquireWriterLock(ctx, other)
	require.NoError(t, err)
	require.NoError(t, next.Release(ctx))
}

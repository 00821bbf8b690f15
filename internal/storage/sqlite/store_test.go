package sqlite

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"example.com/homealarm/internal/storage"
	"example.com/homealarm/internal/storage/storagetest"
)

// setupTestStore opens a migrated database in a temporary directory.
func setupTestStore(t *testing.T) storage.Store {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	require.NoError(t, Migrate(ctx, db, logrus.NewEntry(log)))

	s := NewStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, setupTestStore)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "twice.db")

	log := logrus.New()
	log.SetOutput(io.Discard)

	for i := 0; i < 2; i++ {
		db, err := Open(ctx, path)
		require.NoError(t, err)
		require.NoError(t, Migrate(ctx, db, logrus.NewEntry(log)))
		require.NoError(t, db.Close())
	}
}

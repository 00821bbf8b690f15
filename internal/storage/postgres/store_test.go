package postgres

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"example.com/homealarm/internal/storage"
	"example.com/homealarm/internal/storage/storagetest"
)

// setupTestStore connects to ALARM_TEST_POSTGRES_DSN, migrates and empties the tables.
func setupTestStore(t *testing.T) storage.Store {
	t.Helper()

	dsn := os.Getenv("ALARM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ALARM_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)
	require.NoError(t, db.Migrate(ctx, logrus.NewEntry(log)))

	_, err = db.Pool.Exec(ctx, "TRUNCATE events, motions RESTART IDENTITY")
	require.NoError(t, err)

	return NewStore(db)
}

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, setupTestStore)
}

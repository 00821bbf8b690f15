package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/logging"
	"example.com/homealarm/internal/metrics"
	"example.com/homealarm/internal/storage"
	"example.com/homealarm/internal/storage/sqlite"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   storage.Store
	metrics *metrics.Recorder
	events  *EventService
	motions *MotionService
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(ctx, db, logging.Discard()))
	store := sqlite.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })

	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store storage.Store) *fixture {
	t.Helper()

	f := &fixture{store: store, metrics: metrics.NewRecorder(), clock: testNow}
	deps := Deps{
		Store:    store,
		Registry: domain.MustStatusRegistry(domain.DefaultStatuses),
		Log:      logging.Discard(),
		Metrics:  f.metrics,
		Now:      func() time.Time { return f.clock },
	}
	f.events = NewEventService(deps)
	f.motions = NewMotionService(deps, f.events)
	return f
}

func (f *fixture) countEvents(t *testing.T) int {
	t.Helper()
	all, err := f.store.ListEvents(context.Background())
	require.NoError(t, err)
	return len(all)
}

var errDisk = errors.New("disk full")

// failingEvents rejects every event insert, inside transactions too.
type failingEvents struct {
	storage.Store
}

func (f failingEvents) InsertEvent(context.Context, *domain.Event) error { return errDisk }

func (f failingEvents) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx storage.Store) error {
		return fn(failingEvents{Store: tx})
	})
}

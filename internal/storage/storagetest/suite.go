// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/storage"
)

// Base is a millisecond-aligned instant used to seed rows.
var Base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// Run executes the conformance suite. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("InsertAndListEvents", func(t *testing.T) { testInsertAndListEvents(t, newStore(t)) })
	t.Run("ListEventsByType", func(t *testing.T) { testListEventsByType(t, newStore(t)) })
	t.Run("LastEventByType", func(t *testing.T) { testLastEventByType(t, newStore(t)) })
	t.Run("PageEventsBetween", func(t *testing.T) { testPageEventsBetween(t, newStore(t)) })
	t.Run("PageRejectsUnknownColumn", func(t *testing.T) { testPageRejectsUnknownColumn(t, newStore(t)) })
	t.Run("Motions", func(t *testing.T) { testMotions(t, newStore(t)) })
	t.Run("WithinTxRollback", func(t *testing.T) { testWithinTxRollback(t, newStore(t)) })
	t.Run("WithinTxCommit", func(t *testing.T) { testWithinTxCommit(t, newStore(t)) })
	t.Run("CountEvents", func(t *testing.T) { testCountEvents(t, newStore(t)) })
}

// Seed inserts one event per status at one-minute intervals starting at Base.
func Seed(t *testing.T, s storage.Store, statuses ...domain.StatusDefinition) []domain.Event {
	t.Helper()
	out := make([]domain.Event, 0, len(statuses))
	for i, st := range statuses {
		ev := domain.Event{
			DateEvent:   Base.Add(time.Duration(i) * time.Minute),
			EventType:   st.Category,
			EventStatus: st.Token,
			EmitterID:   string(st.Category),
		}
		require.NoError(t, s.InsertEvent(context.Background(), &ev))
		out = append(out, ev)
	}
	return out
}

func testInsertAndListEvents(t *testing.T, s storage.Store) {
	ctx := context.Background()

	empty, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	seeded := Seed(t, s, domain.DefaultStatuses...)
	for _, ev := range seeded {
		assert.NotZero(t, ev.ID)
	}

	got, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(seeded))

	byID := make(map[int64]domain.Event, len(got))
	for _, ev := range got {
		byID[ev.ID] = ev
	}
	for _, want := range seeded {
		have, ok := byID[want.ID]
		require.True(t, ok, "event %d missing", want.ID)
		assert.True(t, want.DateEvent.Equal(have.DateEvent), "dateEvent %v != %v", want.DateEvent, have.DateEvent)
		assert.Equal(t, want.EventType, have.EventType)
		assert.Equal(t, want.EventStatus, have.EventStatus)
		assert.Equal(t, want.EmitterID, have.EmitterID)
	}
}

func testListEventsByType(t *testing.T, s storage.Store) {
	ctx := context.Background()

	none, err := s.ListEventsByType(ctx, domain.EventTypeAlarm)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	seeded := Seed(t, s, domain.DefaultStatuses...)
	seeded = append(seeded, Seed(t, s, domain.StatusDefinition{Token: "closed", Category: domain.EventTypeDoorSensor})...)

	doors, err := s.ListEventsByType(ctx, domain.EventTypeDoorSensor)
	require.NoError(t, err)

	var want []int64
	for _, ev := range seeded {
		if ev.EventType == domain.EventTypeDoorSensor {
			want = append(want, ev.ID)
		}
	}
	got := make([]int64, 0, len(doors))
	for _, ev := range doors {
		assert.Equal(t, domain.EventTypeDoorSensor, ev.EventType)
		got = append(got, ev.ID)
	}
	assert.Equal(t, want, got)
}

func testLastEventByType(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.LastEventByType(ctx, domain.EventTypeAlarm)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	intrusion := domain.StatusDefinition{Token: "intrusion", Category: domain.EventTypeAlarm}
	warning := domain.StatusDefinition{Token: "warning", Category: domain.EventTypeAlarm}
	open := domain.StatusDefinition{Token: "open", Category: domain.EventTypeDoorSensor}
	seeded := Seed(t, s, intrusion, warning, open, intrusion, open)

	last, err := s.LastEventByType(ctx, domain.EventTypeAlarm)
	require.NoError(t, err)
	assert.Equal(t, seeded[3].ID, last.ID)
	assert.Equal(t, domain.EventStatus("intrusion"), last.EventStatus)

	lastDoor, err := s.LastEventByType(ctx, domain.EventTypeDoorSensor)
	require.NoError(t, err)
	assert.Equal(t, seeded[4].ID, lastDoor.ID)
}

func testPageEventsBetween(t *testing.T, s storage.Store) {
	ctx := context.Background()

	open := domain.StatusDefinition{Token: "open", Category: domain.EventTypeDoorSensor}
	statuses := make([]domain.StatusDefinition, 30)
	for i := range statuses {
		statuses[i] = open
	}
	seeded := Seed(t, s, statuses...)

	// Window covers minutes 5..24 inclusive: 20 rows.
	from := Base.Add(5 * time.Minute)
	to := Base.Add(24 * time.Minute)

	page, err := s.PageEventsBetween(ctx, from, to, storage.PageQuery{Index: 1, Size: 8, Sort: storage.SortByID, Desc: true})
	require.NoError(t, err)
	assert.EqualValues(t, 20, page.Total)
	require.Len(t, page.Rows, 8)
	// Descending from minute 24: page 0 holds 24..17, page 1 holds 16..9.
	assert.Equal(t, seeded[16].ID, page.Rows[0].ID)
	assert.Equal(t, seeded[9].ID, page.Rows[7].ID)

	last, err := s.PageEventsBetween(ctx, from, to, storage.PageQuery{Index: 2, Size: 8, Sort: storage.SortByDateEvent})
	require.NoError(t, err)
	require.Len(t, last.Rows, 4)
	assert.Equal(t, seeded[21].ID, last.Rows[0].ID)

	all, err := s.PageEventsBetween(ctx, from, to, storage.PageQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Rows, 20)
	assert.Equal(t, seeded[5].ID, all.Rows[0].ID)

	none, err := s.PageEventsBetween(ctx, Base.Add(-time.Hour), Base.Add(-time.Minute), storage.PageQuery{Size: 10})
	require.NoError(t, err)
	assert.Zero(t, none.Total)
	assert.Empty(t, none.Rows)
}

func testPageRejectsUnknownColumn(t *testing.T, s storage.Store) {
	_, err := s.PageEventsBetween(context.Background(), Base, Base.Add(time.Hour),
		storage.PageQuery{Size: 10, Sort: "id; DROP TABLE events"})
	assert.Error(t, err)
}

func testMotions(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		m := domain.Motion{DateEvent: Base.Add(time.Duration(i) * time.Hour), Filename: name}
		require.NoError(t, s.InsertMotion(ctx, &m))
		assert.NotZero(t, m.ID)
	}

	all, err := s.ListMotions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.jpg", all[0].Filename)
	assert.True(t, Base.Equal(all[0].DateEvent))

	window, err := s.ListMotionsBetween(ctx, Base.Add(30*time.Minute), Base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "b.jpg", window[0].Filename)
	assert.Equal(t, "c.jpg", window[1].Filename)
}

var errBoom = errors.New("boom")

func testWithinTxRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx storage.Store) error {
		m := domain.Motion{DateEvent: Base, Filename: "x.jpg"}
		if err := tx.InsertMotion(ctx, &m); err != nil {
			return err
		}
		ev := domain.Event{DateEvent: Base, EventType: domain.EventTypeCamera, EventStatus: "motion", EmitterID: "camera"}
		if err := tx.InsertEvent(ctx, &ev); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	motions, err := s.ListMotions(ctx)
	require.NoError(t, err)
	assert.Empty(t, motions)
	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func testWithinTxCommit(t *testing.T, s storage.Store) {
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx storage.Store) error {
		ev := domain.Event{DateEvent: Base, EventType: domain.EventTypeState, EventStatus: "online", EmitterID: "state"}
		if err := tx.InsertEvent(ctx, &ev); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return tx.WithinTx(ctx, func(inner storage.Store) error {
			m := domain.Motion{DateEvent: Base, Filename: "y.jpg"}
			return inner.InsertMotion(ctx, &m)
		})
	})
	require.NoError(t, err)

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	motions, err := s.ListMotions(ctx)
	require.NoError(t, err)
	assert.Len(t, motions, 1)
}

func testCountEvents(t *testing.T, s storage.Store) {
	ctx := context.Background()

	open := domain.StatusDefinition{Token: "open", Category: domain.EventTypeDoorSensor}
	online := domain.StatusDefinition{Token: "online", Category: domain.EventTypeState}
	Seed(t, s, open, online, open)

	// A second door emitter, one day later.
	ev := domain.Event{DateEvent: Base.Add(24 * time.Hour), EventType: domain.EventTypeDoorSensor, EventStatus: "closed", EmitterID: "back-door"}
	require.NoError(t, s.InsertEvent(ctx, &ev))

	from, to := Base.Add(-time.Hour), Base.Add(48*time.Hour)

	tot, err := s.CountEvents(ctx, from, to, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, tot.Count)
	assert.EqualValues(t, 3, tot.Emitters)

	door := domain.EventTypeDoorSensor
	tot, err = s.CountEvents(ctx, from, to, &door)
	require.NoError(t, err)
	assert.EqualValues(t, 3, tot.Count)
	assert.EqualValues(t, 2, tot.Emitters)

	buckets, err := s.CountEventsDaily(ctx, from, to, &door)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day.Unix(), buckets[0].BucketStart)
	assert.EqualValues(t, 2, buckets[0].Count)
	assert.Equal(t, day.Add(24*time.Hour).Unix(), buckets[1].BucketStart)
	assert.EqualValues(t, 1, buckets[1].Count)
}

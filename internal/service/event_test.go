package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/homealarm/internal/domain"
)

func TestRecordState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.events.RecordState(ctx, "online")
	require.NoError(t, err)
	assert.NotZero(t, ev.ID)
	assert.Equal(t, domain.EventTypeState, ev.EventType)
	assert.Equal(t, domain.EventStatus("online"), ev.EventStatus)
	assert.Equal(t, "state", ev.EmitterID)
	assert.True(t, testNow.Equal(ev.DateEvent))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsRecorded.WithLabelValues("state")))
}

func TestRecordState_InvalidTokenWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.events.RecordState(ctx, "exploded")
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)

	// Valid token, wrong category.
	_, err = f.events.RecordState(ctx, "intrusion")
	assert.ErrorIs(t, err, domain.ErrStatusCategoryMismatch)

	assert.Zero(t, f.countEvents(t))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.EventsRejected.WithLabelValues("state")))
}

func TestRecordAlarm(t *testing.T) {
	f := newFixture(t)

	ev, err := f.events.RecordAlarm(context.Background(), "intrusion")
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeAlarm, ev.EventType)
	assert.Equal(t, "alarm", ev.EmitterID)

	_, err = f.events.RecordAlarm(context.Background(), "online")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.Equal(t, 1, f.countEvents(t))
}

func TestRecordSensor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.events.RecordSensor(ctx, "front-door", "open")
	require.NoError(t, err)
	assert.Equal(t, "front-door", ev.EmitterID)
	assert.Equal(t, domain.EventTypeDoorSensor, ev.EventType)

	for _, token := range []string{"motion", "ajar", ""} {
		_, err := f.events.RecordSensor(ctx, "front-door", token)
		assert.ErrorIs(t, err, domain.ErrInvalidStatus, "token %q", token)
	}

	_, err = f.events.RecordSensor(ctx, "", "open")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	assert.Equal(t, 1, f.countEvents(t))
}

func TestRecordSensor_PersistenceFailurePropagates(t *testing.T) {
	base := newFixture(t)
	f := newFixtureWithStore(t, failingEvents{Store: base.store})

	_, err := f.events.RecordSensor(context.Background(), "front-door", "closed")
	assert.ErrorIs(t, err, errDisk)
	assert.Zero(t, base.countEvents(t))
}

func TestListAll_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var recorded []domain.Event
	for i, token := range []string{"open", "closed", "open", "closed", "open"} {
		f.clock = testNow.Add(time.Duration(i) * time.Second)
		ev, err := f.events.RecordSensor(ctx, "door-"+token, token)
		require.NoError(t, err)
		recorded = append(recorded, ev)
	}

	all, err := f.events.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(recorded))
	for i := range recorded {
		assert.Equal(t, recorded[i].ID, all[i].ID)
		assert.True(t, recorded[i].DateEvent.Equal(all[i].DateEvent))
		assert.Equal(t, recorded[i].EventType, all[i].EventType)
		assert.Equal(t, recorded[i].EventStatus, all[i].EventStatus)
		assert.Equal(t, recorded[i].EmitterID, all[i].EmitterID)
	}
}

func TestListByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.events.RecordState(ctx, "online")
	require.NoError(t, err)
	_, err = f.events.RecordSensor(ctx, "front-door", "open")
	require.NoError(t, err)
	_, err = f.events.RecordAlarm(ctx, "warning")
	require.NoError(t, err)
	_, err = f.motions.RecordMotion(ctx, "/captures/cam_0001.jpg")
	require.NoError(t, err)
	_, err = f.events.RecordSensor(ctx, "back-door", "closed")
	require.NoError(t, err)

	doors, err := f.events.ListByType(ctx, domain.EventTypeDoorSensor)
	require.NoError(t, err)
	require.Len(t, doors, 2)
	for _, ev := range doors {
		assert.Equal(t, domain.EventTypeDoorSensor, ev.EventType)
	}
	assert.Equal(t, "front-door", doors[0].EmitterID)
	assert.Equal(t, "back-door", doors[1].EmitterID)

	cams, err := f.events.ListByType(ctx, domain.EventTypeCamera)
	require.NoError(t, err)
	assert.Len(t, cams, 1)
}

func TestLastByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.events.LastByType(ctx, domain.EventTypeAlarm)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var last domain.Event
	for _, token := range []string{"intrusion", "warning", "silenced"} {
		last, err = f.events.RecordAlarm(ctx, token)
		require.NoError(t, err)
		_, err = f.events.RecordState(ctx, "online")
		require.NoError(t, err)
	}

	got, err := f.events.LastByType(ctx, domain.EventTypeAlarm)
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.ID)
	assert.Equal(t, domain.EventStatus("silenced"), got.EventStatus)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.events.RecordSensor(ctx, "front-door", "open")
	require.NoError(t, err)
	_, err = f.events.RecordSensor(ctx, "back-door", "open")
	require.NoError(t, err)
	_, err = f.events.RecordState(ctx, "online")
	require.NoError(t, err)

	door := domain.EventTypeDoorSensor
	st, err := f.events.Stats(ctx, testNow.Add(-time.Hour), testNow.Add(time.Hour), &door, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Totals.Count)
	assert.EqualValues(t, 2, st.Totals.Emitters)
	require.Len(t, st.Buckets, 1)

	_, err = f.events.Stats(ctx, testNow, testNow.Add(-time.Hour), nil, false)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

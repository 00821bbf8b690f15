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

func TestMotionFilename(t *testing.T) {
	tests := map[string]string{
		"/a/b/cam_0001.jpg":         "cam_0001.jpg",
		"cam_0002.jpg":              "cam_0002.jpg",
		`C:\captures\cam_0003.jpg`:  "cam_0003.jpg",
		"/var/motion/2024/03/01/":   "01",
		"":                          "",
		"/":                         "",
		"relative/dir/snapshot.png": "snapshot.png",
	}
	for in, want := range tests {
		assert.Equal(t, want, MotionFilename(in), "input %q", in)
	}
}

func TestRecordMotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.motions.RecordMotion(ctx, "/a/b/cam_0001.jpg")
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.Equal(t, "cam_0001.jpg", m.Filename)

	motions, err := f.motions.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, motions, 1)
	assert.Equal(t, "cam_0001.jpg", motions[0].Filename)
	assert.True(t, testNow.Equal(motions[0].DateEvent))

	events, err := f.events.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeCamera, events[0].EventType)
	assert.Equal(t, domain.EventStatus("motion"), events[0].EventStatus)
	assert.Equal(t, "camera", events[0].EmitterID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MotionsRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventsRecorded.WithLabelValues("camera")))
}

func TestRecordMotion_EmptyPath(t *testing.T) {
	f := newFixture(t)

	m, err := f.motions.RecordMotion(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, m.Filename)
}

func TestRecordMotion_IsAtomic(t *testing.T) {
	base := newFixture(t)
	f := newFixtureWithStore(t, failingEvents{Store: base.store})
	ctx := context.Background()

	_, err := f.motions.RecordMotion(ctx, "/a/b/cam_0001.jpg")
	assert.ErrorIs(t, err, errDisk)

	motions, err := base.store.ListMotions(ctx)
	require.NoError(t, err)
	assert.Empty(t, motions, "motion row must roll back with the failed event insert")
	assert.Zero(t, testutil.ToFloat64(f.metrics.MotionsRecorded))
}

func TestListAroundEvent_IgnoresEventID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, name := range []string{"old.jpg", "mid.jpg", "new.jpg"} {
		f.clock = testNow.Add(time.Duration(i) * 24 * time.Hour)
		_, err := f.motions.RecordMotion(ctx, name)
		require.NoError(t, err)
	}

	from, to := testNow.Add(12*time.Hour), testNow.Add(72*time.Hour)
	a, err := f.motions.ListAroundEvent(ctx, from, to, 1)
	require.NoError(t, err)
	b, err := f.motions.ListAroundEvent(ctx, from, to, 9999)
	require.NoError(t, err)

	require.Len(t, a, 2)
	assert.Equal(t, a, b)
	assert.Equal(t, "mid.jpg", a[0].Filename)
}

func TestListRecent_TrailingTwoDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, name := range []string{"day0.jpg", "day1.jpg", "day2.jpg", "day3.jpg"} {
		f.clock = testNow.Add(time.Duration(i) * 24 * time.Hour)
		_, err := f.motions.RecordMotion(ctx, name)
		require.NoError(t, err)
	}

	// Now is day 3; the window starts exactly on day 1.
	recent, err := f.motions.ListRecent(ctx, 42)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "day1.jpg", recent[0].Filename)
	assert.Equal(t, "day3.jpg", recent[2].Filename)
}

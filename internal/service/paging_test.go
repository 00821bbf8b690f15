package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/storage"
)

var tableColumns = []DataTablesColumn{
	{Data: "id"}, {Data: "dateEvent"}, {Data: "eventType"}, {Data: "eventStatus"}, {Data: "emitterId"}, {Data: "actions"},
}

func TestToPageQuery(t *testing.T) {
	tests := []struct {
		name string
		req  DataTablesRequest
		want storage.PageQuery
	}{
		{
			name: "page index is start over length",
			req:  DataTablesRequest{Start: 20, Length: 10},
			want: storage.PageQuery{Index: 2, Size: 10, Sort: storage.SortByID, Desc: true},
		},
		{
			name: "start not aligned to length rounds down",
			req:  DataTablesRequest{Start: 25, Length: 10},
			want: storage.PageQuery{Index: 2, Size: 10, Sort: storage.SortByID, Desc: true},
		},
		{
			name: "explicit ascending order",
			req: DataTablesRequest{Length: 25, Columns: tableColumns,
				Order: []DataTablesOrder{{Column: 1, Dir: "asc"}}},
			want: storage.PageQuery{Size: 25, Sort: storage.SortByDateEvent},
		},
		{
			name: "direction other than asc is descending",
			req: DataTablesRequest{Length: 25, Columns: tableColumns,
				Order: []DataTablesOrder{{Column: 4, Dir: "whatever"}}},
			want: storage.PageQuery{Size: 25, Sort: storage.SortByEmitterID, Desc: true},
		},
		{
			name: "only the first order entry counts",
			req: DataTablesRequest{Length: 5, Columns: tableColumns,
				Order: []DataTablesOrder{{Column: 2, Dir: "asc"}, {Column: 3, Dir: "desc"}}},
			want: storage.PageQuery{Size: 5, Sort: storage.SortByEventType},
		},
		{
			name: "length -1 returns everything",
			req:  DataTablesRequest{Start: 40, Length: -1},
			want: storage.PageQuery{Sort: storage.SortByID, Desc: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToPageQuery(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToPageQuery_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		req   DataTablesRequest
		field string
	}{
		{"zero length", DataTablesRequest{Length: 0}, "length"},
		{"negative start", DataTablesRequest{Start: -5, Length: 10}, "start"},
		{"negative order column", DataTablesRequest{Length: 10, Columns: tableColumns,
			Order: []DataTablesOrder{{Column: -1}}}, "order[0].column"},
		{"order column out of range", DataTablesRequest{Length: 10, Columns: tableColumns,
			Order: []DataTablesOrder{{Column: 9}}}, "order[0].column"},
		{"unsortable column", DataTablesRequest{Length: 10, Columns: tableColumns,
			Order: []DataTablesOrder{{Column: 5}}}, "order[0].column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToPageQuery(tt.req)
			require.ErrorIs(t, err, ErrInvalidPageRequest)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.ByField(), tt.field)
		})
	}
}

func TestPageEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 35; i++ {
		f.clock = testNow.Add(time.Duration(i) * time.Minute)
		ev, err := f.events.RecordSensor(ctx, "front-door", "open")
		require.NoError(t, err)
		ids = append(ids, ev.ID)
	}

	from, to := testNow, testNow.Add(time.Hour)
	res, err := f.events.PageEvents(ctx, DataTablesRequest{Draw: 7, Start: 20, Length: 10}, from, to)
	require.NoError(t, err)

	assert.Equal(t, 7, res.Draw)
	assert.EqualValues(t, 35, res.RecordsTotal)
	assert.EqualValues(t, 35, res.RecordsFiltered)
	require.Len(t, res.Data, 10)
	// Default order is id descending: page 2 starts 20 rows below the newest.
	assert.Equal(t, ids[14], res.Data[0].ID)
	for i := 1; i < len(res.Data); i++ {
		assert.Greater(t, res.Data[i-1].ID, res.Data[i].ID)
	}
}

func TestPageEvents_WindowFiltersTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		f.clock = testNow.Add(time.Duration(i) * time.Hour)
		_, err := f.events.RecordState(ctx, "online")
		require.NoError(t, err)
	}

	res, err := f.events.PageEvents(ctx, DataTablesRequest{Length: -1}, testNow.Add(2*time.Hour), testNow.Add(4*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.RecordsTotal)
	assert.Len(t, res.Data, 3)

	empty, err := f.events.PageEvents(ctx, DataTablesRequest{Length: 10}, testNow.Add(-48*time.Hour), testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, empty.Data)
	assert.Empty(t, empty.Data)

	_, err = f.events.PageEvents(ctx, DataTablesRequest{Length: 10}, testNow, testNow.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidPageRequest)
}

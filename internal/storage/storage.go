// Package storage defines the persistence contract for events and motions.
// Implementations live in the postgres and sqlite subpackages.
package storage

import (
	"context"
	"fmt"
	"time"

	"example.com/homealarm/internal/domain"
)

// SortColumn names a column events can be ordered by.
type SortColumn string

const (
	SortByID          SortColumn = "id"
	SortByDateEvent   SortColumn = "date_event"
	SortByEventType   SortColumn = "event_type"
	SortByEventStatus SortColumn = "event_status"
	SortByEmitterID   SortColumn = "emitter_id"
)

// Valid reports whether c is one of the known sortable columns.
func (c SortColumn) Valid() bool {
	switch c {
	case SortByID, SortByDateEvent, SortByEventType, SortByEventStatus, SortByEmitterID:
		return true
	}
	return false
}

// PageQuery selects one page of rows. Size 0 means no limit.
type PageQuery struct {
	Index int
	Size  int
	Sort  SortColumn
	Desc  bool
}

// Offset is the number of rows skipped before the page.
func (p PageQuery) Offset() int {
	if p.Size <= 0 {
		return 0
	}
	return p.Index * p.Size
}

// EventPage is one page of events plus the size of the whole window.
type EventPage struct {
	Rows  []domain.Event
	Total int64
}

// Totals summarises events in a window.
type Totals struct {
	Count    int64 `json:"count"`
	Emitters int64 `json:"emitters"`
}

// Bucket is a per-day slice of Totals. BucketStart is epoch seconds (UTC midnight).
type Bucket struct {
	BucketStart int64 `json:"bucketStart"`
	Count       int64 `json:"count"`
	Emitters    int64 `json:"emitters"`
}

// EventStore persists the append-only event log.
type EventStore interface {
	InsertEvent(ctx context.Context, ev *domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ListEventsByType(ctx context.Context, t domain.EventType) ([]domain.Event, error)
	// LastEventByType returns domain.ErrNotFound when no event of type t exists.
	LastEventByType(ctx context.Context, t domain.EventType) (domain.Event, error)
	PageEventsBetween(ctx context.Context, from, to time.Time, q PageQuery) (EventPage, error)
	// CountEvents and CountEventsDaily take an optional type filter (nil = all types).
	CountEvents(ctx context.Context, from, to time.Time, t *domain.EventType) (Totals, error)
	CountEventsDaily(ctx context.Context, from, to time.Time, t *domain.EventType) ([]Bucket, error)
}

// MotionStore persists motion captures.
type MotionStore interface {
	InsertMotion(ctx context.Context, m *domain.Motion) error
	ListMotions(ctx context.Context) ([]domain.Motion, error)
	ListMotionsBetween(ctx context.Context, from, to time.Time) ([]domain.Motion, error)
}

// Store is the full persistence surface.
type Store interface {
	EventStore
	MotionStore

	// WithinTx runs fn against a transaction-scoped Store. The transaction
	// commits when fn returns nil and rolls back otherwise. Calling WithinTx on
	// a transaction-scoped Store joins the running transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	Ready(ctx context.Context) error
	Close() error
}

// OrderBy renders the ORDER BY clause for q. Ties are broken by id in the
// same direction so paging is stable.
func (p PageQuery) OrderBy() (string, error) {
	col := p.Sort
	if col == "" {
		col = SortByID
	}
	if !col.Valid() {
		return "", fmt.Errorf("unsupported sort column %q", col)
	}
	dir := "ASC"
	if p.Desc {
		dir = "DESC"
	}
	if col == SortByID {
		return "ORDER BY id " + dir, nil
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", col, dir, dir), nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/storage"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements storage.Store on a pgx pool.
type Store struct {
	db   *DB
	q    querier
	inTx bool
}

var _ storage.Store = (*Store)(nil)

func NewStore(db *DB) *Store { return &Store{db: db, q: db.Pool} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		return fn(&Store{db: s.db, q: tx, inTx: true})
	})
}

func (s *Store) Ready(ctx context.Context) error { return s.db.Ready(ctx) }

// Close releases the pool. It is a no-op on a transaction-scoped Store.
func (s *Store) Close() error {
	if !s.inTx {
		s.db.Close()
	}
	return nil
}

const eventColumns = "id, date_event, event_type, event_status, emitter_id"

func scanEvent(row pgx.CollectableRow) (domain.Event, error) {
	var (
		ev     domain.Event
		typ    string
		status string
	)
	if err := row.Scan(&ev.ID, &ev.DateEvent, &typ, &status, &ev.EmitterID); err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}
	ev.DateEvent = ev.DateEvent.UTC()
	ev.EventType = domain.EventType(typ)
	ev.EventStatus = domain.EventStatus(status)
	return ev, nil
}

func scanMotion(row pgx.CollectableRow) (domain.Motion, error) {
	var m domain.Motion
	if err := row.Scan(&m.ID, &m.DateEvent, &m.Filename); err != nil {
		return m, fmt.Errorf("scan motion: %w", err)
	}
	m.DateEvent = m.DateEvent.UTC()
	return m, nil
}

func (s *Store) InsertEvent(ctx context.Context, ev *domain.Event) error {
	sql := "INSERT INTO events (date_event, event_type, event_status, emitter_id) VALUES ($1, $2, $3, $4) RETURNING id"
	err := s.q.QueryRow(ctx, sql, ev.DateEvent, string(ev.EventType), string(ev.EventStatus), ev.EmitterID).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.q.Query(ctx, "SELECT "+eventColumns+" FROM events ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return pgx.CollectRows(rows, scanEvent)
}

func (s *Store) ListEventsByType(ctx context.Context, t domain.EventType) ([]domain.Event, error) {
	rows, err := s.q.Query(ctx, "SELECT "+eventColumns+" FROM events WHERE event_type = $1 ORDER BY id", string(t))
	if err != nil {
		return nil, fmt.Errorf("query events by type: %w", err)
	}
	return pgx.CollectRows(rows, scanEvent)
}

func (s *Store) LastEventByType(ctx context.Context, t domain.EventType) (domain.Event, error) {
	sql := "SELECT " + eventColumns + " FROM events WHERE event_type = $1 ORDER BY id DESC LIMIT 1"
	rows, err := s.q.Query(ctx, sql, string(t))
	if err != nil {
		return domain.Event{}, fmt.Errorf("query last event: %w", err)
	}
	ev, err := pgx.CollectExactlyOneRow(rows, scanEvent)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("last %s event: %w", t, domain.ErrNotFound)
	}
	return ev, err
}

func (s *Store) PageEventsBetween(ctx context.Context, from, to time.Time, q storage.PageQuery) (storage.EventPage, error) {
	var page storage.EventPage

	orderBy, err := q.OrderBy()
	if err != nil {
		return page, err
	}

	cond := "WHERE date_event >= $1 AND date_event <= $2"
	if err := s.q.QueryRow(ctx, "SELECT COUNT(*)::bigint FROM events "+cond, from, to).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count events: %w", err)
	}

	sql := "SELECT " + eventColumns + " FROM events " + cond + " " + orderBy
	args := []any{from, to}
	if q.Size > 0 {
		sql += " LIMIT $3 OFFSET $4"
		args = append(args, q.Size, q.Offset())
	}

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return page, fmt.Errorf("query event page: %w", err)
	}
	page.Rows, err = pgx.CollectRows(rows, scanEvent)
	return page, err
}

func (s *Store) InsertMotion(ctx context.Context, m *domain.Motion) error {
	sql := "INSERT INTO motions (date_event, filename) VALUES ($1, $2) RETURNING id"
	if err := s.q.QueryRow(ctx, sql, m.DateEvent, m.Filename).Scan(&m.ID); err != nil {
		return fmt.Errorf("insert motion: %w", err)
	}
	return nil
}

func (s *Store) ListMotions(ctx context.Context) ([]domain.Motion, error) {
	rows, err := s.q.Query(ctx, "SELECT id, date_event, filename FROM motions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query motions: %w", err)
	}
	return pgx.CollectRows(rows, scanMotion)
}

func (s *Store) ListMotionsBetween(ctx context.Context, from, to time.Time) ([]domain.Motion, error) {
	sql := "SELECT id, date_event, filename FROM motions WHERE date_event >= $1 AND date_event <= $2 ORDER BY id"
	rows, err := s.q.Query(ctx, sql, from, to)
	if err != nil {
		return nil, fmt.Errorf("query motions: %w", err)
	}
	return pgx.CollectRows(rows, scanMotion)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/storage"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Store on database/sql.
type Store struct {
	db   *sql.DB
	q    querier
	inTx bool
}

var _ storage.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store { return &Store{db: db, q: db} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database. It is a no-op on a transaction-scoped Store.
func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}

const eventColumns = "id, date_event, event_type, event_status, emitter_id"

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (domain.Event, error) {
	var (
		ev     domain.Event
		date   int64
		typ    string
		status string
	)
	if err := row.Scan(&ev.ID, &date, &typ, &status, &ev.EmitterID); err != nil {
		return ev, err
	}
	ev.DateEvent = fromMillis(date)
	ev.EventType = domain.EventType(typ)
	ev.EventStatus = domain.EventStatus(status)
	return ev, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) InsertEvent(ctx context.Context, ev *domain.Event) error {
	query := `INSERT INTO events (date_event, event_type, event_status, emitter_id) VALUES (?, ?, ?, ?)`
	res, err := s.q.ExecContext(ctx, query,
		toMillis(ev.DateEvent),
		string(ev.EventType),
		string(ev.EventStatus),
		ev.EmitterID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read event id: %w", err)
	}
	ev.ID = id
	return nil
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.queryEvents(ctx, "SELECT "+eventColumns+" FROM events ORDER BY id")
}

func (s *Store) ListEventsByType(ctx context.Context, t domain.EventType) ([]domain.Event, error) {
	return s.queryEvents(ctx, "SELECT "+eventColumns+" FROM events WHERE event_type = ? ORDER BY id", string(t))
}

func (s *Store) LastEventByType(ctx context.Context, t domain.EventType) (domain.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE event_type = ? ORDER BY id DESC LIMIT 1"
	ev, err := scanEvent(s.q.QueryRowContext(ctx, query, string(t)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("last %s event: %w", t, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("failed to query last event: %w", err)
	}
	return ev, nil
}

func (s *Store) PageEventsBetween(ctx context.Context, from, to time.Time, q storage.PageQuery) (storage.EventPage, error) {
	var page storage.EventPage

	orderBy, err := q.OrderBy()
	if err != nil {
		return page, err
	}

	cond := "WHERE date_event >= ? AND date_event <= ?"
	args := []any{toMillis(from), toMillis(to)}
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM events "+cond, args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("failed to count events: %w", err)
	}

	query := "SELECT " + eventColumns + " FROM events " + cond + " " + orderBy
	if q.Size > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Size, q.Offset())
	}

	page.Rows, err = s.queryEvents(ctx, query, args...)
	return page, err
}

func (s *Store) InsertMotion(ctx context.Context, m *domain.Motion) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO motions (date_event, filename) VALUES (?, ?)`,
		toMillis(m.DateEvent), m.Filename)
	if err != nil {
		return fmt.Errorf("failed to insert motion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read motion id: %w", err)
	}
	m.ID = id
	return nil
}

func (s *Store) queryMotions(ctx context.Context, query string, args ...any) ([]domain.Motion, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query motions: %w", err)
	}
	defer rows.Close()

	motions := []domain.Motion{}
	for rows.Next() {
		var (
			m    domain.Motion
			date int64
		)
		if err := rows.Scan(&m.ID, &date, &m.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan motion: %w", err)
		}
		m.DateEvent = fromMillis(date)
		motions = append(motions, m)
	}
	return motions, rows.Err()
}

func (s *Store) ListMotions(ctx context.Context) ([]domain.Motion, error) {
	return s.queryMotions(ctx, "SELECT id, date_event, filename FROM motions ORDER BY id")
}

func (s *Store) ListMotionsBetween(ctx context.Context, from, to time.Time) ([]domain.Motion, error) {
	return s.queryMotions(ctx,
		"SELECT id, date_event, filename FROM motions WHERE date_event >= ? AND date_event <= ? ORDER BY id",
		toMillis(from), toMillis(to))
}

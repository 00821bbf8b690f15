package postgres

import (
	"context"
	"fmt"
	"time"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/storage"
)

// windowCond builds the WHERE clause for a time window and optional type filter.
func windowCond(from, to time.Time, t *domain.EventType) (string, []any) {
	cond := "WHERE date_event >= $1 AND date_event <= $2"
	args := []any{from, to}
	if t != nil && *t != "" {
		cond += " AND event_type = $3"
		args = append(args, string(*t))
	}
	return cond, args
}

func (s *Store) CountEvents(ctx context.Context, from, to time.Time, t *domain.EventType) (storage.Totals, error) {
	var res storage.Totals

	cond, args := windowCond(from, to, t)
	sql := "SELECT COUNT(*)::bigint, COUNT(DISTINCT emitter_id)::bigint FROM events " + cond
	if err := s.q.QueryRow(ctx, sql, args...).Scan(&res.Count, &res.Emitters); err != nil {
		return res, fmt.Errorf("scan totals: %w", err)
	}
	return res, nil
}

func (s *Store) CountEventsDaily(ctx context.Context, from, to time.Time, t *domain.EventType) ([]storage.Bucket, error) {
	cond, args := windowCond(from, to, t)

	sql := fmt.Sprintf(`
SELECT
  EXTRACT(EPOCH FROM date_trunc('day', date_event AT TIME ZONE 'UTC'))::bigint AS bucket_start,
  COUNT(*)::bigint AS cnt,
  COUNT(DISTINCT emitter_id)::bigint AS emitters
FROM events
%s
GROUP BY 1
ORDER BY 1 ASC`, cond)

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []storage.Bucket{}
	for rows.Next() {
		var b storage.Bucket
		if err := rows.Scan(&b.BucketStart, &b.Count, &b.Emitters); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

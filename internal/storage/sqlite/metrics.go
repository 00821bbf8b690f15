package sqlite

import (
	"context"
	"fmt"
	"time"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/storage"
)

const msPerDay = int64(24 * 60 * 60 * 1000)

func windowCond(from, to time.Time, t *domain.EventType) (string, []any) {
	cond := "WHERE date_event >= ? AND date_event <= ?"
	args := []any{toMillis(from), toMillis(to)}
	if t != nil && *t != "" {
		cond += " AND event_type = ?"
		args = append(args, string(*t))
	}
	return cond, args
}

func (s *Store) CountEvents(ctx context.Context, from, to time.Time, t *domain.EventType) (storage.Totals, error) {
	var res storage.Totals

	cond, args := windowCond(from, to, t)
	query := "SELECT COUNT(*), COUNT(DISTINCT emitter_id) FROM events " + cond
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&res.Count, &res.Emitters); err != nil {
		return res, fmt.Errorf("failed to scan totals: %w", err)
	}
	return res, nil
}

func (s *Store) CountEventsDaily(ctx context.Context, from, to time.Time, t *domain.EventType) ([]storage.Bucket, error) {
	cond, args := windowCond(from, to, t)

	query := fmt.Sprintf(`
SELECT
  (date_event / %[1]d) * %[1]d / 1000 AS bucket_start,
  COUNT(*) AS cnt,
  COUNT(DISTINCT emitter_id) AS emitters
FROM events
%[2]s
GROUP BY 1
ORDER BY 1 ASC`, msPerDay, cond)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer rows.Close()

	out := []storage.Bucket{}
	for rows.Next() {
		var b storage.Bucket
		if err := rows.Scan(&b.BucketStart, &b.Count, &b.Emitters); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

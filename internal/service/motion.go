package service

import (
	"context"
	"strings"
	"time"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/logging"
	"example.com/homealarm/internal/storage"
)

// RecentMotionWindow is the trailing window served by ListRecent.
const RecentMotionWindow = 48 * time.Hour

type MotionService struct {
	Deps
	events *EventService
}

func NewMotionService(d Deps, events *EventService) *MotionService {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	return &MotionService{Deps: d, events: events}
}

// MotionFilename keeps the last path segment of p. Both '/' and '\' count as
// separators; trailing separators are ignored. An empty or separator-only
// path yields "".
func MotionFilename(p string) string {
	p = strings.TrimRight(p, `/\`)
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// RecordMotion stores the capture and a camera/motion event in one transaction.
func (s *MotionService) RecordMotion(ctx context.Context, pathOrFilename string) (domain.Motion, error) {
	log := logging.ForContext(ctx, s.Log)

	def, err := s.Registry.Resolve(domain.EventTypeCamera, "motion")
	if err != nil {
		log.Errorf("motion status missing from registry: %s", err)
		return domain.Motion{}, err
	}

	m := domain.Motion{DateEvent: s.now(), Filename: MotionFilename(pathOrFilename)}
	err = s.Store.WithinTx(ctx, func(tx storage.Store) error {
		if err := tx.InsertMotion(ctx, &m); err != nil {
			return err
		}
		_, err := s.events.recordEvent(ctx, tx, string(domain.EventTypeCamera), def, m.DateEvent)
		return err
	})
	if err != nil {
		log.Errorf("motion [%s] not recorded: %s", m.Filename, err)
		return domain.Motion{}, err
	}

	s.Metrics.MotionRecorded()
	s.Metrics.EventRecorded(string(domain.EventTypeCamera))
	log.Debugf("recorded motion [%s]", m.Filename)
	return m, nil
}

func (s *MotionService) ListAll(ctx context.Context) ([]domain.Motion, error) {
	return s.Store.ListMotions(ctx)
}

// ListAroundEvent returns motions dated within [from, to]. eventID is accepted
// but does not narrow the result.
func (s *MotionService) ListAroundEvent(ctx context.Context, from, to time.Time, eventID int64) ([]domain.Motion, error) {
	if errs := domain.ValidateWindow(from, to); len(errs) > 0 {
		return nil, &domain.ValidationError{Fields: errs}
	}
	logging.ForContext(ctx, s.Log).Debugf("listing motions between %s and %s (event %d)", from.Format(time.RFC3339), to.Format(time.RFC3339), eventID)
	return s.Store.ListMotionsBetween(ctx, from, to)
}

// ListRecent is ListAroundEvent over the trailing RecentMotionWindow.
func (s *MotionService) ListRecent(ctx context.Context, eventID int64) ([]domain.Motion, error) {
	to := s.now()
	return s.ListAroundEvent(ctx, to.Add(-RecentMotionWindow), to, eventID)
}

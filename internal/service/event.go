package service

import (
	"context"
	"time"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/logging"
	"example.com/homealarm/internal/storage"
)

type EventService struct {
	Deps
}

func NewEventService(d Deps) *EventService {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	return &EventService{Deps: d}
}

// RecordState records an alarm-system state change such as "online".
func (s *EventService) RecordState(ctx context.Context, token string) (domain.Event, error) {
	return s.record(ctx, domain.EventTypeState, string(domain.EventTypeState), token)
}

// RecordAlarm records an alarm condition such as "intrusion".
func (s *EventService) RecordAlarm(ctx context.Context, token string) (domain.Event, error) {
	return s.record(ctx, domain.EventTypeAlarm, string(domain.EventTypeAlarm), token)
}

// RecordSensor records a door sensor change reported by emitterID.
func (s *EventService) RecordSensor(ctx context.Context, emitterID, token string) (domain.Event, error) {
	if errs := domain.ValidateEmitterID(emitterID); len(errs) > 0 {
		return domain.Event{}, &domain.ValidationError{Fields: errs}
	}
	return s.record(ctx, domain.EventTypeDoorSensor, emitterID, token)
}

// record resolves token against category and persists the event. A token that
// does not resolve is logged and counted; nothing is written.
func (s *EventService) record(ctx context.Context, category domain.EventType, emitterID, token string) (domain.Event, error) {
	log := logging.ForContext(ctx, s.Log)

	def, err := s.Registry.Resolve(category, token)
	if err != nil {
		log.Errorf("rejected %s report from [%s]: %s", category, emitterID, err)
		s.Metrics.EventRejected(string(category))
		return domain.Event{}, err
	}

	var ev domain.Event
	err = s.Store.WithinTx(ctx, func(tx storage.Store) error {
		ev, err = s.recordEvent(ctx, tx, emitterID, def, s.now())
		return err
	})
	if err != nil {
		return domain.Event{}, err
	}

	s.Metrics.EventRecorded(string(ev.EventType))
	log.Debugf("recorded event [%s] from [%s]", ev.EventStatus, emitterID)
	return ev, nil
}

// recordEvent inserts one event through tx. Callers own the transaction.
func (s *EventService) recordEvent(ctx context.Context, tx storage.Store, emitterID string, def domain.StatusDefinition, at time.Time) (domain.Event, error) {
	ev := domain.Event{
		DateEvent:   at,
		EventType:   def.Category,
		EventStatus: def.Token,
		EmitterID:   emitterID,
	}
	if err := tx.InsertEvent(ctx, &ev); err != nil {
		return domain.Event{}, err
	}
	return ev, nil
}

func (s *EventService) ListAll(ctx context.Context) ([]domain.Event, error) {
	return s.Store.ListEvents(ctx)
}

// ListByType returns events of type t in insertion order. An event's type is
// always the registry category of its status, so the filter runs in the store.
func (s *EventService) ListByType(ctx context.Context, t domain.EventType) ([]domain.Event, error) {
	return s.Store.ListEventsByType(ctx, t)
}

// LastByType returns the most recently inserted event of type t, or an error
// wrapping domain.ErrNotFound.
func (s *EventService) LastByType(ctx context.Context, t domain.EventType) (domain.Event, error) {
	return s.Store.LastEventByType(ctx, t)
}

// Stats summarises events in [from, to], optionally per UTC day.
type Stats struct {
	Totals  storage.Totals   `json:"totals"`
	Buckets []storage.Bucket `json:"buckets,omitempty"`
}

func (s *EventService) Stats(ctx context.Context, from, to time.Time, t *domain.EventType, daily bool) (Stats, error) {
	var res Stats
	if errs := domain.ValidateWindow(from, to); len(errs) > 0 {
		return res, &domain.ValidationError{Fields: errs}
	}

	tot, err := s.Store.CountEvents(ctx, from, to, t)
	if err != nil {
		return res, err
	}
	res.Totals = tot

	if daily {
		res.Buckets, err = s.Store.CountEventsDaily(ctx, from, to, t)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

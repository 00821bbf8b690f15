// Package ingest accepts device reports published over MQTT and records them
// through the same services the HTTP API uses.
//
// Topics under the configured prefix:
//
//	<prefix>/state               payload: state token
//	<prefix>/alarm               payload: alarm token
//	<prefix>/sensor/<emitterId>  payload: door sensor token
//	<prefix>/motion              payload: capture path or filename
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/homealarm/internal/domain"
)

var ErrUnknownTopic = errors.New("unknown topic")

// EventRecorder is the subset of service.EventService the dispatcher needs.
type EventRecorder interface {
	RecordState(ctx context.Context, token string) (domain.Event, error)
	RecordAlarm(ctx context.Context, token string) (domain.Event, error)
	RecordSensor(ctx context.Context, emitterID, token string) (domain.Event, error)
}

type MotionRecorder interface {
	RecordMotion(ctx context.Context, pathOrFilename string) (domain.Motion, error)
}

// Dispatcher routes one message to the matching recorder.
type Dispatcher struct {
	prefix  string
	events  EventRecorder
	motions MotionRecorder
}

func NewDispatcher(prefix string, events EventRecorder, motions MotionRecorder) *Dispatcher {
	return &Dispatcher{prefix: strings.Trim(prefix, "/"), events: events, motions: motions}
}

// Filter is the subscription covering every topic the dispatcher routes.
func (d *Dispatcher) Filter() string {
	if d.prefix == "" {
		return "#"
	}
	return d.prefix + "/#"
}

func (d *Dispatcher) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	rest := topic
	if d.prefix != "" {
		var ok bool
		rest, ok = strings.CutPrefix(topic, d.prefix+"/")
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
		}
	}
	body := strings.TrimSpace(string(payload))

	var err error
	switch parts := strings.Split(rest, "/"); {
	case len(parts) == 1 && parts[0] == "state":
		_, err = d.events.RecordState(ctx, body)
	case len(parts) == 1 && parts[0] == "alarm":
		_, err = d.events.RecordAlarm(ctx, body)
	case len(parts) == 1 && parts[0] == "motion":
		_, err = d.motions.RecordMotion(ctx, body)
	case len(parts) == 2 && parts[0] == "sensor":
		_, err = d.events.RecordSensor(ctx, parts[1], body)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return err
}

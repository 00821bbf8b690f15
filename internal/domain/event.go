package domain

import (
	"errors"
	"fmt"
	"time"
)

// EventType is the category a status belongs to.
type EventType string

const (
	EventTypeAlarm      EventType = "alarm"
	EventTypeDoorSensor EventType = "doorSensor"
	EventTypeCamera     EventType = "camera"
	EventTypeState      EventType = "state"
)

// EventTypes lists every known category.
var EventTypes = []EventType{EventTypeAlarm, EventTypeDoorSensor, EventTypeCamera, EventTypeState}

// ParseEventType maps a raw category name to an EventType.
func ParseEventType(raw string) (EventType, error) {
	for _, t := range EventTypes {
		if string(t) == raw {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEventType, raw)
}

// EventStatus is a raw status token such as "motion" or "open".
type EventStatus string

// Event is a timestamped status change reported by an emitter.
// Events are append-only: never mutated after insert.
type Event struct {
	ID          int64       `json:"id"`
	DateEvent   time.Time   `json:"dateEvent"`
	EventType   EventType   `json:"eventType"`
	EventStatus EventStatus `json:"eventStatus"`
	EmitterID   string      `json:"emitterId"`
}

// Motion is a motion-capture record. Filename holds the basename only.
type Motion struct {
	ID        int64     `json:"id"`
	DateEvent time.Time `json:"dateEvent"`
	Filename  string    `json:"filename"`
}

var (
	ErrNotFound               = errors.New("not found")
	ErrUnknownEventType       = errors.New("unknown event type")
	ErrInvalidStatus          = errors.New("invalid event status")
	ErrUnknownStatus          = fmt.Errorf("%w: unknown token", ErrInvalidStatus)
	ErrStatusCategoryMismatch = fmt.Errorf("%w: category mismatch", ErrInvalidStatus)
)

// Validation constraints
const (
	MaxEmitterIDLen = 64
)

package domain

import (
	"fmt"
	"sort"
)

// StatusDefinition ties a status token to the category that owns it.
type StatusDefinition struct {
	Token    EventStatus `json:"token"`
	Category EventType   `json:"category"`
}

// DefaultStatuses is the closed status table used by the service.
var DefaultStatuses = []StatusDefinition{
	{Token: "online", Category: EventTypeState},
	{Token: "offline", Category: EventTypeState},
	{Token: "timed", Category: EventTypeState},
	{Token: "intrusion", Category: EventTypeAlarm},
	{Token: "warning", Category: EventTypeAlarm},
	{Token: "silenced", Category: EventTypeAlarm},
	{Token: "open", Category: EventTypeDoorSensor},
	{Token: "closed", Category: EventTypeDoorSensor},
	{Token: "motion", Category: EventTypeCamera},
}

// StatusRegistry is a read-only token -> category table.
type StatusRegistry struct {
	byToken map[EventStatus]EventType
}

// NewStatusRegistry builds a registry from defs. A token defined twice is rejected.
func NewStatusRegistry(defs []StatusDefinition) (*StatusRegistry, error) {
	m := make(map[EventStatus]EventType, len(defs))
	for _, d := range defs {
		if d.Token == "" {
			return nil, fmt.Errorf("status registry: empty token for category %q", d.Category)
		}
		if _, err := ParseEventType(string(d.Category)); err != nil {
			return nil, fmt.Errorf("status registry: token %q: %w", d.Token, err)
		}
		if prev, dup := m[d.Token]; dup {
			return nil, fmt.Errorf("status registry: token %q defined for %q and %q", d.Token, prev, d.Category)
		}
		m[d.Token] = d.Category
	}
	return &StatusRegistry{byToken: m}, nil
}

// MustStatusRegistry is NewStatusRegistry that panics on a malformed table.
func MustStatusRegistry(defs []StatusDefinition) *StatusRegistry {
	r, err := NewStatusRegistry(defs)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve looks token up and checks that it belongs to category.
// It returns ErrUnknownStatus or ErrStatusCategoryMismatch (both wrap ErrInvalidStatus).
func (r *StatusRegistry) Resolve(category EventType, token string) (StatusDefinition, error) {
	owner, ok := r.byToken[EventStatus(token)]
	if !ok {
		return StatusDefinition{}, fmt.Errorf("%w: %q", ErrUnknownStatus, token)
	}
	if owner != category {
		return StatusDefinition{}, fmt.Errorf("%w: %q belongs to %q, not %q", ErrStatusCategoryMismatch, token, owner, category)
	}
	return StatusDefinition{Token: EventStatus(token), Category: owner}, nil
}

// Definitions returns the table sorted by category then token.
func (r *StatusRegistry) Definitions() []StatusDefinition {
	out := make([]StatusDefinition, 0, len(r.byToken))
	for tok, cat := range r.byToken {
		out = append(out, StatusDefinition{Token: tok, Category: cat})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Token < out[j].Token
	})
	return out
}

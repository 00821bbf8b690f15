package domain

import (
	"fmt"
	"strings"
	"time"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidationError groups field errors so they can travel as a single error value.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ByField groups messages per field, the shape problem responses expect.
func (e *ValidationError) ByField() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, fe := range e.Fields {
		out[fe.Field] = append(out[fe.Field], fe.Msg)
	}
	return out
}

// ValidateEmitterID checks a caller supplied emitter identifier.
func ValidateEmitterID(id string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(id) == "" {
		errs = append(errs, FieldError{"emitterId", "required"})
	} else if len(id) > MaxEmitterIDLen {
		errs = append(errs, FieldError{"emitterId", fmt.Sprintf("max length %d", MaxEmitterIDLen)})
	}
	return errs
}

// ValidateWindow checks that [from, to] is a usable time range.
func ValidateWindow(from, to time.Time) []FieldError {
	var errs []FieldError
	if from.IsZero() {
		errs = append(errs, FieldError{"from", "required"})
	}
	if to.IsZero() {
		errs = append(errs, FieldError{"to", "required"})
	}
	if len(errs) == 0 && to.Before(from) {
		errs = append(errs, FieldError{"to", "must not be before from"})
	}
	return errs
}

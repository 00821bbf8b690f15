// Package service records alarm, sensor, state and motion reports and serves
// the queries the UI needs. Services are stateless; every call runs against
// the store and returns.
package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"example.com/homealarm/internal/domain"
	"example.com/homealarm/internal/metrics"
	"example.com/homealarm/internal/storage"
)

// Deps are the collaborators shared by the services.
type Deps struct {
	Store    storage.Store
	Registry *domain.StatusRegistry
	Log      *logrus.Entry
	Metrics  *metrics.Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// now returns the current instant in UTC at millisecond precision, the
// finest resolution every backend keeps.
func (d Deps) now() time.Time {
	clock := d.Now
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Truncate(time.Millisecond)
}

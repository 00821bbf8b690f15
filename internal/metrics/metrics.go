// Package metrics exposes Prometheus counters for recorded and rejected reports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homealarm"

// Recorder is safe to use through a nil pointer; every method is then a no-op.
type Recorder struct {
	registry *prometheus.Registry

	EventsRecorded  *prometheus.CounterVec
	EventsRejected  *prometheus.CounterVec
	MotionsRecorded prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		EventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_recorded_total",
			Help:      "Events persisted, by event type.",
		}, []string{"type"}),
		EventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Reports dropped because the status token did not resolve for the requested category.",
		}, []string{"type"}),
		MotionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "motions_recorded_total",
			Help:      "Motion captures persisted.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}
	r.registry.MustRegister(
		r.EventsRecorded,
		r.EventsRejected,
		r.MotionsRecorded,
		r.HTTPRequests,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) EventRecorded(eventType string) {
	if r != nil {
		r.EventsRecorded.WithLabelValues(eventType).Inc()
	}
}

func (r *Recorder) EventRejected(eventType string) {
	if r != nil {
		r.EventsRejected.WithLabelValues(eventType).Inc()
	}
}

func (r *Recorder) MotionRecorded() {
	if r != nil {
		r.MotionsRecorded.Inc()
	}
}

func (r *Recorder) Request(route, code string) {
	if r != nil {
		r.HTTPRequests.WithLabelValues(route, code).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}

package metrics

import (
	"regexp"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// AttendeeCheckins counts attendee check-ins, including bulk check-ins.
	AttendeeCheckins = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attendee_checkins_total",
			Help: "Total number of attendee check-ins",
		},
	)

	// EventStatusTransitions counts automatic event status rolls by new status (ongoing, completed).
	EventStatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_status_transitions_total",
			Help: "Total number of automatic event status transitions by new status",
		},
		[]string{"status"},
	)
)

var numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)

func init() {
	prometheus.MustRegister(RequestDuration, RequestTotal, AttendeeCheckins, EventStatusTransitions)
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /events/123 -> /events/{id}, /attendees/event/45 -> /attendees/event/{id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncCheckins adds n to the check-in counter.
func IncCheckins(n int) {
	AttendeeCheckins.Add(float64(n))
}

// IncStatusTransitions adds n to the transition counter for the given new status.
func IncStatusTransitions(status string, n int) {
	EventStatusTransitions.WithLabelValues(status).Add(float64(n))
}

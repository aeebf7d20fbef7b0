package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "equilibria"

// Booking outcomes.
const (
	OutcomeBooked      = "booked"
	OutcomeConflict    = "conflict"
	OutcomeNotFound    = "not_found"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
	OutcomeCancelled   = "cancelled"
	OutcomeCompleted   = "completed"
	OutcomeRateLimited = "rate_limited"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_total",
			Help:      "Appointment operations by outcome.",
		},
		[]string{"outcome"},
	)

	chatReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Support chat replies by topic.",
		},
		[]string{"topic"},
	)

	exchangeLogFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_exchange_log_failures_total",
			Help:      "Chat exchanges that could not be stored.",
		},
	)

	contactMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_messages_total",
			Help:      "Accepted contact form submissions.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bookings, chatReplies, exchangeLogFailures, contactMessages)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(endpoint, code string, seconds float64) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
	httpDuration.WithLabelValues(endpoint).Observe(seconds)
}

func IncBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

func IncChatReply(topic string) {
	chatReplies.WithLabelValues(topic).Inc()
}

func IncExchangeLogFailure() {
	exchangeLogFailures.Inc()
}

func IncContact() {
	contactMessages.Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	recordsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_appended_total",
			Help: "Encrypted records appended, by sender and kind.",
		},
		[]string{"service", "sender", "kind"},
	)

	envelopeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "record_envelope_bytes",
			Help:    "Envelope text sizes of appended records.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 12),
		},
		[]string{"service", "kind"},
	)

	publicKeyUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "public_key_updates_total",
			Help: "Public key publications, by identity class and result.",
		},
		[]string{"service", "identity", "result"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_notifications_total",
			Help: "Record notifications published, by result.",
		},
		[]string{"service", "result"},
	)

	eventStreamsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "record_event_streams_active",
			Help: "Open websocket event streams.",
		},
		[]string{"service"},
	)

	decryptOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_decrypt_outcomes_total",
			Help: "Client-side record decryption outcomes.",
		},
		[]string{"service", "outcome"},
	)
)

// Curried views used by the rest of the code. They work unregistered (tests,
// the CLI) and are re-curried with the real service name by MustRegister.
var (
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	RecordsAppendedTotal       *prometheus.CounterVec
	EnvelopeBytes              *prometheus.HistogramVec
	PublicKeyUpdatesTotal      *prometheus.CounterVec
	NotificationsTotal         *prometheus.CounterVec
	EventStreamsActive         *prometheus.GaugeVec
	DecryptOutcomesTotal       *prometheus.CounterVec
)

func init() { curry("") }

func curry(serviceName string) {
	labels := prometheus.Labels{"service": serviceName}
	HTTPRequestsTotal = httpRequestsTotal.MustCurryWith(labels)
	HTTPRequestDurationSeconds = httpRequestDurationSeconds.MustCurryWith(labels).(*prometheus.HistogramVec)
	RecordsAppendedTotal = recordsAppendedTotal.MustCurryWith(labels)
	EnvelopeBytes = envelopeBytes.MustCurryWith(labels).(*prometheus.HistogramVec)
	PublicKeyUpdatesTotal = publicKeyUpdatesTotal.MustCurryWith(labels)
	NotificationsTotal = notificationsTotal.MustCurryWith(labels)
	EventStreamsActive = eventStreamsActive.MustCurryWith(labels)
	DecryptOutcomesTotal = decryptOutcomesTotal.MustCurryWith(labels)
}

// MustRegister labels every collector with serviceName and registers it with
// the default registry. Call once per process.
func MustRegister(serviceName string) {
	curry(serviceName)
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		recordsAppendedTotal,
		envelopeBytes,
		publicKeyUpdatesTotal,
		notificationsTotal,
		eventStreamsActive,
		decryptOutcomesTotal,
	)
}

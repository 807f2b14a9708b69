package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch results recorded per inbound buffer.
const (
	ResultHandled   = "handled"
	ResultMalformed = "malformed"
	ResultUnhandled = "unhandled"
	ResultPanic     = "panic"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isarlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the metrics endpoint.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "isarlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)

	dispatchMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isarlink",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Inbound transport buffers by channel and dispatch result.",
		},
		[]string{"channel", "result"},
	)
	touchDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isarlink",
			Subsystem: "touch",
			Name:      "queue_dropped_total",
			Help:      "Touch events discarded by the bounded queue overflow policy.",
		},
		[]string{"policy"},
	)
	registryEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "isarlink",
			Subsystem: "registry",
			Name:      "entities",
			Help:      "Trackable entities currently held by the registry.",
		},
		[]string{"kind"},
	)
	outboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isarlink",
			Subsystem: "outbound",
			Name:      "messages_total",
			Help:      "Upstream custom messages by type and success.",
		},
		[]string{"type", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, dispatchMessages, touchDropped, registryEntities, outboundMessages)
	})
}

func RecordDispatch(channel, result string) {
	RegisterMetrics()
	dispatchMessages.WithLabelValues(channel, result).Inc()
}

func RecordTouchDropped(policy string) {
	RegisterMetrics()
	touchDropped.WithLabelValues(policy).Inc()
}

func SetRegistryEntities(kind string, n int) {
	RegisterMetrics()
	registryEntities.WithLabelValues(kind).Set(float64(n))
}

func RecordOutbound(messageType string, success bool) {
	RegisterMetrics()
	label := "false"
	if success {
		label = "true"
	}
	outboundMessages.WithLabelValues(messageType, label).Inc()
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	wireMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwire",
			Subsystem: "wire",
			Name:      "messages_sent_total",
			Help:      "Messages written to the transport.",
		},
		[]string{"node", "type"},
	)
	wireMessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwire",
			Subsystem: "wire",
			Name:      "messages_received_total",
			Help:      "Complete frames decoded from the transport.",
		},
		[]string{"node", "type"},
	)
	wireBytesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwire",
			Subsystem: "wire",
			Name:      "bytes_sent_total",
			Help:      "Bytes written to the transport, headers included.",
		},
		[]string{"node"},
	)
	wireDecodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwire",
			Subsystem: "wire",
			Name:      "decode_errors_total",
			Help:      "Frames dropped as invalid without closing the connection.",
		},
		[]string{"node"},
	)
	peersConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "peerwire",
			Subsystem: "peers",
			Name:      "connected",
			Help:      "Peers currently in the table.",
		},
		[]string{"node"},
	)
	broadcastFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwire",
			Subsystem: "peers",
			Name:      "broadcast_failures_total",
			Help:      "Per-peer delivery failures during broadcast fan-out.",
		},
		[]string{"node"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerwire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "peerwire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			wireMessagesSent, wireMessagesReceived, wireBytesSent, wireDecodeErrors,
			peersConnected, broadcastFailures,
			httpRequests, httpDuration,
		)
	})
}

func RecordMessageSent(node, msgType string, bytes int) {
	RegisterMetrics()
	wireMessagesSent.WithLabelValues(node, msgType).Inc()
	wireBytesSent.WithLabelValues(node).Add(float64(bytes))
}

func RecordMessageReceived(node, msgType string) {
	RegisterMetrics()
	wireMessagesReceived.WithLabelValues(node, msgType).Inc()
}

func RecordDecodeError(node string) {
	RegisterMetrics()
	wireDecodeErrors.WithLabelValues(node).Inc()
}

func SetPeerCount(node string, count int) {
	RegisterMetrics()
	peersConnected.WithLabelValues(node).Set(float64(count))
}

func RecordBroadcastFailure(node string) {
	RegisterMetrics()
	broadcastFailures.WithLabelValues(node).Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cdmctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Bridge HTTP requests by route and device command.",
		},
		[]string{"bridge", "method", "route", "command", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cdmctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Bridge HTTP request duration in seconds, device exchange included.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"bridge", "method", "route", "command"},
	)
	linkRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cdmctl",
			Subsystem: "link",
			Name:      "requests_total",
			Help:      "Framed request/response exchanges with the device.",
		},
		[]string{"command", "result"},
	)
	linkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cdmctl",
			Subsystem: "link",
			Name:      "request_duration_seconds",
			Help:      "Device exchange duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"command"},
	)
	linkHandshakes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cdmctl",
			Subsystem: "link",
			Name:      "handshakes_total",
			Help:      "ACK/ENQ re-synchronizations performed while reading.",
		},
	)
	linkFrameErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cdmctl",
			Subsystem: "link",
			Name:      "frame_errors_total",
			Help:      "Received frames rejected by structural verification.",
		},
		[]string{"reason"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			linkRequests, linkDuration, linkHandshakes, linkFrameErrors,
		)
	})
}

// RecordHTTPRequest counts one bridge request. command is the device command
// the request exchanged, or "none" when it never reached the device.
func RecordHTTPRequest(bridge, method, route, command string, status int, duration time.Duration) {
	RegisterMetrics()
	httpRequests.WithLabelValues(bridge, method, route, command, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(bridge, method, route, command).Observe(duration.Seconds())
}

// RecordLinkRequest counts one Request exchange. command is the first
// payload byte rendered as hex; result is "ok" or an error class.
func RecordLinkRequest(command, result string, duration time.Duration) {
	RegisterMetrics()
	linkRequests.WithLabelValues(command, result).Inc()
	linkDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func RecordHandshake() {
	RegisterMetrics()
	linkHandshakes.Inc()
}

func RecordFrameError(reason string) {
	RegisterMetrics()
	linkFrameErrors.WithLabelValues(reason).Inc()
}

// Package metrics implements Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatagramsTotal counts datagrams written to the sink
	DatagramsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcastdump_datagrams_total",
			Help: "Total number of datagrams written to the sink",
		},
	)

	// BytesTotal counts payload bytes written to the sink
	BytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcastdump_bytes_total",
			Help: "Total number of payload bytes written to the sink",
		},
	)

	// ReceiveErrorsTotal counts fatal socket read errors
	ReceiveErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcastdump_receive_errors_total",
			Help: "Total number of socket read errors",
		},
	)

	// DatagramSizeBytes tracks the payload size distribution
	DatagramSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mcastdump_datagram_size_bytes",
			Help:    "Size of received datagram payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(16, 2, 13), // 16 B to 64 KiB
		},
	)

	// SessionInfo is set to 1 for the running capture session
	SessionInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcastdump_session_info",
			Help: "Capture session currently running (always 1)",
		},
		[]string{"group", "port", "session"},
	)
)

// ObserveDatagram records one payload written to the sink.
func ObserveDatagram(size int) {
	DatagramsTotal.Inc()
	BytesTotal.Add(float64(size))
	DatagramSizeBytes.Observe(float64(size))
}

// SetSession marks the running session.
func SetSession(group string, port uint16, session string) {
	SessionInfo.WithLabelValues(group, strconv.Itoa(int(port)), session).Set(1)
}

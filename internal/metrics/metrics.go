// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame results used as the "result" label.
const (
	ResultSent    = "sent"
	ResultShort   = "short"
	ResultFailed  = "failed"
	ResultInvalid = "invalid"
)

var (
	// FramesTotal counts send attempts by outcome
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_frames_total",
			Help: "Total number of frames handed to the transmitter, by result",
		},
		[]string{"interface", "result"},
	)

	// PayloadBytesTotal counts payload bytes requested for transmission
	PayloadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_payload_bytes_total",
			Help: "Total number of payload bytes requested",
		},
		[]string{"interface"},
	)

	// FrameBytesTotal counts frame bytes accepted by the link
	FrameBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_frame_bytes_total",
			Help: "Total number of frame bytes accepted by the link",
		},
		[]string{"interface"},
	)

	// RetriesTotal counts sends repeated after a failure
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_retries_total",
			Help: "Total number of send retries",
		},
		[]string{"interface"},
	)

	// SendLatencySeconds measures the duration of one send call
	SendLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_send_latency_seconds",
			Help:    "Latency of a single frame send in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
		[]string{"interface"},
	)
)

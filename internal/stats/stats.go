// Package stats keeps running totals for a generator run.
package stats

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"

	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/metrics"
)

// Stats aggregates send results. It is safe for concurrent use and mirrors
// every update into the Prometheus counters labelled with the interface.
type Stats struct {
	iface string

	requested    atomic.Uint64
	sent         atomic.Uint64
	short        atomic.Uint64
	failed       atomic.Uint64
	invalid      atomic.Uint64
	retries      atomic.Uint64
	payloadBytes atomic.Uint64
	frameBytes   atomic.Uint64

	started time.Time
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requested    uint64        `json:"requested"`
	Sent         uint64        `json:"sent"`
	Short        uint64        `json:"short"`
	Failed       uint64        `json:"failed"`
	Invalid      uint64        `json:"invalid"`
	Retries      uint64        `json:"retries"`
	PayloadBytes uint64        `json:"payload_bytes"`
	FrameBytes   uint64        `json:"frame_bytes"`
	Elapsed      time.Duration `json:"elapsed"`
}

func New(iface string) *Stats {
	return &Stats{iface: iface, started: time.Now()}
}

// Record accounts for one send result; latency is the duration of the call.
func (s *Stats) Record(res core.SendResult, latency time.Duration) {
	s.requested.Inc()
	s.payloadBytes.Add(uint64(res.Requested))
	s.frameBytes.Add(uint64(res.Accepted))

	result := metrics.ResultSent
	switch {
	case res.Err == nil:
		s.sent.Inc()
	case errors.Is(res.Err, core.ErrShortWrite):
		s.short.Inc()
		result = metrics.ResultShort
	case errors.Is(res.Err, core.ErrInvalidArgument):
		s.invalid.Inc()
		result = metrics.ResultInvalid
	default:
		s.failed.Inc()
		result = metrics.ResultFailed
	}

	metrics.FramesTotal.WithLabelValues(s.iface, result).Inc()
	metrics.PayloadBytesTotal.WithLabelValues(s.iface).Add(float64(res.Requested))
	metrics.FrameBytesTotal.WithLabelValues(s.iface).Add(float64(res.Accepted))
	metrics.SendLatencySeconds.WithLabelValues(s.iface).Observe(latency.Seconds())
}

// Retry accounts for a repeated send.
func (s *Stats) Retry() {
	s.retries.Inc()
	metrics.RetriesTotal.WithLabelValues(s.iface).Inc()
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Requested:    s.requested.Load(),
		Sent:         s.sent.Load(),
		Short:        s.short.Load(),
		Failed:       s.failed.Load(),
		Invalid:      s.invalid.Load(),
		Retries:      s.retries.Load(),
		PayloadBytes: s.payloadBytes.Load(),
		FrameBytes:   s.frameBytes.Load(),
		Elapsed:      time.Since(s.started),
	}
}

// Rate is sent frames per second over the elapsed time.
func (s Snapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Sent) / s.Elapsed.Seconds()
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%d requested, %d sent, %d short, %d failed, %d invalid, %d retries, %d payload bytes, %d frame bytes in %s (%.1f fps)",
		s.Requested, s.Sent, s.Short, s.Failed, s.Invalid, s.Retries, s.PayloadBytes, s.FrameBytes,
		s.Elapsed.Round(time.Millisecond), s.Rate())
}

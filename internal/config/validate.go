package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/frame"
)

// Validate checks cfg and reports every problem at once. Each error wraps
// core.ErrConfigInvalid.
func (cfg *Config) Validate() error {
	var errs error
	fail := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]interface{}{core.ErrConfigInvalid}, args...)...))
	}

	// ── Endpoints ──
	if cfg.Interface == "" && cfg.Send.Backend != BackendPcap {
		fail("interface is required for the %s backend", cfg.Send.Backend)
	}
	if cfg.Source.IP.IsValid() && !cfg.Source.IP.Unmap().Is4() {
		fail("source.ip %s is not IPv4", cfg.Source.IP)
	}
	if cfg.Destination.MAC.IsZero() {
		fail("destination.mac is required")
	}
	if cfg.Destination.Host == "" {
		fail("destination.host is required")
	}
	if cfg.Destination.Port == 0 {
		fail("destination.port must not be 0")
	}

	// ── Payload ──
	p := cfg.Payload
	if p.Text != "" && p.Hex != "" {
		fail("payload.text and payload.hex are mutually exclusive")
	}
	if p.Probe && (p.Text != "" || p.Hex != "") {
		fail("payload.probe cannot be combined with a static payload")
	}
	if p.Probe && p.ChecksumCoverage != 0 {
		fail("payload.checksum_coverage is derived from the probe record when payload.probe is set")
	}
	static := len(p.Text)
	if p.Hex != "" {
		b, err := hex.DecodeString(p.Hex)
		if err != nil {
			fail("payload.hex: %v", err)
		}
		static = len(b)
	}
	if p.Size < 0 || p.Size > frame.MaxPayload {
		fail("payload.size %d outside [0, %d]", p.Size, frame.MaxPayload)
	}
	if p.Size > 0 && p.Size < static {
		fail("payload.size %d is smaller than the %d byte static payload", p.Size, static)
	}
	if static > frame.MaxPayload {
		fail("static payload of %d bytes exceeds %d", static, frame.MaxPayload)
	}
	if p.ChecksumCoverage < 0 {
		fail("payload.checksum_coverage must not be negative")
	}
	if !p.Probe && p.ChecksumCoverage > static {
		// Coverage past the static bytes would only sum zero padding.
		fail("payload.checksum_coverage %d exceeds the %d byte static payload", p.ChecksumCoverage, static)
	}

	// ── Send ──
	s := cfg.Send
	switch s.Backend {
	case BackendSocket, BackendAFPacket:
	case BackendPcap:
		if s.PcapFile == "" {
			fail("send.pcap_file is required for the pcap backend")
		}
	default:
		fail("unsupported send.backend: %q (must be socket/afpacket/pcap)", s.Backend)
	}
	if s.Rate < 0 {
		fail("send.rate must not be negative")
	}
	if s.Workers < 1 {
		fail("send.workers must be at least 1")
	}
	if s.Timeout < 0 {
		fail("send.timeout must not be negative")
	}
	if s.FailureLogLimit < 0 {
		fail("send.failure_log_limit must not be negative")
	}
	if s.Retry.MaxAttempts < 1 {
		fail("send.retry.max_attempts must be at least 1")
	}
	if s.Retry.InitialInterval < 0 || s.Retry.MaxInterval < s.Retry.InitialInterval {
		fail("send.retry intervals must satisfy 0 <= initial_interval <= max_interval")
	}

	// ── Log ──
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		fail("log.level: %v", err)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text", "prefixed":
	default:
		fail("invalid log format: %s (must be json/text/prefixed)", cfg.Log.Format)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Filename == "" {
		fail("log.file.filename is required when log.file.enabled=true")
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		fail("metrics.listen is required when metrics.enabled=true")
	}

	return errs
}

package generator

import (
	"encoding/hex"
	"fmt"
	"time"

	"firestige.xyz/pulse/internal/config"
	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/probe"
)

// PayloadSource produces the payload for each frame together with its UDP
// checksum coverage (0 = whole payload). Sources are shared by all workers
// of a run and must not modify a payload once returned.
type PayloadSource interface {
	Next(now time.Time) (payload []byte, coverage int)
}

type staticPayload struct {
	data     []byte
	coverage int
}

// Static sends the same bytes every time, zero-padded to size.
func Static(data []byte, size, coverage int) PayloadSource {
	b := make([]byte, max(len(data), size))
	copy(b, data)
	return &staticPayload{data: b, coverage: coverage}
}

func (s *staticPayload) Next(time.Time) ([]byte, int) {
	return s.data, s.coverage
}

type probePayload struct {
	seq  *probe.Sequencer
	size int
}

// Probes sends consecutive probe records zero-padded to size. Only the
// record is checksummed.
func Probes(seq *probe.Sequencer, size int) PayloadSource {
	return &probePayload{seq: seq, size: size}
}

func (p *probePayload) Next(now time.Time) ([]byte, int) {
	return p.seq.Next(now).Marshal(make([]byte, 0, p.size), p.size)
}

// PayloadFromConfig builds the source selected by cfg.
func PayloadFromConfig(cfg config.PayloadConfig) (PayloadSource, error) {
	if cfg.Probe {
		return Probes(probe.NewSequencer(), cfg.Size), nil
	}
	data := []byte(cfg.Text)
	if cfg.Hex != "" {
		var err error
		if data, err = hex.DecodeString(cfg.Hex); err != nil {
			return nil, fmt.Errorf("%w: payload hex: %v", core.ErrInvalidArgument, err)
		}
	}
	return Static(data, cfg.Size, cfg.ChecksumCoverage), nil
}

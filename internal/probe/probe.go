// Package probe encodes the sequence-numbered records a run emits as UDP
// payloads.
//
// A probe payload is a protobuf-wire record followed by zero padding up to
// the requested size. Only the record needs to be covered by the UDP
// checksum, since the padding sums to zero.
package probe

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"google.golang.org/protobuf/encoding/protowire"

	"firestige.xyz/pulse/internal/core"
)

const (
	fieldRunID   protowire.Number = 1
	fieldControl protowire.Number = 2
	fieldSeq     protowire.Number = 3
	fieldSentSec protowire.Number = 4
	fieldSentNs  protowire.Number = 5
	fieldStamps  protowire.Number = 6
)

// Probe is one record.
type Probe struct {
	RunID   uuid.UUID
	Control bool
	Seq     uint64
	Sent    time.Time
	Stamps  uint32 // number of timestamps collected along the path
}

// Marshal appends the record to dst[:0], zero-pads it to size bytes and
// returns the payload together with the record length, which is the
// checksum coverage the payload needs. A size smaller than the record
// yields the bare record.
func (p Probe) Marshal(dst []byte, size int) ([]byte, int) {
	b := dst[:0]
	b = protowire.AppendTag(b, fieldRunID, protowire.BytesType)
	b = protowire.AppendBytes(b, p.RunID[:])
	if p.Control {
		b = protowire.AppendTag(b, fieldControl, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, p.Seq)
	if !p.Sent.IsZero() {
		b = protowire.AppendTag(b, fieldSentSec, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Sent.Unix()))
		b = protowire.AppendTag(b, fieldSentNs, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Sent.Nanosecond()))
	}
	if p.Stamps != 0 {
		b = protowire.AppendTag(b, fieldStamps, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Stamps))
	}

	record := len(b)
	for len(b) < size {
		b = append(b, 0)
	}
	return b, record
}

// Unmarshal decodes a record from the head of payload and ignores the
// zero padding after it.
func Unmarshal(payload []byte) (Probe, error) {
	var (
		p       Probe
		sec, ns uint64
		hasSent bool
	)

	b := payload
	for len(b) > 0 && b[0] != 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, fmt.Errorf("%w: probe tag: %v", core.ErrInvalidArgument, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldRunID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return p, fmt.Errorf("%w: probe run id: %v", core.ErrInvalidArgument, protowire.ParseError(n))
			}
			id, err := uuid.FromBytes(v)
			if err != nil {
				return p, fmt.Errorf("%w: probe run id: %v", core.ErrInvalidArgument, err)
			}
			p.RunID = id
			b = b[n:]
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("%w: probe field %d: %v", core.ErrInvalidArgument, num, protowire.ParseError(n))
			}
			switch num {
			case fieldControl:
				p.Control = v != 0
			case fieldSeq:
				p.Seq = v
			case fieldSentSec:
				sec, hasSent = v, true
			case fieldSentNs:
				ns, hasSent = v, true
			case fieldStamps:
				p.Stamps = uint32(v)
			}
			b = b[n:]
		default:
			// Unknown fields are skipped so newer senders stay readable.
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, fmt.Errorf("%w: probe field %d: %v", core.ErrInvalidArgument, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if hasSent {
		p.Sent = time.Unix(int64(sec), int64(ns))
	}
	return p, nil
}

// String renders run:control:seq:stamps sec:nsec.
func (p Probe) String() string {
	control := 0
	if p.Control {
		control = 1
	}
	var sec, ns int64
	if !p.Sent.IsZero() {
		sec, ns = p.Sent.Unix(), int64(p.Sent.Nanosecond())
	}
	return fmt.Sprintf("%s:%d:%d:%d %d:%d", p.RunID, control, p.Seq, p.Stamps, sec, ns)
}

// Sequencer hands out consecutive probes for one run. It is safe for
// concurrent use.
type Sequencer struct {
	runID uuid.UUID
	seq   atomic.Uint64
}

// NewSequencer starts a run with a random id.
func NewSequencer() *Sequencer {
	return &Sequencer{runID: uuid.New()}
}

// RunID identifies the run.
func (s *Sequencer) RunID() uuid.UUID {
	return s.runID
}

// Next returns the probe for the next sequence number, starting at 1.
func (s *Sequencer) Next(now time.Time) Probe {
	return Probe{
		RunID: s.runID,
		Seq:   s.seq.Inc(),
		Sent:  now,
	}
}

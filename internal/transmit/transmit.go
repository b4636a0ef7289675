// Package transmit emits prebuilt Ethernet frames through a link-layer
// writer. A Transmitter builds one frame per call and hands it to the writer
// in exactly one write; it never retries.
package transmit

import (
	"context"
	"fmt"
	"time"

	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/frame"
	"firestige.xyz/pulse/internal/log"
)

// FamilyPacket is the AF_PACKET address family.
const FamilyPacket = 17

// LinkAddr is the link-layer destination descriptor handed to a LinkWriter.
// HardwareAddr carries the sender's MAC; the frame itself holds the
// destination MAC.
type LinkAddr struct {
	IfIndex      int
	Family       uint16
	HardwareAddr core.MAC
	Halen        uint8
}

// NewLinkAddr fills in the descriptor for interface ifIndex.
func NewLinkAddr(ifIndex int, mac core.MAC) *LinkAddr {
	return &LinkAddr{
		IfIndex:      ifIndex,
		Family:       FamilyPacket,
		HardwareAddr: mac,
		Halen:        uint8(len(mac)),
	}
}

// LinkWriter writes whole frames to a link. Implementations report how many
// bytes were accepted and must be safe for concurrent use.
type LinkWriter interface {
	WriteTo(frame []byte, addr *LinkAddr) (int, error)
	Close() error
}

// Observer sees every frame right before it is written.
type Observer interface {
	Observe(frame []byte)
}

type nopObserver struct{}

func (nopObserver) Observe([]byte) {}

// NopObserver discards frames.
var NopObserver Observer = nopObserver{}

// Option configures a Transmitter.
type Option func(*Transmitter)

// WithObserver installs o for verbose dumping.
func WithObserver(o Observer) Option {
	return func(t *Transmitter) {
		if o != nil {
			t.observer = o
		}
	}
}

// WithFrameOptions sets frame construction options.
func WithFrameOptions(opts frame.Options) Option {
	return func(t *Transmitter) { t.frameOpts = opts }
}

// WithFailureLogLimit logs at most limit failure diagnostics of each kind per
// window. Suppressed diagnostics are summarised once the window rolls over.
// Results are never affected.
func WithFailureLogLimit(limit int, window time.Duration) Option {
	return func(t *Transmitter) { t.throttle = newLogThrottle(limit, window) }
}

// Transmitter builds and sends single UDP frames.
type Transmitter struct {
	w         LinkWriter
	observer  Observer
	frameOpts frame.Options
	throttle  *logThrottle
}

// New returns a Transmitter writing to w.
func New(w LinkWriter, opts ...Option) *Transmitter {
	t := &Transmitter{w: w, observer: NopObserver}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Send builds one frame from src, dst and payload and writes it on interface
// ifIndex. Coverage 0 checksums the whole payload.
//
// Invalid arguments fail before anything is written. A cancelled ctx also
// prevents the write. Otherwise exactly one write is issued; its outcome is
// reported in the result and logged.
func (t *Transmitter) Send(ctx context.Context, ifIndex int, src, dst core.Endpoint, payload []byte, coverage int) core.SendResult {
	res := core.SendResult{Requested: len(payload)}

	if ifIndex <= 0 {
		res.Err = fmt.Errorf("%w: interface index %d", core.ErrInvalidArgument, ifIndex)
		return res
	}
	spec := frame.Spec{
		Src:              src,
		Dst:              dst,
		Payload:          payload,
		ChecksumCoverage: coverage,
		Options:          t.frameOpts,
	}
	buf, err := frame.New(spec)
	if err != nil {
		res.Err = err
		return res
	}
	res.FrameLen = len(buf)

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	t.observer.Observe(buf)

	n, err := t.w.WriteTo(buf, NewLinkAddr(ifIndex, src.MAC))
	res.Accepted = n
	logger := log.GetLogger().WithFields(map[string]interface{}{
		"ifindex": ifIndex,
		"dst":     dst.String(),
		"frame":   res.FrameLen,
	})
	switch {
	case err != nil:
		res.Err = fmt.Errorf("%w: %w", core.ErrSendFailed, err)
		if t.logFailure("failed", logger) {
			logger.WithError(err).Warn("send failed")
		}
	case n != res.FrameLen:
		res.Err = fmt.Errorf("%w: %d of %d bytes", core.ErrShortWrite, n, res.FrameLen)
		if t.logFailure("short", logger) {
			logger.Warnf("short write: %d of %d bytes", n, res.FrameLen)
		}
	default:
		if logger.IsDebugEnabled() {
			logger.Debugf("sent %d bytes", n)
		}
	}
	return res
}

func (t *Transmitter) logFailure(kind string, logger log.Logger) bool {
	ok, suppressed := t.throttle.allow(kind, time.Now())
	if suppressed > 0 {
		logger.Warnf("%d failure diagnostics suppressed", suppressed)
	}
	return ok
}

// Close closes the underlying writer.
func (t *Transmitter) Close() error {
	return t.w.Close()
}

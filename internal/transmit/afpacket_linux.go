//go:build linux

package transmit

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket/afpacket"

	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/frame"
)

// TPacketConfig configures the TPacket backend.
type TPacketConfig struct {
	Interface  string
	RingSizeMB int // receive ring; the backend never reads, so keep it small
	Timeout    time.Duration
}

// TPacket writes frames through a gopacket afpacket handle.
type TPacket struct {
	mu     sync.Mutex
	handle *afpacket.TPacket
	closed bool
}

// OpenTPacket opens a TPacket handle on cfg.Interface.
func OpenTPacket(cfg TPacketConfig) (*TPacket, error) {
	if cfg.RingSizeMB <= 0 {
		cfg.RingSizeMB = 1
	}
	frameSize, blockSize, numBlocks, err := ringGeometry(cfg.RingSizeMB, frame.HeaderLen+frame.MaxPayload, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	opts := []interface{}{
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	}
	if cfg.Timeout > 0 {
		opts = append(opts, afpacket.OptPollTimeout(cfg.Timeout))
	}
	h, err := afpacket.NewTPacket(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open afpacket handle on %s: %w", cfg.Interface, err)
	}
	return &TPacket{handle: h}, nil
}

// WriteTo writes frame on the handle's interface; addr is not consulted.
// The handle reports no byte count, so a successful write accepts the whole
// frame.
func (t *TPacket) WriteTo(frame []byte, _ *LinkAddr) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, core.ErrClosed
	}
	if err := t.handle.WritePacketData(frame); err != nil {
		return 0, err
	}
	return len(frame), nil
}

func (t *TPacket) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.handle.Close()
	}
	return nil
}

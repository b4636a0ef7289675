//go:build !linux

package transmit

import (
	"time"

	"firestige.xyz/pulse/internal/core"
)

type TPacketConfig struct {
	Interface  string
	RingSizeMB int
	Timeout    time.Duration
}

// TPacket is only available on linux.
type TPacket struct{}

func OpenTPacket(TPacketConfig) (*TPacket, error) { return nil, core.ErrNotSupported }

func (*TPacket) WriteTo([]byte, *LinkAddr) (int, error) { return 0, core.ErrNotSupported }

func (*TPacket) Close() error { return nil }

//go:build !linux

package transmit

import (
	"time"

	"firestige.xyz/pulse/internal/core"
)

// Socket is only available on linux.
type Socket struct{}

func OpenSocket(int, time.Duration) (*Socket, error) {
	return nil, core.ErrNotSupported
}

func (*Socket) WriteTo([]byte, *LinkAddr) (int, error) { return 0, core.ErrNotSupported }

func (*Socket) Close() error { return nil }

// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is; producers wrap them
// with fmt.Errorf("...: %w", ...).
var (
	// Input validation errors
	ErrInvalidArgument = errors.New("pulse: invalid argument")
	ErrBufferTooSmall  = fmt.Errorf("%w: frame buffer too small", ErrInvalidArgument)

	// Transmission errors
	ErrSendFailed = errors.New("pulse: send failed")
	ErrShortWrite = errors.New("pulse: short write")
	ErrClosed     = errors.New("pulse: transmitter closed")

	// Packet decoding errors
	ErrPacketTooShort   = errors.New("pulse: packet too short")
	ErrUnsupportedProto = errors.New("pulse: unsupported protocol")

	// Platform errors
	ErrNotSupported = errors.New("pulse: not supported on this platform")

	// Configuration errors
	ErrConfigInvalid = errors.New("pulse: invalid configuration")
)

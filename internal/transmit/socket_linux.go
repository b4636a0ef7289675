//go:build linux

package transmit

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"firestige.xyz/pulse/internal/core"
)

// Socket is an AF_PACKET/SOCK_RAW socket bound to one interface.
type Socket struct {
	mu      sync.Mutex
	fd      int
	ifIndex int
	closed  bool
}

// OpenSocket opens a raw packet socket on ifIndex. Writes block for at most
// sendTimeout (0 = no limit). Inbound traffic is dropped in the kernel.
func OpenSocket(ifIndex int, sendTimeout time.Duration) (*Socket, error) {
	proto := htons(unix.ETH_P_IP)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return nil, fmt.Errorf("failed to open raw socket: %w", err)
	}

	if err := attachDropFilter(fd); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to attach receive filter: %w", err)
	}

	if sendTimeout > 0 {
		tv := unix.NsecToTimeval(sendTimeout.Nanoseconds())
		if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("failed to set send timeout: %w", err)
		}
	}

	if err := unix.Bind(fd, &unix.SockaddrLinklayer{Protocol: proto, Ifindex: ifIndex}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to bind raw socket: %w", err)
	}

	return &Socket{fd: fd, ifIndex: ifIndex}, nil
}

// WriteTo sends frame as is. The kernel reports how many bytes it took.
func (s *Socket) WriteTo(frame []byte, addr *LinkAddr) (int, error) {
	sll := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_IP),
		Ifindex:  addr.IfIndex,
		Halen:    addr.Halen,
	}
	copy(sll.Addr[:], addr.HardwareAddr[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, core.ErrClosed
	}
	return unix.SendmsgN(s.fd, frame, nil, sll, 0)
}

func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

// attachDropFilter installs a classic BPF program accepting nothing, so the
// socket never queues received frames.
func attachDropFilter(fd int) error {
	raw, err := bpf.Assemble([]bpf.Instruction{
		bpf.RetConstant{Val: 0},
	})
	if err != nil {
		return err
	}
	filter := make([]unix.SockFilter, len(raw))
	for i, r := range raw {
		filter[i] = unix.SockFilter{Code: r.Op, Jt: r.Jt, Jf: r.Jf, K: r.K}
	}
	return unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &unix.SockFprog{
		Len:    uint16(len(filter)),
		Filter: &filter[0],
	})
}

func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}

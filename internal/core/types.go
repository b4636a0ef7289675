// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net"
	"net/netip"
)

// MAC is an Ethernet hardware address.
type MAC [6]byte

// ParseMAC parses an IEEE 802 MAC-48 address such as "00:11:22:33:44:55".
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return MACFromSlice(hw)
}

// MACFromSlice converts a hardware address slice, rejecting anything that is
// not exactly 6 bytes long.
func MACFromSlice(b []byte) (MAC, error) {
	var m MAC
	if len(b) != len(m) {
		return m, fmt.Errorf("%w: hardware address must be 6 bytes, got %d", ErrInvalidArgument, len(b))
	}
	copy(m[:], b)
	return m, nil
}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsZero reports whether m is 00:00:00:00:00:00.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// Endpoint is one side of an emitted datagram, resolved down to the link layer.
type Endpoint struct {
	MAC  MAC
	IP   netip.Addr // must be IPv4
	Port uint16
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s/%s", e.MAC, netip.AddrPortFrom(e.IP, e.Port))
}

// EthernetHeader represents L2 Ethernet frame header.
type EthernetHeader struct {
	SrcMAC    MAC
	DstMAC    MAC
	EtherType uint16
}

// IPHeader represents the L3 IPv4 header.
type IPHeader struct {
	Version    uint8
	IHL        uint8 // in 32-bit words
	TOS        uint8
	TotalLen   uint16
	ID         uint16
	FlagsFrag  uint16
	TTL        uint8
	Protocol   uint8
	Checksum   uint16
	SrcIP      netip.Addr
	DstIP      netip.Addr
	ChecksumOK bool // header checksum verifies to zero
}

// TransportHeader represents the L4 UDP header.
type TransportHeader struct {
	SrcPort    uint16
	DstPort    uint16
	Length     uint16
	Checksum   uint16
	ChecksumOK bool // checksum verifies over the full datagram, or is 0 (none)
}

// DecodedFrame is the result of decoding an emitted frame back into headers.
type DecodedFrame struct {
	Ethernet  EthernetHeader
	IP        IPHeader
	Transport TransportHeader
	Payload   []byte // zero-copy slice into the frame
}

// SendResult separates what the caller asked to send from what the kernel
// accepted. Requested is the payload length, FrameLen the on-wire frame
// length and Accepted the byte count returned by the write.
type SendResult struct {
	Requested int
	FrameLen  int
	Accepted  int
	Err       error
}

// OK reports whether the whole frame was accepted.
func (r SendResult) OK() bool {
	return r.Err == nil && r.FrameLen > 0 && r.Accepted == r.FrameLen
}

// MarshalText renders m for config files; the zero address renders empty.
func (m MAC) MarshalText() ([]byte, error) {
	if m.IsZero() {
		return []byte{}, nil
	}
	return []byte(m.String()), nil
}

// UnmarshalText parses a MAC address; empty text yields the zero address.
func (m *MAC) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = MAC{}
		return nil
	}
	parsed, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

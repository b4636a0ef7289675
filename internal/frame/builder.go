// Package frame lays out Ethernet + IPv4 + UDP frames for direct emission on
// a link-layer socket.
package frame

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"firestige.xyz/pulse/internal/checksum"
	"firestige.xyz/pulse/internal/core"
)

const (
	EthernetHeaderLen = 14
	IPv4HeaderLen     = 20
	UDPHeaderLen      = 8

	// HeaderLen is the fixed prefix in front of the payload.
	HeaderLen = EthernetHeaderLen + IPv4HeaderLen + UDPHeaderLen

	// MaxPayload keeps the IPv4 total length within 16 bits.
	MaxPayload = 0xffff - IPv4HeaderLen - UDPHeaderLen

	EtherTypeIPv4 = 0x0800
	ProtocolUDP   = 17
	TTL           = 255
)

// Options tweaks frame construction.
type Options struct {
	// ZeroChecksumAsOnes transmits a computed UDP checksum of 0 as 0xffff
	// (RFC 768). Off by default.
	ZeroChecksumAsOnes bool
}

// Spec describes one frame.
type Spec struct {
	Src     core.Endpoint
	Dst     core.Endpoint
	Payload []byte

	// ChecksumCoverage is the number of leading payload bytes summed into
	// the UDP checksum; 0 means the whole payload. Any payload bytes past
	// the coverage must be zero or receivers will reject the datagram.
	ChecksumCoverage int

	Options Options
}

// Len returns the on-wire length of the frame described by s.
func (s Spec) Len() int {
	return HeaderLen + len(s.Payload)
}

// coverage validates s and returns the effective checksum coverage.
func (s Spec) coverage() (int, error) {
	if !s.Src.IP.Is4() {
		return 0, fmt.Errorf("%w: source address %v is not IPv4", core.ErrInvalidArgument, s.Src.IP)
	}
	if !s.Dst.IP.Is4() {
		return 0, fmt.Errorf("%w: destination address %v is not IPv4", core.ErrInvalidArgument, s.Dst.IP)
	}
	if len(s.Payload) > MaxPayload {
		return 0, fmt.Errorf("%w: payload of %d bytes exceeds %d", core.ErrInvalidArgument, len(s.Payload), MaxPayload)
	}
	switch {
	case s.ChecksumCoverage == 0:
		return len(s.Payload), nil
	case s.ChecksumCoverage < 0 || s.ChecksumCoverage > len(s.Payload):
		return 0, fmt.Errorf("%w: checksum coverage %d outside payload of %d bytes",
			core.ErrInvalidArgument, s.ChecksumCoverage, len(s.Payload))
	}
	return s.ChecksumCoverage, nil
}

// Build writes the frame described by s into buf and returns its length.
// Nothing is written unless s is valid and buf can hold the whole frame.
func Build(buf []byte, s Spec) (int, error) {
	coverage, err := s.coverage()
	if err != nil {
		return 0, err
	}
	n := s.Len()
	if len(buf) < n {
		return 0, fmt.Errorf("%w: frame needs %d bytes, buffer holds %d", core.ErrBufferTooSmall, n, len(buf))
	}
	frame := buf[:n]

	putEthernet(frame[:EthernetHeaderLen], s.Dst.MAC, s.Src.MAC)

	ip := frame[EthernetHeaderLen : EthernetHeaderLen+IPv4HeaderLen]
	putIPv4(ip, s.Src.IP, s.Dst.IP, len(s.Payload))

	udp := frame[EthernetHeaderLen+IPv4HeaderLen : HeaderLen]
	putUDP(udp, s.Src.Port, s.Dst.Port, len(s.Payload))

	sum := checksum.UDPv4(ip, udp, s.Payload, coverage)
	if sum == 0 && s.Options.ZeroChecksumAsOnes {
		sum = 0xffff
	}
	binary.BigEndian.PutUint16(udp[6:8], sum)

	copy(frame[HeaderLen:], s.Payload)
	return n, nil
}

// New allocates a buffer of exactly the right size and builds s into it.
func New(s Spec) ([]byte, error) {
	if _, err := s.coverage(); err != nil {
		return nil, err
	}
	buf := make([]byte, s.Len())
	if _, err := Build(buf, s); err != nil {
		return nil, err
	}
	return buf, nil
}

func putEthernet(b []byte, dst, src core.MAC) {
	copy(b[0:6], dst[:])
	copy(b[6:12], src[:])
	binary.BigEndian.PutUint16(b[12:14], EtherTypeIPv4)
}

func putIPv4(b []byte, src, dst netip.Addr, payloadLen int) {
	b[0] = 4<<4 | IPv4HeaderLen/4 // version, IHL in 32-bit words
	b[1] = 0                      // TOS
	binary.BigEndian.PutUint16(b[2:4], uint16(IPv4HeaderLen+UDPHeaderLen+payloadLen))
	binary.BigEndian.PutUint16(b[4:6], 0) // identification
	binary.BigEndian.PutUint16(b[6:8], 0) // flags, fragment offset
	b[8] = TTL
	b[9] = ProtocolUDP
	binary.BigEndian.PutUint16(b[10:12], 0)
	s4, d4 := src.As4(), dst.As4()
	copy(b[12:16], s4[:])
	copy(b[16:20], d4[:])

	binary.BigEndian.PutUint16(b[10:12], checksum.Checksum(b))
}

func putUDP(b []byte, srcPort, dstPort uint16, payloadLen int) {
	binary.BigEndian.PutUint16(b[0:2], srcPort)
	binary.BigEndian.PutUint16(b[2:4], dstPort)
	binary.BigEndian.PutUint16(b[4:6], uint16(UDPHeaderLen+payloadLen))
	binary.BigEndian.PutUint16(b[6:8], 0)
}

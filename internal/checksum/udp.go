package checksum

import "encoding/binary"

// UDPv4 computes the UDP checksum for a datagram carried in IPv4 without
// serializing the pseudo-header. ipHdr must hold at least the 20 fixed IPv4
// header bytes and udpHdr the 8 UDP header bytes; the UDP checksum field is
// ignored.
//
// Only the first coverage bytes of payload are summed (coverage is clamped
// to [0, len(payload)]). The result is a valid UDP checksum only when every
// payload byte past coverage is zero, since receivers checksum the whole
// datagram.
//
// The result is bit-identical to Checksum over the canonical pseudo-header,
// the UDP header with a zero checksum field and payload[:coverage]. A
// computed value of 0 is returned as 0; RFC 768 transmission of 0xffff is
// left to the caller.
func UDPv4(ipHdr, udpHdr, payload []byte, coverage int) uint16 {
	var acc Accumulator

	// Pseudo-header
	acc.AddWord(binary.BigEndian.Uint16(ipHdr[12:14])) // source address, high half
	acc.AddWord(binary.BigEndian.Uint16(ipHdr[14:16])) // source address, low half
	acc.AddWord(binary.BigEndian.Uint16(ipHdr[16:18]))
	acc.AddWord(binary.BigEndian.Uint16(ipHdr[18:20]))
	acc.AddWord(uint16(ipHdr[9])) // zero byte, protocol byte
	length := binary.BigEndian.Uint16(udpHdr[4:6])
	acc.AddWord(length)

	// UDP header; the length is counted a second time here.
	acc.AddWord(binary.BigEndian.Uint16(udpHdr[0:2]))
	acc.AddWord(binary.BigEndian.Uint16(udpHdr[2:4]))
	acc.AddWord(length)

	if coverage < 0 {
		coverage = 0
	}
	if coverage > len(payload) {
		coverage = len(payload)
	}
	acc.AddBytes(payload[:coverage])

	return acc.Checksum()
}

package frame

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/pulse/internal/checksum"
	"firestige.xyz/pulse/internal/core"
)

// Decode parses an Ethernet/IPv4/UDP frame and verifies both checksums.
// Trailing bytes beyond the UDP length (Ethernet minimum-size padding) are
// excluded from the payload.
func Decode(data []byte) (core.DecodedFrame, error) {
	var f core.DecodedFrame

	eth, rest, err := decodeEthernet(data)
	if err != nil {
		return f, err
	}
	f.Ethernet = eth
	if eth.EtherType != EtherTypeIPv4 {
		return f, core.ErrUnsupportedProto
	}

	ip, ipHdr, rest, err := decodeIPv4(rest)
	if err != nil {
		return f, err
	}
	f.IP = ip
	if ip.Protocol != ProtocolUDP {
		return f, core.ErrUnsupportedProto
	}

	udp, payload, err := decodeUDP(ipHdr, rest)
	if err != nil {
		return f, err
	}
	f.Transport = udp
	f.Payload = payload
	return f, nil
}

// decodeEthernet decodes the Ethernet header and returns the remaining payload.
func decodeEthernet(data []byte) (core.EthernetHeader, []byte, error) {
	if len(data) < EthernetHeaderLen {
		return core.EthernetHeader{}, nil, core.ErrPacketTooShort
	}

	eth := core.EthernetHeader{}
	copy(eth.DstMAC[:], data[0:6])
	copy(eth.SrcMAC[:], data[6:12])
	eth.EtherType = binary.BigEndian.Uint16(data[12:14])

	return eth, data[EthernetHeaderLen:], nil
}

// decodeIPv4 decodes the IPv4 header. It returns the raw header bytes too,
// since the UDP checksum needs them.
func decodeIPv4(data []byte) (core.IPHeader, []byte, []byte, error) {
	if len(data) < IPv4HeaderLen {
		return core.IPHeader{}, nil, nil, core.ErrPacketTooShort
	}
	if data[0]>>4 != 4 {
		return core.IPHeader{}, nil, nil, core.ErrUnsupportedProto
	}

	// IHL is in 32-bit words
	headerLen := int(data[0]&0x0f) * 4
	if headerLen < IPv4HeaderLen || len(data) < headerLen {
		return core.IPHeader{}, nil, nil, core.ErrPacketTooShort
	}
	hdr := data[:headerLen]

	ip := core.IPHeader{
		Version:    4,
		IHL:        data[0] & 0x0f,
		TOS:        data[1],
		TotalLen:   binary.BigEndian.Uint16(data[2:4]),
		ID:         binary.BigEndian.Uint16(data[4:6]),
		FlagsFrag:  binary.BigEndian.Uint16(data[6:8]),
		TTL:        data[8],
		Protocol:   data[9],
		Checksum:   binary.BigEndian.Uint16(data[10:12]),
		SrcIP:      netip.AddrFrom4([4]byte(data[12:16])),
		DstIP:      netip.AddrFrom4([4]byte(data[16:20])),
		ChecksumOK: checksum.Checksum(hdr) == 0,
	}

	end := len(data)
	if int(ip.TotalLen) >= headerLen && int(ip.TotalLen) < end {
		end = int(ip.TotalLen)
	}
	return ip, hdr, data[headerLen:end], nil
}

// decodeUDP decodes the UDP header and verifies its checksum over the full
// datagram.
func decodeUDP(ipHdr, data []byte) (core.TransportHeader, []byte, error) {
	if len(data) < UDPHeaderLen {
		return core.TransportHeader{}, nil, core.ErrPacketTooShort
	}

	udp := core.TransportHeader{
		SrcPort:  binary.BigEndian.Uint16(data[0:2]),
		DstPort:  binary.BigEndian.Uint16(data[2:4]),
		Length:   binary.BigEndian.Uint16(data[4:6]),
		Checksum: binary.BigEndian.Uint16(data[6:8]),
	}
	if int(udp.Length) < UDPHeaderLen || int(udp.Length) > len(data) {
		return udp, nil, core.ErrPacketTooShort
	}

	payload := data[UDPHeaderLen:udp.Length]
	computed := checksum.UDPv4(ipHdr, data[:UDPHeaderLen], payload, len(payload))
	// A zero field means the sender did not compute a checksum.
	udp.ChecksumOK = udp.Checksum == 0 || computed == udp.Checksum || (computed == 0 && udp.Checksum == 0xffff)

	return udp, payload, nil
}

// Package dump renders frames for humans: layer summaries through gopacket,
// probe records and hex dumps.
package dump

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/probe"
)

// Logger is a transmit observer that logs each frame at debug level.
type Logger struct {
	log   log.Logger
	probe bool
}

// NewLogger returns an observer writing to l. With probes set, the payload is
// also decoded as a probe record.
func NewLogger(l log.Logger, probes bool) *Logger {
	return &Logger{log: l, probe: probes}
}

func (d *Logger) Observe(frame []byte) {
	if !d.log.IsDebugEnabled() {
		return
	}
	fields := map[string]interface{}{"len": len(frame)}
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.NoCopy)
	if d.probe {
		if app := pkt.ApplicationLayer(); app != nil {
			if p, err := probe.Unmarshal(app.Payload()); err == nil {
				fields["probe"] = p.String()
			}
		}
	}
	d.log.WithFields(fields).Debug(Summary(pkt))
}

// Summary is a one-line description of every decoded layer.
func Summary(pkt gopacket.Packet) string {
	var parts []string
	for _, l := range pkt.Layers() {
		switch l := l.(type) {
		case *layers.Ethernet:
			parts = append(parts, fmt.Sprintf("eth %s > %s", l.SrcMAC, l.DstMAC))
		case *layers.IPv4:
			parts = append(parts, fmt.Sprintf("ip %s > %s ttl %d len %d", l.SrcIP, l.DstIP, l.TTL, l.Length))
		case *layers.UDP:
			parts = append(parts, fmt.Sprintf("udp %d > %d len %d csum %#04x", l.SrcPort, l.DstPort, l.Length, l.Checksum))
		case *gopacket.Payload:
			parts = append(parts, fmt.Sprintf("payload %d", len(*l)))
		default:
			parts = append(parts, l.LayerType().String())
		}
	}
	if el := pkt.ErrorLayer(); el != nil {
		parts = append(parts, "error: "+el.Error().Error())
	}
	return strings.Join(parts, " | ")
}

// Write prints every layer of frame in gopacket's verbose form followed by
// a hex dump.
func Write(w io.Writer, frame []byte) error {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	if _, err := io.WriteString(w, pkt.Dump()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "--- %d bytes\n", len(frame)); err != nil {
		return err
	}
	_, err := io.WriteString(w, hex.Dump(frame))
	return err
}

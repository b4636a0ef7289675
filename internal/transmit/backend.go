package transmit

import (
	"fmt"
	"time"

	"firestige.xyz/pulse/internal/core"
)

const (
	BackendSocket   = "socket"
	BackendAFPacket = "afpacket"
	BackendPcap     = "pcap"
)

// BackendConfig selects and configures a LinkWriter.
type BackendConfig struct {
	Kind        string
	Interface   string
	IfIndex     int
	SendTimeout time.Duration
	PcapFile    string
}

// Open returns the LinkWriter named by cfg.Kind.
func Open(cfg BackendConfig) (LinkWriter, error) {
	var (
		w   LinkWriter
		err error
	)
	switch cfg.Kind {
	case BackendSocket, "":
		var s *Socket
		if s, err = OpenSocket(cfg.IfIndex, cfg.SendTimeout); err == nil {
			w = s
		}
	case BackendAFPacket:
		var t *TPacket
		if t, err = OpenTPacket(TPacketConfig{Interface: cfg.Interface, Timeout: cfg.SendTimeout}); err == nil {
			w = t
		}
	case BackendPcap:
		var p *PcapFile
		if p, err = CreatePcapFile(cfg.PcapFile); err == nil {
			w = p
		}
	default:
		err = fmt.Errorf("%w: unknown backend %q", core.ErrInvalidArgument, cfg.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Kind, err)
	}
	return w, nil
}

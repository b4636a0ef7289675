package transmit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/pulse/internal/core"
)

const pcapSnapLen = 65536

// PcapFile records frames into a pcap capture instead of a link. It is the
// dry-run backend.
type PcapFile struct {
	mu     sync.Mutex
	w      *pcapgo.Writer
	buf    *bufio.Writer
	closer io.Closer
	now    func() time.Time
	closed bool
}

// CreatePcapFile truncates path and writes a pcap header for Ethernet frames.
func CreatePcapFile(path string) (*PcapFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file: %w", err)
	}
	p, err := NewPcapWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return p, nil
}

// NewPcapWriter writes a pcap stream to w. Close closes w if it is an io.Closer.
func NewPcapWriter(w io.Writer) (*PcapFile, error) {
	buf := bufio.NewWriter(w)
	pw := pcapgo.NewWriter(buf)
	if err := pw.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	p := &PcapFile{w: pw, buf: buf, now: time.Now}
	if c, ok := w.(io.Closer); ok {
		p.closer = c
	}
	return p, nil
}

func (p *PcapFile) WriteTo(frame []byte, _ *LinkAddr) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, core.ErrClosed
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     p.now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if err := p.w.WritePacket(ci, frame); err != nil {
		return 0, err
	}
	return len(frame), nil
}

// Close flushes buffered records and closes the destination.
func (p *PcapFile) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.buf.Flush()
	if p.closer != nil {
		if cerr := p.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

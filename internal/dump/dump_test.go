package dump

import (
	"bytes"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/frame"
	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/probe"
)

func testFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	b, err := frame.New(frame.Spec{
		Src:     core.Endpoint{MAC: core.MAC{2, 0, 0, 0, 0, 1}, IP: netip.MustParseAddr("10.0.0.1"), Port: 1000},
		Dst:     core.Endpoint{MAC: core.MAC{2, 0, 0, 0, 0, 2}, IP: netip.MustParseAddr("10.0.0.2"), Port: 2000},
		Payload: payload,
	})
	require.NoError(t, err)
	return b
}

func TestSummary(t *testing.T) {
	pkt := gopacket.NewPacket(testFrame(t, []byte("PING")), layers.LayerTypeEthernet, gopacket.Default)
	s := Summary(pkt)

	assert.Contains(t, s, "eth 02:00:00:00:00:01 > 02:00:00:00:00:02")
	assert.Contains(t, s, "ip 10.0.0.1 > 10.0.0.2 ttl 255 len 32")
	assert.Contains(t, s, "udp 1000 > 2000 len 12")
	assert.True(t, strings.HasSuffix(s, "payload 4"), s)
	assert.NotContains(t, s, "error")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testFrame(t, []byte("PING"))))

	out := buf.String()
	assert.Contains(t, out, "Ethernet")
	assert.Contains(t, out, "IPv4")
	assert.Contains(t, out, "UDP")
	assert.Contains(t, out, "--- 46 bytes")
	assert.Contains(t, out, "..E.|")
}

func TestLoggerObserve(t *testing.T) {
	var buf bytes.Buffer
	cfg := log.DefaultConfig()
	cfg.Level = "debug"
	l, err := log.New(cfg)
	require.NoError(t, err)
	l = l.WithField("test", true)

	p := probe.Probe{RunID: uuid.New(), Seq: 7, Sent: time.Unix(100, 5), Stamps: 1}
	payload, _ := p.Marshal(nil, 64)

	obs := NewLogger(&captureLogger{Logger: l, out: &buf}, true)
	obs.Observe(testFrame(t, payload))

	assert.Contains(t, buf.String(), "udp 1000 > 2000")
	assert.Contains(t, buf.String(), p.String())
}

func TestLoggerSkipsWhenNotDebug(t *testing.T) {
	var buf bytes.Buffer
	l, err := log.New(log.DefaultConfig())
	require.NoError(t, err)

	NewLogger(&captureLogger{Logger: l, out: &buf}, false).Observe(testFrame(t, nil))
	assert.Empty(t, buf.String())
}

// captureLogger records debug output so tests need not touch the global logger.
type captureLogger struct {
	log.Logger
	out    *bytes.Buffer
	fields map[string]interface{}
}

func (c *captureLogger) WithFields(fields map[string]interface{}) log.Logger {
	return &captureLogger{Logger: c.Logger, out: c.out, fields: fields}
}

func (c *captureLogger) Debug(args ...interface{}) {
	for _, a := range args {
		c.out.WriteString(a.(string))
	}
	for k, v := range c.fields {
		c.out.WriteString(" " + k + "=")
		if s, ok := v.(string); ok {
			c.out.WriteString(s)
		}
	}
}

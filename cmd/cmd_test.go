package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"firestige.xyz/pulse/internal/config"
	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/resolve"
)

const testConfigYAML = `pulse:
  source:
    mac: "02:00:00:00:00:01"
    ip: 10.0.0.1
    port: 1000
  destination:
    mac: "02:00:00:00:00:02"
    host: 10.0.0.2
    port: 2000
  payload:
    text: PING
  log:
    level: warn
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulse.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunInspectWritesPcap(t *testing.T) {
	configFile = writeConfig(t, testConfigYAML)
	inspectPcap = filepath.Join(t.TempDir(), "frame.pcap")
	t.Cleanup(func() { configFile, inspectPcap = config.DefaultPath, "" })

	var out bytes.Buffer
	require.NoError(t, runInspect(context.Background(), &out))

	s := out.String()
	assert.Contains(t, s, "--- 46 bytes")
	assert.Contains(t, s, "ip checksum ok: true, udp checksum ok: true")
	assert.Contains(t, s, "wrote 46 bytes")

	f, err := os.Open(inspectPcap)
	require.NoError(t, err)
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)
	data, _, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, []byte("PING"), data[42:])
}

func TestResolveRouteFromInterface(t *testing.T) {
	orig := lookupInterface
	lookupInterface = func(name string) (resolve.Iface, error) {
		return resolve.Iface{
			Name:  name,
			Index: 7,
			MAC:   core.MAC{0xaa, 0xbb, 0xcc, 0, 0, 1},
			IPv4:  netip.MustParseAddr("192.0.2.1"),
		}, nil
	}
	t.Cleanup(func() { lookupInterface = orig })

	cfg := &config.Config{Interface: "eth9"}
	cfg.Source.Port = 1
	cfg.Destination = config.DestinationConfig{MAC: core.MAC{2, 0, 0, 0, 0, 2}, Host: "192.0.2.2", Port: 2}
	cfg.Resolver.Timeout = time.Second

	r, err := resolveRoute(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 7, r.ifIndex)
	assert.Equal(t, "eth9", r.iface)
	assert.Equal(t, core.MAC{0xaa, 0xbb, 0xcc, 0, 0, 1}, r.src.MAC)
	assert.Equal(t, "192.0.2.1", r.src.IP.String())
	assert.Equal(t, "192.0.2.2", r.dst.IP.String())

	// configured source wins over the interface
	cfg.Source.IP = netip.MustParseAddr("198.51.100.1")
	r, err = resolveRoute(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1", r.src.IP.String())
}

func TestResolveRouteNeedsSourceAddress(t *testing.T) {
	cfg := &config.Config{}
	cfg.Destination.Host = "192.0.2.2"

	_, err := resolveRoute(context.Background(), cfg)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Uint64("count", 1, "")
	require.NoError(t, fs.Parse([]string{"--count", "42"}))

	v := viper.New()
	v.SetDefault("pulse.send.count", 1)
	require.NoError(t, bindFlags(fs, flagBinding{"pulse.send.count", "count"})(v))
	assert.Equal(t, uint64(42), v.GetUint64("pulse.send.count"))

	assert.Error(t, bindFlags(fs, flagBinding{"pulse.x", "missing"})(v))
}

func TestConfigErrors(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	wrapped := fmt.Errorf("config validation failed: %w", multierr.Combine(a, b))

	assert.Equal(t, []error{a}, configErrors(a))
	assert.Len(t, configErrors(multierr.Combine(a, b)), 2)
	assert.Equal(t, []error{a, b}, configErrors(wrapped))
}

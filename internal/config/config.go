// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/log"
)

// DefaultPath is used when no --config flag is given. A missing file at the
// default path is not an error; defaults, env and flags still apply.
const DefaultPath = "/etc/pulse/pulse.yml"

// Config is the top-level configuration, the `pulse:` root key in YAML.
type Config struct {
	Interface   string            `mapstructure:"interface" yaml:"interface"`
	Source      SourceConfig      `mapstructure:"source" yaml:"source"`
	Destination DestinationConfig `mapstructure:"destination" yaml:"destination"`
	Payload     PayloadConfig     `mapstructure:"payload" yaml:"payload"`
	Send        SendConfig        `mapstructure:"send" yaml:"send"`
	Resolver    ResolverConfig    `mapstructure:"resolver" yaml:"resolver"`
	Log         log.Config        `mapstructure:"log" yaml:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Verbose     bool              `mapstructure:"verbose" yaml:"verbose"`
}

// ─── Endpoints ───

// SourceConfig describes the sending side. Empty MAC/IP are filled in from
// the interface.
type SourceConfig struct {
	MAC  core.MAC   `mapstructure:"mac" yaml:"mac"`
	IP   netip.Addr `mapstructure:"ip" yaml:"ip"`
	Port uint16     `mapstructure:"port" yaml:"port"`
}

// DestinationConfig describes the receiving side. The MAC is the next hop's
// hardware address; it is never resolved.
type DestinationConfig struct {
	MAC  core.MAC `mapstructure:"mac" yaml:"mac"`
	Host string   `mapstructure:"host" yaml:"host"` // IPv4 literal or hostname
	Port uint16   `mapstructure:"port" yaml:"port"`
}

// ─── Payload ───

// PayloadConfig selects what goes after the UDP header. Text and Hex are
// mutually exclusive static payloads; Probe emits sequence-numbered probe
// records instead. Size zero-pads the payload.
type PayloadConfig struct {
	Text             string `mapstructure:"text" yaml:"text,omitempty"`
	Hex              string `mapstructure:"hex" yaml:"hex,omitempty"`
	Size             int    `mapstructure:"size" yaml:"size"`
	Probe            bool   `mapstructure:"probe" yaml:"probe"`
	ChecksumCoverage int    `mapstructure:"checksum_coverage" yaml:"checksum_coverage"`
	// RFC768ZeroChecksum sends a computed UDP checksum of 0 as 0xffff.
	RFC768ZeroChecksum bool `mapstructure:"rfc768_zero_checksum" yaml:"rfc768_zero_checksum"`
}

// ─── Sending ───

// SendConfig controls the generator loop and the transmit backend.
type SendConfig struct {
	Count    uint64        `mapstructure:"count" yaml:"count"` // 0 = until interrupted
	Rate     float64       `mapstructure:"rate" yaml:"rate"`   // frames per second, 0 = unpaced
	Workers  int           `mapstructure:"workers" yaml:"workers"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Backend  string        `mapstructure:"backend" yaml:"backend"` // socket | afpacket | pcap
	PcapFile string        `mapstructure:"pcap_file" yaml:"pcap_file,omitempty"`
	Retry    RetryConfig   `mapstructure:"retry" yaml:"retry"`

	// FailureLogLimit caps send failure diagnostics per second and kind; 0 logs all.
	FailureLogLimit int `mapstructure:"failure_log_limit" yaml:"failure_log_limit"`
}

// RetryConfig is the caller-side retry policy for failed transmissions.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
}

const (
	BackendSocket   = "socket"
	BackendAFPacket = "afpacket"
	BackendPcap     = "pcap"
)

// ─── Resolver ───

// ResolverConfig selects how destination.host is resolved. An empty Server
// uses the system resolver.
type ResolverConfig struct {
	Server  string        `mapstructure:"server" yaml:"server,omitempty"` // host:port
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pulse: ...`.
type configRoot struct {
	Pulse Config `mapstructure:"pulse"`
}

// Override adjusts the viper instance after defaults and the config file
// are in place, typically by binding command-line flags.
type Override func(v *viper.Viper) error

// Load loads configuration from file, environment and overrides, then validates it.
// Env vars use the PULSE_ prefix (e.g. PULSE_SEND_RATE) through the `pulse.` key prefix.
func Load(path string, overrides ...Override) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !(path == DefaultPath && os.IsNotExist(err)) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	for _, o := range overrides {
		if err := o(v); err != nil {
			return nil, err
		}
	}

	var root configRoot
	if err := v.Unmarshal(&root, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pulse
	cfg.Source.IP = cfg.Source.IP.Unmap()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// setDefaults sets default values for configuration.
// All keys use the "pulse." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("pulse.interface", "")
	v.SetDefault("pulse.verbose", false)

	// Endpoint defaults
	v.SetDefault("pulse.source.mac", "")
	v.SetDefault("pulse.source.ip", "")
	v.SetDefault("pulse.source.port", 40000)
	v.SetDefault("pulse.destination.mac", "")
	v.SetDefault("pulse.destination.host", "")
	v.SetDefault("pulse.destination.port", 40000)

	// Payload defaults
	v.SetDefault("pulse.payload.text", "")
	v.SetDefault("pulse.payload.hex", "")
	v.SetDefault("pulse.payload.size", 0)
	v.SetDefault("pulse.payload.probe", false)
	v.SetDefault("pulse.payload.checksum_coverage", 0)
	v.SetDefault("pulse.payload.rfc768_zero_checksum", false)

	// Send defaults
	v.SetDefault("pulse.send.count", 1)
	v.SetDefault("pulse.send.rate", 0)
	v.SetDefault("pulse.send.workers", 1)
	v.SetDefault("pulse.send.timeout", "1s")
	v.SetDefault("pulse.send.backend", BackendSocket)
	v.SetDefault("pulse.send.pcap_file", "")
	v.SetDefault("pulse.send.failure_log_limit", 0)
	v.SetDefault("pulse.send.retry.max_attempts", 1)
	v.SetDefault("pulse.send.retry.initial_interval", "10ms")
	v.SetDefault("pulse.send.retry.max_interval", "1s")

	// Resolver defaults
	v.SetDefault("pulse.resolver.server", "")
	v.SetDefault("pulse.resolver.timeout", "2s")

	// Log defaults
	v.SetDefault("pulse.log.level", "info")
	v.SetDefault("pulse.log.format", "text")
	v.SetDefault("pulse.log.pattern", log.DefaultPattern)
	v.SetDefault("pulse.log.time", log.DefaultTime)
	v.SetDefault("pulse.log.file.enabled", false)
	v.SetDefault("pulse.log.file.filename", "/var/log/pulse/pulse.log")
	v.SetDefault("pulse.log.file.max_size", 100)
	v.SetDefault("pulse.log.file.max_backups", 5)
	v.SetDefault("pulse.log.file.max_age", 30)
	v.SetDefault("pulse.log.file.compress", true)

	// Metrics defaults
	v.SetDefault("pulse.metrics.enabled", false)
	v.SetDefault("pulse.metrics.listen", ":9092")
	v.SetDefault("pulse.metrics.path", "/metrics")
}

// YAML renders cfg under the `pulse:` root key.
func (cfg *Config) YAML() ([]byte, error) {
	return yaml.Marshal(map[string]*Config{"pulse": cfg})
}

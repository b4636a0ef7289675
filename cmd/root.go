// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"firestige.xyz/pulse/internal/config"
	"firestige.xyz/pulse/internal/log"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse - link-layer UDP frame emitter",
	Long: `Pulse builds Ethernet/IPv4/UDP frames by hand and writes them straight to
a network interface through a raw packet socket, bypassing routing and ARP.

Features:
  - Exact frames: fixed headers, RFC 1071 checksums, optional partial UDP checksum coverage
  - Backends: AF_PACKET socket, afpacket TPacket, pcap file (dry run)
  - Paced runs with sequence-numbered probe payloads
  - Prometheus metrics`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath,
		"config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log every frame at debug level")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(validateCmd)
}

// flagBinding maps a command-line flag onto a configuration key.
type flagBinding struct {
	key  string
	flag string
}

// bindFlags returns an override binding each flag of fs to its key. Flags
// only take effect when set on the command line.
func bindFlags(fs *pflag.FlagSet, bindings ...flagBinding) config.Override {
	return func(v *viper.Viper) error {
		for _, b := range bindings {
			f := fs.Lookup(b.flag)
			if f == nil {
				return fmt.Errorf("unknown flag %q", b.flag)
			}
			if err := v.BindPFlag(b.key, f); err != nil {
				return err
			}
		}
		return nil
	}
}

// loadConfig loads the configuration, applies --verbose and initializes logging.
func loadConfig(overrides ...config.Override) (*config.Config, error) {
	cfg, err := config.Load(configFile, overrides...)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
		cfg.Log.Level = "debug"
	}
	if err := log.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

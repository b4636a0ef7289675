package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"firestige.xyz/pulse/internal/config"
	"firestige.xyz/pulse/internal/dump"
	"firestige.xyz/pulse/internal/frame"
	"firestige.xyz/pulse/internal/generator"
	"firestige.xyz/pulse/internal/transmit"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build one frame and print it",
	Long: `Build the first frame a send run would emit and print its decoded layers and
a hex dump, without touching the network. With --pcap the frame is also
written to a capture file.

Examples:
  pulse inspect -c pulse.yml
  pulse inspect -c pulse.yml --pcap frame.pcap`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInspect(cmd.Context(), os.Stdout); err != nil {
			exitWithError("inspect failed", err)
		}
	},
}

var inspectPcap string

func init() {
	inspectCmd.Flags().StringVar(&inspectPcap, "pcap", "", "also write the frame to this pcap file")
}

func runInspect(ctx context.Context, out io.Writer) error {
	var overrides []config.Override
	if inspectPcap != "" {
		// Inspection never needs a live interface.
		overrides = append(overrides, func(v *viper.Viper) error {
			v.Set("pulse.send.backend", config.BackendPcap)
			v.Set("pulse.send.pcap_file", inspectPcap)
			return nil
		})
	}
	cfg, err := loadConfig(overrides...)
	if err != nil {
		return err
	}

	r, err := resolveRoute(ctx, cfg)
	if err != nil {
		return err
	}
	src, err := generator.PayloadFromConfig(cfg.Payload)
	if err != nil {
		return err
	}
	payload, coverage := src.Next(time.Now())

	b, err := frame.New(frame.Spec{
		Src:              r.src,
		Dst:              r.dst,
		Payload:          payload,
		ChecksumCoverage: coverage,
		Options:          frame.Options{ZeroChecksumAsOnes: cfg.Payload.RFC768ZeroChecksum},
	})
	if err != nil {
		return err
	}
	if err := dump.Write(out, b); err != nil {
		return err
	}

	decoded, err := frame.Decode(b)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ip checksum ok: %t, udp checksum ok: %t\n", decoded.IP.ChecksumOK, decoded.Transport.ChecksumOK)

	if inspectPcap == "" {
		return nil
	}
	w, err := transmit.CreatePcapFile(inspectPcap)
	if err != nil {
		return err
	}
	tx := newTransmitter(cfg, w)
	res := tx.Send(ctx, r.ifIndex, r.src, r.dst, payload, coverage)
	if err := tx.Close(); err != nil && res.Err == nil {
		res.Err = err
	}
	if res.Err != nil {
		return res.Err
	}
	fmt.Fprintf(out, "wrote %d bytes to %s\n", res.Accepted, inspectPcap)
	return nil
}

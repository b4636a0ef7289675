package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/pulse/internal/config"
	"firestige.xyz/pulse/internal/dump"
	"firestige.xyz/pulse/internal/frame"
	"firestige.xyz/pulse/internal/generator"
	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/metrics"
	"firestige.xyz/pulse/internal/stats"
	"firestige.xyz/pulse/internal/transmit"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send UDP frames on an interface",
	Long: `Send hand-built UDP frames straight onto an interface.

The destination MAC must be the next hop's hardware address; pulse never
runs ARP. Source MAC and IP default to the interface's own.

Examples:
  pulse send -i eth0 --dst-mac 02:00:00:00:00:02 --dst-host 192.0.2.10 --text PING
  pulse send -c pulse.yml -n 0 -r 1000 --probe --size 512
  pulse send -c pulse.yml --backend pcap --pcap-file out.pcap -n 10`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSend(cmd); err != nil {
			exitWithError("send failed", err)
		}
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringP("interface", "i", "", "interface to send on")
	f.String("dst-mac", "", "destination (next hop) MAC address")
	f.String("dst-host", "", "destination IPv4 address or host name")
	f.Uint16("dst-port", 0, "destination UDP port")
	f.Uint16("src-port", 0, "source UDP port")
	f.String("text", "", "payload text")
	f.String("hex", "", "payload as hex string")
	f.Int("size", 0, "zero-pad the payload to this many bytes")
	f.Bool("probe", false, "send sequence-numbered probe records")
	f.Int("coverage", 0, "UDP checksum coverage in payload bytes (0 = whole payload)")
	f.Uint64P("count", "n", 1, "frames to send (0 = until interrupted)")
	f.Float64P("rate", "r", 0, "frames per second (0 = unpaced)")
	f.IntP("workers", "w", 1, "concurrent senders")
	f.String("backend", "", "socket, afpacket or pcap")
	f.String("pcap-file", "", "capture file for the pcap backend")
}

func sendOverrides(cmd *cobra.Command) config.Override {
	return bindFlags(cmd.Flags(),
		flagBinding{"pulse.interface", "interface"},
		flagBinding{"pulse.destination.mac", "dst-mac"},
		flagBinding{"pulse.destination.host", "dst-host"},
		flagBinding{"pulse.destination.port", "dst-port"},
		flagBinding{"pulse.source.port", "src-port"},
		flagBinding{"pulse.payload.text", "text"},
		flagBinding{"pulse.payload.hex", "hex"},
		flagBinding{"pulse.payload.size", "size"},
		flagBinding{"pulse.payload.probe", "probe"},
		flagBinding{"pulse.payload.checksum_coverage", "coverage"},
		flagBinding{"pulse.send.count", "count"},
		flagBinding{"pulse.send.rate", "rate"},
		flagBinding{"pulse.send.workers", "workers"},
		flagBinding{"pulse.send.backend", "backend"},
		flagBinding{"pulse.send.pcap_file", "pcap-file"},
	)
}

func runSend(cmd *cobra.Command) error {
	cfg, err := loadConfig(sendOverrides(cmd))
	if err != nil {
		return err
	}
	logger := log.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := resolveRoute(ctx, cfg)
	if err != nil {
		return err
	}

	payload, err := generator.PayloadFromConfig(cfg.Payload)
	if err != nil {
		return err
	}

	w, err := transmit.Open(transmit.BackendConfig{
		Kind:        cfg.Send.Backend,
		Interface:   cfg.Interface,
		IfIndex:     r.ifIndex,
		SendTimeout: cfg.Send.Timeout,
		PcapFile:    cfg.Send.PcapFile,
	})
	if err != nil {
		return err
	}
	tx := newTransmitter(cfg, w)
	defer func() {
		if err := tx.Close(); err != nil {
			logger.WithError(err).Warn("closing backend")
		}
	}()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	st := stats.New(r.iface)
	gen := generator.New(generator.Config{
		IfIndex: r.ifIndex,
		Src:     r.src,
		Dst:     r.dst,
		Count:   cfg.Send.Count,
		Rate:    cfg.Send.Rate,
		Workers: cfg.Send.Workers,
		Retry: generator.RetryPolicy{
			MaxAttempts:     cfg.Send.Retry.MaxAttempts,
			InitialInterval: cfg.Send.Retry.InitialInterval,
			MaxInterval:     cfg.Send.Retry.MaxInterval,
		},
	}, tx, payload, st)

	runErr := gen.Run(ctx)

	snap := st.Snapshot()
	logger.WithFields(map[string]interface{}{
		"sent":   snap.Sent,
		"failed": snap.Failed + snap.Short,
	}).Info("run finished")
	fmt.Println(snap)

	if runErr != nil {
		return runErr
	}
	if snap.Sent == 0 && snap.Requested > 0 {
		return fmt.Errorf("no frame was sent")
	}
	return nil
}

// newTransmitter wires the frame options and the verbose dump observer.
func newTransmitter(cfg *config.Config, w transmit.LinkWriter) *transmit.Transmitter {
	opts := []transmit.Option{
		transmit.WithFrameOptions(frame.Options{ZeroChecksumAsOnes: cfg.Payload.RFC768ZeroChecksum}),
		transmit.WithFailureLogLimit(cfg.Send.FailureLogLimit, time.Second),
	}
	if cfg.Verbose {
		opts = append(opts, transmit.WithObserver(dump.NewLogger(log.GetLogger(), cfg.Payload.Probe)))
	}
	return transmit.New(w, opts...)
}

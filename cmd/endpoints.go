package cmd

import (
	"context"
	"fmt"

	"firestige.xyz/pulse/internal/config"
	"firestige.xyz/pulse/internal/core"
	"firestige.xyz/pulse/internal/log"
	"firestige.xyz/pulse/internal/resolve"
)

// pcapIfIndex stands in for the interface index when frames only go to a
// capture file.
const pcapIfIndex = 1

// route is everything the transmitter needs besides the payload.
type route struct {
	iface   string
	ifIndex int
	src     core.Endpoint
	dst     core.Endpoint
}

// lookupInterface is swapped out by tests.
var lookupInterface = resolve.Interface

// resolveRoute fills in the source from the interface when not configured
// and resolves the destination host.
func resolveRoute(ctx context.Context, cfg *config.Config) (route, error) {
	r := route{
		iface: cfg.Interface,
		src:   core.Endpoint{MAC: cfg.Source.MAC, IP: cfg.Source.IP, Port: cfg.Source.Port},
		dst:   core.Endpoint{MAC: cfg.Destination.MAC, Port: cfg.Destination.Port},
	}

	if cfg.Interface != "" {
		ifc, err := lookupInterface(cfg.Interface)
		if err != nil {
			return route{}, err
		}
		r.ifIndex = ifc.Index
		if r.src.MAC.IsZero() {
			r.src.MAC = ifc.MAC
		}
		if !r.src.IP.IsValid() {
			r.src.IP = ifc.IPv4
		}
	} else {
		r.iface = "pcap"
		r.ifIndex = pcapIfIndex
	}
	if !r.src.IP.IsValid() {
		return route{}, fmt.Errorf("%w: no source IPv4 address; set source.ip", core.ErrConfigInvalid)
	}

	res := resolve.New(cfg.Resolver.Server, cfg.Resolver.Timeout)
	if cfg.Resolver.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Resolver.Timeout)
		defer cancel()
	}
	dst, err := resolve.Host(ctx, res, cfg.Destination.Host)
	if err != nil {
		return route{}, err
	}
	r.dst.IP = dst

	log.GetLogger().WithFields(map[string]interface{}{
		"interface": r.iface,
		"ifindex":   r.ifIndex,
	}).Infof("route %s -> %s", r.src, r.dst)
	return r, nil
}

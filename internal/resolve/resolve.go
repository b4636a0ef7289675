// Package resolve turns configured names into what the emitter needs: an
// IPv4 destination address and the index, hardware address and IPv4 address
// of the sending interface. Link-layer resolution of the destination is left
// to the operator.
package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"firestige.xyz/pulse/internal/core"
)

// Resolver looks up the IPv4 address of a host name.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (netip.Addr, error)
	String() string
}

// New returns a resolver querying server (host:port) directly, or the
// system resolver when server is empty.
func New(server string, timeout time.Duration) Resolver {
	if server == "" {
		return &SystemResolver{resolver: &net.Resolver{PreferGo: true}}
	}
	return &DNSResolver{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		server: server,
	}
}

// Host resolves host to an IPv4 address. IPv4 literals are returned as is.
func Host(ctx context.Context, r Resolver, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return netip.Addr{}, fmt.Errorf("%w: %s is not an IPv4 address", core.ErrInvalidArgument, host)
		}
		return addr, nil
	}
	addr, err := r.LookupIPv4(ctx, host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolving %s via %s: %w", host, r, err)
	}
	return addr, nil
}

// SystemResolver uses the Go resolver with the host configuration.
type SystemResolver struct {
	resolver *net.Resolver
}

func (r *SystemResolver) LookupIPv4(ctx context.Context, host string) (netip.Addr, error) {
	addrs, err := r.resolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return netip.Addr{}, err
	}
	for _, a := range addrs {
		if a = a.Unmap(); a.Is4() {
			return a, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("no IPv4 address for %s", host)
}

func (r *SystemResolver) String() string {
	return "system resolver"
}

// DNSResolver sends A queries to one server.
type DNSResolver struct {
	client *dns.Client
	server string
}

func (r *DNSResolver) LookupIPv4(ctx context.Context, host string) (netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return netip.Addr{}, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("query type A: %s", dns.RcodeToString[resp.Rcode])
	}
	for _, record := range resp.Answer {
		if a, ok := record.(*dns.A); ok {
			if addr, ok := netip.AddrFromSlice(a.A.To4()); ok {
				return addr, nil
			}
		}
	}
	return netip.Addr{}, fmt.Errorf("no A record for %s", host)
}

func (r *DNSResolver) String() string {
	return fmt.Sprintf("dns resolver(%s)", r.server)
}

// Iface is a local interface as seen by the transmitter.
type Iface struct {
	Name  string
	Index int
	MAC   core.MAC   // zero for interfaces without a hardware address
	IPv4  netip.Addr // first IPv4 address, zero if none
}

// Interface looks up a local interface by name.
func Interface(name string) (Iface, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return Iface{}, fmt.Errorf("interface %s not found: %w", name, err)
	}

	out := Iface{Name: ifi.Name, Index: ifi.Index}
	if len(ifi.HardwareAddr) > 0 {
		if out.MAC, err = core.MACFromSlice(ifi.HardwareAddr); err != nil {
			return Iface{}, fmt.Errorf("interface %s: %w", name, err)
		}
	}

	addrs, err := ifi.Addrs()
	if err != nil {
		return Iface{}, fmt.Errorf("interface %s addresses: %w", name, err)
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(ipNet.IP.To4()); ok {
			out.IPv4 = addr
			break
		}
	}
	return out, nil
}

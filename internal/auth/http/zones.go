package http

import (
	"fmt"
	"strings"

	sockaddr "github.com/hashicorp/go-sockaddr"
)

// ZoneResolver maps client IP addresses to named network zones. Zones feed
// the request context so network-gated policies can match on where a call
// came from.
type ZoneResolver struct {
	zones []zone
}

type zone struct {
	name  string
	cidrs []sockaddr.SockAddr
}

// NewZoneResolver parses a zone specification of the form
// "internal=10.0.0.0/8;192.168.0.0/16,dmz=172.16.0.0/12". Zones are matched
// in declaration order; the first zone containing the address wins.
func NewZoneResolver(spec string) (*ZoneResolver, error) {
	resolver := &ZoneResolver{}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, cidrList, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" || strings.TrimSpace(cidrList) == "" {
			return nil, fmt.Errorf("invalid network zone entry %q: want name=cidr[;cidr]", part)
		}

		z := zone{name: name}
		for _, cidr := range strings.Split(cidrList, ";") {
			cidr = strings.TrimSpace(cidr)
			if cidr == "" {
				continue
			}
			addr, err := sockaddr.NewSockAddr(cidr)
			if err != nil {
				return nil, fmt.Errorf("invalid cidr %q in network zone %q: %w", cidr, name, err)
			}
			z.cidrs = append(z.cidrs, addr)
		}
		if len(z.cidrs) == 0 {
			return nil, fmt.Errorf("network zone %q has no cidrs", name)
		}

		resolver.zones = append(resolver.zones, z)
	}

	return resolver, nil
}

// Resolve returns the zone name for ip, or empty when no zone contains it.
// Unparseable addresses resolve to no zone rather than failing the request.
func (r *ZoneResolver) Resolve(ip string) string {
	if ip == "" {
		return ""
	}
	addr, err := sockaddr.NewSockAddr(ip)
	if err != nil {
		return ""
	}

	for _, z := range r.zones {
		for _, cidr := range z.cidrs {
			if cidr.Contains(addr) {
				return z.name
			}
		}
	}
	return ""
}

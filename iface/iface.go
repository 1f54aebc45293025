// Package iface discovers the local network interface used by both
// daemons: its name, index, MAC address, and primary IPv4 address (spec
// §3, "Interface descriptor"). This is out of the spec's core (§1,
// "interface enumeration" is an external collaborator), but a concrete
// implementation is still needed to drive the rest of the system, so it
// is grounded on rophy-kubevirt-imds's netlink-based link lookups rather
// than rolled by hand against the stdlib net package.
package iface

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// Descriptor is the immutable interface information gathered once at
// startup (spec §3).
type Descriptor struct {
	Name  string
	Index int
	MAC   net.HardwareAddr
	IPv4  net.IP
}

// Discover resolves name (or, if name is empty, the first non-loopback
// interface with an IPv4 address and a MAC) into a Descriptor.
//
// Interface enumeration failing at startup is fatal (spec §7); callers are
// expected to log and exit on a non-nil error.
func Discover(name string) (*Descriptor, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("iface: list links: %w", err)
	}

	for _, link := range links {
		attrs := link.Attrs()
		if name != "" && attrs.Name != name {
			continue
		}
		if name == "" && (attrs.Flags&net.FlagLoopback != 0 || len(attrs.HardwareAddr) != 6) {
			continue
		}

		ip, err := primaryIPv4(link)
		if err != nil {
			continue
		}
		if ip == nil {
			continue
		}

		return &Descriptor{
			Name:  attrs.Name,
			Index: attrs.Index,
			MAC:   attrs.HardwareAddr,
			IPv4:  ip,
		}, nil
	}

	if name != "" {
		return nil, fmt.Errorf("iface: interface %q not found or has no usable IPv4 address", name)
	}
	return nil, fmt.Errorf("iface: no usable interface found")
}

func primaryIPv4(link netlink.Link) (net.IP, error) {
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("iface: list addresses: %w", err)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, nil
}

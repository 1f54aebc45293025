package tour

import "net"

// SequenceEntry pairs a hostname with its resolved IPv4 address
// (spec §3 "Tour state": "sequence (array of IPv4+hostname pairs)").
type SequenceEntry struct {
	Hostname string
	IP       net.IP
}

// BuildSequence inserts self as element 0 ahead of hosts, then
// collapses immediately-repeated consecutive hostnames (spec §6). It
// returns ErrTooFewHops if what remains cannot form a tour of more than
// one host.
func BuildSequence(self string, hosts []string) ([]string, error) {
	full := make([]string, 0, len(hosts)+1)
	full = append(full, self)
	full = append(full, hosts...)

	collapsed := collapseConsecutive(full)
	if len(collapsed) < 2 {
		return nil, ErrTooFewHops
	}
	return collapsed, nil
}

func collapseConsecutive(in []string) []string {
	out := make([]string, 0, len(in))
	for _, h := range in {
		if len(out) > 0 && out[len(out)-1] == h {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Resolve looks up the IPv4 address for every hostname in names.
// Hostname resolution is an external collaborator per spec §1/§6; this
// uses the platform name service through the standard library rather
// than a tour-specific protocol component.
func Resolve(names []string) ([]SequenceEntry, error) {
	out := make([]SequenceEntry, len(names))
	for i, name := range names {
		addrs, err := net.LookupHost(name)
		if err != nil {
			return nil, err
		}
		var ip net.IP
		for _, a := range addrs {
			if v4 := net.ParseIP(a).To4(); v4 != nil {
				ip = v4
				break
			}
		}
		if ip == nil {
			return nil, &net.AddrError{Err: "no IPv4 address", Addr: name}
		}
		out[i] = SequenceEntry{Hostname: name, IP: ip}
	}
	return out, nil
}

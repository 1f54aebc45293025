package tour

import (
	"errors"
	"net"

	"github.com/arptour/arptour/frame"
)

// ErrShortPayload is returned when a packet's payload is too small to
// hold SeqLength IPv4 addresses.
var ErrShortPayload = errors.New("tour: payload shorter than seqLength addresses")

// ErrTooFewHops is returned for a sequence that, once collapsed, cannot
// form a tour (spec §6, §8 boundary S8).
var ErrTooFewHops = errors.New("tour: sequence collapses to a single host")

// Packet is a fully decoded tour packet: the outer IPv4 header, the
// tour header, and the ordered IPv4 sequence.
type Packet struct {
	IP       frame.IPv4Header
	Header   Header
	Sequence []net.IP
}

// MarshalBinary encodes p as a complete raw IPv4 datagram (header +
// tour header + sequence), with the IPv4 header's TotalLen and checksum
// computed automatically.
func (p *Packet) MarshalBinary() ([]byte, error) {
	hb, err := p.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}

	seq := make([]byte, 0, 4*len(p.Sequence))
	for _, ip := range p.Sequence {
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, errors.New("tour: sequence contains a non-IPv4 address")
		}
		seq = append(seq, ip4...)
	}

	ip := p.IP
	ip.Protocol = Protocol
	ip.ID = ID
	ip.TotalLen = uint16(frame.IPv4HeaderLen + len(hb) + len(seq))

	ipb, err := ip.MarshalBinary()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(ipb)+len(hb)+len(seq))
	out = append(out, ipb...)
	out = append(out, hb...)
	out = append(out, seq...)
	return out, nil
}

// UnmarshalBinary decodes a raw IPv4 datagram captured off the wire
// into p. It does not validate the ID field; callers check that
// themselves against ID before trusting the packet (spec §7: a
// mismatched identification field is dropped silently, not treated as
// an error).
func (p *Packet) UnmarshalBinary(b []byte) error {
	if err := p.IP.UnmarshalBinary(b); err != nil {
		return err
	}
	if len(b) < frame.IPv4HeaderLen+HeaderLen {
		return ErrShortHeader
	}
	rest := b[frame.IPv4HeaderLen:]

	if err := p.Header.UnmarshalBinary(rest); err != nil {
		return err
	}
	rest = rest[HeaderLen:]

	n := int(p.Header.SeqLength)
	if len(rest) < 4*n {
		return ErrShortPayload
	}

	seq := make([]net.IP, n)
	for i := 0; i < n; i++ {
		seq[i] = net.IP(append([]byte(nil), rest[4*i:4*i+4]...))
	}
	p.Sequence = seq
	return nil
}

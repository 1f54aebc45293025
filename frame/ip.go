package frame

import (
	"encoding/binary"
	"errors"
	"net"
)

// IPv4HeaderLen is the length of a header-only (no options) IPv4 header.
const IPv4HeaderLen = 20

// ErrShortIPv4Header is returned when a buffer is too small to hold an IPv4
// header.
var ErrShortIPv4Header = errors.New("frame: ipv4 header too short")

// IPv4Header is a minimal, option-free IPv4 header covering exactly the
// fields the ARP/Tour overlay needs: identification for the custom magic
// check, protocol for the tour/ICMP demux, TTL, and the address pair.
type IPv4Header struct {
	TOS      uint8
	TotalLen uint16
	ID       uint16
	TTL      uint8
	Protocol uint8
	Src      net.IP
	Dst      net.IP
}

// MarshalBinary encodes h, computing and filling in the header checksum
// over the 20-byte header (RFC 1071).
func (h *IPv4Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, IPv4HeaderLen)
	b[0] = 0x45 // version 4, IHL 5 (no options)
	b[1] = h.TOS
	binary.BigEndian.PutUint16(b[2:4], h.TotalLen)
	binary.BigEndian.PutUint16(b[4:6], h.ID)
	binary.BigEndian.PutUint16(b[6:8], 0) // flags/fragment offset, unused
	b[8] = h.TTL
	b[9] = h.Protocol
	binary.BigEndian.PutUint16(b[10:12], 0) // checksum, filled below
	copy(b[12:16], to4(h.Src))
	copy(b[16:20], to4(h.Dst))
	binary.BigEndian.PutUint16(b[10:12], CheckSum(b))
	return b, nil
}

// UnmarshalBinary decodes h from b, which must be at least IPv4HeaderLen
// bytes. The checksum is not verified; a corrupt header is caught downstream
// by the magic-identification check (spec §7).
func (h *IPv4Header) UnmarshalBinary(b []byte) error {
	if len(b) < IPv4HeaderLen {
		return ErrShortIPv4Header
	}
	h.TOS = b[1]
	h.TotalLen = binary.BigEndian.Uint16(b[2:4])
	h.ID = binary.BigEndian.Uint16(b[4:6])
	h.TTL = b[8]
	h.Protocol = b[9]
	h.Src = net.IP(append([]byte(nil), b[12:16]...))
	h.Dst = net.IP(append([]byte(nil), b[16:20]...))
	return nil
}

// Package tour implements the source-routed multi-hop tour protocol:
// a custom IPv4-based packet carrying a visit sequence, forwarded hop by
// hop, with preceding-node detection driving on-demand ping checks.
// Grounded on _examples/mdlayher-aoe/header.go's fixed-header codec
// style, generalized from AoE's single flat header to this protocol's
// IPv4-header-plus-tour-header-plus-payload layering.
package tour

import (
	"encoding/binary"
	"errors"
	"net"
)

// Protocol is the IPv4 protocol number this tour packet is carried
// under (spec §3, §6).
const Protocol = 222

// ID is the magic IPv4 identification field stamped on every tour
// packet, used to distinguish it from unrelated traffic arriving on the
// same raw socket (spec §3, §6).
const ID = 14508

// HeaderLen is the fixed size of the tour header that follows the IPv4
// header: grp[4], port u16, seqLength u8, index u8.
const HeaderLen = 4 + 2 + 1 + 1

// ErrShortHeader is returned when a buffer is too small to hold a tour
// header.
var ErrShortHeader = errors.New("tour: header too short")

// Header is the fixed-size tour header (spec §3, §6).
type Header struct {
	Group     net.IP // 4-byte multicast rendezvous address
	Port      uint16
	SeqLength uint8
	Index     uint8
}

// MarshalBinary encodes h into its 8-byte wire form.
func (h Header) MarshalBinary() ([]byte, error) {
	grp := h.Group.To4()
	if grp == nil {
		return nil, errors.New("tour: Group is not an IPv4 address")
	}

	b := make([]byte, HeaderLen)
	copy(b[0:4], grp)
	binary.BigEndian.PutUint16(b[4:6], h.Port)
	b[6] = h.SeqLength
	b[7] = h.Index
	return b, nil
}

// UnmarshalBinary decodes h from b.
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderLen {
		return ErrShortHeader
	}
	h.Group = net.IP(append([]byte(nil), b[0:4]...))
	h.Port = binary.BigEndian.Uint16(b[4:6])
	h.SeqLength = b[6]
	h.Index = b[7]
	return nil
}

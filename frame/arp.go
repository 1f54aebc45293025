package frame

import (
	"encoding/binary"
	"errors"
	"net"
)

// ARPHeaderLen and ARPPayloadLen are the wire sizes of the two sections
// that follow the Ethernet II header in a custom ARP frame (spec §6).
const (
	ARPHeaderLen  = 10
	ARPPayloadLen = 20
	ARPFrameLen   = ARPHeaderLen + ARPPayloadLen // 30; plus a 14-byte Ethernet header = 44
)

// ARP opcodes (spec §4.1, §6).
const (
	OpRequest uint16 = 1
	OpReply   uint16 = 2
)

// ErrShortARPHeader and ErrShortARPPayload are returned when a buffer is too
// small to hold the respective section.
var (
	ErrShortARPHeader  = errors.New("frame: arp header too short")
	ErrShortARPPayload = errors.New("frame: arp payload too short")
)

// ARPHeader is the custom ARP header carried immediately after the
// Ethernet II header. All fields are big-endian on the wire.
type ARPHeader struct {
	ID       uint16 // ar_id, must equal the protocol's magic identification code
	Hardware uint16 // ar_hrd, 0x0001 for Ethernet
	Protocol uint16 // ar_pro, 0x0800 for IPv4
	HWLen    uint8  // ar_hln, 6
	ProtoLen uint8  // ar_pln, 4
	Op       uint16 // ar_op, OpRequest or OpReply
}

// MarshalBinary encodes h into its 10-byte wire form.
func (h *ARPHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, ARPHeaderLen)
	binary.BigEndian.PutUint16(b[0:2], h.ID)
	binary.BigEndian.PutUint16(b[2:4], h.Hardware)
	binary.BigEndian.PutUint16(b[4:6], h.Protocol)
	b[6] = h.HWLen
	b[7] = h.ProtoLen
	binary.BigEndian.PutUint16(b[8:10], h.Op)
	return b, nil
}

// UnmarshalBinary decodes h from b, which must be at least ARPHeaderLen bytes.
func (h *ARPHeader) UnmarshalBinary(b []byte) error {
	if len(b) < ARPHeaderLen {
		return ErrShortARPHeader
	}
	h.ID = binary.BigEndian.Uint16(b[0:2])
	h.Hardware = binary.BigEndian.Uint16(b[2:4])
	h.Protocol = binary.BigEndian.Uint16(b[4:6])
	h.HWLen = b[6]
	h.ProtoLen = b[7]
	h.Op = binary.BigEndian.Uint16(b[8:10])
	return nil
}

// ARPPayload is the sender/target address quadruple that follows the
// ARPHeader (spec §6).
type ARPPayload struct {
	SenderMAC net.HardwareAddr
	SenderIP  net.IP
	TargetMAC net.HardwareAddr
	TargetIP  net.IP
}

// MarshalBinary encodes p into its 20-byte wire form. SenderMAC/TargetMAC
// must be 6 bytes and SenderIP/TargetIP must be 4 bytes (a nil MAC is
// treated as the zero address, as used for an incomplete ARP request).
func (p *ARPPayload) MarshalBinary() ([]byte, error) {
	b := make([]byte, ARPPayloadLen)
	copy(b[0:6], p.SenderMAC)
	copy(b[6:10], to4(p.SenderIP))
	copy(b[10:16], p.TargetMAC)
	copy(b[16:20], to4(p.TargetIP))
	return b, nil
}

// UnmarshalBinary decodes p from b, which must be at least ARPPayloadLen
// bytes.
func (p *ARPPayload) UnmarshalBinary(b []byte) error {
	if len(b) < ARPPayloadLen {
		return ErrShortARPPayload
	}
	p.SenderMAC = net.HardwareAddr(append([]byte(nil), b[0:6]...))
	p.SenderIP = net.IP(append([]byte(nil), b[6:10]...))
	p.TargetMAC = net.HardwareAddr(append([]byte(nil), b[10:16]...))
	p.TargetIP = net.IP(append([]byte(nil), b[16:20]...))
	return nil
}

func to4(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return make(net.IP, 4)
}

package frame

import (
	"encoding/binary"
	"errors"
	"net"
)

// HWAddrRecordLen is the fixed size of the hardware address record
// exchanged between the ARP engine and an AREQ client (spec §6): a
// 4-byte interface index, a 2-byte hardware type, a 1-byte address
// length, and an 8-byte address buffer. Unlike the link-layer wire
// formats above, this record never leaves the host (it crosses a local
// stream socket between two processes of the same build), so it uses the
// platform's native little-endian layout, matching the struct hwaddr
// produced by the reference implementation.
const HWAddrRecordLen = 4 + 2 + 1 + 8

// ErrShortHWAddrRecord is returned when a buffer is too small to hold a
// hardware address record.
var ErrShortHWAddrRecord = errors.New("frame: hwaddr record too short")

// HWAddrRecord is a hardware-address discovery result, as returned by the
// ARP engine to an AREQ client and used to describe the local interface
// (spec §3, "Hardware address record").
type HWAddrRecord struct {
	IfIndex int32
	HWType  uint16
	Len     uint8
	Addr    [8]byte
}

// NewHWAddrRecord builds a record from a resolved MAC address.
func NewHWAddrRecord(ifIndex int, hwType uint16, mac net.HardwareAddr) HWAddrRecord {
	var r HWAddrRecord
	r.IfIndex = int32(ifIndex)
	r.HWType = hwType
	r.Len = uint8(len(mac))
	copy(r.Addr[:], mac)
	return r
}

// MAC returns the address bytes trimmed to r.Len.
func (r HWAddrRecord) MAC() net.HardwareAddr {
	n := int(r.Len)
	if n > len(r.Addr) {
		n = len(r.Addr)
	}
	return net.HardwareAddr(append([]byte(nil), r.Addr[:n]...))
}

// MarshalBinary encodes r into its 15-byte wire form.
func (r HWAddrRecord) MarshalBinary() ([]byte, error) {
	b := make([]byte, HWAddrRecordLen)
	binary.LittleEndian.PutUint32(b[0:4], uint32(r.IfIndex))
	binary.LittleEndian.PutUint16(b[4:6], r.HWType)
	b[6] = r.Len
	copy(b[7:15], r.Addr[:])
	return b, nil
}

// UnmarshalBinary decodes r from b, which must be at least HWAddrRecordLen
// bytes; any bytes past that are ignored.
func (r *HWAddrRecord) UnmarshalBinary(b []byte) error {
	if len(b) < HWAddrRecordLen {
		return ErrShortHWAddrRecord
	}
	r.IfIndex = int32(binary.LittleEndian.Uint32(b[0:4]))
	r.HWType = binary.LittleEndian.Uint16(b[4:6])
	r.Len = b[6]
	copy(r.Addr[:], b[7:15])
	return nil
}

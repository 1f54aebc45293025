package frame

import (
	"encoding/binary"
	"errors"
)

// ICMP types used by the ping worker (spec §4.5).
const (
	ICMPTypeEchoRequest uint8 = 8
	ICMPTypeEchoReply   uint8 = 0
)

// ICMPEchoHeaderLen is the size of the type/code/checksum/id/seq fields,
// excluding the data payload.
const ICMPEchoHeaderLen = 8

// ErrShortICMPEcho is returned when a buffer is too small to hold an ICMP
// echo header.
var ErrShortICMPEcho = errors.New("frame: icmp echo header too short")

// ICMPEcho is an ICMP Echo Request/Reply message (type 8 or type 0).
type ICMPEcho struct {
	Type uint8
	Code uint8
	ID   uint16
	Seq  uint16
	Data []byte
}

// MarshalBinary encodes e, computing the checksum over the header and data
// per RFC 1071.
func (e *ICMPEcho) MarshalBinary() ([]byte, error) {
	b := make([]byte, ICMPEchoHeaderLen+len(e.Data))
	b[0] = e.Type
	b[1] = e.Code
	binary.BigEndian.PutUint16(b[2:4], 0) // checksum, filled below
	binary.BigEndian.PutUint16(b[4:6], e.ID)
	binary.BigEndian.PutUint16(b[6:8], e.Seq)
	copy(b[8:], e.Data)
	binary.BigEndian.PutUint16(b[2:4], CheckSum(b))
	return b, nil
}

// UnmarshalBinary decodes e from b, which must be at least
// ICMPEchoHeaderLen bytes. The checksum is not verified; the ping worker
// instead validates by matching id/seq against its own outstanding sends.
func (e *ICMPEcho) UnmarshalBinary(b []byte) error {
	if len(b) < ICMPEchoHeaderLen {
		return ErrShortICMPEcho
	}
	e.Type = b[0]
	e.Code = b[1]
	e.ID = binary.BigEndian.Uint16(b[4:6])
	e.Seq = binary.BigEndian.Uint16(b[6:8])
	e.Data = append([]byte(nil), b[8:]...)
	return nil
}

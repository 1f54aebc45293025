package arp

import (
	"net"

	"github.com/arptour/arptour/frame"
	"github.com/mdlayher/ethernet"
)

// EtherType is the custom Ethernet II EtherType used to distinguish these
// frames from standard ARP (spec §4.1).
const EtherType = ethernet.EtherType(0xE0ED)

// message is a decoded custom ARP frame paired with the link-layer address
// it arrived from.
type message struct {
	Header  frame.ARPHeader
	Payload frame.ARPPayload
	Src     net.HardwareAddr
}

// decodeFrame parses an Ethernet II frame captured off the wire into a
// message, returning ok=false for anything that isn't one of these
// frames (wrong EtherType, wrong ar_id, or a short payload).
func decodeFrame(b []byte) (msg message, ok bool) {
	var f ethernet.Frame
	if err := (&f).UnmarshalBinary(b); err != nil {
		return message{}, false
	}
	if f.EtherType != EtherType {
		return message{}, false
	}

	var h frame.ARPHeader
	if err := h.UnmarshalBinary(f.Payload); err != nil {
		return message{}, false
	}
	if h.ID != ARID {
		return message{}, false
	}

	var p frame.ARPPayload
	if err := p.UnmarshalBinary(f.Payload[frame.ARPHeaderLen:]); err != nil {
		return message{}, false
	}

	return message{Header: h, Payload: p, Src: f.Source}, true
}

// encodeFrame builds the Ethernet II frame for a REQUEST or REPLY.
func encodeFrame(op uint16, srcMAC net.HardwareAddr, dstMAC net.HardwareAddr, p frame.ARPPayload) ([]byte, error) {
	h := frame.ARPHeader{
		ID:       ARID,
		Hardware: 1,
		Protocol: 0x0800,
		HWLen:    6,
		ProtoLen: 4,
		Op:       op,
	}

	hb, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	pb, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}

	f := &ethernet.Frame{
		Destination: dstMAC,
		Source:      srcMAC,
		EtherType:   EtherType,
		Payload:     append(hb, pb...),
	}
	b, err := f.MarshalBinary()
	if err != nil {
		return nil, err
	}
	// ethernet.Frame zero-pads short payloads to 46 bytes; trim that back
	// so the frame is exactly 14 + ARPFrameLen = 44 bytes.
	return b[:14+frame.ARPFrameLen], nil
}

package arp

import (
	"bytes"
	"net"
	"testing"

	"github.com/arptour/arptour/frame"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	src := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dst := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	p := frame.ARPPayload{
		SenderMAC: src,
		SenderIP:  net.IPv4(192, 168, 1, 10).To4(),
		TargetMAC: dst,
		TargetIP:  net.IPv4(192, 168, 1, 1).To4(),
	}

	b, err := encodeFrame(frame.OpRequest, src, dst, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 14 (ethernet) + 10 (arp header) + 20 (arp payload).
	if len(b) != 44 {
		t.Fatalf("unexpected frame length: %d", len(b))
	}

	msg, ok := decodeFrame(b)
	if !ok {
		t.Fatalf("decodeFrame rejected a frame it encoded")
	}
	if msg.Header.ID != ARID {
		t.Fatalf("ar_id = %d, want %d", msg.Header.ID, ARID)
	}
	if msg.Header.Op != frame.OpRequest {
		t.Fatalf("op = %d, want OpRequest", msg.Header.Op)
	}
	if !bytes.Equal(msg.Src, src) {
		t.Fatalf("Src = %v, want %v", msg.Src, src)
	}
	if !msg.Payload.SenderIP.Equal(p.SenderIP) || !msg.Payload.TargetIP.Equal(p.TargetIP) {
		t.Fatalf("unexpected payload: %+v", msg.Payload)
	}
}

func TestDecodeFrameRejectsWrongARID(t *testing.T) {
	src := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dst := net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	p := frame.ARPPayload{
		SenderMAC: src,
		SenderIP:  net.IPv4(192, 168, 1, 10).To4(),
		TargetMAC: dst,
		TargetIP:  net.IPv4(192, 168, 1, 1).To4(),
	}

	b, err := encodeFrame(frame.OpRequest, src, dst, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Corrupt the ar_id field (first two bytes of the ARP header, which
	// starts right after the 14-byte Ethernet header).
	b[14] = 0xff
	b[15] = 0xff

	if _, ok := decodeFrame(b); ok {
		t.Fatalf("decodeFrame accepted a frame with a mismatched ar_id")
	}
}

func TestDecodeFrameRejectsWrongEtherType(t *testing.T) {
	if _, ok := decodeFrame(make([]byte, 60)); ok {
		t.Fatalf("decodeFrame accepted a frame with EtherType 0")
	}
}

package ping

import (
	"net"
	"testing"

	"github.com/arptour/arptour/frame"
	"github.com/mdlayher/ethernet"
)

func buildEchoReplyFrame(t *testing.T, id, seq uint16, ttl uint8, data []byte) []byte {
	t.Helper()

	icmp := frame.ICMPEcho{Type: frame.ICMPTypeEchoReply, ID: id, Seq: seq, Data: data}
	icmpBytes, err := icmp.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal icmp: %v", err)
	}

	ip := frame.IPv4Header{
		TTL:      ttl,
		Protocol: icmpProtocol,
		Src:      net.IPv4(10, 0, 0, 2).To4(),
		Dst:      net.IPv4(10, 0, 0, 1).To4(),
		TotalLen: uint16(frame.IPv4HeaderLen + len(icmpBytes)),
	}
	ipBytes, err := ip.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal ip: %v", err)
	}

	f := &ethernet.Frame{
		Destination: net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Source:      net.HardwareAddr{0x00, 0xaa, 0xbb, 0xcc, 0xdd, 0xee},
		EtherType:   ipv4EtherType,
		Payload:     append(ipBytes, icmpBytes...),
	}
	b, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return b
}

func TestDecodeEchoReply(t *testing.T) {
	data := []byte("123456789")
	b := buildEchoReplyFrame(t, 7, 3, 64, data)

	got, ok := decodeEchoReply(b)
	if !ok {
		t.Fatalf("decodeEchoReply() ok = false, want true")
	}
	if got.ID != 7 || got.Seq != 3 {
		t.Fatalf("decodeEchoReply() id/seq = %d/%d, want 7/3", got.ID, got.Seq)
	}
	if got.TTL != 64 {
		t.Fatalf("decodeEchoReply() ttl = %d, want 64", got.TTL)
	}
	if got.Bytes != frame.ICMPEchoHeaderLen+len(data) {
		t.Fatalf("decodeEchoReply() bytes = %d, want %d", got.Bytes, frame.ICMPEchoHeaderLen+len(data))
	}
}

func TestDecodeEchoReplyRejectsEchoRequest(t *testing.T) {
	icmp := frame.ICMPEcho{Type: frame.ICMPTypeEchoRequest, ID: 1, Seq: 1}
	icmpBytes, _ := icmp.MarshalBinary()
	ip := frame.IPv4Header{
		Protocol: icmpProtocol,
		Src:      net.IPv4(10, 0, 0, 2).To4(),
		Dst:      net.IPv4(10, 0, 0, 1).To4(),
		TotalLen: uint16(frame.IPv4HeaderLen + len(icmpBytes)),
	}
	ipBytes, _ := ip.MarshalBinary()
	f := &ethernet.Frame{
		Destination: net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Source:      net.HardwareAddr{0x00, 0xaa, 0xbb, 0xcc, 0xdd, 0xee},
		EtherType:   ipv4EtherType,
		Payload:     append(ipBytes, icmpBytes...),
	}
	b, _ := f.MarshalBinary()

	if _, ok := decodeEchoReply(b); ok {
		t.Fatalf("decodeEchoReply() ok = true for an echo request, want false")
	}
}

func TestDecodeEchoReplyRejectsOtherEtherType(t *testing.T) {
	f := &ethernet.Frame{
		Destination: net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		Source:      net.HardwareAddr{0x00, 0xaa, 0xbb, 0xcc, 0xdd, 0xee},
		EtherType:   ethernet.EtherType(0x0806),
		Payload:     []byte{0, 1, 2, 3},
	}
	b, _ := f.MarshalBinary()

	if _, ok := decodeEchoReply(b); ok {
		t.Fatalf("decodeEchoReply() ok = true for a non-IPv4 frame, want false")
	}
}

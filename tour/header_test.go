package tour

import (
	"net"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Group:     net.IPv4(238, 92, 83, 18).To4(),
		Port:      7518,
		SeqLength: 4,
		Index:     2,
	}

	b, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b) != HeaderLen {
		t.Fatalf("unexpected length: %d", len(b))
	}

	var got Header
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Group.Equal(h.Group) || got.Port != h.Port ||
		got.SeqLength != h.SeqLength || got.Index != h.Index {
		t.Fatalf("unexpected header:\n- want: %+v\n-  got: %+v", h, got)
	}
}

func TestHeaderUnmarshalShort(t *testing.T) {
	var h Header
	if err := h.UnmarshalBinary(make([]byte, HeaderLen-1)); err != ErrShortHeader {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultGroupAndPort(t *testing.T) {
	// Glossary magic values: multicast group 238.92.83.18, port 7518.
	want := net.IPv4(238, 92, 83, 18).To4()
	if !DefaultGroup.Equal(want) {
		t.Fatalf("DefaultGroup = %v, want %v", DefaultGroup, want)
	}
	if DefaultPort != 7518 {
		t.Fatalf("DefaultPort = %d, want 7518", DefaultPort)
	}
}

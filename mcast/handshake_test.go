package mcast

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestIdentifyMessage(t *testing.T) {
	got := identifyMessage("node-a")
	want := []byte("identify node-a")
	if !bytes.Equal(got, want) {
		t.Fatalf("identifyMessage() = %q, want %q", got, want)
	}
}

// TestHandshakeRespondsOnce joins two Handshakes on a loopback-reachable
// multicast group, has one send an identify, and checks the other
// answers exactly once (spec §4.6: "Every node receiving a message ...
// responds once").
func TestHandshakeRespondsOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("multicast join requires network privileges unavailable with -short")
	}

	group := net.IPv4(239, 1, 2, 3)
	const port = 27518
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	terminal, err := Join(group, port, log)
	if err != nil {
		t.Skipf("join multicast group: %v (requires multicast-capable loopback)", err)
	}
	defer terminal.Close()

	responder, err := Join(group, port, log)
	if err != nil {
		t.Skipf("join multicast group: %v (requires multicast-capable loopback)", err)
	}
	defer responder.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- responder.Run(ctx, "responder", false) }()

	if err := terminal.SendIdentify("terminal"); err != nil {
		t.Fatalf("SendIdentify() error = %v", err)
	}

	terminal.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 512)
	n, _, err := terminal.conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected a reply from responder, got error: %v", err)
	}
	if !bytes.Contains(buf[:n], []byte("responder")) {
		t.Fatalf("reply = %q, want it to contain %q", buf[:n], "responder")
	}

	cancel()
	<-done
}

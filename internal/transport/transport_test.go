package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func recvEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatalf("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for transport event")
		return nil
	}
}

func recvFrame(t *testing.T, inbox <-chan []byte) []byte {
	t.Helper()
	select {
	case data, ok := <-inbox:
		if !ok {
			t.Fatalf("inbox closed while waiting for frame")
		}
		return data
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for frame")
		return nil
	}
}

func TestPipeRoundTrip(t *testing.T) {
	h := NewPipeHost()
	ctx := context.Background()

	peer := h.Connect("p1")
	if ev := recvEvent(t, h.Events()); ev.(PeerConnected).PeerID != "p1" {
		t.Fatalf("want PeerConnected p1, got %+v", ev)
	}

	if err := peer.Send(ctx, []byte("ping")); err != nil {
		t.Fatalf("peer send: %v", err)
	}
	from := recvEvent(t, h.Events()).(FromPeer)
	if from.PeerID != "p1" || string(from.Data) != "ping" {
		t.Fatalf("got %+v", from)
	}

	if err := h.Send(ctx, "p1", []byte("pong")); err != nil {
		t.Fatalf("host send: %v", err)
	}
	if got := recvFrame(t, peer.Inbox()); string(got) != "pong" {
		t.Fatalf("got %q", got)
	}

	peer.Close()
	if ev := recvEvent(t, h.Events()); ev.(PeerLeft).PeerID != "p1" {
		t.Fatalf("want PeerLeft p1, got %+v", ev)
	}
	if err := h.Send(ctx, "p1", []byte("x")); !errors.Is(err, ErrPeerGone) {
		t.Fatalf("want ErrPeerGone, got %v", err)
	}
}

func TestWSHostAcceptsAndEchoes(t *testing.T) {
	log := zap.NewNop()
	h, err := ListenWS(log, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	client, err := dialWS(ctx, log, "ws://"+h.Addr()+"/ws")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	connected := recvEvent(t, h.Events()).(PeerConnected)
	if connected.PeerID == "" {
		t.Fatalf("peer id not assigned")
	}

	if err := client.Send(ctx, []byte(`{"type":"hello"}`)); err != nil {
		t.Fatalf("client send: %v", err)
	}
	from := recvEvent(t, h.Events()).(FromPeer)
	if from.PeerID != connected.PeerID {
		t.Fatalf("frame attributed to %q, want %q", from.PeerID, connected.PeerID)
	}

	if err := h.Send(ctx, connected.PeerID, []byte(`{"type":"welcome"}`)); err != nil {
		t.Fatalf("host send: %v", err)
	}
	if got := recvFrame(t, client.Inbox()); string(got) != `{"type":"welcome"}` {
		t.Fatalf("got %q", got)
	}
}

func TestWSHostReportsDeparture(t *testing.T) {
	log := zap.NewNop()
	h, err := ListenWS(log, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	client, err := dialWS(ctx, log, "ws://"+h.Addr()+"/ws")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	connected := recvEvent(t, h.Events()).(PeerConnected)
	client.Close()

	left := recvEvent(t, h.Events()).(PeerLeft)
	if left.PeerID != connected.PeerID {
		t.Fatalf("left %q, want %q", left.PeerID, connected.PeerID)
	}

	if err := h.Send(ctx, connected.PeerID, []byte("x")); !errors.Is(err, ErrPeerGone) {
		t.Fatalf("want ErrPeerGone after departure, got %v", err)
	}
}

func TestWSHostCloseDisconnectsPeers(t *testing.T) {
	log := zap.NewNop()
	h, err := ListenWS(log, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	client, err := dialWS(context.Background(), log, "ws://"+h.Addr()+"/ws")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	recvEvent(t, h.Events())

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	select {
	case _, ok := <-client.Inbox():
		if ok {
			t.Fatalf("expected the connection to close, not deliver data")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("client connection survived host shutdown")
	}
}

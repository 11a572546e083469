package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// RelayHost hosts through a relay allocation: one websocket to the relay
// carries envelope-framed traffic for every joined peer.
type RelayHost struct {
	log    *zap.Logger
	conn   *websocket.Conn
	events chan Event
	cancel context.CancelFunc
}

// HostRelay connects the host leg of an allocation. hostURL comes from the
// relay service's AllocateSession response.
func HostRelay(ctx context.Context, log *zap.Logger, hostURL string) (*RelayHost, error) {
	conn, _, err := websocket.Dial(ctx, hostURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay host leg %s: %w", hostURL, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	h := &RelayHost{
		log:    log,
		conn:   conn,
		events: make(chan Event, 64),
		cancel: cancel,
	}
	go h.readLoop(readCtx)
	return h, nil
}

func (h *RelayHost) readLoop(ctx context.Context) {
	defer close(h.events)
	for {
		_, data, err := h.conn.Read(ctx)
		if err != nil {
			return
		}
		var env RelayEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.log.Warn("bad relay envelope", zap.Error(err))
			continue
		}
		var ev Event
		switch env.Event {
		case RelayPeerJoined:
			ev = PeerConnected{PeerID: env.Peer}
		case RelayPeerLeft:
			ev = PeerLeft{PeerID: env.Peer}
		default:
			ev = FromPeer{PeerID: env.Peer, Data: env.Data}
		}
		select {
		case h.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (h *RelayHost) Events() <-chan Event { return h.events }

func (h *RelayHost) Send(ctx context.Context, peerID string, data []byte) error {
	env, err := json.Marshal(RelayEnvelope{Peer: peerID, Data: data})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return h.conn.Write(writeCtx, websocket.MessageText, env)
}

func (h *RelayHost) Close() error {
	h.cancel()
	return h.conn.Close(websocket.StatusNormalClosure, "host stopping")
}

// DialRelay connects the peer leg: the relay resolved a join code into
// peerURL, and frames travel unwrapped.
func DialRelay(ctx context.Context, log *zap.Logger, peerURL string) (*WSClient, error) {
	return dialWS(ctx, log, peerURL)
}

package session

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/playtable/tabletopnet/internal/host"
	"github.com/playtable/tabletopnet/internal/player"
	"github.com/playtable/tabletopnet/internal/transport"
	"github.com/playtable/tabletopnet/internal/types"
)

// startHosting spins up the authoritative loop, attaches the local player
// directly to it, and pumps remote peers between the transport and the
// loop.
func (s *Session) startHosting(ctx context.Context, t transport.HostTransport) {
	localID := newPeerID()
	h := host.New(ctx, s.log.Named("host"), s.catalog.Current(), localID, time.Now().UnixNano())

	send := func(msg types.ClientMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h.Inbox() <- host.FromPeer{PeerID: localID, Msg: msg}
		return nil
	}
	agent := player.NewAgent(s.log.Named("player"), s.msgr, s.catalog, send, true, s.name)

	s.mu.Lock()
	s.hostLoop = h
	s.agent = agent
	s.mu.Unlock()

	// The host's own player skips the network entirely.
	outbox := make(chan types.ServerMessage, 16)
	h.Inbox() <- host.Join{PeerID: localID, Outbox: outbox}
	go func() {
		for msg := range outbox {
			agent.HandleServer(msg)
		}
	}()

	go s.pumpPeers(ctx, t, h)
	agent.Start()
}

// pumpPeers bridges transport peer events into the host loop and fans
// host output back out to each peer's connection.
func (s *Session) pumpPeers(ctx context.Context, t transport.HostTransport, h *host.Host) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-t.Events():
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case transport.PeerConnected:
				outbox := make(chan types.ServerMessage, 16)
				peerID := ev.PeerID
				go func() {
					for msg := range outbox {
						data, err := json.Marshal(msg)
						if err != nil {
							continue
						}
						if err := t.Send(ctx, peerID, data); err != nil {
							s.log.Debug("peer send failed", zap.String("peer", peerID), zap.Error(err))
						}
					}
				}()
				h.Inbox() <- host.Join{PeerID: peerID, Outbox: outbox}

			case transport.PeerLeft:
				h.Inbox() <- host.Leave{PeerID: ev.PeerID}

			case transport.FromPeer:
				var msg types.ClientMessage
				if err := json.Unmarshal(ev.Data, &msg); err != nil {
					s.log.Warn("bad request frame", zap.String("peer", ev.PeerID), zap.Error(err))
					continue
				}
				h.Inbox() <- host.FromPeer{PeerID: ev.PeerID, Msg: msg}
			}
		}
	}
}

// becomeClient wires a connected transport to a fresh local agent.
func (s *Session) becomeClient(conn transport.Transport, mode Mode) {
	bg, cancel := context.WithCancel(context.Background())

	send := func(msg types.ClientMessage) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return conn.Send(bg, data)
	}
	agent := player.NewAgent(s.log.Named("player"), s.msgr, s.catalog, send, false, s.name)

	s.mu.Lock()
	s.clientConn = conn
	s.agent = agent
	s.role = RoleClient
	s.mode = mode
	s.online = true
	s.bgCancel = cancel
	s.mu.Unlock()

	go func() {
		defer s.markOffline()
		for {
			select {
			case <-bg.Done():
				return
			case data, ok := <-conn.Inbox():
				if !ok {
					return
				}
				var msg types.ServerMessage
				if err := json.Unmarshal(data, &msg); err != nil {
					s.log.Warn("bad server frame", zap.Error(err))
					continue
				}
				agent.HandleServer(msg)
			}
		}
	}()

	agent.Start()
}

func (s *Session) markOffline() {
	s.mu.Lock()
	s.online = false
	s.mu.Unlock()
}

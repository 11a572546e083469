// Package host runs the authoritative processing loop. All shared-state
// mutation happens here, one request at a time in arrival order; peers
// observe results through versioned snapshots and targeted responses.
package host

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"github.com/playtable/tabletopnet/internal/engine"
	"github.com/playtable/tabletopnet/internal/types"
)

type Msg interface{ isHostMsg() }

// Join registers a connected peer. Outbox is where this peer wants its
// snapshots and targeted responses delivered.
type Join struct {
	PeerID string
	Outbox chan types.ServerMessage
}

type Leave struct{ PeerID string }

// FromPeer is one decoded request from a connected peer.
type FromPeer struct {
	PeerID string
	Msg    types.ClientMessage
}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

func (Join) isHostMsg()     {}
func (Leave) isHostMsg()    {}
func (FromPeer) isHostMsg() {}
func (GetState) isHostMsg() {}
func (Shutdown) isHostMsg() {}

// View reflects internal state without data races; test-only.
type View struct {
	Version  int
	NumPeers int
	State    engine.State
}

type Host struct {
	log     *zap.Logger
	inbox   chan Msg
	state   engine.State
	version int
	peers   map[string]chan types.ServerMessage
	rng     *rand.Rand
	ctx     context.Context
	cancel  context.CancelFunc
}

// New starts the authoritative loop for one session. hostPeerID is the
// local player's peer id, used to resolve deck-share requests; seed feeds
// the shuffle/die rng so tests can be deterministic.
func New(parent context.Context, log *zap.Logger, game engine.GameInfo, hostPeerID string, seed int64) *Host {
	ctx, cancel := context.WithCancel(parent)
	h := &Host{
		log:    log,
		inbox:  make(chan Msg, 64),
		state:  engine.NewState(hostPeerID, game),
		peers:  map[string]chan types.ServerMessage{},
		rng:    rand.New(rand.NewSource(seed)),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Host) Inbox() chan<- Msg { return h.inbox }

func (h *Host) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.state.SpawnParticipant(msg.PeerID, "")
				h.peers[msg.PeerID] = msg.Outbox
				h.version++
				// The joining peer learns its own id from the first
				// snapshot; everyone else just sees the new participant.
				h.sendTo(msg.PeerID, h.snapshotMsg(msg.PeerID))
				h.broadcastExcept(msg.PeerID)

			case Leave:
				if out, ok := h.peers[msg.PeerID]; ok {
					close(out)
					delete(h.peers, msg.PeerID)
				}
				h.state.DespawnParticipant(msg.PeerID)
				h.version++
				h.broadcastExcept("")

			case FromPeer:
				h.handleRequest(msg.PeerID, msg.Msg)

			case GetState:
				msg.Reply <- View{
					Version:  h.version,
					NumPeers: len(h.peers),
					State:    h.state.Clone(),
				}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Host) handleRequest(peerID string, msg types.ClientMessage) {
	cmd, ok := toCommand(peerID, msg)
	if !ok {
		h.log.Warn("unknown request type", zap.String("peer", peerID), zap.String("type", msg.Type))
		h.sendTo(peerID, types.ServerMessage{Type: types.MsgError, Error: "unknown request type"})
		return
	}

	events, next, err := engine.Apply(h.state, cmd, h.rng)
	if err != nil {
		// Faults stay contained to the requester's response path; the
		// loop keeps processing everyone else's requests.
		h.log.Warn("request rejected",
			zap.String("peer", peerID),
			zap.String("type", msg.Type),
			zap.Error(err))
		h.sendTo(peerID, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
		return
	}

	h.state = next
	h.version++
	h.broadcastExcept("")

	for _, ev := range events {
		out := eventToMessage(ev)
		if ev.Target != "" {
			h.sendTo(ev.Target, out)
			continue
		}
		for peerID := range h.peers {
			h.sendTo(peerID, out)
		}
	}
}

func (h *Host) snapshotMsg(forPeer string) types.ServerMessage {
	state := h.state.Clone()
	return types.ServerMessage{
		Type:    types.MsgStateSnapshot,
		Version: h.version,
		State:   &state,
		YourID:  forPeer,
	}
}

// broadcastExcept sends the current snapshot to every peer but skip.
// Slow or full peers are dropped rather than allowed to stall the loop.
func (h *Host) broadcastExcept(skip string) {
	for peerID, out := range h.peers {
		if peerID == skip {
			continue
		}
		select {
		case out <- h.snapshotMsg(peerID):
		default:
			h.log.Warn("dropping slow peer", zap.String("peer", peerID))
			close(out)
			delete(h.peers, peerID)
			h.state.DespawnParticipant(peerID)
		}
	}
}

func (h *Host) sendTo(peerID string, msg types.ServerMessage) {
	out, ok := h.peers[peerID]
	if !ok {
		return
	}
	select {
	case out <- msg:
	default:
		h.log.Warn("dropping slow peer", zap.String("peer", peerID))
		close(out)
		delete(h.peers, peerID)
		h.state.DespawnParticipant(peerID)
	}
}

func (h *Host) shutdown() {
	for peerID, out := range h.peers {
		close(out)
		delete(h.peers, peerID)
	}
	h.cancel()
}

package local

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playtable/tabletopnet/internal/transport"
)

// allocation is one relayed session: a single host leg plus up to
// maxConnections peer legs. Peer frames travel to the host wrapped in a
// transport.RelayEnvelope; host frames are unwrapped and forwarded to the
// addressed peer.
type allocation struct {
	log      *zap.Logger
	id       string
	joinCode string
	maxPeers int

	mu      sync.Mutex
	host    *websocket.Conn
	hostCtx context.Context
	peers   map[string]*websocket.Conn
}

func newAllocation(log *zap.Logger, id, joinCode string, maxPeers int) *allocation {
	return &allocation{
		log:      log,
		id:       id,
		joinCode: joinCode,
		maxPeers: maxPeers,
		peers:    map[string]*websocket.Conn{},
	}
}

func (s *Stack) hostLeg(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	alloc := s.allocations[chi.URLParam(r, "allocationID")]
	s.mu.Unlock()
	if alloc == nil {
		http.Error(w, "unknown allocation", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	alloc.mu.Lock()
	if alloc.host != nil {
		alloc.mu.Unlock()
		conn.Close(websocket.StatusPolicyViolation, "allocation already hosted")
		return
	}
	alloc.host = conn
	alloc.hostCtx = r.Context()
	alloc.mu.Unlock()

	defer func() {
		alloc.mu.Lock()
		alloc.host = nil
		peers := alloc.peers
		alloc.peers = map[string]*websocket.Conn{}
		alloc.mu.Unlock()
		for _, peer := range peers {
			_ = peer.Close(websocket.StatusGoingAway, "host left")
		}
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		var env transport.RelayEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			alloc.log.Warn("relay: bad host frame", zap.Error(err))
			continue
		}
		alloc.mu.Lock()
		peer := alloc.peers[env.Peer]
		alloc.mu.Unlock()
		if peer == nil {
			continue // peer already gone, drop
		}
		_ = peer.Write(r.Context(), websocket.MessageText, env.Data)
	}
}

func (s *Stack) peerLeg(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	alloc := s.byJoinCode[chi.URLParam(r, "code")]
	s.mu.Unlock()
	if alloc == nil {
		http.Error(w, "unknown join code", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	peerID := uuid.NewString()

	alloc.mu.Lock()
	if alloc.host == nil || len(alloc.peers) >= alloc.maxPeers {
		alloc.mu.Unlock()
		conn.Close(websocket.StatusTryAgainLater, "session unavailable")
		return
	}
	alloc.peers[peerID] = conn
	alloc.mu.Unlock()

	alloc.toHost(transport.RelayEnvelope{Peer: peerID, Event: transport.RelayPeerJoined})
	defer func() {
		alloc.mu.Lock()
		delete(alloc.peers, peerID)
		alloc.mu.Unlock()
		alloc.toHost(transport.RelayEnvelope{Peer: peerID, Event: transport.RelayPeerLeft})
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		alloc.toHost(transport.RelayEnvelope{Peer: peerID, Data: data})
	}
}

// toHost serializes writes to the single host leg.
func (a *allocation) toHost(env transport.RelayEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.host == nil {
		return
	}
	_ = a.host.Write(a.hostCtx, websocket.MessageText, data)
}

package transport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultPort is the direct-connect port clients dial when none is given.
const DefaultPort = 7777

const writeTimeout = 3 * time.Second

// WSHost accepts direct websocket connections on a TCP listener. Each
// accepted connection becomes one peer with a transport-assigned id.
type WSHost struct {
	log    *zap.Logger
	events chan Event

	mu    sync.Mutex
	peers map[string]*wsHostPeer

	listener net.Listener
	server   *http.Server
	cancel   context.CancelFunc
	group    *errgroup.Group
	closed   sync.Once
}

type wsHostPeer struct {
	conn *websocket.Conn
	out  chan []byte
}

// ListenWS starts a direct host transport on addr (e.g. ":7777").
func ListenWS(log *zap.Logger, addr string) (*WSHost, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	h := &WSHost{
		log:      log,
		events:   make(chan Event, 64),
		peers:    map[string]*wsHostPeer{},
		listener: listener,
	}

	router := chi.NewRouter()
	router.Get("/ws", h.handleWS)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h.server = &http.Server{Handler: router}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.group, _ = errgroup.WithContext(ctx)
	h.group.Go(func() error {
		err := h.server.Serve(listener)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	h.group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		return h.server.Shutdown(shutdownCtx)
	})

	log.Info("direct host listening", zap.String("addr", listener.Addr().String()))
	return h, nil
}

func (h *WSHost) Addr() string { return h.listener.Addr().String() }

func (h *WSHost) Events() <-chan Event { return h.events }

func (h *WSHost) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	peerID := uuid.NewString()
	peer := &wsHostPeer{conn: conn, out: make(chan []byte, 16)}

	h.mu.Lock()
	h.peers[peerID] = peer
	h.mu.Unlock()

	h.emit(PeerConnected{PeerID: peerID})
	defer func() {
		h.mu.Lock()
		delete(h.peers, peerID)
		h.mu.Unlock()
		close(peer.out)
		h.emit(PeerLeft{PeerID: peerID})
	}()

	// Writer goroutine; the reader below owns the connection lifetime.
	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go func() {
		for data := range peer.out {
			ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
			_ = conn.Write(ctx, websocket.MessageText, data)
			cancel()
		}
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}
		h.emit(FromPeer{PeerID: peerID, Data: data})
	}
}

// emit drops events once nobody is draining them, so peer goroutines can
// always finish during teardown.
func (h *WSHost) emit(ev Event) {
	select {
	case h.events <- ev:
	default:
		h.log.Warn("transport event dropped")
	}
}

func (h *WSHost) Send(ctx context.Context, peerID string, data []byte) error {
	h.mu.Lock()
	peer, ok := h.peers[peerID]
	h.mu.Unlock()
	if !ok {
		return ErrPeerGone
	}
	select {
	case peer.out <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHost) Close() error {
	h.closed.Do(func() {
		h.mu.Lock()
		peers := make([]*wsHostPeer, 0, len(h.peers))
		for _, peer := range h.peers {
			peers = append(peers, peer)
		}
		h.mu.Unlock()
		// Shutdown does not reach hijacked connections; close them so the
		// reader loops exit and drop their peers.
		for _, peer := range peers {
			_ = peer.conn.Close(websocket.StatusGoingAway, "host stopping")
		}
		h.cancel()
		_ = h.group.Wait()
	})
	return nil
}

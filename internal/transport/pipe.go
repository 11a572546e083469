package transport

import "context"

// PipeHost is an in-process host transport for single-process sessions and
// tests: no sockets, outbox echoed straight to the peer's inbox.
type PipeHost struct {
	events chan Event
	peers  map[string]*PipeClient
}

func NewPipeHost() *PipeHost {
	return &PipeHost{
		events: make(chan Event, 64),
		peers:  map[string]*PipeClient{},
	}
}

// Connect attaches a new in-process peer under the given id.
func (h *PipeHost) Connect(peerID string) *PipeClient {
	c := &PipeClient{
		host:   h,
		peerID: peerID,
		inbox:  make(chan []byte, 64),
	}
	h.peers[peerID] = c
	h.events <- PeerConnected{PeerID: peerID}
	return c
}

func (h *PipeHost) Events() <-chan Event { return h.events }

func (h *PipeHost) Send(ctx context.Context, peerID string, data []byte) error {
	peer, ok := h.peers[peerID]
	if !ok {
		return ErrPeerGone
	}
	select {
	case peer.inbox <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *PipeHost) Close() error {
	for id, peer := range h.peers {
		close(peer.inbox)
		delete(h.peers, id)
	}
	return nil
}

type PipeClient struct {
	host   *PipeHost
	peerID string
	inbox  chan []byte
}

func (c *PipeClient) Inbox() <-chan []byte { return c.inbox }

func (c *PipeClient) Send(ctx context.Context, data []byte) error {
	select {
	case c.host.events <- FromPeer{PeerID: c.peerID, Data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *PipeClient) Close() error {
	if _, ok := c.host.peers[c.peerID]; ok {
		delete(c.host.peers, c.peerID)
		close(c.inbox)
		c.host.events <- PeerLeft{PeerID: c.peerID}
	}
	return nil
}

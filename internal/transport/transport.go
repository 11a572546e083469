// Package transport moves opaque frames between the host and its peers.
// The session coordinator picks one of three implementations: a direct
// websocket listener, a relayed connection through an allocation on the
// relay service, or an in-process pipe.
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrPeerGone = errors.New("peer not connected")

// Event is what a host transport reports about its peers.
type Event interface{ isTransportEvent() }

type PeerConnected struct{ PeerID string }

type PeerLeft struct{ PeerID string }

type FromPeer struct {
	PeerID string
	Data   []byte
}

func (PeerConnected) isTransportEvent() {}
func (PeerLeft) isTransportEvent()      {}
func (FromPeer) isTransportEvent()      {}

// HostTransport accepts peers and delivers frames to specific peers.
// Peer ids are assigned by the transport and stable for the connection.
type HostTransport interface {
	Events() <-chan Event
	Send(ctx context.Context, peerID string, data []byte) error
	Close() error
}

// Transport is the client end: one connection to the host.
type Transport interface {
	Inbox() <-chan []byte
	Send(ctx context.Context, data []byte) error
	Close() error
}

// RelayEnvelope frames traffic on the relay's host leg. Peers exchange raw
// frames with the relay; the relay wraps them with the peer id and the
// connection lifecycle events the host needs.
type RelayEnvelope struct {
	Peer  string          `json:"peer"`
	Event string          `json:"event,omitempty"` // "joined", "left", or "" for data
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	RelayPeerJoined = "joined"
	RelayPeerLeft   = "left"
)

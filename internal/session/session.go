// Package session owns the host/client role and connectivity lifecycle:
// direct hosting, relay allocation, lobby publication and join, the
// keep-alive heartbeat, and teardown.
package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playtable/tabletopnet/internal/host"
	"github.com/playtable/tabletopnet/internal/messenger"
	"github.com/playtable/tabletopnet/internal/player"
	"github.com/playtable/tabletopnet/internal/services/identity"
	"github.com/playtable/tabletopnet/internal/services/lobby"
	"github.com/playtable/tabletopnet/internal/services/relay"
	"github.com/playtable/tabletopnet/internal/transport"
)

const ConnectionErrorPrefix = "Failed to connect to server: "
const InvalidServerErrorMessage = "Invalid server: lobby has no relay code!"

// MaxPlayers bounds every relayed session and lobby record.
const MaxPlayers = 10

const DefaultHeartbeatInterval = 15 * time.Second

type Role int

const (
	RoleNone Role = iota
	RoleHost
	RoleClient
)

type Mode int

const (
	ModeDirect Mode = iota
	ModeRelay
)

// Deps are the collaborators a Session needs. Everything is an interface
// so tests can substitute fakes.
type Deps struct {
	Log        *zap.Logger
	Messenger  messenger.Messenger
	Identity   identity.Provider
	Relay      relay.Client
	Lobby      lobby.Client
	Catalog    player.Catalog
	PlayerName string
	// HeartbeatInterval defaults to DefaultHeartbeatInterval when zero.
	HeartbeatInterval time.Duration
}

type Session struct {
	log       *zap.Logger
	msgr      messenger.Messenger
	identity  identity.Provider
	relay     relay.Client
	lobbyc    lobby.Client
	catalog   player.Catalog
	name      string
	heartbeat time.Duration

	mu            sync.Mutex
	role          Role
	mode          Mode
	online        bool
	playerID      string
	currentLobby  *lobby.Record
	hostLoop      *host.Host
	hostTransport transport.HostTransport
	clientConn    transport.Transport
	agent         *player.Agent
	bgCancel      context.CancelFunc
}

func New(deps Deps) *Session {
	interval := deps.HeartbeatInterval
	if interval == 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Session{
		log:       deps.Log,
		msgr:      deps.Messenger,
		identity:  deps.Identity,
		relay:     deps.Relay,
		lobbyc:    deps.Lobby,
		catalog:   deps.Catalog,
		name:      deps.PlayerName,
		heartbeat: interval,
	}
}

// IsOnline reports whether this process is hosting or fully connected.
func (s *Session) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Agent is the local participant, nil until a session starts.
func (s *Session) Agent() *player.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent
}

// StartHost begins accepting direct connections on addr (":7777" by
// convention).
func (s *Session) StartHost(addr string) error {
	t, err := transport.ListenWS(s.log.Named("transport"), addr)
	if err != nil {
		s.fail(err)
		return err
	}

	bg, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.hostTransport = t
	s.role = RoleHost
	s.mode = ModeDirect
	s.online = true
	s.bgCancel = cancel
	s.mu.Unlock()

	s.startHosting(bg, t)
	return nil
}

// StartBroadcastHost allocates a relay session, hosts on it, and
// publishes a lobby record carrying the relay join code. It returns
// immediately; failures surface once through the messenger and leave the
// session not online, with no lobby record behind.
func (s *Session) StartBroadcastHost(ctx context.Context) {
	go func() { _ = s.broadcastHost(ctx) }()
}

func (s *Session) broadcastHost(ctx context.Context) error {
	if err := s.ensureSignedIn(ctx); err != nil {
		s.fail(err)
		return err
	}

	alloc, err := s.relay.AllocateSession(ctx, MaxPlayers)
	if err != nil {
		s.fail(err)
		return err
	}
	s.log.Info("relay session allocated",
		zap.String("allocation_id", alloc.AllocationID),
		zap.String("relay_code", alloc.JoinCode))

	t, err := transport.HostRelay(ctx, s.log.Named("transport"), alloc.HostURL)
	if err != nil {
		s.fail(err)
		return err
	}

	bg, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.hostTransport = t
	s.role = RoleHost
	s.mode = ModeRelay
	s.online = true
	s.bgCancel = cancel
	s.mu.Unlock()
	s.startHosting(bg, t)

	record, err := s.lobbyc.Create(ctx, s.catalog.Current().ID, MaxPlayers,
		map[string]string{lobby.KeyRelayCode: alloc.JoinCode})
	if err != nil {
		// A failed host attempt must not stay half up: tear the relay
		// host down again so no heartbeat or record survives.
		s.teardown()
		s.fail(err)
		return err
	}
	s.log.Info("lobby created", zap.String("lobby_code", record.JoinCode))

	s.mu.Lock()
	s.currentLobby = &record
	s.mu.Unlock()

	go s.heartbeatLoop(bg, record.ID)
	return nil
}

// StartJoin connects directly to a host.
func (s *Session) StartJoin(ctx context.Context, address string, port int) error {
	conn, err := transport.DialWS(ctx, s.log.Named("transport"), address, port)
	if err != nil {
		s.fail(err)
		return err
	}
	s.becomeClient(conn, ModeDirect)
	return nil
}

// StartJoinRelay resolves a relay join code and connects through the
// relay as a client.
func (s *Session) StartJoinRelay(ctx context.Context, relayCode string) error {
	data, err := s.relay.ResolveJoinCode(ctx, relayCode)
	if err != nil {
		s.fail(err)
		return err
	}
	conn, err := transport.DialRelay(ctx, s.log.Named("transport"), data.PeerURL)
	if err != nil {
		s.fail(err)
		return err
	}
	s.becomeClient(conn, ModeRelay)
	return nil
}

// StartJoinLobby looks a lobby up by code and joins through its relay
// code. A record without a relay code is an invalid server.
func (s *Session) StartJoinLobby(ctx context.Context, lobbyCode string) error {
	if err := s.ensureSignedIn(ctx); err != nil {
		s.fail(err)
		return err
	}

	record, err := s.lobbyc.JoinByCode(ctx, lobbyCode)
	if err != nil {
		s.fail(err)
		return err
	}

	relayCode, ok := record.Data[lobby.KeyRelayCode]
	if !ok || relayCode == "" {
		s.log.Error("lobby record has no relay code", zap.String("lobby_code", lobbyCode))
		s.msgr.Show(InvalidServerErrorMessage, true)
		return lobby.ErrNotFound
	}

	s.mu.Lock()
	s.currentLobby = &record
	s.mu.Unlock()
	return s.StartJoinRelay(ctx, relayCode)
}

// Stop tears the session down: transport, host loop, background loops,
// and the held lobby record (deleted when hosting, membership removed
// otherwise). Safe to call twice.
func (s *Session) Stop() {
	s.mu.Lock()
	record := s.currentLobby
	wasHost := s.role == RoleHost
	playerID := s.playerID
	cancel := s.bgCancel
	hostTransport := s.hostTransport
	clientConn := s.clientConn
	s.currentLobby = nil
	s.bgCancel = nil
	s.hostTransport = nil
	s.clientConn = nil
	s.hostLoop = nil
	s.agent = nil
	s.online = false
	s.role = RoleNone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if clientConn != nil {
		_ = clientConn.Close()
	}
	if hostTransport != nil {
		_ = hostTransport.Close()
	}

	if record == nil {
		return
	}
	// External cleanup must not fail teardown; log and move on.
	ctx, cancelCleanup := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCleanup()
	if wasHost {
		if err := s.lobbyc.Delete(ctx, record.ID); err != nil {
			s.log.Warn("lobby delete failed", zap.Error(err))
		}
	} else {
		if err := s.lobbyc.RemoveMember(ctx, record.ID, playerID); err != nil {
			s.log.Warn("lobby member removal failed", zap.Error(err))
		}
	}
}

// RoomID is the identifier players share to find this session: the lobby
// join code when one exists, otherwise the host's resolvable address.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentLobby != nil && s.currentLobby.JoinCode != "" {
		return s.currentLobby.JoinCode
	}
	return localIPv4()
}

func (s *Session) ensureSignedIn(ctx context.Context) error {
	s.mu.Lock()
	signedIn := s.playerID != ""
	s.mu.Unlock()
	if signedIn {
		return nil
	}

	id, err := s.identity.SignInAnonymously(ctx)
	if err != nil {
		return err
	}
	s.log.Info("signed in anonymously", zap.String("player_id", id))

	s.mu.Lock()
	s.playerID = id
	s.mu.Unlock()
	if setter, ok := s.lobbyc.(interface{ SetPlayerID(string) }); ok {
		setter.SetPlayerID(id)
	}
	return nil
}

// fail surfaces one connection fault to the user. Never retried.
func (s *Session) fail(err error) {
	s.log.Error("connection attempt failed", zap.Error(err))
	s.msgr.Show(ConnectionErrorPrefix+err.Error(), true)
}

// teardown reverts a partially started hosting attempt.
func (s *Session) teardown() {
	s.mu.Lock()
	cancel := s.bgCancel
	t := s.hostTransport
	s.bgCancel = nil
	s.hostTransport = nil
	s.hostLoop = nil
	s.agent = nil
	s.online = false
	s.role = RoleNone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if t != nil {
		_ = t.Close()
	}
}

func (s *Session) heartbeatLoop(ctx context.Context, lobbyID string) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.IsOnline() {
				return
			}
			if err := s.lobbyc.Heartbeat(ctx, lobbyID); err != nil {
				s.log.Warn("lobby heartbeat failed", zap.Error(err))
			}
		}
	}
}

func localIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
			if v4 := ipNet.IP.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return "127.0.0.1"
}

func newPeerID() string { return uuid.NewString() }

// Package local is an in-process implementation of the relay, lobby, and
// identity APIs, good enough for LAN play and tests. It is not the real
// backend; it exists so the module runs end to end without external
// infrastructure.
package local

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playtable/tabletopnet/internal/services/lobby"
	"github.com/playtable/tabletopnet/internal/services/relay"
)

// LobbyTTL is how long a record survives without heartbeats before join
// requests stop finding it.
const LobbyTTL = 60 * time.Second

type lobbyEntry struct {
	record   lobby.Record
	lastBeat time.Time
}

type Stack struct {
	log *zap.Logger

	mu          sync.Mutex
	allocations map[string]*allocation // by allocation id
	byJoinCode  map[string]*allocation
	lobbies     map[string]*lobbyEntry // by lobby id
	byLobbyCode map[string]*lobbyEntry

	now func() time.Time
}

func NewStack(log *zap.Logger) *Stack {
	return &Stack{
		log:         log,
		allocations: map[string]*allocation{},
		byJoinCode:  map[string]*allocation{},
		lobbies:     map[string]*lobbyEntry{},
		byLobbyCode: map[string]*lobbyEntry{},
		now:         time.Now,
	}
}

// Routes mounts every endpoint of the three services on one router.
func (s *Stack) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/v1/auth/anonymous", s.signInAnonymously)

	r.Post("/v1/relay/allocations", s.allocate)
	r.Get("/v1/relay/join/{code}", s.resolveJoinCode)
	r.Get("/v1/relay/host/{allocationID}", s.hostLeg)
	r.Get("/v1/relay/peer/{code}", s.peerLeg)

	r.Post("/v1/lobbies", s.createLobby)
	r.Post("/v1/lobbies/join", s.joinLobby)
	r.Post("/v1/lobbies/{lobbyID}/heartbeat", s.heartbeat)
	r.Delete("/v1/lobbies/{lobbyID}", s.deleteLobby)
	r.Delete("/v1/lobbies/{lobbyID}/members/{memberID}", s.removeMember)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (s *Stack) signInAnonymously(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		PlayerID string `json:"player_id"`
	}{PlayerID: uuid.NewString()})
}

func (s *Stack) allocate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MaxConnections int `json:"max_connections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MaxConnections <= 0 {
		http.Error(w, "bad allocation request", http.StatusBadRequest)
		return
	}

	code, err := generateCode()
	if err != nil {
		http.Error(w, "failed to generate join code", http.StatusInternalServerError)
		return
	}

	alloc := newAllocation(s.log, uuid.NewString(), code, body.MaxConnections)
	s.mu.Lock()
	s.allocations[alloc.id] = alloc
	s.byJoinCode[code] = alloc
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, relay.ConnectionData{
		AllocationID: alloc.id,
		JoinCode:     code,
		HostURL:      "ws://" + r.Host + "/v1/relay/host/" + alloc.id,
	})
}

func (s *Stack) resolveJoinCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	s.mu.Lock()
	alloc := s.byJoinCode[code]
	s.mu.Unlock()
	if alloc == nil {
		http.Error(w, "unknown join code", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, relay.ConnectionData{
		JoinCode: code,
		PeerURL:  "ws://" + r.Host + "/v1/relay/peer/" + code,
	})
}

func (s *Stack) createLobby(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string            `json:"name"`
		MaxPlayers int               `json:"max_players"`
		Data       map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad lobby request", http.StatusBadRequest)
		return
	}

	code, err := generateCode()
	if err != nil {
		http.Error(w, "failed to generate lobby code", http.StatusInternalServerError)
		return
	}

	entry := &lobbyEntry{
		record: lobby.Record{
			ID:         uuid.NewString(),
			Name:       body.Name,
			JoinCode:   code,
			HostID:     r.Header.Get("X-Player-Id"),
			MaxPlayers: body.MaxPlayers,
			Data:       body.Data,
		},
		lastBeat: s.now(),
	}
	s.mu.Lock()
	s.lobbies[entry.record.ID] = entry
	s.byLobbyCode[code] = entry
	s.mu.Unlock()

	s.log.Info("lobby created",
		zap.String("lobby_id", entry.record.ID),
		zap.String("join_code", code))
	writeJSON(w, http.StatusCreated, entry.record)
}

func (s *Stack) joinLobby(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JoinCode string `json:"join_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad join request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	entry := s.byLobbyCode[body.JoinCode]
	if entry != nil && s.now().Sub(entry.lastBeat) > LobbyTTL {
		delete(s.byLobbyCode, entry.record.JoinCode)
		delete(s.lobbies, entry.record.ID)
		entry = nil
	}
	s.mu.Unlock()

	if entry == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry.record)
}

func (s *Stack) heartbeat(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entry := s.lobbies[chi.URLParam(r, "lobbyID")]
	if entry != nil {
		entry.lastBeat = s.now()
	}
	s.mu.Unlock()

	if entry == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Stack) deleteLobby(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entry := s.lobbies[chi.URLParam(r, "lobbyID")]
	if entry != nil {
		delete(s.lobbies, entry.record.ID)
		delete(s.byLobbyCode, entry.record.JoinCode)
	}
	s.mu.Unlock()

	if entry == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Stack) removeMember(w http.ResponseWriter, r *http.Request) {
	// Membership is implicit in this stack; removing a member only has to
	// not fail so departing clients can clean up.
	s.mu.Lock()
	entry := s.lobbies[chi.URLParam(r, "lobbyID")]
	s.mu.Unlock()

	if entry == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	s.log.Debug("lobby member removed",
		zap.String("lobby_id", entry.record.ID),
		zap.String("member_id", chi.URLParam(r, "memberID")))
	w.WriteHeader(http.StatusOK)
}

// generateCode builds a 6-character join code from an unambiguous charset.
func generateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package engine

// EntityID is an opaque handle to a spawned shared entity. References held
// by clients are validated against the arena on every use; a stale id fails
// with ErrEntityNotFound rather than panicking.
type EntityID string

// BlankCardID is the sentinel id of the placeholder card. Hand-adding logic
// on the client filters it out, the engine never does.
const BlankCardID = "blank"

type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SharePreference is the active game's configured deck-sharing behavior,
// consulted on first join and after every restart.
type SharePreference string

const (
	ShareIndividual SharePreference = "individual"
	ShareShared     SharePreference = "share"
	ShareAsk        SharePreference = "ask"
)

// GameInfo describes the game definition the host is playing. Clients that
// lack GameID locally download it from AutoUpdateURL, if one is set.
type GameInfo struct {
	ID              string          `json:"id"`
	AutoUpdateURL   string          `json:"auto_update_url,omitempty"`
	SharePreference SharePreference `json:"share_preference,omitempty"`
}

type Hand struct {
	Name    string   `json:"name"`
	CardIDs []string `json:"card_ids"`
}

type Participant struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Points       int      `json:"points"`
	CurrentDeck  EntityID `json:"current_deck,omitempty"`
	IsDeckShared bool     `json:"is_deck_shared,omitempty"`
	CurrentHand  int      `json:"current_hand"`
	Hands        []Hand   `json:"hands"`
}

type CardStack struct {
	ID       EntityID `json:"id"`
	Name     string   `json:"name"`
	CardIDs  []string `json:"card_ids"`
	IsDeck   bool     `json:"is_deck,omitempty"`
	Creator  string   `json:"creator"`
	Position Vector2  `json:"position"`
}

// CardEntity is a single card placed face up or down in the open play area.
type CardEntity struct {
	ID       EntityID `json:"id"`
	CardID   string   `json:"card_id"`
	Position Vector2  `json:"position"`
	Rotation float64  `json:"rotation"`
	FaceDown bool     `json:"face_down,omitempty"`
}

type Die struct {
	ID    EntityID `json:"id"`
	Min   int      `json:"min"`
	Max   int      `json:"max"`
	Value int      `json:"value"`
}

// State is the canonical shared world. Only the host's processing loop
// holds a mutable State; everything else sees clones or snapshots.
type State struct {
	HostID       string                   `json:"host_id"`
	Game         GameInfo                 `json:"game"`
	Participants map[string]*Participant  `json:"participants"`
	Stacks       map[EntityID]*CardStack  `json:"stacks"`
	Cards        map[EntityID]*CardEntity `json:"cards"`
	Dice         map[EntityID]*Die        `json:"dice"`
}

func NewState(hostID string, game GameInfo) State {
	return State{
		HostID:       hostID,
		Game:         game,
		Participants: map[string]*Participant{},
		Stacks:       map[EntityID]*CardStack{},
		Cards:        map[EntityID]*CardEntity{},
		Dice:         map[EntityID]*Die{},
	}
}

// SpawnParticipant creates the replicated record for a newly connected
// peer. Entity lifecycle for participants is driven by the connection,
// not by a request, so it lives outside Apply.
func (s *State) SpawnParticipant(id, name string) *Participant {
	p := &Participant{ID: id, Name: name, CurrentHand: 0, Hands: []Hand{}}
	s.Participants[id] = p
	return p
}

func (s *State) DespawnParticipant(id string) {
	delete(s.Participants, id)
}

// Clone deep-copies the state so snapshots handed to writer goroutines
// stay immutable while the host keeps mutating the canonical copy.
func (s State) Clone() State {
	next := State{
		HostID:       s.HostID,
		Game:         s.Game,
		Participants: make(map[string]*Participant, len(s.Participants)),
		Stacks:       make(map[EntityID]*CardStack, len(s.Stacks)),
		Cards:        make(map[EntityID]*CardEntity, len(s.Cards)),
		Dice:         make(map[EntityID]*Die, len(s.Dice)),
	}
	for id, p := range s.Participants {
		cp := *p
		cp.Hands = make([]Hand, len(p.Hands))
		for i, h := range p.Hands {
			cp.Hands[i] = Hand{Name: h.Name, CardIDs: append([]string(nil), h.CardIDs...)}
		}
		next.Participants[id] = &cp
	}
	for id, st := range s.Stacks {
		cp := *st
		cp.CardIDs = append([]string(nil), st.CardIDs...)
		next.Stacks[id] = &cp
	}
	for id, c := range s.Cards {
		cp := *c
		next.Cards[id] = &cp
	}
	for id, d := range s.Dice {
		cp := *d
		next.Dice[id] = &cp
	}
	return next
}

package engine

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"
)

var ErrUnknownParticipant = errors.New("unknown participant")
var ErrEntityNotFound = errors.New("entity not found")
var ErrHandIndexOutOfBounds = errors.New("hand index out of bounds")
var ErrNoDeckToShare = errors.New("host has no deck to share")
var ErrInvalidDieRange = errors.New("invalid die range")
var ErrUnsupportedCommand = errors.New("unsupported command")

type CommandType string

const (
	CmdUpdateName     CommandType = "UpdateName"
	CmdUpdatePoints   CommandType = "UpdatePoints"
	CmdCreateStack    CommandType = "CreateStack"
	CmdShuffle        CommandType = "Shuffle"
	CmdInsert         CommandType = "Insert"
	CmdRemoveAt       CommandType = "RemoveAt"
	CmdDeal           CommandType = "Deal"
	CmdShareDeck      CommandType = "ShareDeck"
	CmdSpawnCard      CommandType = "SpawnCard"
	CmdDespawnCard    CommandType = "DespawnCard"
	CmdCreateDie      CommandType = "CreateDie"
	CmdNewHand        CommandType = "NewHand"
	CmdUseHand        CommandType = "UseHand"
	CmdSyncHand       CommandType = "SyncHand"
	CmdSelectGame     CommandType = "SelectGame"
	CmdPlayerRotation CommandType = "PlayerRotation"
	CmdRestart        CommandType = "Restart"
)

// Command is a participant request as seen by the host. Actor is the peer
// id of the requester; only the fields relevant to Type are set.
type Command struct {
	Type     CommandType
	Actor    string
	Name     string
	Points   int
	CardIDs  []string
	CardID   string
	IsDeck   bool
	Stack    EntityID
	Card     EntityID
	Index    int
	Count    int
	Min      int
	Max      int
	Position Vector2
	Rotation float64
	FaceDown bool
}

type EventType string

const (
	EvtStackCreated EventType = "StackCreated"
	EvtCardRemoved  EventType = "CardRemoved"
	EvtDealt        EventType = "Dealt"
	EvtDeckShared   EventType = "DeckShared"
	EvtHandUsed     EventType = "HandUsed"
	EvtHandSynced   EventType = "HandSynced"
	EvtGameSelected EventType = "GameSelected"
	EvtRotation     EventType = "Rotation"
	EvtRestarted    EventType = "Restarted"
)

// Event is a host-side result. Target names the single peer the event is
// delivered to; an empty Target means every participant observes it.
// Side effects visible to everyone flow through snapshot replication, so
// most events are targeted responses for the requester only.
type Event struct {
	Type          EventType
	Target        string
	Stack         EntityID
	Card          EntityID
	Die           EntityID
	CardID        string
	CardIDs       []string
	Index         int
	PlayerCount   int
	GameID        string
	AutoUpdateURL string
}

// Apply validates and executes one request against the canonical state.
// It never mutates s: the returned State is a fresh copy with the mutation
// applied, or s itself when the command is a defined no-op. Errors leave
// state unchanged; the host drops the request and answers only the
// requester.
func Apply(s State, cmd Command, rng *rand.Rand) ([]Event, State, error) {
	actor, ok := s.Participants[cmd.Actor]
	if !ok {
		return nil, s, ErrUnknownParticipant
	}

	switch cmd.Type {
	case CmdUpdateName:
		next := s.Clone()
		next.Participants[cmd.Actor].Name = cmd.Name
		return nil, next, nil

	case CmdUpdatePoints:
		next := s.Clone()
		next.Participants[cmd.Actor].Points = cmd.Points
		return nil, next, nil

	case CmdCreateStack:
		next := s.Clone()
		stack := &CardStack{
			ID:       EntityID(uuid.NewString()),
			Name:     cmd.Name,
			CardIDs:  append([]string(nil), cmd.CardIDs...),
			IsDeck:   cmd.IsDeck,
			Creator:  cmd.Actor,
			Position: cmd.Position,
		}
		next.Stacks[stack.ID] = stack
		if cmd.IsDeck {
			next.Participants[cmd.Actor].CurrentDeck = stack.ID
		}
		events := []Event{{Type: EvtStackCreated, Target: cmd.Actor, Stack: stack.ID}}
		return events, next, nil

	case CmdShuffle:
		if _, ok := s.Stacks[cmd.Stack]; !ok {
			return nil, s, ErrEntityNotFound
		}
		next := s.Clone()
		cards := next.Stacks[cmd.Stack].CardIDs
		rng.Shuffle(len(cards), func(i, j int) {
			cards[i], cards[j] = cards[j], cards[i]
		})
		return nil, next, nil

	case CmdInsert:
		if _, ok := s.Stacks[cmd.Stack]; !ok {
			return nil, s, ErrEntityNotFound
		}
		next := s.Clone()
		stack := next.Stacks[cmd.Stack]
		// Out-of-range indices clamp to the ends rather than fail.
		idx := min(max(cmd.Index, 0), len(stack.CardIDs))
		rest := append([]string{cmd.CardID}, stack.CardIDs[idx:]...)
		stack.CardIDs = append(stack.CardIDs[:idx:idx], rest...)
		return nil, next, nil

	case CmdRemoveAt:
		stack, ok := s.Stacks[cmd.Stack]
		if !ok {
			return nil, s, ErrEntityNotFound
		}
		if cmd.Index < 0 || cmd.Index >= len(stack.CardIDs) {
			// Empty stack or invalid index is a silent no-op, not a fault.
			return nil, s, nil
		}
		next := s.Clone()
		stack = next.Stacks[cmd.Stack]
		removed := stack.CardIDs[cmd.Index]
		stack.CardIDs = append(stack.CardIDs[:cmd.Index], stack.CardIDs[cmd.Index+1:]...)
		events := []Event{{Type: EvtCardRemoved, Target: cmd.Actor, CardID: removed}}
		return events, next, nil

	case CmdDeal:
		if _, ok := s.Stacks[cmd.Stack]; !ok {
			return nil, s, ErrEntityNotFound
		}
		if cmd.Count < 0 {
			return nil, s, nil
		}
		next := s.Clone()
		stack := next.Stacks[cmd.Stack]
		// Always Count entries; positions past the end of the stack stay
		// "" so the requester sees exactly how many real cards it got.
		dealt := make([]string, cmd.Count)
		for i := 0; i < cmd.Count && len(stack.CardIDs) > 0; i++ {
			dealt[i] = stack.CardIDs[0]
			stack.CardIDs = stack.CardIDs[1:]
		}
		events := []Event{{Type: EvtDealt, Target: cmd.Actor, Stack: cmd.Stack, CardIDs: dealt}}
		return events, next, nil

	case CmdShareDeck:
		hostPlayer, ok := s.Participants[s.HostID]
		if !ok || hostPlayer.CurrentDeck == "" {
			return nil, s, ErrNoDeckToShare
		}
		next := s.Clone()
		p := next.Participants[cmd.Actor]
		p.CurrentDeck = hostPlayer.CurrentDeck
		p.IsDeckShared = true
		events := []Event{{Type: EvtDeckShared, Target: cmd.Actor, Stack: hostPlayer.CurrentDeck}}
		return events, next, nil

	case CmdSpawnCard:
		next := s.Clone()
		card := &CardEntity{
			ID:       EntityID(uuid.NewString()),
			CardID:   cmd.CardID,
			Position: cmd.Position,
			Rotation: cmd.Rotation,
			FaceDown: cmd.FaceDown,
		}
		next.Cards[card.ID] = card
		return nil, next, nil

	case CmdDespawnCard:
		if _, ok := s.Cards[cmd.Card]; !ok {
			return nil, s, ErrEntityNotFound
		}
		next := s.Clone()
		delete(next.Cards, cmd.Card)
		return nil, next, nil

	case CmdCreateDie:
		if cmd.Min > cmd.Max {
			return nil, s, ErrInvalidDieRange
		}
		next := s.Clone()
		die := &Die{
			ID:    EntityID(uuid.NewString()),
			Min:   cmd.Min,
			Max:   cmd.Max,
			Value: cmd.Min + rng.Intn(cmd.Max-cmd.Min+1),
		}
		next.Dice[die.ID] = die
		return nil, next, nil

	case CmdNewHand:
		next := s.Clone()
		p := next.Participants[cmd.Actor]
		p.Hands = append(p.Hands, Hand{Name: cmd.Name, CardIDs: []string{}})
		p.CurrentHand = len(p.Hands) - 1
		events := []Event{{Type: EvtHandUsed, Target: cmd.Actor, Index: p.CurrentHand}}
		return events, next, nil

	case CmdUseHand:
		if cmd.Index < 0 || cmd.Index >= len(actor.Hands) {
			return nil, s, ErrHandIndexOutOfBounds
		}
		next := s.Clone()
		next.Participants[cmd.Actor].CurrentHand = cmd.Index
		return nil, next, nil

	case CmdSyncHand:
		if cmd.Index < 0 || cmd.Index >= len(actor.Hands) {
			return nil, s, ErrHandIndexOutOfBounds
		}
		next := s.Clone()
		p := next.Participants[cmd.Actor]
		p.Hands[cmd.Index].CardIDs = append([]string(nil), cmd.CardIDs...)
		events := []Event{{Type: EvtHandSynced, Target: cmd.Actor, Index: cmd.Index, CardIDs: cmd.CardIDs}}
		return events, next, nil

	case CmdSelectGame:
		events := []Event{{
			Type:          EvtGameSelected,
			Target:        cmd.Actor,
			GameID:        s.Game.ID,
			AutoUpdateURL: s.Game.AutoUpdateURL,
		}}
		return events, s, nil

	case CmdPlayerRotation:
		events := []Event{{Type: EvtRotation, Target: cmd.Actor, PlayerCount: len(s.Participants)}}
		return events, s, nil

	case CmdRestart:
		next := s.Clone()
		next.Stacks = map[EntityID]*CardStack{}
		next.Cards = map[EntityID]*CardEntity{}
		next.Dice = map[EntityID]*Die{}
		for _, p := range next.Participants {
			p.CurrentDeck = ""
			p.IsDeckShared = false
			for i := range p.Hands {
				p.Hands[i].CardIDs = []string{}
			}
		}
		events := []Event{{Type: EvtRestarted}}
		return events, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// Package player is the local participant agent: it issues requests to
// the host, applies replicated snapshots to the observed state, and runs
// the game-selection and deck-share negotiations.
package player

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/playtable/tabletopnet/internal/engine"
	"github.com/playtable/tabletopnet/internal/messenger"
	"github.com/playtable/tabletopnet/internal/replicate"
	"github.com/playtable/tabletopnet/internal/types"
)

const GameSelectionErrorMessage = "The host has selected a game that is not available!"
const ShareDeckRequest = "Would you like to share the host's deck?"
const DefaultHandName = "Hand 1"

// SendFunc transmits one request to the host.
type SendFunc func(types.ClientMessage) error

// Observed is the local copy of this participant's replicated fields.
// Written only by snapshot application; read freely by observers.
type Observed struct {
	Name         replicate.Var[string]
	Points       replicate.Var[int]
	CurrentDeck  replicate.Var[string]
	IsDeckShared replicate.Var[bool]
	CurrentHand  replicate.Var[int]
	Hands        replicate.List[engine.Hand]
}

type Agent struct {
	log     *zap.Logger
	msgr    messenger.Messenger
	catalog Catalog
	send    SendFunc
	isHost  bool
	name    string

	mu              sync.Mutex
	id              string
	rotation        int
	activeHand      int
	selectionFailed bool
	pendingRemoved  func(cardID string)

	Observed Observed

	// UI continuations, all optional.
	ShowDeckMenu  func()
	PromptForHand func()
	ResetPlayArea func()
}

func NewAgent(log *zap.Logger, msgr messenger.Messenger, catalog Catalog, send SendFunc, isHost bool, name string) *Agent {
	return &Agent{
		log:     log,
		msgr:    msgr,
		catalog: catalog,
		send:    send,
		isHost:  isHost,
		name:    name,
	}
}

// Start runs the on-spawn flow: push the display name, create the default
// hand, then either open deck building (host) or ask the host which game
// is being played.
func (a *Agent) Start() {
	a.RequestNameUpdate(a.name)
	a.RequestNewHand(DefaultHandName)
	if a.isHost {
		a.showDeckMenu()
		return
	}
	a.requestGameSelection()
}

// Rotation is the seating rotation negotiated for this participant.
func (a *Agent) Rotation() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rotation
}

// SelectionFailed reports whether game selection ended in the fatal
// "game not available" state; the participant must not advance past
// selection when it did.
func (a *Agent) SelectionFailed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectionFailed
}

// HandleServer processes one message from the host. Snapshots refresh the
// observed replicated state; everything else is a targeted response.
func (a *Agent) HandleServer(msg types.ServerMessage) {
	switch msg.Type {
	case types.MsgStateSnapshot:
		a.applySnapshot(msg)

	case types.MsgGameSelected:
		a.handleGameSelected(msg.GameID, msg.AutoUpdateURL)

	case types.MsgRotation:
		a.mu.Lock()
		a.rotation = RotationForCount(msg.PlayerCount)
		a.mu.Unlock()
		a.log.Info("seating rotation set", zap.Int("rotation", a.rotation))

	case types.MsgDealt:
		a.handleDealt(msg.CardIDs)

	case types.MsgDeckShared:
		a.log.Info("received shared deck", zap.String("stack", msg.Stack))
		a.promptForHand()

	case types.MsgHandUsed:
		a.mu.Lock()
		a.activeHand = msg.Index
		a.mu.Unlock()

	case types.MsgHandSynced:
		// Observed hand contents arrive via the next snapshot.

	case types.MsgCardRemoved:
		a.mu.Lock()
		deliver := a.pendingRemoved
		a.pendingRemoved = nil
		a.mu.Unlock()
		if deliver != nil {
			deliver(msg.CardID)
		}

	case types.MsgRestarted:
		a.handleRestart()

	case types.MsgError:
		a.msgr.Show(msg.Error, true)
	}
}

func (a *Agent) applySnapshot(msg types.ServerMessage) {
	if msg.State == nil {
		return
	}
	a.mu.Lock()
	if a.id == "" && msg.YourID != "" {
		a.id = msg.YourID
	}
	id := a.id
	a.mu.Unlock()

	p, ok := msg.State.Participants[id]
	if !ok {
		return
	}
	a.Observed.Name.Set(p.Name)
	a.Observed.Points.Set(p.Points)
	a.Observed.CurrentDeck.Set(string(p.CurrentDeck))
	a.Observed.IsDeckShared.Set(p.IsDeckShared)
	a.Observed.CurrentHand.Set(p.CurrentHand)
	a.Observed.Hands.Replace(p.Hands)
}

func (a *Agent) requestGameSelection() {
	a.log.Info("requesting game id")
	a.sendMsg(types.ClientMessage{Type: types.MsgSelectGame})
}

// handleGameSelected aligns this participant with the host's game: select
// it locally, download it, or fail selection for good when neither works.
func (a *Agent) handleGameSelected(gameID, autoUpdateURL string) {
	a.log.Info("game id received", zap.String("game_id", gameID))

	if !a.catalog.Has(gameID) {
		if !isWellFormedURL(autoUpdateURL) {
			a.log.Error("game unavailable and no valid update source",
				zap.String("game_id", gameID))
			a.mu.Lock()
			a.selectionFailed = true
			a.mu.Unlock()
			a.msgr.Show(GameSelectionErrorMessage, true)
			return
		}
		go a.downloadAndStart(autoUpdateURL)
	} else {
		if err := a.catalog.Select(gameID); err != nil {
			a.mu.Lock()
			a.selectionFailed = true
			a.mu.Unlock()
			a.msgr.Show(GameSelectionErrorMessage, true)
			return
		}
		a.negotiateDeck()
	}

	a.sendMsg(types.ClientMessage{Type: types.MsgPlayerRotation})
}

func (a *Agent) downloadAndStart(updateURL string) {
	a.log.Info("downloading game", zap.String("url", updateURL))
	if err := a.catalog.Download(context.Background(), updateURL); err != nil {
		a.log.Error("game download failed", zap.Error(err))
		a.mu.Lock()
		a.selectionFailed = true
		a.mu.Unlock()
		a.msgr.Show(GameSelectionErrorMessage, true)
		return
	}
	a.negotiateDeck()
}

// negotiateDeck runs the deck-share negotiation for the active game's
// configured preference. It runs on first start and after every restart.
func (a *Agent) negotiateDeck() {
	switch a.catalog.Current().SharePreference {
	case engine.ShareIndividual:
		a.showDeckMenu()
	case engine.ShareShared:
		a.RequestSharedDeck()
	default: // ShareAsk
		a.msgr.Ask(ShareDeckRequest, a.RequestSharedDeck, a.showDeckMenu)
	}
}

func (a *Agent) handleDealt(cardIDs []string) {
	// The host pads short deals with placeholders; drop those and the
	// blank sentinel before touching the hand.
	kept := make([]string, 0, len(cardIDs))
	for _, id := range cardIDs {
		if id == "" || id == engine.BlankCardID {
			continue
		}
		kept = append(kept, id)
	}
	if len(kept) == 0 {
		return
	}

	a.mu.Lock()
	hand := a.activeHand
	a.mu.Unlock()

	current := []string{}
	if hand >= 0 && hand < a.Observed.Hands.Len() {
		current = append(current, a.Observed.Hands.Get(hand).CardIDs...)
	}
	a.RequestSyncHand(hand, append(current, kept...))
}

func (a *Agent) handleRestart() {
	a.log.Info("session restarting")
	if a.ResetPlayArea != nil {
		a.ResetPlayArea()
	}
	if a.isHost || a.catalog.Current().SharePreference == engine.ShareIndividual {
		a.showDeckMenu()
		return
	}
	a.negotiateDeck()
}

func (a *Agent) showDeckMenu() {
	if a.ShowDeckMenu != nil {
		a.ShowDeckMenu()
	}
}

func (a *Agent) promptForHand() {
	if a.PromptForHand != nil {
		a.PromptForHand()
	}
}

func (a *Agent) sendMsg(msg types.ClientMessage) {
	if err := a.send(msg); err != nil {
		a.log.Error("request send failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

// RotationForCount derives the seating rotation from the connected
// participant count.
func RotationForCount(playerCount int) int {
	switch {
	case playerCount%4 == 0:
		return 270
	case playerCount%3 == 0:
		return 90
	case playerCount%2 == 0:
		return 180
	default:
		return 0
	}
}

func isWellFormedURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

package player

import (
	"github.com/playtable/tabletopnet/internal/engine"
	"github.com/playtable/tabletopnet/internal/types"
)

// Request helpers: each issues one request to the host. The host is the
// only process that mutates canonical state; nothing here is applied
// locally until it comes back through replication or a targeted response.

func (a *Agent) RequestNameUpdate(playerName string) {
	a.sendMsg(types.ClientMessage{Type: types.MsgUpdateName, Name: playerName})
}

func (a *Agent) RequestPointsUpdate(points int) {
	a.sendMsg(types.ClientMessage{Type: types.MsgUpdatePoints, Points: points})
}

// RequestNewDeck creates a stack flagged as this participant's deck at
// the deck spawn position.
func (a *Agent) RequestNewDeck(deckName string, cardIDs []string, position engine.Vector2) {
	a.sendMsg(types.ClientMessage{
		Type:    types.MsgCreateStack,
		Name:    deckName,
		CardIDs: cardIDs,
		IsDeck:  true,
		X:       position.X,
		Y:       position.Y,
	})
}

func (a *Agent) RequestNewCardStack(stackName string, cardIDs []string, position engine.Vector2) {
	a.sendMsg(types.ClientMessage{
		Type:    types.MsgCreateStack,
		Name:    stackName,
		CardIDs: cardIDs,
		X:       position.X,
		Y:       position.Y,
	})
}

func (a *Agent) RequestShuffle(stack string) {
	a.sendMsg(types.ClientMessage{Type: types.MsgShuffle, Stack: stack})
}

func (a *Agent) RequestInsert(stack string, index int, cardID string) {
	a.sendMsg(types.ClientMessage{Type: types.MsgInsert, Stack: stack, Index: index, CardID: cardID})
}

// RequestRemoveAt asks the host to remove the card at index; onRemoved
// receives the removed id when the targeted response arrives. An invalid
// index is a host-side no-op and onRemoved is never called.
func (a *Agent) RequestRemoveAt(stack string, index int, onRemoved func(cardID string)) {
	a.mu.Lock()
	a.pendingRemoved = onRemoved
	a.mu.Unlock()
	a.sendMsg(types.ClientMessage{Type: types.MsgRemoveAt, Stack: stack, Index: index})
}

func (a *Agent) RequestDeal(stack string, count int) {
	a.sendMsg(types.ClientMessage{Type: types.MsgDeal, Stack: stack, Count: count})
}

func (a *Agent) RequestSharedDeck() {
	a.sendMsg(types.ClientMessage{Type: types.MsgShareDeck})
}

func (a *Agent) RequestSpawnCard(cardID string, position engine.Vector2, rotation float64, faceDown bool) {
	a.sendMsg(types.ClientMessage{
		Type:     types.MsgSpawnCard,
		CardID:   cardID,
		X:        position.X,
		Y:        position.Y,
		Rotation: rotation,
		FaceDown: faceDown,
	})
}

func (a *Agent) RequestDespawnCard(card string) {
	a.sendMsg(types.ClientMessage{Type: types.MsgDespawnCard, Card: card})
}

func (a *Agent) RequestNewDie(min, max int) {
	a.sendMsg(types.ClientMessage{Type: types.MsgCreateDie, Min: min, Max: max})
}

func (a *Agent) RequestNewHand(handName string) {
	a.sendMsg(types.ClientMessage{Type: types.MsgNewHand, Name: handName})
}

func (a *Agent) RequestUseHand(handIndex int) {
	a.sendMsg(types.ClientMessage{Type: types.MsgUseHand, Index: handIndex})
}

func (a *Agent) RequestSyncHand(handIndex int, cardIDs []string) {
	a.sendMsg(types.ClientMessage{Type: types.MsgSyncHand, Index: handIndex, CardIDs: cardIDs})
}

func (a *Agent) RequestRestart() {
	a.sendMsg(types.ClientMessage{Type: types.MsgRestart})
}

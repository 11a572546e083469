// Package types holds the wire messages exchanged between the host and
// its peers.
package types

import "github.com/playtable/tabletopnet/internal/engine"

// Request type strings, participant -> host.
const (
	MsgUpdateName     = "UpdateName"
	MsgUpdatePoints   = "UpdatePoints"
	MsgCreateStack    = "CreateStack"
	MsgShuffle        = "Shuffle"
	MsgInsert         = "Insert"
	MsgRemoveAt       = "RemoveAt"
	MsgDeal           = "Deal"
	MsgShareDeck      = "ShareDeck"
	MsgSpawnCard      = "SpawnCard"
	MsgDespawnCard    = "DespawnCard"
	MsgCreateDie      = "CreateDie"
	MsgNewHand        = "NewHand"
	MsgUseHand        = "UseHand"
	MsgSyncHand       = "SyncHand"
	MsgSelectGame     = "SelectGame"
	MsgPlayerRotation = "PlayerRotation"
	MsgRestart        = "Restart"
)

// Response type strings, host -> participant.
const (
	MsgStateSnapshot = "StateSnapshot"
	MsgStackCreated  = "StackCreated"
	MsgCardRemoved   = "CardRemoved"
	MsgDealt         = "Dealt"
	MsgDeckShared    = "DeckShared"
	MsgHandUsed      = "HandUsed"
	MsgHandSynced    = "HandSynced"
	MsgGameSelected  = "GameSelected"
	MsgRotation      = "Rotation"
	MsgRestarted     = "Restarted"
	MsgError         = "Error"
)

// ClientMessage carries one request to the host. Only the fields relevant
// to Type are populated.
type ClientMessage struct {
	Type     string   `json:"type"`
	Name     string   `json:"name,omitempty"`
	Points   int      `json:"points,omitempty"`
	CardIDs  []string `json:"card_ids,omitempty"`
	CardID   string   `json:"card_id,omitempty"`
	IsDeck   bool     `json:"is_deck,omitempty"`
	Stack    string   `json:"stack,omitempty"`
	Card     string   `json:"card,omitempty"`
	Index    int      `json:"index,omitempty"`
	Count    int      `json:"count,omitempty"`
	Min      int      `json:"min,omitempty"`
	Max      int      `json:"max,omitempty"`
	X        float64  `json:"x,omitempty"`
	Y        float64  `json:"y,omitempty"`
	Rotation float64  `json:"rotation,omitempty"`
	FaceDown bool     `json:"face_down,omitempty"`
}

// ServerMessage is either a replicated state snapshot (broadcast to every
// participant) or a targeted response delivered to one requester only.
type ServerMessage struct {
	Type          string        `json:"type"`
	Version       int           `json:"version,omitempty"`
	State         *engine.State `json:"state,omitempty"`
	YourID        string        `json:"your_id,omitempty"`
	Stack         string        `json:"stack,omitempty"`
	CardID        string        `json:"card_id,omitempty"`
	CardIDs       []string      `json:"card_ids,omitempty"`
	Index         int           `json:"index,omitempty"`
	PlayerCount   int           `json:"player_count,omitempty"`
	GameID        string        `json:"game_id,omitempty"`
	AutoUpdateURL string        `json:"auto_update_url,omitempty"`
	Error         string        `json:"error,omitempty"`
}

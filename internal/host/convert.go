package host

import (
	"github.com/playtable/tabletopnet/internal/engine"
	"github.com/playtable/tabletopnet/internal/types"
)

func toCommand(peerID string, m types.ClientMessage) (engine.Command, bool) {
	cmd := engine.Command{
		Actor:    peerID,
		Name:     m.Name,
		Points:   m.Points,
		CardIDs:  m.CardIDs,
		CardID:   m.CardID,
		IsDeck:   m.IsDeck,
		Stack:    engine.EntityID(m.Stack),
		Card:     engine.EntityID(m.Card),
		Index:    m.Index,
		Count:    m.Count,
		Min:      m.Min,
		Max:      m.Max,
		Position: engine.Vector2{X: m.X, Y: m.Y},
		Rotation: m.Rotation,
		FaceDown: m.FaceDown,
	}

	switch m.Type {
	case types.MsgUpdateName:
		cmd.Type = engine.CmdUpdateName
	case types.MsgUpdatePoints:
		cmd.Type = engine.CmdUpdatePoints
	case types.MsgCreateStack:
		cmd.Type = engine.CmdCreateStack
	case types.MsgShuffle:
		cmd.Type = engine.CmdShuffle
	case types.MsgInsert:
		cmd.Type = engine.CmdInsert
	case types.MsgRemoveAt:
		cmd.Type = engine.CmdRemoveAt
	case types.MsgDeal:
		cmd.Type = engine.CmdDeal
	case types.MsgShareDeck:
		cmd.Type = engine.CmdShareDeck
	case types.MsgSpawnCard:
		cmd.Type = engine.CmdSpawnCard
	case types.MsgDespawnCard:
		cmd.Type = engine.CmdDespawnCard
	case types.MsgCreateDie:
		cmd.Type = engine.CmdCreateDie
	case types.MsgNewHand:
		cmd.Type = engine.CmdNewHand
	case types.MsgUseHand:
		cmd.Type = engine.CmdUseHand
	case types.MsgSyncHand:
		cmd.Type = engine.CmdSyncHand
	case types.MsgSelectGame:
		cmd.Type = engine.CmdSelectGame
	case types.MsgPlayerRotation:
		cmd.Type = engine.CmdPlayerRotation
	case types.MsgRestart:
		cmd.Type = engine.CmdRestart
	default:
		return engine.Command{}, false
	}
	return cmd, true
}

func eventToMessage(ev engine.Event) types.ServerMessage {
	msg := types.ServerMessage{
		Stack:         string(ev.Stack),
		CardID:        ev.CardID,
		CardIDs:       ev.CardIDs,
		Index:         ev.Index,
		PlayerCount:   ev.PlayerCount,
		GameID:        ev.GameID,
		AutoUpdateURL: ev.AutoUpdateURL,
	}

	switch ev.Type {
	case engine.EvtStackCreated:
		msg.Type = types.MsgStackCreated
	case engine.EvtCardRemoved:
		msg.Type = types.MsgCardRemoved
	case engine.EvtDealt:
		msg.Type = types.MsgDealt
	case engine.EvtDeckShared:
		msg.Type = types.MsgDeckShared
	case engine.EvtHandUsed:
		msg.Type = types.MsgHandUsed
	case engine.EvtHandSynced:
		msg.Type = types.MsgHandSynced
	case engine.EvtGameSelected:
		msg.Type = types.MsgGameSelected
	case engine.EvtRotation:
		msg.Type = types.MsgRotation
	case engine.EvtRestarted:
		msg.Type = types.MsgRestarted
	}
	return msg
}

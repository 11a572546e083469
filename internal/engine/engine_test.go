package engine

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
)

func testRng() *rand.Rand { return rand.New(rand.NewSource(1)) }

func stateWithStack(cards ...string) (State, EntityID) {
	s := NewState("host", GameInfo{ID: "standard"})
	s.SpawnParticipant("host", "Host")
	s.SpawnParticipant("p1", "One")
	stack := &CardStack{ID: "stack-1", Name: "Pile", CardIDs: append([]string{}, cards...)}
	s.Stacks[stack.ID] = stack
	return s, stack.ID
}

func TestShufflePreservesMultiset(t *testing.T) {
	cases := []struct {
		name  string
		cards []string
	}{
		{name: "empty", cards: nil},
		{name: "single", cards: []string{"a"}},
		{name: "many", cards: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, stackID := stateWithStack(tc.cards...)
			_, next, err := Apply(s, Command{Type: CmdShuffle, Actor: "p1", Stack: stackID}, testRng())
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}

			got := append([]string{}, next.Stacks[stackID].CardIDs...)
			want := append([]string{}, tc.cards...)
			sort.Strings(got)
			sort.Strings(want)
			if len(got) != len(want) {
				t.Fatalf("shuffle changed length: got %d want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("shuffle changed multiset: got %v want %v", got, want)
				}
			}
		})
	}
}

func TestInsertClampsIndex(t *testing.T) {
	cases := []struct {
		name  string
		index int
		want  []string
	}{
		{name: "far negative clamps to front", index: -5, want: []string{"x", "a", "b", "c"}},
		{name: "zero", index: 0, want: []string{"x", "a", "b", "c"}},
		{name: "middle", index: 1, want: []string{"a", "x", "b", "c"}},
		{name: "length appends", index: 3, want: []string{"a", "b", "c", "x"}},
		{name: "past end clamps to back", index: 99, want: []string{"a", "b", "c", "x"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, stackID := stateWithStack("a", "b", "c")
			_, next, err := Apply(s, Command{
				Type: CmdInsert, Actor: "p1", Stack: stackID, Index: tc.index, CardID: "x",
			}, testRng())
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			got := next.Stacks[stackID].CardIDs
			if len(got) != len(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v want %v", got, tc.want)
				}
			}
		})
	}
}

func TestRemoveAtBoundaries(t *testing.T) {
	t.Run("valid index responds to requester only", func(t *testing.T) {
		s, stackID := stateWithStack("a", "b", "c")
		events, next, err := Apply(s, Command{Type: CmdRemoveAt, Actor: "p1", Stack: stackID, Index: 1}, testRng())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if len(events) != 1 || events[0].Type != EvtCardRemoved || events[0].CardID != "b" {
			t.Fatalf("want targeted CardRemoved(b), got %+v", events)
		}
		if events[0].Target != "p1" {
			t.Fatalf("response must target the requester, got %q", events[0].Target)
		}
		if got := next.Stacks[stackID].CardIDs; len(got) != 2 || got[0] != "a" || got[1] != "c" {
			t.Fatalf("stack after remove: %v", got)
		}
	})

	t.Run("empty stack is a silent no-op", func(t *testing.T) {
		s, stackID := stateWithStack()
		events, next, err := Apply(s, Command{Type: CmdRemoveAt, Actor: "p1", Stack: stackID, Index: 0}, testRng())
		if err != nil || len(events) != 0 {
			t.Fatalf("want silent no-op, got events=%v err=%v", events, err)
		}
		if len(next.Stacks[stackID].CardIDs) != 0 {
			t.Fatalf("state mutated by no-op")
		}
	})

	t.Run("invalid index is a silent no-op", func(t *testing.T) {
		s, stackID := stateWithStack("a")
		events, next, err := Apply(s, Command{Type: CmdRemoveAt, Actor: "p1", Stack: stackID, Index: 5}, testRng())
		if err != nil || len(events) != 0 {
			t.Fatalf("want silent no-op, got events=%v err=%v", events, err)
		}
		if len(next.Stacks[stackID].CardIDs) != 1 {
			t.Fatalf("state mutated by no-op")
		}
	})

	t.Run("stale stack reference", func(t *testing.T) {
		s, _ := stateWithStack("a")
		_, _, err := Apply(s, Command{Type: CmdRemoveAt, Actor: "p1", Stack: "gone", Index: 0}, testRng())
		if !errors.Is(err, ErrEntityNotFound) {
			t.Fatalf("want ErrEntityNotFound, got %v", err)
		}
	})
}

func TestDealPadsShortStacks(t *testing.T) {
	s, stackID := stateWithStack("a", "b")
	events, next, err := Apply(s, Command{Type: CmdDeal, Actor: "p1", Stack: stackID, Count: 5}, testRng())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(events) != 1 || events[0].Type != EvtDealt || events[0].Target != "p1" {
		t.Fatalf("want targeted Dealt, got %+v", events)
	}

	got := events[0].CardIDs
	want := []string{"a", "b", "", "", ""}
	if len(got) != len(want) {
		t.Fatalf("dealt %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dealt %v want %v", got, want)
		}
	}
	if len(next.Stacks[stackID].CardIDs) != 0 {
		t.Fatalf("stack should end empty, got %v", next.Stacks[stackID].CardIDs)
	}
}

func TestDealTakesFromTopInOrder(t *testing.T) {
	s, stackID := stateWithStack("1", "2", "3", "4", "5", "6", "7", "8", "9", "10")
	events, next, err := Apply(s, Command{Type: CmdDeal, Actor: "p1", Stack: stackID, Count: 3}, testRng())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got := events[0].CardIDs
	if len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Fatalf("want pre-deal top 3, got %v", got)
	}
	if len(next.Stacks[stackID].CardIDs) != 7 {
		t.Fatalf("stack should have 7 left, got %d", len(next.Stacks[stackID].CardIDs))
	}
}

func TestNewDeckSetsCurrentDeck(t *testing.T) {
	s := NewState("host", GameInfo{ID: "standard"})
	s.SpawnParticipant("host", "Host")

	cards := []string{"c1", "c2", "c3"}
	events, next, err := Apply(s, Command{
		Type: CmdCreateStack, Actor: "host", Name: "Deck", CardIDs: cards, IsDeck: true,
	}, testRng())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(events) != 1 || events[0].Type != EvtStackCreated {
		t.Fatalf("want StackCreated, got %+v", events)
	}

	deckID := next.Participants["host"].CurrentDeck
	if deckID == "" {
		t.Fatalf("CurrentDeck not set")
	}
	if !next.Stacks[deckID].IsDeck || len(next.Stacks[deckID].CardIDs) != 3 {
		t.Fatalf("deck stack wrong: %+v", next.Stacks[deckID])
	}
}

func TestShareDeck(t *testing.T) {
	t.Run("host deck is assigned and flagged shared", func(t *testing.T) {
		s, stackID := stateWithStack("a")
		s.Participants["host"].CurrentDeck = stackID

		events, next, err := Apply(s, Command{Type: CmdShareDeck, Actor: "p1"}, testRng())
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if len(events) != 1 || events[0].Type != EvtDeckShared || events[0].Target != "p1" || events[0].Stack != stackID {
			t.Fatalf("want targeted DeckShared(%s), got %+v", stackID, events)
		}
		p := next.Participants["p1"]
		if p.CurrentDeck != stackID || !p.IsDeckShared {
			t.Fatalf("requester deck not shared: %+v", p)
		}
	})

	t.Run("no host deck rejects", func(t *testing.T) {
		s, _ := stateWithStack("a")
		_, _, err := Apply(s, Command{Type: CmdShareDeck, Actor: "p1"}, testRng())
		if !errors.Is(err, ErrNoDeckToShare) {
			t.Fatalf("want ErrNoDeckToShare, got %v", err)
		}
	})
}

func TestSyncHandOutOfRangeLeavesHandsUnmodified(t *testing.T) {
	s := NewState("host", GameInfo{})
	s.SpawnParticipant("p1", "One")
	s.Participants["p1"].Hands = []Hand{{Name: "Hand 1", CardIDs: []string{"a"}}}

	for _, index := range []int{-1, 1, 2, 100} {
		_, next, err := Apply(s, Command{
			Type: CmdSyncHand, Actor: "p1", Index: index, CardIDs: []string{"x"},
		}, testRng())
		if !errors.Is(err, ErrHandIndexOutOfBounds) {
			t.Fatalf("index %d: want ErrHandIndexOutOfBounds, got %v", index, err)
		}
		hands := next.Participants["p1"].Hands
		if len(hands) != 1 || len(hands[0].CardIDs) != 1 || hands[0].CardIDs[0] != "a" {
			t.Fatalf("index %d: hands modified: %+v", index, hands)
		}
	}
}

func TestHandLifecycle(t *testing.T) {
	s := NewState("host", GameInfo{})
	s.SpawnParticipant("p1", "One")

	events, s2, err := Apply(s, Command{Type: CmdNewHand, Actor: "p1", Name: "Hand 1"}, testRng())
	if err != nil {
		t.Fatalf("new hand: %v", err)
	}
	if len(events) != 1 || events[0].Type != EvtHandUsed || events[0].Index != 0 {
		t.Fatalf("want HandUsed(0), got %+v", events)
	}

	_, s3, err := Apply(s2, Command{Type: CmdNewHand, Actor: "p1", Name: "Hand 2"}, testRng())
	if err != nil {
		t.Fatalf("second hand: %v", err)
	}
	if s3.Participants["p1"].CurrentHand != 1 {
		t.Fatalf("new hand should become active, got %d", s3.Participants["p1"].CurrentHand)
	}

	_, s4, err := Apply(s3, Command{Type: CmdUseHand, Actor: "p1", Index: 0}, testRng())
	if err != nil {
		t.Fatalf("use hand: %v", err)
	}
	if s4.Participants["p1"].CurrentHand != 0 {
		t.Fatalf("use hand did not switch, got %d", s4.Participants["p1"].CurrentHand)
	}

	if _, _, err := Apply(s4, Command{Type: CmdUseHand, Actor: "p1", Index: 5}, testRng()); !errors.Is(err, ErrHandIndexOutOfBounds) {
		t.Fatalf("want ErrHandIndexOutOfBounds, got %v", err)
	}

	events, s5, err := Apply(s4, Command{
		Type: CmdSyncHand, Actor: "p1", Index: 0, CardIDs: []string{"a", "b"},
	}, testRng())
	if err != nil {
		t.Fatalf("sync hand: %v", err)
	}
	if events[0].Type != EvtHandSynced || events[0].Target != "p1" {
		t.Fatalf("want targeted HandSynced, got %+v", events)
	}
	if got := s5.Participants["p1"].Hands[0].CardIDs; len(got) != 2 {
		t.Fatalf("hand not synced: %v", got)
	}
}

func TestCreateDieRollsWithinRange(t *testing.T) {
	s := NewState("host", GameInfo{})
	s.SpawnParticipant("p1", "One")

	for seed := int64(0); seed < 20; seed++ {
		_, next, err := Apply(s, Command{Type: CmdCreateDie, Actor: "p1", Min: 1, Max: 6},
			rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		for _, die := range next.Dice {
			if die.Value < 1 || die.Value > 6 {
				t.Fatalf("die value %d outside [1,6]", die.Value)
			}
		}
	}

	if _, _, err := Apply(s, Command{Type: CmdCreateDie, Actor: "p1", Min: 6, Max: 1}, testRng()); !errors.Is(err, ErrInvalidDieRange) {
		t.Fatalf("want ErrInvalidDieRange, got %v", err)
	}
}

func TestCardEntityLifecycle(t *testing.T) {
	s := NewState("host", GameInfo{})
	s.SpawnParticipant("p1", "One")

	_, s2, err := Apply(s, Command{
		Type: CmdSpawnCard, Actor: "p1", CardID: "ace",
		Position: Vector2{X: 1, Y: 2}, Rotation: 90, FaceDown: true,
	}, testRng())
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if len(s2.Cards) != 1 {
		t.Fatalf("want one card entity, got %d", len(s2.Cards))
	}

	var cardID EntityID
	for id, card := range s2.Cards {
		cardID = id
		if card.CardID != "ace" || !card.FaceDown || card.Rotation != 90 {
			t.Fatalf("card entity wrong: %+v", card)
		}
	}

	_, s3, err := Apply(s2, Command{Type: CmdDespawnCard, Actor: "p1", Card: cardID}, testRng())
	if err != nil {
		t.Fatalf("despawn: %v", err)
	}
	if len(s3.Cards) != 0 {
		t.Fatalf("card entity not despawned")
	}

	if _, _, err := Apply(s3, Command{Type: CmdDespawnCard, Actor: "p1", Card: cardID}, testRng()); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("want ErrEntityNotFound for stale id, got %v", err)
	}
}

func TestRestartClearsSharedEntities(t *testing.T) {
	s, stackID := stateWithStack("a", "b")
	s.Participants["host"].CurrentDeck = stackID
	s.Participants["p1"].IsDeckShared = true
	s.Participants["p1"].Hands = []Hand{{Name: "Hand 1", CardIDs: []string{"a"}}}
	s.Cards["card-1"] = &CardEntity{ID: "card-1", CardID: "x"}
	s.Dice["die-1"] = &Die{ID: "die-1", Min: 1, Max: 6, Value: 3}

	events, next, err := Apply(s, Command{Type: CmdRestart, Actor: "host"}, testRng())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(events) != 1 || events[0].Type != EvtRestarted || events[0].Target != "" {
		t.Fatalf("restart must broadcast to everyone, got %+v", events)
	}
	if len(next.Stacks) != 0 || len(next.Cards) != 0 || len(next.Dice) != 0 {
		t.Fatalf("entities not cleared: %d stacks %d cards %d dice",
			len(next.Stacks), len(next.Cards), len(next.Dice))
	}
	for id, p := range next.Participants {
		if p.CurrentDeck != "" || p.IsDeckShared {
			t.Fatalf("participant %s still holds deck state: %+v", id, p)
		}
		for _, hand := range p.Hands {
			if len(hand.CardIDs) != 0 {
				t.Fatalf("participant %s hand not cleared", id)
			}
		}
	}
}

func TestUnknownActorRejected(t *testing.T) {
	s := NewState("host", GameInfo{})
	_, _, err := Apply(s, Command{Type: CmdUpdateName, Actor: "ghost", Name: "x"}, testRng())
	if !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("want ErrUnknownParticipant, got %v", err)
	}
}

// TestStackOpsMatchReferenceList replays a mixed request sequence against
// both the engine and a plain slice and demands identical outcomes.
func TestStackOpsMatchReferenceList(t *testing.T) {
	type op struct {
		kind  string
		index int
		card  string
		count int
	}
	ops := []op{
		{kind: "insert", index: 0, card: "x1"},
		{kind: "insert", index: 99, card: "x2"},
		{kind: "removeAt", index: 1},
		{kind: "insert", index: -3, card: "x3"},
		{kind: "deal", count: 2},
		{kind: "removeAt", index: 50},
		{kind: "insert", index: 2, card: "x4"},
		{kind: "deal", count: 10},
		{kind: "removeAt", index: 0},
		{kind: "insert", index: 1, card: "x5"},
	}

	s, stackID := stateWithStack("a", "b", "c", "d")
	ref := []string{"a", "b", "c", "d"}

	for i, o := range ops {
		var cmd Command
		switch o.kind {
		case "insert":
			cmd = Command{Type: CmdInsert, Actor: "p1", Stack: stackID, Index: o.index, CardID: o.card}
			idx := o.index
			if idx < 0 {
				idx = 0
			}
			if idx > len(ref) {
				idx = len(ref)
			}
			ref = append(ref[:idx], append([]string{o.card}, ref[idx:]...)...)
		case "removeAt":
			cmd = Command{Type: CmdRemoveAt, Actor: "p1", Stack: stackID, Index: o.index}
			if o.index >= 0 && o.index < len(ref) {
				ref = append(ref[:o.index], ref[o.index+1:]...)
			}
		case "deal":
			cmd = Command{Type: CmdDeal, Actor: "p1", Stack: stackID, Count: o.count}
			n := o.count
			if n > len(ref) {
				n = len(ref)
			}
			ref = ref[n:]
		}

		var err error
		_, s, err = Apply(s, cmd, testRng())
		if err != nil {
			t.Fatalf("op %d (%s): %v", i, o.kind, err)
		}

		got := s.Stacks[stackID].CardIDs
		if len(got) != len(ref) {
			t.Fatalf("op %d (%s): got %v want %v", i, o.kind, got, ref)
		}
		for j := range ref {
			if got[j] != ref[j] {
				t.Fatalf("op %d (%s): got %v want %v", i, o.kind, got, ref)
			}
		}
	}
}

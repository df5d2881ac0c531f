package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tiny-town/internal/agents"
	"github.com/talgya/tiny-town/internal/scenario"
	"github.com/talgya/tiny-town/internal/sim"
)

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name: "test",
		Locations: []scenario.Location{
			{Name: "Cafe"}, {Name: "Park"}, {Name: "Home"},
		},
		Characters: []scenario.SeedCharacter{
			{ID: "ana", Name: "Ana", Role: "baker", Archetype: "none", Home: "Home"},
			{ID: "ben", Name: "Ben", Role: "teacher", Archetype: "none", Home: "Home"},
		},
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "town.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadWithoutSnapshot(t *testing.T) {
	db := openTestDB(t)
	w := sim.NewWorld(testScenario(), 1, 10, nil)

	loaded, err := db.LoadWorldState(w)
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	sc := testScenario()

	w := sim.NewWorld(sc, 1, 10, nil)
	w.Tick = sim.TickAt(3, 14, 20)

	ana := w.Characters["ana"]
	ana.Location = "Cafe"
	ana.Energy = 42
	ana.Mood = "wistful"
	ana.DailyPlan = "bake, then see Ben"
	ana.ReflectedOnDay = 2
	ana.Journal = []agents.Memory{
		{Tick: sim.TickAt(2, 9, 0), Description: "chatted with Ben", Poignancy: 4, Type: agents.MemoryConversation},
		{Tick: sim.TickAt(4, 15, 0), Description: "Plan: picnic at the Park", Poignancy: 7, Type: agents.MemoryPlan},
	}
	ana.Relationships["ben"] = &agents.Relationship{
		Affection: 63, Trust: 55, Respect: 50, Familiarity: 30,
		Type: "friend", Summary: "an old friend from the market",
		InteractionCount: 4, ConversationCount: 2,
	}
	ana.Inbox = []agents.InboxMessage{
		{ID: "m1", From: "ben", Body: "morning!", SentTick: 10, ReadTick: 12},
	}
	ana.HasNewMessage = true
	ana.NewMessageAlert = "Ben wrote: morning!"

	convID := "conv-1"
	w.Conversations[convID] = &sim.Conversation{
		ID: convID, Location: "Cafe",
		Participants: []string{"ana", "ben"},
		Historical:   []string{"ana", "ben"},
		TurnHolder:   "ben",
		Active:       true,
		StartedTick:  w.Tick - 20,
		Log: []sim.ConversationTurn{
			{SpeakerID: "ana", SpeakerName: "Ana", Text: "hello", Tick: w.Tick - 20},
		},
	}
	ana.ConversationID = &convID
	benID := convID
	w.Characters["ben"].ConversationID = &benID

	w.Queue = []sim.QueuedMessage{
		{ID: "q1", From: "ben", To: "ana", Body: "in flight", SentTick: 5, DeliverTick: 9999},
	}
	w.Events = []sim.Event{
		{Tick: 100, Description: "Ana heads to Cafe", Category: "movement"},
		{Tick: 120, Description: "a plan formed", Category: "plan"},
	}

	require.NoError(t, db.SaveWorldState(w))

	restored := sim.NewWorld(sc, 1, 10, nil)
	loaded, err := db.LoadWorldState(restored)
	require.NoError(t, err)
	require.True(t, loaded)

	assert.Equal(t, w.Tick, restored.Tick)

	got := restored.Characters["ana"]
	assert.Equal(t, "Cafe", got.Location)
	assert.Equal(t, 42.0, got.Energy)
	assert.Equal(t, "wistful", got.Mood)
	assert.Equal(t, "bake, then see Ben", got.DailyPlan)
	assert.Equal(t, 2, got.ReflectedOnDay)
	require.Len(t, got.Journal, 2)
	assert.Equal(t, agents.MemoryPlan, got.Journal[1].Type)
	require.NotNil(t, got.Relationships["ben"])
	assert.Equal(t, 63.0, got.Relationships["ben"].Affection)
	assert.Equal(t, "friend", got.Relationships["ben"].Type)
	require.Len(t, got.Inbox, 1)
	assert.True(t, got.HasNewMessage)
	require.NotNil(t, got.ConversationID)
	assert.Equal(t, convID, *got.ConversationID)

	conv := restored.Conversations[convID]
	require.NotNil(t, conv)
	assert.True(t, conv.Active)
	assert.Equal(t, "ben", conv.TurnHolder)
	assert.Equal(t, []string{"ana", "ben"}, conv.Participants)
	require.Len(t, conv.Log, 1)
	assert.Equal(t, "hello", conv.Log[0].Text)

	require.Len(t, restored.Queue, 1)
	assert.Equal(t, "in flight", restored.Queue[0].Body)

	require.Len(t, restored.Events, 2)
	assert.Equal(t, "a plan formed", restored.Events[1].Description)

	ben := restored.Characters["ben"]
	assert.Equal(t, 80.0, ben.Energy)
	require.NotNil(t, ben.ConversationID)
	assert.Equal(t, convID, *ben.ConversationID)
}

func TestSaveIsFullReplace(t *testing.T) {
	db := openTestDB(t)
	sc := testScenario()
	w := sim.NewWorld(sc, 1, 10, nil)

	w.Events = []sim.Event{{Tick: 1, Description: "first", Category: "test"}}
	require.NoError(t, db.SaveWorldState(w))

	w.Events = []sim.Event{{Tick: 2, Description: "second", Category: "test"}}
	require.NoError(t, db.SaveWorldState(w))

	events, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "second", events[0].Description)
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("seed", "42"))
	require.NoError(t, db.SaveMeta("seed", "43"))

	v, err := db.GetMeta("seed")
	require.NoError(t, err)
	assert.Equal(t, "43", v)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}

package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tiny-town/internal/agents"
)

// addPlanMemory plants an imminent high-poignancy plan, which forces the
// reasoning gate open regardless of the dice.
func addPlanMemory(c *agents.Character, due uint64) {
	agents.AddMemory(c, agents.Memory{
		Tick:        due,
		Description: "Plan: meet at the Park",
		Poignancy:   10,
		Type:        agents.MemoryPlan,
	})
}

func TestProposeFallsBackWhenModelFails(t *testing.T) {
	w := testWorld(t, failingLLM{})
	ana := w.Characters["ana"]
	addPlanMemory(ana, w.Tick+60)

	p := w.propose(ana)

	assert.Equal(t, KindTalkToSelf, p.Kind)
	assert.Contains(t, p.Message, "lost in thought")
	assert.Contains(t, p.Message, "model unavailable")
}

func TestAsleepCharactersNeverReason(t *testing.T) {
	w := testWorld(t, failingLLM{})
	ana := w.Characters["ana"]
	ana.Category = agents.CategorySleep
	ana.Status = "sleeping"
	addPlanMemory(ana, w.Tick+60)

	// Even with a plan pending, sleep wins and the script answers.
	p := w.propose(ana)

	assert.Equal(t, KindIdle, p.Kind)
	assert.Equal(t, "sleeping", p.Message)
}

func TestUnknownActionTagCoercesToTalkToSelf(t *testing.T) {
	w := testWorld(t, &scriptedLLM{action: `{"action": "composeSymphony"}`})
	ana := w.Characters["ana"]
	addPlanMemory(ana, w.Tick+60)

	p := w.propose(ana)

	assert.Equal(t, KindTalkToSelf, p.Kind)
	assert.Contains(t, p.Message, "composeSymphony")
}

func TestNonHolderListens(t *testing.T) {
	w := testWorld(t, failingLLM{})
	w.resolve([]Proposal{
		{CharacterID: "ana", Kind: KindStartConversation, Targets: []string{"Ben"}, Message: "hi"},
	})

	// Ben holds the turn; Ana waits without touching the model.
	p := w.propose(w.Characters["ana"])
	assert.Equal(t, KindListen, p.Kind)
}

func TestHolderWithoutModelLeavesPolitely(t *testing.T) {
	w := testWorld(t, nil)
	w.resolve([]Proposal{
		{CharacterID: "ana", Kind: KindStartConversation, Targets: []string{"Ben"}, Message: "hi"},
	})

	p := w.propose(w.Characters["ben"])
	assert.Equal(t, KindLeaveConversation, p.Kind)
	assert.NotEmpty(t, p.Message)
}

func TestStaleConversationReferenceIsRepaired(t *testing.T) {
	w := testWorld(t, nil)
	ana := w.Characters["ana"]
	gone := "no-such-conversation"
	ana.ConversationID = &gone

	p := w.propose(ana)

	assert.Nil(t, ana.ConversationID)
	assert.Equal(t, KindIdle, p.Kind)
}

func TestApplySchedulesLeavesConversationsInPlace(t *testing.T) {
	w := testWorld(t, nil)
	w.resolve([]Proposal{
		{CharacterID: "ana", Kind: KindStartConversation, Targets: []string{"Ben"}, Message: "hi"},
	})
	w.Characters["cho"].Location = "Park"

	w.applySchedules()

	// No schedules in the test scenario: free characters idle where
	// they are, and talkers are not pulled away mid-conversation.
	assert.Equal(t, "Cafe", w.Characters["ana"].Location)
	assert.Equal(t, "idling", w.Characters["cho"].Status)
	assert.Equal(t, agents.CategoryFree, w.Characters["cho"].Category)
}

func TestRelevantMemoriesFallBackToTopScored(t *testing.T) {
	// The selection prompt errors in scriptedLLM, so retrieval keeps
	// the three best-scored entries on its own.
	w := testWorld(t, &scriptedLLM{})
	ana := w.Characters["ana"]
	for i := 1; i <= 4; i++ {
		agents.AddMemory(ana, agents.Memory{
			Tick:        w.Tick,
			Description: fmt.Sprintf("memory %d", i),
			Poignancy:   i * 2,
			Type:        agents.MemoryConversation,
		})
	}

	got := w.relevantMemories(ana, nil)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"memory 4", "memory 3", "memory 2"}, got)
}

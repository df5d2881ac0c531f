package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tiny-town/internal/agents"
)

// endedTwoPersonConversation starts an ana/ben conversation and ends it
// by having ben leave, priming endedThisTurn for the distiller.
func endedTwoPersonConversation(w *World) *Conversation {
	w.resolve([]Proposal{
		{CharacterID: "ana", Kind: KindStartConversation, Targets: []string{"Ben"}, Message: "Want to grab coffee soon?"},
	})
	conv := activeConvs(w)[0]
	w.resolve([]Proposal{
		{CharacterID: "ben", Kind: KindContinueConversation, Message: "Sure, tomorrow afternoon?", NextSpeaker: "Ana"},
	})
	w.resolve([]Proposal{
		{CharacterID: "ana", Kind: KindLeaveConversation, Message: "It's a date. See you!"},
	})
	return conv
}

func findMemory(c *agents.Character, typ agents.MemoryType) *agents.Memory {
	for i := range c.Journal {
		if c.Journal[i].Type == typ {
			return &c.Journal[i]
		}
	}
	return nil
}

func TestDistillHarvestsPlanSummaryAndRelationships(t *testing.T) {
	gen := &scriptedLLM{
		plan: `{"day": 2, "hour": 15, "minute": 0, "activity": "coffee catch-up",
			"location": "Grind Coffee", "participants": ["Ana", "Ben"], "poignancy": 7}`,
		summary: `{"summary": "Ana made coffee plans with Ben.", "poignancy": 4}`,
		analysis: `{"relationshipType": "friend", "relationshipSummary": "warming up to them",
			"affectionChange": 3, "trustChange": 2, "respectChange": 1, "familiarityChange": 4,
			"energyModifier": 2, "stressModifier": -1, "moodInfluence": "positive",
			"memorableExperience": "made coffee plans"}`,
	}
	w := testWorld(t, gen)
	w.Tick = TickAt(1, 10, 0)

	endedTwoPersonConversation(w)
	w.distillEnded()

	for _, id := range []string{"ana", "ben"} {
		c := w.Characters[id]

		plan := findMemory(c, agents.MemoryPlan)
		require.NotNil(t, plan, "%s should remember the plan", id)
		// Plan memories are stamped with the due moment, not now.
		assert.Equal(t, TickAt(2, 15, 0), plan.Tick)
		assert.Equal(t, 7, plan.Poignancy)
		assert.Contains(t, plan.Description, "coffee catch-up")
		assert.Contains(t, plan.Description, "Grind Coffee")

		mem := findMemory(c, agents.MemoryConversation)
		require.NotNil(t, mem, "%s should remember the conversation", id)
		assert.Equal(t, w.Tick, mem.Tick)
		assert.Equal(t, 4, mem.Poignancy)
	}

	rel := w.Characters["ana"].Relationships["ben"]
	require.NotNil(t, rel)
	assert.Equal(t, "friend", rel.Type)
	assert.InDelta(t, 53.0, rel.Affection, 1e-9)
	assert.InDelta(t, 52.0, rel.Trust, 1e-9)
	assert.InDelta(t, 51.0, rel.Respect, 1e-9)
	assert.InDelta(t, 14.0, rel.Familiarity, 1e-9)
	assert.InDelta(t, 2.0, rel.EnergyModifier, 1e-9)
	assert.InDelta(t, -1.0, rel.StressModifier, 1e-9)
	assert.Contains(t, rel.SharedExperiences, "made coffee plans")
	assert.Equal(t, 1, rel.ConversationCount)
}

func TestDistillRejectsBadPlans(t *testing.T) {
	for name, plan := range map[string]string{
		"in the past":      `{"day": 1, "hour": 8, "minute": 0, "activity": "x", "location": "Park", "participants": ["Ana"]}`,
		"beyond horizon":   `{"day": 9, "hour": 8, "minute": 0, "activity": "x", "location": "Park", "participants": ["Ana"]}`,
		"unknown location": `{"day": 2, "hour": 8, "minute": 0, "activity": "x", "location": "Moonbase", "participants": ["Ana"]}`,
		"day zero":         `{"day": 0, "hour": 8, "minute": 0, "activity": "x", "location": "Park", "participants": ["Ana"]}`,
		"negative day":     `{"day": -3, "hour": 8, "minute": 0, "activity": "x", "location": "Park", "participants": ["Ana"]}`,
		"bad hour":         `{"day": 2, "hour": 26, "minute": 0, "activity": "x", "location": "Park", "participants": ["Ana"]}`,
		"no plan at all":   `null`,
	} {
		t.Run(name, func(t *testing.T) {
			gen := &scriptedLLM{
				plan:     plan,
				summary:  `{"summary": "small talk", "poignancy": 1}`,
				analysis: `{"relationshipType": "acquaintance"}`,
			}
			w := testWorld(t, gen)
			w.Tick = TickAt(1, 10, 0)

			endedTwoPersonConversation(w)
			w.distillEnded()

			assert.Nil(t, findMemory(w.Characters["ana"], agents.MemoryPlan))
		})
	}
}

func TestDistillStepsAreFaultIsolated(t *testing.T) {
	// The plan prompt errors out; summaries and relationship analysis
	// still run.
	gen := &scriptedLLM{
		plan:     "I could not find anything structured here.",
		summary:  `{"summary": "Ana caught up with Ben.", "poignancy": 3}`,
		analysis: `{"relationshipType": "friend", "affectionChange": 1}`,
	}
	w := testWorld(t, gen)

	endedTwoPersonConversation(w)
	w.distillEnded()

	ana := w.Characters["ana"]
	assert.Nil(t, findMemory(ana, agents.MemoryPlan))
	assert.NotNil(t, findMemory(ana, agents.MemoryConversation))
	assert.Equal(t, "friend", ana.Relationships["ben"].Type)
}

func TestDistillWithoutModelStillRecordsContact(t *testing.T) {
	w := testWorld(t, nil)

	endedTwoPersonConversation(w)
	w.distillEnded()

	ana := w.Characters["ana"]
	rel := ana.Relationships["ben"]
	require.NotNil(t, rel)
	assert.Equal(t, 1, rel.InteractionCount)
	assert.Equal(t, w.Tick, rel.LastInteraction)
	// No narrative work without a model.
	assert.Nil(t, findMemory(ana, agents.MemoryConversation))
}

func TestFailedAnalysisFallsBackToTouch(t *testing.T) {
	w := testWorld(t, failingLLM{})

	endedTwoPersonConversation(w)
	w.distillEnded()

	rel := w.Characters["ana"].Relationships["ben"]
	require.NotNil(t, rel)
	assert.Equal(t, 1, rel.InteractionCount)
	assert.Equal(t, 0, rel.ConversationCount)
	assert.InDelta(t, 50.0, rel.Affection, 1e-9)
}

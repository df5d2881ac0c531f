package sim

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tiny-town/internal/agents"
)

// nightlyLLM answers only the long-term thinking prompts.
type nightlyLLM struct{}

func (nightlyLLM) Complete(system, user string, maxTokens int) (string, error) {
	switch {
	case strings.Contains(system, "reflecting at the end of the day"):
		return "The town feels smaller every day, in a good way.", nil
	case strings.Contains(system, "Write a brief plan for your day"):
		return "I want to finish the morning bake early and visit the park.", nil
	case strings.Contains(system, "current inner state"):
		return `{"mood": "content", "statusDescription": "Ana is settled and quietly optimistic."}`, nil
	}
	return "", errors.New("unexpected prompt")
}

func seedJournal(c *agents.Character, n int, tick uint64) {
	for i := 0; i < n; i++ {
		agents.AddMemory(c, agents.Memory{
			Tick:        tick,
			Description: fmt.Sprintf("day event %d", i),
			Poignancy:   3,
			Type:        agents.MemoryConversation,
		})
	}
}

func TestNightlyPassRunsOncePerDay(t *testing.T) {
	w := testWorld(t, nightlyLLM{})
	w.Tick = TickAt(2, 0, 0)
	ana := w.Characters["ana"]
	seedJournal(ana, 6, TickAt(1, 20, 0))

	w.handleNightly()

	refl := findMemory(ana, agents.MemoryReflection)
	require.NotNil(t, refl)
	assert.Equal(t, 8, refl.Poignancy)
	assert.Contains(t, refl.Description, "smaller every day")

	assert.Equal(t, "content", ana.Mood)
	assert.Equal(t, "Ana is settled and quietly optimistic.", ana.StatusDescription)
	assert.Contains(t, ana.DailyPlan, "morning bake")
	assert.Equal(t, 2, ana.ReflectedOnDay)

	// The same night never triggers twice.
	before := len(ana.Journal)
	w.handleNightly()
	assert.Len(t, ana.Journal, before)
}

func TestNightlySkipsThinJournals(t *testing.T) {
	w := testWorld(t, nightlyLLM{})
	w.Tick = TickAt(2, 0, 0)
	ana := w.Characters["ana"]
	seedJournal(ana, 3, TickAt(1, 20, 0))

	w.handleNightly()

	// Too little material to reflect on, but the plan and mood still
	// refresh.
	assert.Nil(t, findMemory(ana, agents.MemoryReflection))
	assert.NotEmpty(t, ana.DailyPlan)
	assert.Equal(t, "content", ana.Mood)
}

func TestNightlyOnlyRunsAtMidnight(t *testing.T) {
	w := testWorld(t, nightlyLLM{})
	w.Tick = TickAt(2, 9, 0)
	ana := w.Characters["ana"]
	seedJournal(ana, 6, TickAt(1, 20, 0))

	w.handleNightly()

	assert.Zero(t, ana.ReflectedOnDay)
	assert.Empty(t, ana.DailyPlan)
}

func TestNightlyRequiresModel(t *testing.T) {
	w := testWorld(t, nil)
	w.Tick = TickAt(2, 0, 0)

	w.handleNightly()

	assert.Zero(t, w.Characters["ana"].ReflectedOnDay)
}

// Nightly long-term thinking: reflection, a fresh daily plan, and a
// mood refresh. Runs once per character per day, on the first turn at
// or after midnight.
package sim

import (
	"log/slog"

	"github.com/talgya/tiny-town/internal/agents"
	"github.com/talgya/tiny-town/internal/llm"
	"github.com/talgya/tiny-town/internal/scenario"
)

const (
	reflectionWindow    = 20 // recent memories considered
	reflectionMinimum   = 5  // too few memories, nothing to reflect on
	reflectionPoignancy = 8
)

// handleNightly runs the long-term thinking pass for characters that
// have not yet reflected on the current day.
func (w *World) handleNightly() {
	if !w.llmEnabled() {
		return
	}

	sit := SituationAt(w.Tick)
	if sit.Hour != 0 {
		return
	}

	for _, id := range w.Order {
		c := w.Characters[id]
		if c.ReflectedOnDay >= sit.Day {
			continue
		}
		c.ReflectedOnDay = sit.Day

		w.reflect(c)
		w.planDay(c, sit)
		w.refreshSelfState(c)
	}
}

// reflect distills the last stretch of experiences into one high-
// poignancy insight memory.
func (w *World) reflect(c *agents.Character) {
	recent := recentDescriptions(c, reflectionWindow)
	if len(recent) < reflectionMinimum {
		return
	}

	insight, err := llm.GenerateReflection(w.LLM, &llm.ReflectionContext{
		Name:        c.Name,
		Role:        c.Role,
		Personality: c.Personality,
		Memories:    recent,
	})
	if err != nil {
		slog.Debug("reflection failed", "character", c.ID, "error", err)
		return
	}

	agents.AddMemory(c, agents.Memory{
		Tick:        w.Tick,
		Description: insight,
		Poignancy:   reflectionPoignancy,
		Type:        agents.MemoryReflection,
	})
}

func (w *World) planDay(c *agents.Character, sit Situation) {
	var commitments []string
	for _, m := range c.Journal {
		if m.Type == agents.MemoryPlan && m.Tick > w.Tick {
			commitments = append(commitments, m.Description)
		}
	}

	plan, err := llm.GenerateDailyPlan(w.LLM, &llm.PlanContext{
		Name:        c.Name,
		Role:        c.Role,
		Personality: c.Personality,
		Day:         sit.Day,
		Weekend:     scenario.Weekend(sit.Day),
		Memories:    recentDescriptions(c, 5),
		Commitments: commitments,
	})
	if err != nil {
		slog.Debug("daily plan failed", "character", c.ID, "error", err)
		return
	}
	c.DailyPlan = plan
}

func (w *World) refreshSelfState(c *agents.Character) {
	state, err := llm.DefineSelfState(w.LLM, &llm.SelfStateContext{
		Name:        c.Name,
		Personality: c.Personality,
		Energy:      c.Energy,
		Stress:      c.Stress,
		SocialNeed:  c.SocialNeed,
		Memories:    recentDescriptions(c, 5),
	})
	if err != nil {
		slog.Debug("self state refresh failed", "character", c.ID, "error", err)
		return
	}
	if state.Mood != "" {
		c.Mood = state.Mood
	}
	if state.StatusDescription != "" {
		c.StatusDescription = state.StatusDescription
	}
}

// recentDescriptions returns the descriptions of the last n journal
// entries in recording order.
func recentDescriptions(c *agents.Character, n int) []string {
	start := len(c.Journal) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(c.Journal)-start)
	for _, m := range c.Journal[start:] {
		out = append(out, m.Description)
	}
	return out
}

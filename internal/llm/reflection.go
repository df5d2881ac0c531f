// Long-term thinking prompts: nightly reflection, daily planning,
// self-state refresh, and memory down-selection.
package llm

import (
	"fmt"
	"strings"
)

// ReflectionContext is the material for a nightly reflection.
type ReflectionContext struct {
	Name        string
	Role        string
	Personality string
	Memories    []string // recent journal entries, oldest first
}

// GenerateReflection produces a single-sentence insight drawn from the
// character's recent experiences.
func GenerateReflection(c Completer, ctx *ReflectionContext) (string, error) {
	system := fmt.Sprintf(
		`You are %s, a %s, reflecting at the end of the day. %s
Respond with ONE sentence: an insight, realization, or feeling drawn
from your recent experiences. No JSON, no preamble, just the sentence.`,
		ctx.Name, ctx.Role, ctx.Personality,
	)

	var b strings.Builder
	b.WriteString("Recent experiences:\n")
	for _, m := range ctx.Memories {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	b.WriteString("\nWhat do you take away from all this?")

	response, err := c.Complete(system, b.String(), 200)
	if err != nil {
		return "", fmt.Errorf("reflection: %w", err)
	}

	reflection := strings.TrimSpace(response)
	if reflection == "" {
		return "", fmt.Errorf("reflection: empty response")
	}
	return reflection, nil
}

// PlanContext is the material for a morning plan.
type PlanContext struct {
	Name        string
	Role        string
	Personality string
	Day         int
	Weekend     bool
	Memories    []string
	Commitments []string // pending plan memories
}

// GenerateDailyPlan produces a short free-text intention for the day.
func GenerateDailyPlan(c Completer, ctx *PlanContext) (string, error) {
	system := fmt.Sprintf(
		`You are %s, a %s. %s
Write a brief plan for your day in first person: two or three sentences
about what you intend to do and who you might want to see. No JSON.`,
		ctx.Name, ctx.Role, ctx.Personality,
	)

	var b strings.Builder
	dayKind := "weekday"
	if ctx.Weekend {
		dayKind = "weekend day"
	}
	fmt.Fprintf(&b, "It is the morning of day %d, a %s.\n\n", ctx.Day, dayKind)

	if len(ctx.Commitments) > 0 {
		b.WriteString("You have committed to:\n")
		for _, p := range ctx.Commitments {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}
	if len(ctx.Memories) > 0 {
		b.WriteString("Fresh in your mind:\n")
		for _, m := range ctx.Memories {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}
	b.WriteString("What is your plan for today?")

	response, err := c.Complete(system, b.String(), 300)
	if err != nil {
		return "", fmt.Errorf("daily plan: %w", err)
	}

	plan := strings.TrimSpace(response)
	if plan == "" {
		return "", fmt.Errorf("daily plan: empty response")
	}
	return plan, nil
}

// SelfState is a refreshed mood and self-description.
type SelfState struct {
	Mood              string `json:"mood"`
	StatusDescription string `json:"statusDescription"`
}

// SelfStateContext is what the character knows about their own state.
type SelfStateContext struct {
	Name        string
	Personality string
	Energy      float64
	Stress      float64
	SocialNeed  float64
	Memories    []string
}

// DefineSelfState asks the model to restate the character's mood from
// their vitals and recent experiences.
func DefineSelfState(c Completer, ctx *SelfStateContext) (*SelfState, error) {
	system := fmt.Sprintf(
		`You describe %s's current inner state. %s
Respond ONLY with a JSON object:
{"mood": "one or two words", "statusDescription": "one sentence in third person"}`,
		ctx.Name, ctx.Personality,
	)

	var b strings.Builder
	fmt.Fprintf(&b, "Energy %.0f/100, stress %.0f/100, social need %.0f/100.\n",
		ctx.Energy, ctx.Stress, ctx.SocialNeed)
	if len(ctx.Memories) > 0 {
		b.WriteString("\nRecent experiences:\n")
		for _, m := range ctx.Memories {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	response, err := c.Complete(system, b.String(), 150)
	if err != nil {
		return nil, fmt.Errorf("self state: %w", err)
	}

	var state SelfState
	if err := ExtractObject(response, &state); err != nil {
		return nil, fmt.Errorf("self state: %w", err)
	}
	return &state, nil
}

// SelectMemories asks the model to pick the most relevant entries from
// a numbered candidate list for the given situation. Returns 1-based
// indices into candidates. Callers fall back to the leading candidates
// when this fails.
func SelectMemories(c Completer, situation string, candidates []string, count int) ([]int, error) {
	system := fmt.Sprintf(
		`You pick the %d memories most relevant to the current situation from a
numbered list. Respond ONLY with a JSON array of the chosen numbers,
e.g. [1, 3, 5].`, count)

	var b strings.Builder
	fmt.Fprintf(&b, "Situation: %s\n\nMemories:\n", situation)
	for i, m := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m)
	}

	response, err := c.Complete(system, b.String(), 50)
	if err != nil {
		return nil, fmt.Errorf("memory selection: %w", err)
	}

	var indices []int
	if err := ExtractArray(response, &indices); err != nil {
		return nil, fmt.Errorf("memory selection: %w", err)
	}

	// Keep only valid, in-range indices.
	var valid []int
	for _, idx := range indices {
		if idx >= 1 && idx <= len(candidates) {
			valid = append(valid, idx)
		}
		if len(valid) == count {
			break
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("memory selection: no valid indices")
	}
	return valid, nil
}

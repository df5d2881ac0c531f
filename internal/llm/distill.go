// Post-conversation distillation prompts: commitments, memories, and
// relationship shifts extracted from a finished transcript.
package llm

import (
	"errors"
	"fmt"
	"strings"
)

// DistillContext is a finished conversation plus the moment it ended.
type DistillContext struct {
	Participants []string // names, including any who left early
	Transcript   []string // "Name: text" lines, oldest first
	Day          int
	Hour         int
	Minute       int
}

// PlanResponse is a concrete future commitment found in a conversation.
type PlanResponse struct {
	Day          int      `json:"day"`
	Hour         int      `json:"hour"`
	Minute       int      `json:"minute"`
	Activity     string   `json:"activity"`
	Location     string   `json:"location"`
	Participants []string `json:"participants"`
	Poignancy    int      `json:"poignancy"`
}

// ExtractPlan asks whether the participants agreed on a concrete future
// meeting. Returns (nil, nil) when the model finds none.
func ExtractPlan(c Completer, ctx *DistillContext) (*PlanResponse, error) {
	system := `You read a finished conversation between townspeople and extract
any concrete plan the participants agreed on: a specific future activity
with a time and place.

If there is a concrete plan, respond ONLY with a JSON object:
{"day": N, "hour": N, "minute": N, "activity": "...", "location": "...",
 "participants": ["Name", ...], "poignancy": N}

day is the absolute simulation day of the plan (relative phrases like
"tomorrow" mean the current day plus one). hour is 0-23. poignancy is
1-10 for how much the plan matters to them.

If there is no concrete agreed plan, respond with exactly: null`

	var b strings.Builder
	fmt.Fprintf(&b, "It is currently day %d, %02d:%02d.\n\nConversation:\n", ctx.Day, ctx.Hour, ctx.Minute)
	for _, line := range ctx.Transcript {
		fmt.Fprintf(&b, "%s\n", line)
	}

	response, err := c.Complete(system, b.String(), 300)
	if err != nil {
		return nil, fmt.Errorf("plan extraction: %w", err)
	}

	var plan PlanResponse
	if err := ExtractObject(response, &plan); err != nil {
		if errors.Is(err, ErrNoObject) && strings.Contains(strings.ToLower(response), "null") {
			return nil, nil
		}
		return nil, fmt.Errorf("plan extraction: %w", err)
	}
	return &plan, nil
}

// SummaryResponse is one participant's memory of a conversation.
type SummaryResponse struct {
	Summary   string `json:"summary"`
	Poignancy int    `json:"poignancy"`
}

// SummarizeConversation produces a one-sentence first-person memory of
// the conversation from the named participant's point of view.
func SummarizeConversation(c Completer, ctx *DistillContext, viewpoint string) (*SummaryResponse, error) {
	system := fmt.Sprintf(
		`You summarize a finished conversation from %s's point of view as a
single-sentence memory they would keep, plus how emotionally significant
it was to them.

Respond ONLY with a JSON object:
{"summary": "one sentence in third person, naming who was involved", "poignancy": N}

poignancy is 1 (mundane small talk) to 10 (life-changing).`,
		viewpoint,
	)

	var b strings.Builder
	b.WriteString("Conversation:\n")
	for _, line := range ctx.Transcript {
		fmt.Fprintf(&b, "%s\n", line)
	}

	response, err := c.Complete(system, b.String(), 200)
	if err != nil {
		return nil, fmt.Errorf("conversation summary: %w", err)
	}

	var summary SummaryResponse
	if err := ExtractObject(response, &summary); err != nil {
		return nil, fmt.Errorf("conversation summary: %w", err)
	}
	if summary.Poignancy < 1 {
		summary.Poignancy = 1
	}
	if summary.Poignancy > 10 {
		summary.Poignancy = 10
	}
	return &summary, nil
}

// RelationshipAnalysis is one directed reading of how a conversation
// changed how subject feels about target.
type RelationshipAnalysis struct {
	RelationshipType    string  `json:"relationshipType"`
	RelationshipSummary string  `json:"relationshipSummary"`
	AffectionChange     float64 `json:"affectionChange"`
	TrustChange         float64 `json:"trustChange"`
	RespectChange       float64 `json:"respectChange"`
	FamiliarityChange   float64 `json:"familiarityChange"`
	EnergyModifier      float64 `json:"energyModifier"`
	StressModifier      float64 `json:"stressModifier"`
	MoodInfluence       string  `json:"moodInfluence"`
	MemorableExperience string  `json:"memorableExperience"`
}

// RelationshipContext frames one directed analysis: how did this
// conversation change subject's view of target.
type RelationshipContext struct {
	Subject         string
	Target          string
	CurrentType     string
	CurrentSummary  string
	Affection       float64
	Trust           float64
	Respect         float64
	Familiarity     float64
	Transcript      []string
	SharedHistory   []string // prior memorable experiences
}

// AnalyzeRelationship asks how the conversation shifted subject's view
// of target. The two directions of a pair are analyzed independently.
func AnalyzeRelationship(c Completer, ctx *RelationshipContext) (*RelationshipAnalysis, error) {
	system := fmt.Sprintf(
		`You analyze how a conversation changed %s's view of %s. The view is
one-directional: only %s's feelings matter here.

Respond ONLY with a JSON object:
{"relationshipType": "friend|acquaintance|rival|mentor|...",
 "relationshipSummary": "one sentence from %s's side",
 "affectionChange": N, "trustChange": N, "respectChange": N, "familiarityChange": N,
 "energyModifier": N, "stressModifier": N,
 "moodInfluence": "positive|neutral|negative",
 "memorableExperience": "one short phrase, or empty string"}

Change values are small shifts, typically -5 to +5. energyModifier and
stressModifier (-10 to 10) describe how being around %s passively
affects %s going forward.`,
		ctx.Subject, ctx.Target, ctx.Subject, ctx.Subject, ctx.Target, ctx.Subject,
	)

	var b strings.Builder
	fmt.Fprintf(&b, "%s currently sees %s as: %s (%s).\n",
		ctx.Subject, ctx.Target, orUnknown(ctx.CurrentType), orUnknown(ctx.CurrentSummary))
	fmt.Fprintf(&b, "Affection %.0f, trust %.0f, respect %.0f, familiarity %.0f (all 0-100).\n\n",
		ctx.Affection, ctx.Trust, ctx.Respect, ctx.Familiarity)

	if len(ctx.SharedHistory) > 0 {
		b.WriteString("Shared history:\n")
		for _, h := range ctx.SharedHistory {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}

	b.WriteString("Conversation:\n")
	for _, line := range ctx.Transcript {
		fmt.Fprintf(&b, "%s\n", line)
	}

	response, err := c.Complete(system, b.String(), 400)
	if err != nil {
		return nil, fmt.Errorf("relationship analysis: %w", err)
	}

	var analysis RelationshipAnalysis
	if err := ExtractObject(response, &analysis); err != nil {
		return nil, fmt.Errorf("relationship analysis: %w", err)
	}
	return &analysis, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "not yet established"
	}
	return s
}

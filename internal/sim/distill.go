// Post-conversation distillation: a finished transcript becomes plans,
// memories, and relationship shifts. Each sub-step is fault-isolated so
// one failed model call never voids the rest of the harvest.
package sim

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/tiny-town/internal/agents"
	"github.com/talgya/tiny-town/internal/llm"
)

// planHorizonDays caps how far ahead an extracted commitment may land.
// Anything further out is treated as a hallucinated date.
const planHorizonDays = 2

// distillEnded processes every conversation that ended this turn.
func (w *World) distillEnded() {
	for _, id := range w.endedThisTurn {
		conv := w.Conversations[id]
		if conv == nil || len(conv.Log) == 0 {
			continue
		}
		w.distill(conv)
	}
	w.endedThisTurn = nil
}

func (w *World) distill(conv *Conversation) {
	participants := w.historicalCharacters(conv)
	if len(participants) == 0 {
		return
	}

	if !w.llmEnabled() {
		// Without a model, record the contact but skip the narrative work.
		for i := 0; i < len(participants); i++ {
			for j := i + 1; j < len(participants); j++ {
				w.ensureRelationship(participants[i], participants[j]).Touch(w.Tick)
				w.ensureRelationship(participants[j], participants[i]).Touch(w.Tick)
			}
		}
		return
	}

	sit := SituationAt(w.Tick)
	dctx := &llm.DistillContext{
		Transcript: transcript(conv),
		Day:        sit.Day,
		Hour:       sit.Hour,
		Minute:     sit.Minute,
	}
	for _, p := range participants {
		dctx.Participants = append(dctx.Participants, p.Name)
	}

	w.distillPlan(conv, dctx, sit)
	w.distillMemories(conv, dctx, participants)
	w.distillRelationships(conv, dctx, participants)
}

// distillPlan extracts an agreed future commitment, if any, and records
// it in every named participant's journal as a plan memory due at the
// agreed moment.
func (w *World) distillPlan(conv *Conversation, dctx *llm.DistillContext, sit Situation) {
	plan, err := llm.ExtractPlan(w.LLM, dctx)
	if err != nil {
		slog.Debug("plan extraction failed", "conversation", conv.ID, "error", err)
		return
	}
	if plan == nil {
		return
	}

	// Day and clock fields come straight from the model; TickAt on a
	// non-positive day would wrap around uint64.
	if plan.Day < sit.Day || plan.Hour < 0 || plan.Hour > 23 || plan.Minute < 0 || plan.Minute > 59 {
		slog.Debug("plan with malformed date, rejected", "conversation", conv.ID,
			"day", plan.Day, "hour", plan.Hour, "minute", plan.Minute)
		return
	}

	planTick := TickAt(plan.Day, plan.Hour, plan.Minute)
	switch {
	case planTick <= w.Tick:
		slog.Debug("plan in the past, rejected", "conversation", conv.ID, "day", plan.Day, "hour", plan.Hour)
		return
	case plan.Day > sit.Day+planHorizonDays:
		slog.Debug("plan beyond horizon, rejected", "conversation", conv.ID, "day", plan.Day)
		return
	case plan.Location != "" && !w.validLocation(plan.Location):
		slog.Debug("plan at unknown location, rejected", "conversation", conv.ID, "location", plan.Location)
		return
	}

	poignancy := plan.Poignancy
	if poignancy < 1 {
		poignancy = 5
	}
	if poignancy > 10 {
		poignancy = 10
	}

	desc := fmt.Sprintf("Plan: %s at %s on day %d at %02d:%02d with %s",
		plan.Activity, plan.Location, plan.Day, plan.Hour, plan.Minute,
		strings.Join(plan.Participants, ", "))

	for _, name := range plan.Participants {
		c := w.ByName(name)
		if c == nil {
			continue
		}
		agents.AddMemory(c, agents.Memory{
			Tick:           planTick,
			Description:    desc,
			Poignancy:      poignancy,
			Type:           agents.MemoryPlan,
			Participants:   plan.Participants,
			ConversationID: conv.ID,
		})
	}

	w.logEvent(fmt.Sprintf("a plan formed: %s at %s on day %d", plan.Activity, plan.Location, plan.Day), "plan")
}

// distillMemories gives each participant their own one-sentence memory
// of the conversation. A failed summary skips that participant only.
func (w *World) distillMemories(conv *Conversation, dctx *llm.DistillContext, participants []*agents.Character) {
	for _, c := range participants {
		summary, err := llm.SummarizeConversation(w.LLM, dctx, c.Name)
		if err != nil {
			slog.Debug("conversation summary failed", "character", c.ID, "error", err)
			continue
		}
		agents.AddMemory(c, agents.Memory{
			Tick:           w.Tick,
			Description:    summary.Summary,
			Poignancy:      summary.Poignancy,
			Type:           agents.MemoryConversation,
			Participants:   dctx.Participants,
			ConversationID: conv.ID,
		})
	}
}

// distillRelationships runs two independent directed analyses per pair.
// How A now sees B and how B now sees A are separate questions with
// separate answers.
func (w *World) distillRelationships(conv *Conversation, dctx *llm.DistillContext, participants []*agents.Character) {
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			w.analyzeDirection(conv, dctx, participants[i], participants[j])
			w.analyzeDirection(conv, dctx, participants[j], participants[i])
		}
	}
}

func (w *World) analyzeDirection(conv *Conversation, dctx *llm.DistillContext, subject, target *agents.Character) {
	rel := w.ensureRelationship(subject, target)

	analysis, err := llm.AnalyzeRelationship(w.LLM, &llm.RelationshipContext{
		Subject:        subject.Name,
		Target:         target.Name,
		CurrentType:    rel.Type,
		CurrentSummary: rel.Summary,
		Affection:      rel.Affection,
		Trust:          rel.Trust,
		Respect:        rel.Respect,
		Familiarity:    rel.Familiarity,
		Transcript:     dctx.Transcript,
		SharedHistory:  rel.SharedExperiences,
	})
	if err != nil {
		slog.Debug("relationship analysis failed",
			"subject", subject.ID, "target", target.ID, "error", err)
		rel.Touch(w.Tick)
		return
	}

	rel.Apply(&agents.RelationshipDelta{
		Type:                analysis.RelationshipType,
		Summary:             analysis.RelationshipSummary,
		AffectionChange:     analysis.AffectionChange,
		TrustChange:         analysis.TrustChange,
		RespectChange:       analysis.RespectChange,
		FamiliarityChange:   analysis.FamiliarityChange,
		EnergyModifier:      analysis.EnergyModifier,
		StressModifier:      analysis.StressModifier,
		MoodInfluence:       analysis.MoodInfluence,
		MemorableExperience: analysis.MemorableExperience,
	}, w.Tick)
}

// historicalCharacters resolves everyone who ever took part, including
// early leavers.
func (w *World) historicalCharacters(conv *Conversation) []*agents.Character {
	out := make([]*agents.Character, 0, len(conv.Historical))
	for _, id := range conv.Historical {
		if c := w.Characters[id]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

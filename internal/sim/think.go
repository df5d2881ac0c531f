// The per-character reasoning step: apply the schedule, roll the gate,
// and produce a proposal, through the model when the gate opens and
// through scripts otherwise.
package sim

import (
	"fmt"
	"log/slog"

	"github.com/talgya/tiny-town/internal/agents"
	"github.com/talgya/tiny-town/internal/llm"
	"github.com/talgya/tiny-town/internal/scenario"
)

const retrievalLimit = 5

// applySchedules moves every conversation-free character to their
// scheduled block. Characters mid-conversation stay put until it ends.
func (w *World) applySchedules() {
	sit := SituationAt(w.Tick)
	for _, id := range w.Order {
		c := w.Characters[id]
		if c.InConversation() {
			continue
		}

		entry := w.Scenario.ResolveSchedule(c.Archetype, sit.Day, sit.Hour)
		if entry == nil {
			// No schedule for this archetype: idle, free to act.
			if c.Status == "" {
				slog.Debug("no schedule, idling", "character", c.ID, "archetype", c.Archetype)
			}
			c.Status = "idling"
			c.Category = agents.CategoryFree
			continue
		}

		loc := scenario.ResolveLocation(entry, c.HomeLocation)
		if c.Location != loc {
			c.Location = loc
		}
		c.Status = entry.Status
		c.Category = entry.Category
	}
}

// propose produces one character's proposal for this turn. Errors never
// escape: every failure path degrades to a talkToSelf proposal.
func (w *World) propose(c *agents.Character) Proposal {
	if c.InConversation() {
		return w.proposeInConversation(c)
	}
	return w.proposeFree(c)
}

func (w *World) proposeInConversation(c *agents.Character) Proposal {
	conv := w.Conversations[*c.ConversationID]
	if conv == nil || !conv.Active {
		// Stale reference; repair and act free next turn.
		c.ConversationID = nil
		return Proposal{CharacterID: c.ID, Kind: KindIdle, Message: c.Status}
	}

	if conv.TurnHolder != c.ID {
		return Proposal{CharacterID: c.ID, Kind: KindListen}
	}

	if !w.llmEnabled() {
		return Proposal{CharacterID: c.ID, Kind: KindLeaveConversation, Message: "I should get going."}
	}

	ctx := w.buildReplyContext(c, conv)
	resp, err := llm.GenerateReply(w.LLM, ctx)
	if err != nil {
		slog.Debug("reply generation failed", "character", c.ID, "error", err)
		return fallbackProposal(c.ID, err)
	}
	return coerceProposal(c.ID, resp)
}

func (w *World) proposeFree(c *agents.Character) Proposal {
	nearby := w.CharactersAt(c.Location, c.ID)
	nearbyNames := make([]string, 0, len(nearby))
	nearbyFree := 0
	for _, n := range nearby {
		nearbyNames = append(nearbyNames, n.Name)
		if !n.InConversation() && !n.Asleep() {
			nearbyFree++
		}
	}

	planScore := agents.TopPlanScore(c, nearbyNames, w.Tick)
	if !agents.ShouldReason(c, nearbyFree, planScore, w.rng) || !w.llmEnabled() {
		return w.scriptedProposal(c)
	}

	ctx := w.buildActionContext(c, nearby, nearbyNames)
	resp, err := llm.GenerateFreeAction(w.LLM, ctx)
	if err != nil {
		slog.Debug("free action generation failed", "character", c.ID, "error", err)
		return fallbackProposal(c.ID, err)
	}
	return coerceProposal(c.ID, resp)
}

// scriptedProposal is the no-model path: follow the schedule, with idle
// flavor when there is nothing scheduled.
func (w *World) scriptedProposal(c *agents.Character) Proposal {
	action := c.Status
	if action == "" || action == "idling" {
		action = scenario.IdleActions[w.rng.Intn(len(scenario.IdleActions))]
	}
	return Proposal{CharacterID: c.ID, Kind: KindIdle, Message: action}
}

func (w *World) buildActionContext(c *agents.Character, nearby []*agents.Character, nearbyNames []string) *llm.ActionContext {
	ctx := &llm.ActionContext{
		Name:        c.Name,
		Role:        c.Role,
		Personality: c.Personality,
		Location:    c.Location,
		Status:      c.Status,
		Mood:        c.Mood,
		DailyPlan:   c.DailyPlan,
		Energy:      c.Energy,
		Stress:      c.Stress,
		SocialNeed:  c.SocialNeed,
		Memories:    w.relevantMemories(c, nearbyNames),
		Locations:   w.Scenario.LocationNames(),
	}

	for _, n := range nearby {
		nc := llm.NearbyCharacter{
			Name:   n.Name,
			Status: n.Status,
			Busy:   n.InConversation(),
		}
		if rel := c.Relationships[n.ID]; rel != nil && rel.Summary != "" {
			nc.Relationship = rel.Summary
		}
		ctx.Nearby = append(ctx.Nearby, nc)
	}

	for _, id := range w.Order {
		if id != c.ID {
			ctx.Roster = append(ctx.Roster, w.Characters[id].Name)
		}
	}

	// The inbox notice is one-shot: surfaced in exactly one prompt.
	if c.HasNewMessage {
		ctx.NewMessageAlert = c.NewMessageAlert
		c.HasNewMessage = false
		c.NewMessageAlert = ""
	}

	return ctx
}

func (w *World) buildReplyContext(c *agents.Character, conv *Conversation) *llm.ReplyContext {
	ctx := &llm.ReplyContext{
		Name:        c.Name,
		Role:        c.Role,
		Personality: c.Personality,
		Mood:        c.Mood,
		Energy:      c.Energy,
		Transcript:  transcript(conv),
	}

	var otherNames []string
	for _, pid := range conv.Participants {
		if pid != c.ID {
			otherNames = append(otherNames, w.Characters[pid].Name)
		}
	}
	ctx.Participants = otherNames
	ctx.Memories = w.relevantMemories(c, otherNames)
	return ctx
}

// relevantMemories runs scored retrieval, then optionally asks the
// model to down-select. The model pass is best-effort: any failure
// falls back to the leading scored entries.
func (w *World) relevantMemories(c *agents.Character, nearbyNames []string) []string {
	scored := agents.RetrieveMemories(c, nearbyNames, w.Tick, retrievalLimit)
	if len(scored) == 0 {
		return nil
	}

	candidates := make([]string, len(scored))
	for i, s := range scored {
		candidates[i] = s.Memory.Description
	}

	if !w.llmEnabled() || len(candidates) <= 3 {
		return candidates
	}

	situation := fmt.Sprintf("%s is at %s, %s", c.Name, c.Location, c.Status)
	indices, err := llm.SelectMemories(w.LLM, situation, candidates, 3)
	if err != nil {
		slog.Debug("memory selection failed, using top scored", "character", c.ID, "error", err)
		return candidates[:3]
	}

	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		out = append(out, candidates[idx-1])
	}
	return out
}

func transcript(conv *Conversation) []string {
	lines := make([]string, 0, len(conv.Log))
	for _, turn := range conv.Log {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.SpeakerName, turn.Text))
	}
	return lines
}

// Batch action resolution. All proposals for a turn are collected
// first, then resolved together so simultaneous intentions (two people
// deciding to start the same conversation) merge instead of colliding.
package sim

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/tiny-town/internal/agents"
)

// resolve applies all proposals for the current turn. Conversation
// starts resolve first as merged groups, then everything else resolves
// per character in world order.
func (w *World) resolve(proposals []Proposal) {
	byChar := make(map[string]Proposal, len(proposals))
	for _, p := range proposals {
		byChar[p.CharacterID] = p
	}

	w.resolveStarts(proposals)

	for _, id := range w.Order {
		p, ok := byChar[id]
		if !ok || p.Kind == KindStartConversation {
			continue
		}
		w.resolveOne(w.Characters[id], p)
	}

	// Repair pass: a conversation that lost members below two this turn
	// cannot stay active.
	for _, conv := range w.Conversations {
		if conv.Active && len(conv.Participants) < 2 {
			slog.Debug("conversation below two participants, ending", "conversation", conv.ID)
			w.endConversation(conv)
		}
	}
}

// resolveStarts merges simultaneous startConversation proposals. Two
// proposals naming the same set of valid participants become one
// conversation; the earliest proposal in world order supplies the
// opening line and its speaker becomes the initiator.
func (w *World) resolveStarts(proposals []Proposal) {
	committed := make(map[string]bool)
	for _, id := range w.Order {
		if w.Characters[id].InConversation() {
			committed[id] = true
		}
	}

	type startGroup struct {
		members   []string // initiator first, then valid targets
		initiator string
		message   string
	}

	seen := make(map[string]bool)
	var groups []startGroup

	for _, p := range proposals {
		if p.Kind != KindStartConversation {
			continue
		}
		c := w.Characters[p.CharacterID]

		members := []string{c.ID}
		for _, name := range p.Targets {
			t := w.ByName(name)
			if t == nil || t.ID == c.ID {
				continue
			}
			// Valid targets share the location and are free to talk.
			if t.Location != c.Location || t.InConversation() || t.Asleep() {
				continue
			}
			if !contains(members, t.ID) {
				members = append(members, t.ID)
			}
		}

		key := groupKey(members)
		if seen[key] {
			continue
		}
		seen[key] = true
		groups = append(groups, startGroup{members: members, initiator: c.ID, message: p.Message})
	}

	for _, g := range groups {
		if len(g.members) < 2 {
			c := w.Characters[g.initiator]
			c.CurrentAction = "looks around for someone to talk to"
			slog.Debug("conversation start with no valid targets", "character", g.initiator)
			continue
		}

		blocked := false
		for _, m := range g.members {
			if committed[m] {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}

		w.startConversation(g.members, g.initiator, g.message)
		for _, m := range g.members {
			committed[m] = true
		}
	}
}

func (w *World) startConversation(members []string, initiatorID, opening string) {
	initiator := w.Characters[initiatorID]
	conv := &Conversation{
		ID:           uuid.NewString(),
		Location:     initiator.Location,
		Participants: append([]string(nil), members...),
		Historical:   append([]string(nil), members...),
		TurnHolder:   members[1], // first non-initiator speaks next
		Active:       true,
		StartedTick:  w.Tick,
	}
	if opening != "" {
		conv.Log = append(conv.Log, ConversationTurn{
			SpeakerID: initiatorID, SpeakerName: initiator.Name, Text: opening, Tick: w.Tick,
		})
	}
	w.Conversations[conv.ID] = conv

	var otherNames []string
	for _, m := range members {
		c := w.Characters[m]
		id := conv.ID
		c.ConversationID = &id
		c.CurrentAction = "in a conversation"
		if m != initiatorID {
			otherNames = append(otherNames, c.Name)
		}
	}

	// First contact creates neutral relationship records both ways.
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			w.ensureRelationship(w.Characters[members[i]], w.Characters[members[j]])
			w.ensureRelationship(w.Characters[members[j]], w.Characters[members[i]])
		}
	}

	w.logEvent(fmt.Sprintf("%s started a conversation with %s at %s",
		initiator.Name, strings.Join(otherNames, ", "), conv.Location), "conversation")
	if opening != "" {
		w.logEvent(fmt.Sprintf("%s: %q", initiator.Name, opening), "conversation")
	}
}

func (w *World) resolveOne(c *agents.Character, p Proposal) {
	switch p.Kind {
	case KindContinueConversation:
		w.resolveContinue(c, p)

	case KindLeaveConversation:
		w.resolveLeave(c, p)

	case KindListen:
		c.CurrentAction = "listening"

	case KindTalkToSelf:
		c.CurrentAction = p.Message
		w.logEvent(fmt.Sprintf("%s (to self): %s", c.Name, p.Message), "solo")

	case KindSendMessage:
		w.resolveSend(c, p)

	case KindMove:
		if !w.validLocation(p.Location) {
			slog.Debug("move to unknown location ignored", "character", c.ID, "location", p.Location)
			return
		}
		c.Location = p.Location
		c.CurrentAction = "heading to " + p.Location
		w.logEvent(fmt.Sprintf("%s heads to %s", c.Name, p.Location), "movement")

	case KindIdle:
		c.CurrentAction = p.Message
	}
}

// resolveContinue is turn-gated: only the turn holder may speak.
// Proposals from anyone else are dropped.
func (w *World) resolveContinue(c *agents.Character, p Proposal) {
	conv := w.activeConversation(c)
	if conv == nil {
		c.CurrentAction = p.Message
		return
	}
	if conv.TurnHolder != c.ID {
		slog.Debug("spoke out of turn, dropped", "character", c.ID, "conversation", conv.ID)
		return
	}

	conv.Log = append(conv.Log, ConversationTurn{
		SpeakerID: c.ID, SpeakerName: c.Name, Text: p.Message, Tick: w.Tick,
	})
	c.CurrentAction = "in a conversation"

	// Hand the turn over. An invalid next speaker is corrected to the
	// first other participant rather than failing the utterance.
	nextID := ""
	if next := w.ByName(p.NextSpeaker); next != nil && next.ID != c.ID && conv.Has(next.ID) {
		nextID = next.ID
	} else {
		for _, pid := range conv.Participants {
			if pid != c.ID {
				nextID = pid
				break
			}
		}
		if nextID == "" {
			nextID = c.ID
		}
	}
	conv.TurnHolder = nextID

	w.logEvent(fmt.Sprintf("%s: %q", c.Name, p.Message), "conversation")
}

// resolveLeave is deliberately not turn-gated: walking away must never
// require waiting for permission to speak, or a stalled partner could
// trap a character in a conversation forever.
func (w *World) resolveLeave(c *agents.Character, p Proposal) {
	conv := w.activeConversation(c)
	if conv == nil {
		return
	}

	if p.Message != "" {
		conv.Log = append(conv.Log, ConversationTurn{
			SpeakerID: c.ID, SpeakerName: c.Name, Text: p.Message, Tick: w.Tick,
		})
	}
	conv.Log = append(conv.Log, ConversationTurn{
		SpeakerID: c.ID, SpeakerName: c.Name, Text: "(left the conversation)", Tick: w.Tick,
	})

	remaining := conv.Participants[:0]
	for _, pid := range conv.Participants {
		if pid != c.ID {
			remaining = append(remaining, pid)
		}
	}
	conv.Participants = remaining
	c.ConversationID = nil
	c.CurrentAction = "left a conversation"

	if len(conv.Participants) >= 2 {
		if conv.TurnHolder == c.ID {
			conv.TurnHolder = conv.Participants[0]
		}
	} else {
		w.endConversation(conv)
	}

	w.logEvent(fmt.Sprintf("%s left the conversation", c.Name), "conversation")
}

func (w *World) resolveSend(c *agents.Character, p Proposal) {
	recipient := w.ByName(p.Recipient)
	if recipient == nil || recipient.ID == c.ID {
		slog.Debug("message to unknown recipient dropped", "character", c.ID, "recipient", p.Recipient)
		return
	}
	w.queueMessage(c.ID, recipient.ID, p.Message)
	c.CurrentAction = "sent a message to " + recipient.Name
	w.logEvent(fmt.Sprintf("%s sent a message to %s", c.Name, recipient.Name), "message")
}

// endConversation deactivates a conversation and releases everyone
// still in it. The distiller picks it up at the end of the turn.
func (w *World) endConversation(conv *Conversation) {
	conv.Active = false
	conv.EndedTick = w.Tick
	for _, pid := range conv.Participants {
		w.Characters[pid].ConversationID = nil
	}
	conv.Participants = nil
	w.endedThisTurn = append(w.endedThisTurn, conv.ID)
}

// activeConversation returns the character's conversation if it is
// live, clearing stale references otherwise.
func (w *World) activeConversation(c *agents.Character) *Conversation {
	if c.ConversationID == nil {
		return nil
	}
	conv := w.Conversations[*c.ConversationID]
	if conv == nil || !conv.Active {
		c.ConversationID = nil
		return nil
	}
	return conv
}

func (w *World) ensureRelationship(from, to *agents.Character) *agents.Relationship {
	rel := from.Relationships[to.ID]
	if rel == nil {
		rel = agents.NewRelationship(w.Tick)
		from.Relationships[to.ID] = rel
	}
	return rel
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func groupKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

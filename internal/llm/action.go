// In-character action generation: what a character says or does next.
package llm

import (
	"fmt"
	"strings"
)

// ActionResponse is the raw parsed form of a character decision. Field
// presence depends on the action; the simulation validates and coerces.
type ActionResponse struct {
	Action      string   `json:"action"`
	Message     string   `json:"message,omitempty"`
	Targets     []string `json:"targets,omitempty"`
	NextSpeaker string   `json:"nextSpeaker,omitempty"`
	Recipient   string   `json:"recipient,omitempty"`
	Location    string   `json:"location,omitempty"`
}

// NearbyCharacter describes a co-located character for prompting.
type NearbyCharacter struct {
	Name         string
	Status       string
	Relationship string // summary of the viewer's relationship, "" if strangers
	Busy         bool   // already in a conversation
}

// ActionContext carries everything a free character needs to decide.
type ActionContext struct {
	Name        string
	Role        string
	Personality string
	Location    string
	Status      string
	Mood        string
	DailyPlan   string

	Energy     float64
	Stress     float64
	SocialNeed float64

	Memories  []string // retrieval-scored, most salient first
	Nearby    []NearbyCharacter
	Roster    []string // every character name in the world
	Locations []string // valid movement destinations

	NewMessageAlert string // one-shot inbox notice, "" if none
}

// GenerateFreeAction asks the model for the character's next action.
func GenerateFreeAction(c Completer, ctx *ActionContext) (*ActionResponse, error) {
	system := buildActionSystemPrompt(ctx)
	user := buildActionUserPrompt(ctx)

	response, err := c.Complete(system, user, 400)
	if err != nil {
		return nil, fmt.Errorf("free action: %w", err)
	}

	var action ActionResponse
	if err := ExtractObject(response, &action); err != nil {
		return nil, fmt.Errorf("free action: %w", err)
	}
	return &action, nil
}

func buildActionSystemPrompt(ctx *ActionContext) string {
	return fmt.Sprintf(
		`You are %s, a %s. %s
You live in a small town and act autonomously.

Respond ONLY with a single JSON object describing your next action:
- {"action": "startConversation", "targets": ["Name", ...], "message": "opening line"}
- {"action": "sendMessage", "recipient": "Name", "message": "text"} — for people elsewhere; never message someone standing next to you, just talk
- {"action": "move", "location": "place name"}
- {"action": "talkToSelf", "message": "a quiet thought or muttered remark"}

Stay in character. Only start conversations with people at your location.`,
		ctx.Name, ctx.Role, ctx.Personality,
	)
}

func buildActionUserPrompt(ctx *ActionContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are at %s, currently %s. Mood: %s.\n", ctx.Location, ctx.Status, ctx.Mood)
	fmt.Fprintf(&b, "Energy %.0f/100, stress %.0f/100, social need %.0f/100.\n\n", ctx.Energy, ctx.Stress, ctx.SocialNeed)

	if ctx.DailyPlan != "" {
		fmt.Fprintf(&b, "Today's plan: %s\n\n", ctx.DailyPlan)
	}

	if ctx.NewMessageAlert != "" {
		fmt.Fprintf(&b, "New message: %s\n\n", ctx.NewMessageAlert)
	}

	if len(ctx.Memories) > 0 {
		b.WriteString("On your mind:\n")
		for _, m := range ctx.Memories {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}

	if len(ctx.Nearby) > 0 {
		b.WriteString("People here:\n")
		for _, n := range ctx.Nearby {
			line := fmt.Sprintf("- %s (%s)", n.Name, n.Status)
			if n.Relationship != "" {
				line += " — " + n.Relationship
			}
			if n.Busy {
				line += " [in a conversation]"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Nobody else is here.\n\n")
	}

	if len(ctx.Roster) > 0 {
		fmt.Fprintf(&b, "People you know of: %s\n", strings.Join(ctx.Roster, ", "))
	}
	if len(ctx.Locations) > 0 {
		fmt.Fprintf(&b, "Places: %s\n", strings.Join(ctx.Locations, ", "))
	}

	b.WriteString("\nWhat do you do? Respond with one JSON object.")
	return b.String()
}

// ReplyContext carries what the current speaker needs to continue or
// leave a conversation.
type ReplyContext struct {
	Name         string
	Role         string
	Personality  string
	Mood         string
	Energy       float64
	Participants []string // other participants by name
	Transcript   []string // "Name: text" lines, oldest first
	Memories     []string
}

// GenerateReply asks the model for the turn holder's next move in an
// active conversation: continue speaking or leave.
func GenerateReply(c Completer, ctx *ReplyContext) (*ActionResponse, error) {
	system := buildReplySystemPrompt(ctx)
	user := buildReplyUserPrompt(ctx)

	response, err := c.Complete(system, user, 300)
	if err != nil {
		return nil, fmt.Errorf("conversation reply: %w", err)
	}

	var action ActionResponse
	if err := ExtractObject(response, &action); err != nil {
		return nil, fmt.Errorf("conversation reply: %w", err)
	}
	return &action, nil
}

func buildReplySystemPrompt(ctx *ReplyContext) string {
	return fmt.Sprintf(
		`You are %s, a %s. %s
You are mid-conversation with %s and it is your turn to speak.

Respond ONLY with a single JSON object:
- {"action": "continueConversation", "message": "what you say", "nextSpeaker": "Name"}
- {"action": "leaveConversation", "message": "a brief parting line"}

Keep messages short and natural, one or two sentences. nextSpeaker must
be one of the other participants. Leave when the conversation has run
its course or you have somewhere to be.`,
		ctx.Name, ctx.Role, ctx.Personality, strings.Join(ctx.Participants, ", "),
	)
}

func buildReplyUserPrompt(ctx *ReplyContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your mood: %s. Energy %.0f/100.\n\n", ctx.Mood, ctx.Energy)

	if len(ctx.Memories) > 0 {
		b.WriteString("On your mind:\n")
		for _, m := range ctx.Memories {
			fmt.Fprintf(&b, "- %s\n", m)
		}
		b.WriteString("\n")
	}

	b.WriteString("Conversation so far:\n")
	for _, line := range ctx.Transcript {
		fmt.Fprintf(&b, "%s\n", line)
	}

	b.WriteString("\nYour turn. Respond with one JSON object.")
	return b.String()
}

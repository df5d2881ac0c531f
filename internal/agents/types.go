// Package agents provides the character data model: vitals, journal,
// relationships, and the reasoning gate.
package agents

// StatusCategory classifies what a scheduled activity means for the
// reasoning gate and the per-turn vitals update.
type StatusCategory string

const (
	CategorySleep StatusCategory = "sleep"
	CategoryWork  StatusCategory = "work"
	CategoryRest  StatusCategory = "rest"
	CategoryFree  StatusCategory = "free"
)

// MemoryType distinguishes journal entries.
type MemoryType string

const (
	MemoryConversation MemoryType = "conversation"
	MemoryReflection   MemoryType = "reflection"
	MemoryPlan         MemoryType = "plan"
)

// Memory is a single journal entry. Entries are never mutated after
// creation. For plan memories, Tick is the future moment the plan is
// due rather than the moment it was recorded.
type Memory struct {
	Tick           uint64     `json:"tick"`
	Description    string     `json:"description"`
	Poignancy      int        `json:"poignancy"` // 1–10
	Type           MemoryType `json:"type"`
	Participants   []string   `json:"participants,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
}

// InboxMessage is a delivered asynchronous message.
type InboxMessage struct {
	ID       string `json:"id"`
	From     string `json:"from"` // sender character ID
	Body     string `json:"body"`
	SentTick uint64 `json:"sent_tick"`
	ReadTick uint64 `json:"read_tick,omitempty"`
}

// Character is a named inhabitant of the town.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Archetype   string `json:"archetype"`
	Personality string `json:"personality"`
	Avatar      string `json:"avatar,omitempty"`

	// Spatial
	Location     string `json:"location"`
	HomeLocation string `json:"home_location"`

	// Vitals, all clamped to [0,100].
	Energy     float64 `json:"energy"`
	Stress     float64 `json:"stress"`
	SocialNeed float64 `json:"social_need"`

	// Self-state, regenerated periodically via LLM.
	Mood              string `json:"mood"`
	StatusDescription string `json:"status_description,omitempty"`

	// What the character is doing right now.
	Status        string         `json:"status"`         // schedule activity text
	Category      StatusCategory `json:"category"`       // gate/vitals classification
	CurrentAction string         `json:"current_action"` // latest resolved action text

	// Non-nil while committed to an active conversation.
	ConversationID *string `json:"conversation_id,omitempty"`

	Journal       []Memory                 `json:"journal,omitempty"`
	Relationships map[string]*Relationship `json:"relationships,omitempty"` // keyed by other character ID

	// Long-term thinking state.
	DailyPlan      string `json:"daily_plan,omitempty"`
	ReflectedOnDay int    `json:"reflected_on_day,omitempty"`

	// Asynchronous messaging.
	Inbox           []InboxMessage `json:"inbox,omitempty"`
	HasNewMessage   bool           `json:"has_new_message,omitempty"`
	NewMessageAlert string         `json:"new_message_alert,omitempty"`
}

// Asleep reports whether the character is in a sleep block.
func (c *Character) Asleep() bool {
	return c.Category == CategorySleep
}

// InConversation reports whether the character is committed to a conversation.
func (c *Character) InConversation() bool {
	return c.ConversationID != nil
}

// ClampVitals forces all vitals back into [0,100].
func (c *Character) ClampVitals() {
	c.Energy = clampStat(c.Energy)
	c.Stress = clampStat(c.Stress)
	c.SocialNeed = clampStat(c.SocialNeed)
}

func clampStat(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

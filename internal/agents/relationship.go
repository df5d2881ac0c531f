// Directed relationship model. A knows B and B knows A independently;
// the two records never have to agree.
package agents

// MaxSharedExperiences bounds the memorable-experience list per relationship.
const MaxSharedExperiences = 10

// Relationship is one character's view of another. All dimension values
// live in [0,100]; the modifiers live in [-10,10].
type Relationship struct {
	Affection   float64 `json:"affection"`
	Trust       float64 `json:"trust"`
	Respect     float64 `json:"respect"`
	Familiarity float64 `json:"familiarity"`
	Dependency  float64 `json:"dependency"`
	Rivalry     float64 `json:"rivalry"`

	Type    string `json:"type,omitempty"`    // e.g. "friend", "rival", "mentor"
	Summary string `json:"summary,omitempty"` // one-sentence narrative view

	// Passive per-turn vitals influence while spending time together.
	EnergyModifier float64 `json:"energy_modifier"`
	StressModifier float64 `json:"stress_modifier"`
	MoodInfluence  string  `json:"mood_influence,omitempty"`

	InteractionCount  int    `json:"interaction_count"`
	ConversationCount int    `json:"conversation_count"`
	FirstMet          uint64 `json:"first_met"`
	LastInteraction   uint64 `json:"last_interaction"`

	SharedExperiences []string `json:"shared_experiences,omitempty"`
}

// NewRelationship returns a first-contact record: neutral on most
// dimensions, barely familiar, no passive influence.
func NewRelationship(nowTick uint64) *Relationship {
	return &Relationship{
		Affection:     50,
		Trust:         50,
		Respect:       50,
		Familiarity:   10,
		MoodInfluence: "neutral",
		FirstMet:      nowTick,
	}
}

// RelationshipDelta carries the outcome of one directed post-conversation
// analysis, ready to be folded into a Relationship.
type RelationshipDelta struct {
	Type    string
	Summary string

	AffectionChange   float64
	TrustChange       float64
	RespectChange     float64
	FamiliarityChange float64

	EnergyModifier float64
	StressModifier float64
	MoodInfluence  string

	MemorableExperience string
}

// Apply folds a directed analysis into the relationship. Dimensions are
// clamped to [0,100] after the shift, modifiers replace the previous
// values clamped to [-10,10], and the memorable experience joins a FIFO
// list capped at MaxSharedExperiences.
func (r *Relationship) Apply(d *RelationshipDelta, nowTick uint64) {
	r.Affection = clampStat(r.Affection + d.AffectionChange)
	r.Trust = clampStat(r.Trust + d.TrustChange)
	r.Respect = clampStat(r.Respect + d.RespectChange)
	r.Familiarity = clampStat(r.Familiarity + d.FamiliarityChange)

	r.EnergyModifier = clampModifier(d.EnergyModifier)
	r.StressModifier = clampModifier(d.StressModifier)

	if d.Type != "" {
		r.Type = d.Type
	}
	if d.Summary != "" {
		r.Summary = d.Summary
	}
	if d.MoodInfluence != "" {
		r.MoodInfluence = d.MoodInfluence
	}

	if d.MemorableExperience != "" {
		r.SharedExperiences = append(r.SharedExperiences, d.MemorableExperience)
		if len(r.SharedExperiences) > MaxSharedExperiences {
			r.SharedExperiences = r.SharedExperiences[len(r.SharedExperiences)-MaxSharedExperiences:]
		}
	}

	r.InteractionCount++
	r.ConversationCount++
	r.LastInteraction = nowTick
}

// Touch records a casual interaction without a full analysis.
func (r *Relationship) Touch(nowTick uint64) {
	r.InteractionCount++
	r.LastInteraction = nowTick
}

func clampModifier(v float64) float64 {
	if v < -10 {
		return -10
	}
	if v > 10 {
		return 10
	}
	return v
}

package agents

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRelationshipDefaults(t *testing.T) {
	r := NewRelationship(42)

	assert.Equal(t, 50.0, r.Affection)
	assert.Equal(t, 50.0, r.Trust)
	assert.Equal(t, 50.0, r.Respect)
	assert.Equal(t, 10.0, r.Familiarity)
	assert.Equal(t, 0.0, r.Dependency)
	assert.Equal(t, 0.0, r.Rivalry)
	assert.Equal(t, 0.0, r.EnergyModifier)
	assert.Equal(t, 0.0, r.StressModifier)
	assert.Equal(t, "neutral", r.MoodInfluence)
	assert.Equal(t, uint64(42), r.FirstMet)
}

func TestApplyClampsDimensionsAndModifiers(t *testing.T) {
	r := NewRelationship(0)
	r.Affection = 95
	r.Trust = 3

	r.Apply(&RelationshipDelta{
		AffectionChange: 20,  // would hit 115
		TrustChange:     -10, // would hit -7
		EnergyModifier:  25,  // out of range
		StressModifier:  -25, // out of range
	}, 100)

	assert.Equal(t, 100.0, r.Affection)
	assert.Equal(t, 0.0, r.Trust)
	assert.Equal(t, 10.0, r.EnergyModifier)
	assert.Equal(t, -10.0, r.StressModifier)
	assert.Equal(t, uint64(100), r.LastInteraction)
	assert.Equal(t, 1, r.InteractionCount)
	assert.Equal(t, 1, r.ConversationCount)
}

func TestApplyKeepsNarrativeFieldsWhenDeltaOmitsThem(t *testing.T) {
	r := NewRelationship(0)
	r.Type = "friend"
	r.Summary = "old friends from school"

	r.Apply(&RelationshipDelta{AffectionChange: 2}, 10)

	assert.Equal(t, "friend", r.Type)
	assert.Equal(t, "old friends from school", r.Summary)
	assert.Equal(t, "neutral", r.MoodInfluence)
}

func TestSharedExperiencesFIFOCap(t *testing.T) {
	r := NewRelationship(0)
	for i := 0; i < MaxSharedExperiences+3; i++ {
		r.Apply(&RelationshipDelta{
			MemorableExperience: fmt.Sprintf("moment %d", i),
		}, uint64(i))
	}

	require.Len(t, r.SharedExperiences, MaxSharedExperiences)
	// Oldest entries dropped, newest kept.
	assert.Equal(t, "moment 3", r.SharedExperiences[0])
	assert.Equal(t, fmt.Sprintf("moment %d", MaxSharedExperiences+2), r.SharedExperiences[MaxSharedExperiences-1])
}

func TestClampVitals(t *testing.T) {
	c := &Character{Energy: -5, Stress: 140, SocialNeed: 55}
	c.ClampVitals()

	assert.Equal(t, 0.0, c.Energy)
	assert.Equal(t, 100.0, c.Stress)
	assert.Equal(t, 55.0, c.SocialNeed)
}

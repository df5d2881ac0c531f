package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/tiny-town/internal/agents"
)

func TestUpdateVitalsByCategory(t *testing.T) {
	for _, tc := range []struct {
		name               string
		category           agents.StatusCategory
		energy, stress     float64
		wantEng, wantStr   float64
	}{
		{"sleep restores", agents.CategorySleep, 70, 40, 90, 25},
		{"sleep clamps at full", agents.CategorySleep, 95, 10, 100, 0},
		{"rest recovers slowly", agents.CategoryRest, 50, 50, 55, 45},
		{"work drains", agents.CategoryWork, 50, 50, 45, 52},
		{"free idles down", agents.CategoryFree, 50, 50, 49.5, 50},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := testWorld(t, nil)
			c := w.Characters["ana"]
			c.Category = tc.category
			c.Energy = tc.energy
			c.Stress = tc.stress

			w.updateVitals()

			assert.InDelta(t, tc.wantEng, c.Energy, 1e-9)
			assert.InDelta(t, tc.wantStr, c.Stress, 1e-9)
		})
	}
}

func TestUpdateVitalsInConversation(t *testing.T) {
	w := testWorld(t, nil)
	w.resolve([]Proposal{
		{CharacterID: "ana", Kind: KindStartConversation, Targets: []string{"Ben"}, Message: "hi"},
	})

	ana := w.Characters["ana"]
	ana.Category = agents.CategoryFree
	ana.Energy = 50
	ana.Stress = 50
	ana.SocialNeed = 30
	ana.Relationships["ben"].EnergyModifier = 4
	ana.Relationships["ben"].StressModifier = -6

	w.updateVitals()

	// Free drift plus conversation cost plus the partner's influence.
	assert.InDelta(t, 50-0.5-2+4, ana.Energy, 1e-9)
	assert.InDelta(t, 50-6, ana.Stress, 1e-9)
	assert.InDelta(t, 40.0, ana.SocialNeed, 1e-9)
}

func TestPartnerModifiersAreAveraged(t *testing.T) {
	w := testWorld(t, nil)
	w.resolve([]Proposal{
		{CharacterID: "ana", Kind: KindStartConversation, Targets: []string{"Ben", "Cho"}, Message: "hey"},
	})

	ana := w.Characters["ana"]
	ana.Category = agents.CategoryFree
	ana.Energy = 50
	ana.Stress = 50
	ana.Relationships["ben"].EnergyModifier = 4
	ana.Relationships["ben"].StressModifier = -6
	ana.Relationships["cho"].EnergyModifier = 2
	ana.Relationships["cho"].StressModifier = 0

	w.updateVitals()

	assert.InDelta(t, 50-0.5-2+3, ana.Energy, 1e-9)
	assert.InDelta(t, 50-3, ana.Stress, 1e-9)
}

func TestCrossoverAppliesOnce(t *testing.T) {
	w := testWorld(t, nil)
	c := w.Characters["ana"]
	c.Category = agents.CategoryWork
	c.Energy = 22
	c.Stress = 79

	w.updateVitals()

	// Work lands energy at 17 and stress at 81. Both crossover
	// conditions read those values: low energy adds 5 stress and high
	// stress costs 3 energy. The stress added by low energy does not
	// feed back into the energy penalty this turn.
	assert.InDelta(t, 14.0, c.Energy, 1e-9)
	assert.InDelta(t, 86.0, c.Stress, 1e-9)
}

func TestLonelinessRaisesStress(t *testing.T) {
	w := testWorld(t, nil)
	c := w.Characters["ana"]
	c.Category = agents.CategoryRest
	c.Energy = 50
	c.Stress = 50
	c.SocialNeed = 5

	w.updateVitals()

	assert.InDelta(t, 4.5, c.SocialNeed, 1e-9)
	assert.InDelta(t, 48.0, c.Stress, 1e-9) // rest -5, lonely +3
}

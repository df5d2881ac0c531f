// Per-turn vitals update: activity deltas, relationship influence, and
// the homeostatic crossover.
package sim

import "github.com/talgya/tiny-town/internal/agents"

// updateVitals applies one turn of vitals drift to every character.
//
// Primary deltas come from the activity category and conversation
// state, then passive relationship modifiers, then a clamp. The
// crossover pass runs once on the clamped values: its conditions are
// all evaluated before any of its adjustments apply, so low energy
// raising stress this turn cannot also trigger the high-stress penalty
// in the same turn.
func (w *World) updateVitals() {
	for _, id := range w.Order {
		c := w.Characters[id]

		switch c.Category {
		case agents.CategorySleep:
			c.Energy += 20
			c.Stress -= 15
		case agents.CategoryRest:
			c.Energy += 5
			c.Stress -= 5
		case agents.CategoryWork:
			c.Energy -= 5
			c.Stress += 2
		default:
			c.Energy -= 0.5
		}

		if c.InConversation() {
			c.SocialNeed += 10
			c.Energy -= 2
			w.applyPartnerModifiers(c)
		} else {
			c.SocialNeed -= 0.5
		}

		c.ClampVitals()

		// Crossover, once.
		lowEnergy := c.Energy < 20
		highStress := c.Stress > 80
		lonely := c.SocialNeed < 10

		if lowEnergy {
			c.Stress += 5
		}
		if highStress {
			c.Energy -= 3
		}
		if lonely {
			c.Stress += 3
		}

		c.ClampVitals()
	}
}

// applyPartnerModifiers adds the averaged passive energy/stress
// influence of the character's current conversation partners.
func (w *World) applyPartnerModifiers(c *agents.Character) {
	conv := w.Conversations[*c.ConversationID]
	if conv == nil {
		return
	}

	var energySum, stressSum float64
	count := 0
	for _, pid := range conv.Participants {
		if pid == c.ID {
			continue
		}
		if rel := c.Relationships[pid]; rel != nil {
			energySum += rel.EnergyModifier
			stressSum += rel.StressModifier
			count++
		}
	}
	if count == 0 {
		return
	}
	c.Energy += energySum / float64(count)
	c.Stress += stressSum / float64(count)
}

// The reasoning gate: decides whether a character spends an LLM call
// this turn or runs on scripted behavior.
package agents

import "math/rand"

// planOverrideScore is the retrieval score above which a pending plan
// forces a reasoning turn regardless of the probability roll.
const planOverrideScore = 2.0

// ReasonChance returns the probability that the character reasons this
// turn. Sleeping characters never reason. Free time is when most social
// behavior happens, so it carries a much higher base chance than
// obligated hours; company and loneliness both push the chance up.
func ReasonChance(c *Character, nearbyFree int) float64 {
	if c.Asleep() {
		return 0
	}

	chance := 0.05
	if c.Category == CategoryFree {
		chance = 0.7
	}

	if nearbyFree > 0 {
		if c.Category == CategoryFree {
			chance += 0.25
		} else {
			chance += 0.15
		}
	}

	if c.SocialNeed > 80 {
		chance += 0.2
	}

	if chance > 1 {
		chance = 1
	}
	return chance
}

// ShouldReason rolls the gate. A sufficiently salient plan memory
// overrides the roll entirely.
func ShouldReason(c *Character, nearbyFree int, topPlanScore float64, rng *rand.Rand) bool {
	if c.Asleep() {
		return false
	}
	if topPlanScore > planOverrideScore {
		return true
	}
	return rng.Float64() < ReasonChance(c, nearbyFree)
}

// Journal storage and salience-scored retrieval.
package agents

import (
	"math"
	"sort"
	"strings"
)

const (
	// MaxJournal bounds a character's journal. When full, the
	// lowest-poignancy entry is dropped to make room.
	MaxJournal = 200

	ticksPerHour = 60
)

// AddMemory appends an entry to the character's journal. When the journal
// is full the lowest-poignancy entry is replaced, but only by a more
// poignant one.
func AddMemory(c *Character, m Memory) {
	if len(c.Journal) < MaxJournal {
		c.Journal = append(c.Journal, m)
		return
	}

	minIdx := 0
	for i := 1; i < len(c.Journal); i++ {
		if c.Journal[i].Poignancy < c.Journal[minIdx].Poignancy {
			minIdx = i
		}
	}
	if m.Poignancy > c.Journal[minIdx].Poignancy {
		c.Journal[minIdx] = m
	}
}

// ScoredMemory pairs a journal entry with its retrieval score.
type ScoredMemory struct {
	Memory Memory
	Score  float64
}

// RetrieveMemories scores every journal entry against the current moment
// and the characters nearby, and returns the top entries by descending
// score. Identical inputs always produce identical output.
//
// Score is the sum of three components:
//   - recency: 0.5^hoursAgo for past entries; plan entries that are still
//     in the future decay far slower at 0.99^hoursUntil, so an upcoming
//     commitment stays salient for days while ordinary memories fade
//     within hours.
//   - importance: poignancy / 10.
//   - relevance: +0.3 per nearby name appearing in the entry text, +0.5
//     flat for plan entries, capped at 1.0.
func RetrieveMemories(c *Character, nearbyNames []string, nowTick uint64, limit int) []ScoredMemory {
	if len(c.Journal) == 0 || limit <= 0 {
		return nil
	}

	scored := make([]ScoredMemory, 0, len(c.Journal))
	for _, m := range c.Journal {
		scored = append(scored, ScoredMemory{
			Memory: m,
			Score:  scoreMemory(m, nearbyNames, nowTick),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > len(scored) {
		limit = len(scored)
	}
	return scored[:limit]
}

// TopPlanScore returns the highest retrieval score among plan entries,
// or 0 when the journal holds none. The reasoning gate treats a score
// above 2.0 as a pending commitment that overrides the probability roll.
func TopPlanScore(c *Character, nearbyNames []string, nowTick uint64) float64 {
	best := 0.0
	for _, m := range c.Journal {
		if m.Type != MemoryPlan {
			continue
		}
		if s := scoreMemory(m, nearbyNames, nowTick); s > best {
			best = s
		}
	}
	return best
}

func scoreMemory(m Memory, nearbyNames []string, nowTick uint64) float64 {
	return recencyScore(m, nowTick) + importanceScore(m) + relevanceScore(m, nearbyNames)
}

func recencyScore(m Memory, nowTick uint64) float64 {
	if m.Tick > nowTick {
		hoursUntil := float64(m.Tick-nowTick) / ticksPerHour
		if m.Type == MemoryPlan {
			return math.Pow(0.99, hoursUntil)
		}
		return 1.0
	}
	hoursAgo := float64(nowTick-m.Tick) / ticksPerHour
	return math.Pow(0.5, hoursAgo)
}

func importanceScore(m Memory) float64 {
	return float64(m.Poignancy) / 10.0
}

func relevanceScore(m Memory, nearbyNames []string) float64 {
	score := 0.0
	for _, name := range nearbyNames {
		if name != "" && strings.Contains(m.Description, name) {
			score += 0.3
		}
	}
	if m.Type == MemoryPlan {
		score += 0.5
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

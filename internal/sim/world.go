// Package sim provides the turn-based town simulation: the world
// aggregate, the per-turn pipeline, and the engine loop that drives it.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/talgya/tiny-town/internal/agents"
	"github.com/talgya/tiny-town/internal/llm"
	"github.com/talgya/tiny-town/internal/scenario"
)

// Tick arithmetic. One tick is one sim-minute.
const (
	TicksPerHour = 60
	TicksPerDay  = 1440
)

// startTick is day 1, 08:00 — the town wakes up with the simulation.
const startTick = 8 * TicksPerHour

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Situation is a human-shaped view of the tick counter.
type Situation struct {
	Day    int `json:"day"` // 1-based; day 1 is a Monday
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// SituationAt converts a tick to day/hour/minute.
func SituationAt(tick uint64) Situation {
	return Situation{
		Day:    int(tick/TicksPerDay) + 1,
		Hour:   int(tick%TicksPerDay) / TicksPerHour,
		Minute: int(tick % TicksPerHour),
	}
}

// TickAt converts a day/hour/minute to the absolute tick.
func TickAt(day, hour, minute int) uint64 {
	return uint64(day-1)*TicksPerDay + uint64(hour)*TicksPerHour + uint64(minute)
}

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// SimTime returns a human-readable simulation time string.
func SimTime(tick uint64) string {
	s := SituationAt(tick)
	return fmt.Sprintf("Day %d (%s) %02d:%02d", s.Day, weekdayNames[(s.Day-1)%7], s.Hour, s.Minute)
}

// ConversationTurn is one utterance in a conversation log.
type ConversationTurn struct {
	SpeakerID   string `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
	Text        string `json:"text"`
	Tick        uint64 `json:"tick"`
}

// Conversation is a live or finished group exchange at one location.
type Conversation struct {
	ID           string             `json:"id"`
	Location     string             `json:"location"`
	Participants []string           `json:"participants"` // current member IDs
	Historical   []string           `json:"historical"`   // every ID that ever took part
	TurnHolder   string             `json:"turn_holder"`
	Log          []ConversationTurn `json:"log"`
	Active       bool               `json:"active"`
	StartedTick  uint64             `json:"started_tick"`
	EndedTick    uint64             `json:"ended_tick,omitempty"`
}

// Has reports whether the character is a current participant.
func (c *Conversation) Has(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Event is one line of world history.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"`
}

// QueuedMessage is an in-flight asynchronous message.
type QueuedMessage struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Body        string `json:"body"`
	SentTick    uint64 `json:"sent_tick"`
	DeliverTick uint64 `json:"deliver_tick"`
}

// World is the aggregate root: all mutable simulation state hangs off
// it, nothing is global. Mu guards every field; RunTurn and the API
// both take it.
type World struct {
	Mu sync.Mutex

	Scenario      *scenario.Scenario
	Characters    map[string]*agents.Character
	Order         []string // character IDs in seed order, the iteration order everywhere
	Conversations map[string]*Conversation
	Queue         []QueuedMessage
	Events        []Event
	Tick          uint64

	// MinutesPerTurn is how many sim-minutes one turn advances.
	MinutesPerTurn int

	LLM llm.Completer

	rng  *rand.Rand
	seed int64

	// Conversation IDs that ended during the current turn's resolution,
	// consumed by the distiller.
	endedThisTurn []string
}

// NewWorld seeds a fresh world from the scenario.
func NewWorld(sc *scenario.Scenario, seed int64, minutesPerTurn int, gen llm.Completer) *World {
	if minutesPerTurn <= 0 {
		minutesPerTurn = 10
	}
	w := &World{
		Scenario:       sc,
		MinutesPerTurn: minutesPerTurn,
		LLM:            gen,
		seed:           seed,
	}
	w.reset()
	return w
}

// Reset rebuilds the world from the scenario seed. Callers must not
// hold Mu.
func (w *World) Reset() {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	w.reset()
	slog.Info("world reset", "characters", len(w.Order), "sim_time", SimTime(w.Tick))
}

func (w *World) reset() {
	w.rng = rand.New(rand.NewSource(w.seed))
	w.Tick = startTick
	w.Characters = make(map[string]*agents.Character, len(w.Scenario.Characters))
	w.Order = w.Order[:0]
	w.Conversations = make(map[string]*Conversation)
	w.Queue = nil
	w.Events = nil
	w.endedThisTurn = nil

	for _, seed := range w.Scenario.Characters {
		c := &agents.Character{
			ID:            seed.ID,
			Name:          seed.Name,
			Role:          seed.Role,
			Archetype:     seed.Archetype,
			Personality:   seed.Personality,
			Avatar:        seed.Avatar,
			HomeLocation:  seed.Home,
			Location:      seed.Home,
			Energy:        80,
			Stress:        20,
			SocialNeed:    30,
			Mood:          "neutral",
			Relationships: make(map[string]*agents.Relationship),
		}
		w.Characters[c.ID] = c
		w.Order = append(w.Order, c.ID)
	}
}

// ByName finds a character by display name. Names are unique in a
// scenario.
func (w *World) ByName(name string) *agents.Character {
	for _, id := range w.Order {
		if w.Characters[id].Name == name {
			return w.Characters[id]
		}
	}
	return nil
}

// CharactersAt returns the characters at a location, excluding the
// given ID, in world order.
func (w *World) CharactersAt(location, excludeID string) []*agents.Character {
	var out []*agents.Character
	for _, id := range w.Order {
		c := w.Characters[id]
		if c.ID != excludeID && c.Location == location {
			out = append(out, c)
		}
	}
	return out
}

// logEvent appends to the bounded event log.
func (w *World) logEvent(description, category string) {
	w.Events = append(w.Events, Event{Tick: w.Tick, Description: description, Category: category})
	if len(w.Events) > maxEvents {
		w.Events = w.Events[len(w.Events)-maxEvents:]
	}
}

func (w *World) llmEnabled() bool {
	return w.LLM != nil
}

// validLocation reports whether the name is a real place.
func (w *World) validLocation(name string) bool {
	for _, l := range w.Scenario.Locations {
		if l.Name == name {
			return true
		}
	}
	return false
}

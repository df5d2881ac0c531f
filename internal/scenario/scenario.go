// Package scenario holds the static world tables: locations, archetype
// schedules, and the seed cast. Tables ship embedded and can be replaced
// by a YAML file on disk.
package scenario

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/tiny-town/internal/agents"
)

//go:embed data/town.yaml
var defaultTown []byte

// HomeSentinel in a schedule entry resolves to the character's own home
// location at lookup time.
const HomeSentinel = "home"

// Location is a named place characters can occupy.
type Location struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"` // residential, commercial, public
	Capacity    int    `yaml:"capacity,omitempty"`
}

// Entry is one sparse schedule row: from Hour onward (until the next
// entry) the character is at Location doing Status.
type Entry struct {
	Hour     int                   `yaml:"hour"`
	Location string                `yaml:"location"`
	Status   string                `yaml:"status"`
	Category agents.StatusCategory `yaml:"category"`
}

// Schedule holds the weekday and weekend day-shapes for an archetype.
// Entries must be sorted by hour ascending.
type Schedule struct {
	Weekday []Entry `yaml:"weekday"`
	Weekend []Entry `yaml:"weekend"`
}

// SeedCharacter describes one cast member before the world instantiates it.
type SeedCharacter struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Role        string `yaml:"role"`
	Archetype   string `yaml:"archetype"`
	Personality string `yaml:"personality"`
	Avatar      string `yaml:"avatar,omitempty"`
	Home        string `yaml:"home"`
}

// Scenario is the full static world description.
type Scenario struct {
	Name       string              `yaml:"name"`
	Locations  []Location          `yaml:"locations"`
	Archetypes map[string]Schedule `yaml:"archetypes"`
	Characters []SeedCharacter     `yaml:"characters"`
}

// Load reads a scenario from path, or the embedded default town when
// path is empty.
func Load(path string) (*Scenario, error) {
	data := defaultTown
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scenario: %w", err)
		}
		data = b
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func (s *Scenario) validate() error {
	if len(s.Characters) == 0 {
		return fmt.Errorf("no characters defined")
	}

	known := make(map[string]bool, len(s.Locations)+1)
	known[HomeSentinel] = true
	for _, l := range s.Locations {
		known[l.Name] = true
	}

	for _, c := range s.Characters {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("character missing id or name")
		}
		if !known[c.Home] {
			return fmt.Errorf("character %s: unknown home %q", c.ID, c.Home)
		}
	}

	for name, sched := range s.Archetypes {
		for _, day := range [][]Entry{sched.Weekday, sched.Weekend} {
			prev := -1
			for _, e := range day {
				if e.Hour < 0 || e.Hour > 23 {
					return fmt.Errorf("archetype %s: hour %d out of range", name, e.Hour)
				}
				if e.Hour <= prev {
					return fmt.Errorf("archetype %s: entries not sorted by hour", name)
				}
				prev = e.Hour
				if !known[e.Location] {
					return fmt.Errorf("archetype %s: unknown location %q", name, e.Location)
				}
			}
		}
	}
	return nil
}

// LocationNames returns every location name in declaration order.
func (s *Scenario) LocationNames() []string {
	names := make([]string, 0, len(s.Locations))
	for _, l := range s.Locations {
		names = append(names, l.Name)
	}
	return names
}

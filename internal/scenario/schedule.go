// Schedule resolution: what an archetype is doing at a given sim moment.
package scenario

// daysPerWeek and the weekend offsets. Day 1 is a Monday, so day-of-week
// indices 5 and 6 are the weekend.
const daysPerWeek = 7

// Weekend reports whether the given sim day (1-based) falls on a weekend.
func Weekend(day int) bool {
	dow := (day - 1) % daysPerWeek
	return dow == 5 || dow == 6
}

// ResolveSchedule returns the schedule entry in effect for the archetype
// at the given sim day and hour, or nil when the archetype is unknown.
//
// The entry in effect is the latest one with Hour <= hour. Before the
// first entry of the day the previous day's last block is still running
// (someone asleep since 23:00 is still asleep at 02:00), so resolution
// wraps to the final entry.
func (s *Scenario) ResolveSchedule(archetype string, day, hour int) *Entry {
	sched, ok := s.Archetypes[archetype]
	if !ok {
		return nil
	}

	entries := sched.Weekday
	if Weekend(day) {
		entries = sched.Weekend
	}
	if len(entries) == 0 {
		return nil
	}

	var current *Entry
	for i := range entries {
		if entries[i].Hour <= hour {
			current = &entries[i]
		}
	}
	if current == nil {
		current = &entries[len(entries)-1]
	}
	return current
}

// ResolveLocation maps a schedule entry's location to a concrete place,
// expanding the home sentinel.
func ResolveLocation(e *Entry, homeLocation string) string {
	if e.Location == HomeSentinel {
		return homeLocation
	}
	return e.Location
}

// IdleActions is the scripted flavor pool for characters with no
// schedule and nothing better to do.
var IdleActions = []string{
	"stretches and looks around",
	"gazes out the window",
	"hums a quiet tune",
	"tidies up the immediate surroundings",
	"scribbles something in a notebook",
	"checks the time",
}

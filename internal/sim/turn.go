// The per-turn pipeline, in a fixed order: schedules, reasoning,
// resolution, distillation, vitals, message delivery, nightly thinking,
// then the clock advances.
package sim

import "log/slog"

// RunTurn advances the world by one turn. It holds Mu for the full
// pipeline; a turn is the atomic unit of simulation.
func (w *World) RunTurn() {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	w.endedThisTurn = nil
	w.applySchedules()

	proposals := make([]Proposal, 0, len(w.Order))
	for _, id := range w.Order {
		proposals = append(proposals, w.propose(w.Characters[id]))
	}

	w.resolve(proposals)
	w.distillEnded()
	w.updateVitals()
	w.deliverMessages()
	w.handleNightly()

	w.Tick += uint64(w.MinutesPerTurn)

	slog.Debug("turn complete", "tick", w.Tick, "sim_time", SimTime(w.Tick))
}

// ActiveConversationCount returns the number of live conversations.
// Callers must hold Mu.
func (w *World) ActiveConversationCount() int {
	n := 0
	for _, conv := range w.Conversations {
		if conv.Active {
			n++
		}
	}
	return n
}

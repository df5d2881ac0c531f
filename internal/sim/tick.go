// The engine loop that drives turns in real time.
package sim

import (
	"log/slog"
	"sync"
	"time"
)

// Engine drives the simulation forward. A turn always runs to
// completion before the next one starts; reasoning latency stretches
// the wall-clock turn, never overlaps it.
//
// Speed and the running flag are touched by HTTP handlers while the
// loop reads them, so they live behind a mutex.
type Engine struct {
	World    *World
	Interval time.Duration // Base turn interval

	mu      sync.Mutex
	speed   float64 // multiplier: 1.0 = real-time, 0 = paused
	running bool

	// OnTurn fires after each completed turn — used for snapshots.
	OnTurn func(tick uint64)
}

// NewEngine creates an engine with default settings.
func NewEngine(w *World) *Engine {
	return &Engine{
		World:    w,
		Interval: 5 * time.Second,
		speed:    1.0,
	}
}

// Run starts the turn loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	slog.Info("engine started", "sim_time", SimTime(e.World.Tick), "speed", e.Speed())

	for e.Running() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the turn interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("engine stopped", "sim_time", SimTime(e.World.Tick))
}

// Stop halts the turn loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// Running reports whether the turn loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	e.speed = v
	e.mu.Unlock()
}

// Pause freezes the loop without exiting it.
func (e *Engine) Pause() {
	e.SetSpeed(0)
}

// Resume restores real-time speed after a pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.speed <= 0 {
		e.speed = 1.0
	}
	e.mu.Unlock()
}

// Step runs exactly one turn. Safe to call while paused.
func (e *Engine) Step() {
	e.World.RunTurn()
	if e.OnTurn != nil {
		e.OnTurn(e.World.Tick)
	}
}

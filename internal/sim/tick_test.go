package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnginePauseResumeSpeed(t *testing.T) {
	e := NewEngine(testWorld(t, nil))

	assert.Equal(t, 1.0, e.Speed())
	assert.False(t, e.Running())

	e.Pause()
	assert.Equal(t, 0.0, e.Speed())

	e.Resume()
	assert.Equal(t, 1.0, e.Speed())

	// Resume does not clobber an explicit fast-forward.
	e.SetSpeed(10)
	e.Resume()
	assert.Equal(t, 10.0, e.Speed())
}

func TestEngineStepRunsWhilePaused(t *testing.T) {
	e := NewEngine(testWorld(t, nil))
	e.Pause()

	var turns []uint64
	e.OnTurn = func(tick uint64) { turns = append(turns, tick) }

	before := e.World.Tick
	e.Step()

	assert.Equal(t, before+10, e.World.Tick)
	assert.Equal(t, []uint64{e.World.Tick}, turns)
}

// Engine state is shared between the loop and HTTP handlers; concurrent
// access must stay race-free.
func TestEngineSpeedControlIsConcurrencySafe(t *testing.T) {
	e := NewEngine(testWorld(t, nil))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				switch (n + j) % 4 {
				case 0:
					e.SetSpeed(float64(j % 5))
				case 1:
					e.Pause()
				case 2:
					e.Resume()
				default:
					_ = e.Speed()
					_ = e.Running()
				}
			}
		}(i)
	}
	wg.Wait()

	e.Resume()
	assert.Greater(t, e.Speed(), 0.0)
}

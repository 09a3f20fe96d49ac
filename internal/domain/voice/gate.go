package voice

import (
	"homehub/internal/metrics"
	"sync"
	"time"
)

// Gate tracks whether the system itself is speaking so its own voice is not
// taken for a command. One gate belongs to one voice client.
type Gate struct {
	clock       Clock
	settle      time.Duration
	maxSpeaking time.Duration

	mu       sync.RWMutex
	speaking bool
	epoch    uint64
	timer    Timer
}

func NewGate(clock Clock, settle, maxSpeaking time.Duration) *Gate {
	return &Gate{clock: clock, settle: settle, maxSpeaking: maxSpeaking}
}

func (g *Gate) IsSpeaking() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.speaking
}

// OnSynthesisStart marks the system as speaking. A watchdog clears the flag
// if the matching end never arrives.
func (g *Gate) OnSynthesisStart() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.speaking = true
	g.rearm(g.maxSpeaking)
}

// OnSynthesisEnd clears the flag once the settle delay has passed, letting
// room echo die down first.
func (g *Gate) OnSynthesisEnd() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.speaking {
		return
	}
	if g.settle <= 0 {
		g.epoch++
		g.stopTimer()
		g.speaking = false
		return
	}
	g.rearm(g.settle)
}

// WhileSilent runs fn only if the system is not speaking. Synthesis cannot
// start while fn runs, so fn must not block on anything that waits for the
// gate.
func (g *Gate) WhileSilent(fn func()) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.speaking {
		metrics.EchoSuppressed.Inc()
		return false
	}
	fn()
	return true
}

// Close cancels any pending timer.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.epoch++
	g.stopTimer()
}

func (g *Gate) rearm(d time.Duration) {
	g.epoch++
	g.stopTimer()
	if d <= 0 {
		return
	}
	epoch := g.epoch
	g.timer = g.clock.AfterFunc(d, func() { g.clear(epoch) })
}

func (g *Gate) clear(epoch uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if epoch != g.epoch {
		return
	}
	g.speaking = false
	g.timer = nil
}

func (g *Gate) stopTimer() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

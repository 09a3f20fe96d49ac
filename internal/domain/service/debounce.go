package service

import (
	"sync"
	"time"
)

// DebounceGuard rejects repeated requests for the same key inside a cooldown.
type DebounceGuard struct {
	cooldown time.Duration
	mu       sync.Mutex
	last     map[string]time.Time
}

func NewDebounceGuard(cooldown time.Duration) *DebounceGuard {
	return &DebounceGuard{cooldown: cooldown, last: make(map[string]time.Time)}
}

// Allow checks and records in one step: two callers racing on the same key
// cannot both win.
func (g *DebounceGuard) Allow(key string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, ok := g.last[key]; ok && now.Sub(last) < g.cooldown {
		return false
	}
	g.last[key] = now
	return true
}

func (g *DebounceGuard) Cooldown() time.Duration {
	return g.cooldown
}

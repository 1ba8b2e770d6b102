package capture

import (
	"sync"
	"time"
)

// Default gate settings.
const (
	DefaultIdleFPS     = 5
	DefaultActiveFPS   = 15
	DefaultIdleTimeout = 2 * time.Second
)

// Gate tracks whether the pipeline is idle or active. Motion switches it to
// active at once; it drops back to idle after IdleTimeout without motion.
type Gate struct {
	idleFPS     int
	activeFPS   int
	idleTimeout time.Duration
	now         func() time.Time

	mu         sync.Mutex
	active     bool
	lastMotion time.Time
}

// NewGate creates an idle Gate. Non-positive values use the defaults.
func NewGate(idleFPS, activeFPS int, idleTimeout time.Duration) *Gate {
	if idleFPS <= 0 {
		idleFPS = DefaultIdleFPS
	}
	if activeFPS <= 0 {
		activeFPS = DefaultActiveFPS
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Gate{
		idleFPS:     idleFPS,
		activeFPS:   activeFPS,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Observe records one motion sample and reports the resulting state and
// whether it changed.
func (g *Gate) Observe(motion bool) (active, changed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if motion {
		g.lastMotion = now
		if !g.active {
			g.active = true
			return true, true
		}
		return true, false
	}

	if g.active && now.Sub(g.lastMotion) > g.idleTimeout {
		g.active = false
		return false, true
	}
	return g.active, false
}

// Active reports whether the gate is in active mode.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// FPS returns the frame rate for the current mode.
func (g *Gate) FPS() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return g.activeFPS
	}
	return g.idleFPS
}

// Interval returns the frame interval for the current mode.
func (g *Gate) Interval() time.Duration {
	return time.Second / time.Duration(g.FPS())
}

// Reset returns the gate to idle mode.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = false
	g.lastMotion = time.Time{}
}

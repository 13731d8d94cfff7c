// pattern: Imperative Shell

package terminal

import (
	"sync"
	"time"

	"devagent/internal/logging"
)

// flowStallTimeout bounds how long a pause() can block the PTY reader before
// it is forced back open. A disconnected or misbehaving client that paused
// and never resumed would otherwise wedge the reader thread forever.
const flowStallTimeout = 2 * time.Second

// FlowGate is the shared latch between the PTY reader and the WebSocket
// receiver. Pause blocks the reader until Resume is called or the stall
// timeout elapses; either transition is acceptable and races freely.
type FlowGate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	logger *logging.ScopedLogger
}

// NewFlowGate creates a FlowGate in the running (unpaused) state.
func NewFlowGate(logger *logging.ScopedLogger) *FlowGate {
	g := &FlowGate{logger: logger}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Pause sets paused=true. Idempotent: pause()∘pause() == pause().
func (g *FlowGate) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

// Resume sets paused=false and wakes the reader. Idempotent:
// resume()∘resume() == resume(), and pause()∘resume() == resume().
func (g *FlowGate) Resume() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
	g.cond.Signal()
}

// WaitIfPaused blocks the calling (reader) goroutine while paused, up to
// flowStallTimeout, after which it force-resumes and logs a warning. Called
// only by the PTY reader thread, once per read cycle.
func (g *FlowGate) WaitIfPaused() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return
	}

	timer := time.AfterFunc(flowStallTimeout, func() {
		g.mu.Lock()
		if g.paused {
			g.paused = false
			g.logger.Warn("flow control auto-resumed after stall timeout")
			g.cond.Signal()
		}
		g.mu.Unlock()
	})
	defer timer.Stop()

	for g.paused {
		g.cond.Wait()
	}
}

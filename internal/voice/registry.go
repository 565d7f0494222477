package voice

import (
	"sync"
	"sync/atomic"

	"github.com/lukasbauer/vocalkart/internal/metrics"
)

// SessionRegistry tracks open voice sessions and supports graceful draining.
// While draining, new sessions are refused and open ones are asked to finish
// their turn and disconnect.
//
// Add checks draining and increments the WaitGroup under one lock, so no
// session can slip in between StartDraining and Wait.
type SessionRegistry struct {
	mu       sync.Mutex
	draining bool
	nextID   uint64
	stops    map[uint64]func()
	wg       sync.WaitGroup
	count    atomic.Int64
}

// SessionHandle is one registered session.
type SessionHandle struct {
	r    *SessionRegistry
	id   uint64
	once sync.Once
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{stops: make(map[uint64]func())}
}

// Add registers a session. It returns false while draining.
func (r *SessionRegistry) Add() (*SessionHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draining {
		return nil, false
	}
	r.nextID++
	r.wg.Add(1)
	r.count.Add(1)
	metrics.VoiceSessionsActive.Inc()
	return &SessionHandle{r: r, id: r.nextID}, true
}

// OnDrain sets the function that asks the session to wrap up. It is called
// once when draining starts, or right away if draining already started.
func (h *SessionHandle) OnDrain(stop func()) {
	r := h.r
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		stop()
		return
	}
	r.stops[h.id] = stop
	r.mu.Unlock()
}

// Done marks the session as closed. Extra calls are ignored.
func (h *SessionHandle) Done() {
	h.once.Do(func() {
		r := h.r
		r.mu.Lock()
		delete(r.stops, h.id)
		r.mu.Unlock()

		metrics.VoiceSessionsActive.Dec()
		r.count.Add(-1)
		r.wg.Done()
	})
}

// StartDraining makes every later Add return false and stops the open
// sessions.
func (r *SessionRegistry) StartDraining() {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	stops := make([]func(), 0, len(r.stops))
	for id, stop := range r.stops {
		stops = append(stops, stop)
		delete(r.stops, id)
	}
	r.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

// IsDraining reports whether StartDraining was called.
func (r *SessionRegistry) IsDraining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining
}

// ActiveCount returns the number of open sessions.
func (r *SessionRegistry) ActiveCount() int64 {
	return r.count.Load()
}

// Wait blocks until every open session is done.
func (r *SessionRegistry) Wait() {
	r.wg.Wait()
}

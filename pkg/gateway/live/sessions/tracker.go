// Package sessions tracks in-flight voice sessions so shutdown can
// drain them instead of dropping the sockets mid-conversation.
package sessions

import (
	"context"
	"sync"
	"sync/atomic"
)

type Tracker struct {
	mu       sync.Mutex
	active   map[string]*tracked
	wg       sync.WaitGroup
	draining atomic.Bool
}

type tracked struct {
	cancel func()
	once   sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]*tracked)}
}

// Register adds a running session. The returned func must be called
// when the session finishes; calling it more than once is safe.
func (t *Tracker) Register(sessionID string, cancel func()) (unregister func()) {
	if t == nil {
		return func() {}
	}

	entry := &tracked{cancel: cancel}

	t.mu.Lock()
	if t.active == nil {
		t.active = make(map[string]*tracked)
	}
	old := t.active[sessionID]
	t.active[sessionID] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		t.unregister(sessionID, old)
	}

	return func() { t.unregister(sessionID, entry) }
}

func (t *Tracker) unregister(sessionID string, entry *tracked) {
	if t == nil || entry == nil {
		return
	}
	entry.once.Do(func() {
		t.mu.Lock()
		if t.active != nil && t.active[sessionID] == entry {
			delete(t.active, sessionID)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

// SetDraining flips the draining flag. While draining the gateway
// refuses new voice sessions and reports not ready.
func (t *Tracker) SetDraining(draining bool) {
	if t == nil {
		return
	}
	t.draining.Store(draining)
}

func (t *Tracker) IsDraining() bool {
	if t == nil {
		return false
	}
	return t.draining.Load()
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// DrainAll cancels every tracked session and waits for them to finish,
// or for ctx to expire. Usage recording happens inside each session's
// drain, so waiting here is what keeps shutdown from losing minutes.
func (t *Tracker) DrainAll(ctx context.Context) bool {
	if t == nil {
		return true
	}

	var cancels []func()
	t.mu.Lock()
	for _, entry := range t.active {
		if entry == nil || entry.cancel == nil {
			continue
		}
		cancels = append(cancels, entry.cancel)
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

package service

import (
	"sync"

	"github.com/edustream/session-system/internal/core/domain"
)

// ConnectivityTracker holds store reachability independent of auth status.
// It is mutated only through the retry executor's sink callbacks and never
// drives a synchronizer transition itself.
type ConnectivityTracker struct {
	mu      sync.RWMutex
	current domain.Connectivity
	subs    map[int]func(domain.Connectivity)
	nextSub int
}

func NewConnectivityTracker() *ConnectivityTracker {
	return &ConnectivityTracker{
		current: domain.ConnectivityOnline,
		subs:    make(map[int]func(domain.Connectivity)),
	}
}

// Current returns the latest observed reachability.
func (t *ConnectivityTracker) Current() domain.Connectivity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Subscribe registers fn for reachability changes and returns the
// corresponding unsubscribe function. Callbacks run synchronously on the
// mutating goroutine and must not block.
func (t *ConnectivityTracker) Subscribe(fn func(domain.Connectivity)) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Reconnecting, Online, and Offline implement retry.Sink.
func (t *ConnectivityTracker) Reconnecting() { t.set(domain.ConnectivityReconnecting) }
func (t *ConnectivityTracker) Online()       { t.set(domain.ConnectivityOnline) }
func (t *ConnectivityTracker) Offline()      { t.set(domain.ConnectivityOffline) }

func (t *ConnectivityTracker) set(c domain.Connectivity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == c {
		return
	}
	t.current = c
	for _, fn := range t.subs {
		fn(c)
	}
}

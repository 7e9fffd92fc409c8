package broadcast

import (
	"sync"
)

// Broadcaster is a thread-safe pub/sub for change signals. Listeners are
// woken on every change and read the current value from its owner, so a
// listener that misses a signal still renders the latest state.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
	closed    bool
}

func New() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe registers a listener. Subscribing to a closed broadcaster
// returns an already closed channel.
func (b *Broadcaster) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners[ch] = struct{}{}
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.listeners[ch]; ok {
		delete(b.listeners, ch)
		close(ch)
	}
}

func (b *Broadcaster) Broadcast() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.listeners {
		select {
		case ch <- struct{}{}:
		default:
			// Signal already pending; the listener reads the newest state anyway.
		}
	}
}

// Close closes every listener channel and rejects new subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.listeners {
		delete(b.listeners, ch)
		close(ch)
	}
}

func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

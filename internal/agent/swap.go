package agent

import (
	"context"
	"sync"
)

// Swappable forwards to an Invoker that can be replaced while probes are
// running. Calls already in flight keep the invoker they started with.
type Swappable struct {
	mu      sync.RWMutex
	current Invoker
}

func NewSwappable(initial Invoker) *Swappable {
	return &Swappable{current: initial}
}

func (s *Swappable) Swap(next Invoker) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

func (s *Swappable) Invoke(ctx context.Context, message, agentID string) (Result, error) {
	s.mu.RLock()
	inv := s.current
	s.mu.RUnlock()
	if inv == nil {
		return Result{}, ErrNoEndpoint
	}
	return inv.Invoke(ctx, message, agentID)
}

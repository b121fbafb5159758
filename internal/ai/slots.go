package ai

import (
	"context"
	"sync"
)

// Slots allows at most one active session per conversation key. Starting a
// session on a busy key cancels the running one and waits for it to finish
// before streaming. Sessions on different keys run independently.
type Slots struct {
	mu     sync.Mutex
	active map[string]*slotRun
}

type slotRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSlots returns an empty slot table.
func NewSlots() *Slots {
	return &Slots{active: make(map[string]*slotRun)}
}

// Run executes sess in the slot key, superseding any session already there.
func (s *Slots) Run(ctx context.Context, key string, sess *Session, sink Sink) Outcome {
	ctx, cancel := context.WithCancel(ctx)
	cur := &slotRun{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.active[key]
	s.active[key] = cur
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.active[key] == cur {
			delete(s.active, key)
		}
		s.mu.Unlock()
		cancel()
		close(cur.done)
	}()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}
	return sess.Run(ctx, sink)
}

// Cancel stops the session active in key and waits for it to finish.
// It reports whether a session was active.
func (s *Slots) Cancel(key string) bool {
	s.mu.Lock()
	run := s.active[key]
	s.mu.Unlock()
	if run == nil {
		return false
	}
	run.cancel()
	<-run.done
	return true
}

// Active reports whether key has a running session.
func (s *Slots) Active(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[key] != nil
}

package ai

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSession(src Source) *Session {
	return NewSession(src, mustRequest("hi"), DefaultPolicy(), zap.NewNop())
}

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestSlots_SecondRunSupersedesFirst(t *testing.T) {
	slots := NewSlots()
	first := newBlockingSource("primero")

	firstDone := make(chan Outcome, 1)
	go func() {
		firstDone <- slots.Run(context.Background(), "chat-1", newTestSession(first), nil)
	}()
	<-first.started
	require.True(t, slots.Active("chat-1"))

	var mu sync.Mutex
	var order []string
	second := &fakeSource{deltas: []string{"segundo"}}
	out := slots.Run(context.Background(), "chat-1", newTestSession(second), func(d string) {
		mu.Lock()
		order = append(order, d)
		mu.Unlock()
	})

	prev := waitOutcome(t, firstDone)
	assert.Equal(t, Cancelled, prev.Kind)
	assert.Equal(t, "primero", prev.Text)
	assert.Equal(t, Completed, out.Kind)
	assert.Equal(t, []string{"segundo"}, order)
	assert.False(t, slots.Active("chat-1"))
}

// trackedSource records when the wrapped source has returned.
type trackedSource struct {
	Source
	returned atomic.Bool
}

func (s *trackedSource) Stream(ctx context.Context, req Request, yield func(string) bool) error {
	defer s.returned.Store(true)
	return s.Source.Stream(ctx, req, yield)
}

func TestSlots_PreviousFinishesBeforeNextStreams(t *testing.T) {
	slots := NewSlots()
	inner := newBlockingSource()
	first := &trackedSource{Source: inner}

	go slots.Run(context.Background(), "k", newTestSession(first), nil)
	<-inner.started

	var sawReturned []bool
	slots.Run(context.Background(), "k", newTestSession(&fakeSource{deltas: []string{"x", "y"}}), func(string) {
		sawReturned = append(sawReturned, first.returned.Load())
	})

	assert.Equal(t, []bool{true, true}, sawReturned)
}

func TestSlots_IndependentKeys(t *testing.T) {
	slots := NewSlots()
	a := newBlockingSource("a")

	aDone := make(chan Outcome, 1)
	go func() {
		aDone <- slots.Run(context.Background(), "a", newTestSession(a), nil)
	}()
	<-a.started

	out := slots.Run(context.Background(), "b", newTestSession(&fakeSource{deltas: []string{"b"}}), nil)
	assert.Equal(t, Completed, out.Kind)
	assert.True(t, slots.Active("a"), "other key keeps running")

	assert.True(t, slots.Cancel("a"))
	assert.Equal(t, Cancelled, waitOutcome(t, aDone).Kind)
	assert.False(t, slots.Active("a"))
}

func TestSlots_CancelIdle(t *testing.T) {
	assert.False(t, NewSlots().Cancel("nothing"))
}

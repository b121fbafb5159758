package ai

import (
	"context"
	"fmt"
	"strings"
)

// --- Test doubles ---

// fakeSource yields canned deltas, then returns err.
type fakeSource struct {
	deltas  []string
	err     error
	calls   int
	lastReq Request
}

func (f *fakeSource) Stream(_ context.Context, req Request, yield func(string) bool) error {
	f.calls++
	f.lastReq = req
	for _, d := range f.deltas {
		if !yield(d) {
			return nil
		}
	}
	return f.err
}

// blockingSource yields its deltas, signals started, then blocks until the
// context is done, like a connection waiting on the next read.
type blockingSource struct {
	deltas  []string
	started chan struct{}
}

func newBlockingSource(deltas ...string) *blockingSource {
	return &blockingSource{deltas: deltas, started: make(chan struct{})}
}

func (b *blockingSource) Stream(ctx context.Context, _ Request, yield func(string) bool) error {
	for _, d := range b.deltas {
		if !yield(d) {
			close(b.started)
			return nil
		}
	}
	close(b.started)
	<-ctx.Done()
	return ctx.Err()
}

// sse renders deltas as a chat-completions event stream ending in [DONE].
func sse(deltas ...string) string {
	var b strings.Builder
	for _, d := range deltas {
		fmt.Fprintf(&b, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func mustRequest(prompt string, opts ...RequestOption) Request {
	req, err := NewRequest(prompt, "system", opts...)
	if err != nil {
		panic(err)
	}
	return req
}

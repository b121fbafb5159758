package ai

import "context"

// StreamDelta represents a single chunk from a streaming AI response.
type StreamDelta struct {
	// Token is the text fragment.
	Token string
	// Done is true on the final value, which carries the Outcome.
	Done    bool
	Outcome *Outcome
	// Err is non-nil if the session failed.
	Err error
}

// Stream runs req in slot and emits each delta on the returned channel,
// followed by one Done value. The channel is closed afterwards and must be
// drained by the caller.
func (c *Client) Stream(ctx context.Context, slot string, req Request) <-chan StreamDelta {
	ch := make(chan StreamDelta)
	go func() {
		defer close(ch)
		out := c.Run(ctx, slot, req, func(delta string) {
			ch <- StreamDelta{Token: delta}
		})
		ch <- StreamDelta{Done: true, Outcome: &out, Err: out.Err}
	}()
	return ch
}

// collectStream reads all tokens from a stream channel and returns the
// concatenated result.
func collectStream(ch <-chan StreamDelta) (string, error) {
	var result string
	for delta := range ch {
		if delta.Err != nil {
			return result, delta.Err
		}
		result += delta.Token
	}
	return result, nil
}

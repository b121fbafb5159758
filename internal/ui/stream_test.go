package ui

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/baldionna/baldi/internal/ai"
)

func feed(deltas ...ai.StreamDelta) <-chan ai.StreamDelta {
	ch := make(chan ai.StreamDelta, len(deltas))
	for _, d := range deltas {
		ch <- d
	}
	close(ch)
	return ch
}

func done(out ai.Outcome) ai.StreamDelta {
	return ai.StreamDelta{Done: true, Outcome: &out, Err: out.Err}
}

func TestRenderStream_BasicTokens(t *testing.T) {
	ch := feed(
		ai.StreamDelta{Token: "hello"},
		ai.StreamDelta{Token: " world"},
		done(ai.Outcome{Kind: ai.Completed, Text: "hello world"}),
	)

	var buf bytes.Buffer
	out, err := RenderStream(&buf, ch, "  ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "hello world" || out.Kind != ai.Completed {
		t.Errorf("unexpected outcome %+v", out)
	}
	if !strings.HasPrefix(buf.String(), "  hello") {
		t.Errorf("expected output to start with prefix, got %q", buf.String())
	}
}

func TestRenderStream_EmptyPrefix(t *testing.T) {
	ch := feed(ai.StreamDelta{Token: "test"}, done(ai.Outcome{Kind: ai.Completed, Text: "test"}))

	var buf bytes.Buffer
	if _, err := RenderStream(&buf, ch, "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.HasPrefix(buf.String(), " ") {
		t.Error("empty prefix should not add leading space")
	}
}

func TestRenderStream_SkipsEmptyTokens(t *testing.T) {
	ch := feed(
		ai.StreamDelta{Token: ""},
		ai.StreamDelta{Token: "hello"},
		ai.StreamDelta{Token: ""},
		done(ai.Outcome{Kind: ai.Completed, Text: "hello"}),
	)

	var buf bytes.Buffer
	if _, err := RenderStream(&buf, ch, ">", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), ">hello") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestRenderStream_Failed(t *testing.T) {
	ch := feed(
		ai.StreamDelta{Token: "partial"},
		done(ai.Outcome{Kind: ai.Failed, Text: "partial", Err: fmt.Errorf("stream broke")}),
	)

	var buf bytes.Buffer
	out, err := RenderStream(&buf, ch, "", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if out.Text != "partial" {
		t.Errorf("expected partial text, got %q", out.Text)
	}
	if !strings.Contains(err.Error(), "stream broke") {
		t.Errorf("expected 'stream broke', got: %v", err)
	}
}

func TestRenderStream_TruncatedShowsMarker(t *testing.T) {
	marker := ai.TripTokenBudget.Marker()
	ch := feed(
		ai.StreamDelta{Token: "long answer"},
		done(ai.Outcome{Kind: ai.TruncatedByGuard, Text: "long answer" + marker, Marker: marker, Trip: ai.TripTokenBudget}),
	)

	var buf bytes.Buffer
	out, err := RenderStream(&buf, ch, "", nil)
	if err != nil {
		t.Fatalf("truncation is not an error: %v", err)
	}
	if out.Kind != ai.TruncatedByGuard {
		t.Errorf("expected truncated outcome, got %s", out.Kind)
	}
	if !strings.Contains(buf.String(), "[output truncated: length limit reached]") {
		t.Errorf("expected marker in output, got %q", buf.String())
	}
}

func TestRenderStream_Cancelled(t *testing.T) {
	ch := feed(ai.StreamDelta{Token: "hal"}, done(ai.Outcome{Kind: ai.Cancelled, Text: "hal"}))

	var buf bytes.Buffer
	_, err := RenderStream(&buf, ch, "", nil)
	if err != nil {
		t.Fatalf("cancellation is not an error: %v", err)
	}
	if !strings.Contains(buf.String(), "[cancelled]") {
		t.Errorf("expected cancel note, got %q", buf.String())
	}
}

func TestRenderStream_OnFirstRunsOnce(t *testing.T) {
	calls := 0
	var order []string
	ch := feed(ai.StreamDelta{Token: "a"}, ai.StreamDelta{Token: "b"}, done(ai.Outcome{Kind: ai.Completed}))

	var buf bytes.Buffer
	RenderStream(&buf, ch, "", func() {
		calls++
		order = append(order, fmt.Sprintf("first:%q", buf.String()))
	})
	if calls != 1 {
		t.Errorf("expected onFirst once, got %d", calls)
	}
	if order[0] != `first:""` {
		t.Errorf("onFirst must run before output, got %v", order)
	}
}

func TestRenderStream_OnFirstWithoutTokens(t *testing.T) {
	calls := 0
	ch := feed(done(ai.Outcome{Kind: ai.Completed}))

	var buf bytes.Buffer
	RenderStream(&buf, ch, ">> ", func() { calls++ })
	if calls != 1 {
		t.Errorf("expected onFirst once for an empty stream, got %d", calls)
	}
}

func TestRenderStream_ClosedChannel(t *testing.T) {
	ch := make(chan ai.StreamDelta)
	close(ch)

	var buf bytes.Buffer
	out, err := RenderStream(&buf, ch, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "" || out.Kind != ai.Completed {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestRenderStream_AddsTrailingNewline(t *testing.T) {
	ch := feed(ai.StreamDelta{Token: "no newline at end"}, done(ai.Outcome{Kind: ai.Completed}))

	var buf bytes.Buffer
	RenderStream(&buf, ch, "", nil)
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("output should end with newline")
	}
}

func TestRenderStream_PreservesExistingNewline(t *testing.T) {
	ch := feed(ai.StreamDelta{Token: "ends with newline\n"}, done(ai.Outcome{Kind: ai.Completed}))

	var buf bytes.Buffer
	RenderStream(&buf, ch, "", nil)
	if strings.HasSuffix(buf.String(), "\n\n\n") {
		t.Errorf("should not triple-newline, got %q", buf.String())
	}
}

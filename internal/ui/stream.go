package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/baldionna/baldi/internal/ai"
)

// RenderStream reads tokens from a StreamDelta channel and writes them to w
// as they arrive. prefix is written before the first token. onFirst, if set,
// runs once before anything is written, typically to stop a spinner.
// It returns the session outcome; a failed session also returns its error.
func RenderStream(w io.Writer, ch <-chan ai.StreamDelta, prefix string, onFirst func()) (ai.Outcome, error) {
	var full strings.Builder
	var out *ai.Outcome
	first := true
	begin := func() {
		if first {
			first = false
			if onFirst != nil {
				onFirst()
			}
			fmt.Fprint(w, prefix)
		}
	}

	for delta := range ch {
		if delta.Done {
			out = delta.Outcome
			continue
		}
		if delta.Token == "" {
			continue
		}
		begin()
		fmt.Fprint(w, delta.Token)
		full.WriteString(delta.Token)
	}
	if first && onFirst != nil {
		onFirst()
	}

	if out == nil {
		out = &ai.Outcome{Kind: ai.Completed, Text: full.String()}
	}

	// Ensure we end with a newline.
	if full.Len() > 0 && !strings.HasSuffix(full.String(), "\n") {
		fmt.Fprintln(w)
	}

	switch out.Kind {
	case ai.TruncatedByGuard:
		color.New(color.FgYellow).Fprintln(w, strings.TrimSpace(out.Marker))
	case ai.Cancelled:
		color.New(color.FgHiBlack).Fprintln(w, "[cancelled]")
	case ai.Failed:
		fmt.Fprintln(w)
		return *out, out.Err
	}
	fmt.Fprintln(w)
	return *out, nil
}

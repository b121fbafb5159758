package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/baldionna/baldi/internal/logging"
)

const (
	dataPrefix     = "data:"
	doneSentinel   = "[DONE]"
	readBufferSize = 4096
	logPayloadMax  = 200
)

// Decoder frames a server-sent event byte stream into text deltas.
// A line is only processed once its terminating newline has arrived, so the
// yielded sequence does not depend on how the bytes were chunked.
type Decoder struct {
	buf  []byte
	done bool
	err  error
	log  *zap.Logger
}

// NewDecoder returns a decoder logging skipped events to log.
// A nil log uses the process logger.
func NewDecoder(log *zap.Logger) *Decoder {
	if log == nil {
		log = logging.L()
	}
	return &Decoder{log: log}
}

// Feed appends p to the buffer and yields the delta of every complete line.
// It returns false once decoding must stop: the sentinel was seen, a fatal
// provider error arrived (see Err), or yield returned false. Bytes fed after
// that are discarded.
func (d *Decoder) Feed(p []byte, yield func(delta string) bool) bool {
	if d.done {
		return false
	}
	d.buf = append(d.buf, p...)
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]
		if !d.line(line, yield) {
			d.done = true
			d.buf = nil
			return false
		}
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return true
}

// Err returns the fatal in-stream error that stopped decoding, if any.
func (d *Decoder) Err() error { return d.err }

// Done reports whether decoding has stopped.
func (d *Decoder) Done() bool { return d.done }

// Finish ends decoding at end of input. A trailing unterminated line is
// dropped since it may hold truncated JSON.
func (d *Decoder) Finish() {
	if rest := strings.TrimSpace(string(d.buf)); rest != "" && !d.done {
		d.log.Debug("dropping unterminated trailing line", zap.String("line", truncate(rest, logPayloadMax)))
	}
	d.buf = nil
	d.done = true
}

func (d *Decoder) line(raw string, yield func(string) bool) bool {
	line := strings.TrimSpace(raw)
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, dataPrefix) {
		d.log.Debug("skipping non-data line", zap.String("line", truncate(line, logPayloadMax)))
		return true
	}

	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == doneSentinel {
		return false
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		d.log.Warn("skipping malformed event", zap.Error(err), zap.String("payload", truncate(payload, logPayloadMax)))
		return true
	}
	if chunk.Error != nil {
		d.err = &StreamError{Code: chunk.Error.Code, Message: chunk.Error.Message}
		return false
	}
	if len(chunk.Choices) == 0 {
		return true
	}
	if delta := chunk.Choices[0].Delta.Content; delta != "" {
		return yield(delta)
	}
	return true
}

// Decode reads r until end of input, the sentinel, a fatal event, yield
// returning false, or ctx being done. It returns nil on every normal stop.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, yield func(delta string) bool) error {
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 && !d.Feed(buf[:n], yield) {
			return d.err
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.Finish()
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "\n... (truncated)"
}

package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baldionna/baldi/internal/logging"
)

// OutcomeKind is the terminal state of a session.
type OutcomeKind string

const (
	Completed        OutcomeKind = "completed"
	Cancelled        OutcomeKind = "cancelled"
	TruncatedByGuard OutcomeKind = "truncated"
	Failed           OutcomeKind = "failed"
)

// Outcome is the terminal result of one streamed completion.
type Outcome struct {
	Kind OutcomeKind
	// Text is every forwarded delta concatenated, plus Marker when truncated.
	Text string
	// Marker is the note appended when the guard tripped.
	Marker string
	Trip   TripReason
	Err    error
	Deltas int
	// FirstDelta is the latency until the first forwarded delta.
	FirstDelta time.Duration
	Duration   time.Duration
}

// Sink receives accepted deltas in arrival order.
type Sink func(delta string)

// Session runs one request against a source, guarding every delta.
// A Session is single-use.
type Session struct {
	source Source
	req    Request
	policy Policy
	log    *zap.Logger
}

// NewSession prepares a session. A nil log uses the process logger.
func NewSession(source Source, req Request, policy Policy, log *zap.Logger) *Session {
	if log == nil {
		log = logging.L()
	}
	return &Session{source: source, req: req, policy: policy, log: log}
}

// Run streams the request, forwarding admitted deltas to sink, and returns
// the terminal outcome. No delta reaches sink after Run returns.
func (s *Session) Run(ctx context.Context, sink Sink) Outcome {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		acc       strings.Builder
		guard     = NewGuard(s.policy)
		trip      TripReason
		cancelled bool
		deltas    int
		first     time.Duration
	)

	err := s.source.Stream(ctx, s.req, func(delta string) bool {
		if ctx.Err() != nil {
			cancelled = true
			return false
		}
		if reason := guard.Admit(delta); reason != TripNone {
			trip = reason
			cancel()
			return false
		}
		if deltas == 0 {
			first = time.Since(start)
		}
		deltas++
		acc.WriteString(delta)
		if sink != nil {
			sink(delta)
		}
		return true
	})

	out := Outcome{
		Deltas:     deltas,
		FirstDelta: first,
		Duration:   time.Since(start),
	}
	switch {
	case trip != TripNone:
		out.Kind = TruncatedByGuard
		out.Trip = trip
		out.Marker = trip.Marker()
		acc.WriteString(out.Marker)
	case cancelled, err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		out.Kind = Cancelled
	case err != nil:
		out.Kind = Failed
		out.Err = err
	default:
		out.Kind = Completed
	}
	out.Text = acc.String()

	fields := []zap.Field{
		zap.String("outcome", string(out.Kind)),
		zap.Int("deltas", out.Deltas),
		zap.Duration("duration", out.Duration),
	}
	switch out.Kind {
	case TruncatedByGuard:
		s.log.Info("stream truncated by guard", append(fields, zap.String("trip", string(trip)))...)
	case Failed:
		s.log.Warn("stream failed", append(fields, zap.Error(err))...)
	default:
		s.log.Debug("stream finished", fields...)
	}
	return out
}

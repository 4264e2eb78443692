package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"

	"go.opentelemetry.io/otel/attribute"
)

// Callback is one operator answer: the action token and the handle to acknowledge.
type Callback struct {
	Token  string
	Handle string
}

// Outcome reports what HandleCallback did.
type Outcome struct {
	Recognized   bool
	Transition   approval.Transition
	Durable      bool
	Acknowledged bool
}

// HandleCallback applies an operator answer and acknowledges it.
//
// The acknowledgment is sent whatever the token held, including unknown tokens and
// store failures. A failed acknowledgment does not undo the transition.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "relay.HandleCallback")
	defer span.End()

	var errs []error
	out := Outcome{Durable: true}

	t, ok, err := approval.Apply(ctx, s.store, cb.Token)
	switch {
	case err == nil:
	case approval.IsDegraded(err):
		out.Durable = false
	default:
		errs = append(errs, fmt.Errorf("apply callback: %w", err))
	}

	if ok {
		out.Recognized = true
		out.Transition = t
		span.SetAttributes(
			attribute.String("session.id", t.ID),
			attribute.String("session.state", t.To.String()),
		)

		// A new decision replaces any read-and-reap cycle of the previous one.
		s.reaper.Cancel(t.ID)
		s.metrics.transition(t.To.String())
		s.log.Info("relay.session.transition", "session_id", t.ID, "state", t.To, "durable", out.Durable)
		s.notifyListeners(t.ID, t.To)
	} else if err == nil {
		s.metrics.unrecognizedCallback()
		s.log.Debug("relay.callback.unrecognized", "token_len", len(cb.Token))
	}

	ackCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	if err := s.messenger.Acknowledge(ackCtx, cb.Handle); err != nil {
		s.log.Warn("relay.callback.ack_failed", "err", err)
		errs = append(errs, fmt.Errorf("%w: %w", ErrAckFailed, err))
	} else {
		out.Acknowledged = true
	}

	if err := errors.Join(errs...); err != nil {
		return out, spanError(span, err)
	}
	return out, nil
}

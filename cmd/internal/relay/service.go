package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultSendTimeout = 10 * time.Second

	tracerName = "github.com/arapchelogoi/Sendwave/relay"
)

// Created is the result of a successful CreateSession.
// Durable is false when the pending record is held in memory only.
type Created struct {
	SessionID string
	Durable   bool
}

// Service is the relay core. It is safe for concurrent use.
type Service struct {
	store     approval.Store
	messenger Messenger
	reaper    *Reaper

	log         *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	now         func() time.Time
	sendTimeout time.Duration
	deleteDelay time.Duration

	listenersMu sync.RWMutex
	listeners   []StatusListener
}

// Option configures the Service.
type Option func(*Service) error

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// WithMetrics records notifications, transitions and reaping into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) error {
		s.metrics = m
		return nil
	}
}

// WithTracerProvider sets the provider spans are started from (default: otel global).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) error {
		if tp == nil {
			return ErrInvalidInput
		}
		s.tracer = tp.Tracer(tracerName)
		return nil
	}
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// WithSendTimeout bounds every outbound messenger call.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		s.sendTimeout = d
		return nil
	}
}

// WithDeleteDelay sets how long a terminal session survives after it was read.
func WithDeleteDelay(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		s.deleteDelay = d
		return nil
	}
}

// WithStatusListener registers l for transition notifications.
func WithStatusListener(l StatusListener) Option {
	return func(s *Service) error {
		if l == nil {
			return ErrInvalidInput
		}
		s.listeners = append(s.listeners, l)
		return nil
	}
}

// NewService constructs a Service over store and messenger.
func NewService(store approval.Store, messenger Messenger, opts ...Option) (*Service, error) {
	if store == nil || messenger == nil {
		return nil, ErrInvalidInput
	}

	s := &Service{
		store:       store,
		messenger:   messenger,
		log:         slog.Default(),
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
		sendTimeout: DefaultSendTimeout,
		deleteDelay: DefaultDeleteDelay,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.reaper = NewReaper(store, s.deleteDelay, s.log, s.metrics)
	return s, nil
}

// AddStatusListener registers l after construction.
func (s *Service) AddStatusListener(l StatusListener) {
	if l == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// Reaper exposes the deferred-deletion scheduler.
func (s *Service) Reaper() *Reaper { return s.reaper }

// Close stops pending deletions. The store and messenger are owned by the caller.
func (s *Service) Close() {
	s.reaper.Stop()
}

// CreateSession notifies the operator of a login attempt and, once the message is
// accepted, records the new session as pending.
func (s *Service) CreateSession(ctx context.Context, in LoginAttempt) (Created, error) {
	ctx, span := s.tracer.Start(ctx, "relay.CreateSession")
	defer span.End()

	in, err := in.normalize()
	if err != nil {
		return Created{}, spanError(span, err)
	}

	now := s.now()
	id, err := NewSessionID(in.Phone, now)
	if err != nil {
		return Created{}, spanError(span, err)
	}
	span.SetAttributes(attribute.String("session.id", id))

	if err := s.send(ctx, loginNotification(id, in, now)); err != nil {
		return Created{}, spanError(span, err)
	}

	out := Created{SessionID: id, Durable: true}
	if err := s.store.Put(ctx, id, approval.StatePending); err != nil {
		if !approval.IsDegraded(err) {
			return Created{}, spanError(span, fmt.Errorf("persist session: %w", err))
		}
		out.Durable = false
		span.SetAttributes(attribute.Bool("session.durable", false))
	}

	s.log.Info("relay.session.created", "session_id", id, "durable", out.Durable)
	return out, nil
}

// NotifyFollowUp sends the one-time-code notification for an existing session.
// The store is not consulted.
func (s *Service) NotifyFollowUp(ctx context.Context, in OTPEntry) error {
	ctx, span := s.tracer.Start(ctx, "relay.NotifyFollowUp")
	defer span.End()

	in, err := in.normalize()
	if err != nil {
		return spanError(span, err)
	}
	span.SetAttributes(attribute.String("session.id", in.SessionID))

	if err := s.send(ctx, followUpNotification(in, s.now())); err != nil {
		return spanError(span, err)
	}

	s.log.Info("relay.followup.sent", "session_id", in.SessionID)
	return nil
}

func (s *Service) send(ctx context.Context, n Notification) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.messenger.Send(sendCtx, n); err != nil {
		s.metrics.notification(n.Kind, "error")
		s.log.Warn("relay.notification.failed", "kind", n.Kind, "session_id", n.SessionID, "err", err)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	s.metrics.notification(n.Kind, "ok")
	return nil
}

func (s *Service) notifyListeners(id string, state approval.State) {
	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l.SessionChanged(id, state)
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	if !errors.Is(err, ErrMissingFields) {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

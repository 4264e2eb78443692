package relay

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestService(t *testing.T, store approval.Store, m *fakeMessenger, opts ...Option) *Service {
	t.Helper()

	base := []Option{
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return fixedNow }),
	}
	svc, err := NewService(store, m, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, &fakeMessenger{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewService(approval.NewMemoryStore(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewService(approval.NewMemoryStore(), &fakeMessenger{}, WithSendTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateSession_SendsLoginNotificationThenPersistsPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := approval.NewMemoryStore()
	m := &fakeMessenger{}
	svc := newTestService(t, store, m)

	created, err := svc.CreateSession(ctx, LoginAttempt{
		CountryFlag: "🇺🇸",
		CountryCode: "+1",
		Phone:       "5551234567",
		PIN:         "9999",
	})
	require.NoError(t, err)
	assert.True(t, created.Durable)
	assert.Regexp(t, hexID, created.SessionID)

	sent := m.sentCopy()
	require.Len(t, sent, 1)
	n := sent[0]
	assert.Equal(t, KindLogin, n.Kind)
	assert.Equal(t, created.SessionID, n.SessionID)
	assert.Contains(t, n.Text, "🇺🇸 *Phone:* `+15551234567`")
	assert.Contains(t, n.Text, "*PIN:* `9999`")
	assert.Contains(t, n.Text, "2026-03-14 15:09:26")
	assert.Equal(t, []Choice{
		{Label: "🔑 Request OTP", Token: "otp_request_" + created.SessionID},
		{Label: "❌ Wrong PIN", Token: "wrong_pin_" + created.SessionID},
	}, n.Choices)

	st, err := svc.QueryStatus(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, approval.StatePending, st)
}

func TestCreateSession_DefaultsFlagAndCode(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	svc := newTestService(t, approval.NewMemoryStore(), m)

	_, err := svc.CreateSession(context.Background(), LoginAttempt{Phone: "123", PIN: "0000"})
	require.NoError(t, err)

	sent := m.sentCopy()
	require.Len(t, sent, 1)
	assert.True(t, strings.Contains(sent[0].Text, "🌐 *Phone:* `+123`"), sent[0].Text)
}

func TestCreateSession_MissingFieldsHasNoSideEffects(t *testing.T) {
	t.Parallel()

	store := approval.NewMemoryStore()
	m := &fakeMessenger{}
	svc := newTestService(t, store, m)

	for _, in := range []LoginAttempt{
		{Phone: "5551234567"},
		{PIN: "9999"},
		{Phone: "  ", PIN: "9999"},
	} {
		_, err := svc.CreateSession(context.Background(), in)
		assert.ErrorIs(t, err, ErrMissingFields)
	}
	assert.Empty(t, m.sentCopy())
	assert.Equal(t, 0, store.Len())
}

func TestCreateSession_SendFailurePersistsNothing(t *testing.T) {
	t.Parallel()

	store := approval.NewMemoryStore()
	m := &fakeMessenger{sendErr: errChannelDown}
	svc := newTestService(t, store, m)

	created, err := svc.CreateSession(context.Background(), LoginAttempt{Phone: "1", PIN: "2"})
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, errChannelDown)
	assert.Empty(t, created.SessionID)
	assert.Equal(t, 0, store.Len())
}

func TestCreateSession_SendTimeout(t *testing.T) {
	t.Parallel()

	store := approval.NewMemoryStore()
	m := &fakeMessenger{block: true}
	svc := newTestService(t, store, m, WithSendTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := svc.CreateSession(context.Background(), LoginAttempt{Phone: "1", PIN: "2"})
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, store.Len())
}

func TestCreateSession_DegradedStoreReportsNotDurable(t *testing.T) {
	t.Parallel()

	backend := brokenStore{approval.NewMemoryStore()}
	store := approval.NewResilient(backend, quietLogger())
	svc := newTestService(t, store, &fakeMessenger{})

	created, err := svc.CreateSession(context.Background(), LoginAttempt{Phone: "1", PIN: "2"})
	require.NoError(t, err)
	assert.False(t, created.Durable)

	st, err := store.Get(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, approval.StatePending, st)
	assert.Equal(t, 1, store.DegradedLen())
}

func TestCreateSession_UnwrappedStoreFailureIsReported(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, brokenStore{approval.NewMemoryStore()}, &fakeMessenger{})

	_, err := svc.CreateSession(context.Background(), LoginAttempt{Phone: "1", PIN: "2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist session")
}

func TestNotifyFollowUp_SendsWithoutTouchingStore(t *testing.T) {
	t.Parallel()

	store := approval.NewMemoryStore()
	m := &fakeMessenger{}
	svc := newTestService(t, store, m)

	err := svc.NotifyFollowUp(context.Background(), OTPEntry{
		SessionID:   "never-created",
		OTP:         "123456",
		CountryCode: "+44",
		Phone:       "7700900000",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	sent := m.sentCopy()
	require.Len(t, sent, 1)
	assert.Equal(t, KindFollowUp, sent[0].Kind)
	assert.Contains(t, sent[0].Text, "*Phone:* `+447700900000`")
	assert.Contains(t, sent[0].Text, "*OTP:* `123456`")
	assert.Equal(t, []Choice{
		{Label: "❌ Wrong Code", Token: "wrong_never-created"},
		{Label: "✅ Continue", Token: "continue_never-created"},
	}, sent[0].Choices)
}

func TestNotifyFollowUp_Errors(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, approval.NewMemoryStore(), &fakeMessenger{})
	err := svc.NotifyFollowUp(context.Background(), OTPEntry{SessionID: "s1"})
	assert.ErrorIs(t, err, ErrMissingFields)

	failing := newTestService(t, approval.NewMemoryStore(), &fakeMessenger{sendErr: errChannelDown})
	err = failing.NotifyFollowUp(context.Background(), OTPEntry{SessionID: "s1", OTP: "1"})
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestService_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	m := &fakeMessenger{}
	svc := newTestService(t, approval.NewMemoryStore(), m, WithMetrics(metrics))
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, LoginAttempt{Phone: "1", PIN: "2"})
	require.NoError(t, err)
	_, err = svc.HandleCallback(ctx, Callback{Token: "otp_request_" + created.SessionID, Handle: "q1"})
	require.NoError(t, err)
	_, err = svc.HandleCallback(ctx, Callback{Token: "bogus", Handle: "q2"})
	require.NoError(t, err)
	_, err = svc.QueryStatus(ctx, created.SessionID)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.notifications.WithLabelValues("login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.unrecognized))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.deletionsScheduled))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.deletionsPending))
}

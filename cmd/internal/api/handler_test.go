package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
	"github.com/arapchelogoi/Sendwave/cmd/internal/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMessenger struct {
	mu      sync.Mutex
	sent    []relay.Notification
	acked   []string
	sendErr error
}

func (m *stubMessenger) Send(_ context.Context, n relay.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *stubMessenger) Acknowledge(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, handle)
	return nil
}

func (m *stubMessenger) ackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.acked)
}

type stubRegistrar struct {
	hook, secret string
	err          error
}

func (s *stubRegistrar) SetWebhook(_ context.Context, hook, secret string) error {
	s.hook, s.secret = hook, secret
	return s.err
}

type testEnv struct {
	srv       *httptest.Server
	store     *approval.MemoryStore
	messenger *stubMessenger
	registrar *stubRegistrar
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		store:     approval.NewMemoryStore(),
		messenger: &stubMessenger{},
		registrar: &stubRegistrar{},
	}

	svc, err := relay.NewService(env.store, env.messenger,
		relay.WithLogger(log),
		relay.WithDeleteDelay(time.Hour),
	)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	h, err := NewHandler(log, svc, cfg, WithWebhookRegistrar(env.registrar))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	env.srv = httptest.NewServer(mux)
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(string(raw)))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPI_LoginThenPollThroughApproval(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})

	resp, body := env.postJSON(t, "/api", map[string]any{
		"action":      "login_attempt",
		"countryFlag": "🇺🇸",
		"countryCode": "+1",
		"phone":       5551234567,
		"pin":         "9999",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	id, _ := data["sessionId"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, true, data["durable"])

	poll := func() string {
		resp, err := http.Get(env.srv.URL + "/api?action=check_status&sessionId=" + url.QueryEscape(id))
		require.NoError(t, err)
		b := decodeBody(t, resp)
		require.Equal(t, true, b["success"])
		return b["status"].(string)
	}
	assert.Equal(t, "pending", poll())

	update := `{"update_id":1,"callback_query":{"id":"cbq-1","data":"otp_request_` + id + `"}}`
	wh, err := http.Post(env.srv.URL+"/webhook", "application/json", strings.NewReader(update))
	require.NoError(t, err)
	b, _ := io.ReadAll(wh.Body)
	_ = wh.Body.Close()
	assert.Equal(t, http.StatusOK, wh.StatusCode)
	assert.Equal(t, "OK", string(b))
	assert.Equal(t, 1, env.messenger.ackCount())

	assert.Equal(t, "approved", poll())
}

func TestAPI_FormBodyAndMissingFields(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})

	resp, err := http.PostForm(env.srv.URL+"/api", url.Values{
		"action": {"login_attempt"},
		"phone":  {"5551234567"},
	})
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Missing fields", body["error"])
	assert.Equal(t, 0, env.store.Len())

	resp, err = http.PostForm(env.srv.URL+"/api", url.Values{
		"action": {"login_attempt"},
		"phone":  {"5551234567"},
		"pin":    {"1111"},
	})
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}

func TestAPI_SendFailureReportsNoSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})
	env.messenger.mu.Lock()
	env.messenger.sendErr = errors.New("telegram unreachable")
	env.messenger.mu.Unlock()

	resp, body := env.postJSON(t, "/api", map[string]any{"action": "login_attempt", "phone": "1", "pin": "2"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to create session", body["error"])
	assert.Equal(t, 0, env.store.Len())
}

func TestAPI_OTPEntered(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})

	resp, body := env.postJSON(t, "/api", map[string]any{"action": "otp_entered", "sessionId": "abc", "otp": "123456"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	env.messenger.mu.Lock()
	require.Len(t, env.messenger.sent, 1)
	n := env.messenger.sent[0]
	env.messenger.mu.Unlock()
	assert.Equal(t, relay.KindFollowUp, n.Kind)
	assert.Equal(t, "wrong_abc", n.Choices[0].Token)

	resp, body = env.postJSON(t, "/api", map[string]any{"action": "otp_entered", "sessionId": "abc"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing data", body["error"])
}

func TestAPI_CheckStatusWithoutID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})

	resp, err := http.Get(env.srv.URL + "/api?action=check_status")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "unknown", body["status"])
}

func TestAPI_InvalidActionAndMethod(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})

	resp, body := env.postJSON(t, "/api", map[string]any{"action": "delete_everything"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid action", body["error"])

	req, err := http.NewRequest(http.MethodDelete, env.srv.URL+"/api", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebhook_SecretRequiredWhenConfigured(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{WebhookSecret: "hook-secret"})
	update := `{"update_id":9,"callback_query":{"id":"q","data":"continue_s1"}}`

	resp, err := http.Post(env.srv.URL+"/webhook", "application/json", strings.NewReader(update))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, env.store.Len())

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/webhook", strings.NewReader(update))
	require.NoError(t, err)
	req.Header.Set(SecretHeader, "hook-secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	st, err := env.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, approval.StateContinue, st)
}

func TestWebhook_IgnoresNonCallbackAndGarbage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, Config{})

	for _, body := range []string{`{"update_id":3,"message":{"text":"hi"}}`, `not json`} {
		resp, err := http.Post(env.srv.URL+"/webhook", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", string(b))
	}
	assert.Equal(t, 0, env.messenger.ackCount())
	assert.Equal(t, 0, env.store.Len())
}

func TestSetupWebhook(t *testing.T) {
	t.Parallel()

	unset := newTestEnv(t, Config{})
	resp, err := http.Get(unset.srv.URL + "/setup-webhook")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	env := newTestEnv(t, Config{PublicURL: "https://relay.example/", WebhookSecret: "abc"})
	resp, err = http.Get(env.srv.URL + "/setup-webhook")
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://relay.example/webhook", body["webhook"])
	assert.Equal(t, "https://relay.example/webhook", env.registrar.hook)
	assert.Equal(t, "abc", env.registrar.secret)
}

func TestWebhookURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", WebhookURL("  "))
	assert.Equal(t, "https://a.example/webhook", WebhookURL("https://a.example"))
	assert.Equal(t, "https://a.example/webhook", WebhookURL("https://a.example///"))
}

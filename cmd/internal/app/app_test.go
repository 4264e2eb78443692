package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:3000", want: "http://127.0.0.1:3000"},
		{name: "bind all v4", in: "0.0.0.0:3000", want: "http://127.0.0.1:3000"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "port only", in: ":8080", want: "http://127.0.0.1:8080"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, runtimeBaseURL(tc.in))
		})
	}
}

func TestWSBaseURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ws://127.0.0.1:3000", wsBaseURL("http://127.0.0.1:3000"))
	assert.Equal(t, "wss://relay.example.com", wsBaseURL("https://relay.example.com"))
	assert.Equal(t, "ws://127.0.0.1:3000", wsBaseURL("127.0.0.1:3000"))
}

// fakeBotAPI answers every Bot API method with ok and keeps the last sendMessage form.
type fakeBotAPI struct {
	mu      sync.Mutex
	methods []string
	lastMsg url.Values
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.methods = append(f.methods, method)
	if method == "sendMessage" {
		f.lastMsg = r.PostForm
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
}

func (f *fakeBotAPI) callbackData(t *testing.T, button int) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotNil(t, f.lastMsg)
	var markup struct {
		InlineKeyboard [][]struct {
			CallbackData string `json:"callback_data"`
		} `json:"inline_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.lastMsg.Get("reply_markup")), &markup))
	require.NotEmpty(t, markup.InlineKeyboard)
	require.Greater(t, len(markup.InlineKeyboard[0]), button)
	return markup.InlineKeyboard[0][button].CallbackData
}

func (f *fakeBotAPI) calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.methods {
		if m == method {
			n++
		}
	}
	return n
}

func newTestApp(t *testing.T, mutate func(*Config)) (*App, *httptest.Server, *fakeBotAPI) {
	t.Helper()

	bot := &fakeBotAPI{}
	botSrv := httptest.NewServer(bot)
	t.Cleanup(botSrv.Close)

	cfg := Config{
		LogFormat:      "json",
		BotToken:       "123456:test-token",
		AdminChatID:    "42",
		TelegramAPIURL: botSrv.URL,
		Store:          StoreMemory,
		MaxBodyBytes:   64 << 10,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv, bot
}

func getJSON(t *testing.T, rawURL string) map[string]any {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Store: StoreMemory}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RELAY_BOT_TOKEN")
}

func TestApp_LoginApprovalRoundTrip(t *testing.T) {
	t.Parallel()

	_, srv, bot := newTestApp(t, nil)

	form := url.Values{
		"action":      {"login_attempt"},
		"countryCode": {"+44"},
		"phone":       {"7700900123"},
		"pin":         {"1234"},
	}
	resp, err := http.PostForm(srv.URL+"/api", form)
	require.NoError(t, err)
	var created struct {
		Success bool `json:"success"`
		Data    struct {
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()
	require.True(t, created.Success)
	id := created.Data.SessionID
	require.Len(t, id, 32)

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, 1, bot.calls("sendMessage"))

	status := getJSON(t, srv.URL+"/api?action=check_status&sessionId="+id)
	assert.Equal(t, "pending", status["status"])

	update := `{"update_id":7,"callback_query":{"id":"cbq-7","data":"` + bot.callbackData(t, 0) + `"}}`
	wh, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(update))
	require.NoError(t, err)
	body, _ := io.ReadAll(wh.Body)
	_ = wh.Body.Close()
	assert.Equal(t, "OK", string(body))
	assert.Equal(t, 1, bot.calls("answerCallbackQuery"))

	status = getJSON(t, srv.URL+"/api?action=check_status&sessionId="+id)
	assert.Equal(t, "approved", status["status"])
}

func TestApp_OperationalEndpoints(t *testing.T) {
	t.Parallel()

	_, srv, _ := newTestApp(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "go_goroutines")
}

func TestApp_ReadinessRequiresDurableStore(t *testing.T) {
	t.Parallel()

	_, srv, _ := newTestApp(t, func(c *Config) { c.ReadinessRequireStore = true })

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestApp_SQLiteBackendIsWrapped(t *testing.T) {
	t.Parallel()

	a, srv, _ := newTestApp(t, func(c *Config) {
		c.Store = StoreSQLite
		c.SQLitePath = filepath.Join(t.TempDir(), "sessions.db")
	})
	assert.True(t, a.backend.durable())
	require.NotNil(t, a.backend.ping)

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_StaticDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>sendwave</h1>"), 0o600))

	_, srv, _ := newTestApp(t, func(c *Config) { c.StaticDir = dir })

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "sendwave")
}

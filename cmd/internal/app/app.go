// Package app wires the relay server runtime: config, logging, session storage, the
// Telegram client, HTTP routes and the status stream.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/api"
	"github.com/arapchelogoi/Sendwave/cmd/internal/realtime"
	"github.com/arapchelogoi/Sendwave/cmd/internal/relay"
	"github.com/arapchelogoi/Sendwave/cmd/internal/telegram"
	"github.com/arapchelogoi/Sendwave/cmd/security/token"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
)

const webhookRegisterTimeout = 15 * time.Second

// App is the relay server runtime. It owns the session backend and every component
// built on top of it.
type App struct {
	cfg Config
	log Logger

	backend  *sessionBackend
	registry *prometheus.Registry

	telegram *telegram.Client
	relay    *relay.Service
	ws       *realtime.WSGateway
	api      *api.Handler

	shutdownTracing func(context.Context) error
}

// New constructs a fully wired App from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	tp, shutdownTracing, err := newTracerProvider(ctx, cfg.TraceStdout, nil)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := relay.NewMetrics(reg)

	backend, err := newSessionBackend(ctx, cfg, log, metrics.StoreDegraded)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	a := &App{
		cfg:             cfg,
		log:             log,
		backend:         backend,
		registry:        reg,
		shutdownTracing: shutdownTracing,
	}

	if err := a.wire(metrics, tp); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) wire(metrics *relay.Metrics, tp trace.TracerProvider) error {
	tg, err := telegram.New(telegram.Config{
		Token:       a.cfg.BotToken,
		AdminChatID: a.cfg.AdminChatID,
		APIURL:      a.cfg.TelegramAPIURL,
	}, telegram.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.telegram = tg

	hub := realtime.NewHub(a.log)

	svc, err := relay.NewService(a.backend.store, tg,
		relay.WithLogger(a.log),
		relay.WithMetrics(metrics),
		relay.WithTracerProvider(tp),
		relay.WithSendTimeout(a.cfg.SendTimeout),
		relay.WithDeleteDelay(a.cfg.DeleteDelay),
		relay.WithStatusListener(hub),
	)
	if err != nil {
		return err
	}
	a.relay = svc

	ws, err := realtime.NewWSGateway(a.log, hub, svc, realtime.LoadGatewayConfigFromEnv())
	if err != nil {
		return err
	}
	a.ws = ws

	h, err := api.NewHandler(a.log, svc, api.Config{
		PublicURL:     a.cfg.PublicURL,
		WebhookSecret: a.cfg.WebhookSecret,
		MaxBodyBytes:  int64(a.cfg.MaxBodyBytes),
	}, api.WithWebhookRegistrar(tg))
	if err != nil {
		return err
	}
	a.api = h

	return nil
}

// Handler returns the full HTTP handler chain.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.backend, a.registry, a.ws, a.api)

	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	return WithRequestLogging(h, a.log)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 20*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"url", base,
		"ws_url", wsBaseURL(base)+"/ws",
		"store", a.backend.kind,
		"durable", a.backend.durable(),
		"webhook_secret_fp", secretFingerprint(a.cfg.WebhookSecret),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if a.cfg.PublicURL != "" {
		go a.registerWebhook(ctx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		runErr = errors.Join(runErr, err)
	}

	if err := a.Close(shutdownCtx); err != nil {
		a.log.Error("app.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return runErr
}

// Close stops pending deletions and releases the session backend and tracing.
func (a *App) Close(ctx context.Context) error {
	if a.relay != nil {
		a.relay.Close()
	}
	var errs []error
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.shutdownTracing != nil {
		errs = append(errs, a.shutdownTracing(ctx))
	}
	return errors.Join(errs...)
}

func (a *App) registerWebhook(ctx context.Context) {
	hook := api.WebhookURL(a.cfg.PublicURL)

	ctx, cancel := context.WithTimeout(ctx, webhookRegisterTimeout)
	defer cancel()

	if err := a.telegram.SetWebhook(ctx, hook, a.cfg.WebhookSecret); err != nil {
		a.log.Error("telegram.webhook.register_failed", "url", hook, "err", err)
		return
	}
	a.log.Info("telegram.webhook.registered", "url", hook, "secret_fp", secretFingerprint(a.cfg.WebhookSecret))
}

// secretFingerprint is safe to log; empty means no secret is configured.
func secretFingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return token.Fingerprint(secret)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

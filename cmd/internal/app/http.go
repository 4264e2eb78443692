package app

import (
	"net/http"
	"os"

	"github.com/arapchelogoi/Sendwave/cmd/internal/api"
	"github.com/arapchelogoi/Sendwave/cmd/internal/realtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	backend *sessionBackend,
	reg *prometheus.Registry,
	ws *realtime.WSGateway,
	relayAPI *api.Handler,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireStore && !backend.durable() {
			http.Error(w, "durable store not configured", http.StatusServiceUnavailable)
			return
		}

		if backend.ping != nil {
			if err := backend.ping(r.Context()); err != nil {
				http.Error(w, "store not ready", http.StatusServiceUnavailable)
				log.Info("readyz.store.not_ready", "store", backend.kind, "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	if relayAPI != nil {
		relayAPI.Register(mux)
	}

	if ws != nil {
		mux.HandleFunc("/ws", ws.HandleWS)
	}

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err != nil || !info.IsDir() {
			log.Warn("http.static.unavailable", "dir", cfg.StaticDir, "err", err)
			return
		}
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}
}

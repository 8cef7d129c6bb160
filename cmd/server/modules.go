package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mobby57/memoLib-sub019/internal/api"
	"github.com/mobby57/memoLib-sub019/internal/config"
	"github.com/mobby57/memoLib-sub019/internal/infrastructure"
	"github.com/mobby57/memoLib-sub019/pkg/module"
)

// Modules holds the prefixed HTTP modules mounted on the router.
type Modules struct {
	API *module.Module
}

// NewModules creates all HTTP modules from the infrastructure and configuration.
func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

// Mount registers every module with the router.
func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) *module.Router {
	router := module.NewRouter()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"status":    "not ready",
				"not_ready": infra.Lifecycle.NotReady(),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	if cfg.Metrics.On() {
		router.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(infra.Metrics, promhttp.HandlerOpts{}))
	}

	return router
}

package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/scribe/internal/api"
	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
	"github.com/JaimeStill/scribe/pkg/lifecycle"
	"github.com/JaimeStill/scribe/pkg/module"
)

type Modules struct {
	API *api.API
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API.Module)
}

func buildRouter(infra *infrastructure.Infrastructure, version string) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		body, ready := readiness(infra)
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeStatus(w, status, body)
	})

	return router
}

// readiness reports each subsystem. Completion is informational: without
// API keys the service still reviews and humanizes.
func readiness(infra *infrastructure.Infrastructure) (map[string]string, bool) {
	checks := map[string]lifecycle.ReadinessChecker{
		"lifecycle": infra.Lifecycle,
		"database":  infra.Database,
	}
	if infra.Cache != nil {
		checks["cache"] = infra.Cache
	}

	body := map[string]string{"completion": "disabled"}
	if infra.Completion != nil {
		body["completion"] = "enabled"
	}

	ready := true
	for name, c := range checks {
		if c.Ready() {
			body[name] = "up"
			continue
		}
		body[name] = "down"
		ready = false
	}

	body["status"] = "ready"
	if !ready {
		body["status"] = "not ready"
	}
	return body, ready
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

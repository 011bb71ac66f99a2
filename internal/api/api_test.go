package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/scribe/internal/api"
	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/infrastructure"
	"github.com/JaimeStill/scribe/pkg/database"
	"github.com/JaimeStill/scribe/pkg/middleware"
	"github.com/JaimeStill/scribe/pkg/pagination"
)

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "scribe",
			User:            "scribe",
			Password:        "scribe",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		API: config.APIConfig{
			BasePath:    "/api",
			MaxBodySize: "1MB",
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
		},
		Pipeline: config.PipelineConfig{
			ReviewInterval:  "15m",
			RewriteInterval: "30m",
			SweepInterval:   "24h",
			CleanupInterval: "0s",
			ReviewBatch:     10,
			RewriteBatch:    5,
		},
		LogLevel:        "error",
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	t.Cleanup(func() { infra.Database.Connection().Close() })
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig()
	a, err := api.NewModule(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if a.Module.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", a.Module.Prefix())
	}
	if a.Domain.Posts == nil || a.Domain.Reviews == nil || a.Domain.Rules == nil || a.Domain.Rewrite == nil {
		t.Error("domain systems not initialized")
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig()
	runtime := api.NewRuntime(cfg, setupInfra(t, cfg))

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Logger == nil {
		t.Error("runtime logger is nil")
	}
	if runtime.Database == nil {
		t.Error("runtime database is nil")
	}
	if runtime.Completion != nil {
		t.Error("runtime completion should be nil without api keys")
	}
	if runtime.Pipeline.ReviewBatch != 10 {
		t.Errorf("pipeline review batch: got %d, want 10", runtime.Pipeline.ReviewBatch)
	}
}

func TestDomainTasks(t *testing.T) {
	cfg := validConfig()
	runtime := api.NewRuntime(cfg, setupInfra(t, cfg))
	domain := api.NewDomain(runtime)

	enabled := 0
	for _, task := range domain.Tasks(runtime) {
		if task.Interval > 0 {
			enabled++
		}
	}
	if enabled != 3 {
		t.Errorf("enabled tasks: got %d, want 3", enabled)
	}
}

func TestRoutes(t *testing.T) {
	cfg := validConfig()
	cfg.API.MaxBodySize = "512B"
	a, err := api.NewModule(cfg, setupInfra(t, cfg))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{
			name: "humanize",
			path: "/api/humanize",
			body: `{"title":"Budgets: A Guide","hero":{"hook":"It is **simple**."}}`,
			code: http.StatusOK,
		},
		{
			name: "body over limit",
			path: "/api/humanize",
			body: `{"title":"` + strings.Repeat("x", 600) + `"}`,
			code: http.StatusBadRequest,
		},
		{
			name: "rewrite without completion",
			path: "/api/rewrites/7d4f3b0e-8f2a-4c57-9d0e-2a1b3c4d5e6f",
			code: http.StatusServiceUnavailable,
		},
		{
			name: "rewrite bad id",
			path: "/api/rewrites/nope",
			code: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			a.Module.Serve(rec, req)

			if rec.Code != tt.code {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, tt.code, rec.Body)
			}
		})
	}
}

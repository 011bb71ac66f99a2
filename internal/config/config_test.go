package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/scribe/internal/config"
	"github.com/JaimeStill/scribe/internal/ratelimit"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"
log_level = "debug"

[server]
host = "0.0.0.0"
port = 8080

[database]
host = "localhost"
port = 5432
name = "scribe"
user = "scribe"
password = "scribe"

[api]
base_path = "/api"

[api.pagination]
default_page_size = 25
max_page_size = 50

[completion]
api_keys = ["key-a", "key-b"]
generation_model = "gemini-2.5-flash"

[ratelimit.generation]
rpm = 5

[pipeline]
enabled = true
review_interval = "10m"
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[cache]
enabled = true
host = "redis"

[ratelimit]
ledger = "redis"
`

const minimalConfig = `
[database]
name = "scribe"
user = "scribe"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func loadFrom(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeConfig(t, dir, name, content)
	}
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := loadFrom(t, map[string]string{"config.toml": baseConfig})

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("db host: got %s, want localhost", cfg.Database.Host)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 {
		t.Errorf("pagination default_page_size: got %d, want 25", cfg.API.Pagination.DefaultPageSize)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level: got %v, want debug", cfg.Level())
	}
	if diff := cmp.Diff([]string{"key-a", "key-b"}, cfg.Completion.APIKeys); diff != "" {
		t.Errorf("api keys mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Pipeline.Enabled || cfg.Pipeline.ReviewIntervalDuration() != 10*time.Minute {
		t.Errorf("pipeline: got %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.RewriteIntervalDuration() != 30*time.Minute {
		t.Errorf("rewrite interval default: got %v", cfg.Pipeline.RewriteIntervalDuration())
	}
	if cfg.Pipeline.DuplicateThreshold != 0.85 {
		t.Errorf("duplicate threshold default: got %v, want 0.85", cfg.Pipeline.DuplicateThreshold)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by default")
	}
}

func TestLoadWithOverlay(t *testing.T) {
	t.Setenv("SCRIBE_ENV", "staging")
	cfg := loadFrom(t, map[string]string{
		"config.toml":         baseConfig,
		"config.staging.toml": overlayConfig,
	})

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port: got %d, want 5432 (from base)", cfg.Database.Port)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Host != "redis" || cfg.RateLimit.Ledger != config.LedgerRedis {
		t.Errorf("cache overlay: got %+v ledger=%s", cfg.Cache, cfg.RateLimit.Ledger)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	t.Setenv("SCRIBE_VERSION", "2.0.0")
	t.Setenv("SCRIBE_SERVER_PORT", "3000")
	t.Setenv("SCRIBE_LOG_LEVEL", "WARN")
	t.Setenv("SCRIBE_PIPELINE_REVIEW_BATCH", "3")
	t.Setenv("SCRIBE_PIPELINE_DUPLICATE_THRESHOLD", "0.9")

	cfg := loadFrom(t, map[string]string{"config.toml": baseConfig})

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("level: got %v, want warn", cfg.Level())
	}
	if cfg.Pipeline.ReviewBatch != 3 {
		t.Errorf("review batch: got %d, want 3", cfg.Pipeline.ReviewBatch)
	}
	if cfg.Pipeline.DuplicateThreshold != 0.9 {
		t.Errorf("duplicate threshold: got %v, want 0.9", cfg.Pipeline.DuplicateThreshold)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Setenv("SCRIBE_DB_NAME", "testdb")
	t.Setenv("SCRIBE_DB_USER", "testuser")

	cfg := loadFrom(t, nil)

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("db name from env: got %s, want testdb", cfg.Database.Name)
	}
	if cfg.Env() != "local" {
		t.Errorf("env: got %s, want local", cfg.Env())
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("shutdown timeout: got %v, want 30s", cfg.ShutdownTimeoutDuration())
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", `shutdown_timeout = `)
	chdir(t, dir)

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{"invalid port", "[server]\nport = 99999", "invalid port"},
		{"invalid log level", `log_level = "loud"`, "invalid log_level"},
		{"invalid ledger", "[ratelimit]\nledger = \"memory\"", "invalid ledger"},
		{"redis ledger without cache", "[ratelimit]\nledger = \"redis\"", "requires cache.enabled"},
		{"invalid interval", "[pipeline]\nreview_interval = \"often\"", "invalid review_interval"},
		{"invalid batch", "[pipeline]\nrewrite_batch = -1", "invalid rewrite_batch"},
		{"invalid duplicate threshold", "[pipeline]\nduplicate_threshold = 1.5", "invalid duplicate_threshold"},
		{"invalid dimensions", "[completion]\ndimensions = -5", "invalid dimensions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", tt.config+"\n"+minimalConfig)
			chdir(t, dir)

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCompletionKeys(t *testing.T) {
	t.Setenv("SCRIBE_COMPLETION_API_KEYS", " key-a, key-b ,,key-a")
	t.Setenv("SCRIBE_COMPLETION_API_KEY", "key-c")

	cfg := loadFrom(t, map[string]string{"config.toml": minimalConfig})

	want := []string{"key-a", "key-b", "key-c"}
	if diff := cmp.Diff(want, cfg.Completion.APIKeys); diff != "" {
		t.Errorf("api keys mismatch (-want +got):\n%s", diff)
	}
	if cfg.Completion.MinDelayDuration() != 10*time.Second {
		t.Errorf("min delay: got %v", cfg.Completion.MinDelayDuration())
	}
	if cfg.Completion.Dimensions != 768 {
		t.Errorf("dimensions: got %d", cfg.Completion.Dimensions)
	}
}

func TestRateLimitDefaults(t *testing.T) {
	cfg := loadFrom(t, map[string]string{"config.toml": baseConfig})

	want := map[ratelimit.ModelType]ratelimit.Limits{
		ratelimit.Generation: {RPM: 5, TPM: 250000, RPD: 20},
		ratelimit.Embedding:  ratelimit.DefaultLimits[ratelimit.Embedding],
	}
	if diff := cmp.Diff(want, cfg.RateLimit.Defaults()); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.RateLimit.LimitsTTLDuration() != 5*time.Minute {
		t.Errorf("limits ttl: got %v", cfg.RateLimit.LimitsTTLDuration())
	}
}

func TestMaxBodySizeBytes(t *testing.T) {
	tests := []struct {
		name string
		size string
		want int64
	}{
		{"valid 2MB", "2MB", 2 * 1024 * 1024},
		{"valid 512KB", "512KB", 512 * 1024},
		{"invalid falls back to 1MB", "bad", 1024 * 1024},
		{"empty falls back to 1MB", "", 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.APIConfig{MaxBodySize: tt.size}
			if got := cfg.MaxBodySizeBytes(); got != tt.want {
				t.Errorf("MaxBodySizeBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServerConfig(t *testing.T) {
	var s config.ServerConfig
	if err := s.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if got := s.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("addr: got %s", got)
	}
	if got := s.ReadHeaderTimeoutDuration(); got != 10*time.Second {
		t.Errorf("read header timeout: got %v", got)
	}
	if got := s.WriteTimeoutDuration(); got != 5*time.Minute {
		t.Errorf("write timeout: got %v", got)
	}

	bad := config.ServerConfig{ReadHeaderTimeout: "soon"}
	if err := bad.Finalize(); err == nil || !strings.Contains(err.Error(), "read_header_timeout") {
		t.Errorf("err = %v, want read_header_timeout error", err)
	}
}

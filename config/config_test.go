package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeFile(t, "restkit.yml", `
name: api-cli
format: xml
suffix: true
client:
  site: https://api.example.com
  username: alice
  timeout: 5s
  async: true
  max_concurrency: 4
  headers:
    X-Team: core
  tls:
    skip_verify: true
logging:
  level: debug
  format: json
tracing:
  endpoint: collector:4318
`)

	var cfg Config
	if err := LoadConfig("restkit-test", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "api-cli" || cfg.Format != "xml" || !cfg.Suffix {
		t.Errorf("unexpected top-level values %+v", cfg)
	}
	c := cfg.Client
	if c.Site != "https://api.example.com" || c.Username != "alice" || c.Timeout != 5*time.Second {
		t.Errorf("unexpected client %+v", c)
	}
	if !c.Async || c.MaxConcurrency != 4 {
		t.Errorf("expected async with 4 workers, got %+v", c)
	}
	if c.TLS == nil || !c.TLS.SkipVerify {
		t.Errorf("expected tls.skip_verify, got %+v", c.TLS)
	}
	if c.Headers["x-team"] != "core" && c.Headers["X-Team"] != "core" {
		t.Errorf("expected header, got %v", c.Headers)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.Tracing == nil || cfg.Tracing.Endpoint != "collector:4318" {
		t.Errorf("unexpected tracing %+v", cfg.Tracing)
	}
	if cfg.Metrics != nil {
		t.Error("metrics section was not configured")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeFile(t, "restkit.yml", `
client:
  site: https://file.example.com
  timeout: 5s
`)
	t.Setenv("RKTEST_CLIENT_SITE", "https://env.example.com")
	t.Setenv("RKTEST_CLIENT_MAX_CONCURRENCY", "8")
	t.Setenv("RKTEST_FORMAT", "yaml")
	t.Setenv("OTHER_CLIENT_SITE", "https://ignored.example.com")

	var cfg Config
	if err := LoadConfig("rktest", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.Site != "https://env.example.com" {
		t.Errorf("expected env to override file, got %q", cfg.Client.Site)
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Errorf("expected file value to remain, got %v", cfg.Client.Timeout)
	}
	if cfg.Client.MaxConcurrency != 8 {
		t.Errorf("expected max_concurrency 8, got %d", cfg.Client.MaxConcurrency)
	}
	if cfg.Format != "yaml" {
		t.Errorf("expected format yaml, got %q", cfg.Format)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	envPath := writeFile(t, ".env", "RKENV_CLIENT_TOKEN=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("RKENV_CLIENT_TOKEN") })

	var cfg Config
	if err := LoadConfig("rkenv", &cfg, WithEnvFile(envPath), WithFileSystem(&mockFS{files: map[string]bool{envPath: true}, real: true})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Client.Token != "from-dotenv" {
		t.Errorf("expected token from .env, got %q", cfg.Client.Token)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg Config
	err := LoadConfig("restkit", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestLoadConfigNothingFound(t *testing.T) {
	var cfg Config
	if err := LoadConfig("restkit", &cfg, WithFileSystem(&mockFS{})); err != nil {
		t.Fatalf("expected empty config without files, got %v", err)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeFile(t, "bad.yml", "client: [unclosed\n")
	var cfg Config
	if err := LoadConfig("restkit", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

type mockFS struct {
	files map[string]bool
	home  string
	real  bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error {
	if m.real {
		return RealFileSystem{}.LoadEnv(path)
	}
	return nil
}
func (m *mockFS) HomeDir() (string, error) { return m.home, nil }

func TestResolverSearchOrder(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]bool
		wantConfig string
		wantEnv    string
	}{
		{"nothing", map[string]bool{}, "", ""},
		{"service file wins", map[string]bool{"./restkit.yml": true, "./config.yml": true}, "./restkit.yml", ""},
		{"config dir", map[string]bool{"./config/restkit.yml": true}, "./config/restkit.yml", ""},
		{"home", map[string]bool{"/home/u/.config/restkit/config.yml": true}, "/home/u/.config/restkit/config.yml", ""},
		{"service env first", map[string]bool{"./.env": true, "./config/.env.restkit": true}, "", "./config/.env.restkit"},
		{"plain env", map[string]bool{"./.env": true}, "", "./.env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{FileSystem: &mockFS{files: tt.files, home: "/home/u"}}
			got := r.ResolveFiles("restkit", LoaderConfig{})
			want := ResolvedFiles{ConfigFile: tt.wantConfig, EnvFile: tt.wantEnv}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("resolved files mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolverExplicitPaths(t *testing.T) {
	r := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./restkit.yml": true}}}
	got := r.ResolveFiles("restkit", LoaderConfig{ConfigFile: "/etc/rk.yml", EnvFile: "/etc/rk.env"})
	if got.ConfigFile != "/etc/rk.yml" || got.EnvFile != "/etc/rk.env" {
		t.Errorf("explicit paths must win, got %+v", got)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("CLIENT_MAX_CONCURRENCY")
	want := []string{
		"client_max_concurrency",
		"client.max.concurrency",
		"client.max_concurrency",
		"client_max.concurrency",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("variants mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"format"}, envKeyVariants("FORMAT")); diff != "" {
		t.Errorf("single key mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvPrefix(t *testing.T) {
	if got := envPrefix("my-tool"); got != "MY_TOOL_" {
		t.Errorf("expected MY_TOOL_, got %q", got)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Debug: true, Tracing: &observability.TracerConfig{Endpoint: "collector:4318"}}
	cfg.ApplyDefaults()

	if cfg.Name != DefaultName || cfg.Environment != "development" {
		t.Errorf("unexpected defaults %q %q", cfg.Name, cfg.Environment)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("debug must raise the log level, got %q", cfg.Logging.Level)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Errorf("expected client defaults, got %v", cfg.Client.Timeout)
	}
	tc := cfg.Tracing
	if tc.ServiceName != DefaultName || tc.Endpoint != "collector:4318" || tc.SampleRate != 1.0 || tc.Environment != "development" {
		t.Errorf("unexpected tracing defaults %+v", tc)
	}
	if cfg.Metrics != nil {
		t.Error("metrics must stay disabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid without site", Config{}, ""},
		{"bad format", Config{Format: "csv"}, "format"},
		{"bad environment", Config{Environment: "qa"}, "environment"},
		{"bad logging", Config{Logging: logger.Config{Level: "loud"}}, "logging"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error about %s, got %v", tt.wantErr, err)
			}
		})
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "portal")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "portal.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Database.Driver != config.DriverSQLite {
		t.Fatalf("expected sqlite driver by default, got %q", cfg.Database.Driver)
	}
	if cfg.Notifications.Provider != config.ProviderNone {
		t.Fatalf("expected notifications disabled by default, got %q", cfg.Notifications.Provider)
	}
	if cfg.Artifacts.Backend != config.BackendFilesystem {
		t.Fatalf("expected fs artifact backend, got %q", cfg.Artifacts.Backend)
	}
	if !strings.HasPrefix(cfg.Artifacts.Dir, tempHome) {
		t.Fatalf("expected artifacts dir under HOME, got %q", cfg.Artifacts.Dir)
	}
	if cfg.Server.Listen != "127.0.0.1:8480" {
		t.Fatalf("unexpected listen address: %q", cfg.Server.Listen)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "portal.toml")

	type payload struct {
		Server struct {
			PublicBaseURL string `toml:"public_base_url"`
		} `toml:"server"`
		Database struct {
			Driver string `toml:"driver"`
			DSN    string `toml:"dsn"`
		} `toml:"database"`
		Notifications struct {
			Provider string `toml:"provider"`
			URL      string `toml:"url"`
			Workers  int    `toml:"workers"`
		} `toml:"notifications"`
	}
	custom := payload{}
	custom.Server.PublicBaseURL = "https://links.example.com/"
	custom.Database.Driver = "PostgreSQL"
	custom.Database.DSN = "postgres://portal@db/portal"
	custom.Notifications.Provider = "webhook"
	custom.Notifications.URL = "https://notify.example.com/send"
	custom.Notifications.Workers = 4
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Server.PublicBaseURL != "https://links.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Server.PublicBaseURL)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Notifications.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Notifications.Workers)
	}
	if got := cfg.StatusCheckLink("abc"); got != "https://links.example.com/status-check/abc" {
		t.Fatalf("unexpected status check link %q", got)
	}
	if got := cfg.ArtifactLink("abc"); got != "https://links.example.com/analysis/abc/artifact" {
		t.Fatalf("unexpected artifact link %q", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "portal.toml")
	if err := os.WriteFile(configPath, []byte("[server]\ntoken_horizon_days = 30\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvVarFillsMissingSecrets(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "portal.toml")
	if err := os.WriteFile(configPath, []byte("[server]\ninternal_token = \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORTAL_INTERNAL_TOKEN", "from-env")
	t.Setenv("PORTAL_NOTIFY_TOKEN", "notify-env")
	t.Setenv("PORTAL_DATABASE_DSN", "postgres://env/portal")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.InternalToken != "from-file" {
		t.Errorf("expected file value to win, got %q", cfg.Server.InternalToken)
	}
	if cfg.Notifications.Token != "notify-env" {
		t.Errorf("expected notify token from env, got %q", cfg.Notifications.Token)
	}
	if cfg.Database.DSN != "postgres://env/portal" {
		t.Errorf("expected dsn from env, got %q", cfg.Database.DSN)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "PORTAL_INTERNAL_TOKEN") {
		t.Fatalf("sample config missing env hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "portal") {
		t.Fatalf("expected data dir to contain portal, got %q", cfg.Paths.DataDir)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists || loaded.Server.PublicBaseURL != "https://portal.example.com" {
		t.Fatalf("unexpected sample load result: exists=%v base=%q", exists, loaded.Server.PublicBaseURL)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"relative base url", func(c *config.Config) { c.Server.PublicBaseURL = "portal.example.com" }},
		{"ftp base url", func(c *config.Config) { c.Server.PublicBaseURL = "ftp://portal.example.com" }},
		{"zero read timeout", func(c *config.Config) { c.Server.ReadTimeoutSeconds = 0 }},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *config.Config) { c.Database.Driver = config.DriverPostgres }},
		{"webhook without url", func(c *config.Config) { c.Notifications.Provider = config.ProviderWebhook }},
		{"ntfy without topic", func(c *config.Config) { c.Notifications.Provider = config.ProviderNtfy }},
		{"s3 without bucket", func(c *config.Config) { c.Artifacts.Backend = config.BackendS3 }},
		{"unknown artifact backend", func(c *config.Config) { c.Artifacts.Backend = "ftp" }},
		{"redis without addr", func(c *config.Config) { c.RateLimit.Backend = config.LimiterRedis }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

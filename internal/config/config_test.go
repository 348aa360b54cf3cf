package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mezzpress/internal/config"
)

func TestLoadWithoutFileAppliesDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

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

	wantInbox := filepath.Join(tempHome, ".local", "share", "mezzpress", "inbox")
	if cfg.Paths.InboxDir != wantInbox {
		t.Fatalf("unexpected inbox dir: got %q want %q", cfg.Paths.InboxDir, wantInbox)
	}
	if cfg.Pipeline.ProfileVersion != "v1.0" {
		t.Fatalf("unexpected profile version: %q", cfg.Pipeline.ProfileVersion)
	}
	if !cfg.Pipeline.EnableHEVC {
		t.Fatal("expected HEVC enabled by default")
	}
	if cfg.Pipeline.HEVCMinHeight != 720 {
		t.Fatalf("unexpected HEVC floor: %d", cfg.Pipeline.HEVCMinHeight)
	}
	if cfg.Pipeline.DurationToleranceSeconds != 0.5 {
		t.Fatalf("unexpected duration tolerance: %v", cfg.Pipeline.DurationToleranceSeconds)
	}
	if cfg.Pipeline.ReservationTTLDays != 7 {
		t.Fatalf("unexpected reservation TTL: %d", cfg.Pipeline.ReservationTTLDays)
	}
	if cfg.Workflow.Concurrency != 4 {
		t.Fatalf("unexpected concurrency: %d", cfg.Workflow.Concurrency)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "mezzpress.toml")
	content := `
[paths]
inbox_dir = "~/drop"
source_dir = "~/media/source"
output_dir = "~/media/out"
log_dir = "~/media/logs"

[pipeline]
profile_version = "  v2.1  "
enable_hevc = false
reservation_ttl_days = 0

[encoder]
endpoint = "  https://encoder.internal:8443  "
token = "secret"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected load from %q, got %q exists=%v", path, resolved, exists)
	}

	if cfg.Paths.InboxDir != filepath.Join(tempHome, "drop") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.InboxDir)
	}
	if cfg.Pipeline.ProfileVersion != "v2.1" {
		t.Fatalf("profile version not trimmed: %q", cfg.Pipeline.ProfileVersion)
	}
	if cfg.Pipeline.EnableHEVC {
		t.Fatal("expected HEVC disabled")
	}
	if cfg.Pipeline.ReservationTTLDays != 7 {
		t.Fatalf("zero TTL should fall back to default, got %d", cfg.Pipeline.ReservationTTLDays)
	}
	if cfg.Encoder.Endpoint != "https://encoder.internal:8443" {
		t.Fatalf("endpoint not trimmed: %q", cfg.Encoder.Endpoint)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging fields not lowercased: %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantSub string
	}{
		{
			name:    "missing encoder endpoint",
			mutate:  func(c *config.Config) { c.Encoder.Endpoint = "" },
			wantSub: "encoder.endpoint is required",
		},
		{
			name:    "non-http endpoint",
			mutate:  func(c *config.Config) { c.Encoder.Endpoint = "ftp://encoder" },
			wantSub: "not a valid http(s) URL",
		},
		{
			name:    "excessive retries",
			mutate:  func(c *config.Config) { c.Encoder.SubmitRetries = 50 },
			wantSub: "submit_retries",
		},
		{
			name:    "excessive tolerance",
			mutate:  func(c *config.Config) { c.Pipeline.DurationToleranceSeconds = 30 },
			wantSub: "duration_tolerance_seconds",
		},
		{
			name:    "bad log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantSub: "logging.format",
		},
		{
			name:    "bad webhook url",
			mutate:  func(c *config.Config) { c.Notifications.WebhookURL = "::not-a-url" },
			wantSub: "webhook_url",
		},
		{
			name:    "missing inbox",
			mutate:  func(c *config.Config) { c.Paths.InboxDir = "" },
			wantSub: "paths.inbox_dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Encoder.Endpoint = "http://localhost:9000"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("error %q missing %q", err, tt.wantSub)
			}
		})
	}
}

func TestSampleConfigIsParseableAndValid(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	var cfg config.Config
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}

	path := filepath.Join(tempHome, "sample.toml")
	if err := os.WriteFile(path, []byte(config.SampleConfig()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if loaded.Encoder.Endpoint == "" {
		t.Fatal("sample config should carry an encoder endpoint")
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Paths.SourceDir = filepath.Join(base, "source")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.InboxDir, cfg.Paths.SourceDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}

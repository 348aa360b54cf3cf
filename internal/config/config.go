package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InboxDir  string `toml:"inbox_dir"`
	SourceDir string `toml:"source_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Pipeline contains encoding policy configuration.
type Pipeline struct {
	// ProfileVersion tags the current encoding settings revision. Bumping it
	// changes every derived idempotency key, which is the sanctioned way to
	// re-encode previously processed content.
	ProfileVersion string `toml:"profile_version"`
	EnableHEVC     bool   `toml:"enable_hevc"`
	EnableDASH     bool   `toml:"enable_dash"`
	// HEVCMinHeight is the smallest rendition height that still receives an
	// HEVC variant. Lower tiers stay H.264-only for device compatibility.
	HEVCMinHeight             int     `toml:"hevc_min_height"`
	DurationToleranceSeconds  float64 `toml:"duration_tolerance_seconds"`
	ReservationTTLDays        int     `toml:"reservation_ttl_days"`
	MaxSourceSizeGiB          int     `toml:"max_source_size_gib"`
	EpisodeDurationDriftLimit float64 `toml:"episode_duration_drift_limit"`
}

// Encoder contains configuration for the managed transcoding service.
type Encoder struct {
	Endpoint         string `toml:"endpoint"`
	Token            string `toml:"token"`
	SubmitTimeout    int    `toml:"submit_timeout"`
	WaitCeiling      int    `toml:"wait_ceiling"`
	SubmitRetries    int    `toml:"submit_retries"`
	SubmitRetryDelay int    `toml:"submit_retry_delay"`
}

// Notifications contains webhook notification settings.
type Notifications struct {
	WebhookURL     string `toml:"webhook_url"`
	RequestTimeout int    `toml:"request_timeout"`
	Success        bool   `toml:"success"`
	Failure        bool   `toml:"failure"`
	IdempotentSkip bool   `toml:"idempotent_skip"`
}

// Workflow contains daemon scheduling configuration.
type Workflow struct {
	Concurrency       int    `toml:"concurrency"`
	ReapSchedule      string `toml:"reap_schedule"`
	ReconcileSchedule string `toml:"reconcile_schedule"`
	MaxPendingAge     int    `toml:"max_pending_age"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mezzpress.
//
// Sections by subsystem:
//   - Paths: inbox, source, output, and log directories
//   - Pipeline: feature flags, profile version, validation thresholds
//   - Encoder: transcoding service endpoint, timeouts, retry policy
//   - Notifications: webhook delivery settings
//   - Workflow: orchestration concurrency and maintenance schedules
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Encoder       Encoder       `toml:"encoder"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mezzpress/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves a leading tilde against the user's home directory.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mezzpress.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InboxDir, c.Paths.SourceDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

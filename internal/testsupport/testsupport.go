// Package testsupport provides shared helpers for package tests: temp-backed
// configurations and reservation store construction.
package testsupport

import (
	"path/filepath"
	"testing"

	"mezzpress/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InboxDir = filepath.Join(base, "inbox")
	cfgVal.Paths.SourceDir = filepath.Join(base, "source")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Encoder.Endpoint = "http://127.0.0.1:0"
	cfgVal.Notifications.WebhookURL = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEncoderEndpoint points the test config at a specific encoder URL,
// typically an httptest server.
func WithEncoderEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.Endpoint = url
	}
}

// WithWebhookURL enables notifications against the provided URL.
func WithWebhookURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.WebhookURL = url
	}
}

// WithProfileVersion overrides the encoding profile version.
func WithProfileVersion(version string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.ProfileVersion = version
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InboxDir)
}

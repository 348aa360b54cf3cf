package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		return errors.New("paths.inbox_dir must be set")
	}
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		return errors.New("paths.source_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.DurationToleranceSeconds > 5 {
		return errors.New("pipeline.duration_tolerance_seconds must not exceed 5")
	}
	if c.Pipeline.HEVCMinHeight < 0 {
		return errors.New("pipeline.hevc_min_height must not be negative")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.Endpoint == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mezzpress/config.toml"
		}
		return fmt.Errorf("encoder.endpoint is required. Edit %s (create with 'mezzpress config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Encoder.Endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("encoder.endpoint %q is not a valid http(s) URL", c.Encoder.Endpoint)
	}
	if c.Encoder.SubmitRetries > 10 {
		return errors.New("encoder.submit_retries must not exceed 10")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.WebhookURL) == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.WebhookURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("notifications.webhook_url %q is not a valid URL", c.Notifications.WebhookURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

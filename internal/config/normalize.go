package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeEncoder()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	c.Pipeline.ProfileVersion = strings.TrimSpace(c.Pipeline.ProfileVersion)
	if c.Pipeline.ProfileVersion == "" {
		c.Pipeline.ProfileVersion = defaultProfileVersion
	}
	if c.Pipeline.HEVCMinHeight <= 0 {
		c.Pipeline.HEVCMinHeight = defaultHEVCMinHeight
	}
	if c.Pipeline.DurationToleranceSeconds <= 0 {
		c.Pipeline.DurationToleranceSeconds = defaultDurationTolerance
	}
	if c.Pipeline.ReservationTTLDays <= 0 {
		c.Pipeline.ReservationTTLDays = defaultReservationTTLDays
	}
	if c.Pipeline.MaxSourceSizeGiB <= 0 {
		c.Pipeline.MaxSourceSizeGiB = defaultMaxSourceSizeGiB
	}
	if c.Pipeline.EpisodeDurationDriftLimit <= 0 {
		c.Pipeline.EpisodeDurationDriftLimit = defaultEpisodeDurationDriftLimit
	}
}

func (c *Config) normalizeEncoder() {
	c.Encoder.Endpoint = strings.TrimSpace(c.Encoder.Endpoint)
	c.Encoder.Token = strings.TrimSpace(c.Encoder.Token)
	if c.Encoder.SubmitTimeout <= 0 {
		c.Encoder.SubmitTimeout = defaultEncoderSubmitTimeout
	}
	if c.Encoder.WaitCeiling <= 0 {
		c.Encoder.WaitCeiling = defaultEncoderWaitCeiling
	}
	if c.Encoder.SubmitRetries <= 0 {
		c.Encoder.SubmitRetries = defaultEncoderSubmitRetries
	}
	if c.Encoder.SubmitRetryDelay <= 0 {
		c.Encoder.SubmitRetryDelay = defaultEncoderSubmitRetryDelay
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Concurrency <= 0 {
		c.Workflow.Concurrency = defaultWorkflowConcurrency
	}
	if strings.TrimSpace(c.Workflow.ReapSchedule) == "" {
		c.Workflow.ReapSchedule = defaultReapSchedule
	}
	if strings.TrimSpace(c.Workflow.ReconcileSchedule) == "" {
		c.Workflow.ReconcileSchedule = defaultReconcileSchedule
	}
	if c.Workflow.MaxPendingAge <= 0 {
		c.Workflow.MaxPendingAge = defaultMaxPendingAgeSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

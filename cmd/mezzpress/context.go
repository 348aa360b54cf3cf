package main

import (
	"strings"
	"sync"

	"mezzpress/internal/config"
	"mezzpress/internal/encoder"
	"mezzpress/internal/inputcheck"
	"mezzpress/internal/logging"
	"mezzpress/internal/notifications"
	"mezzpress/internal/objectstore"
	"mezzpress/internal/outputcheck"
	"mezzpress/internal/reservation"
	"mezzpress/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the reservation store for the duration of one command.
func (c *commandContext) withStore(fn func(*config.Config, *reservation.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := reservation.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// buildOrchestrator wires the full component set for an inline run. The CLI
// shares the daemon's store, so admission stays exclusive even while
// mezzpressd is running.
func (c *commandContext) buildOrchestrator(cfg *config.Config, store *reservation.Store) (*workflow.Orchestrator, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	inputs := inputcheck.New(objectstore.New(cfg.Paths.SourceDir), inputcheck.Options{
		MaxSourceSizeBytes: int64(cfg.Pipeline.MaxSourceSizeGiB) << 30,
	})
	outputs := outputcheck.New(objectstore.New(cfg.Paths.OutputDir), outputcheck.Options{
		ExpectDASH:       cfg.Pipeline.EnableDASH,
		ToleranceSeconds: cfg.Pipeline.DurationToleranceSeconds,
	})
	return workflow.New(cfg, store, inputs, outputs, encoder.NewClient(cfg), notifications.NewService(cfg), logger), nil
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

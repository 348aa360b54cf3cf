package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mezzpress/internal/config"
	"mezzpress/internal/identity"
	"mezzpress/internal/manifest"
	"mezzpress/internal/reservation"
	"mezzpress/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <manifest.xml>",
		Short: "Run one admission and transcode workflow inline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *reservation.Store) error {
				m, err := loadManifest(cfg, args[0])
				if err != nil {
					return err
				}

				orch, err := ctx.buildOrchestrator(cfg, store)
				if err != nil {
					return err
				}

				outcome := orch.Run(cmd.Context(), m)
				printOutcome(cmd, m, outcome)
				if !outcome.Succeeded() {
					return fmt.Errorf("workflow failed: %s", outcome.Reason)
				}
				return nil
			})
		},
	}
}

func newKeyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "key <manifest.xml>",
		Short: "Print the idempotency key a manifest derives to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			m, err := loadManifest(cfg, args[0])
			if err != nil {
				return err
			}
			key, err := identity.Derive(m.WorkUnit(cfg.Pipeline.ProfileVersion))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.String())
			return nil
		},
	}
}

func loadManifest(cfg *config.Config, path string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := manifest.Parse(data, cfg.Pipeline.EpisodeDurationDriftLimit)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

func printOutcome(cmd *cobra.Command, m *manifest.Manifest, outcome workflow.Outcome) {
	out := cmd.OutOrStdout()
	switch {
	case outcome.Succeeded() && outcome.Skipped:
		fmt.Fprintf(out, "%s already transcoded, skipped (key %s)\n", m.ManifestID, outcome.IdempotencyKey)
	case outcome.Succeeded():
		fmt.Fprintf(out, "%s transcoded, outputs under %s (job %s)\n", m.ManifestID, m.OutputPrefix(), outcome.JobReference)
	default:
		fmt.Fprintf(out, "%s failed in %s: %s [%s]\n", m.ManifestID, outcome.State, outcome.Reason, outcome.Classification)
		if outcome.Validation != nil {
			for _, missing := range outcome.Validation.MissingSegments {
				fmt.Fprintf(out, "  missing: %s\n", missing)
			}
			for _, malformed := range outcome.Validation.MalformedManifests {
				fmt.Fprintf(out, "  malformed: %s\n", malformed)
			}
		}
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mezzpress/internal/config"
	"mezzpress/internal/reservation"
)

func newReapCommand(ctx *commandContext) *cobra.Command {
	var maxAgeSeconds int

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Delete abandoned pending reservations and expired records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *reservation.Store) error {
				age := maxAgeSeconds
				if age <= 0 {
					age = cfg.Workflow.MaxPendingAge
				}

				reaped, err := store.ReapStale(cmd.Context(), time.Duration(age)*time.Second)
				if err != nil {
					return err
				}
				purged, err := store.PurgeExpired(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reaped %d stale pending reservation(s)\n", reaped)
				fmt.Fprintf(out, "Purged %d expired record(s)\n", purged)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&maxAgeSeconds, "max-age", 0, "Pending age threshold in seconds (defaults to workflow.max_pending_age)")
	return cmd
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Resolve submitted reservations whose encode outlasted the wait ceiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *reservation.Store) error {
				orch, err := ctx.buildOrchestrator(cfg, store)
				if err != nil {
					return err
				}

				stats, err := orch.Reconcile(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if stats.Examined == 0 {
					fmt.Fprintln(out, "No stale submitted reservations")
					return nil
				}
				fmt.Fprintf(out, "Examined %d, completed %d, failed %d, unresolved %d\n",
					stats.Examined, stats.Completed, stats.Failed, stats.Unresolved)
				return nil
			})
		},
	}
}

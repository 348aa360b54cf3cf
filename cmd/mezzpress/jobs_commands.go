package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mezzpress/internal/config"
	"mezzpress/internal/reservation"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect reservation records",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var manifestFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reservation records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *reservation.Store) error {
				var records []*reservation.Record
				var err error

				switch {
				case manifestFilter != "":
					records, err = store.ByManifest(cmd.Context(), manifestFilter)
				case statusFilter != "":
					status, ok := reservation.ParseStatus(statusFilter)
					if !ok {
						return fmt.Errorf("unknown status %q (one of %v)", statusFilter, reservation.AllStatuses())
					}
					records, err = store.ByStatus(cmd.Context(), status)
				default:
					records, err = store.List(cmd.Context())
				}
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No reservation records")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						shortKey(record.IdempotencyKey),
						record.ManifestID,
						string(record.Status),
						record.JobReference,
						record.UpdatedAt.Local().Format(time.RFC3339),
					})
				}
				table := renderTable(
					[]string{"Key", "Manifest", "Status", "Job", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by lifecycle status")
	cmd.Flags().StringVarP(&manifestFilter, "manifest", "m", "", "Filter by manifest id")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var byJobRef bool

	cmd := &cobra.Command{
		Use:   "show <idempotency-key>",
		Short: "Show one reservation record in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *reservation.Store) error {
				var record *reservation.Record
				var err error
				if byJobRef {
					record, err = store.ByJobReference(cmd.Context(), args[0])
				} else {
					record, err = store.GetByKey(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("no record for %q", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Key:           %s\n", record.IdempotencyKey)
				fmt.Fprintf(out, "Manifest:      %s\n", record.ManifestID)
				fmt.Fprintf(out, "Status:        %s\n", record.Status)
				fmt.Fprintf(out, "Job reference: %s\n", record.JobReference)
				fmt.Fprintf(out, "Output prefix: %s\n", record.OutputPrefix)
				if record.OutcomeReason != "" {
					fmt.Fprintf(out, "Outcome:       %s\n", record.OutcomeReason)
				}
				fmt.Fprintf(out, "Created:       %s\n", record.CreatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Updated:       %s\n", record.UpdatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Expires:       %s\n", record.ExpiresAt.Local().Format(time.RFC3339))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&byJobRef, "job", false, "Look up by encoder job reference instead of key")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show reservation store summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *reservation.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if stats.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Reservation store is empty")
					return nil
				}

				rows := [][]string{
					{"pending", strconv.Itoa(stats.Pending)},
					{"submitted", strconv.Itoa(stats.Submitted)},
					{"completed", strconv.Itoa(stats.Completed)},
					{"failed", strconv.Itoa(stats.Failed)},
					{"total", strconv.Itoa(stats.Total)},
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func shortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12]
}

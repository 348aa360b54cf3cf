package workflow

import (
	"context"
	"errors"
	"time"

	"mezzpress/internal/encoder"
	"mezzpress/internal/logging"
	"mezzpress/internal/reservation"
)

// ReconcileStats summarizes one reconciliation sweep.
type ReconcileStats struct {
	Examined  int
	Completed int
	Failed    int
	// Unresolved counts jobs the encoder still reports in flight or cannot
	// find yet; they stay SUBMITTED for the next sweep.
	Unresolved int
}

// Reconcile resolves SUBMITTED records whose instance stopped waiting: an
// encode timeout, a crashed process, a host replacement mid-wait. The sweep
// asks the encoder for the truth by job reference instead of assuming a
// missed completion signal means failure.
func (o *Orchestrator) Reconcile(ctx context.Context) (ReconcileStats, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(o.cfg.Encoder.WaitCeiling) * time.Second)
	records, err := o.store.StaleSubmitted(ctx, cutoff)
	if err != nil {
		return ReconcileStats{}, err
	}

	stats := ReconcileStats{Examined: len(records)}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		o.reconcileRecord(ctx, record, &stats)
	}

	if stats.Examined > 0 {
		o.logger.Info("reconciliation sweep finished",
			logging.Int("examined", stats.Examined),
			logging.Int("completed", stats.Completed),
			logging.Int("failed", stats.Failed),
			logging.Int("unresolved", stats.Unresolved))
	}
	return stats, nil
}

func (o *Orchestrator) reconcileRecord(ctx context.Context, record *reservation.Record, stats *ReconcileStats) {
	log := o.logger.With(
		logging.String(logging.FieldManifestID, record.ManifestID),
		logging.String(logging.FieldJobReference, record.JobReference))

	status, err := o.enc.QueryJob(ctx, record.JobReference)
	if err != nil {
		if errors.Is(err, encoder.ErrJobNotFound) {
			// The service has no such job. Either it was never accepted or
			// it aged out of the service's history; neither is proof of
			// failure, so leave the record for the operator.
			log.Warn("reconcile: job unknown to encoder")
			stats.Unresolved++
			return
		}
		log.Warn("reconcile: encoder query failed", logging.Error(err))
		stats.Unresolved++
		return
	}

	switch status.State {
	case encoder.StateFinished:
		// The expected duration is not persisted on the record, so the
		// sweep validates structure only and trusts the encoder's own
		// completion signal for duration.
		result, err := o.outputs.Validate(record.OutputPrefix, 0)
		if err == nil && result.IsValid {
			if err := o.store.Complete(ctx, record.IdempotencyKey, reservation.OutcomeCompleted, "resolved by reconciliation"); err != nil {
				log.Warn("reconcile: complete failed", logging.Error(err))
				stats.Unresolved++
				return
			}
			log.Info("reconcile: job finished, record completed")
			stats.Completed++
			return
		}
		reason := "reconcile: finished job has incomplete output"
		if err := o.store.Complete(ctx, record.IdempotencyKey, reservation.OutcomeFailed, reason); err != nil {
			log.Warn("reconcile: complete failed", logging.Error(err))
			stats.Unresolved++
			return
		}
		log.Warn(reason)
		stats.Failed++
	case encoder.StateErrored:
		if err := o.store.Complete(ctx, record.IdempotencyKey, reservation.OutcomeFailed, "encoder reported error: "+status.Message); err != nil {
			log.Warn("reconcile: complete failed", logging.Error(err))
			stats.Unresolved++
			return
		}
		log.Info("reconcile: job errored, record failed")
		stats.Failed++
	default:
		// Still queued or running. An encode can legitimately outlast the
		// wait ceiling; the record stays SUBMITTED.
		stats.Unresolved++
	}
}

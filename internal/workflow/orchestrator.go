package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"mezzpress/internal/config"
	"mezzpress/internal/encoder"
	"mezzpress/internal/identity"
	"mezzpress/internal/inputcheck"
	"mezzpress/internal/ladder"
	"mezzpress/internal/logging"
	"mezzpress/internal/manifest"
	"mezzpress/internal/notifications"
	"mezzpress/internal/outputcheck"
	"mezzpress/internal/reservation"
	"mezzpress/internal/services"
)

// State names one phase of an orchestration instance.
type State string

const (
	StateValidatingInput  State = "VALIDATING_INPUT"
	StateReserving        State = "RESERVING"
	StateSubmitting       State = "SUBMITTING"
	StateTranscoding      State = "TRANSCODING"
	StateValidatingOutput State = "VALIDATING_OUTPUT"
	StateNotifying        State = "NOTIFYING"
	StateSucceeded        State = "SUCCEEDED"
	StateFailed           State = "FAILED"
)

// Outcome is the terminal result of one orchestration instance.
type Outcome struct {
	State          State
	Reason         string
	Classification string
	IdempotencyKey identity.Key
	JobReference   string
	// Skipped marks a success that re-encoded nothing because the key was
	// already completed.
	Skipped    bool
	Validation *outputcheck.Result
}

// Succeeded reports whether the instance terminated successfully.
func (o Outcome) Succeeded() bool { return o.State == StateSucceeded }

// Orchestrator sequences the pipeline stages for manifests. One Orchestrator
// serves any number of concurrent Run calls.
type Orchestrator struct {
	cfg     *config.Config
	store   *reservation.Store
	inputs  *inputcheck.Checker
	outputs *outputcheck.Validator
	enc     encoder.Client
	notify  notifications.Service
	logger  *slog.Logger
}

// New wires an orchestrator from its collaborators.
func New(cfg *config.Config, store *reservation.Store, inputs *inputcheck.Checker, outputs *outputcheck.Validator, enc encoder.Client, notify notifications.Service, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		store:   store,
		inputs:  inputs,
		outputs: outputs,
		enc:     enc,
		notify:  notify,
		logger:  logging.NewComponentLogger(logger, "workflow"),
	}
}

// Run executes the full pipeline for one parsed manifest and always returns
// a terminal Outcome. Run never panics the caller's goroutine on pipeline
// failure; errors surface inside the Outcome.
func (o *Orchestrator) Run(ctx context.Context, m *manifest.Manifest) Outcome {
	ctx = services.WithManifestID(ctx, m.ManifestID)
	log := o.logger.With(logging.String(logging.FieldManifestID, m.ManifestID))

	outcome := o.execute(ctx, log, m)

	o.sendNotification(ctx, log, m, outcome)

	if outcome.Succeeded() {
		log.Info("orchestration finished",
			logging.String(logging.FieldState, string(outcome.State)),
			logging.Bool("skipped", outcome.Skipped))
	} else {
		log.Error("orchestration failed",
			logging.String(logging.FieldState, string(outcome.State)),
			logging.String("classification", outcome.Classification),
			logging.String("reason", outcome.Reason))
	}
	return outcome
}

func (o *Orchestrator) execute(ctx context.Context, log *slog.Logger, m *manifest.Manifest) Outcome {
	// VALIDATING_INPUT
	stageLog(log, StateValidatingInput)
	if err := o.inputs.Verify(services.WithState(ctx, string(StateValidatingInput)), m); err != nil {
		return failure("", "", err)
	}

	// RESERVING
	stageLog(log, StateReserving)
	key, err := identity.Derive(m.WorkUnit(o.cfg.Pipeline.ProfileVersion))
	if err != nil {
		return failure("", "", services.Wrap(services.ErrInput, "workflow", "derive", "identity", err))
	}
	log = log.With(logging.String(logging.FieldIdempotencyKey, key.Short()))

	owner := uuid.NewString()
	ttl := time.Duration(o.cfg.Pipeline.ReservationTTLDays) * 24 * time.Hour
	res, err := o.store.Reserve(ctx, key.String(), m.ManifestID, m.OutputPrefix(), owner, ttl)
	if err != nil {
		return failure(key, "", services.Wrap(services.ErrTransient, "workflow", "reserve", "reservation store", err))
	}
	if !res.Acquired {
		return o.resolveExisting(key, res.Existing)
	}

	// SUBMITTING
	stageLog(log, StateSubmitting)
	plan, err := ladder.Build(m, ladder.Options{
		EnableHEVC:    o.cfg.Pipeline.EnableHEVC,
		EnableDASH:    o.cfg.Pipeline.EnableDASH,
		HEVCMinHeight: o.cfg.Pipeline.HEVCMinHeight,
	})
	if err != nil {
		// The pending reservation stays behind for the reaper: completing
		// from PENDING is not a legal transition and force-deleting here
		// would race a takeover.
		return failure(key, "", err)
	}

	jobRef, err := o.submitWithRetry(ctx, encoder.Request{
		ManifestID:              m.ManifestID,
		IdempotencyKey:          key.String(),
		SourcePath:              m.Mezzanine.FilePath,
		OutputPrefix:            m.OutputPrefix(),
		ExpectedDurationSeconds: m.Mezzanine.DurationSeconds,
		Plan:                    plan,
	})
	if err != nil {
		// Submission may have landed on the service side. The record stays
		// PENDING; reap or reconciliation resolves it instead of guessing.
		return failure(key, "", err)
	}
	log = log.With(logging.String(logging.FieldJobReference, jobRef))

	if err := o.store.Confirm(ctx, key.String(), owner, jobRef); err != nil {
		if errors.Is(err, reservation.ErrStaleReservation) {
			return failure(key, jobRef, services.Wrap(services.ErrContention, "workflow", "confirm", "reservation advanced under another owner", err))
		}
		return failure(key, jobRef, services.Wrap(services.ErrTransient, "workflow", "confirm", "reservation store", err))
	}

	// TRANSCODING
	stageLog(log, StateTranscoding)
	status, err := o.enc.AwaitCompletion(ctx, jobRef)
	if err != nil {
		// Ambiguous by design: the encode may still finish. SUBMITTED stays
		// in place for the reconciliation sweep.
		if errors.Is(err, services.ErrAmbiguous) {
			return failure(key, jobRef, services.Wrap(services.ErrAmbiguous, "workflow", "transcode", "encode timeout", err))
		}
		return failure(key, jobRef, err)
	}
	if status.State != encoder.StateFinished {
		reason := fmt.Sprintf("encoder reported %s: %s", status.State, status.Message)
		if err := o.store.Complete(ctx, key.String(), reservation.OutcomeFailed, reason); err != nil {
			log.Warn("record encode failure", logging.Error(err))
		}
		return failure(key, jobRef, services.Wrap(services.ErrValidation, "workflow", "transcode", reason, nil))
	}

	// VALIDATING_OUTPUT
	stageLog(log, StateValidatingOutput)
	result, err := o.outputs.Validate(m.OutputPrefix(), m.Mezzanine.DurationSeconds)
	if err != nil {
		return failure(key, jobRef, services.Wrap(services.ErrTransient, "workflow", "validate_output", "output store", err))
	}
	if !result.IsValid {
		reason := summarizeValidation(result)
		if err := o.store.Complete(ctx, key.String(), reservation.OutcomeFailed, reason); err != nil {
			log.Warn("record validation failure", logging.Error(err))
		}
		out := failure(key, jobRef, services.Wrap(services.ErrValidation, "workflow", "validate_output", reason, nil))
		out.Validation = &result
		return out
	}

	if err := o.store.Complete(ctx, key.String(), reservation.OutcomeCompleted, ""); err != nil {
		if errors.Is(err, reservation.ErrConflictingOutcome) || errors.Is(err, reservation.ErrStaleReservation) {
			return failure(key, jobRef, services.Wrap(services.ErrContention, "workflow", "complete", "terminal state already owned elsewhere", err))
		}
		return failure(key, jobRef, services.Wrap(services.ErrTransient, "workflow", "complete", "reservation store", err))
	}

	return Outcome{
		State:          StateSucceeded,
		IdempotencyKey: key,
		JobReference:   jobRef,
		Validation:     &result,
	}
}

// resolveExisting maps a lost reservation race onto a terminal outcome.
func (o *Orchestrator) resolveExisting(key identity.Key, existing *reservation.Record) Outcome {
	if existing == nil {
		// The blocking record vanished between insert and read, most likely
		// reaped. Treat as a lost race; the trigger can be replayed.
		return failure(key, "", services.Wrap(services.ErrContention, "workflow", "reserve", "reservation contended and vanished", nil))
	}
	switch existing.Status {
	case reservation.StatusCompleted:
		return Outcome{
			State:          StateSucceeded,
			IdempotencyKey: key,
			JobReference:   existing.JobReference,
			Skipped:        true,
		}
	case reservation.StatusFailed:
		return failure(key, existing.JobReference, services.Wrap(services.ErrContention, "workflow", "reserve",
			fmt.Sprintf("key previously failed: %s", existing.OutcomeReason), nil))
	default:
		// PENDING or SUBMITTED: the in-flight instance owns the outcome.
		return failure(key, existing.JobReference, services.Wrap(services.ErrContention, "workflow", "reserve",
			fmt.Sprintf("in-flight duplicate, existing status %s", existing.Status), nil))
	}
}

// submitWithRetry retries transient submission failures with exponential
// backoff up to the configured attempt count. Non-retryable failures abort
// immediately.
func (o *Orchestrator) submitWithRetry(ctx context.Context, req encoder.Request) (string, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Duration(o.cfg.Encoder.SubmitRetryDelay) * time.Second

	operation := func() (string, error) {
		ref, err := o.enc.Submit(ctx, req)
		if err != nil && !services.IsRetryable(err) {
			return "", backoff.Permanent(err)
		}
		return ref, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(o.cfg.Encoder.SubmitRetries)),
	)
}

// sendNotification delivers the terminal event. Delivery failures never flip
// the pipeline outcome.
func (o *Orchestrator) sendNotification(ctx context.Context, log *slog.Logger, m *manifest.Manifest, outcome Outcome) {
	stageLog(log, StateNotifying)
	key := outcome.IdempotencyKey.String()

	var err error
	switch {
	case outcome.Skipped:
		err = o.notify.NotifyIdempotentSkip(ctx, m.ManifestID, key)
	case outcome.Succeeded():
		validation := outputcheck.Result{}
		if outcome.Validation != nil {
			validation = *outcome.Validation
		}
		err = o.notify.NotifyJobCompleted(ctx, m.ManifestID, key, m.OutputPrefix(), validation)
	default:
		err = o.notify.NotifyJobFailed(ctx, m.ManifestID, key, outcome.Reason, outcome.Classification, outcome.Validation)
	}
	if err != nil {
		log.Warn("notification delivery failed", logging.Error(err))
	}
}

func failure(key identity.Key, jobRef string, err error) Outcome {
	return Outcome{
		State:          StateFailed,
		Reason:         err.Error(),
		Classification: services.Classify(err),
		IdempotencyKey: key,
		JobReference:   jobRef,
	}
}

func stageLog(log *slog.Logger, state State) {
	log.Debug("entering stage", logging.String(logging.FieldState, string(state)))
}

func summarizeValidation(result outputcheck.Result) string {
	return fmt.Sprintf("output validation failed: %d missing segment(s), %d malformed manifest(s), duration delta %.2fs",
		len(result.MissingSegments), len(result.MalformedManifests), result.DurationDeltaSeconds)
}

package config

const (
	defaultInboxDir  = "~/.local/share/mezzpress/inbox"
	defaultSourceDir = "~/.local/share/mezzpress/source"
	defaultOutputDir = "~/.local/share/mezzpress/output"
	defaultLogDir    = "~/.local/share/mezzpress/logs"

	defaultProfileVersion            = "v1.0"
	defaultHEVCMinHeight             = 720
	defaultDurationTolerance         = 0.5
	defaultReservationTTLDays        = 7
	defaultMaxSourceSizeGiB          = 50
	defaultEpisodeDurationDriftLimit = 1.0

	defaultEncoderSubmitTimeout    = 30
	defaultEncoderWaitCeiling      = 3600
	defaultEncoderSubmitRetries    = 3
	defaultEncoderSubmitRetryDelay = 1

	defaultNotifyRequestTimeout = 10

	defaultWorkflowConcurrency    = 4
	defaultReapSchedule           = "@every 5m"
	defaultReconcileSchedule      = "@every 10m"
	defaultMaxPendingAgeSeconds   = 1800
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDir:  defaultInboxDir,
			SourceDir: defaultSourceDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Pipeline: Pipeline{
			ProfileVersion:            defaultProfileVersion,
			EnableHEVC:                true,
			EnableDASH:                true,
			HEVCMinHeight:             defaultHEVCMinHeight,
			DurationToleranceSeconds:  defaultDurationTolerance,
			ReservationTTLDays:        defaultReservationTTLDays,
			MaxSourceSizeGiB:          defaultMaxSourceSizeGiB,
			EpisodeDurationDriftLimit: defaultEpisodeDurationDriftLimit,
		},
		Encoder: Encoder{
			SubmitTimeout:    defaultEncoderSubmitTimeout,
			WaitCeiling:      defaultEncoderWaitCeiling,
			SubmitRetries:    defaultEncoderSubmitRetries,
			SubmitRetryDelay: defaultEncoderSubmitRetryDelay,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Success:        true,
			Failure:        true,
			IdempotentSkip: true,
		},
		Workflow: Workflow{
			Concurrency:       defaultWorkflowConcurrency,
			ReapSchedule:      defaultReapSchedule,
			ReconcileSchedule: defaultReconcileSchedule,
			MaxPendingAge:     defaultMaxPendingAgeSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

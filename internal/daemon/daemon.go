package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"mezzpress/internal/config"
	"mezzpress/internal/logging"
	"mezzpress/internal/reservation"
	"mezzpress/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *reservation.Store
	orch   *workflow.Orchestrator

	lockPath string
	lock     *flock.Flock

	watcher   *inboxWatcher
	scheduler *cron.Cron

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	StoreDBPath  string
	LockFilePath string
	InboxDir     string
	Reservations reservation.StatsSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *reservation.Store, orch *workflow.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil {
		return nil, errors.New("daemon requires config, store, and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "mezzpressd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		orch:     orch,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, begins watching the inbox, and schedules
// the maintenance sweeps.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mezzpress daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	watcher, err := newInboxWatcher(d.cfg, d.orch, d.logger)
	if err != nil {
		d.releaseLock()
		return fmt.Errorf("start inbox watcher: %w", err)
	}
	d.watcher = watcher
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		watcher.run(d.ctx)
	}()

	if err := d.startScheduler(); err != nil {
		d.cancel()
		d.wg.Wait()
		d.releaseLock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("mezzpress daemon started",
		logging.String("lock", d.lockPath),
		logging.String("inbox", d.cfg.Paths.InboxDir))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.scheduler != nil {
		cronCtx := d.scheduler.Stop()
		<-cronCtx.Done()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("mezzpress daemon stopped")
}

// Wait blocks until the daemon's context is cancelled.
func (d *Daemon) Wait() {
	if d.ctx != nil {
		<-d.ctx.Done()
	}
}

// Status returns a snapshot of the daemon and its store.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		StoreDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		InboxDir:     d.cfg.Paths.InboxDir,
		Reservations: stats,
	}, nil
}

func (d *Daemon) startScheduler() error {
	d.scheduler = cron.New()

	if _, err := d.scheduler.AddFunc(d.cfg.Workflow.ReapSchedule, d.runReap); err != nil {
		return fmt.Errorf("schedule reap %q: %w", d.cfg.Workflow.ReapSchedule, err)
	}
	if _, err := d.scheduler.AddFunc(d.cfg.Workflow.ReconcileSchedule, d.runReconcile); err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", d.cfg.Workflow.ReconcileSchedule, err)
	}

	d.scheduler.Start()
	return nil
}

// runReap clears abandoned pending reservations and expired terminal
// records.
func (d *Daemon) runReap() {
	ctx := d.ctx
	maxAge := maxPendingAge(d.cfg)

	reaped, err := d.store.ReapStale(ctx, maxAge)
	if err != nil {
		d.logger.Error("reap sweep failed", logging.Error(err))
		return
	}
	purged, err := d.store.PurgeExpired(ctx)
	if err != nil {
		d.logger.Error("purge sweep failed", logging.Error(err))
		return
	}
	if reaped > 0 || purged > 0 {
		d.logger.Info("maintenance sweep finished",
			logging.Int64("reaped_pending", reaped),
			logging.Int64("purged_expired", purged))
	}
}

func (d *Daemon) runReconcile() {
	if _, err := d.orch.Reconcile(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("reconciliation sweep failed", logging.Error(err))
	}
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release lock", logging.Error(err))
	}
}

func maxPendingAge(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Workflow.MaxPendingAge) * time.Second
}

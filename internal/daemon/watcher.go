package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mezzpress/internal/config"
	"mezzpress/internal/logging"
	"mezzpress/internal/manifest"
	"mezzpress/internal/workflow"
)

// settleDelay gives the producer time to finish writing a manifest before it
// is read. Inbox drops are small XML files, so a short grace period is
// enough.
const settleDelay = 250 * time.Millisecond

// inboxWatcher turns manifest files appearing in the inbox directory into
// orchestration runs, bounded by the configured concurrency.
type inboxWatcher struct {
	cfg    *config.Config
	orch   *workflow.Orchestrator
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	slots  chan struct{}
}

func newInboxWatcher(cfg *config.Config, orch *workflow.Orchestrator, logger *slog.Logger) (*inboxWatcher, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(cfg.Paths.InboxDir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch inbox %s: %w", cfg.Paths.InboxDir, err)
	}

	concurrency := cfg.Workflow.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &inboxWatcher{
		cfg:    cfg,
		orch:   orch,
		logger: logging.NewComponentLogger(logger, "inbox"),
		fsw:    fsw,
		slots:  make(chan struct{}, concurrency),
	}, nil
}

// run processes events until ctx is cancelled. Manifests already sitting in
// the inbox at startup are picked up first, so a daemon restart loses
// nothing.
func (w *inboxWatcher) run(ctx context.Context) {
	defer w.fsw.Close()

	w.sweepExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			// Let in-flight runs finish; each holds a slot.
			for i := 0; i < cap(w.slots); i++ {
				w.slots <- struct{}{}
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isManifestFile(event.Name) {
				continue
			}
			w.dispatch(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", logging.Error(err))
		}
	}
}

func (w *inboxWatcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Paths.InboxDir)
	if err != nil {
		w.logger.Warn("scan inbox", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isManifestFile(entry.Name()) {
			continue
		}
		w.dispatch(ctx, filepath.Join(w.cfg.Paths.InboxDir, entry.Name()))
	}
}

// dispatch claims a concurrency slot and runs one orchestration for the
// manifest file. The file is removed after a successful parse; malformed
// drops are renamed aside so they stop retriggering.
func (w *inboxWatcher) dispatch(ctx context.Context, path string) {
	select {
	case w.slots <- struct{}{}:
	case <-ctx.Done():
		return
	}

	go func() {
		defer func() { <-w.slots }()

		time.Sleep(settleDelay)

		log := w.logger.With(logging.String("file", filepath.Base(path)))
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("read manifest", logging.Error(err))
			return
		}

		m, err := manifest.Parse(data, w.cfg.Pipeline.EpisodeDurationDriftLimit)
		if err != nil {
			log.Error("malformed manifest rejected", logging.Error(err))
			w.setAside(path)
			return
		}
		if err := os.Remove(path); err != nil {
			log.Warn("remove manifest from inbox", logging.Error(err))
		}

		w.orch.Run(ctx, m)
	}()
}

// setAside renames an unparseable drop so it is kept for inspection without
// blocking the inbox.
func (w *inboxWatcher) setAside(path string) {
	rejected := path + ".rejected"
	if err := os.Rename(path, rejected); err != nil {
		w.logger.Warn("set aside rejected manifest", logging.Error(err))
	}
}

func isManifestFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xml")
}

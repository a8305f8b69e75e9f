package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"restack/internal/config"
	"restack/internal/history"
	"restack/internal/logging"
	"restack/internal/paths"
	"restack/internal/permissions"
	"restack/internal/transfer"
)

// Daemon owns the transfer orchestrator and HTTP surface and enforces
// single-instance execution.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *history.Store
	roots        paths.Roots
	perms        *permissions.Normalizer
	orchestrator *transfer.Orchestrator
	api          *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DownloadsDir string
	MediaDir     string
	HistoryCount int
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. The history store
// may be nil when history is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	perms, err := permissions.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("permission settings: %w", err)
	}
	roots, err := paths.NewRoots(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve pane roots: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "restackd.lock")
	d := &Daemon{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		roots:        roots,
		perms:        perms,
		orchestrator: transfer.NewOrchestrator(roots, perms, logger),
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// Start acquires the daemon lock and launches the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another restack daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("restack daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("restack daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the API listen address, or empty before Start.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DownloadsDir: d.roots.Downloads(),
		MediaDir:     d.roots.Media(),
		LockFilePath: d.lockPath,
	}
	if d.store != nil {
		if count, err := d.store.Count(ctx); err == nil {
			status.HistoryCount = count
		}
	}
	return status
}

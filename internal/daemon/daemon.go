package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"colourstream/internal/api"
	"colourstream/internal/auth"
	"colourstream/internal/config"
	"colourstream/internal/logging"
	"colourstream/internal/mirotalk"
	"colourstream/internal/notifications"
	"colourstream/internal/objectstore"
	"colourstream/internal/obs"
	"colourstream/internal/ome"
	"colourstream/internal/rooms"
	"colourstream/internal/store"
	"colourstream/internal/uploads"
)

// Daemon coordinates the background services and enforces single-instance
// execution per data directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	tracker  *uploads.Tracker
	notifier notifications.Service
	rooms    *rooms.Service
	authSvc  *auth.Service
	obsCli   *obs.Client
	omeCli   *ome.Client
	objects  *objectstore.Client
	server   *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	sweeper *sweeper
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	APIAddress    string
	DatabasePath  string
	LockFilePath  string
	ActiveUploads int
	OBSConnected  bool
}

// New constructs a daemon with initialized services.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	notifier := notifications.NewService(cfg)
	tracker := uploads.NewTracker(notifier, logger,
		uploads.WithQueueSize(cfg.Uploads.NotificationQueueLen))

	tokens := mirotalk.NewTokenService(cfg.MiroTalk.BaseURL, cfg.MiroTalk.JWTKey, cfg.MiroTalkTokenTTL())
	roomSvc := rooms.NewService(st, tokens, logger)
	authSvc := auth.NewService(st, cfg.Auth.JWTSecret, cfg.TokenTTL(), logger)

	var obsCli *obs.Client
	if cfg.OBS.Enabled {
		obsCli = obs.NewClient(cfg, logger)
	}
	omeCli := ome.NewConfiguredClient(cfg)

	var objects *objectstore.Client
	if cfg.Storage.Enabled {
		client, err := objectstore.New(context.Background(), cfg, logger)
		if err != nil {
			tracker.Close()
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		objects = client
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		tracker:  tracker,
		notifier: notifier,
		rooms:    roomSvc,
		authSvc:  authSvc,
		obsCli:   obsCli,
		omeCli:   omeCli,
		objects:  objects,
		lockPath: filepath.Join(cfg.Server.DataDir, "colourstreamd.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.sweeper = newSweeper(d, cfg.CleanupInterval())

	server, err := api.New(cfg, api.Deps{
		Store:    st,
		Auth:     authSvc,
		Rooms:    roomSvc,
		Tracker:  tracker,
		Notifier: notifier,
		OBS:      obsCli,
		OME:      omeCli,
		Objects:  objects,
	}, logger)
	if err != nil {
		tracker.Close()
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the daemon lock, seeds the admin account and launches the
// API server and retention sweep.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another colourstream daemon instance is already running")
	}

	if err := d.seedAdmin(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.obsCli != nil {
		// OBS may not be up yet; the connection can be retried through the
		// API later, so a failed dial only logs.
		if err := d.obsCli.Connect(d.ctx); err != nil {
			d.logger.Warn("obs connection failed", logging.Error(err))
		}
	}

	if err := d.server.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.sweeper.start(d.ctx)
	d.running.Store(true)
	d.logger.Info("colourstream daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sweeper.stop()
	d.server.Stop()
	if d.obsCli != nil {
		_ = d.obsCli.Close()
	}
	d.tracker.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("colourstream daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:       d.running.Load(),
		APIAddress:    d.server.Addr(),
		DatabasePath:  d.store.Path(),
		LockFilePath:  d.lockPath,
		ActiveUploads: len(d.tracker.Active()),
	}
	if d.obsCli != nil {
		status.OBSConnected = d.obsCli.Connected()
	}
	return status
}

// Tracker exposes the upload tracker, mainly for tests and the CLI.
func (d *Daemon) Tracker() *uploads.Tracker {
	return d.tracker
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if !d.cfg.Telegram.Enabled || strings.TrimSpace(d.cfg.Telegram.BotToken) == "" {
		return false, "telegram notifications not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// seedAdmin ensures the configured admin account exists. An existing
// account's password is never overwritten by configuration.
func (d *Daemon) seedAdmin(ctx context.Context) error {
	username := strings.TrimSpace(d.cfg.Auth.AdminUsername)
	if username == "" {
		username = "admin"
	}
	hash, err := auth.HashPassword(d.cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := d.store.SeedAdmin(ctx, username, hash); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}
	return nil
}

// retention returns the configured upload retention window.
func (d *Daemon) retention() time.Duration {
	return d.cfg.UploadRetention()
}

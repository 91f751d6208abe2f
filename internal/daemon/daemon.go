package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"gamearbiter/internal/arbiter"
	"gamearbiter/internal/catalog"
	"gamearbiter/internal/config"
	"gamearbiter/internal/httpapi"
	"gamearbiter/internal/launcher"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/metrics"
	"gamearbiter/internal/notifications"
	"gamearbiter/internal/preflight"
	"gamearbiter/internal/sources"
)

// ErrAlreadyRunning is returned when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another gamearbiter daemon instance is already running")

// Daemon owns the arbiter, its producers and the network surface for one
// process lifetime.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	notifier notifications.Service
	metrics  *metrics.Recorder
	arbiter  *arbiter.Arbiter
	api      *httpapi.Server
	sources  []sources.Source

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
}

// New opens the catalog and wires every component. It does not start
// anything.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	// The hub keeps the untapped logger; streamed lines must not loop back.
	hub := httpapi.NewHub(logging.NewComponentLogger(logger, "api"))
	if cfg.API.Enabled {
		logger = logging.Tee(logger, hub, slog.LevelInfo)
	}

	store, err := catalog.Open(cfg.Catalog.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	l, err := launcher.New(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	notifier := notifications.New(cfg, logger)
	recorder := metrics.New()
	selector := arbiter.NotifySelector(notifier)
	if cfg.API.Enabled {
		selector = arbiter.Selectors(selector, hub)
	}
	arb := arbiter.New(arbiter.ConfigFrom(cfg), store, l, notifier, selector, logger, recorder)

	srcs, err := sources.Build(cfg, arb, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("configure sources: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		notifier: notifier,
		metrics:  recorder,
		arbiter:  arb,
		sources:  srcs,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	if cfg.API.Enabled {
		d.api = httpapi.New(cfg.API, arb, hub, recorder.Handler(), logger)
	}
	return d, nil
}

// Arbiter exposes the arbiter for in-process callers.
func (d *Daemon) Arbiter() *arbiter.Arbiter { return d.arbiter }

// Catalog exposes the catalog store.
func (d *Daemon) Catalog() *catalog.Store { return d.store }

// Run holds the instance lock and serves until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldImpact, "next start may report a running instance"),
				logging.String(logging.FieldErrorHint, "remove "+d.lockPath),
			)
		}
	}()

	d.runPreflight(ctx)
	d.loadCatalog(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.arbiter.Run(gctx) })
	g.Go(func() error {
		// A broken device source is logged and never stops the daemon.
		_ = sources.Run(gctx, d.logger, d.sources...)
		return nil
	})
	if d.api != nil {
		g.Go(func() error { return d.api.Run(gctx) })
	}

	d.logger.Info("gamearbiter daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("sources", len(d.sources)),
		logging.Bool("api", d.api != nil),
	)
	err = g.Wait()
	d.logger.Info("gamearbiter daemon stopped")
	return err
}

// runPreflight logs host problems that will make sources or launches fail.
func (d *Daemon) runPreflight(ctx context.Context) {
	for _, r := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "dependent sources or launches will fail"),
			logging.String(logging.FieldErrorHint, "run `arbiter doctor` for the full report"),
		)
	}
}

// loadCatalog imports configured catalog files and optionally scans the
// games root. Failures degrade lookups but never stop the daemon.
func (d *Daemon) loadCatalog(ctx context.Context) {
	for _, path := range d.cfg.Catalog.ImportFiles {
		entries, err := catalog.LoadFile(path)
		if err == nil {
			_, err = d.store.Import(ctx, entries)
		}
		if err != nil {
			logging.WarnWithContext(d.logger, "catalog import failed", "catalog_import_failed",
				logging.String("file", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "games from this file cannot be found"),
				logging.String(logging.FieldErrorHint, "fix the file and run `arbiter catalog import`"),
			)
			continue
		}
		d.logger.Info("catalog imported", logging.String("file", path), logging.Int("entries", len(entries)))
	}

	if !d.cfg.Catalog.ScanOnStart || d.cfg.Paths.GamesDir == "" {
		return
	}
	entries, err := catalog.Scan(ctx, d.cfg.Paths.GamesDir)
	if err == nil {
		_, err = d.store.Import(ctx, entries)
	}
	if err != nil {
		logging.WarnWithContext(d.logger, "games scan failed", "catalog_scan_failed",
			logging.String("dir", d.cfg.Paths.GamesDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "catalog holds only previously imported games"),
			logging.String(logging.FieldErrorHint, "check paths.games_dir"),
		)
		return
	}
	d.logger.Info("games scanned", logging.String("dir", d.cfg.Paths.GamesDir), logging.Int("entries", len(entries)))
}

// Close releases the catalog.
func (d *Daemon) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

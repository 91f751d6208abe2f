package sources

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"gamearbiter/internal/config"
	"gamearbiter/internal/debounce"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/request"
)

const (
	settleDelay  = 250 * time.Millisecond
	maxWatchFile = 64 * 1024
)

// Watch consumes request files dropped into a directory. Each non-empty
// line is one request; processed files are removed.
type Watch struct {
	name          string
	dir           string
	defaultSystem string
	cooldown      time.Duration
	sink          Sink
	logger        *slog.Logger
	now           func() time.Time

	pending map[string]time.Time
	// recent holds one machine per request still inside its cooldown.
	recent map[string]*debounce.Machine
}

// NewWatch builds a drop-folder source from its config section.
func NewWatch(cfg config.WatchSource, sink Sink, logger *slog.Logger) *Watch {
	return &Watch{
		name:          cfg.Name,
		dir:           cfg.Dir,
		defaultSystem: cfg.DefaultSystem,
		cooldown:      cfg.Cooldown(),
		sink:          sink,
		logger: logging.NewComponentLogger(logger, "watch").With(
			logging.String(logging.FieldSource, cfg.Name),
			logging.String("dir", cfg.Dir),
		),
		now:     time.Now,
		pending: make(map[string]time.Time),
		recent:  make(map[string]*debounce.Machine),
	}
}

// Name implements Source.
func (w *Watch) Name() string { return w.name }

// Run implements Source.
func (w *Watch) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Files dropped while the daemon was down.
	entries, err := os.ReadDir(w.dir)
	if err == nil {
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				w.track(filepath.Join(w.dir, entry.Name()))
			}
		}
	}

	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.track(event.Name)
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(w.pending, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"),
				logging.String(logging.FieldImpact, "some dropped files may be missed"),
				logging.String(logging.FieldErrorHint, "raise fs.inotify limits if this repeats"),
			)
		case <-ticker.C:
			w.flush(w.now())
		}
	}
}

// track marks path for processing once writes have settled.
func (w *Watch) track(path string) {
	if ignoredFile(filepath.Base(path)) {
		return
	}
	w.pending[path] = w.now()
}

func ignoredFile(base string) bool {
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") ||
		strings.HasSuffix(base, ".swp")
}

func (w *Watch) flush(now time.Time) {
	w.prune(now)
	for path, touched := range w.pending {
		if now.Sub(touched) < settleDelay {
			continue
		}
		delete(w.pending, path)
		w.process(path, now)
	}
}

func (w *Watch) process(path string, now time.Time) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	var data []byte
	if info.Size() <= maxWatchFile {
		data, err = os.ReadFile(path)
	} else {
		err = fmt.Errorf("file exceeds %d bytes", maxWatchFile)
	}
	if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		w.logger.Warn("failed to remove processed file",
			logging.Error(removeErr),
			logging.String("file", path),
			logging.String(logging.FieldEventType, "watch_cleanup_failed"),
			logging.String(logging.FieldImpact, "file is processed again on restart"),
			logging.String(logging.FieldErrorHint, "check write permission on the watch dir"),
		)
	}
	if err != nil {
		logging.WarnWithContext(w.logger, "dropped file unreadable", "malformed_request",
			logging.Error(err),
			logging.String("file", path),
			logging.String(logging.FieldImpact, "file discarded"),
			logging.String(logging.FieldErrorHint, "drop small text files with one request per line"),
		)
		return
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		req, err := w.parse(line, now)
		if err != nil {
			logging.WarnWithContext(w.logger, "malformed request discarded", "malformed_request",
				logging.Error(err),
				logging.String("file", filepath.Base(path)),
				logging.String(logging.FieldImpact, "line ignored"),
				logging.String(logging.FieldErrorHint, "use system:id_type:identifier:source or set default_system"),
			)
			continue
		}
		if !w.admit(req, now) {
			w.logger.Debug("request suppressed by cooldown", logging.String(logging.FieldIdentifier, req.Identifier))
			continue
		}
		offer(w.sink, w.logger, req)
	}
}

// parse reads a full request line, or a bare title when a default system
// is configured.
func (w *Watch) parse(line string, now time.Time) (request.GameRequest, error) {
	req, err := request.ParseLine(line, now)
	if err == nil {
		return req, nil
	}
	if w.defaultSystem == "" {
		return request.GameRequest{}, err
	}
	return request.New(w.defaultSystem, request.IDTitle, line, w.name, now)
}

// admit gates req through its own debounce machine. A dropped line is a
// momentary presentation: present, then immediately gone.
func (w *Watch) admit(req request.GameRequest, now time.Time) bool {
	key := strings.ToLower(req.System) + "|" + req.IDType.String() + "|" + strings.ToLower(req.Identifier)
	m, ok := w.recent[key]
	if !ok {
		m = debounce.New(debounce.Config{Cooldown: w.cooldown, Mode: debounce.Tap})
		w.recent[key] = m
	}
	accepted := m.Present(now, key) == debounce.EventAccept
	m.Absent(now)
	return accepted
}

// prune drops machines whose cooldown has elapsed.
func (w *Watch) prune(now time.Time) {
	for key, m := range w.recent {
		m.Absent(now)
		if m.State().Phase == debounce.Idle {
			delete(w.recent, key)
		}
	}
}

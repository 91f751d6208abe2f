package launcher

import (
	"context"
	"log/slog"
	"sync"

	"gamearbiter/internal/logging"
)

// Log is a dry-run launcher that logs and remembers directives.
type Log struct {
	logger *slog.Logger

	mu       sync.Mutex
	launched []Directive
	exits    int
}

// NewLog builds a dry-run launcher.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logging.NewComponentLogger(logger, "launcher")}
}

// Launch records d.
func (l *Log) Launch(ctx context.Context, d Directive) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	l.launched = append(l.launched, d)
	l.mu.Unlock()
	l.logger.Info("launch (dry run)",
		logging.String(logging.FieldSystem, d.System),
		logging.String("title", d.Title),
		logging.String("path", d.Path),
	)
	return nil
}

// Exit records an exit request.
func (l *Log) Exit(ctx context.Context) error {
	l.mu.Lock()
	l.exits++
	l.mu.Unlock()
	l.logger.Info("exit (dry run)")
	return nil
}

// Launched returns a copy of every recorded directive.
func (l *Log) Launched() []Directive {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Directive, len(l.launched))
	copy(out, l.launched)
	return out
}

// Exits returns how many exit requests were recorded.
func (l *Log) Exits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exits
}

package sources

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"gamearbiter/internal/logging"
	"gamearbiter/internal/request"
)

// Sink receives requests without blocking the caller.
type Sink interface {
	Offer(req request.GameRequest) bool
}

// Exiter quits the game launched by a source.
type Exiter interface {
	Exit(ctx context.Context, source string) error
}

// Source is one producer channel. Run blocks until ctx is cancelled and only
// returns an error when the channel cannot be set up at all.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// Run starts every source and waits for all of them. A failing source is
// logged and does not stop the others.
func Run(ctx context.Context, logger *slog.Logger, srcs ...Source) error {
	logger = logging.NewComponentLogger(logger, "sources")
	var g errgroup.Group
	errs := make([]error, len(srcs))
	for i, src := range srcs {
		g.Go(func() error {
			logger.Info("source started", logging.String(logging.FieldSource, src.Name()))
			err := src.Run(ctx)
			if err != nil && ctx.Err() == nil {
				logging.ErrorWithContext(logger, "source stopped", "source_failed",
					logging.String(logging.FieldSource, src.Name()),
					logging.Error(err),
					logging.String(logging.FieldImpact, "requests from this source are ignored until restart"),
					logging.String(logging.FieldErrorHint, "check the source device path and permissions"),
				)
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// offer hands req to sink and logs drops.
func offer(sink Sink, logger *slog.Logger, req request.GameRequest) bool {
	if sink.Offer(req) {
		logger.Debug("request queued",
			logging.String(logging.FieldSystem, req.System),
			logging.String(logging.FieldIDType, req.IDType.String()),
			logging.String(logging.FieldIdentifier, req.Identifier),
		)
		return true
	}
	return false
}

// sleep waits d or until ctx is done and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// transportWarner logs a transport failure once per outage.
type transportWarner struct {
	logger  *slog.Logger
	failing bool
}

func (w *transportWarner) fail(msg string, err error, hint string) {
	if w.failing {
		w.logger.Debug(msg, logging.Error(err))
		return
	}
	w.failing = true
	logging.WarnWithContext(w.logger, msg, "transport_unavailable",
		logging.Error(err),
		logging.String(logging.FieldImpact, "source idle until the device recovers"),
		logging.String(logging.FieldErrorHint, hint),
	)
}

func (w *transportWarner) ok() {
	if w.failing {
		w.failing = false
		w.logger.Info("transport recovered")
	}
}

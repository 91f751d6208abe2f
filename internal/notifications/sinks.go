package notifications

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// OSD writes one line per message to the display collaborator's input. The
// path may be a FIFO or a regular file; FIFOs without a reader fail fast.
type OSD struct {
	path string
}

// NewOSD builds an OSD line writer.
func NewOSD(path string) *OSD {
	return &OSD{path: path}
}

// Send appends msg.Text as one line.
func (o *OSD) Send(_ context.Context, msg Message) error {
	fd, err := unix.Open(o.path, unix.O_WRONLY|unix.O_APPEND|unix.O_CREAT|unix.O_NONBLOCK|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return fmt.Errorf("open osd %s: %w", o.path, err)
	}
	f := os.NewFile(uintptr(fd), o.path)
	defer f.Close()
	if _, err := f.WriteString(msg.Text + "\n"); err != nil {
		return fmt.Errorf("write osd: %w", err)
	}
	return nil
}

// Limited drops messages beyond a token-bucket rate.
type Limited struct {
	sink    Sink
	limiter *rate.Limiter
}

// NewLimited wraps sink with a limiter of the given rate and burst.
func NewLimited(sink Sink, every rate.Limit, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	return &Limited{sink: sink, limiter: rate.NewLimiter(every, burst)}
}

// Send forwards msg when a token is available and returns ErrDropped otherwise.
func (l *Limited) Send(ctx context.Context, msg Message) error {
	if !l.limiter.Allow() {
		return ErrDropped
	}
	return l.sink.Send(ctx, msg)
}

type filtered struct {
	sink    Sink
	allowed map[Event]bool
}

// Filter forwards only the listed events; others are silently skipped.
func Filter(sink Sink, allowed map[Event]bool) Sink {
	return filtered{sink: sink, allowed: allowed}
}

func (f filtered) Send(ctx context.Context, msg Message) error {
	if !f.allowed[msg.Event] {
		return nil
	}
	return f.sink.Send(ctx, msg)
}

type fanout []Sink

// Fanout delivers each message to every sink. Errors are joined; a sink that
// only dropped the message does not count as a failure unless all did.
func Fanout(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return fanout(sinks)
}

func (f fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	dropped := 0
	for _, sink := range f {
		err := sink.Send(ctx, msg)
		switch {
		case err == nil:
		case errors.Is(err, ErrDropped):
			dropped++
		default:
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if dropped == len(f) {
		return ErrDropped
	}
	return nil
}

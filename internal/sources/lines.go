package sources

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"gamearbiter/internal/logging"
	"gamearbiter/internal/request"
)

const reopenDelay = time.Second

// Lines reads "system:id_type:identifier:source" records from a named pipe
// or a serial device.
type Lines struct {
	name   string
	path   string
	fifo   bool
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewPipe reads the command FIFO at path, creating it when missing.
func NewPipe(path string, sink Sink, logger *slog.Logger) *Lines {
	return &Lines{
		name:   "pipe",
		path:   path,
		fifo:   true,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "pipe").With(logging.String("path", path)),
		now:    time.Now,
	}
}

// NewUART reads a serial device speaking the line protocol.
func NewUART(name, device string, sink Sink, logger *slog.Logger) *Lines {
	return &Lines{
		name:   name,
		path:   device,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "uart").With(logging.String(logging.FieldSource, name), logging.String("device", device)),
		now:    time.Now,
	}
}

// Name implements Source.
func (l *Lines) Name() string { return l.name }

// Run implements Source.
func (l *Lines) Run(ctx context.Context) error {
	if l.fifo {
		if err := ensureFIFO(l.path); err != nil {
			return err
		}
	}
	warn := &transportWarner{logger: l.logger}
	for {
		f, err := l.open()
		if err != nil {
			warn.fail("open failed", err, "check the device path and permissions")
		} else {
			warn.ok()
			l.consume(ctx, f)
		}
		if ctx.Err() != nil {
			return nil
		}
		if !sleep(ctx, reopenDelay) {
			return nil
		}
	}
}

func (l *Lines) open() (*os.File, error) {
	if l.fifo {
		// Holding a write end keeps reads from hitting EOF between writers.
		return os.OpenFile(l.path, os.O_RDWR, 0)
	}
	return os.OpenFile(l.path, os.O_RDONLY|unix.O_NOCTTY, 0)
}

func (l *Lines) consume(ctx context.Context, f *os.File) {
	stop := context.AfterFunc(ctx, func() { _ = f.Close() })
	defer func() {
		if stop() {
			_ = f.Close()
		}
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l.handle(scanner.Text())
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, os.ErrClosed) {
		l.logger.Warn("read failed", logging.Error(err), logging.String(logging.FieldEventType, "read_failed"))
	}
}

func (l *Lines) handle(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	req, err := request.ParseLine(line, l.now())
	if err != nil {
		logging.WarnWithContext(l.logger, "malformed request discarded", "malformed_request",
			logging.Error(err),
			logging.String(logging.FieldImpact, "line ignored"),
			logging.String(logging.FieldErrorHint, "lines must look like PSX:serial:SLUS-00067:nfc"),
		)
		return
	}
	offer(l.sink, l.logger, req)
}

func ensureFIFO(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.Mode()&fs.ModeNamedPipe == 0 {
			return fmt.Errorf("%s exists and is not a named pipe", path)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := unix.Mkfifo(path, 0o666); err != nil && !errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("create command pipe: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("stat command pipe: %w", err)
	}
}

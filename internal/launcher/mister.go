package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/sys/unix"

	"gamearbiter/internal/logging"
)

const fifoRetryInterval = 50 * time.Millisecond

// MiSTer launches games through MGL files and the MiSTer command FIFO.
type MiSTer struct {
	fifo        string
	mglDir      string
	exitCommand string
	logger      *slog.Logger
}

// NewMiSTer builds a launcher writing MGL files into mglDir and commands into
// fifo.
func NewMiSTer(fifo, mglDir, exitCommand string, logger *slog.Logger) *MiSTer {
	return &MiSTer{
		fifo:        fifo,
		mglDir:      mglDir,
		exitCommand: exitCommand,
		logger:      logging.NewComponentLogger(logger, "launcher"),
	}
}

// Launch writes the MGL for d and asks MiSTer to load it.
func (m *MiSTer) Launch(ctx context.Context, d Directive) error {
	body, err := RenderMGL(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.mglDir, 0o755); err != nil {
		return fmt.Errorf("create mgl directory: %w", err)
	}
	mglPath := filepath.Join(m.mglDir, MGLName(d))
	if err := writeAtomic(mglPath, body); err != nil {
		return err
	}

	m.logger.Info("launching game",
		logging.String(logging.FieldSystem, d.System),
		logging.String("title", d.Title),
		logging.String("mgl", mglPath),
	)
	return m.send(ctx, "load_core "+mglPath)
}

// Exit returns MiSTer to its menu core.
func (m *MiSTer) Exit(ctx context.Context) error {
	if m.exitCommand == "" {
		return nil
	}
	m.logger.Info("exiting game")
	return m.send(ctx, m.exitCommand)
}

func (m *MiSTer) send(ctx context.Context, command string) error {
	if err := WriteCommand(ctx, m.fifo, command); err != nil {
		return fmt.Errorf("send %q: %w", command, err)
	}
	return nil
}

func writeAtomic(path string, body []byte) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending mgl: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(body); err != nil {
		return fmt.Errorf("write mgl: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace mgl: %w", err)
	}
	return nil
}

// WriteCommand writes one newline-terminated command to a FIFO. Opening is
// non-blocking; while no reader is attached it retries until ctx is done and
// then returns ErrTimeout.
func WriteCommand(ctx context.Context, fifo, command string) error {
	for {
		fd, err := unix.Open(fifo, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err == nil {
			f := os.NewFile(uintptr(fd), fifo)
			_, werr := f.Write([]byte(command + "\n"))
			cerr := f.Close()
			if werr != nil {
				return fmt.Errorf("write fifo: %w", werr)
			}
			return cerr
		}
		if !errors.Is(err, syscall.ENXIO) {
			return fmt.Errorf("open fifo %s: %w", fifo, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: no reader on %s: %v", ErrTimeout, fifo, ctx.Err())
		case <-time.After(fifoRetryInterval):
		}
	}
}

package sources

import (
	"log/slog"

	"gamearbiter/internal/arbiter"
	"gamearbiter/internal/config"
)

// Target is everything a source may need from the arbiter.
type Target interface {
	Sink
	Exiter
	arbiter.Commander
}

// Build creates the command pipe, the command socket and every configured
// device source.
func Build(cfg *config.Config, target Target, logger *slog.Logger) ([]Source, error) {
	srcs := []Source{
		NewPipe(cfg.Paths.CommandPipe, target, logger),
		NewSocket(cfg.Paths.SocketPath, target, logger),
	}
	for _, sc := range cfg.Sources.NFC {
		src, err := NewNFC(sc, FileTagReader{Path: sc.DumpPath}, target, target, logger)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	for _, sc := range cfg.Sources.Disc {
		srcs = append(srcs, NewDisc(sc, target, logger))
	}
	for _, sc := range cfg.Sources.GPIO {
		src, err := NewGPIO(sc, target, logger)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	for _, sc := range cfg.Sources.Watch {
		srcs = append(srcs, NewWatch(sc, target, logger))
	}
	for _, sc := range cfg.Sources.UART {
		srcs = append(srcs, NewUART(sc.Name, sc.Device, target, logger))
	}
	return srcs, nil
}

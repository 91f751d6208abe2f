package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gamearbiter/internal/config"
)

// ErrTimeout reports that the launch command could not be delivered before
// the context deadline.
var ErrTimeout = errors.New("launcher did not acknowledge")

// ErrUnknownSystem reports a directive for a system without a core mapping.
var ErrUnknownSystem = errors.New("unknown system")

// Directive is the outbound launch request for one resolved game.
type Directive struct {
	RequestID string `json:"request_id,omitempty"`
	System    string `json:"system"`
	Title     string `json:"title"`
	Serial    string `json:"serial,omitempty"`
	Region    string `json:"region,omitempty"`
	Path      string `json:"path,omitempty"`
}

// Launcher starts and stops games. Launch returns once the platform has
// accepted the directive.
type Launcher interface {
	Launch(ctx context.Context, d Directive) error
	Exit(ctx context.Context) error
}

// New builds the launcher selected by cfg.Launcher.Mode.
func New(cfg *config.Config, logger *slog.Logger) (Launcher, error) {
	switch cfg.Launcher.Mode {
	case config.LauncherModeMiSTer:
		return NewMiSTer(cfg.Launcher.CommandFIFO, cfg.Launcher.MGLDir, cfg.Launcher.ExitCommand, logger), nil
	case config.LauncherModeLog:
		return NewLog(logger), nil
	default:
		return nil, fmt.Errorf("launcher mode %q: unsupported", cfg.Launcher.Mode)
	}
}

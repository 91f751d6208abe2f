package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gamearbiter/internal/config"
	"gamearbiter/internal/debounce"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/request"
)

const pressedKey = "pressed"

// GPIO samples a sysfs value file and emits a fixed request per press.
type GPIO struct {
	name      string
	path      string
	activeLow bool
	poll      time.Duration
	template  request.GameRequest
	machine   *debounce.Machine
	sink      Sink
	logger    *slog.Logger
	warn      *transportWarner
	now       func() time.Time
}

// NewGPIO builds a GPIO source from its config section.
func NewGPIO(cfg config.GPIOSource, sink Sink, logger *slog.Logger) (*GPIO, error) {
	idType, err := request.ParseIDType(cfg.IDType)
	if err != nil {
		return nil, fmt.Errorf("gpio %s: %w", cfg.Name, err)
	}
	template, err := request.New(cfg.System, idType, cfg.Identifier, cfg.Name, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("gpio %s: %w", cfg.Name, err)
	}
	logger = logging.NewComponentLogger(logger, "gpio").With(
		logging.String(logging.FieldSource, cfg.Name),
		logging.Int("pin", cfg.Pin),
	)
	return &GPIO{
		name:      cfg.Name,
		path:      cfg.ValuePath,
		activeLow: cfg.ActiveLow,
		poll:      cfg.PollInterval(),
		template:  template,
		machine: debounce.New(debounce.Config{
			Debounce: cfg.Debounce(),
			Cooldown: cfg.Cooldown(),
			Mode:     debounce.Tap,
		}),
		sink:   sink,
		logger: logger,
		warn:   &transportWarner{logger: logger},
		now:    time.Now,
	}, nil
}

// Name implements Source.
func (g *GPIO) Name() string { return g.name }

// Run implements Source.
func (g *GPIO) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()
	for {
		g.step()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (g *GPIO) step() {
	pressed, err := g.read()
	if err != nil {
		g.warn.fail("pin read failed", err, "export the pin and check value_path")
		return
	}
	g.warn.ok()

	now := g.now()
	if !pressed {
		g.machine.Absent(now)
		return
	}
	if g.machine.Present(now, pressedKey) == debounce.EventAccept {
		req := g.template
		req.ReceivedAt = now
		g.logger.Info("button pressed", logging.String(logging.FieldIdentifier, req.Identifier))
		offer(g.sink, g.logger, req)
	}
}

func (g *GPIO) read() (bool, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(string(data)) {
	case "1":
		return !g.activeLow, nil
	case "0":
		return g.activeLow, nil
	default:
		return false, fmt.Errorf("unexpected pin value %q", strings.TrimSpace(string(data)))
	}
}

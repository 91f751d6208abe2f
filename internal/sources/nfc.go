package sources

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gamearbiter/internal/config"
	"gamearbiter/internal/debounce"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/nfc"
)

const exitTimeout = 2 * time.Second

// TagReader returns the payload of the tag currently on the reader, or nil
// when the field is empty.
type TagReader interface {
	ReadTag(ctx context.Context) ([]byte, error)
}

// FileTagReader reads the dump file maintained by the PN532 helper. A
// missing or empty file means no tag.
type FileTagReader struct {
	Path string
}

// ReadTag implements TagReader.
func (r FileTagReader) ReadTag(context.Context) ([]byte, error) {
	data, err := os.ReadFile(r.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// NFC polls a tag reader and turns stable tag presentations into requests.
// In hold mode removing the tag exits the game it launched.
type NFC struct {
	name          string
	defaultSystem string
	poll          time.Duration
	reader        TagReader
	machine       *debounce.Machine
	sink          Sink
	exiter        Exiter
	logger        *slog.Logger
	warn          *transportWarner
	now           func() time.Time
}

// NewNFC builds an NFC source from its config section.
func NewNFC(cfg config.NFCSource, reader TagReader, sink Sink, exiter Exiter, logger *slog.Logger) (*NFC, error) {
	mode, err := debounce.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	logger = logging.NewComponentLogger(logger, "nfc").With(logging.String(logging.FieldSource, cfg.Name))
	return &NFC{
		name:          cfg.Name,
		defaultSystem: cfg.DefaultSystem,
		poll:          cfg.PollInterval(),
		reader:        reader,
		machine: debounce.New(debounce.Config{
			Debounce:       cfg.Debounce(),
			Cooldown:       cfg.Cooldown(),
			RemovalTimeout: cfg.RemovalTimeout(),
			Mode:           mode,
		}),
		sink:   sink,
		exiter: exiter,
		logger: logger,
		warn:   &transportWarner{logger: logger},
		now:    time.Now,
	}, nil
}

// Name implements Source.
func (n *NFC) Name() string { return n.name }

// Run implements Source.
func (n *NFC) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.poll)
	defer ticker.Stop()
	for {
		n.step(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (n *NFC) step(ctx context.Context) {
	payload, err := n.reader.ReadTag(ctx)
	if err != nil {
		n.warn.fail("tag read failed", err, "check the NFC reader connection and dump_path")
		return
	}
	n.warn.ok()

	now := n.now()
	if payload == nil {
		if n.machine.Absent(now) == debounce.EventExit {
			n.exitHeld(ctx)
		}
		return
	}
	if n.machine.Present(now, string(payload)) != debounce.EventAccept {
		return
	}

	tag, err := nfc.Parse(payload)
	if err != nil {
		logging.WarnWithContext(n.logger, "unreadable tag ignored", "malformed_request",
			logging.Error(err),
			logging.Int("bytes", len(payload)),
			logging.String(logging.FieldImpact, "tag ignored until it is presented again"),
			logging.String(logging.FieldErrorHint, "rewrite the tag with `arbiter nfc encode`"),
		)
		return
	}
	req, err := tag.Request(n.name, n.defaultSystem, now)
	if err != nil {
		logging.WarnWithContext(n.logger, "tag cannot be mapped to a request", "malformed_request",
			logging.Error(err),
			logging.String("format", tag.Format.String()),
			logging.String(logging.FieldImpact, "tag ignored until it is presented again"),
			logging.String(logging.FieldErrorHint, "set default_system for this reader or write an NFC1 record"),
		)
		return
	}
	n.logger.Info("tag accepted",
		logging.String("format", tag.Format.String()),
		logging.String("tag_type", tag.Type.String()),
		logging.String(logging.FieldIdentifier, req.Identifier),
	)
	offer(n.sink, n.logger, req)
}

func (n *NFC) exitHeld(ctx context.Context) {
	if n.exiter == nil {
		return
	}
	n.logger.Info("held tag removed; exiting game")
	exitCtx, cancel := context.WithTimeout(ctx, exitTimeout)
	defer cancel()
	if err := n.exiter.Exit(exitCtx, n.name); err != nil {
		n.logger.Debug("exit not performed", logging.Error(err))
	}
}

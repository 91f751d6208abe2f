package sources

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gamearbiter/internal/config"
	"gamearbiter/internal/debounce"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/request"
)

const (
	defaultDiscSystem = "PSX"
	probeTimeout      = 10 * time.Second
	// mountWait bounds how long a readable but unmounted disc waits for the
	// automounter before it is identified by label alone.
	mountWait = 10 * time.Second
)

type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:gosec
}

// DiscInfo describes the medium found in a drive.
type DiscInfo struct {
	Device     string
	Label      string
	FSType     string
	MountPoint string
	Serial     string
}

// key identifies the physical medium for debouncing. It ignores the serial
// and mount point, which appear only once the disc is mounted.
func (d DiscInfo) key() string {
	return d.Device + "|" + d.FSType + "|" + d.Label
}

// Disc polls an optical drive and emits one request per inserted disc.
// Udev media-change events wake the poller early.
type Disc struct {
	name     string
	device   string
	system   string
	poll     time.Duration
	netlink  bool
	runner   commandRunner
	readFile func(string) ([]byte, error)
	stat     func(string) (os.FileInfo, error)
	machine  *debounce.Machine
	sink     Sink
	logger   *slog.Logger
	warn     *transportWarner
	now      func() time.Time
	wake     chan struct{}

	// An unmounted medium with a filesystem is held back until mountWait passes.
	mountWait   time.Duration
	unmounted   string
	unmountedAt time.Time
}

// NewDisc builds a disc source from its config section.
func NewDisc(cfg config.DiscSource, sink Sink, logger *slog.Logger) *Disc {
	system := cfg.System
	if system == "" {
		system = defaultDiscSystem
	}
	logger = logging.NewComponentLogger(logger, "disc").With(
		logging.String(logging.FieldSource, cfg.Name),
		logging.String("device", cfg.Device),
	)
	return &Disc{
		name:     cfg.Name,
		device:   cfg.Device,
		system:   system,
		poll:     cfg.PollInterval(),
		netlink:  cfg.Netlink,
		runner:   execCommandRunner{},
		readFile: os.ReadFile,
		stat:     os.Stat,
		machine: debounce.New(debounce.Config{
			Debounce: cfg.Debounce(),
			Cooldown: cfg.Cooldown(),
			Mode:     debounce.Tap,
		}),
		sink:   sink,
		logger: logger,
		warn:   &transportWarner{logger: logger},
		now:    time.Now,
		wake:   make(chan struct{}, 1),

		mountWait: mountWait,
	}
}

// Name implements Source.
func (d *Disc) Name() string { return d.name }

// Run implements Source.
func (d *Disc) Run(ctx context.Context) error {
	if d.netlink {
		monitor := newNetlinkMonitor(d.device, d.logger, d.Wake)
		if monitor.Start(ctx) {
			defer monitor.Stop()
		}
	}

	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		d.step(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// Wake triggers an immediate poll.
func (d *Disc) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Disc) step(ctx context.Context) {
	info, err := d.probe(ctx)
	if err != nil {
		d.warn.fail("disc detection failed; will retry", err, "check the optical drive path, permissions and mount state")
		return
	}
	d.warn.ok()

	now := d.now()
	if info == nil {
		d.unmounted = ""
		d.machine.Absent(now)
		return
	}
	if d.awaitingMount(info, now) {
		return
	}
	if d.machine.Present(now, info.key()) != debounce.EventAccept {
		return
	}

	idType, identifier := request.IDTitle, info.Label
	if info.Serial != "" {
		idType, identifier = request.IDSerial, info.Serial
	}
	req, err := request.New(d.system, idType, identifier, d.name, now)
	if err != nil {
		logging.WarnWithContext(d.logger, "disc cannot be identified", "malformed_request",
			logging.Error(err),
			logging.String(logging.FieldImpact, "disc ignored until it is reinserted"),
			logging.String(logging.FieldErrorHint, "mount the disc so SYSTEM.CNF can be read"),
		)
		return
	}
	d.logger.Info("detected disc",
		logging.String(logging.FieldEventType, "disc_detected"),
		logging.String("disc_label", info.Label),
		logging.String("serial", info.Serial),
	)
	offer(d.sink, d.logger, req)
}

// awaitingMount reports whether a disc with a filesystem but no mount point
// should be held back so it is identified once, by serial, after mounting.
func (d *Disc) awaitingMount(info *DiscInfo, now time.Time) bool {
	if info.MountPoint != "" || info.FSType == "" {
		d.unmounted = ""
		return false
	}
	if key := info.key(); d.unmounted != key {
		d.unmounted, d.unmountedAt = key, now
	}
	return now.Sub(d.unmountedAt) < d.mountWait
}

// probe returns nil when the drive is empty. A missing drive is an error.
func (d *Disc) probe(ctx context.Context) (*DiscInfo, error) {
	if _, err := d.stat(d.device); err != nil {
		return nil, fmt.Errorf("optical drive: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := d.runner.Output(probeCtx, "lsblk", "-P", "-o", "LABEL,FSTYPE,MOUNTPOINT", d.device)
	if err != nil {
		if probeCtx.Err() != nil {
			return nil, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("lsblk: %w", err)
	}

	fields := parseLsblkOutput(string(output))
	info := &DiscInfo{
		Device:     d.device,
		Label:      fields["LABEL"],
		FSType:     fields["FSTYPE"],
		MountPoint: fields["MOUNTPOINT"],
	}
	if info.Label == "" && info.FSType == "" {
		return nil, nil
	}
	if info.MountPoint != "" {
		if data, err := d.readFile(filepath.Join(info.MountPoint, "SYSTEM.CNF")); err == nil {
			info.Serial, _ = ParseSystemCNF(data)
		}
	}
	if info.Serial == "" && info.Label == "" {
		return nil, nil
	}
	return info, nil
}

func parseLsblkOutput(output string) map[string]string {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if data := parseKeyValueLine(line); len(data) > 0 {
			return data
		}
	}
	return nil
}

var keyValuePattern = regexp.MustCompile(`([A-Z:-]+)="([^"]*)"`)

// parseKeyValueLine reads lsblk -P output, whose quoted values may contain
// spaces.
func parseKeyValueLine(line string) map[string]string {
	result := make(map[string]string)
	for _, match := range keyValuePattern.FindAllStringSubmatch(line, -1) {
		result[match[1]] = strings.TrimSpace(match[2])
	}
	return result
}

var bootPattern = regexp.MustCompile(`(?i)^BOOT2?\s*=\s*cdrom0?:\\?(.+?)(;\d+)?$`)

var bootSerialPattern = regexp.MustCompile(`^([A-Z]{4})[_-](\d{3})\.?(\d{2})$`)

// ParseSystemCNF extracts the disc serial from a PlayStation SYSTEM.CNF,
// e.g. "BOOT = cdrom:\SLUS_000.67;1" yields "SLUS-00067".
func ParseSystemCNF(data []byte) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		match := bootPattern.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if match == nil {
			continue
		}
		exe := strings.ToUpper(filepath.Base(strings.ReplaceAll(match[1], `\`, "/")))
		if parts := bootSerialPattern.FindStringSubmatch(exe); parts != nil {
			return parts[1] + "-" + parts[2] + parts[3], true
		}
	}
	return "", false
}

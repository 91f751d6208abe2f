package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and endpoint locations shared by the daemon and CLI.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	GamesDir    string `toml:"games_dir"`
	CommandPipe string `toml:"command_pipe"`
	SocketPath  string `toml:"socket_path"`
}

// Catalog contains configuration for the game catalog store.
type Catalog struct {
	DBPath      string   `toml:"db_path"`
	ImportFiles []string `toml:"import_files"`
	ScanOnStart bool     `toml:"scan_on_start"`
}

// Arbiter contains the request arbitration knobs.
type Arbiter struct {
	MatchThreshold   int    `toml:"match_threshold"`
	AmbiguityMargin  int    `toml:"ambiguity_margin"`
	PreferredRegion  string `toml:"preferred_region"`
	QueueSize        int    `toml:"queue_size"`
	LaunchTimeout    int    `toml:"launch_timeout"`    // seconds
	SelectionTimeout int    `toml:"selection_timeout"` // seconds
}

// Launcher contains configuration for the MGL writer and MiSTer command FIFO.
type Launcher struct {
	// Mode is "mister" (write MGL + load_core) or "log" (dry run).
	Mode        string `toml:"mode"`
	CommandFIFO string `toml:"command_fifo"`
	MGLDir      string `toml:"mgl_dir"`
	ExitCommand string `toml:"exit_command"`
}

// Notifications contains configuration for OSD messages and ntfy pushes.
type Notifications struct {
	OSDPath        string `toml:"osd_path"`
	OSDIntervalMS  int    `toml:"osd_interval_ms"`
	OSDBurst       int    `toml:"osd_burst"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Launches       bool   `toml:"launches"`
	NotFound       bool   `toml:"not_found"`
	Errors         bool   `toml:"errors"`
}

// API contains configuration for the HTTP/WebSocket surface.
type API struct {
	Enabled           bool   `toml:"enabled"`
	Bind              string `toml:"bind"`
	Token             string `toml:"token"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// NFCSource describes one NFC reader channel.
type NFCSource struct {
	Name          string `toml:"name"`
	DumpPath      string `toml:"dump_path"`
	DefaultSystem string `toml:"default_system"`
	Mode          string `toml:"mode"`
	PollMS        int    `toml:"poll_ms"`
	DebounceMS    int    `toml:"debounce_ms"`
	CooldownMS    int    `toml:"cooldown_ms"`
	RemovalMS     int    `toml:"removal_ms"`
}

// DiscSource describes one optical drive channel.
type DiscSource struct {
	Name       string `toml:"name"`
	Device     string `toml:"device"`
	System     string `toml:"system"`
	PollMS     int    `toml:"poll_ms"`
	DebounceMS int    `toml:"debounce_ms"`
	CooldownMS int    `toml:"cooldown_ms"`
	Netlink    bool   `toml:"netlink"`
}

// GPIOSource binds one GPIO pin to a fixed request.
type GPIOSource struct {
	Name       string `toml:"name"`
	Pin        int    `toml:"pin"`
	ValuePath  string `toml:"value_path"`
	ActiveLow  bool   `toml:"active_low"`
	System     string `toml:"system"`
	IDType     string `toml:"id_type"`
	Identifier string `toml:"identifier"`
	PollMS     int    `toml:"poll_ms"`
	DebounceMS int    `toml:"debounce_ms"`
	CooldownMS int    `toml:"cooldown_ms"`
}

// WatchSource describes a drop folder that accepts request files.
type WatchSource struct {
	Name          string `toml:"name"`
	Dir           string `toml:"dir"`
	DefaultSystem string `toml:"default_system"`
	CooldownMS    int    `toml:"cooldown_ms"`
}

// UARTSource describes a serial device speaking the line protocol.
type UARTSource struct {
	Name   string `toml:"name"`
	Device string `toml:"device"`
}

// Sources groups every configured producer channel.
type Sources struct {
	NFC   []NFCSource   `toml:"nfc"`
	Disc  []DiscSource  `toml:"disc"`
	GPIO  []GPIOSource  `toml:"gpio"`
	Watch []WatchSource `toml:"watch"`
	UART  []UARTSource  `toml:"uart"`
}

// Config encapsulates all configuration values for the arbiter.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories, games root, pipe and socket endpoints
//   - Catalog: SQLite catalog location and startup imports
//   - Arbiter: match threshold, preferred region, queue and timeouts
//   - Launcher: MGL directory and MiSTer command FIFO
//   - Notifications: OSD sink and ntfy push settings
//   - API: HTTP/WebSocket bind address and rate limits
//   - Logging: log format and level
//   - Sources: NFC, disc, GPIO, watch-folder and UART producers
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	Arbiter       Arbiter       `toml:"arbiter"`
	Launcher      Launcher      `toml:"launcher"`
	Notifications Notifications `toml:"notifications"`
	API           API           `toml:"api"`
	Logging       Logging       `toml:"logging"`
	Sources       Sources       `toml:"sources"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/gamearbiter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gamearbiter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir, filepath.Dir(c.Catalog.DBPath)}
	if c.Launcher.Mode == LauncherModeMiSTer {
		dirs = append(dirs, c.Launcher.MGLDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "gamearbiter.lock")
}

// LaunchTimeout returns the launcher acknowledgement deadline.
func (c *Config) LaunchTimeout() time.Duration {
	return time.Duration(c.Arbiter.LaunchTimeout) * time.Second
}

// SelectionTimeout returns how long an ambiguous prompt stays open.
func (c *Config) SelectionTimeout() time.Duration {
	return time.Duration(c.Arbiter.SelectionTimeout) * time.Second
}

// OSDInterval returns the minimum spacing between OSD messages.
func (c *Config) OSDInterval() time.Duration {
	return millis(c.Notifications.OSDIntervalMS)
}

// SourceCount reports how many producer channels are configured.
func (c *Config) SourceCount() int {
	s := c.Sources
	return len(s.NFC) + len(s.Disc) + len(s.GPIO) + len(s.Watch) + len(s.UART)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// PollInterval returns the reader poll period.
func (s NFCSource) PollInterval() time.Duration { return millis(s.PollMS) }

// Debounce returns the stability window.
func (s NFCSource) Debounce() time.Duration { return millis(s.DebounceMS) }

// Cooldown returns the same-tag re-trigger delay.
func (s NFCSource) Cooldown() time.Duration { return millis(s.CooldownMS) }

// RemovalTimeout returns the hold-mode exit delay.
func (s NFCSource) RemovalTimeout() time.Duration { return millis(s.RemovalMS) }

// PollInterval returns the drive poll period.
func (s DiscSource) PollInterval() time.Duration { return millis(s.PollMS) }

// Debounce returns the stability window.
func (s DiscSource) Debounce() time.Duration { return millis(s.DebounceMS) }

// Cooldown returns the same-disc re-trigger delay.
func (s DiscSource) Cooldown() time.Duration { return millis(s.CooldownMS) }

// PollInterval returns the pin sampling period.
func (s GPIOSource) PollInterval() time.Duration { return millis(s.PollMS) }

// Debounce returns the edge stability window.
func (s GPIOSource) Debounce() time.Duration { return millis(s.DebounceMS) }

// Cooldown returns the re-press delay.
func (s GPIOSource) Cooldown() time.Duration { return millis(s.CooldownMS) }

// Cooldown returns the same-file re-trigger delay.
func (s WatchSource) Cooldown() time.Duration { return millis(s.CooldownMS) }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

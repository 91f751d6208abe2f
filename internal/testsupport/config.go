package testsupport

import (
	"path/filepath"
	"testing"

	"gamearbiter/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The launcher runs in log mode and the API binds to an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.GamesDir = filepath.Join(base, "games")
	cfgVal.Paths.CommandPipe = filepath.Join(base, "cmd.pipe")
	cfgVal.Paths.SocketPath = filepath.Join(base, "arbiter.sock")
	cfgVal.Catalog.DBPath = filepath.Join(base, "state", "catalog.db")
	cfgVal.Launcher.Mode = config.LauncherModeLog
	cfgVal.Launcher.MGLDir = filepath.Join(base, "mgl")
	cfgVal.Launcher.CommandFIFO = filepath.Join(base, "MiSTer_cmd")
	cfgVal.Notifications.OSDPath = ""
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMiSTerLauncher switches the launcher to MGL + FIFO mode rooted in the
// test directory.
func WithMiSTerLauncher() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Launcher.Mode = config.LauncherModeMiSTer
	}
}

// WithPreferredRegion overrides the region preference.
func WithPreferredRegion(region string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Arbiter.PreferredRegion = region
	}
}

// WithOSD points OSD notifications at a file inside the test directory.
func WithOSD() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.OSDPath = filepath.Join(b.baseDir, "osd")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

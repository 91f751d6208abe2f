package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeArbiter()
	if err := c.normalizeLauncher(); err != nil {
		return err
	}
	if err := c.normalizeNotifications(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeLogging()
	return c.normalizeSources()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.GamesDir, err = expandPath(c.Paths.GamesDir); err != nil {
		return fmt.Errorf("paths.games_dir: %w", err)
	}
	if c.Paths.CommandPipe, err = expandPath(c.Paths.CommandPipe); err != nil {
		return fmt.Errorf("paths.command_pipe: %w", err)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	var err error
	if strings.TrimSpace(c.Catalog.DBPath) == "" {
		c.Catalog.DBPath = defaultCatalogDB
	}
	if c.Catalog.DBPath, err = expandPath(c.Catalog.DBPath); err != nil {
		return fmt.Errorf("catalog.db_path: %w", err)
	}
	files := make([]string, 0, len(c.Catalog.ImportFiles))
	for _, file := range c.Catalog.ImportFiles {
		if strings.TrimSpace(file) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(file))
		if err != nil {
			return fmt.Errorf("catalog.import_files: %w", err)
		}
		files = append(files, expanded)
	}
	c.Catalog.ImportFiles = files
	return nil
}

func (c *Config) normalizeArbiter() {
	c.Arbiter.PreferredRegion = strings.TrimSpace(c.Arbiter.PreferredRegion)
	if c.Arbiter.PreferredRegion == "" {
		c.Arbiter.PreferredRegion = defaultPreferredRegion
	}
	if c.Arbiter.QueueSize <= 0 {
		c.Arbiter.QueueSize = defaultQueueSize
	}
}

func (c *Config) normalizeLauncher() error {
	var err error
	c.Launcher.Mode = strings.ToLower(strings.TrimSpace(c.Launcher.Mode))
	if c.Launcher.Mode == "" {
		c.Launcher.Mode = defaultLauncherMode
	}
	if strings.TrimSpace(c.Launcher.CommandFIFO) == "" {
		c.Launcher.CommandFIFO = defaultCommandFIFO
	}
	if strings.TrimSpace(c.Launcher.MGLDir) == "" {
		c.Launcher.MGLDir = defaultMGLDir
	}
	if c.Launcher.MGLDir, err = expandPath(c.Launcher.MGLDir); err != nil {
		return fmt.Errorf("launcher.mgl_dir: %w", err)
	}
	c.Launcher.ExitCommand = strings.TrimSpace(c.Launcher.ExitCommand)
	if c.Launcher.ExitCommand == "" {
		c.Launcher.ExitCommand = defaultExitCommand
	}
	return nil
}

func (c *Config) normalizeNotifications() error {
	var err error
	if c.Notifications.OSDPath, err = expandPath(strings.TrimSpace(c.Notifications.OSDPath)); err != nil {
		return fmt.Errorf("notifications.osd_path: %w", err)
	}
	if value, ok := os.LookupEnv("ARBITER_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.OSDIntervalMS < 0 {
		c.Notifications.OSDIntervalMS = 0
	}
	if c.Notifications.OSDBurst <= 0 {
		c.Notifications.OSDBurst = defaultOSDBurst
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if value, ok := os.LookupEnv("ARBITER_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.API.Token = value
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.RequestsPerMinute <= 0 {
		c.API.RequestsPerMinute = defaultAPIRate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeSources() error {
	for i := range c.Sources.NFC {
		src := &c.Sources.NFC[i]
		if src.Name = strings.TrimSpace(src.Name); src.Name == "" {
			src.Name = fmt.Sprintf("nfc%d", i)
		}
		var err error
		if src.DumpPath, err = expandPath(strings.TrimSpace(src.DumpPath)); err != nil {
			return fmt.Errorf("sources.nfc[%d].dump_path: %w", i, err)
		}
		src.DefaultSystem = strings.TrimSpace(src.DefaultSystem)
		src.Mode = strings.ToLower(strings.TrimSpace(src.Mode))
		if src.Mode == "" {
			src.Mode = ModeTap
		}
		if src.PollMS <= 0 {
			src.PollMS = defaultNFCPollMS
		}
		if src.DebounceMS <= 0 {
			src.DebounceMS = pollDebounceMS(src.PollMS)
		}
		if src.CooldownMS <= 0 {
			src.CooldownMS = defaultNFCCooldownMS
		}
		if src.RemovalMS <= 0 {
			src.RemovalMS = defaultNFCRemovalMS
		}
	}

	for i := range c.Sources.Disc {
		src := &c.Sources.Disc[i]
		if src.Name = strings.TrimSpace(src.Name); src.Name == "" {
			src.Name = fmt.Sprintf("disc%d", i)
		}
		if src.Device = strings.TrimSpace(src.Device); src.Device == "" {
			src.Device = defaultDiscDevice
		}
		src.System = strings.TrimSpace(src.System)
		if src.PollMS <= 0 {
			src.PollMS = defaultDiscPollMS
		}
		if src.DebounceMS <= 0 {
			src.DebounceMS = pollDebounceMS(src.PollMS)
		}
		if src.CooldownMS <= 0 {
			src.CooldownMS = defaultDiscCooldownMS
		}
	}

	for i := range c.Sources.GPIO {
		src := &c.Sources.GPIO[i]
		if src.Name = strings.TrimSpace(src.Name); src.Name == "" {
			src.Name = fmt.Sprintf("gpio%d", src.Pin)
		}
		if src.ValuePath = strings.TrimSpace(src.ValuePath); src.ValuePath == "" {
			src.ValuePath = fmt.Sprintf("/sys/class/gpio/gpio%d/value", src.Pin)
		}
		src.System = strings.TrimSpace(src.System)
		src.IDType = strings.ToLower(strings.TrimSpace(src.IDType))
		if src.IDType == "" {
			src.IDType = "custom"
		}
		src.Identifier = strings.TrimSpace(src.Identifier)
		if src.PollMS <= 0 {
			src.PollMS = defaultGPIOPollMS
		}
		if src.DebounceMS <= 0 {
			src.DebounceMS = defaultGPIODebounceMS
		}
		if src.CooldownMS <= 0 {
			src.CooldownMS = defaultGPIOCooldownMS
		}
	}

	for i := range c.Sources.Watch {
		src := &c.Sources.Watch[i]
		if src.Name = strings.TrimSpace(src.Name); src.Name == "" {
			src.Name = fmt.Sprintf("watch%d", i)
		}
		var err error
		if src.Dir, err = expandPath(strings.TrimSpace(src.Dir)); err != nil {
			return fmt.Errorf("sources.watch[%d].dir: %w", i, err)
		}
		src.DefaultSystem = strings.TrimSpace(src.DefaultSystem)
		if src.CooldownMS <= 0 {
			src.CooldownMS = defaultWatchCooldown
		}
	}

	for i := range c.Sources.UART {
		src := &c.Sources.UART[i]
		if src.Name = strings.TrimSpace(src.Name); src.Name == "" {
			src.Name = fmt.Sprintf("uart%d", i)
		}
		src.Device = strings.TrimSpace(src.Device)
	}
	return nil
}

// pollDebounceMS returns the default debounce for a polled source: a medium
// must be seen on two consecutive polls. The window sits below one period so
// a slow probe cannot push acceptance to a third poll.
func pollDebounceMS(pollMS int) int {
	return max(pollMS*3/4, 1)
}

package config

import (
	"errors"
	"fmt"
	"strings"
)

var validIDTypes = map[string]struct{}{
	"serial": {}, "title": {}, "uuid": {}, "hash": {}, "barcode": {}, "custom": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateArbiter(); err != nil {
		return err
	}
	if err := c.validateLauncher(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateSources()
}

func (c *Config) validateArbiter() error {
	if err := ensurePositiveMap(map[string]int{
		"arbiter.queue_size":        c.Arbiter.QueueSize,
		"arbiter.launch_timeout":    c.Arbiter.LaunchTimeout,
		"arbiter.selection_timeout": c.Arbiter.SelectionTimeout,
	}); err != nil {
		return err
	}
	if c.Arbiter.MatchThreshold < 0 || c.Arbiter.MatchThreshold > 100 {
		return errors.New("arbiter.match_threshold must be between 0 and 100")
	}
	if c.Arbiter.AmbiguityMargin < 0 {
		return errors.New("arbiter.ambiguity_margin must be >= 0")
	}
	if strings.TrimSpace(c.Catalog.DBPath) == "" {
		return errors.New("catalog.db_path must be set")
	}
	return nil
}

func (c *Config) validateLauncher() error {
	switch c.Launcher.Mode {
	case LauncherModeMiSTer:
		if strings.TrimSpace(c.Launcher.CommandFIFO) == "" {
			return errors.New("launcher.command_fifo must be set when launcher.mode is mister")
		}
	case LauncherModeLog:
	default:
		return fmt.Errorf("launcher.mode: unsupported value %q (want mister or log)", c.Launcher.Mode)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func (c *Config) validateSources() error {
	names := map[string]struct{}{}
	claim := func(kind, name string) error {
		if _, dup := names[name]; dup {
			return fmt.Errorf("sources.%s: duplicate source name %q", kind, name)
		}
		names[name] = struct{}{}
		return nil
	}

	for i, src := range c.Sources.NFC {
		if err := claim("nfc", src.Name); err != nil {
			return err
		}
		if src.DumpPath == "" {
			return fmt.Errorf("sources.nfc[%d].dump_path must be set", i)
		}
		if src.Mode != ModeTap && src.Mode != ModeHold {
			return fmt.Errorf("sources.nfc[%d].mode: unsupported value %q (want tap or hold)", i, src.Mode)
		}
	}
	for _, src := range c.Sources.Disc {
		if err := claim("disc", src.Name); err != nil {
			return err
		}
	}
	for i, src := range c.Sources.GPIO {
		if err := claim("gpio", src.Name); err != nil {
			return err
		}
		if src.System == "" || src.Identifier == "" {
			return fmt.Errorf("sources.gpio[%d]: system and identifier must be set", i)
		}
		if _, ok := validIDTypes[src.IDType]; !ok {
			return fmt.Errorf("sources.gpio[%d].id_type: unsupported value %q", i, src.IDType)
		}
	}
	for i, src := range c.Sources.Watch {
		if err := claim("watch", src.Name); err != nil {
			return err
		}
		if src.Dir == "" {
			return fmt.Errorf("sources.watch[%d].dir must be set", i)
		}
	}
	for i, src := range c.Sources.UART {
		if err := claim("uart", src.Name); err != nil {
			return err
		}
		if src.Device == "" {
			return fmt.Errorf("sources.uart[%d].device must be set", i)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package preflight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gamearbiter/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes the checks that apply to cfg. Checks for a feature only run
// when the feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("State directory", cfg.Paths.StateDir)}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Paths.GamesDir != "" {
		results = append(results, CheckDirectoryAccess("Games directory", cfg.Paths.GamesDir))
	}

	if cfg.Launcher.Mode == config.LauncherModeMiSTer {
		results = append(results,
			CheckDirectoryAccess("MGL directory", cfg.Launcher.MGLDir),
			CheckFIFO("MiSTer command FIFO", cfg.Launcher.CommandFIFO),
		)
	}

	if len(cfg.Sources.Disc) > 0 {
		results = append(results, CheckBinary("lsblk", "lsblk", "Required to read disc labels", false))
	}
	for _, src := range cfg.Sources.Disc {
		results = append(results, CheckDevice(sourceName("Disc", src.Name), src.Device))
	}
	for _, src := range cfg.Sources.NFC {
		results = append(results, CheckDirectoryAccess(sourceName("NFC dump dir", src.Name), filepath.Dir(src.DumpPath)))
	}
	for _, src := range cfg.Sources.GPIO {
		results = append(results, CheckDevice(sourceName("GPIO", src.Name), src.ValuePath))
	}
	for _, src := range cfg.Sources.UART {
		results = append(results, CheckDevice(sourceName("UART", src.Name), src.Device))
	}

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		results = append(results, CheckNtfy(ctx, topic))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

func sourceName(kind, name string) string {
	if name == "" {
		return kind
	}
	return fmt.Sprintf("%s %s", kind, name)
}

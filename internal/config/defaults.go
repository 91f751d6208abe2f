package config

const (
	defaultStateDir         = "~/.local/share/gamearbiter"
	defaultLogDir           = "~/.local/share/gamearbiter/logs"
	defaultGamesDir         = "/media/fat/games"
	defaultCommandPipe      = "/tmp/gamearbiter_cmd"
	defaultSocketPath       = "/tmp/gamearbiter.sock"
	defaultCatalogDB        = "~/.local/share/gamearbiter/catalog.db"
	defaultMatchThreshold   = 30
	defaultAmbiguityMargin  = 1
	defaultPreferredRegion  = "USA"
	defaultQueueSize        = 16
	defaultLaunchTimeout    = 5
	defaultSelectionTimeout = 30
	defaultLauncherMode     = LauncherModeMiSTer
	defaultCommandFIFO      = "/dev/MiSTer_cmd"
	defaultMGLDir           = "/tmp/gamearbiter"
	defaultExitCommand      = "load_core /media/fat/menu.rbf"
	defaultOSDIntervalMS    = 500
	defaultOSDBurst         = 3
	defaultRequestTimeout   = 10
	defaultAPIBind          = "127.0.0.1:7497"
	defaultAPIRate          = 120
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	defaultNFCPollMS      = 250
	defaultNFCCooldownMS  = 2000
	defaultNFCRemovalMS   = 3000
	defaultDiscDevice     = "/dev/sr0"
	defaultDiscPollMS     = 2000
	defaultDiscCooldownMS = 2000
	defaultGPIOPollMS     = 10
	defaultGPIODebounceMS = 50
	defaultGPIOCooldownMS = 2000
	defaultWatchCooldown  = 2000
)

// Launcher modes.
const (
	LauncherModeMiSTer = "mister"
	LauncherModeLog    = "log"
)

// Source interaction modes.
const (
	ModeTap  = "tap"
	ModeHold = "hold"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
			GamesDir:    defaultGamesDir,
			CommandPipe: defaultCommandPipe,
			SocketPath:  defaultSocketPath,
		},
		Catalog: Catalog{
			DBPath: defaultCatalogDB,
		},
		Arbiter: Arbiter{
			MatchThreshold:   defaultMatchThreshold,
			AmbiguityMargin:  defaultAmbiguityMargin,
			PreferredRegion:  defaultPreferredRegion,
			QueueSize:        defaultQueueSize,
			LaunchTimeout:    defaultLaunchTimeout,
			SelectionTimeout: defaultSelectionTimeout,
		},
		Launcher: Launcher{
			Mode:        defaultLauncherMode,
			CommandFIFO: defaultCommandFIFO,
			MGLDir:      defaultMGLDir,
			ExitCommand: defaultExitCommand,
		},
		Notifications: Notifications{
			OSDIntervalMS:  defaultOSDIntervalMS,
			OSDBurst:       defaultOSDBurst,
			RequestTimeout: defaultRequestTimeout,
			Launches:       true,
			NotFound:       true,
			Errors:         true,
		},
		API: API{
			Enabled:           true,
			Bind:              defaultAPIBind,
			RequestsPerMinute: defaultAPIRate,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

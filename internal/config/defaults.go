package config

const (
	defaultDownloadsDir      = "~/downloads"
	defaultMediaDir          = "~/media"
	defaultLogDir            = "~/.local/share/restack/logs"
	defaultAPIBind           = "127.0.0.1:7814"
	defaultFileMode          = "0664"
	defaultDirMode           = "0775"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultHistoryMaxEntries = 200
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadsDir: defaultDownloadsDir,
			MediaDir:     defaultMediaDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Permissions: Permissions{
			UID:      -1,
			GID:      -1,
			FileMode: defaultFileMode,
			DirMode:  defaultDirMode,
		},
		History: History{
			Enabled:    true,
			MaxEntries: defaultHistoryMaxEntries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package config

const (
	defaultLibraryDir   = "~/.local/share/stemlab/library"
	defaultAccountsPath = "~/.local/share/stemlab/accounts.json"
	defaultLogDir       = "~/.local/share/stemlab/logs"
	defaultAPIBind      = "127.0.0.1:5000"
	defaultSepBinary    = "spleeter"
	defaultFFmpegBinary = "ffmpeg"
	defaultModel        = "spleeter:4stems"
	defaultSMTPPort     = 587
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:   defaultLibraryDir,
			AccountsPath: defaultAccountsPath,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Separation: Separation{
			Binary:       defaultSepBinary,
			FFmpegBinary: defaultFFmpegBinary,
			DefaultModel: defaultModel,
		},
		SMTP: SMTP{
			Port:   defaultSMTPPort,
			UseTLS: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

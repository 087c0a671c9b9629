package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool
	UseConsoleWriter bool `mapstructure:"use_console_writer"`
}

// Rotation describes one lumberjack managed log file.
type Rotation struct {
	File       string
	MaxSize    int `mapstructure:"max_size"`    // megabytes
	MaxBackups int `mapstructure:"max_backups"` // files
	MaxAge     int `mapstructure:"max_age"`     // days
}

// LogFile implements a file based logger, one file per level group.
type LogFile struct {
	Enabled bool
	Path    string

	Access Rotation
	Error  Rotation
	Info   Rotation
	Trace  Rotation
	Warn   Rotation
}

// Log implements the logger config.
type Log struct {
	LogLevel string // trace, debug, info, warn, error.
	LogEnv   string

	// EnableAccessLogToConsole if true the webserver access log is written to the console.
	// Does not overrule flag Console.Enabled!
	EnableAccessLogToConsole bool `mapstructure:"access_log_to_console"`
	ReportCaller             bool `mapstructure:"report_caller"`

	// DisableCheckAlive skips access log lines for the check alive uri.
	DisableCheckAlive bool `mapstructure:"disable_check_alive"`

	AppName     string
	ServiceName string

	// Console used mainly for docker and dev.
	Console Console

	File LogFile
}

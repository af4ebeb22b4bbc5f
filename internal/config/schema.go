// Package config provides configuration loading and validation for camctl.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [paths]: Locations of the schedule file, settings file and data stores
//   - [logging]: Logging level, format, and output
//   - [scheduler]: Schedule runner settings
//   - [workers]: Command execution pool settings
//   - [watchdog]: Acquisition watchdog settings
//   - [diskgc]: Image store garbage collection settings
//   - [metrics]: Prometheus endpoint settings
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax, e.g. image_dir = "${CAMCTL_DATA:/home/pi/pycam/Images}".
package config

// Config represents the main application configuration.
type Config struct {
	Paths     PathsConfig     `toml:"paths"`
	Logging   LoggingConfig   `toml:"logging"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Workers   WorkersConfig   `toml:"workers"`
	Watchdog  WatchdogConfig  `toml:"watchdog"`
	DiskGC    DiskGCConfig    `toml:"diskgc"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// PathsConfig locates the configuration artifacts and data stores.
type PathsConfig struct {
	Crontab         string `toml:"crontab"`          // Crontab schedule file
	ProcessSettings string `toml:"process_settings"` // Flat key=value processing settings
	ImageDir        string `toml:"image_dir"`        // Acquisition output directory
	ErrorLog        string `toml:"error_log"`        // Append-only error log
	CameraSpecs     string `toml:"camera_specs"`     // Optional camera spec override file
	SpecSpecs       string `toml:"spec_specs"`       // Optional spectrometer spec override file
	TempLog         string `toml:"temp_log"`         // Optional temperature log
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// SchedulerConfig holds schedule runner settings.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Timezone string `toml:"timezone"`
}

// WorkersConfig holds command execution pool settings.
type WorkersConfig struct {
	PoolSize           int `toml:"pool_size"`
	QueueSize          int `toml:"queue_size"`
	TaskTimeoutSeconds int `toml:"task_timeout_seconds"`
}

// WatchdogConfig holds acquisition watchdog settings.
type WatchdogConfig struct {
	Enabled        bool   `toml:"enabled"`
	StartScript    string `toml:"start_script"`    // Command substring of the acquisition start entry
	StopScript     string `toml:"stop_script"`     // Command substring of the acquisition stop entry
	SettleSeconds  int    `toml:"settle_seconds"`  // Wait before the first data check
	RecheckSeconds int    `toml:"recheck_seconds"` // Wait before the post-restart check
	RestartCommand string `toml:"restart_command"` // Command run when data types are missing
}

// DiskGCConfig holds image store garbage collection settings.
type DiskGCConfig struct {
	Enabled         bool `toml:"enabled"`
	ThresholdMB     int  `toml:"threshold_mb"`
	IntervalMinutes int  `toml:"interval_minutes"`
}

// MetricsConfig holds prometheus endpoint settings.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

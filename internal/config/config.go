package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from a TOML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandPaths(&cfg)

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	expandPaths(&cfg)
	return &cfg
}

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() []error {
	var errors []error

	if c.Paths.Crontab == "" {
		errors = append(errors, fmt.Errorf("paths.crontab is required"))
	}
	if c.Paths.ProcessSettings == "" {
		errors = append(errors, fmt.Errorf("paths.process_settings is required"))
	}

	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			errors = append(errors, fmt.Errorf("scheduler.timezone is invalid: %w", err))
		}
	}

	if c.Workers.PoolSize < 1 {
		errors = append(errors, fmt.Errorf("workers.pool_size must be >= 1"))
	}
	if c.Workers.QueueSize < 1 {
		errors = append(errors, fmt.Errorf("workers.queue_size must be >= 1"))
	}
	if c.Workers.TaskTimeoutSeconds < 1 {
		errors = append(errors, fmt.Errorf("workers.task_timeout_seconds must be >= 1"))
	}

	if c.Watchdog.Enabled {
		if c.Watchdog.StartScript == "" {
			errors = append(errors, fmt.Errorf("watchdog.start_script is required when watchdog.enabled=true"))
		}
		if c.Watchdog.StopScript == "" {
			errors = append(errors, fmt.Errorf("watchdog.stop_script is required when watchdog.enabled=true"))
		}
		if c.Paths.ImageDir == "" {
			errors = append(errors, fmt.Errorf("paths.image_dir is required when watchdog.enabled=true"))
		}
		if c.Watchdog.SettleSeconds < 1 {
			errors = append(errors, fmt.Errorf("watchdog.settle_seconds must be >= 1"))
		}
	}

	if c.DiskGC.Enabled {
		if c.Paths.ImageDir == "" {
			errors = append(errors, fmt.Errorf("paths.image_dir is required when diskgc.enabled=true"))
		}
		if c.DiskGC.ThresholdMB < 1 {
			errors = append(errors, fmt.Errorf("diskgc.threshold_mb must be >= 1"))
		}
		if c.DiskGC.IntervalMinutes < 1 {
			errors = append(errors, fmt.Errorf("diskgc.interval_minutes must be >= 1"))
		}
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errors = append(errors, fmt.Errorf("metrics.listen_addr is required when metrics.enabled=true"))
	}

	return errors
}

// applyDefaults fills unset fields with default values.
func applyDefaults(c *Config) {
	if c.Paths.Crontab == "" {
		c.Paths.Crontab = "~/.camctl/crontab_schedule"
	}
	if c.Paths.ProcessSettings == "" {
		c.Paths.ProcessSettings = "~/.camctl/processing_settings.txt"
	}
	if c.Paths.ErrorLog == "" {
		c.Paths.ErrorLog = "~/.camctl/error.log"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Workers.PoolSize == 0 {
		c.Workers.PoolSize = 2
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 16
	}
	if c.Workers.TaskTimeoutSeconds == 0 {
		c.Workers.TaskTimeoutSeconds = 300
	}

	if c.Watchdog.SettleSeconds == 0 {
		c.Watchdog.SettleSeconds = 150
	}
	if c.Watchdog.RecheckSeconds == 0 {
		c.Watchdog.RecheckSeconds = 30
	}

	if c.DiskGC.ThresholdMB == 0 {
		c.DiskGC.ThresholdMB = 100000
	}
	if c.DiskGC.IntervalMinutes == 0 {
		c.DiskGC.IntervalMinutes = 60
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
}

// expandPaths expands ${VAR:default} references and '~' in every path field.
func expandPaths(c *Config) {
	fields := []*string{
		&c.Paths.Crontab,
		&c.Paths.ProcessSettings,
		&c.Paths.ImageDir,
		&c.Paths.ErrorLog,
		&c.Paths.CameraSpecs,
		&c.Paths.SpecSpecs,
		&c.Paths.TempLog,
		&c.Logging.Output,
	}
	for _, field := range fields {
		*field = expandHome(expandEnv(*field))
	}
}

// expandEnv expands an environment reference of the form ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}
	suffix := s[end+1:]

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val + suffix
		}
		return defaultVal + suffix
	}

	return os.Getenv(content) + suffix
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}
	return path
}

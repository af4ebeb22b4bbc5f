package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openso2/camctl/internal/config"
	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/diskgc"
	"github.com/openso2/camctl/internal/logger"
	"github.com/openso2/camctl/internal/specs"
	"github.com/openso2/camctl/internal/templog"
	"github.com/openso2/camctl/internal/watchdog"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one supervisory check",
	Long: `Run one of the supervisory jobs once: disk space collection, data
presence, or the temperature log summary.`,
}

var checkDiskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Check disk usage and delete the oldest days if over threshold",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := checkSetup()

		runner, err := diskgc.NewRunner(diskgc.Config{
			Dir:         cfg.Paths.ImageDir,
			ThresholdMB: int64(cfg.DiskGC.ThresholdMB),
		}, log)
		if err != nil {
			fatal("Failed to initialize disk collector: %v", err)
		}

		stats, err := runner.Run()
		if err != nil {
			fatal("Disk collection failed: %v", err)
		}

		fmt.Printf("usage: %d MB (threshold %d MB)\n", stats.UsageMBAfter, cfg.DiskGC.ThresholdMB)
		if stats.DaysDeleted > 0 {
			fmt.Printf("deleted %d days, freed %d MB\n", stats.DaysDeleted, stats.MBFreed)
		}
	},
}

var checkDataCmd = &cobra.Command{
	Use:   "data",
	Short: "Check that all data products are being acquired",
	Long: `Check that on-band images, off-band images and spectra are all being
written while the schedule says the instrument is acquiring. Missing
products trigger the configured restart command.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := checkSetup()

		w, err := buildWatchdog(cfg, log)
		if err != nil {
			fatal("Failed to initialize watchdog: %v", err)
		}

		schedule, err := crontab.ParseFile(cfg.Paths.Crontab)
		if err != nil {
			fatal("Failed to parse schedule: %v", err)
		}

		now := time.Now()
		window, err := watchdog.WindowFromSchedule(schedule,
			cfg.Watchdog.StartScript, cfg.Watchdog.StopScript, now)
		if err != nil {
			fatal("Failed to derive acquisition window: %v", err)
		}

		if !window.Contains(now) {
			fmt.Printf("outside acquisition window (opens in %s), nothing to check\n",
				window.Until(now).Round(time.Minute))
			return
		}

		gone, err := w.Verify(context.Background())
		if err != nil {
			fatal("Data check failed: %v", err)
		}
		if len(gone) > 0 {
			fmt.Fprintf(os.Stderr, "missing data products after restart: %v\n", gone)
			os.Exit(1)
		}
		fmt.Println("all data products present")
	},
}

var checkTempCmd = &cobra.Command{
	Use:   "temp",
	Short: "Summarize the temperature log",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _ := checkSetup()

		if cfg.Paths.TempLog == "" {
			fatal("No temperature log configured")
		}

		readings, err := templog.ParseFile(cfg.Paths.TempLog)
		if err != nil {
			fatal("Failed to read temperature log: %v", err)
		}
		stats, err := templog.Summarize(readings)
		if err != nil {
			fatal("%v in %s", err, cfg.Paths.TempLog)
		}

		fmt.Printf("latest: %.1f°C at %s\n", stats.Latest.Celsius, stats.Latest.Time.Format(templog.TimeLayout))
		fmt.Printf("min:    %.1f°C at %s\n", stats.Min.Celsius, stats.Min.Time.Format(templog.TimeLayout))
		fmt.Printf("max:    %.1f°C at %s\n", stats.Max.Celsius, stats.Max.Time.Format(templog.TimeLayout))
		fmt.Printf("readings: %d\n", stats.Count)
	},
}

// checkSetup loads config and a console logger for one-shot checks.
func checkSetup() (*config.Config, *logger.Logger) {
	cfg, err := loadConfig()
	if err != nil {
		fatal("Failed to load configuration: %v", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		fatal("Failed to initialize logger: %v", err)
	}

	return cfg, log
}

// buildWatchdog assembles the watchdog from config, loading spec override
// files when configured.
func buildWatchdog(cfg *config.Config, log *logger.Logger) (*watchdog.Watchdog, error) {
	cam := specs.DefaultCameraSpecs()
	if cfg.Paths.CameraSpecs != "" {
		var err error
		if cam, err = specs.LoadCameraSpecs(cfg.Paths.CameraSpecs); err != nil {
			return nil, fmt.Errorf("failed to load camera specs: %w", err)
		}
	}
	spec := specs.DefaultSpecSpecs()
	if cfg.Paths.SpecSpecs != "" {
		var err error
		if spec, err = specs.LoadSpecSpecs(cfg.Paths.SpecSpecs); err != nil {
			return nil, fmt.Errorf("failed to load spectrometer specs: %w", err)
		}
	}

	return watchdog.New(watchdog.Config{
		ImageDir:       cfg.Paths.ImageDir,
		StartScript:    cfg.Watchdog.StartScript,
		StopScript:     cfg.Watchdog.StopScript,
		SettleTime:     time.Duration(cfg.Watchdog.SettleSeconds) * time.Second,
		RecheckTime:    time.Duration(cfg.Watchdog.RecheckSeconds) * time.Second,
		RestartCommand: cfg.Watchdog.RestartCommand,
		ErrorLog:       cfg.Paths.ErrorLog,
	}, &cam, &spec, log)
}

func init() {
	checkCmd.AddCommand(checkDiskCmd)
	checkCmd.AddCommand(checkDataCmd)
	checkCmd.AddCommand(checkTempCmd)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/openso2/camctl/internal/config"
	"github.com/openso2/camctl/internal/constants"
	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/diskgc"
	"github.com/openso2/camctl/internal/logger"
	"github.com/openso2/camctl/internal/report"
	"github.com/openso2/camctl/internal/schedule"
	"github.com/openso2/camctl/internal/version"
	"github.com/openso2/camctl/internal/watchdog"
	"github.com/openso2/camctl/internal/workers"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the instrument supervisor (main command)",
	Long: `Run the camctl supervisor with the specified configuration.
This will initialize all components (logger, worker pool, schedule runner,
acquisition watchdog, disk collection, metrics endpoint) and handle
graceful shutdown.

The serve command is the main entry point for running camctl on the
instrument.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	// Load .env file if exists
	loadEnvFile(constants.DefaultEnvPath)

	// Determine config path
	configPath := serveConfigPath
	if configPath == "" {
		configPath = rootConfigPath
	}
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	// Validate configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Printf("Configuration validation failed:\n")
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	log.Info("Starting camctl",
		logger.Field{Key: "version", Value: version.Short()},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "crontab", Value: cfg.Paths.Crontab},
		logger.Field{Key: "image_dir", Value: cfg.Paths.ImageDir},
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize worker pool
	pool := workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueSize,
		time.Duration(cfg.Workers.TaskTimeoutSeconds)*time.Second,
		log,
	)
	pool.Start()
	log.Info("Worker pool started",
		logger.Field{Key: "workers", Value: pool.WorkerCount()},
		logger.Field{Key: "queue", Value: cfg.Workers.QueueSize})

	// Initialize schedule runner
	var runner *schedule.Runner
	if cfg.Scheduler.Enabled {
		loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			log.Error("Invalid scheduler timezone", err)
			os.Exit(1)
		}

		scheduleFile, err := crontab.ParseFile(cfg.Paths.Crontab)
		if err != nil {
			log.Error("Failed to parse schedule file", err,
				logger.Field{Key: "path", Value: cfg.Paths.Crontab})
			os.Exit(1)
		}
		if errs := scheduleFile.Validate(); len(errs) > 0 {
			for _, e := range errs {
				log.Warn("Schedule file problem", logger.Field{Key: "detail", Value: e.Error()})
			}
		}

		metrics := schedule.InitMetrics(constants.MetricsNamespace, registry)
		runner = schedule.NewRunner(pool, log, metrics, loc)
		if err := runner.Load(scheduleFile); err != nil {
			log.Error("Failed to load schedule", err)
			os.Exit(1)
		}
		if err := runner.Start(ctx); err != nil {
			log.Error("Failed to start schedule runner", err)
			os.Exit(1)
		}
		log.Info("Schedule runner started",
			logger.Field{Key: "entries", Value: len(runner.Entries())},
			logger.Field{Key: "timezone", Value: cfg.Scheduler.Timezone})
	} else {
		log.Warn("Schedule runner is disabled")
	}

	// Initialize acquisition watchdog
	if cfg.Watchdog.Enabled {
		w, err := buildWatchdog(cfg, log)
		if err != nil {
			log.Error("Failed to initialize watchdog", err)
			os.Exit(1)
		}
		w.SetMetrics(watchdog.InitMetrics(constants.MetricsNamespace, registry))

		scheduleFile, err := crontab.ParseFile(cfg.Paths.Crontab)
		if err != nil {
			log.Error("Failed to parse schedule file for watchdog", err)
			os.Exit(1)
		}

		go func() {
			if err := w.Supervise(ctx, scheduleFile); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Watchdog stopped", err)
			}
		}()
		log.Info("Acquisition watchdog started",
			logger.Field{Key: "image_dir", Value: cfg.Paths.ImageDir})
	} else {
		log.Warn("Acquisition watchdog is disabled")
	}

	// Initialize disk collection
	var gcScheduler *diskgc.Scheduler
	if cfg.DiskGC.Enabled {
		gcRunner, err := diskgc.NewRunner(diskgc.Config{
			Dir:         cfg.Paths.ImageDir,
			ThresholdMB: int64(cfg.DiskGC.ThresholdMB),
		}, log)
		if err != nil {
			log.Error("Failed to initialize disk collector", err)
			os.Exit(1)
		}
		gcRunner.SetMetrics(diskgc.InitMetrics(constants.MetricsNamespace, registry))

		gcScheduler = diskgc.NewScheduler(gcRunner, diskgc.SchedulerConfig{
			Enabled:         true,
			IntervalMinutes: cfg.DiskGC.IntervalMinutes,
		}, log)
		if err := gcScheduler.Start(ctx); err != nil {
			log.Error("Failed to start disk collection scheduler", err)
			os.Exit(1)
		}
	} else {
		log.Warn("Disk collection is disabled")
	}

	// Metrics endpoint
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if runner != nil {
			mux.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("Content-Type", "application/yaml")
				r := report.FromRunner(cfg.Paths.Crontab, runner.Entries(), time.Now())
				if err := r.WriteYAML(w); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
			})
		}
		metricsServer = &http.Server{
			Addr:     cfg.Metrics.ListenAddr,
			Handler:  mux,
			ErrorLog: slog.NewLogLogger(log.StdLogger().Handler(), slog.LevelError),
		}

		go func() {
			log.Info("Metrics endpoint listening",
				logger.Field{Key: "addr", Value: cfg.Metrics.ListenAddr})
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics endpoint failed", err)
			}
		}()
	}

	log.Info("camctl is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{Key: "signal", Value: sig.String()})

	// Graceful shutdown
	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shut down metrics endpoint", err)
		}
		shutdownCancel()
	}

	if gcScheduler != nil {
		gcScheduler.Stop()
	}

	if runner != nil {
		if err := runner.Stop(); err != nil {
			log.Error("Failed to stop schedule runner", err)
		}
	}

	pool.Stop()

	log.Info("camctl stopped")
}

// loadEnvFile loads KEY=VALUE pairs from a .env file into the environment.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			os.Setenv(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config-file", "f", "", "Path to configuration file (default: ./camctl.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}

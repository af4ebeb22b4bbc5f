// Package diskgc keeps the instrument's data partition below a configured
// size by deleting the oldest day of imagery. Data is stored in one
// directory per acquisition day, named YYYY-MM-DD. The current day is never
// deleted.
package diskgc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/openso2/camctl/internal/logger"
)

const (
	// DayDirLayout is the naming convention of per-day data directories.
	DayDirLayout = "2006-01-02"

	DefaultThresholdMB = 100_000
)

// Config holds configuration for the disk collector.
type Config struct {
	Dir         string // Data directory holding per-day subdirectories
	ThresholdMB int64  // Delete oldest days while usage exceeds this
}

// Stats reports the outcome of one collection run.
type Stats struct {
	UsageMBBefore int64
	UsageMBAfter  int64
	DaysDeleted   int
	MBFreed       int64
	Duration      time.Duration
}

// Runner performs collection runs.
type Runner struct {
	config  Config
	logger  *logger.Logger
	metrics *Metrics
	nowFn   func() time.Time
}

// NewRunner creates a collector runner.
func NewRunner(config Config, log *logger.Logger) (*Runner, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if config.ThresholdMB <= 0 {
		config.ThresholdMB = DefaultThresholdMB
	}
	return &Runner{
		config: config,
		logger: log,
		nowFn:  time.Now,
	}, nil
}

// SetMetrics attaches prometheus instrumentation.
func (r *Runner) SetMetrics(m *Metrics) { r.metrics = m }

// Usage returns the total size in bytes of all files under dir.
func Usage(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// dayDirs returns the per-day subdirectories of the data directory, oldest
// first. Entries whose names do not parse as dates are ignored.
func (r *Runner) dayDirs() ([]string, error) {
	entries, err := os.ReadDir(r.config.Dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(DayDirLayout, e.Name()); err != nil {
			continue
		}
		days = append(days, e.Name())
	}
	sort.Strings(days)
	return days, nil
}

// Run performs one collection pass: while usage exceeds the threshold it
// deletes the oldest day directory, stopping at the current day.
func (r *Runner) Run() (Stats, error) {
	startTime := time.Now()
	stats := Stats{}

	usage, err := Usage(r.config.Dir)
	if err != nil {
		return stats, fmt.Errorf("failed to measure disk usage: %w", err)
	}
	stats.UsageMBBefore = usage / 1_000_000
	stats.UsageMBAfter = stats.UsageMBBefore

	threshold := r.config.ThresholdMB * 1_000_000
	today := r.nowFn().Format(DayDirLayout)

	for usage > threshold {
		days, err := r.dayDirs()
		if err != nil {
			return stats, err
		}
		if len(days) == 0 || days[0] == today {
			r.logger.Warn("disk usage over threshold but nothing left to delete",
				logger.Field{Key: "usage_mb", Value: usage / 1_000_000},
				logger.Field{Key: "threshold_mb", Value: r.config.ThresholdMB})
			break
		}

		oldest := filepath.Join(r.config.Dir, days[0])
		size, err := Usage(oldest)
		if err != nil {
			return stats, err
		}
		if err := os.RemoveAll(oldest); err != nil {
			return stats, fmt.Errorf("failed to delete %s: %w", oldest, err)
		}

		usage -= size
		stats.DaysDeleted++
		stats.MBFreed += size / 1_000_000
		r.logger.Info("deleted oldest day of data",
			logger.Field{Key: "day", Value: days[0]},
			logger.Field{Key: "mb_freed", Value: size / 1_000_000})
	}

	stats.UsageMBAfter = usage / 1_000_000
	stats.Duration = time.Since(startTime)

	r.metrics.RecordRun(stats)
	return stats, nil
}

package watchdog

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/logger"
	"github.com/openso2/camctl/internal/specs"
)

const (
	DefaultSettleTime  = 150 * time.Second
	DefaultRecheckTime = 30 * time.Second

	// How often the watchdog re-runs its check while inside the window.
	superviseInterval = 30 * time.Minute

	// How long to wait between window polls while acquisition is off.
	idlePoll = time.Minute
)

// Config configures the acquisition watchdog.
type Config struct {
	ImageDir       string
	StartScript    string
	StopScript     string
	SettleTime     time.Duration
	RecheckTime    time.Duration
	RestartCommand string
	ErrorLog       string
}

// RunCommand executes a shell command. It exists as an indirection so tests
// can observe restarts without touching the instrument.
type RunCommand func(ctx context.Context, command string) error

// Watchdog verifies that new files for every data product keep appearing in
// the image directory while the schedule says the instrument is acquiring.
// A failed check triggers a restart of the acquisition, a recheck, a second
// restart, and finally an entry in the instrument error log.
type Watchdog struct {
	cfg        Config
	classifier *Classifier
	run        RunCommand
	logger     *logger.Logger
	metrics    *Metrics
	nowFn      func() time.Time
}

// New builds a watchdog from config and the instrument specs.
func New(cfg Config, cam *specs.CameraSpecs, spec *specs.SpecSpecs, log *logger.Logger) (*Watchdog, error) {
	if cfg.ImageDir == "" {
		return nil, fmt.Errorf("image directory is required")
	}
	if cfg.SettleTime <= 0 {
		cfg.SettleTime = DefaultSettleTime
	}
	if cfg.RecheckTime <= 0 {
		cfg.RecheckTime = DefaultRecheckTime
	}

	classifier, err := NewClassifier(cam, spec)
	if err != nil {
		return nil, err
	}

	return &Watchdog{
		cfg:        cfg,
		classifier: classifier,
		run:        runShell,
		logger:     log,
		nowFn:      time.Now,
	}, nil
}

// SetMetrics attaches prometheus instrumentation.
func (w *Watchdog) SetMetrics(m *Metrics) { w.metrics = m }

// SetRunCommand replaces the command runner.
func (w *Watchdog) SetRunCommand(run RunCommand) { w.run = run }

func runShell(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Check takes a snapshot of the image directory, waits for the settle time
// and reports which data products produced new files in that period.
func (w *Watchdog) Check(ctx context.Context, settle time.Duration) (map[Product]bool, error) {
	before, err := listFiles(w.cfg.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list image directory: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(settle):
	}

	after, err := listFiles(w.cfg.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list image directory: %w", err)
	}

	fresh := make([]string, 0, len(after))
	for name := range after {
		if !before[name] {
			fresh = append(fresh, name)
		}
	}

	seen := w.classifier.Classify(fresh)
	w.metrics.SetAcquiring(seen)
	return seen, nil
}

func listFiles(dir string) (map[string]bool, error) {
	names := make(map[string]bool)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names[d.Name()] = true
		}
		return nil
	})
	return names, err
}

func missing(seen map[Product]bool) []Product {
	var out []Product
	for _, product := range Products {
		if !seen[product] {
			out = append(out, product)
		}
	}
	return out
}

// Verify runs a full check cycle: settle-check, restart on failure, recheck,
// second restart, and an error log entry if the instrument still produces no
// data. It returns the products that remained missing after the cycle.
func (w *Watchdog) Verify(ctx context.Context) ([]Product, error) {
	seen, err := w.Check(ctx, w.cfg.SettleTime)
	if err != nil {
		return nil, err
	}
	if gone := missing(seen); len(gone) > 0 {
		w.logger.Warn("data products missing, restarting acquisition",
			logger.Field{Key: "missing", Value: productNames(gone)})
		if err := w.restart(ctx); err != nil {
			return gone, err
		}

		seen, err = w.Check(ctx, w.cfg.RecheckTime)
		if err != nil {
			return nil, err
		}
		if gone = missing(seen); len(gone) > 0 {
			w.logger.Error("still no data after restart, restarting again", nil,
				logger.Field{Key: "missing", Value: productNames(gone)})
			if err := w.restart(ctx); err != nil {
				return gone, err
			}
			w.appendErrorLog(fmt.Sprintf("No new data (%s) during acquisition period, instrument restarted",
				strings.Join(productNames(gone), ", ")))
			return gone, nil
		}
	}
	return nil, nil
}

func (w *Watchdog) restart(ctx context.Context) error {
	if w.cfg.RestartCommand == "" {
		return fmt.Errorf("no restart command configured")
	}
	w.metrics.IncRestarts()
	if err := w.run(ctx, w.cfg.RestartCommand); err != nil {
		return fmt.Errorf("restart command failed: %w", err)
	}
	return nil
}

func (w *Watchdog) appendErrorLog(msg string) {
	if w.cfg.ErrorLog == "" {
		return
	}
	f, err := os.OpenFile(w.cfg.ErrorLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		w.logger.Error("failed to open error log", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", w.nowFn().Format("2006-01-02 15:04:05"), msg)
}

func productNames(products []Product) []string {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = string(p)
	}
	return names
}

// Supervise runs the watchdog loop until the context is cancelled. Outside
// the acquisition window it polls the schedule once a minute; inside the
// window it verifies the data products on each interval.
func (w *Watchdog) Supervise(ctx context.Context, schedule *crontab.File) error {
	for {
		now := w.nowFn()
		window, err := WindowFromSchedule(schedule, w.cfg.StartScript, w.cfg.StopScript, now)
		if err != nil {
			return err
		}

		wait := idlePoll
		if window.Contains(now) {
			if gone, err := w.Verify(ctx); err != nil {
				w.logger.Error("watchdog check failed", err)
			} else if len(gone) > 0 {
				w.logger.Error("acquisition unhealthy", nil,
					logger.Field{Key: "missing", Value: productNames(gone)})
			} else {
				w.logger.Debug("all data products present")
			}
			wait = superviseInterval
		} else {
			w.logger.Debug("outside acquisition window",
				logger.Field{Key: "opens_in", Value: window.Until(now).Round(time.Second).String()})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

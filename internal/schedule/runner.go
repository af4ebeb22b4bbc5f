// Package schedule runs a crontab schedule file: every enabled entry is
// registered with a robfig/cron instance and its command string is executed
// through the worker pool when the schedule fires, with the crontab's PATH
// assignment injected into the child environment. This replaces the system
// cron daemon on deployments where the instrument supervisor owns the
// schedule itself.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/logger"
	"github.com/openso2/camctl/internal/workers"
)

// Submitter is the worker pool surface the runner needs.
type Submitter interface {
	Submit(task workers.Task)
	Results() <-chan workers.Result
}

// EntryStatus reports one schedule entry for listing and export.
type EntryStatus struct {
	Command  string    `json:"command" yaml:"command"`
	Spec     string    `json:"schedule" yaml:"schedule"`
	Disabled bool      `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Next     time.Time `json:"next,omitempty" yaml:"next,omitempty"`
	Prev     time.Time `json:"prev,omitempty" yaml:"prev,omitempty"`
}

// Runner schedules and executes crontab entries.
type Runner struct {
	cron    *cron.Cron
	pool    Submitter
	logger  *logger.Logger
	metrics *Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.RWMutex

	entryIDs []cron.EntryID
	entries  []crontab.Entry
	path     string
}

// NewRunner creates a schedule runner. loc may be nil for the local timezone
// and metrics may be nil to disable instrumentation.
func NewRunner(pool Submitter, log *logger.Logger, metrics *Metrics, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		cron:    cron.New(cron.WithLocation(loc)),
		pool:    pool,
		logger:  log,
		metrics: metrics,
		path:    crontab.DefaultPath,
	}
}

// Load registers every enabled entry of the schedule file. Returns an error
// when any enabled entry fails cron parsing; entries registered before the
// failure stay registered.
func (r *Runner) Load(file *crontab.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.loadLocked(file)
}

func (r *Runner) loadLocked(file *crontab.File) error {
	r.path = file.Path()
	r.entries = append([]crontab.Entry(nil), file.Entries...)

	registered := 0
	for _, entry := range file.Entries {
		if entry.Disabled {
			continue
		}

		entry := entry
		id, err := r.cron.AddFunc(entry.Spec(), func() {
			r.runEntry(entry)
		})
		if err != nil {
			return fmt.Errorf("failed to register %q (%s): %w", entry.Command, entry.Spec(), err)
		}
		r.entryIDs = append(r.entryIDs, id)
		registered++
	}

	r.metrics.SetEntries(registered)
	r.logger.Info("schedule loaded",
		logger.Field{Key: "entries", Value: registered},
		logger.Field{Key: "disabled", Value: len(file.Entries) - registered})
	return nil
}

// Reload replaces all registered entries with the given schedule file.
func (r *Runner) Reload(file *crontab.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.entryIDs {
		r.cron.Remove(id)
	}
	r.entryIDs = nil

	return r.loadLocked(file)
}

// Start starts the cron loop and the result drain.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("schedule runner already started")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.started = true

	r.cron.Start()
	go r.drainResults()
	go func() {
		<-r.ctx.Done()
		r.cron.Stop()
	}()

	r.logger.Info("schedule runner started")
	return nil
}

// Stop stops the cron loop and waits for jobs that already fired to return,
// so nothing submits to the worker pool after Stop.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("schedule runner not started")
	}

	r.cancel()
	<-r.cron.Stop().Done()
	r.started = false
	r.logger.Info("schedule runner stopped")
	return nil
}

// runEntry submits one entry's command to the worker pool.
func (r *Runner) runEntry(entry crontab.Entry) {
	taskID := "sched_" + uuid.NewString()

	r.pool.Submit(workers.Task{
		ID:      taskID,
		Command: entry.Command,
		Env:     []string{"PATH=" + r.path},
		Context: r.ctx,
	})

	r.logger.Info("scheduled command submitted",
		logger.Field{Key: "task_id", Value: taskID},
		logger.Field{Key: "command", Value: entry.Command})
}

// drainResults consumes pool results to log and record outcomes.
func (r *Runner) drainResults() {
	for {
		select {
		case result, ok := <-r.pool.Results():
			if !ok {
				return
			}
			r.metrics.RecordRun(result.Command, result.Err != nil, result.Duration)
			if result.Err != nil {
				r.logger.Error("scheduled command failed", result.Err,
					logger.Field{Key: "task_id", Value: result.TaskID},
					logger.Field{Key: "command", Value: result.Command},
					logger.Field{Key: "output", Value: result.Output})
			}
		case <-r.ctx.Done():
			return
		}
	}
}

// Entries reports the status of all loaded entries, including disabled ones.
// Next and Prev activation times come from the running cron instance.
func (r *Runner) Entries() []EntryStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]EntryStatus, 0, len(r.entries))
	idx := 0
	for _, entry := range r.entries {
		status := EntryStatus{
			Command:  entry.Command,
			Spec:     entry.Spec(),
			Disabled: entry.Disabled,
		}
		if !entry.Disabled && idx < len(r.entryIDs) {
			cronEntry := r.cron.Entry(r.entryIDs[idx])
			status.Next = cronEntry.Next
			status.Prev = cronEntry.Prev
			idx++
		}
		statuses = append(statuses, status)
	}

	return statuses
}

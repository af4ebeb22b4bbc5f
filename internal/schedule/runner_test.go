package schedule

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/logger"
	"github.com/openso2/camctl/internal/workers"
)

// fakePool records submitted tasks instead of executing them.
type fakePool struct {
	tasks   []workers.Task
	results chan workers.Result
}

func newFakePool() *fakePool {
	return &fakePool{results: make(chan workers.Result, 8)}
}

func (f *fakePool) Submit(task workers.Task)       { f.tasks = append(f.tasks, task) }
func (f *fakePool) Results() <-chan workers.Result { return f.results }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func parseSchedule(t *testing.T, content string) *crontab.File {
	t.Helper()
	f, err := crontab.Parse(strings.NewReader(content))
	require.NoError(t, err)
	return f
}

func TestRunner_LoadRegistersEnabledEntries(t *testing.T) {
	f := parseSchedule(t, `PATH=/usr/bin
0 10 * * * start_instrument
30 16 * * * stop_instrument
# */10 * * * * log_temperature
`)

	runner := NewRunner(newFakePool(), testLogger(t), nil, time.UTC)

	require.NoError(t, runner.Load(f))

	statuses := runner.Entries()
	require.Len(t, statuses, 3)
	assert.Equal(t, "start_instrument", statuses[0].Command)
	assert.False(t, statuses[0].Disabled)
	assert.True(t, statuses[2].Disabled)
}

func TestRunner_LoadRejectsBadSpec(t *testing.T) {
	f := crontab.New()
	require.NoError(t, f.SetSpec("ok_command", "0 10 * * *"))
	f.Entries[0].Minute = "99"

	runner := NewRunner(newFakePool(), testLogger(t), nil, time.UTC)

	err := runner.Load(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ok_command")
}

func TestRunner_EntriesHaveNextAfterStart(t *testing.T) {
	f := parseSchedule(t, "0 10 * * * start_instrument\n")

	runner := NewRunner(newFakePool(), testLogger(t), nil, time.UTC)
	require.NoError(t, runner.Load(f))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, runner.Start(ctx))
	defer runner.Stop()

	statuses := runner.Entries()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Next.IsZero())
	assert.Equal(t, 10, statuses[0].Next.Hour())
}

func TestRunner_StartTwice(t *testing.T) {
	runner := NewRunner(newFakePool(), testLogger(t), nil, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, runner.Start(ctx))
	defer runner.Stop()

	assert.Error(t, runner.Start(ctx))
}

func TestRunner_StopAfterStart(t *testing.T) {
	runner := NewRunner(newFakePool(), testLogger(t), nil, time.UTC)
	require.NoError(t, runner.Load(parseSchedule(t, "0 10 * * * start_instrument\n")))

	require.NoError(t, runner.Start(context.Background()))

	done := make(chan error, 1)
	go func() { done <- runner.Stop() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.Error(t, runner.Stop())
}

func TestRunner_StopBeforeStart(t *testing.T) {
	runner := NewRunner(newFakePool(), testLogger(t), nil, time.UTC)

	assert.Error(t, runner.Stop())
}

func TestRunner_Reload(t *testing.T) {
	runner := NewRunner(newFakePool(), testLogger(t), nil, time.UTC)

	require.NoError(t, runner.Load(parseSchedule(t, "0 10 * * * start_instrument\n")))
	require.NoError(t, runner.Reload(parseSchedule(t, "0 9 * * * start_instrument\n15 3 * * * sync_time\n")))

	statuses := runner.Entries()
	require.Len(t, statuses, 2)
	assert.Equal(t, "0 9 * * *", statuses[0].Spec)
	assert.Equal(t, "sync_time", statuses[1].Command)
}

func TestRunner_RunEntrySubmitsTask(t *testing.T) {
	pool := newFakePool()
	f := parseSchedule(t, "PATH=/opt/instrument/bin\n0 10 * * * start_instrument --now\n")

	runner := NewRunner(pool, testLogger(t), nil, time.UTC)
	require.NoError(t, runner.Load(f))

	runner.runEntry(f.Entries[0])

	require.Len(t, pool.tasks, 1)
	task := pool.tasks[0]
	assert.Equal(t, "start_instrument --now", task.Command)
	assert.Contains(t, task.Env, "PATH=/opt/instrument/bin")
	assert.True(t, strings.HasPrefix(task.ID, "sched_"))
}

func TestRunner_MetricsRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := InitMetrics("camctl", reg)

	metrics.SetEntries(3)
	metrics.RecordRun("start_instrument", false, 2*time.Second)
	metrics.RecordRun("start_instrument", true, time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, len(families))
	for i, mf := range families {
		names[i] = mf.GetName()
	}
	assert.Contains(t, names, "camctl_schedule_entries_registered")
	assert.Contains(t, names, "camctl_schedule_runs_total")
	assert.Contains(t, names, "camctl_schedule_run_duration_seconds")
}

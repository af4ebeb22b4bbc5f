// Package workers provides an async worker pool for running scheduled shell
// commands. Results are delivered on a channel for asynchronous monitoring.
package workers

import (
	"context"
	"time"
)

// Task represents a command to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Command string          // Shell command string, run via 'sh -c'
	Dir     string          // Working directory, empty for the process default
	Env     []string        // Extra environment entries, "KEY=VALUE"
	Timeout time.Duration   // Per-task timeout, 0 for the pool default
	Context context.Context // Task-specific context for cancellation
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string        // ID of the executed task
	Command  string        // Command that was run
	Output   string        // Combined stdout and stderr
	Err      error         // Error if execution failed
	Duration time.Duration // Execution duration
}

// PoolMetrics tracks execution counters for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}

// Constants for worker pool configuration
const (
	DefaultTaskTimeout = 5 * time.Minute
	DefaultPoolSize    = 2
	DefaultQueueSize   = 16
)

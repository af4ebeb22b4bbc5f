package workers

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/openso2/camctl/internal/logger"
)

// worker consumes tasks from the queue until the pool is stopped, then
// drains whatever was queued before shutdown.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With(logger.Field{Key: "worker", Value: id})
	log.Debug("worker started")

	for {
		select {
		case task := <-p.taskQueue:
			p.runTask(log, task)
		case <-p.ctx.Done():
			for {
				select {
				case task := <-p.taskQueue:
					p.runTask(log, task)
				default:
					log.Debug("worker stopped")
					return
				}
			}
		}
	}
}

// runTask executes one task and records its outcome.
func (p *Pool) runTask(log *logger.Logger, task Task) {
	result := p.execute(task)

	if result.Err != nil {
		p.incrementFailed()
		log.Error("task failed", result.Err,
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "command", Value: task.Command},
			logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()})
	} else {
		p.incrementCompleted()
		log.Debug("task completed",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()})
	}
	p.recordDuration(result.Duration)

	// Drop the result when nobody is draining the channel.
	select {
	case p.resultCh <- result:
	default:
	}
}

// execute runs a single task through the shell with a timeout.
func (p *Pool) execute(task Task) Result {
	base := task.Context
	if base == nil {
		base = context.Background()
	}

	timeout := task.Timeout
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}

	ctx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", task.Command)
	cmd.Dir = task.Dir
	if len(task.Env) > 0 {
		cmd.Env = append(os.Environ(), task.Env...)
	}

	start := time.Now()
	output, err := cmd.CombinedOutput()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		err = ctx.Err()
	}

	return Result{
		TaskID:   task.ID,
		Command:  task.Command,
		Output:   string(output),
		Err:      err,
		Duration: duration,
	}
}

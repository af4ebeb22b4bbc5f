package workers

import (
	"time"
)

// Metrics returns a snapshot of the pool counters.
func (p *Pool) Metrics() PoolMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

// incrementSubmitted increments the submitted task counter.
func (p *Pool) incrementSubmitted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.TasksSubmitted++
}

// incrementCompleted increments the completed task counter.
func (p *Pool) incrementCompleted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.TasksCompleted++
}

// incrementFailed increments the failed task counter.
func (p *Pool) incrementFailed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.TasksFailed++
}

// recordDuration adds a task execution duration to the total.
func (p *Pool) recordDuration(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.TotalDuration += d
}

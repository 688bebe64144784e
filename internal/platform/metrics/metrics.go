package metrics

import (
	"sync/atomic"
	"time"
)

// Collector tracks HTTP and payroll processing counters. Cheap enough to
// record on every request; exposed as a JSON snapshot on /metrics.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	runsCompleted     uint64
	runsFailed        uint64
	employeesComputed uint64
	payrollDurationMs uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordRun tracks a finished payroll run.
func (c *Collector) RecordRun(failed bool, employees int, duration time.Duration) {
	if failed {
		atomic.AddUint64(&c.runsFailed, 1)
	} else {
		atomic.AddUint64(&c.runsCompleted, 1)
	}
	atomic.AddUint64(&c.employeesComputed, uint64(employees))
	atomic.AddUint64(&c.payrollDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":     total,
		"errorsTotal":       errs,
		"rateLimitedTotal":  limited,
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"runsCompleted":     atomic.LoadUint64(&c.runsCompleted),
		"runsFailed":        atomic.LoadUint64(&c.runsFailed),
		"employeesComputed": atomic.LoadUint64(&c.employeesComputed),
		"payrollDurationMs": atomic.LoadUint64(&c.payrollDurationMs),
	}
}

package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps in-process scheduler counters for the health snapshot.
// Prometheus metrics are registered separately in this package; the collector
// backs the JSON health endpoint without touching the registry.
type Collector struct {
	pollsTotal      atomic.Int64
	dispatchedTotal atomic.Int64
	completedTotal  atomic.Int64
	failedTotal     atomic.Int64
	skippedTotal    atomic.Int64
	recoveredTotal  atomic.Int64

	activeWorkers atomic.Int64

	lastPollAt       atomic.Value // time.Time
	lastPollDuration atomic.Int64 // milliseconds

	running   atomic.Bool
	startedAt time.Time
}

func NewCollector() *Collector {
	c := &Collector{startedAt: time.Now()}
	c.lastPollAt.Store(time.Time{})
	return c
}

func (c *Collector) IncPolls()               { c.pollsTotal.Add(1) }
func (c *Collector) IncDispatched()          { c.dispatchedTotal.Add(1) }
func (c *Collector) IncCompleted()           { c.completedTotal.Add(1) }
func (c *Collector) IncFailed()              { c.failedTotal.Add(1) }
func (c *Collector) IncSkipped()             { c.skippedTotal.Add(1) }
func (c *Collector) IncRecovered(n int64)    { c.recoveredTotal.Add(n) }
func (c *Collector) SetRunning(running bool) { c.running.Store(running) }

func (c *Collector) WorkerStarted()  { c.activeWorkers.Add(1) }
func (c *Collector) WorkerFinished() { c.activeWorkers.Add(-1) }

func (c *Collector) ActiveWorkers() int64 { return c.activeWorkers.Load() }
func (c *Collector) IsRunning() bool      { return c.running.Load() }

func (c *Collector) RecordPoll(start time.Time) {
	c.lastPollAt.Store(time.Now())
	c.lastPollDuration.Store(time.Since(start).Milliseconds())
}

type Snapshot struct {
	PollsTotal       int64         `json:"polls_total"`
	DispatchedTotal  int64         `json:"dispatched_total"`
	CompletedTotal   int64         `json:"completed_total"`
	FailedTotal      int64         `json:"failed_total"`
	SkippedTotal     int64         `json:"skipped_total"`
	RecoveredTotal   int64         `json:"recovered_total"`
	ActiveWorkers    int64         `json:"active_workers"`
	LastPollAt       time.Time     `json:"last_poll_at"`
	LastPollDuration int64         `json:"last_poll_duration_ms"`
	IsRunning        bool          `json:"is_running"`
	Uptime           time.Duration `json:"uptime"`
}

func (c *Collector) Snapshot() *Snapshot {
	lastPoll, _ := c.lastPollAt.Load().(time.Time)
	return &Snapshot{
		PollsTotal:       c.pollsTotal.Load(),
		DispatchedTotal:  c.dispatchedTotal.Load(),
		CompletedTotal:   c.completedTotal.Load(),
		FailedTotal:      c.failedTotal.Load(),
		SkippedTotal:     c.skippedTotal.Load(),
		RecoveredTotal:   c.recoveredTotal.Load(),
		ActiveWorkers:    c.activeWorkers.Load(),
		LastPollAt:       lastPoll,
		LastPollDuration: c.lastPollDuration.Load(),
		IsRunning:        c.running.Load(),
		Uptime:           time.Since(c.startedAt),
	}
}

// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpEmbed    = "embed"
	OpGenerate = "generate"
	OpSearch   = "search"
	OpUpsert   = "upsert"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Token totals, only populated for LLM generation.
	InputTokens  int64
	OutputTokens int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count        int64
	TotalTimeMs  int64
	AvgTimeMs    float64
	MinTimeMs    int64
	MaxTimeMs    int64
	InputTokens  int64
	OutputTokens int64
}

// Snapshot is the full set of statistics at a point in time, keyed by
// operation name. Operations that never ran are absent.
type Snapshot struct {
	UptimeSeconds float64
	Operations    map[string]OperationSnapshot
}

// Collector aggregates in-memory runtime statistics.
// All methods are safe for concurrent use.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an
// operation. Caller must hold the write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records one run of an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordTokens adds token usage to an operation's totals.
func (c *Collector) RecordTokens(op string, input, output int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.InputTokens += input
	m.OutputTokens += output
}

// Snapshot returns a point-in-time snapshot of all recorded operations.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Operations:    make(map[string]OperationSnapshot, len(c.ops)),
	}
	for op, m := range c.ops {
		if m.Count == 0 {
			continue
		}
		snap.Operations[op] = OperationSnapshot{
			Count:        m.Count,
			TotalTimeMs:  m.TotalTime.Milliseconds(),
			AvgTimeMs:    float64(m.TotalTime.Milliseconds()) / float64(m.Count),
			MinTimeMs:    m.MinTime.Milliseconds(),
			MaxTimeMs:    m.MaxTime.Milliseconds(),
			InputTokens:  m.InputTokens,
			OutputTokens: m.OutputTokens,
		}
	}
	return snap
}

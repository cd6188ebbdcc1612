package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	pollsTotal    atomic.Uint64
	pollFailures  atomic.Uint64
	queriesIssued atomic.Uint64
	queriesFailed atomic.Uint64
	recordsMerged atomic.Uint64

	// Poll duration tracking
	pollDurSumNs atomic.Int64
	pollDurCount atomic.Uint64

	// Gauges
	poolSize  atomic.Int64
	wsClients atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordPoll records a completed poll cycle with its duration.
func (m *Metrics) RecordPoll(d time.Duration) {
	m.pollsTotal.Add(1)
	m.pollDurSumNs.Add(int64(d))
	m.pollDurCount.Add(1)
}

// RecordPollFailure records a poll that surfaced an error.
func (m *Metrics) RecordPollFailure() {
	m.pollFailures.Add(1)
}

// RecordQueries records one fan-out: how many queries ran, how many failed.
func (m *Metrics) RecordQueries(issued, failed int) {
	m.queriesIssued.Add(uint64(issued))
	m.queriesFailed.Add(uint64(failed))
}

// RecordMerged records how many records a merge batch carried.
func (m *Metrics) RecordMerged(n int) {
	m.recordsMerged.Add(uint64(n))
}

// SetPoolSize sets the current pool size gauge.
func (m *Metrics) SetPoolSize(n int) {
	m.poolSize.Store(int64(n))
}

// IncrementClients increments connected WebSocket clients by 1.
func (m *Metrics) IncrementClients() {
	m.wsClients.Add(1)
}

// DecrementClients decrements connected WebSocket clients by 1.
func (m *Metrics) DecrementClients() {
	m.wsClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	PollsTotal    uint64
	PollFailures  uint64
	QueriesIssued uint64
	QueriesFailed uint64
	RecordsMerged uint64
	AvgPollNs     int64
	PoolSize      int64
	WSClients     int32
	Timestamp     time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avg int64
	count := m.pollDurCount.Load()
	if count > 0 {
		avg = m.pollDurSumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		PollsTotal:    m.pollsTotal.Load(),
		PollFailures:  m.pollFailures.Load(),
		QueriesIssued: m.queriesIssued.Load(),
		QueriesFailed: m.queriesFailed.Load(),
		RecordsMerged: m.recordsMerged.Load(),
		AvgPollNs:     avg,
		PoolSize:      m.poolSize.Load(),
		WSClients:     m.wsClients.Load(),
		Timestamp:     time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.pollsTotal.Store(0)
	m.pollFailures.Store(0)
	m.queriesIssued.Store(0)
	m.queriesFailed.Store(0)
	m.recordsMerged.Store(0)
	m.pollDurSumNs.Store(0)
	m.pollDurCount.Store(0)
	m.poolSize.Store(0)
	m.wsClients.Store(0)
}

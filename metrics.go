package qec

import (
	"sort"
	"sync"
	"time"
)

/*
Metrics collects call counts and latency percentiles. The pool records one
call per executed job and a GuardedOracle records one per oracle execution.
*/
type Metrics struct {
	mu           sync.RWMutex
	WorkerCount  int
	IdleWorkers  int
	JobQueueSize int
	TotalTime    time.Duration
	CallCount    int64
	FailureCount int64

	AverageLatency time.Duration
	P95Latency     time.Duration
	P99Latency     time.Duration
	SuccessRate    float64

	SchedulingFailures int64
	Rejections         int64

	latencyWindow []time.Duration
	windowSize    int
}

func NewMetrics() *Metrics {
	return &Metrics{
		latencyWindow: make([]time.Duration, 0, 1000), // Store last 1000 measurements
		windowSize:    1000,
	}
}

func (m *Metrics) recordCall(startTime time.Time, success bool) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalTime += duration
	m.CallCount++
	if !success {
		m.FailureCount++
	}
	m.SuccessRate = float64(m.CallCount-m.FailureCount) / float64(m.CallCount)

	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) recordRejection() {
	m.mu.Lock()
	m.Rejections++
	m.mu.Unlock()
}

func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.AverageLatency = m.TotalTime / time.Duration(m.CallCount)

	m.latencyWindow = append(m.latencyWindow, duration)
	if len(m.latencyWindow) > m.windowSize {
		m.latencyWindow = m.latencyWindow[1:]
	}

	sorted := make([]time.Duration, len(m.latencyWindow))
	copy(sorted, m.latencyWindow)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	if len(sorted) > 0 {
		p95Index := int(float64(len(sorted)) * 0.95)
		p99Index := int(float64(len(sorted)) * 0.99)

		if p95Index >= len(sorted) {
			p95Index = len(sorted) - 1
		}
		if p99Index >= len(sorted) {
			p99Index = len(sorted) - 1
		}

		m.P95Latency = sorted[p95Index]
		m.P99Latency = sorted[p99Index]
	}
}

// ExportMetrics returns a snapshot suitable for structured logging.
func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"worker_count":        m.WorkerCount,
		"queue_size":          m.JobQueueSize,
		"calls":               m.CallCount,
		"failures":            m.FailureCount,
		"rejections":          m.Rejections,
		"scheduling_failures": m.SchedulingFailures,
		"success_rate":        m.SuccessRate,
		"avg_latency_us":      m.AverageLatency.Microseconds(),
		"p95_latency_us":      m.P95Latency.Microseconds(),
		"p99_latency_us":      m.P99Latency.Microseconds(),
	}
}

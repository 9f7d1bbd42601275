package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects and aggregates counters for resolve calls.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	resultTotal   atomic.Int64

	// Per-locale metrics
	localeMetrics map[string]*LocaleMetrics

	// Recent durations (bounded FIFO)
	durations    []time.Duration
	maxDurations int
}

// LocaleMetrics represents metrics for a single locale table.
type LocaleMetrics struct {
	requestCount  atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		localeMetrics: make(map[string]*LocaleMetrics),
		durations:     make([]time.Duration, 0, maxDurations),
		maxDurations:  maxDurations,
	}
}

// RecordRequest records a resolve call for locale.
func (m *Metrics) RecordRequest(locale string) {
	m.requestTotal.Add(1)
	m.get(locale).requestCount.Add(1)
}

// RecordFailure records a resolve call that returned an error.
func (m *Metrics) RecordFailure(locale string) {
	m.requestFailed.Add(1)
	m.get(locale).errorCount.Add(1)
}

// RecordResults adds n to the number of results returned.
func (m *Metrics) RecordResults(n int) {
	m.resultTotal.Add(int64(n))
}

// RecordDuration records a resolve call duration.
func (m *Metrics) RecordDuration(locale string, duration time.Duration) {
	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()

	m.get(locale).totalDuration.Add(duration.Milliseconds())
}

func (m *Metrics) get(locale string) *LocaleMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	lm, ok := m.localeMetrics[locale]
	if !ok {
		lm = &LocaleMetrics{}
		m.localeMetrics[locale] = lm
	}
	return lm
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.resultTotal.Store(0)

	m.mu.Lock()
	m.localeMetrics = make(map[string]*LocaleMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	locales := make(map[string]*LocaleMetricsSnapshot, len(m.localeMetrics))
	for name, lm := range m.localeMetrics {
		count := lm.requestCount.Load()
		total := lm.totalDuration.Load()
		var avg int64
		if count > 0 {
			avg = total / count
		}
		locales[name] = &LocaleMetricsSnapshot{
			RequestCount:    count,
			TotalDuration:   total,
			ErrorCount:      lm.errorCount.Load(),
			AverageDuration: avg,
		}
	}

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		ResultTotal:   m.resultTotal.Load(),
		Locales:       locales,
		P50LatencyMs:  percentile(m.durations, 50),
		P95LatencyMs:  percentile(m.durations, 95),
	}
}

func percentile(durations []time.Duration, p int) int64 {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx].Milliseconds()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64                             `json:"request_total"`
	RequestFailed int64                             `json:"request_failed"`
	ResultTotal   int64                             `json:"result_total"`
	Locales       map[string]*LocaleMetricsSnapshot `json:"locales"`
	P50LatencyMs  int64                             `json:"p50_latency_ms"`
	P95LatencyMs  int64                             `json:"p95_latency_ms"`
}

// LocaleMetricsSnapshot represents metrics for a single locale.
type LocaleMetricsSnapshot struct {
	RequestCount    int64 `json:"request_count"`
	TotalDuration   int64 `json:"total_duration_ms"`
	ErrorCount      int64 `json:"error_count"`
	AverageDuration int64 `json:"average_duration_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}

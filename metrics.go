package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID names one engine counter or latency histogram.
type MetricID uint16

// Counters come first; every ID from firstHistogram on is a histogram.
const (
	// MetricLoginSuccess counts completed logins.
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRefreshSuccess
	// MetricRefreshFailure counts every rejected refresh, reuse included.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts superseded refresh tokens presented again.
	MetricRefreshReuseDetected
	MetricReplayDetected
	MetricRefreshRateLimited
	MetricSessionCreated
	// MetricSessionInvalidated counts refresh sessions cleared by logout, disconnect or reuse.
	MetricSessionInvalidated
	MetricLogout
	MetricDisconnect
	// MetricUpstreamRevocationFailure counts best-effort revocation calls that failed.
	MetricUpstreamRevocationFailure
	MetricScopesMissing
	MetricValidateSuccess
	MetricValidateFailure
	// MetricDecryptFailure counts stored credentials that failed authentication on decrypt.
	MetricDecryptFailure
	MetricProviderTokenRefreshed
	MetricProviderTokenRefreshFailure

	// MetricValidateLatency times stateless access token validation.
	MetricValidateLatency
	// MetricRefreshLatency times a full refresh, store round trips included.
	MetricRefreshLatency
	metricIDCount
)

const (
	firstHistogram = MetricValidateLatency
	histogramCount = int(metricIDCount - firstHistogram)
	cacheLineSize  = 64
)

// latencyBounds are the inclusive upper bounds of every bucket but the last.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

type latencyHistogram [histBucketCount]atomic.Uint64

// paddedCounter keeps hot counters on separate cache lines.
type paddedCounter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters and latency histograms.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [firstHistogram]paddedCounter
	histograms    [histogramCount]latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of the engine counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a counter set. Latency histograms require both flags.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// IsHistogram reports whether id names a latency histogram.
func (id MetricID) IsHistogram() bool {
	return id >= firstHistogram && id < metricIDCount
}

// Inc adds one to a counter. Histogram IDs are ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= firstHistogram {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d in id's histogram. Counter IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !id.IsHistogram() {
		return
	}
	m.histograms[id-firstHistogram][bucketIndex(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= firstHistogram {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter and, when latency is on, every histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < firstHistogram; id++ {
		s.Counters[id] = m.counters[id].Load()
	}
	if !m.enableLatency {
		return s
	}
	for i := range m.histograms {
		buckets := make([]uint64, histBucketCount)
		for b := range buckets {
			buckets[b] = m.histograms[i][b].Load()
		}
		s.Histograms[firstHistogram+MetricID(i)] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}

package goSession

import (
	"testing"
	"time"
)

// refreshPathMetrics is what one successful refresh records.
var refreshPathMetrics = [...]MetricID{
	MetricRefreshSuccess,
	MetricSessionCreated,
}

// gatewayPathMetrics is what a burst of protected requests records.
var gatewayPathMetrics = [...]MetricID{
	MetricValidateSuccess,
	MetricValidateSuccess,
	MetricValidateSuccess,
	MetricValidateFailure,
}

func BenchmarkMetricsGatewayRequest(b *testing.B) {
	for _, latency := range []bool{false, true} {
		name := "counters"
		if latency {
			name = "counters+latency"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: latency})
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					m.Inc(gatewayPathMetrics[i%len(gatewayPathMetrics)])
					m.Observe(MetricValidateLatency, 80*time.Microsecond)
					i++
				}
			})
		})
	}
}

func BenchmarkMetricsRefreshRequest(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for _, id := range refreshPathMetrics {
				m.Inc(id)
			}
			m.Observe(MetricRefreshLatency, 3*time.Millisecond)
		}
	})
}

func BenchmarkMetricsDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.Inc(MetricRefreshSuccess)
		m.Observe(MetricRefreshLatency, time.Millisecond)
	}
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for id := MetricID(0); id < metricIDCount; id++ {
		if id.IsHistogram() {
			m.Observe(id, time.Duration(id)*time.Millisecond)
			continue
		}
		m.Inc(id)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}

package consoleauth

import (
	"context"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	for _, bc := range []struct {
		name    string
		enabled bool
	}{
		{"enabled", true},
		{"disabled", false},
	} {
		b.Run(bc.name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: bc.enabled})
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					m.Inc(MetricRequestSuccess)
				}
			})
		})
	}
}

// Request paths touch these counters together on every call.
var requestPathMetricIDs = [...]MetricID{
	MetricRequestSuccess,
	MetricUnauthorized,
	MetricReplay,
	MetricRefreshShared,
}

func BenchmarkMetricsRequestPathMix(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Inc(requestPathMetricIDs[i%len(requestPathMetricIDs)])
			m.Observe(MetricRequestLatency, time.Duration(i%64)*time.Millisecond)
			i++
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, id := range requestPathMetricIDs {
		m.Inc(id)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}

func BenchmarkClientDoAuthorized(b *testing.B) {
	backend := newTestBackend(b, "T1")
	c := newTestClient(b, backend, nil)
	c.SetToken("T1")
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := c.Get(ctx, "/getInfo", nil); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

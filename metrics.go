package consoleauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one client counter.
type MetricID uint16

const (
	// MetricRequestSuccess counts Do calls that returned a response.
	MetricRequestSuccess MetricID = iota
	// MetricRequestFailure counts Do calls that returned an error.
	MetricRequestFailure
	// MetricTransportError counts sends that produced no HTTP response.
	MetricTransportError
	// MetricUnauthorized counts 401 responses to first attempts.
	MetricUnauthorized
	// MetricReplay counts requests re-issued after a refresh.
	MetricReplay
	// MetricReplayUnauthorized counts replays rejected with 401.
	MetricReplayUnauthorized
	// MetricRefreshSuccess counts refresh operations that produced a token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh operations that produced nothing.
	MetricRefreshFailure
	// MetricRefreshShared counts callers that joined an in-flight refresh.
	MetricRefreshShared
	// MetricProactiveRefresh counts refreshes started before a send.
	MetricProactiveRefresh
	// MetricTokenReused counts replays that reused a newer held token.
	MetricTokenReused
	// MetricAuthExpired counts terminal authentication failures.
	MetricAuthExpired
	// MetricLoginSuccess counts accepted logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricLogout counts Logout calls.
	MetricLogout
	// MetricRequestLatency is the histogram of Do latency.
	MetricRequestLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricRequestSuccess:     "request_success",
	MetricRequestFailure:     "request_failure",
	MetricTransportError:     "transport_error",
	MetricUnauthorized:       "unauthorized",
	MetricReplay:             "replay",
	MetricReplayUnauthorized: "replay_unauthorized",
	MetricRefreshSuccess:     "refresh_success",
	MetricRefreshFailure:     "refresh_failure",
	MetricRefreshShared:      "refresh_shared",
	MetricProactiveRefresh:   "proactive_refresh",
	MetricTokenReused:        "token_reused",
	MetricAuthExpired:        "auth_expired",
	MetricLoginSuccess:       "login_success",
	MetricLoginFailure:       "login_failure",
	MetricLogout:             "logout",
	MetricRequestLatency:     "request_latency",
}

// String returns the snake_case metric name.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free client counters.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a Metrics from cfg.
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

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter for id. It is safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

// Bucket upper bounds in milliseconds; the last bucket is unbounded.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}

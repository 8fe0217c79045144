package internaldefs

import (
	"github.com/MrEthical07/consoleauth"
)

// Source is what the exporters read from; *consoleauth.Client satisfies it.
type Source interface {
	MetricsSnapshot() consoleauth.MetricsSnapshot
	AuditDropped() uint64
}

// Kind is the exported metric type.
type Kind uint8

const (
	KindCounter Kind = iota
	KindHistogram
)

// Family describes one exported metric.
type Family struct {
	Name string
	Help string
	Kind Kind
	ID   consoleauth.MetricID
	// Audit marks the audit-drop counter, which is read from AuditDropped
	// rather than the snapshot.
	Audit bool
}

// BucketCount is the number of latency buckets, +Inf included.
const BucketCount = 8

// Bucket is one latency bucket bound in both exported spellings.
type Bucket struct {
	// Le is the Prometheus "le" label value.
	Le string
	// Suffix is appended to OTel gauge names, which cannot carry dots.
	Suffix string
}

// Buckets mirror the client's millisecond bounds, in seconds.
var Buckets = [BucketCount]Bucket{
	{"0.005", "0_005"},
	{"0.01", "0_01"},
	{"0.025", "0_025"},
	{"0.05", "0_05"},
	{"0.1", "0_1"},
	{"0.25", "0_25"},
	{"0.5", "0_5"},
	{"+Inf", "inf"},
}

func counter(id consoleauth.MetricID, name, help string) Family {
	return Family{Name: name, Help: help, Kind: KindCounter, ID: id}
}

// Families lists every exported metric in output order.
var Families = []Family{
	counter(consoleauth.MetricRequestSuccess, "consoleauth_request_success_total", "Requests that returned a response."),
	counter(consoleauth.MetricRequestFailure, "consoleauth_request_failure_total", "Requests that returned an error."),
	counter(consoleauth.MetricTransportError, "consoleauth_transport_error_total", "Sends that produced no HTTP response."),
	counter(consoleauth.MetricUnauthorized, "consoleauth_unauthorized_total", "First attempts answered with 401."),
	counter(consoleauth.MetricReplay, "consoleauth_replay_total", "Requests replayed after a refresh."),
	counter(consoleauth.MetricReplayUnauthorized, "consoleauth_replay_unauthorized_total", "Replays answered with 401."),
	counter(consoleauth.MetricRefreshSuccess, "consoleauth_refresh_success_total", "Refresh operations that produced a token."),
	counter(consoleauth.MetricRefreshFailure, "consoleauth_refresh_failure_total", "Refresh operations that failed."),
	counter(consoleauth.MetricRefreshShared, "consoleauth_refresh_shared_total", "Callers that joined an in-flight refresh."),
	counter(consoleauth.MetricProactiveRefresh, "consoleauth_proactive_refresh_total", "Refreshes started before a send."),
	counter(consoleauth.MetricTokenReused, "consoleauth_token_reused_total", "Replays that reused a newer held token."),
	counter(consoleauth.MetricAuthExpired, "consoleauth_auth_expired_total", "Terminal authentication failures."),
	counter(consoleauth.MetricLoginSuccess, "consoleauth_login_success_total", "Accepted logins."),
	counter(consoleauth.MetricLoginFailure, "consoleauth_login_failure_total", "Rejected or failed logins."),
	counter(consoleauth.MetricLogout, "consoleauth_logout_total", "Logout calls."),
	{
		Name: "consoleauth_request_latency_seconds",
		Help: "Request latency, refresh and replay included.",
		Kind: KindHistogram,
		ID:   consoleauth.MetricRequestLatency,
	},
	{
		Name:  "consoleauth_audit_dropped_total",
		Help:  "Audit events dropped because the dispatcher buffer was full.",
		Kind:  KindCounter,
		Audit: true,
	},
}

// Sample is one family's value at collection time.
type Sample struct {
	Family
	// Value is the counter value, or the histogram sample count.
	Value uint64
	// Cumulative holds running bucket totals for histograms.
	Cumulative [BucketCount]uint64
}

// Collect reads src once and returns a sample per family. It returns nil
// when metrics are disabled and nothing was dropped.
func Collect(src Source) []Sample {
	snap := src.MetricsSnapshot()
	dropped := src.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return nil
	}

	out := make([]Sample, len(Families))
	for i, f := range Families {
		s := Sample{Family: f}
		switch {
		case f.Audit:
			s.Value = dropped
		case f.Kind == KindHistogram:
			s.Cumulative = cumulative(snap.Histograms[f.ID])
			s.Value = s.Cumulative[BucketCount-1]
		default:
			s.Value = snap.Counters[f.ID]
		}
		out[i] = s
	}
	return out
}

// cumulative turns per-bucket counts into running totals. Missing buckets
// count as zero and extra ones are ignored.
func cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}

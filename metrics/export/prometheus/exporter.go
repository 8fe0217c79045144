package prometheus

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/MrEthical07/consoleauth"
	"github.com/MrEthical07/consoleauth/metrics/export/internaldefs"
)

// PrometheusExporter renders client metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source internaldefs.Source
	// labels is the pre-rendered constant label list, without braces.
	labels string
}

// Option configures a PrometheusExporter.
type Option func(*PrometheusExporter)

// WithConstLabels adds labels to every exported sample, e.g. to tell two
// clients in one process apart.
func WithConstLabels(labels map[string]string) Option {
	return func(p *PrometheusExporter) {
		keys := make([]string, 0, len(labels))
		for k := range labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
		}
		p.labels = strings.Join(parts, ",")
	}
}

// NewPrometheusExporter returns an exporter reading from client.
func NewPrometheusExporter(client *consoleauth.Client, opts ...Option) *PrometheusExporter {
	return NewPrometheusExporterFromSource(client, opts...)
}

// NewPrometheusExporterFromSource returns an exporter reading from any
// snapshot source.
func NewPrometheusExporterFromSource(source internaldefs.Source, opts ...Option) *PrometheusExporter {
	p := &PrometheusExporter{source: source}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler serves the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		if err := p.Write(&buf); err != nil {
			http.Error(w, "render metrics: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = buf.WriteTo(w)
	})
}

// Render returns the current metrics in text exposition format, or "" when
// metrics are disabled.
func (p *PrometheusExporter) Render() string {
	var b strings.Builder
	// strings.Builder never fails a write.
	_ = p.Write(&b)
	return b.String()
}

// Write renders the current metrics to w and returns the first write error.
func (p *PrometheusExporter) Write(w io.Writer) error {
	if p == nil || p.source == nil {
		return nil
	}
	for _, s := range internaldefs.Collect(p.source) {
		if err := p.writeSample(w, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *PrometheusExporter) writeSample(w io.Writer, s internaldefs.Sample) error {
	typ := "counter"
	if s.Kind == internaldefs.KindHistogram {
		typ = "histogram"
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", s.Name, escapeHelp(s.Help), s.Name, typ); err != nil {
		return err
	}

	if s.Kind == internaldefs.KindCounter {
		_, err := fmt.Fprintf(w, "%s%s %d\n", s.Name, p.labelSet(""), s.Value)
		return err
	}

	for i, b := range internaldefs.Buckets {
		le := fmt.Sprintf("le=%q", b.Le)
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", s.Name, p.labelSet(le), s.Cumulative[i]); err != nil {
			return err
		}
	}
	// Snapshots carry no sum.
	_, err := fmt.Fprintf(w, "%s_count%s %d\n%s_sum%s 0\n", s.Name, p.labelSet(""), s.Value, s.Name, p.labelSet(""))
	return err
}

func (p *PrometheusExporter) labelSet(extra string) string {
	switch {
	case p.labels == "" && extra == "":
		return ""
	case p.labels == "":
		return "{" + extra + "}"
	case extra == "":
		return "{" + p.labels + "}"
	default:
		return "{" + p.labels + "," + extra + "}"
	}
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}

package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

// MetricsSource is satisfied by [authcore.Engine].
type MetricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	MailDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter creates an exporter that reads from engine.
func NewPrometheusExporter(engine *authcore.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates an exporter from a custom source.
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves the current metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It returns "" when metrics are
// disabled and nothing was dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.MailDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeCounter(&b, "authcore_mail_dropped_total", "Verification emails dropped because the mail queue was full.", dropped)

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" histogram\n")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	count := cumulative[len(cumulative)-1]
	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(count, 10))
	b.WriteByte('\n')

	// Snapshots carry bucket counts only.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

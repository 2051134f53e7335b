// Package metrics exposes the outcome of one run as Prometheus gauges for
// the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"capi-inspector/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the gauges of a single run on its own registry.
type Recorder struct {
	Registry *prometheus.Registry

	findings  *prometheus.GaugeVec
	documents *prometheus.GaugeVec
	exitCode  *prometheus.GaugeVec
	lastRun   *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		findings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capi_inspect_findings",
				Help: "Number of findings reported by the last run",
			}, []string{"command", "severity", "category"},
		),
		documents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capi_inspect_documents",
				Help: "Number of documents analyzed by the last run",
			}, []string{"command"},
		),
		exitCode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capi_inspect_exit_code",
				Help: "Exit code of the last run",
			}, []string{"command"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capi_inspect_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			}, []string{"command"},
		),
	}
	r.Registry.MustRegister(r.findings, r.documents, r.exitCode, r.lastRun)
	return r
}

// Observe records the report of one command. Every severity is emitted
// per category, zero when absent, so alerts can match on a stable series.
func (r *Recorder) Observe(command string, report *model.Report, documents, exitCode int, now time.Time) {
	for _, c := range report.Categories() {
		for _, sev := range model.Severities {
			r.findings.WithLabelValues(command, string(sev), c).Set(0)
		}
	}
	for _, f := range report.Findings {
		r.findings.WithLabelValues(command, string(f.Severity), f.Category).Inc()
	}
	r.documents.WithLabelValues(command).Set(float64(documents))
	r.exitCode.WithLabelValues(command).Set(float64(exitCode))
	r.lastRun.WithLabelValues(command).Set(float64(now.Unix()))
}

// WriteTextfile writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

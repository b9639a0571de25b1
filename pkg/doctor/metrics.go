package doctor

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WriteMetrics writes the result of a run to path in the Prometheus text
// format, for node_exporter's textfile collector.
func WriteMetrics(path string, r *Result, now time.Time) error {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	factory.NewGauge(prometheus.GaugeOpts{
		Name: "tutor_cloudflared_doctor_fatal_errors",
		Help: "Fatal errors found by the last doctor run",
	}).Set(float64(r.FatalErrors))

	factory.NewGauge(prometheus.GaugeOpts{
		Name: "tutor_cloudflared_doctor_warnings",
		Help: "Warnings found by the last doctor run",
	}).Set(float64(r.Warnings))

	factory.NewGauge(prometheus.GaugeOpts{
		Name: "tutor_cloudflared_doctor_last_run_timestamp_seconds",
		Help: "Unix time of the last doctor run",
	}).Set(float64(now.Unix()))

	checks := factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tutor_cloudflared_doctor_check_passed",
		Help: "1 when the check passed or only warned, 0 when it failed; skipped checks are omitted",
	}, []string{"check"})
	for _, c := range r.Checks {
		switch c.Outcome {
		case OutcomeSkipped:
			continue
		case OutcomeFailed:
			checks.WithLabelValues(c.Name).Set(0)
		default:
			checks.WithLabelValues(c.Name).Set(1)
		}
	}

	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

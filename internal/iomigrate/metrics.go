package iomigrate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tmforge/tmmigrate/pkg/report"
)

// writeMetrics stores the outcome of the run in Prometheus text format,
// ready for the node exporter textfile collector.
func writeMetrics(path string, rep *report.Report) error {
	reg := prometheus.NewRegistry()

	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tmmigrate",
		Name:      "records",
		Help:      "Records of the last run by entity type and outcome.",
	}, []string{"type", "outcome"})
	dangling := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tmmigrate",
		Name:      "dangling_references",
		Help:      "References nulled because the referenced record is absent.",
	}, []string{"type"})
	patches := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tmmigrate",
		Name:      "patches",
		Help:      "Deferred reference updates of the last run by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tmmigrate",
		Name:      "duration_seconds",
		Help:      "Duration of the last run.",
	})
	finished := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tmmigrate",
		Name:      "last_run_timestamp_seconds",
		Help:      "Time the last run finished.",
	})
	failed := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tmmigrate",
		Name:      "last_run_failed",
		Help:      "1 if the last run needs attention, 0 otherwise.",
	})
	reg.MustRegister(records, dangling, patches, duration, finished, failed)

	for _, t := range rep.Types() {
		s := rep.Stats(t)
		name := string(t)
		records.WithLabelValues(name, "total").Set(float64(s.Total))
		records.WithLabelValues(name, "migrated").Set(float64(s.Migrated))
		records.WithLabelValues(name, "resumed").Set(float64(s.Resumed))
		records.WithLabelValues(name, "skipped").Set(float64(s.Skipped))
		records.WithLabelValues(name, "errored").Set(float64(s.Errored))
		dangling.WithLabelValues(name).Set(float64(s.Dangling))
	}
	p := rep.Patch
	patches.WithLabelValues("patched").Set(float64(p.Patched))
	patches.WithLabelValues("broken").Set(float64(p.Broken))
	patches.WithLabelValues("failed").Set(float64(p.Failed))
	duration.Set(rep.FinishedAt.Sub(rep.StartedAt).Seconds())
	finished.Set(float64(rep.FinishedAt.Unix()))
	if rep.Failed() {
		failed.Set(1)
	}

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return MetricsWriteError(path, err)
	}
	return nil
}

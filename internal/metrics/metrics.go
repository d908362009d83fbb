package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

const (
	// OutcomeClean labels runs that found no anomalies.
	OutcomeClean = "clean"
	// OutcomeAnomalous labels runs that produced at least one finding.
	OutcomeAnomalous = "anomalous"
	// OutcomeError labels runs that failed before a report was produced.
	OutcomeError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_anomaly",
			Name:      "runs_total",
			Help:      "Total number of detection runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	samplesEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_anomaly",
			Name:      "samples_evaluated_total",
			Help:      "Metric samples evaluated, partitioned by metric kind.",
		},
		[]string{"metric"},
	)

	samplesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirador_anomaly",
			Name:      "samples_skipped_total",
			Help:      "Malformed metric samples excluded from detection.",
		},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_anomaly",
			Name:      "anomalies_total",
			Help:      "Detected anomalies, partitioned by metric kind and severity.",
		},
		[]string{"metric", "severity"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_anomaly",
			Name:      "run_seconds",
			Help:      "Detection run latency in seconds, source fetch included.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
)

// Register attaches mirador-anomaly collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		samplesEvaluatedTotal,
		samplesSkippedTotal,
		anomaliesTotal,
		runDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeClean, OutcomeAnomalous, OutcomeError:
	default:
		outcome = OutcomeError
	}
	runsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveBatch records per-sample counters for one detection batch.
func ObserveBatch(samples []models.MetricSample, skipped []models.SkippedSample, findings []models.AnomalyFinding) {
	rejected := make(map[int]struct{}, len(skipped))
	for _, s := range skipped {
		rejected[s.Index] = struct{}{}
	}
	for i, sample := range samples {
		if _, ok := rejected[i]; ok {
			continue
		}
		samplesEvaluatedTotal.WithLabelValues(string(sample.Metric)).Inc()
	}
	samplesSkippedTotal.Add(float64(len(skipped)))
	for _, finding := range findings {
		anomaliesTotal.WithLabelValues(string(finding.Metric), string(finding.Severity)).Inc()
	}
}

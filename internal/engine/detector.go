package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

// Detector evaluates metric samples against a fixed baseline table.
type Detector struct {
	logger     *slog.Logger
	baselines  Baselines
	evaluators map[models.MetricKind]Evaluator
	workers    int
}

// DetectorOption customises a Detector at construction time.
type DetectorOption func(*Detector)

// WithEvaluator registers (or replaces) the evaluator for a metric kind.
func WithEvaluator(kind models.MetricKind, evaluator Evaluator) DetectorOption {
	return func(d *Detector) {
		if evaluator != nil {
			d.evaluators[kind] = evaluator
		}
	}
}

// WithWorkers evaluates samples on n goroutines. Output order is unaffected.
func WithWorkers(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.workers = n
		}
	}
}

// NewDetector constructs a Detector. A nil baseline table uses DefaultBaselines.
func NewDetector(logger *slog.Logger, baselines Baselines, opts ...DetectorOption) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if baselines == nil {
		baselines = DefaultBaselines()
	}

	d := &Detector{
		logger:     logger,
		baselines:  baselines.Merge(nil),
		evaluators: DefaultEvaluators(),
		workers:    1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Baseline returns the configured baseline for kind.
func (d *Detector) Baseline(kind models.MetricKind) float64 {
	return d.baselines.Get(kind)
}

// Evaluate classifies one sample. Unknown metric kinds are never flagged.
func (d *Detector) Evaluate(sample models.MetricSample) models.AnomalyFinding {
	evaluator, ok := d.evaluators[sample.Metric]
	if !ok {
		evaluator = evaluateUnsupported
	}
	return evaluator(sample, d.baselines.Get(sample.Metric))
}

// Detect returns the detected findings in input order, plus the samples that were
// rejected as malformed.
func (d *Detector) Detect(samples []models.MetricSample) ([]models.AnomalyFinding, []models.SkippedSample) {
	if len(samples) == 0 {
		return nil, nil
	}

	var skipped []models.SkippedSample
	valid := make([]bool, len(samples))
	for i, sample := range samples {
		if err := ValidateSample(sample); err != nil {
			skipped = append(skipped, models.SkippedSample{Index: i, Reason: err.Error()})
			d.logger.Warn("skipping malformed sample", slog.Int("index", i), slog.String("reason", err.Error()))
			continue
		}
		valid[i] = true
	}

	results := d.evaluateAll(samples, valid)

	findings := make([]models.AnomalyFinding, 0)
	for i, finding := range results {
		if !valid[i] || !finding.Detected {
			continue
		}
		d.logger.Debug("anomaly detected",
			slog.String("service", finding.Service),
			slog.String("metric", string(finding.Metric)),
			slog.String("severity", string(finding.Severity)),
			slog.Float64("confidence", finding.Confidence),
		)
		findings = append(findings, finding)
	}
	return findings, skipped
}

func (d *Detector) evaluateAll(samples []models.MetricSample, valid []bool) []models.AnomalyFinding {
	results := make([]models.AnomalyFinding, len(samples))
	if d.workers <= 1 || len(samples) < 2 {
		for i, sample := range samples {
			if valid[i] {
				results[i] = d.Evaluate(sample)
			}
		}
		return results
	}

	indexes := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		panicked any
	)
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Drain on panic so the feeder never blocks; the panic is re-raised below.
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { panicked = r })
					for range indexes {
					}
				}
			}()
			for i := range indexes {
				results[i] = d.Evaluate(samples[i])
			}
		}()
	}
	for i := range samples {
		if valid[i] {
			indexes <- i
		}
	}
	close(indexes)
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
	return results
}

// ValidateSample reports why a sample cannot be evaluated, or nil when it can.
func ValidateSample(sample models.MetricSample) error {
	switch {
	case sample.Service == "":
		return fmt.Errorf("missing service name")
	case sample.Metric == "":
		return fmt.Errorf("missing metric kind")
	case sample.Timestamp.IsZero():
		return fmt.Errorf("missing timestamp")
	case math.IsNaN(sample.Value) || math.IsInf(sample.Value, 0):
		return fmt.Errorf("non-finite value for %s", sample.Metric)
	case sample.Value < 0 && sample.Metric.Known():
		return fmt.Errorf("negative value %g for %s", sample.Value, sample.Metric)
	}
	return nil
}

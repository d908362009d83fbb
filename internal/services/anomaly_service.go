package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-anomaly/internal/engine"
	"github.com/miradorstack/mirador-anomaly/internal/metrics"
	"github.com/miradorstack/mirador-anomaly/internal/models"
	"github.com/miradorstack/mirador-anomaly/internal/sink"
	"github.com/miradorstack/mirador-anomaly/internal/source"
	"github.com/miradorstack/mirador-anomaly/internal/utils"
)

// Result is the outcome of one detection run.
type Result struct {
	RunID      string
	Samples    int
	Findings   []models.AnomalyFinding
	Skipped    []models.SkippedSample
	Report     string
	ReportPath string
}

// ExitCode is 0 when nothing was detected and 1 otherwise.
func (r Result) ExitCode() int {
	if len(r.Findings) > 0 {
		return 1
	}
	return 0
}

// AnomalyService wires a sample source through the detector and reporter into a sink.
type AnomalyService struct {
	logger    *slog.Logger
	source    source.Source
	detector  *engine.Detector
	reporter  *engine.Reporter
	sink      sink.Sink
	latencies *utils.LatencyTracker
}

// NewAnomalyService constructs the service facade. A nil sink discards reports.
func NewAnomalyService(logger *slog.Logger, src source.Source, detector *engine.Detector, reporter *engine.Reporter, out sink.Sink) *AnomalyService {
	if logger == nil {
		logger = slog.Default()
	}
	if detector == nil {
		detector = engine.NewDetector(logger, nil)
	}
	if reporter == nil {
		reporter = engine.NewReporter(logger)
	}
	if out == nil {
		out = sink.Discard{}
	}
	return &AnomalyService{
		logger:    logger,
		source:    src,
		detector:  detector,
		reporter:  reporter,
		sink:      out,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Run pulls a batch from the configured source, analyses it, and persists the report.
func (s *AnomalyService) Run(ctx context.Context) (Result, error) {
	if s.source == nil {
		return Result{}, utils.NewAppError("run", "sample source not configured", nil)
	}

	start := time.Now()
	s.logger.Info("analyzing metrics data")

	samples, err := s.source.Samples(ctx)
	if err != nil {
		metrics.ObserveRun(time.Since(start), metrics.OutcomeError)
		return Result{}, utils.NewAppError("run", "fetch samples", err)
	}

	result, err := s.analyze(ctx, samples)
	if err != nil {
		metrics.ObserveRun(time.Since(start), metrics.OutcomeError)
		return Result{}, err
	}

	path, err := s.sink.Write(ctx, result.Report)
	if err != nil {
		metrics.ObserveRun(time.Since(start), metrics.OutcomeError)
		return Result{}, utils.NewAppError("run", "persist report", err)
	}
	result.ReportPath = path
	if path != "" {
		s.logger.Info("report saved", slog.String("path", path))
	}

	s.finish(result, time.Since(start))
	return result, nil
}

// Analyze evaluates a caller-supplied batch without touching the source or sink.
func (s *AnomalyService) Analyze(ctx context.Context, samples []models.MetricSample) (Result, error) {
	start := time.Now()
	result, err := s.analyze(ctx, samples)
	if err != nil {
		metrics.ObserveRun(time.Since(start), metrics.OutcomeError)
		return Result{}, err
	}
	s.finish(result, time.Since(start))
	return result, nil
}

// LatencyP95 returns the current p95 run latency.
func (s *AnomalyService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *AnomalyService) analyze(ctx context.Context, samples []models.MetricSample) (result Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Custom evaluators are caller code; a panic aborts the run without a partial report.
	defer func() {
		if r := recover(); r != nil {
			result = Result{}
			err = utils.NewAppError("analyze", "evaluation failed", fmt.Errorf("%v", r))
		}
	}()

	findings, skipped := s.detector.Detect(samples)
	metrics.ObserveBatch(samples, skipped, findings)

	return Result{
		RunID:    uuid.NewString(),
		Samples:  len(samples),
		Findings: findings,
		Skipped:  skipped,
		Report:   s.reporter.Render(findings),
	}, nil
}

func (s *AnomalyService) finish(result Result, duration time.Duration) {
	outcome := metrics.OutcomeClean
	if len(result.Findings) > 0 {
		outcome = metrics.OutcomeAnomalous
	}
	metrics.ObserveRun(duration, outcome)
	s.latencies.Observe(duration)

	attrs := []any{
		slog.String("run_id", result.RunID),
		slog.Int("samples", result.Samples),
		slog.Int("skipped", len(result.Skipped)),
		slog.Duration("duration", duration),
	}
	if len(result.Findings) > 0 {
		s.logger.Warn("anomalies detected", append(attrs, slog.Int("anomalies", len(result.Findings)))...)
	} else {
		s.logger.Info("no anomalies detected - all systems normal", attrs...)
	}

	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("run latency", slog.Duration("p95", s.LatencyP95()), slog.Int("samples", count))
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/engine"
	"github.com/miradorstack/mirador-anomaly/internal/models"
	"github.com/miradorstack/mirador-anomaly/internal/source"
	"github.com/miradorstack/mirador-anomaly/internal/utils"
)

type sinkStub struct {
	reports []string
	err     error
}

func (s *sinkStub) Write(ctx context.Context, report string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.reports = append(s.reports, report)
	return "/reports/anomaly_report_1.txt", nil
}

type failingSource struct{ err error }

func (f failingSource) Samples(context.Context) ([]models.MetricSample, error) {
	return nil, f.err
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(service string, kind models.MetricKind, value float64) models.MetricSample {
	return models.MetricSample{Timestamp: now, Service: service, Metric: kind, Value: value}
}

func TestRunScenarioC(t *testing.T) {
	out := &sinkStub{}
	svc := NewAnomalyService(nil, source.Static{
		at("payments-service", models.MetricErrorRate, 0.08),
		at("product-details", models.MetricCPUUsage, 0.95),
	}, nil, nil, out)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", result.ExitCode())
	}
	if len(result.Findings) != 2 || result.Samples != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.RunID == "" {
		t.Fatalf("expected run id")
	}
	if result.ReportPath != "/reports/anomaly_report_1.txt" {
		t.Fatalf("unexpected report path: %s", result.ReportPath)
	}
	if len(out.reports) != 1 || out.reports[0] != result.Report {
		t.Fatalf("expected the rendered report to reach the sink")
	}
	if !strings.Contains(result.Report, "## 🔗 Correlation Analysis") {
		t.Fatalf("expected correlation section")
	}
}

func TestRunScenarioD(t *testing.T) {
	out := &sinkStub{}
	svc := NewAnomalyService(nil, source.Static{
		at("ai-devops-demo", models.MetricErrorRate, 0.02),
		at("user-profiles", models.MetricErrorRate, 0.03),
	}, nil, nil, out)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode() != 0 || len(result.Findings) != 0 {
		t.Fatalf("expected clean run, got %+v", result)
	}
	if result.Report != engine.NoAnomaliesMessage {
		t.Fatalf("unexpected report: %q", result.Report)
	}
}

func TestRunSourceFailure(t *testing.T) {
	out := &sinkStub{}
	svc := NewAnomalyService(nil, failingSource{err: source.ErrNoSamples}, nil, nil, out)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, source.ErrNoSamples) {
		t.Fatalf("expected ErrNoSamples, got %v", err)
	}
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Op != "run" {
		t.Fatalf("expected run AppError, got %v", err)
	}
	if len(out.reports) != 0 {
		t.Fatalf("no report may be written on failure")
	}
}

func TestRunSinkFailure(t *testing.T) {
	svc := NewAnomalyService(nil, source.Static{at("api", models.MetricCPUUsage, 0.95)}, nil, nil, &sinkStub{err: errors.New("read-only fs")})
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected sink error")
	}
}

func TestRunWithoutSource(t *testing.T) {
	if _, err := NewAnomalyService(nil, nil, nil, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error without source")
	}
}

func TestAnalyzeReportsSkipped(t *testing.T) {
	svc := NewAnomalyService(nil, nil, nil, nil, nil)
	result, err := svc.Analyze(context.Background(), []models.MetricSample{
		at("api", models.MetricCPUUsage, 0.95),
		at("", models.MetricCPUUsage, 0.95),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Findings) != 1 || len(result.Skipped) != 1 || result.Skipped[0].Index != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAnalyzeEvaluatorPanicAborts(t *testing.T) {
	boom := func(models.MetricSample, float64) models.AnomalyFinding { panic("bad evaluator") }
	detector := engine.NewDetector(nil, nil, engine.WithEvaluator(models.MetricMemoryUsage, boom))
	svc := NewAnomalyService(nil, nil, detector, nil, nil)

	result, err := svc.Analyze(context.Background(), []models.MetricSample{at("api", models.MetricMemoryUsage, 0.5)})
	if err == nil {
		t.Fatalf("expected evaluation failure")
	}
	if result.Report != "" {
		t.Fatalf("partial report emitted: %q", result.Report)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewAnomalyService(nil, nil, nil, nil, nil).Analyze(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

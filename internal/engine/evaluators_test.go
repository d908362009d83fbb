package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

func sample(service string, kind models.MetricKind, value float64) models.MetricSample {
	return models.MetricSample{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Service:   service,
		Metric:    kind,
		Value:     value,
	}
}

func assertNotDetected(t *testing.T, f models.AnomalyFinding, explanation string) {
	t.Helper()
	if f.Detected {
		t.Fatalf("expected no detection, got %+v", f)
	}
	if f.Confidence != 0 || f.Severity != models.SeverityNone || len(f.RecommendedActions) != 0 || f.ImpactEstimate != "None" {
		t.Fatalf("not-detected finding has unexpected fields: %+v", f)
	}
	if f.Explanation != explanation {
		t.Fatalf("expected explanation %q, got %q", explanation, f.Explanation)
	}
}

func TestEvaluateErrorRateSeverityBands(t *testing.T) {
	cases := []struct {
		value    float64
		detected bool
		severity models.Severity
	}{
		{0.03, false, models.SeverityNone},
		{0.06, false, models.SeverityNone},
		{0.07, true, models.SeverityHigh},
		{0.10, true, models.SeverityHigh},
		{0.11, true, models.SeverityCritical},
		{0.30, true, models.SeverityCritical},
	}
	for _, tc := range cases {
		f := EvaluateErrorRate(sample("payments-service", models.MetricErrorRate, tc.value), 0.02)
		if f.Detected != tc.detected || f.Severity != tc.severity {
			t.Fatalf("value %.2f: expected detected=%v severity=%s, got detected=%v severity=%s",
				tc.value, tc.detected, tc.severity, f.Detected, f.Severity)
		}
		if !tc.detected {
			assertNotDetected(t, f, "Normal error rate")
		}
	}
}

func TestEvaluateErrorRateBoundaryIsHigh(t *testing.T) {
	f := EvaluateErrorRate(sample("payments-service", models.MetricErrorRate, 0.10), 0.02)
	if !f.Detected || f.Severity != models.SeverityHigh {
		t.Fatalf("expected high severity at exactly 5x, got %+v", f)
	}
	if !strings.Contains(f.Explanation, "5.0x higher than baseline (0.020)") {
		t.Fatalf("unexpected explanation: %s", f.Explanation)
	}
	if f.ImpactEstimate != "Medium business impact" {
		t.Fatalf("unexpected impact: %s", f.ImpactEstimate)
	}
	if f.Confidence != 0.95 {
		t.Fatalf("expected capped confidence 0.95, got %v", f.Confidence)
	}
	if len(f.RecommendedActions) != 4 || f.RecommendedActions[3] != "Consider rolling back to previous version if issues persist" {
		t.Fatalf("unexpected actions: %v", f.RecommendedActions)
	}
}

func TestEvaluateErrorRateCriticalImpact(t *testing.T) {
	f := EvaluateErrorRate(sample("payments-service", models.MetricErrorRate, 0.11), 0.02)
	if f.Severity != models.SeverityCritical {
		t.Fatalf("expected critical, got %s", f.Severity)
	}
	if f.ImpactEstimate != "$110/hour in lost revenue" {
		t.Fatalf("unexpected impact: %s", f.ImpactEstimate)
	}
	want := "Error rate 0.110 is 5.5x higher than baseline (0.020). This indicates potential issues with service reliability."
	if f.Explanation != want {
		t.Fatalf("unexpected explanation:\n%s\nwant:\n%s", f.Explanation, want)
	}
}

func TestEvaluateResponseTime(t *testing.T) {
	normal := EvaluateResponseTime(sample("checkout", models.MetricResponseTime, 1.0), 0.5)
	assertNotDetected(t, normal, "Normal response time")

	medium := EvaluateResponseTime(sample("checkout", models.MetricResponseTime, 1.2), 0.5)
	if !medium.Detected || medium.Severity != models.SeverityMedium || medium.ImpactEstimate != "Minor user experience impact" {
		t.Fatalf("unexpected medium finding: %+v", medium)
	}
	if medium.Confidence != 0.9 {
		t.Fatalf("expected confidence capped at 0.9, got %v", medium.Confidence)
	}

	high := EvaluateResponseTime(sample("checkout", models.MetricResponseTime, 2.5), 0.5)
	if high.Severity != models.SeverityHigh || high.ImpactEstimate != "20% user satisfaction decrease" {
		t.Fatalf("unexpected high finding: %+v", high)
	}
	want := "Response time 2.500s is 5.0x higher than baseline (0.500s). Users may experience slow application performance."
	if high.Explanation != want {
		t.Fatalf("unexpected explanation: %s", high.Explanation)
	}
	if high.RecommendedActions[0] != "Scale up application pods to handle increased load" {
		t.Fatalf("unexpected actions: %v", high.RecommendedActions)
	}
}

func TestEvaluateCPUUsage(t *testing.T) {
	assertNotDetected(t, EvaluateCPUUsage(sample("api", models.MetricCPUUsage, 0.8), 0.3), "Normal CPU usage")

	critical := EvaluateCPUUsage(sample("api", models.MetricCPUUsage, 0.95), 0.3)
	if !critical.Detected || critical.Severity != models.SeverityCritical {
		t.Fatalf("expected critical cpu finding, got %+v", critical)
	}
	if critical.ImpactEstimate != "Service degradation imminent" {
		t.Fatalf("unexpected impact: %s", critical.ImpactEstimate)
	}
	if critical.Confidence != 0.85 {
		t.Fatalf("expected confidence 0.85, got %v", critical.Confidence)
	}
	want := "CPU usage 95.0% is critically high (baseline: 30.0%). This may indicate resource exhaustion or potential security issues like crypto-mining."
	if critical.Explanation != want {
		t.Fatalf("unexpected explanation: %s", critical.Explanation)
	}

	high := EvaluateCPUUsage(sample("api", models.MetricCPUUsage, 0.85), 0.3)
	if high.Severity != models.SeverityHigh || high.ImpactEstimate != "Performance degradation likely" {
		t.Fatalf("unexpected high cpu finding: %+v", high)
	}
}

func TestConfidenceNeverNegative(t *testing.T) {
	f := EvaluateCPUUsage(sample("api", models.MetricCPUUsage, 0.85), 0.95)
	if !f.Detected {
		t.Fatalf("absolute cpu threshold should still flag the sample")
	}
	if f.Confidence != 0 {
		t.Fatalf("expected confidence clamped to 0, got %v", f.Confidence)
	}
}

func TestConfidenceCaps(t *testing.T) {
	caps := map[models.MetricKind]float64{
		models.MetricErrorRate:    0.95,
		models.MetricResponseTime: 0.9,
		models.MetricCPUUsage:     0.85,
	}
	evaluators := DefaultEvaluators()
	for kind, limit := range caps {
		for _, value := range []float64{0.81, 0.99, 3, 50, 1e6} {
			f := evaluators[kind](sample("svc", kind, value), DefaultBaselines().Get(kind))
			if f.Confidence < 0 || f.Confidence > limit {
				t.Fatalf("%s value %v: confidence %v outside [0,%v]", kind, value, f.Confidence, limit)
			}
		}
	}
}

func TestZeroBaselinePolicy(t *testing.T) {
	errRate := EvaluateErrorRate(sample("svc", models.MetricErrorRate, 0.5), 0)
	assertNotDetected(t, errRate, "Baseline unavailable for error_rate; relative detection skipped")

	latency := EvaluateResponseTime(sample("svc", models.MetricResponseTime, 3), 0)
	assertNotDetected(t, latency, "Baseline unavailable for response_time; relative detection skipped")

	cpu := EvaluateCPUUsage(sample("svc", models.MetricCPUUsage, 0.95), 0)
	if !cpu.Detected || cpu.Confidence != 0.85 {
		t.Fatalf("expected cpu detection at confidence cap, got %+v", cpu)
	}
	if !strings.Contains(cpu.Explanation, "baseline: 0.0%") {
		t.Fatalf("unexpected explanation: %s", cpu.Explanation)
	}
}

func TestEvaluatorActionsAreCopies(t *testing.T) {
	first := EvaluateErrorRate(sample("svc", models.MetricErrorRate, 0.2), 0.02)
	first.RecommendedActions[0] = "mutated"
	second := EvaluateErrorRate(sample("svc", models.MetricErrorRate, 0.2), 0.02)
	if second.RecommendedActions[0] == "mutated" {
		t.Fatalf("findings share the recommended actions backing array")
	}
}

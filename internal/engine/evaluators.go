package engine

import (
	"fmt"
	"math"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

// Evaluator classifies a single sample against the baseline for its metric kind.
type Evaluator func(sample models.MetricSample, baseline float64) models.AnomalyFinding

const (
	errorRateThresholdFactor = 3.0
	errorRateCriticalFactor  = 5.0
	errorRateConfidenceCap   = 0.95

	responseTimeThresholdFactor = 2.0
	responseTimeHighFactor      = 4.0
	responseTimeConfidenceCap   = 0.9

	cpuThreshold      = 0.8
	cpuCriticalLevel  = 0.9
	cpuConfidenceCap  = 0.85
	revenuePerErrorHr = 1000.0
)

var (
	errorRateActions = []string{
		"Investigate recent deployments or configuration changes",
		"Check application logs for specific error patterns",
		"Verify external dependencies are functioning properly",
		"Consider rolling back to previous version if issues persist",
	}
	responseTimeActions = []string{
		"Scale up application pods to handle increased load",
		"Check database query performance and connection pools",
		"Analyze CPU and memory usage patterns",
		"Review recent code changes for performance regressions",
	}
	cpuUsageActions = []string{
		"Immediately check for unusual processes or security breaches",
		"Scale horizontal pod autoscaler limits if legitimate load",
		"Investigate potential memory leaks or infinite loops",
		"Review resource requests and limits configuration",
	}
)

// DefaultEvaluators returns the built-in dispatch table.
func DefaultEvaluators() map[models.MetricKind]Evaluator {
	return map[models.MetricKind]Evaluator{
		models.MetricErrorRate:    EvaluateErrorRate,
		models.MetricResponseTime: EvaluateResponseTime,
		models.MetricCPUUsage:     EvaluateCPUUsage,
	}
}

// EvaluateErrorRate flags error rates above three times the baseline.
func EvaluateErrorRate(sample models.MetricSample, baseline float64) models.AnomalyFinding {
	if baseline <= 0 {
		return models.NoAnomaly(sample, baselineUnavailable(sample.Metric))
	}

	threshold := baseline * errorRateThresholdFactor
	if sample.Value <= threshold {
		return models.NoAnomaly(sample, "Normal error rate")
	}

	severity := models.SeverityHigh
	if sample.Value > baseline*errorRateCriticalFactor {
		severity = models.SeverityCritical
	}

	impact := "Medium business impact"
	if severity == models.SeverityCritical {
		impact = fmt.Sprintf("$%d/hour in lost revenue", int64(math.Floor(sample.Value*revenuePerErrorHr)))
	}

	return models.AnomalyFinding{
		Detected:   true,
		Confidence: relativeConfidence(sample.Value, baseline, errorRateConfidenceCap),
		Severity:   severity,
		Metric:     sample.Metric,
		Service:    sample.Service,
		Explanation: fmt.Sprintf(
			"Error rate %.3f is %.1fx higher than baseline (%.3f). This indicates potential issues with service reliability.",
			sample.Value, sample.Value/baseline, baseline,
		),
		RecommendedActions: append([]string(nil), errorRateActions...),
		ImpactEstimate:     impact,
	}
}

// EvaluateResponseTime flags latencies above twice the baseline.
func EvaluateResponseTime(sample models.MetricSample, baseline float64) models.AnomalyFinding {
	if baseline <= 0 {
		return models.NoAnomaly(sample, baselineUnavailable(sample.Metric))
	}

	threshold := baseline * responseTimeThresholdFactor
	if sample.Value <= threshold {
		return models.NoAnomaly(sample, "Normal response time")
	}

	severity := models.SeverityMedium
	impact := "Minor user experience impact"
	if sample.Value > baseline*responseTimeHighFactor {
		severity = models.SeverityHigh
		impact = "20% user satisfaction decrease"
	}

	return models.AnomalyFinding{
		Detected:   true,
		Confidence: relativeConfidence(sample.Value, baseline, responseTimeConfidenceCap),
		Severity:   severity,
		Metric:     sample.Metric,
		Service:    sample.Service,
		Explanation: fmt.Sprintf(
			"Response time %.3fs is %.1fx higher than baseline (%.3fs). Users may experience slow application performance.",
			sample.Value, sample.Value/baseline, baseline,
		),
		RecommendedActions: append([]string(nil), responseTimeActions...),
		ImpactEstimate:     impact,
	}
}

// EvaluateCPUUsage flags CPU utilisation above 80% regardless of baseline.
func EvaluateCPUUsage(sample models.MetricSample, baseline float64) models.AnomalyFinding {
	if sample.Value <= cpuThreshold {
		return models.NoAnomaly(sample, "Normal CPU usage")
	}

	severity := models.SeverityHigh
	impact := "Performance degradation likely"
	if sample.Value > cpuCriticalLevel {
		severity = models.SeverityCritical
		impact = "Service degradation imminent"
	}

	confidence := cpuConfidenceCap
	if baseline > 0 {
		confidence = relativeConfidence(sample.Value, baseline, cpuConfidenceCap)
	}

	return models.AnomalyFinding{
		Detected:   true,
		Confidence: confidence,
		Severity:   severity,
		Metric:     sample.Metric,
		Service:    sample.Service,
		Explanation: fmt.Sprintf(
			"CPU usage %.1f%% is critically high (baseline: %.1f%%). This may indicate resource exhaustion or potential security issues like crypto-mining.",
			sample.Value*100, baseline*100,
		),
		RecommendedActions: append([]string(nil), cpuUsageActions...),
		ImpactEstimate:     impact,
	}
}

// evaluateUnsupported is used for metric kinds without a registered evaluator.
func evaluateUnsupported(sample models.MetricSample, _ float64) models.AnomalyFinding {
	return models.NoAnomaly(sample, "No anomaly detected")
}

// relativeConfidence is the relative deviation from baseline, clamped to [0, limit].
// baseline must be positive.
func relativeConfidence(value, baseline, limit float64) float64 {
	return clamp((value-baseline)/baseline, 0, limit)
}

func baselineUnavailable(kind models.MetricKind) string {
	return fmt.Sprintf("Baseline unavailable for %s; relative detection skipped", kind)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

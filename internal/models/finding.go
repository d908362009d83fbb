package models

// Severity captures impact levels.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for reporting; lower ranks are reported first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// AnomalyFinding is the outcome of evaluating one sample against its baseline.
type AnomalyFinding struct {
	Detected           bool
	Confidence         float64
	Severity           Severity
	Metric             MetricKind
	Service            string
	Explanation        string
	RecommendedActions []string
	ImpactEstimate     string
}

// NoAnomaly builds a not-detected finding for the sample.
func NoAnomaly(sample MetricSample, explanation string) AnomalyFinding {
	return AnomalyFinding{
		Detected:       false,
		Confidence:     0,
		Severity:       SeverityNone,
		Metric:         sample.Metric,
		Service:        sample.Service,
		Explanation:    explanation,
		ImpactEstimate: "None",
	}
}

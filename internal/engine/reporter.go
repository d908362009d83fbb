package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/models"
	"github.com/miradorstack/mirador-anomaly/internal/utils"
)

// NoAnomaliesMessage is the whole report when nothing was detected.
const NoAnomaliesMessage = "✅ No anomalies detected. All systems operating normally."

const (
	headerRule  = 50
	sectionRule = 40
)

// Reporter renders detected findings into a human-readable incident report.
type Reporter struct {
	logger *slog.Logger
	now    func() time.Time
}

// ReporterOption customises a Reporter.
type ReporterOption func(*Reporter)

// WithClock overrides the clock used for the report timestamp.
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReporter constructs a Reporter.
func NewReporter(logger *slog.Logger, opts ...ReporterOption) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the incident report for findings, most severe first.
func (r *Reporter) Render(findings []models.AnomalyFinding) string {
	if len(findings) == 0 {
		return NoAnomaliesMessage
	}

	ranked := RankFindings(findings)

	lines := make([]string, 0, 6+len(ranked)*16)
	lines = append(lines,
		"🚨 ANOMALY DETECTION REPORT",
		strings.Repeat("=", headerRule),
		fmt.Sprintf("Generated: %sZ", utils.FormatISO8601(r.now().UTC())),
		fmt.Sprintf("Total Anomalies: %d", len(findings)),
		"",
	)

	for i, finding := range ranked {
		lines = append(lines,
			fmt.Sprintf("## Anomaly #%d: %s", i+1, strings.ToUpper(string(finding.Severity))),
			fmt.Sprintf("**Service:** %s", finding.Service),
			fmt.Sprintf("**Metric:** %s", finding.Metric),
			fmt.Sprintf("**Confidence:** %.1f%%", finding.Confidence*100),
			fmt.Sprintf("**Impact:** %s", finding.ImpactEstimate),
			"",
			"**🤖 AI Analysis:**",
			finding.Explanation,
			"",
			"**📋 Recommended Actions:**",
		)
		for _, action := range finding.RecommendedActions {
			lines = append(lines, "- "+action)
		}
		lines = append(lines, "", strings.Repeat("-", sectionRule), "")
	}

	// Only a fixed advisory: findings are not grouped by service or metric.
	if len(findings) > 1 {
		lines = append(lines,
			"## 🔗 Correlation Analysis",
			"Multiple anomalies detected simultaneously.",
			"This pattern suggests a systemic issue that may require coordinated response.",
			"",
		)
	}

	r.logger.Debug("incident report rendered", slog.Int("anomalies", len(findings)))
	return strings.Join(lines, "\n")
}

// RankFindings returns a copy of findings stably sorted by severity rank.
func RankFindings(findings []models.AnomalyFinding) []models.AnomalyFinding {
	ranked := append([]models.AnomalyFinding(nil), findings...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Severity.Rank() < ranked[j].Severity.Rank()
	})
	return ranked
}

package models

import "time"

// MetricKind names the metric a sample was taken from.
type MetricKind string

const (
	MetricErrorRate    MetricKind = "error_rate"
	MetricResponseTime MetricKind = "response_time"
	MetricCPUUsage     MetricKind = "cpu_usage"
	MetricMemoryUsage  MetricKind = "memory_usage"
	MetricRequestRate  MetricKind = "request_rate"
)

// Known reports whether the kind is one of the built-in metric kinds.
func (k MetricKind) Known() bool {
	switch k {
	case MetricErrorRate, MetricResponseTime, MetricCPUUsage, MetricMemoryUsage, MetricRequestRate:
		return true
	default:
		return false
	}
}

// MetricSample is a single observation of one metric for one service.
type MetricSample struct {
	Timestamp time.Time
	Service   string
	Metric    MetricKind
	Value     float64
	Labels    map[string]string
}

// SkippedSample records an input sample that was excluded from detection.
type SkippedSample struct {
	Index  int
	Reason string
}

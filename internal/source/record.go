package source

import (
	"log/slog"
	"math"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/models"
	"github.com/miradorstack/mirador-anomaly/internal/utils"
)

// Record is the wire shape of a sample shared by the file and HTTP sources.
type Record struct {
	Timestamp string            `json:"timestamp" yaml:"timestamp"`
	Service   string            `json:"service" yaml:"service"`
	Metric    string            `json:"metric" yaml:"metric"`
	Value     *float64          `json:"value" yaml:"value"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Batch is the document root: {"samples": [...]}.
type Batch struct {
	Samples []Record `json:"samples" yaml:"samples"`
}

// ToSamples converts records into samples. Records that cannot be represented
// faithfully keep a zero timestamp or NaN value so the detector rejects them
// by index instead of the whole batch failing here.
func ToSamples(records []Record, logger *slog.Logger) []models.MetricSample {
	if logger == nil {
		logger = slog.Default()
	}
	samples := make([]models.MetricSample, 0, len(records))
	for i, rec := range records {
		sample := models.MetricSample{
			Service: rec.Service,
			Metric:  models.MetricKind(rec.Metric),
			Value:   math.NaN(),
			Labels:  rec.Labels,
		}
		if rec.Value != nil {
			sample.Value = *rec.Value
		}
		if rec.Timestamp != "" {
			ts, err := utils.ParseRFC3339(rec.Timestamp)
			if err != nil {
				logger.Warn("unparseable sample timestamp", slog.Int("index", i), slog.Any("error", err))
			} else {
				sample.Timestamp = ts
			}
		}
		samples = append(samples, sample)
	}
	return samples
}

// FromSample is the inverse of ToSamples for well-formed samples.
func FromSample(sample models.MetricSample) Record {
	value := sample.Value
	rec := Record{
		Service: sample.Service,
		Metric:  string(sample.Metric),
		Value:   &value,
		Labels:  sample.Labels,
	}
	if !sample.Timestamp.IsZero() {
		rec.Timestamp = sample.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return rec
}

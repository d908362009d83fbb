package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

// Baselines maps a metric kind to its expected value. Missing kinds baseline to zero.
type Baselines map[models.MetricKind]float64

// DefaultBaselines returns the stock baseline table.
func DefaultBaselines() Baselines {
	return Baselines{
		models.MetricErrorRate:    0.02,
		models.MetricResponseTime: 0.5,
		models.MetricCPUUsage:     0.3,
		models.MetricMemoryUsage:  0.4,
		models.MetricRequestRate:  100,
	}
}

// Get returns the baseline for kind, or zero when none is configured.
func (b Baselines) Get(kind models.MetricKind) float64 {
	return b[kind]
}

// Merge returns a copy of b with every entry of overrides applied on top.
func (b Baselines) Merge(overrides map[string]float64) Baselines {
	merged := make(Baselines, len(b)+len(overrides))
	for kind, value := range b {
		merged[kind] = value
	}
	for kind, value := range overrides {
		merged[models.MetricKind(kind)] = value
	}
	return merged
}

// BaselinePack is the YAML root structure of a baseline pack file.
type BaselinePack struct {
	Baselines []BaselineEntry `yaml:"baselines"`
}

// BaselineEntry overrides the baseline for one metric kind.
type BaselineEntry struct {
	Metric string  `yaml:"metric"`
	Value  float64 `yaml:"value"`
}

// LoadBaselinePack reads baseline overrides from path. A missing path or file yields no overrides.
func LoadBaselinePack(path string, logger *slog.Logger) (map[string]float64, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var pack BaselinePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse baseline pack: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	overrides := make(map[string]float64, len(pack.Baselines))
	for _, entry := range pack.Baselines {
		if entry.Metric == "" {
			continue
		}
		if entry.Value < 0 {
			return nil, fmt.Errorf("baseline for %s must not be negative", entry.Metric)
		}
		overrides[entry.Metric] = entry.Value
	}
	logger.Debug("loaded baseline pack", slog.String("path", path), slog.Int("entries", len(overrides)))
	return overrides, nil
}

package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

// File reads a JSON or YAML sample batch from disk on every call.
type File struct {
	path   string
	logger *slog.Logger
}

// NewFile constructs a file-backed source.
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: path, logger: logger}
}

// Samples decodes the batch document at the configured path.
func (f *File) Samples(ctx context.Context) ([]models.MetricSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	// JSON documents are valid YAML, so one decoder covers both formats.
	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parse samples %s: %w", f.path, err)
	}
	if len(batch.Samples) == 0 {
		return nil, ErrNoSamples
	}

	f.logger.Debug("loaded samples", slog.String("path", f.path), slog.Int("count", len(batch.Samples)))
	return ToSamples(batch.Samples, f.logger), nil
}

package source

import (
	"context"
	"errors"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

// ErrNoSamples signals that a source produced an empty batch.
var ErrNoSamples = errors.New("source returned no samples")

// Source produces one batch of metric samples per call.
type Source interface {
	Samples(ctx context.Context) ([]models.MetricSample, error)
}

// Static serves a fixed batch; used for request payloads and tests.
type Static []models.MetricSample

// Samples returns the batch unchanged.
func (s Static) Samples(ctx context.Context) ([]models.MetricSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.MetricSample(s), nil
}

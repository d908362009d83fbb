package source

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

var syntheticServices = []string{"ai-devops-demo", "product-details", "payments-service", "user-profiles"}

const (
	syntheticPoints      = 20
	syntheticStep        = 5 * time.Minute
	syntheticAnomalyRate = 0.2
)

// Synthetic generates demo traffic: mostly healthy error rates with occasional
// error-rate or CPU spikes.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSynthetic seeds the generator; a zero seed draws one from the clock.
func NewSynthetic(seed int64, now func() time.Time) *Synthetic {
	if now == nil {
		now = time.Now
	}
	if seed == 0 {
		seed = now().UnixNano()
	}
	return &Synthetic{rng: rand.New(rand.NewSource(seed)), now: now}
}

// Samples returns twenty points spaced five minutes apart, newest first.
func (s *Synthetic) Samples(ctx context.Context) ([]models.MetricSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.now().UTC()
	samples := make([]models.MetricSample, 0, syntheticPoints)
	for i := 0; i < syntheticPoints; i++ {
		ts := base.Add(-time.Duration(i) * syntheticStep)
		service := syntheticServices[s.rng.Intn(len(syntheticServices))]

		if s.rng.Float64() >= syntheticAnomalyRate {
			samples = append(samples, models.MetricSample{
				Timestamp: ts,
				Service:   service,
				Metric:    models.MetricErrorRate,
				Value:     s.uniform(0.01, 0.04),
				Labels:    map[string]string{"endpoint": "/api/health"},
			})
			continue
		}

		if s.rng.Float64() < 0.5 {
			samples = append(samples, models.MetricSample{
				Timestamp: ts,
				Service:   service,
				Metric:    models.MetricErrorRate,
				Value:     s.uniform(0.1, 0.3),
				Labels:    map[string]string{"endpoint": "/api/upload"},
			})
			continue
		}

		samples = append(samples, models.MetricSample{
			Timestamp: ts,
			Service:   service,
			Metric:    models.MetricCPUUsage,
			Value:     s.uniform(0.85, 0.95),
			Labels:    map[string]string{"pod": fmt.Sprintf("%s-%d", service, 1+s.rng.Intn(3))},
		})
	}
	return samples, nil
}

func (s *Synthetic) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

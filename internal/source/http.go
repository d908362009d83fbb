package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/models"
)

// HTTPClient queries a monitoring backend for the latest sample window.
type HTTPClient struct {
	baseURL     string
	samplesPath string
	service     string
	window      time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
	now         func() time.Time
}

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	BaseURL     string
	SamplesPath string
	Service     string
	Window      time.Duration
	Timeout     time.Duration
}

// NewHTTPClient constructs a client targeting the configured monitoring backend.
func NewHTTPClient(cfg HTTPConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Window <= 0 {
		cfg.Window = 100 * time.Minute
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		samplesPath: cfg.SamplesPath,
		service:     cfg.Service,
		window:      cfg.Window,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		now:         time.Now,
	}
}

// Samples fetches the samples observed during the trailing window.
func (c *HTTPClient) Samples(ctx context.Context) ([]models.MetricSample, error) {
	if c == nil {
		return nil, fmt.Errorf("monitoring client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("monitoring base URL not configured")
	}

	end := c.now().UTC()
	payload := map[string]interface{}{
		"service": c.service,
		"start":   end.Add(-c.window).Format(time.RFC3339),
		"end":     end.Format(time.RFC3339),
	}

	var response Batch
	if err := c.postJSON(ctx, c.resolvePath(c.samplesPath), payload, &response); err != nil {
		return nil, fmt.Errorf("monitoring samples request failed: %w", err)
	}
	if len(response.Samples) == 0 {
		return nil, ErrNoSamples
	}

	c.logger.Debug("fetched samples", slog.String("service", c.service), slog.Int("count", len(response.Samples)))
	return ToSamples(response.Samples, c.logger), nil
}

func (c *HTTPClient) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *HTTPClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("monitoring backend returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

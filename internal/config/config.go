package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to run the detector once or as a service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Detector DetectorConfig `yaml:"detector"`
	Source   SourceConfig   `yaml:"source"`
	Report   ReportConfig   `yaml:"report"`
}

// ServerConfig controls the gRPC and metrics listeners used in serve mode.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DetectorConfig controls baselines and evaluation fan-out.
type DetectorConfig struct {
	Baselines     map[string]float64 `yaml:"baselines"`
	BaselinesPath string             `yaml:"baselinesPath"`
	Workers       int                `yaml:"workers"`
}

// SourceConfig selects where metric samples come from.
type SourceConfig struct {
	Kind string     `yaml:"kind"`
	Path string     `yaml:"path"`
	Seed int64      `yaml:"seed"`
	HTTP HTTPSource `yaml:"http"`
}

// HTTPSource configures the monitoring query endpoint.
type HTTPSource struct {
	BaseURL     string        `yaml:"baseURL"`
	SamplesPath string        `yaml:"samplesPath"`
	Service     string        `yaml:"service"`
	Window      time.Duration `yaml:"window"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ReportConfig controls where rendered reports are persisted.
type ReportConfig struct {
	WriteFile bool   `yaml:"writeFile"`
	Dir       string `yaml:"dir"`
}

// Source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceFile      = "file"
	SourceHTTP      = "http"
)

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_ANOMALY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceSynthetic:
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for the %s source", SourceFile)
		}
	case SourceHTTP:
		if c.Source.HTTP.BaseURL == "" {
			return fmt.Errorf("source.http.baseURL is required for the %s source", SourceHTTP)
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	for metric, value := range c.Detector.Baselines {
		if value < 0 {
			return fmt.Errorf("detector.baselines.%s must not be negative", metric)
		}
	}
	if c.Detector.Workers < 0 {
		return fmt.Errorf("detector.workers must not be negative")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50052",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Detector: DetectorConfig{
			BaselinesPath: "configs/baselines/default.yaml",
			Workers:       1,
		},
		Source: SourceConfig{
			Kind: SourceSynthetic,
			HTTP: HTTPSource{
				SamplesPath: "/api/v1/anomaly/samples",
				Window:      100 * time.Minute,
				Timeout:     5 * time.Second,
			},
		},
		Report: ReportConfig{WriteFile: true, Dir: "."},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_ANOMALY_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_ANOMALY_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_ANOMALY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_ANOMALY_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_ANOMALY_BASELINES_PATH"); v != "" {
		cfg.Detector.BaselinesPath = v
	}
	if v := os.Getenv("MIRADOR_ANOMALY_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Detector.Workers = n
		}
	}
	if v := os.Getenv("MIRADOR_ANOMALY_SOURCE"); v != "" {
		cfg.Source.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("MIRADOR_ANOMALY_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("MIRADOR_ANOMALY_SOURCE_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Source.Seed = seed
		}
	}
	if v := os.Getenv("MIRADOR_ANOMALY_SOURCE_URL"); v != "" {
		cfg.Source.HTTP.BaseURL = v
	}
	if v := os.Getenv("MIRADOR_ANOMALY_SOURCE_SERVICE"); v != "" {
		cfg.Source.HTTP.Service = v
	}
	if v := os.Getenv("MIRADOR_ANOMALY_SOURCE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.HTTP.Window = d
		}
	}
	if v := os.Getenv("MIRADOR_ANOMALY_SOURCE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Source.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("MIRADOR_ANOMALY_REPORT_DIR"); v != "" {
		cfg.Report.Dir = v
	}
	if v := os.Getenv("MIRADOR_ANOMALY_REPORT_FILE"); v != "" {
		cfg.Report.WriteFile = strings.EqualFold(v, "true") || v == "1"
	}
}

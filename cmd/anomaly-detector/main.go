package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-anomaly/internal/api"
	"github.com/miradorstack/mirador-anomaly/internal/config"
	"github.com/miradorstack/mirador-anomaly/internal/engine"
	"github.com/miradorstack/mirador-anomaly/internal/metrics"
	"github.com/miradorstack/mirador-anomaly/internal/services"
	"github.com/miradorstack/mirador-anomaly/internal/sink"
	"github.com/miradorstack/mirador-anomaly/internal/source"
	"github.com/miradorstack/mirador-anomaly/internal/utils"
)

const exitFailure = 2

func main() {
	var (
		configPath string
		serve      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&serve, "serve", false, "Serve the gRPC API instead of running a single detection pass")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(exitFailure)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON, os.Stderr)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(exitFailure)
	}

	service, err := buildService(cfg, logger)
	if err != nil {
		logger.Error("failed to initialise detector", slog.Any("error", err))
		os.Exit(exitFailure)
	}

	if serve {
		if err := runServer(cfg, logger, service); err != nil {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(exitFailure)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	result, err := service.Run(ctx)
	stop()
	if err != nil {
		logger.Error("detection run failed", slog.Any("error", err))
		os.Exit(exitFailure)
	}

	fmt.Fprintln(os.Stdout, result.Report)
	os.Exit(result.ExitCode())
}

func buildService(cfg *config.Config, logger *slog.Logger) (*services.AnomalyService, error) {
	pack, err := engine.LoadBaselinePack(cfg.Detector.BaselinesPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load baseline pack: %w", err)
	}
	baselines := engine.DefaultBaselines().Merge(pack).Merge(cfg.Detector.Baselines)

	detector := engine.NewDetector(logger, baselines, engine.WithWorkers(cfg.Detector.Workers))
	reporter := engine.NewReporter(logger)

	src, err := buildSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	var out sink.Sink = sink.Discard{}
	if cfg.Report.WriteFile {
		out = sink.NewFileSink(cfg.Report.Dir)
	}

	return services.NewAnomalyService(logger, src, detector, reporter, out), nil
}

func buildSource(cfg *config.Config, logger *slog.Logger) (source.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceSynthetic:
		return source.NewSynthetic(cfg.Source.Seed, time.Now), nil
	case config.SourceFile:
		return source.NewFile(cfg.Source.Path, logger), nil
	case config.SourceHTTP:
		return source.NewHTTPClient(source.HTTPConfig{
			BaseURL:     cfg.Source.HTTP.BaseURL,
			SamplesPath: cfg.Source.HTTP.SamplesPath,
			Service:     cfg.Source.HTTP.Service,
			Window:      cfg.Source.HTTP.Window,
			Timeout:     cfg.Source.HTTP.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func runServer(cfg *config.Config, logger *slog.Logger, service *services.AnomalyService) error {
	logger.Info("starting mirador-anomaly", slog.String("address", cfg.Server.Address))

	server, err := api.NewServer(cfg.Server, api.NewHandler(logger, service))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("mirador-anomaly stopped")
	return nil
}

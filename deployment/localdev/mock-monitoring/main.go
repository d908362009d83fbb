package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/source"
	"github.com/miradorstack/mirador-anomaly/internal/utils"
)

type samplesRequest struct {
	Service string `json:"service"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func main() {
	var (
		addr string
		seed int64
	)
	flag.StringVar(&addr, "addr", ":8080", "Listen address")
	flag.Int64Var(&seed, "seed", 0, "Seed for generated samples (0 picks a random seed)")
	flag.Parse()

	logger := utils.NewLogger("info", false, nil).With(slog.String("component", "monitoring-mock"))
	generator := source.NewSynthetic(seed, time.Now)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/anomaly/samples", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req samplesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		samples, err := generator.Samples(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		start, _ := utils.ParseRFC3339(req.Start)

		batch := source.Batch{}
		for _, sample := range samples {
			if req.Service != "" && sample.Service != req.Service {
				continue
			}
			if !start.IsZero() && sample.Timestamp.Before(start) {
				continue
			}
			batch.Samples = append(batch.Samples, source.FromSample(sample))
		}
		writeJSON(w, logger, batch)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("encode error", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-anomaly/internal/models"
	"github.com/miradorstack/mirador-anomaly/internal/services"
	"github.com/miradorstack/mirador-anomaly/internal/source"
)

var _ AnomalyReporterServer = (*Handler)(nil)

// Handler serves AnomalyReporter RPCs on top of the anomaly service.
type Handler struct {
	logger  *slog.Logger
	service *services.AnomalyService
}

// NewHandler constructs the RPC handler.
func NewHandler(logger *slog.Logger, service *services.AnomalyService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Detect evaluates the samples carried in the request and returns the rendered report.
func (h *Handler) Detect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	records, err := FromProtoSamples(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := h.service.Analyze(ctx, source.ToSamples(records, h.logger))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		h.logger.Error("detect failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, err.Error())
	}

	resp, err := ToProtoResult(result)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// HealthCheck reports liveness of the detection surface.
func (h *Handler) HealthCheck(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"status": "SERVING"})
}

// FromProtoSamples maps a {samples: [...]} Struct into wire records. Fields with
// the wrong type are treated as absent so the detector reports the sample as skipped.
func FromProtoSamples(req *structpb.Struct) ([]source.Record, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	field, ok := req.GetFields()["samples"]
	if !ok {
		return nil, fmt.Errorf("samples is required")
	}
	list := field.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("samples must be a list")
	}

	records := make([]source.Record, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		obj := item.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("samples[%d] must be an object", i)
		}
		fields := obj.GetFields()
		rec := source.Record{
			Timestamp: stringField(fields, "timestamp"),
			Service:   stringField(fields, "service"),
			Metric:    stringField(fields, "metric"),
		}
		if v, ok := fields["value"]; ok {
			if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); isNumber {
				value := v.GetNumberValue()
				rec.Value = &value
			}
		}
		if labels := fields["labels"].GetStructValue(); labels != nil {
			rec.Labels = make(map[string]string, len(labels.GetFields()))
			for k, v := range labels.GetFields() {
				rec.Labels[k] = v.GetStringValue()
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ToProtoResult converts a service result into the response Struct.
func ToProtoResult(result services.Result) (*structpb.Struct, error) {
	findings := make([]interface{}, 0, len(result.Findings))
	for _, f := range result.Findings {
		findings = append(findings, findingFields(f))
	}
	skipped := make([]interface{}, 0, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped = append(skipped, map[string]interface{}{
			"index":  s.Index,
			"reason": s.Reason,
		})
	}
	return structpb.NewStruct(map[string]interface{}{
		"run_id":    result.RunID,
		"report":    result.Report,
		"anomalies": len(result.Findings),
		"skipped":   skipped,
		"findings":  findings,
	})
}

func findingFields(f models.AnomalyFinding) map[string]interface{} {
	actions := make([]interface{}, 0, len(f.RecommendedActions))
	for _, a := range f.RecommendedActions {
		actions = append(actions, a)
	}
	return map[string]interface{}{
		"service":             f.Service,
		"metric":              string(f.Metric),
		"severity":            string(f.Severity),
		"confidence":          f.Confidence,
		"explanation":         f.Explanation,
		"impact_estimate":     f.ImpactEstimate,
		"recommended_actions": actions,
	}
}

func stringField(fields map[string]*structpb.Value, key string) string {
	if v, ok := fields[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	// Skip if no context
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	// Extract span from context
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	// Add trace context to log
	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Helper to convert OTEL attributes to zerolog fields
func addAttributeToEvent(event *zerolog.Event, attr attribute.KeyValue) *zerolog.Event {
	key := string(attr.Key)

	switch attr.Value.Type() {
	case attribute.STRING:
		return event.Str(key, attr.Value.AsString())
	case attribute.INT64:
		return event.Int64(key, attr.Value.AsInt64())
	case attribute.FLOAT64:
		return event.Float64(key, attr.Value.AsFloat64())
	case attribute.BOOL:
		return event.Bool(key, attr.Value.AsBool())
	default:
		return event.Str(key, attr.Value.AsString())
	}
}

// LogCheckStart logs the beginning of a drift check with attributes
func (l *Logger) LogCheckStart(ctx context.Context, checkID string, attrs ...attribute.KeyValue) {
	event := l.WithContext(ctx).Info().Str("check_id", checkID)
	for _, attr := range attrs {
		event = addAttributeToEvent(event, attr)
	}
	event.Msg("drift check started")
}

// Convenience methods for drift evaluation operations

func (l *Logger) LogRunCreated(ctx context.Context, runID, workspace string) {
	l.WithContext(ctx).Info().
		Str("run_id", runID).
		Str("workspace", workspace).
		Str("operation", "create_run").
		Msg("terraform run created")
}

func (l *Logger) LogRunStatus(ctx context.Context, runID, status string) {
	l.WithContext(ctx).Debug().
		Str("run_id", runID).
		Str("run_status", status).
		Str("operation", "poll_run").
		Msg("run status observed")
}

func (l *Logger) LogDriftDetected(ctx context.Context, resourceID, summary string) {
	l.WithContext(ctx).Warn().
		Str("resource_id", resourceID).
		Str("change_summary", summary).
		Msg("drift detected")
}

func (l *Logger) LogNoDrift(ctx context.Context, resourceID string) {
	l.WithContext(ctx).Info().
		Str("resource_id", resourceID).
		Msg("no drift detected")
}

func (l *Logger) LogApplyTriggered(ctx context.Context, runID string) {
	l.WithContext(ctx).Info().
		Str("run_id", runID).
		Str("operation", "apply_run").
		Msg("remediation apply triggered")
}

func (l *Logger) LogApplyFailed(ctx context.Context, runID string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("run_id", runID).
		Str("operation", "apply_run").
		Msg("remediation apply failed")
}

func (l *Logger) LogRecordWritten(ctx context.Context, resourceID, status string) {
	l.WithContext(ctx).Info().
		Str("resource_id", resourceID).
		Str("record_status", status).
		Str("operation", "put_record").
		Msg("history record written")
}

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the drift evaluation instruments.
type Metrics struct {
	checksTotal      metric.Int64Counter
	driftDetected    metric.Int64Counter
	appliesTriggered metric.Int64Counter
	applyFailures    metric.Int64Counter
	checkDuration    metric.Float64Histogram
}

// NewMetrics registers instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("driftguard")

	checksTotal, err := meter.Int64Counter("driftguard.checks.total",
		metric.WithDescription("Completed drift checks by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create checks counter: %w", err)
	}

	driftDetected, err := meter.Int64Counter("driftguard.drift.detected.total",
		metric.WithDescription("Checks that found drift"))
	if err != nil {
		return nil, fmt.Errorf("create drift counter: %w", err)
	}

	appliesTriggered, err := meter.Int64Counter("driftguard.applies.triggered.total",
		metric.WithDescription("Remediation applies triggered"))
	if err != nil {
		return nil, fmt.Errorf("create applies counter: %w", err)
	}

	applyFailures, err := meter.Int64Counter("driftguard.applies.failed.total",
		metric.WithDescription("Remediation applies that failed to trigger"))
	if err != nil {
		return nil, fmt.Errorf("create apply failures counter: %w", err)
	}

	checkDuration, err := meter.Float64Histogram("driftguard.check.duration",
		metric.WithDescription("End-to-end drift check duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &Metrics{
		checksTotal:      checksTotal,
		driftDetected:    driftDetected,
		appliesTriggered: appliesTriggered,
		applyFailures:    applyFailures,
		checkDuration:    checkDuration,
	}, nil
}

// RecordCheck records one completed check with its outcome status.
func (m *Metrics) RecordCheck(ctx context.Context, status string, hasDrift bool, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.checksTotal.Add(ctx, 1, attrs)
	if hasDrift {
		m.driftDetected.Add(ctx, 1)
	}
	m.checkDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordApply records a remediation apply attempt.
func (m *Metrics) RecordApply(ctx context.Context, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.applyFailures.Add(ctx, 1)
		return
	}
	m.appliesTriggered.Add(ctx, 1)
}

// Package orchestrator turns one inbound change event into a completed
// plan evaluation, a drift verdict and a durable audit record.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/infrasync/driftguard/drift"
	"github.com/infrasync/driftguard/event"
	"github.com/infrasync/driftguard/history"
	"github.com/infrasync/driftguard/notify"
	"github.com/infrasync/driftguard/policy"
	"github.com/infrasync/driftguard/telemetry"
)

// DefaultAppBaseURL is the Terraform Cloud UI.
const DefaultAppBaseURL = "https://app.terraform.io"

// Orchestrator composes normalize → run → poll → summarize → notify →
// persist → apply. One event in, one terminal verdict out, strictly
// sequential with no internal parallelism.
type Orchestrator struct {
	runs     RunService
	planner  PlanWaiter
	notifier Notifier
	recorder history.Recorder
	gate     RemediationGate
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	opts     Options
}

// New creates an Orchestrator.
func New(runs RunService, planner PlanWaiter, notifier Notifier, recorder history.Recorder, gate RemediationGate, opts Options) *Orchestrator {
	if opts.AppBaseURL == "" {
		opts.AppBaseURL = DefaultAppBaseURL
	}
	return &Orchestrator{
		runs:     runs,
		planner:  planner,
		notifier: notifier,
		recorder: recorder,
		gate:     gate,
		logger:   telemetry.NewLogger("orchestrator"),
		opts:     opts,
	}
}

// WithMetrics attaches check metrics.
func (o *Orchestrator) WithMetrics(m *telemetry.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// CheckEvent runs one drift evaluation. Notification and history form the
// detection transaction; a failed apply afterwards is logged but does not
// invalidate the already-recorded outcome.
func (o *Orchestrator) CheckEvent(ctx context.Context, evt map[string]any) (*CheckResult, error) {
	start := time.Now()
	checkID := uuid.NewString()

	summary := event.Normalize(evt)
	detectedAt := time.Now().UTC()

	o.logger.LogCheckStart(ctx, checkID,
		attribute.String("resource.id", summary.ResourceID),
		attribute.String("resource.type", summary.ResourceType),
		attribute.String("change.type", summary.ChangeType),
	)

	runID, err := o.createRun(ctx, summary, detectedAt)
	if err != nil {
		return nil, err
	}

	plan, err := o.planner.WaitForPlan(ctx, runID)
	if err != nil {
		return nil, err
	}

	verdict := drift.VerdictFor(plan.HasChanges)
	changes := drift.ParseChangeSet(plan.ResourceChanges)

	changeSummary := changes.Summary()
	if changeSummary == "" {
		changeSummary = summary.ChangeType
	}

	allowApply := false
	if verdict.HasDrift {
		o.logger.LogDriftDetected(ctx, summary.ResourceID, changes.Summary())
		allowApply = o.remediationAllowed(ctx, summary, changes)
	} else {
		o.logger.LogNoDrift(ctx, summary.ResourceID)
	}

	payload := notify.BuildPayload(notify.PayloadOptions{
		Title:        titleFor(verdict),
		ResourceID:   summary.ResourceID,
		ResourceType: summary.ResourceType,
		ChangeType:   changeSummary,
		Status:       verdict.Status,
		DetectedAt:   detectedAt.Format(time.RFC3339),
		DetailURL:    o.runURL(runID),
	})
	if err := o.notifier.Send(ctx, payload); err != nil {
		return nil, fmt.Errorf("send notification: %w", err)
	}

	resourceChanges := plan.ResourceChanges
	if resourceChanges == nil {
		resourceChanges = map[string]any{}
	}

	rec := history.Record{
		ResourceID:   summary.ResourceID,
		DetectedAt:   detectedAt,
		ResourceType: summary.ResourceType,
		ChangeType:   summary.ChangeType,
		Status:       recordStatus(verdict, allowApply),
		Details: map[string]any{
			"run_id":           runID,
			"plan_id":          plan.PlanID,
			"plan_status":      plan.Status,
			"resource_changes": resourceChanges,
			"event_detail":     summary,
		},
	}
	if err := o.recorder.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("write history record: %w", err)
	}

	// Detection transaction ends here; apply is best-effort trailing work.
	if verdict.HasDrift && allowApply {
		err := o.runs.ApplyRun(ctx, runID)
		o.metrics.RecordApply(ctx, err)
		if err != nil {
			o.logger.LogApplyFailed(ctx, runID, err)
		} else {
			o.logger.LogApplyTriggered(ctx, runID)
		}
	}

	o.metrics.RecordCheck(ctx, verdict.Status, verdict.HasDrift, time.Since(start))

	return &CheckResult{
		Resource: summary,
		HasDrift: verdict.HasDrift,
		Status:   verdict.Status,
		RunID:    runID,
	}, nil
}

func (o *Orchestrator) createRun(ctx context.Context, summary event.ResourceSummary, detectedAt time.Time) (string, error) {
	message := fmt.Sprintf("DriftGuard automated check triggered by %s %s at %s.",
		summary.ResourceType, summary.ResourceID, detectedAt.Format(time.RFC3339))

	created, err := o.runs.CreateRun(ctx, message, o.opts.AutoRemediate)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("run creation failed: no run id returned")
	}

	o.logger.LogRunCreated(ctx, created.ID, o.opts.Workspace)
	return created.ID, nil
}

// remediationAllowed consults the gate; an evaluation error denies the
// apply but never fails the check.
func (o *Orchestrator) remediationAllowed(ctx context.Context, summary event.ResourceSummary, changes drift.ChangeSet) bool {
	allowed, err := o.gate.AllowRemediation(ctx, policy.RemediationInput{
		Resource:      summary,
		Changes:       changes.Counts(),
		AutoRemediate: o.opts.AutoRemediate,
	})
	if err != nil {
		o.logger.WithContext(ctx).Warn().
			Err(err).
			Str("resource_id", summary.ResourceID).
			Msg("remediation gate evaluation failed, skipping apply")
		return false
	}
	return allowed
}

func (o *Orchestrator) runURL(runID string) string {
	return fmt.Sprintf("%s/app/%s/workspaces/%s/runs/%s",
		o.opts.AppBaseURL, o.opts.Org, o.opts.Workspace, runID)
}

func titleFor(verdict drift.Verdict) string {
	if verdict.HasDrift {
		return "⚠️ DriftGuard - Drift Detected"
	}
	return "✅ DriftGuard - No Drift"
}

func recordStatus(verdict drift.Verdict, allowApply bool) history.Status {
	switch {
	case !verdict.HasDrift:
		return history.StatusNoDrift
	case allowApply:
		return history.StatusPending
	default:
		return history.StatusDetected
	}
}

package orchestrator

import (
	"context"

	"github.com/infrasync/driftguard/event"
	"github.com/infrasync/driftguard/notify"
	"github.com/infrasync/driftguard/policy"
	"github.com/infrasync/driftguard/tfc"
)

// RunService creates and applies remote runs.
type RunService interface {
	CreateRun(ctx context.Context, message string, autoApply bool) (*tfc.Run, error)
	ApplyRun(ctx context.Context, runID string) error
}

// PlanWaiter drives a created run to a resolved plan result.
type PlanWaiter interface {
	WaitForPlan(ctx context.Context, runID string) (*tfc.PlanResult, error)
}

// Notifier delivers drift notifications.
type Notifier interface {
	Send(ctx context.Context, payload notify.Payload) error
}

// RemediationGate decides whether detected drift may be auto-applied.
type RemediationGate interface {
	AllowRemediation(ctx context.Context, input policy.RemediationInput) (bool, error)
}

// CheckResult is the invocation result returned to the calling boundary.
type CheckResult struct {
	Resource event.ResourceSummary `json:"resource"`
	HasDrift bool                  `json:"has_drift"`
	Status   string                `json:"status"`
	RunID    string                `json:"run_id"`
}

// Options configure an Orchestrator.
type Options struct {
	Org           string
	Workspace     string
	AutoRemediate bool
	// AppBaseURL is the UI base for run detail links.
	AppBaseURL string
}


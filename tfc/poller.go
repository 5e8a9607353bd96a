package tfc

import (
	"context"
	"time"

	"github.com/infrasync/driftguard/telemetry"
)

// Poll defaults. One hour matches the worst observed queue delay on a busy
// workspace; ten seconds keeps API pressure low.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultPlanBudget   = time.Hour
)

// terminalStatuses are run states that will never produce a plan later.
var terminalStatuses = map[string]bool{
	"planned":              true,
	"planned_and_finished": true,
	"errored":              true,
	"canceled":             true,
	"applied":              true,
}

// RunAPI is the slice of the client the poller depends on.
type RunAPI interface {
	GetRun(ctx context.Context, runID string) (*Run, error)
	GetPlan(ctx context.Context, planID string) (*Plan, error)
}

// Poller drives a created run to a plan-available or terminal-without-plan
// state under a wall-clock budget. The wait is a blocking sleep-poll loop;
// the budget is the only cancellation mechanism besides ctx.
type Poller struct {
	runs     RunAPI
	interval time.Duration
	budget   time.Duration
	logger   *telemetry.Logger
}

// NewPoller creates a Poller. Zero interval or budget select the defaults.
func NewPoller(runs RunAPI, interval, budget time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if budget <= 0 {
		budget = DefaultPlanBudget
	}
	return &Poller{
		runs:     runs,
		interval: interval,
		budget:   budget,
		logger:   telemetry.NewLogger("plan-poller"),
	}
}

// WaitForPlan polls the run until a plan resolves or a terminal state is
// reached. Plan availability takes priority over status inspection: a plan
// can exist before the run reaches a terminal status string. A run that
// finishes without ever producing a plan is not drift.
func (p *Poller) WaitForPlan(ctx context.Context, runID string) (*PlanResult, error) {
	start := time.Now()

	for time.Since(start) < p.budget {
		run, err := p.runs.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		p.logger.LogRunStatus(ctx, runID, run.Status)

		if run.PlanID != "" {
			plan, err := p.runs.GetPlan(ctx, run.PlanID)
			if err != nil {
				return nil, err
			}
			return &PlanResult{
				Status:          run.Status,
				PlanID:          run.PlanID,
				HasChanges:      plan.HasChanges,
				ResourceChanges: plan.ResourceChanges,
			}, nil
		}

		if terminalStatuses[run.Status] {
			p.logger.WithContext(ctx).Warn().
				Str("run_id", runID).
				Str("run_status", run.Status).
				Msg("run reached terminal status without plan data")
			return &PlanResult{
				Status:          run.Status,
				HasChanges:      false,
				ResourceChanges: map[string]any{},
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return nil, &TimeoutError{RunID: runID}
}

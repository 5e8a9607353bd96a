// Package policy gates automatic drift remediation. The process-wide
// auto-apply flag can be refined by an optional Rego policy evaluated
// against the resource summary and change tallies.
package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/infrasync/driftguard/drift"
	"github.com/infrasync/driftguard/event"
	"github.com/infrasync/driftguard/telemetry"
)

// RemediationInput is the document handed to the policy.
type RemediationInput struct {
	Resource      event.ResourceSummary `json:"resource"`
	Changes       drift.ChangeCounts    `json:"changes"`
	AutoRemediate bool                  `json:"auto_remediate"`
}

// Gate decides whether a detected drift may be auto-applied.
type Gate struct {
	defaultAllow bool
	query        *rego.PreparedEvalQuery
	logger       *telemetry.Logger
}

// NewGate creates a gate that returns defaultAllow until a policy is loaded.
func NewGate(defaultAllow bool) *Gate {
	return &Gate{
		defaultAllow: defaultAllow,
		logger:       telemetry.NewLogger("remediation-gate"),
	}
}

// LoadPolicy compiles a Rego module. The policy must live under the
// driftguard package and may define an allow_remediation rule.
func (g *Gate) LoadPolicy(ctx context.Context, name, regoCode string) error {
	g.logger.WithContext(ctx).Info().
		Str("policy_name", name).
		Msg("loading remediation policy")

	query := rego.New(
		rego.Query("data.driftguard"),
		rego.Module(name, regoCode),
	)

	prepared, err := query.PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("compile remediation policy %s: %w", name, err)
	}

	g.query = &prepared
	return nil
}

// AllowRemediation decides whether to trigger an apply for this drift.
// Without a loaded policy the configured flag stands. With one, the flag
// must be set and the policy must allow.
func (g *Gate) AllowRemediation(ctx context.Context, input RemediationInput) (bool, error) {
	if !g.defaultAllow {
		return false, nil
	}
	if g.query == nil {
		return true, nil
	}

	doc, err := toDocument(input)
	if err != nil {
		return false, err
	}

	results, err := g.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return false, fmt.Errorf("evaluate remediation policy: %w", err)
	}

	allowed := resultAllows(results)
	g.logger.WithContext(ctx).Info().
		Str("resource_id", input.Resource.ResourceID).
		Bool("allowed", allowed).
		Msg("remediation policy evaluated")
	return allowed, nil
}

// toDocument converts the typed input to the generic form OPA expects.
func toDocument(input RemediationInput) (map[string]any, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode policy input: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode policy input: %w", err)
	}
	return doc, nil
}

func resultAllows(results rego.ResultSet) bool {
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false
	}
	value, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return false
	}
	allowed, ok := value["allow_remediation"].(bool)
	return ok && allowed
}

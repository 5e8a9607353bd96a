package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/infrasync/driftguard/config"
	"github.com/infrasync/driftguard/history"
	"github.com/infrasync/driftguard/notify"
	"github.com/infrasync/driftguard/orchestrator"
	"github.com/infrasync/driftguard/policy"
	"github.com/infrasync/driftguard/secrets"
	"github.com/infrasync/driftguard/telemetry"
	"github.com/infrasync/driftguard/tfc"
)

// app bundles the wired orchestrator with whatever needs closing on exit.
type app struct {
	orch    *orchestrator.Orchestrator
	closers []func() error
}

// Close releases resources in reverse construction order.
func (a *app) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildApp wires the full check pipeline from configuration.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	source := secrets.NewManager(secretsmanager.NewFromConfig(awsCfg))

	client := tfc.NewClient(tfc.ClientOptions{
		BaseURL:       cfg.Terraform.APIBaseURL,
		Org:           cfg.Terraform.Org,
		Workspace:     cfg.Terraform.Workspace,
		TokenSecretID: cfg.Terraform.TokenSecretID,
	}, source)
	poller := tfc.NewPoller(client, cfg.Terraform.PollInterval, cfg.Terraform.PlanTimeout)

	notifier := notify.NewNotifier(source, cfg.Slack.WebhookSecretID)

	recorder, err := buildRecorder(a, cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	gate, err := buildGate(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	a.orch = orchestrator.New(client, poller, notifier, recorder, gate, orchestrator.Options{
		Org:           cfg.Terraform.Org,
		Workspace:     cfg.Terraform.Workspace,
		AutoRemediate: cfg.Remediation.AutoApply,
	}).WithMetrics(metrics)

	return a, nil
}

func buildRecorder(a *app, cfg *config.Config, awsCfg aws.Config) (history.Recorder, error) {
	if cfg.History.TableName != "" {
		return history.NewDynamoRecorder(dynamodb.NewFromConfig(awsCfg), cfg.History.TableName, cfg.History.TTLDays), nil
	}

	local, err := history.OpenLocal(cfg.History.LocalPath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, local.Close)
	return local, nil
}

func buildGate(ctx context.Context, cfg *config.Config) (*policy.Gate, error) {
	gate := policy.NewGate(cfg.Remediation.AutoApply)
	if cfg.Remediation.PolicyPath == "" {
		return gate, nil
	}

	code, err := os.ReadFile(cfg.Remediation.PolicyPath) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("read remediation policy: %w", err)
	}
	if err := gate.LoadPolicy(ctx, filepath.Base(cfg.Remediation.PolicyPath), string(code)); err != nil {
		return nil, fmt.Errorf("load remediation policy: %w", err)
	}
	return gate, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
region: us-east-1
terraform:
  org: acme
  workspace: prod
  token_secret_id: arn:aws:secretsmanager:us-east-1:123:secret:tfc-token
  poll_interval: 5s
  plan_timeout: 30m
slack:
  webhook_secret_id: arn:aws:secretsmanager:us-east-1:123:secret:slack-webhook
history:
  table_name: drift-history
  ttl_days: 30
remediation:
  auto_apply: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "driftguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "acme", cfg.Terraform.Org)
	assert.Equal(t, "prod", cfg.Terraform.Workspace)
	assert.Equal(t, 5*time.Second, cfg.Terraform.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.Terraform.PlanTimeout)
	assert.Equal(t, "drift-history", cfg.History.TableName)
	assert.Equal(t, 30, cfg.History.TTLDays)
	assert.True(t, cfg.Remediation.AutoApply)
}

func TestLoad_Defaults(t *testing.T) {
	minimal := `
terraform:
  org: acme
  workspace: prod
  token_secret_id: token-secret
slack:
  webhook_secret_id: webhook-secret
history:
  table_name: drift-history
`
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "ap-south-1", cfg.Region)
	assert.Equal(t, 10*time.Second, cfg.Terraform.PollInterval)
	assert.Equal(t, time.Hour, cfg.Terraform.PlanTimeout)
	assert.Equal(t, 90, cfg.History.TTLDays)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TERRAFORM_ORG_NAME", "env-org")
	t.Setenv("AUTO_REMEDIATE", "TRUE")
	t.Setenv("DRIFT_HISTORY_TABLE_NAME", "env-table")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-org", cfg.Terraform.Org)
	assert.Equal(t, "env-table", cfg.History.TableName)
	assert.True(t, cfg.Remediation.AutoApply)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("TERRAFORM_ORG_NAME", "acme")
	t.Setenv("TERRAFORM_WORKSPACE", "prod")
	t.Setenv("TERRAFORM_API_TOKEN_SECRET_ARN", "token-secret")
	t.Setenv("SLACK_WEBHOOK_SECRET_ARN", "webhook-secret")
	t.Setenv("DRIFT_HISTORY_TABLE_NAME", "drift-history")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Terraform.Org)
}

func TestLoad_MissingRequiredIsFatal(t *testing.T) {
	cases := map[string]string{
		"org": `
terraform:
  workspace: prod
  token_secret_id: token-secret
slack:
  webhook_secret_id: webhook-secret
history:
  table_name: t
`,
		"webhook": `
terraform:
  org: acme
  workspace: prod
  token_secret_id: token-secret
history:
  table_name: t
`,
		"history sink": `
terraform:
  org: acme
  workspace: prod
  token_secret_id: token-secret
slack:
  webhook_secret_id: webhook-secret
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoad_LocalHistorySatisfiesValidation(t *testing.T) {
	content := `
terraform:
  org: acme
  workspace: prod
  token_secret_id: token-secret
slack:
  webhook_secret_id: webhook-secret
history:
  local_path: /tmp/history.db
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/history.db", cfg.History.LocalPath)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "::bad yaml::"))
	require.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	content := `
terraform:
  org: acme
  workspace: prod
  token_secret_id: token-secret
  poll_interval: soon
slack:
  webhook_secret_id: webhook-secret
history:
  table_name: t
`
	_, err := Load(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse poll_interval")
}

// Package config loads process-wide configuration. Settings are read once
// at startup from an optional YAML file with environment overrides;
// missing required settings are startup-fatal.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Region      string            `yaml:"region"`
	Terraform   TerraformConfig   `yaml:"terraform"`
	Slack       SlackConfig       `yaml:"slack"`
	History     HistoryConfig     `yaml:"history"`
	Remediation RemediationConfig `yaml:"remediation"`
	Log         LogConfig         `yaml:"log"`
}

// TerraformConfig holds control-plane settings.
type TerraformConfig struct {
	Org             string `yaml:"org"`
	Workspace       string `yaml:"workspace"`
	TokenSecretID   string `yaml:"token_secret_id"`
	APIBaseURL      string `yaml:"api_base_url"`
	PollIntervalStr string `yaml:"poll_interval"`
	PlanTimeoutStr  string `yaml:"plan_timeout"`

	PollInterval time.Duration `yaml:"-"`
	PlanTimeout  time.Duration `yaml:"-"`
}

// SlackConfig holds notification settings.
type SlackConfig struct {
	WebhookSecretID string `yaml:"webhook_secret_id"`
}

// HistoryConfig holds audit sink settings. TableName selects DynamoDB;
// LocalPath selects the local store when no table is configured.
type HistoryConfig struct {
	TableName string `yaml:"table_name"`
	TTLDays   int    `yaml:"ttl_days"`
	LocalPath string `yaml:"local_path"`
}

// RemediationConfig holds auto-apply settings.
type RemediationConfig struct {
	AutoApply  bool   `yaml:"auto_apply"`
	PolicyPath string `yaml:"policy_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file, applies environment
// overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := parseDurations(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv maps the deployment environment onto the config. Environment
// values win over file values.
func applyEnv(cfg *Config) {
	setIfPresent(&cfg.Region, "AWS_REGION")
	setIfPresent(&cfg.Terraform.Org, "TERRAFORM_ORG_NAME")
	setIfPresent(&cfg.Terraform.Workspace, "TERRAFORM_WORKSPACE")
	setIfPresent(&cfg.Terraform.TokenSecretID, "TERRAFORM_API_TOKEN_SECRET_ARN")
	setIfPresent(&cfg.Terraform.APIBaseURL, "TERRAFORM_API_URL")
	setIfPresent(&cfg.Slack.WebhookSecretID, "SLACK_WEBHOOK_SECRET_ARN")
	setIfPresent(&cfg.History.TableName, "DRIFT_HISTORY_TABLE_NAME")

	if v, ok := os.LookupEnv("AUTO_REMEDIATE"); ok {
		cfg.Remediation.AutoApply = strings.EqualFold(strings.TrimSpace(v), "true")
	}
}

func parseDurations(cfg *Config) error {
	var err error
	if cfg.Terraform.PollIntervalStr != "" {
		if cfg.Terraform.PollInterval, err = time.ParseDuration(cfg.Terraform.PollIntervalStr); err != nil {
			return fmt.Errorf("parse poll_interval: %w", err)
		}
	}
	if cfg.Terraform.PlanTimeoutStr != "" {
		if cfg.Terraform.PlanTimeout, err = time.ParseDuration(cfg.Terraform.PlanTimeoutStr); err != nil {
			return fmt.Errorf("parse plan_timeout: %w", err)
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Region == "" {
		cfg.Region = "ap-south-1"
	}
	if cfg.Terraform.PollInterval <= 0 {
		cfg.Terraform.PollInterval = 10 * time.Second
	}
	if cfg.Terraform.PlanTimeout <= 0 {
		cfg.Terraform.PlanTimeout = time.Hour
	}
	if cfg.History.TTLDays == 0 {
		cfg.History.TTLDays = 90
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate ensures required settings are present.
func (c *Config) Validate() error {
	if c.Terraform.Org == "" {
		return fmt.Errorf("terraform org is required")
	}
	if c.Terraform.Workspace == "" {
		return fmt.Errorf("terraform workspace is required")
	}
	if c.Terraform.TokenSecretID == "" {
		return fmt.Errorf("terraform token secret id is required")
	}
	if c.Slack.WebhookSecretID == "" {
		return fmt.Errorf("slack webhook secret id is required")
	}
	if c.History.TableName == "" && c.History.LocalPath == "" {
		return fmt.Errorf("history table name or local path is required")
	}
	return nil
}

func setIfPresent(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

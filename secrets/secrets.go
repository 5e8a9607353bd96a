// Package secrets resolves opaque secret identifiers to string values.
// Consumers cache resolved values for their own lifetime; this package
// performs one fetch per call.
package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Source resolves a secret identifier to a single string value.
type Source interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// SecretsManagerAPI defines the Secrets Manager operations used by Manager.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Manager resolves secrets from AWS Secrets Manager.
type Manager struct {
	api SecretsManagerAPI
}

// NewManager creates a Manager backed by the given API client.
func NewManager(api SecretsManagerAPI) *Manager {
	return &Manager{api: api}
}

// Resolve fetches the secret string for id. An empty or binary-only secret
// is a configuration error.
func (m *Manager) Resolve(ctx context.Context, id string) (string, error) {
	out, err := m.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value for %s: %w", id, err)
	}

	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", id)
	}

	value := strings.TrimSpace(*out.SecretString)
	if value == "" {
		return "", fmt.Errorf("secret %s is empty", id)
	}

	return value, nil
}

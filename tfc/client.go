// Package tfc drives the Terraform Cloud run, plan and apply operations
// needed for drift evaluation.
package tfc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-tfe"

	"github.com/infrasync/driftguard/secrets"
	"github.com/infrasync/driftguard/telemetry"
)

// DefaultBaseURL is the public Terraform Cloud endpoint.
const DefaultBaseURL = "https://app.terraform.io"

// maxRunMessageLen is the API's limit on run messages.
const maxRunMessageLen = 255

// Run is a read-only handle on a remote run. The run itself is owned by
// the control plane and never mutated locally.
type Run struct {
	ID     string
	Status string
	PlanID string
}

// Plan is the fragment of a plan document the poller needs.
type Plan struct {
	ID              string
	Status          string
	HasChanges      bool
	ResourceChanges any
}

// PlanResult is produced exactly once per invocation, either from a
// resolved plan or from a run that finished without one.
type PlanResult struct {
	Status          string
	PlanID          string
	HasChanges      bool
	ResourceChanges any
}

// ClientOptions configure a Client.
type ClientOptions struct {
	BaseURL       string
	Org           string
	Workspace     string
	TokenSecretID string
	HTTPClient    *http.Client
}

// Client wraps the go-tfe SDK for run creation, polling and apply. The
// bearer token, the SDK client it configures and the workspace id are all
// resolved lazily, once, and cached for the client's lifetime.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	org           string
	workspace     string
	tokenSecretID string
	secrets       secrets.Source
	logger        *telemetry.Logger

	api         *tfe.Client
	token       string
	workspaceID string
}

// NewClient creates a Client. The token is not fetched until first use.
func NewClient(opts ClientOptions, source secrets.Source) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// The address is the host root; accept legacy values carrying the
	// /api/v2 suffix.
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api/v2")

	return &Client{
		httpClient:    httpClient,
		baseURL:       baseURL,
		org:           opts.Org,
		workspace:     opts.Workspace,
		tokenSecretID: opts.TokenSecretID,
		secrets:       source,
		logger:        telemetry.NewLogger("tfc-client"),
	}
}

// CreateRun creates a plan run in the configured workspace. The message is
// truncated to the API's 255 character limit and is-destroy is always false.
func (c *Client) CreateRun(ctx context.Context, message string, autoApply bool) (*Run, error) {
	api, err := c.resolveAPI(ctx)
	if err != nil {
		return nil, err
	}
	workspaceID, err := c.resolveWorkspaceID(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.WithContext(ctx).Info().
		Str("workspace", c.workspace).
		Msg("creating terraform plan run")

	run, err := api.Runs.Create(ctx, tfe.RunCreateOptions{
		Message:   tfe.String(truncateMessage(message)),
		IsDestroy: tfe.Bool(false),
		AutoApply: tfe.Bool(autoApply),
		Workspace: &tfe.Workspace{ID: workspaceID},
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return runFromAPI(run), nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, runID string) (*Run, error) {
	api, err := c.resolveAPI(ctx)
	if err != nil {
		return nil, err
	}

	run, err := api.Runs.Read(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return runFromAPI(run), nil
}

// GetPlan fetches a plan document. The SDK's typed plan carries only
// change counts, not the raw resource_changes attribute the summarizer
// consumes, so this one endpoint is read as a raw JSON:API document.
func (c *Client) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	doc, err := c.getPlanDocument(ctx, planID)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		ID:              doc.Data.ID,
		Status:          attrString(doc, "status"),
		ResourceChanges: doc.Data.Attributes["resource_changes"],
	}
	if plan.ResourceChanges == nil {
		plan.ResourceChanges = map[string]any{}
	}
	if v, ok := doc.Data.Attributes["has-changes"].(bool); ok {
		plan.HasChanges = v
	}
	return plan, nil
}

// ApplyRun triggers an apply on an already-planned run.
func (c *Client) ApplyRun(ctx context.Context, runID string) error {
	api, err := c.resolveAPI(ctx)
	if err != nil {
		return err
	}

	c.logger.WithContext(ctx).Info().
		Str("run_id", runID).
		Msg("triggering terraform apply")

	if err := api.Runs.Apply(ctx, runID, tfe.RunApplyOptions{}); err != nil {
		return fmt.Errorf("apply run %s: %w", runID, err)
	}
	return nil
}

// resolveAPI configures the SDK client on first use, once the token is
// available.
func (c *Client) resolveAPI(ctx context.Context) (*tfe.Client, error) {
	if c.api != nil {
		return c.api, nil
	}

	token, err := c.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	api, err := tfe.NewClient(&tfe.Config{
		Address:    c.baseURL,
		Token:      token,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("configure terraform api client: %w", err)
	}

	c.api = api
	return c.api, nil
}

// resolveWorkspaceID looks up the workspace id by org and name. Resolved
// once and cached for the client's lifetime.
func (c *Client) resolveWorkspaceID(ctx context.Context) (string, error) {
	if c.workspaceID != "" {
		return c.workspaceID, nil
	}

	api, err := c.resolveAPI(ctx)
	if err != nil {
		return "", err
	}

	ws, err := api.Workspaces.Read(ctx, c.org, c.workspace)
	if err != nil {
		return "", fmt.Errorf("resolve workspace %s: %w", c.workspace, err)
	}
	if ws.ID == "" {
		return "", fmt.Errorf("unable to resolve workspace id for %s", c.workspace)
	}

	c.workspaceID = ws.ID
	return c.workspaceID, nil
}

// resolveToken fetches the bearer token from the secret store on first use.
func (c *Client) resolveToken(ctx context.Context) (string, error) {
	if c.token != "" {
		return c.token, nil
	}

	token, err := c.secrets.Resolve(ctx, c.tokenSecretID)
	if err != nil {
		return "", fmt.Errorf("resolve terraform api token: %w", err)
	}

	c.token = token
	return c.token, nil
}

func (c *Client) getPlanDocument(ctx context.Context, planID string) (*planDocument, error) {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	path := "plans/" + planID
	url := c.baseURL + "/api/v2/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build plan request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.api+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	doc := &planDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", planID, err)
	}
	return doc, nil
}

// planDocument is the subset of the plan JSON:API envelope read raw.
type planDocument struct {
	Data struct {
		ID         string         `json:"id"`
		Attributes map[string]any `json:"attributes"`
	} `json:"data"`
}

func runFromAPI(run *tfe.Run) *Run {
	out := &Run{
		ID:     run.ID,
		Status: string(run.Status),
	}
	if run.Plan != nil {
		out.PlanID = run.Plan.ID
	}
	return out
}

func attrString(doc *planDocument, key string) string {
	if s, ok := doc.Data.Attributes[key].(string); ok {
		return s
	}
	return ""
}

// truncateMessage caps the run message at the API limit without splitting
// a multi-byte rune.
func truncateMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= maxRunMessageLen {
		return message
	}
	return string(runes[:maxRunMessageLen])
}

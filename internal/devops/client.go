// Package devops updates work items through the Azure DevOps work item tracking REST API.
package devops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIVersion is used when no api version is configured.
const DefaultAPIVersion = "7.0"

// Client updates work items through the Azure DevOps REST API.
type Client struct {
	token      string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

// UpdateCommand writes Value into Field of one work item.
type UpdateCommand struct {
	OrganizationURL string
	ProjectID       string
	WorkItemID      int
	Field           string
	Value           string
}

// PatchOperation is one JSON-patch document entry.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// UpdateError is returned when a work item could not be updated.
type UpdateError struct {
	WorkItemID int
	StatusCode int
	Body       string
	Err        error
}

// Error implements error.
func (e *UpdateError) Error() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return fmt.Sprintf("update work item %d: access denied (status %d)", e.WorkItemID, e.StatusCode)
	case e.StatusCode == http.StatusNotFound:
		return fmt.Sprintf("update work item %d: not found", e.WorkItemID)
	case e.StatusCode != 0:
		return fmt.Sprintf("update work item %d: devops API error: status %d, body: %s", e.WorkItemID, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("update work item %d: %v", e.WorkItemID, e.Err)
	}
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// New creates a client authenticating with a personal access token.
func New(token, apiVersion string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.New("devops personal access token is required")
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		token:      token,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// UpdateField applies a single "add" operation setting /fields/<Field> to Value.
func (c *Client) UpdateField(ctx context.Context, cmd UpdateCommand) error {
	endpoint, err := c.workItemURL(cmd)
	if err != nil {
		return &UpdateError{WorkItemID: cmd.WorkItemID, Err: err}
	}

	document := []PatchOperation{{
		Op:    "add",
		Path:  "/fields/" + cmd.Field,
		Value: cmd.Value,
	}}
	payload, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal patch document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &UpdateError{WorkItemID: cmd.WorkItemID, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json-patch+json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth("", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpdateError{WorkItemID: cmd.WorkItemID, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &UpdateError{
			WorkItemID: cmd.WorkItemID,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	c.logger.Info("work item updated",
		slog.Int("work_item_id", cmd.WorkItemID),
		slog.String("project_id", cmd.ProjectID),
		slog.String("field", cmd.Field),
	)
	return nil
}

// CheckAccessibility verifies the token can list projects of organizationURL.
func (c *Client) CheckAccessibility(ctx context.Context, organizationURL string) error {
	base, err := url.Parse(organizationURL)
	if err != nil {
		return fmt.Errorf("parse organization url: %w", err)
	}
	endpoint := base.JoinPath("_apis", "projects")
	query := endpoint.Query()
	query.Set("api-version", c.apiVersion)
	query.Set("$top", "1")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth("", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("devops api request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("access denied: %s", resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("organization not found: %s", resp.Status)
	case resp.StatusCode >= 400:
		return fmt.Errorf("devops api status: %s", resp.Status)
	}
	return nil
}

func (c *Client) workItemURL(cmd UpdateCommand) (string, error) {
	if cmd.OrganizationURL == "" {
		return "", errors.New("organization url is empty")
	}
	base, err := url.Parse(cmd.OrganizationURL)
	if err != nil {
		return "", fmt.Errorf("parse organization url: %w", err)
	}
	endpoint := base.JoinPath(cmd.ProjectID, "_apis", "wit", "workitems", strconv.Itoa(cmd.WorkItemID))
	query := endpoint.Query()
	query.Set("api-version", c.apiVersion)
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

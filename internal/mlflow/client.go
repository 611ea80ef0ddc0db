// Package mlflow is a client for the tracking server's basic-auth REST
// API: user accounts and experiment/model permissions.
//
// Credentials are passed explicitly to each client rather than through
// process-wide environment variables, so sessions stay composable and
// testable in isolation.
package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mlopshq/stackctl/internal/logging"
)

// Credentials authenticate one client session against the tracking server
type Credentials struct {
	Username string
	Password string
}

// Client talks to a single tracking server
type Client struct {
	baseURL string
	creds   Credentials
	client  *http.Client
	logger  *logging.Logger
}

// NewClient creates a client for the given tracking server URL
func NewClient(logger *logging.Logger, baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Username returns the account this client authenticates as
func (c *Client) Username() string {
	return c.creds.Username
}

// User is a tracking-server account
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// APIError is a non-2xx response from the tracking server
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("tracking server returned %d: %s", e.StatusCode, msg)
}

// Permission levels accepted by the permission endpoints
const (
	PermissionRead   = "READ"
	PermissionEdit   = "EDIT"
	PermissionManage = "MANAGE"
)

// ValidatePermission rejects permission levels the server would refuse
func ValidatePermission(permission string) error {
	switch permission {
	case PermissionRead, PermissionEdit, PermissionManage:
		return nil
	}
	return fmt.Errorf("permission must be one of %s, %s, %s", PermissionRead, PermissionEdit, PermissionManage)
}

// do sends one authenticated JSON request and decodes the response into out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("%s %s", method, endpoint)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// CreateUser registers a new account
func (c *Client) CreateUser(ctx context.Context, username, password string) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/2.0/mlflow/users/create", nil, body, &resp); err != nil {
		return nil, err
	}
	c.logger.Info("User '%s' created", username)
	return &resp.User, nil
}

// GetUser fetches an account by name
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	query := url.Values{"username": []string{username}}
	if err := c.do(ctx, http.MethodGet, "/api/2.0/mlflow/users/get", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// DeleteUser removes an account
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	body := map[string]string{"username": username}
	if err := c.do(ctx, http.MethodDelete, "/api/2.0/mlflow/users/delete", nil, body, nil); err != nil {
		return err
	}
	c.logger.Info("User '%s' deleted", username)
	return nil
}

// UpdateUserPassword sets a new password for an account
func (c *Client) UpdateUserPassword(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPatch, "/api/2.0/mlflow/users/update-password", nil, body, nil); err != nil {
		return err
	}
	c.logger.Info("Password updated for '%s'", username)
	return nil
}

// UpdateUserAdmin promotes or demotes an account
func (c *Client) UpdateUserAdmin(ctx context.Context, username string, isAdmin bool) error {
	body := map[string]interface{}{"username": username, "is_admin": isAdmin}
	if err := c.do(ctx, http.MethodPatch, "/api/2.0/mlflow/users/update-admin", nil, body, nil); err != nil {
		return err
	}
	if isAdmin {
		c.logger.Info("User '%s' promoted to admin", username)
	} else {
		c.logger.Info("User '%s' demoted to regular user", username)
	}
	return nil
}

// CreateExperimentPermission grants a permission level on an experiment
func (c *Client) CreateExperimentPermission(ctx context.Context, experimentID, username, permission string) error {
	if err := ValidatePermission(permission); err != nil {
		return err
	}
	body := map[string]string{
		"experiment_id": experimentID,
		"username":      username,
		"permission":    permission,
	}
	if err := c.do(ctx, http.MethodPost, "/api/2.0/mlflow/experiments/permissions/create", nil, body, nil); err != nil {
		return err
	}
	c.logger.Info("Granted %s on experiment %s to '%s'", permission, experimentID, username)
	return nil
}

// DeleteExperimentPermission revokes a user's permission on an experiment
func (c *Client) DeleteExperimentPermission(ctx context.Context, experimentID, username string) error {
	body := map[string]string{
		"experiment_id": experimentID,
		"username":      username,
	}
	if err := c.do(ctx, http.MethodDelete, "/api/2.0/mlflow/experiments/permissions/delete", nil, body, nil); err != nil {
		return err
	}
	c.logger.Info("Revoked experiment %s permission from '%s'", experimentID, username)
	return nil
}

// CreateRegisteredModelPermission grants a permission level on a model
func (c *Client) CreateRegisteredModelPermission(ctx context.Context, name, username, permission string) error {
	if err := ValidatePermission(permission); err != nil {
		return err
	}
	body := map[string]string{
		"name":       name,
		"username":   username,
		"permission": permission,
	}
	if err := c.do(ctx, http.MethodPost, "/api/2.0/mlflow/registered-models/permissions/create", nil, body, nil); err != nil {
		return err
	}
	c.logger.Info("Granted %s on model '%s' to '%s'", permission, name, username)
	return nil
}

// DeleteRegisteredModelPermission revokes a user's permission on a model
func (c *Client) DeleteRegisteredModelPermission(ctx context.Context, name, username string) error {
	body := map[string]string{
		"name":     name,
		"username": username,
	}
	if err := c.do(ctx, http.MethodDelete, "/api/2.0/mlflow/registered-models/permissions/delete", nil, body, nil); err != nil {
		return err
	}
	c.logger.Info("Revoked model '%s' permission from '%s'", name, username)
	return nil
}

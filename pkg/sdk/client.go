// Package sdk is the Go client for the Obra Limpa API. The server's handlers
// share its types and error envelope, so the wire contract lives in one place.
package sdk

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
)

// Client talks to one Obra Limpa deployment. The zero value is not usable;
// use NewClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	accessToken  string
	refreshToken string
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetTokens installs a token pair, e.g. from a stored session.
func (c *Client) SetTokens(access, refresh string) {
	c.accessToken = access
	c.refreshToken = refresh
}

// RefreshToken returns the current refresh token for storage.
func (c *Client) RefreshToken() string { return c.refreshToken }

func (c *Client) do(ctx context.Context, method, path string, body, target any, authed bool) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = ErrorCodeServerError
			apiErr.Description = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if target != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", req, &u, false)
	return u, err
}

// Login authenticates and installs the returned token pair on the client.
func (c *Client) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	var tr TokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", req, &tr, false); err != nil {
		return TokenResponse{}, err
	}
	c.SetTokens(tr.AccessToken, tr.RefreshToken)
	return tr, nil
}

// Refresh rotates the stored refresh token.
func (c *Client) Refresh(ctx context.Context) (TokenResponse, error) {
	var tr TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/refresh",
		RefreshRequest{RefreshToken: c.refreshToken}, &tr, false)
	if err != nil {
		return TokenResponse{}, err
	}
	c.SetTokens(tr.AccessToken, tr.RefreshToken)
	return tr, nil
}

// Logout revokes the stored refresh token and clears the session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/v1/auth/logout",
		LogoutRequest{RefreshToken: c.refreshToken}, nil, false)
	c.SetTokens("", "")
	return err
}

// Me returns the authenticated user with its derived surfaces.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/v1/me", nil, &u, true)
	return u, err
}

// UpdateProfile sets the display job title.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPatch, "/v1/me", req, &u, true)
	return u, err
}

// ChangePassword swaps the password; every session is logged out server side.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/me/password", req, nil, true)
}

func (c *Client) EnrollMFA(ctx context.Context) (MFAEnrollResponse, error) {
	var mr MFAEnrollResponse
	err := c.do(ctx, http.MethodPost, "/v1/me/mfa/enroll", nil, &mr, true)
	return mr, err
}

func (c *Client) VerifyMFA(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/v1/me/mfa/verify", MFACodeRequest{Code: code}, nil, true)
}

func (c *Client) DisableMFA(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/v1/me/mfa/disable", MFACodeRequest{Code: code}, nil, true)
}

func (c *Client) CreateInvite(ctx context.Context, req CreateInviteRequest) (Invite, error) {
	var inv Invite
	err := c.do(ctx, http.MethodPost, "/v1/invites", req, &inv, true)
	return inv, err
}

// ListInvites filters by optional site and status; empty strings mean all.
func (c *Client) ListInvites(ctx context.Context, siteID, status string) ([]Invite, error) {
	q := url.Values{}
	if siteID != "" {
		q.Set("site_id", siteID)
	}
	if status != "" {
		q.Set("status", status)
	}
	path := "/v1/invites"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var invs []Invite
	err := c.do(ctx, http.MethodGet, path, nil, &invs, true)
	return invs, err
}

func (c *Client) CancelInvite(ctx context.Context, inviteID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/invites/"+inviteID, nil, nil, true)
}

func (c *Client) CreateSite(ctx context.Context, req CreateSiteRequest) (Site, error) {
	var s Site
	err := c.do(ctx, http.MethodPost, "/v1/sites", req, &s, true)
	return s, err
}

func (c *Client) ListSites(ctx context.Context) ([]Site, error) {
	var sites []Site
	err := c.do(ctx, http.MethodGet, "/v1/sites", nil, &sites, true)
	return sites, err
}

func (c *Client) GetSite(ctx context.Context, siteID string) (Site, error) {
	var s Site
	err := c.do(ctx, http.MethodGet, "/v1/sites/"+siteID, nil, &s, true)
	return s, err
}

func (c *Client) UpdateSiteStatus(ctx context.Context, siteID, status string) error {
	return c.do(ctx, http.MethodPatch, "/v1/sites/"+siteID,
		UpdateSiteStatusRequest{Status: status}, nil, true)
}

func (c *Client) SiteProgress(ctx context.Context, siteID string) (Progress, error) {
	var p Progress
	err := c.do(ctx, http.MethodGet, "/v1/sites/"+siteID+"/progress", nil, &p, true)
	return p, err
}

func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (Task, error) {
	var task Task
	err := c.do(ctx, http.MethodPost, "/v1/tasks", req, &task, true)
	return task, err
}

func (c *Client) ListTasks(ctx context.Context, siteID, status string) ([]Task, error) {
	q := url.Values{}
	if siteID != "" {
		q.Set("site_id", siteID)
	}
	if status != "" {
		q.Set("status", status)
	}
	path := "/v1/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var tasks []Task
	err := c.do(ctx, http.MethodGet, path, nil, &tasks, true)
	return tasks, err
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (Task, error) {
	var task Task
	err := c.do(ctx, http.MethodPatch, "/v1/tasks/"+taskID, req, &task, true)
	return task, err
}

func (c *Client) ListUsers(ctx context.Context, siteID string) ([]User, error) {
	path := "/v1/users"
	if siteID != "" {
		path += "?site_id=" + url.QueryEscape(siteID)
	}
	var users []User
	err := c.do(ctx, http.MethodGet, path, nil, &users, true)
	return users, err
}

func (c *Client) ChangeRole(ctx context.Context, userID, role string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPatch, "/v1/users/"+userID+"/role",
		ChangeRoleRequest{Role: role}, &u, true)
	return u, err
}

func (c *Client) AssignSites(ctx context.Context, userID string, siteIDs []string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPut, "/v1/users/"+userID+"/sites",
		AssignSitesRequest{SiteIDs: siteIDs}, &u, true)
	return u, err
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/users/"+userID, nil, nil, true)
}

// Healthy reports whether the service answers its readiness probe.
func (c *Client) Healthy(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil, false)
}

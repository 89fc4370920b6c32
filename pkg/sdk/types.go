package sdk

import "time"

// RegisterRequest creates an account. Role is never part of registration;
// it is granted by invite or by an admin afterwards.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	JobTitle string `json:"job_title,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfa_code,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned from login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// User is the wire representation of an account. Surfaces is the gate list
// the client renders from; it is derived from Role on every response.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	JobTitle string   `json:"job_title,omitempty"`
	SiteID   string   `json:"site_id,omitempty"`
	Sites    []string `json:"sites,omitempty"`
	Surfaces []string `json:"surfaces"`

	MFAEnabled bool      `json:"mfa_enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

type Site struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Status    string   `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

type CreateSiteRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type UpdateSiteStatusRequest struct {
	Status string `json:"status"`
}

type Invite struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	SiteID     string    `json:"site_id"`
	Status     string    `json:"status"`
	CreatedBy  string    `json:"created_by"`
	AcceptedBy string    `json:"accepted_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateInviteRequest struct {
	Email  string `json:"email"`
	SiteID string `json:"site_id"`
}

type Task struct {
	ID          string    `json:"id"`
	SiteID      string    `json:"site_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateTaskRequest struct {
	SiteID      string `json:"site_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssigneeID  string `json:"assignee_id,omitempty"`
}

type UpdateTaskRequest struct {
	Status   string `json:"status"`
	PhotoURL string `json:"photo_url,omitempty"`
}

type Progress struct {
	SiteID     string  `json:"site_id"`
	Pending    int     `json:"pending"`
	InProgress int     `json:"in_progress"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type AssignSitesRequest struct {
	SiteIDs []string `json:"site_ids"`
}

type UpdateProfileRequest struct {
	JobTitle string `json:"job_title"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type MFAEnrollResponse struct {
	Secret       string `json:"secret"`
	ProvisionURI string `json:"provision_uri"`
}

type MFACodeRequest struct {
	Code string `json:"code"`
}

// HealthResponse is returned from the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

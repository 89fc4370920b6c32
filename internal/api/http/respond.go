package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/pkg/sdk"
	"github.com/obralimpa/obralimpa/pkg/slogx"
)

// decodeJSON parses the request body into dst, writing the standard error
// envelope on failure. Returns false when the handler should bail out.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sdk.ErrInvalidRequest.With("invalid JSON body").Write(w)
		return false
	}
	return true
}

// writeServiceError maps the service layer's sentinel errors onto the wire
// envelope. Unknown errors become a logged 500 with no detail leaked.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordReuse),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidSiteRequest),
		errors.Is(err, service.ErrInvalidSiteStatus),
		errors.Is(err, service.ErrInvalidTaskRequest),
		errors.Is(err, service.ErrInvalidTaskStatus):
		sdk.ErrInvalidRequest.With(err.Error()).Write(w)

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrInvalidMFACode):
		sdk.ErrInvalidGrant.Write(w)

	case errors.Is(err, service.ErrMFARequired):
		sdk.ErrMFARequired.Write(w)

	case errors.Is(err, service.ErrSiteForbidden),
		errors.Is(err, service.ErrSelfTarget):
		sdk.ErrAccessDenied.With(err.Error()).Write(w)

	case errors.Is(err, service.ErrSiteNotFound),
		errors.Is(err, service.ErrInviteNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrUserNotFound):
		sdk.ErrNotFound.With(err.Error()).Write(w)

	case errors.Is(err, service.ErrDuplicatePendingInvite),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInviteNotPending),
		errors.Is(err, service.ErrSiteInactive),
		errors.Is(err, service.ErrMFAAlreadyEnabled),
		errors.Is(err, service.ErrMFANotEnrolled):
		sdk.ErrConflict.With(err.Error()).Write(w)

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "error", err)
		sdk.ErrServerError.Write(w)
	}
}

func toSDKUser(u domain.User) sdk.User {
	surfaces := domain.SurfacesForRole(u.Role)
	out := sdk.User{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		JobTitle:   u.JobTitle,
		SiteID:     u.SiteID,
		Sites:      u.Sites,
		Surfaces:   make([]string, 0, len(surfaces)),
		MFAEnabled: u.MFAActive(),
		CreatedAt:  u.CreatedAt,
	}
	for _, s := range surfaces {
		out.Surfaces = append(out.Surfaces, string(s))
	}
	return out
}

func toSDKSite(s domain.Site) sdk.Site {
	return sdk.Site{
		ID:        s.ID,
		Name:      s.Name,
		Address:   s.Address,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
	}
}

func toSDKInvite(inv domain.Invite) sdk.Invite {
	return sdk.Invite{
		ID:         inv.ID,
		Email:      inv.Email,
		SiteID:     inv.SiteID,
		Status:     string(inv.Status),
		CreatedBy:  inv.CreatedBy,
		AcceptedBy: inv.AcceptedBy,
		CreatedAt:  inv.CreatedAt,
	}
}

func toSDKTask(t domain.Task) sdk.Task {
	return sdk.Task{
		ID:          t.ID,
		SiteID:      t.SiteID,
		Title:       t.Title,
		Description: t.Description,
		AssigneeID:  t.AssigneeID,
		PhotoURL:    t.PhotoURL,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
}

func toSDKProgress(p domain.Progress) sdk.Progress {
	return sdk.Progress{
		SiteID:     p.SiteID,
		Pending:    p.Pending,
		InProgress: p.InProgress,
		Completed:  p.Completed,
		Total:      p.Total,
		Percent:    p.Percent,
	}
}

package http

import (
	"net/http"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/pkg/httpx"
	"github.com/obralimpa/obralimpa/pkg/sdk"
)

type InviteHandler struct {
	InviteService *service.InviteService
}

// HandleCreate godoc
//
//	@Summary		Issue Invite
//	@Description	Invite an email to join a site. At most one pending invite may exist per email and site; the invitee is notified by mail.
//	@Tags			Invites
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.CreateInviteRequest	true	"Invite request"
//	@Success		201		{object}	sdk.Invite
//	@Failure		400		{object}	sdk.APIError
//	@Failure		409		{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/invites [post].
func (h *InviteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req sdk.CreateInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.SiteID == "" {
		sdk.ErrInvalidRequest.With("email and site_id are required").Write(w)
		return
	}

	actorID := httpx.UserIDFromCtx(r.Context())
	inv, err := h.InviteService.IssueInvite(r.Context(), req.Email, req.SiteID, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSDKInvite(inv))
}

// HandleList godoc
//
//	@Summary		List Invites
//	@Description	List invites, optionally filtered by site and status.
//	@Tags			Invites
//	@Produce		json
//	@Param			site_id	query		string	false	"Filter by site"
//	@Param			status	query		string	false	"Filter by status (pending, accepted, expired, cancelled)"
//	@Success		200		{array}		sdk.Invite
//	@Security		BearerAuth
//	@Router			/v1/invites [get].
func (h *InviteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := domain.InviteStatus(r.URL.Query().Get("status"))
	invites, err := h.InviteService.ListInvites(r.Context(), r.URL.Query().Get("site_id"), status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]sdk.Invite, 0, len(invites))
	for _, inv := range invites {
		out = append(out, toSDKInvite(inv))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCancel godoc
//
//	@Summary		Cancel Invite
//	@Description	Cancel a pending invite. Terminal invites cannot be cancelled.
//	@Tags			Invites
//	@Success		204
//	@Failure		404	{object}	sdk.APIError
//	@Failure		409	{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/invites/{id} [delete].
func (h *InviteHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.InviteService.CancelInvite(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

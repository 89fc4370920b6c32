package http

import (
	"net/http"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/pkg/httpx"
	"github.com/obralimpa/obralimpa/pkg/sdk"
)

type UserHandler struct {
	UserService *service.UserService
}

// HandleList godoc
//
//	@Summary		List Users
//	@Description	List accounts, optionally filtered to one site's members.
//	@Tags			Users
//	@Produce		json
//	@Param			site_id	query		string	false	"Filter by site membership"
//	@Success		200		{array}		sdk.User
//	@Security		BearerAuth
//	@Router			/v1/users [get].
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context(), r.URL.Query().Get("site_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]sdk.User, 0, len(users))
	for _, u := range users {
		out = append(out, toSDKUser(u))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary	Get User
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	sdk.User
//	@Failure	404	{object}	sdk.APIError
//	@Security	BearerAuth
//	@Router		/v1/users/{id} [get].
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKUser(user))
}

// HandleChangeRole godoc
//
//	@Summary		Change Role
//	@Description	Reassign a user's role. Their refresh tokens are revoked and open watch streams are notified. Admins cannot change their own role.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.ChangeRoleRequest	true	"Role request"
//	@Success		200		{object}	sdk.User
//	@Failure		400		{object}	sdk.APIError
//	@Failure		403		{object}	sdk.APIError
//	@Failure		404		{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/users/{id}/role [patch].
func (h *UserHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	var req sdk.ChangeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actorID := httpx.UserIDFromCtx(r.Context())
	user, err := h.UserService.ChangeRole(r.Context(), actorID, r.PathValue("id"), domain.Role(req.Role))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKUser(user))
}

// HandleAssignSites godoc
//
//	@Summary		Assign Sites
//	@Description	Replace a user's site memberships with the given set.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.AssignSitesRequest	true	"Sites request"
//	@Success		200		{object}	sdk.User
//	@Failure		404		{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/users/{id}/sites [put].
func (h *UserHandler) HandleAssignSites(w http.ResponseWriter, r *http.Request) {
	var req sdk.AssignSitesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.UserService.AssignSites(r.Context(), r.PathValue("id"), req.SiteIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKUser(user))
}

// HandleDelete godoc
//
//	@Summary		Delete User
//	@Description	Remove an account. Site memberships and refresh tokens go with it. Admins cannot delete themselves.
//	@Tags			Users
//	@Success		204
//	@Failure		403	{object}	sdk.APIError
//	@Failure		404	{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/users/{id} [delete].
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actorID := httpx.UserIDFromCtx(r.Context())
	if err := h.UserService.DeleteUser(r.Context(), actorID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

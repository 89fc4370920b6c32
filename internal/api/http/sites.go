package http

import (
	"net/http"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/pkg/httpx"
	"github.com/obralimpa/obralimpa/pkg/sdk"
)

type SiteHandler struct {
	SiteService *service.SiteService
	TaskService *service.TaskService
	UserService *service.UserService
}

// HandleCreate godoc
//
//	@Summary		Create Site
//	@Description	Register a construction site. The address is geocoded best effort; the site is created even when it does not resolve.
//	@Tags			Sites
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.CreateSiteRequest	true	"Site request"
//	@Success		201		{object}	sdk.Site
//	@Failure		400		{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/sites [post].
func (h *SiteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req sdk.CreateSiteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	site, err := h.SiteService.CreateSite(r.Context(), req.Name, req.Address)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSDKSite(site))
}

// HandleList godoc
//
//	@Summary		List Sites
//	@Description	Admins see every site; workers only the sites they belong to.
//	@Tags			Sites
//	@Produce		json
//	@Success		200	{array}	sdk.Site
//	@Security		BearerAuth
//	@Router			/v1/sites [get].
func (h *SiteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUserByID(r.Context(), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	sites, err := h.SiteService.ListSitesForUser(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]sdk.Site, 0, len(sites))
	for _, s := range sites {
		out = append(out, toSDKSite(s))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet godoc
//
//	@Summary	Get Site
//	@Tags		Sites
//	@Produce	json
//	@Success	200	{object}	sdk.Site
//	@Failure	404	{object}	sdk.APIError
//	@Security	BearerAuth
//	@Router		/v1/sites/{id} [get].
func (h *SiteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	site, err := h.SiteService.GetSite(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKSite(site))
}

// HandleUpdateStatus godoc
//
//	@Summary		Update Site Status
//	@Description	Activate or deactivate a site. Inactive sites reject new invites.
//	@Tags			Sites
//	@Accept			json
//	@Success		204
//	@Failure		400	{object}	sdk.APIError
//	@Failure		404	{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/sites/{id} [patch].
func (h *SiteHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req sdk.UpdateSiteStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.SiteService.UpdateStatus(r.Context(), r.PathValue("id"), domain.SiteStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleProgress godoc
//
//	@Summary		Site Progress
//	@Description	Task counts by status for one site. Workers may only query their own sites.
//	@Tags			Sites
//	@Produce		json
//	@Success		200	{object}	sdk.Progress
//	@Failure		403	{object}	sdk.APIError
//	@Failure		404	{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/sites/{id}/progress [get].
func (h *SiteHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUserByID(r.Context(), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	progress, err := h.TaskService.Progress(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKProgress(progress))
}

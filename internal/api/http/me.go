package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/pkg/httpx"
	"github.com/obralimpa/obralimpa/pkg/sdk"
	"github.com/obralimpa/obralimpa/pkg/slogx"
)

// watchHeartbeat keeps idle SSE connections alive through proxies.
const watchHeartbeat = 30 * time.Second

type MeHandler struct {
	UserService *service.UserService
	MFAService  *service.MFAService
	Events      *service.UserEvents
}

// HandleGet godoc
//
//	@Summary		Current User
//	@Description	The authenticated account with its derived surface list. Clients gate navigation on surfaces, never on role directly.
//	@Tags			Me
//	@Produce		json
//	@Success		200	{object}	sdk.User
//	@Security		BearerAuth
//	@Router			/v1/me [get].
func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUserByID(r.Context(), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toSDKUser(user))
}

// HandleUpdate godoc
//
//	@Summary		Update Profile
//	@Description	Set the free-text job title. This is a display label; it never affects authorization.
//	@Tags			Me
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.UpdateProfileRequest	true	"Profile request"
//	@Success		200		{object}	sdk.User
//	@Security		BearerAuth
//	@Router			/v1/me [patch].
func (h *MeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req sdk.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.UserService.UpdateJobTitle(r.Context(), httpx.UserIDFromCtx(r.Context()), req.JobTitle)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKUser(user))
}

// HandleChangePassword godoc
//
//	@Summary		Change Password
//	@Description	Verify the current password and set a new one. Every refresh token is revoked.
//	@Tags			Me
//	@Accept			json
//	@Success		204
//	@Failure		400	{object}	sdk.APIError
//	@Failure		401	{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/me/password [post].
func (h *MeHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req sdk.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.UserService.ChangePassword(r.Context(), httpx.UserIDFromCtx(r.Context()),
		req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWatch godoc
//
//	@Summary		Watch Current User
//	@Description	Server-sent event stream of the account. The current state is sent immediately, then an event per change (role, sites, profile), so clients re-gate without polling.
//	@Tags			Me
//	@Produce		text/event-stream
//	@Success		200
//	@Security		BearerAuth
//	@Router			/v1/me/watch [get].
func (h *MeHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.UserIDFromCtx(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		sdk.ErrServerError.With("streaming is not supported").Write(w)
		return
	}

	// Subscribe before the initial read so a change landing in between is
	// not lost.
	events, cancel := h.Events.Subscribe(userID)
	defer cancel()

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(u sdk.User) bool {
		payload, err := json.Marshal(u)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: user\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeEvent(toSDKUser(user)) {
		return
	}

	heartbeat := time.NewTicker(watchHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-events:
			if !writeEvent(toSDKUser(u)) {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				log.Debug("watch stream closed", "user_id", userID)
				return
			}
			flusher.Flush()
		}
	}
}

// HandleMFAEnroll godoc
//
//	@Summary		Enroll TOTP
//	@Description	Generate a TOTP secret. MFA activates only after the first code is verified.
//	@Tags			Me
//	@Produce		json
//	@Success		200	{object}	sdk.MFAEnrollResponse
//	@Failure		409	{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/me/mfa/enroll [post].
func (h *MeHandler) HandleMFAEnroll(w http.ResponseWriter, r *http.Request) {
	enroll, err := h.MFAService.EnrollTOTP(r.Context(), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, sdk.MFAEnrollResponse{
		Secret:       enroll.Secret,
		ProvisionURI: enroll.ProvisionURI,
	})
}

// HandleMFAVerify godoc
//
//	@Summary	Verify TOTP Enrollment
//	@Tags		Me
//	@Accept		json
//	@Success	204
//	@Failure	401	{object}	sdk.APIError
//	@Security	BearerAuth
//	@Router		/v1/me/mfa/verify [post].
func (h *MeHandler) HandleMFAVerify(w http.ResponseWriter, r *http.Request) {
	var req sdk.MFACodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.MFAService.VerifyTOTP(r.Context(), httpx.UserIDFromCtx(r.Context()), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMFADisable godoc
//
//	@Summary	Disable TOTP
//	@Tags		Me
//	@Accept		json
//	@Success	204
//	@Failure	401	{object}	sdk.APIError
//	@Security	BearerAuth
//	@Router		/v1/me/mfa/disable [post].
func (h *MeHandler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	var req sdk.MFACodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.MFAService.DisableTOTP(r.Context(), httpx.UserIDFromCtx(r.Context()), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

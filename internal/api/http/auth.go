package http

import (
	"net/http"

	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/pkg/httpx"
	"github.com/obralimpa/obralimpa/pkg/sdk"
)

type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleRegister godoc
//
//	@Summary		Register Account
//	@Description	Create an account. Pending invites for the email are consumed immediately; otherwise the account has no role until invited or promoted.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.RegisterRequest	true	"Registration request"
//	@Success		201		{object}	sdk.User
//	@Failure		400		{object}	sdk.APIError
//	@Failure		409		{object}	sdk.APIError
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req sdk.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		sdk.ErrInvalidRequest.With("email, name and password are required").Write(w)
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Email, req.Name, req.Password, req.JobTitle)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSDKUser(user))
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Authenticate with email and password, plus a TOTP code when MFA is enabled. Pending invites are consumed before tokens are issued.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.LoginRequest	true	"Login request"
//	@Success		200		{object}	sdk.TokenResponse
//	@Failure		401		{object}	sdk.APIError
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req sdk.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Email, req.Password, req.MFACode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeTokenResponse(w, pair)
}

// HandleRefresh godoc
//
//	@Summary		Refresh Tokens
//	@Description	Rotate a refresh token for a new pair. The presented token is revoked.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.RefreshRequest	true	"Refresh request"
//	@Success		200		{object}	sdk.TokenResponse
//	@Failure		401		{object}	sdk.APIError
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req sdk.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		sdk.ErrInvalidRequest.With("refresh_token is required").Write(w)
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeTokenResponse(w, pair)
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revoke a refresh token. Idempotent.
//	@Tags			Auth
//	@Accept			json
//	@Success		204
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req sdk.LogoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.AuthService.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTokenResponse(w http.ResponseWriter, pair *service.TokenPair) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, sdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         toSDKUser(pair.User),
	})
}

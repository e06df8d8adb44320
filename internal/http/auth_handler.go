package api

import (
	"encoding/json"
	"net/http"

	"pollbox/internal/domain/user"
	"pollbox/internal/platform/apperr"
)

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type loginRequest struct {
	Login    string `json:"login"` // username or email
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// @Summary     Register a new account
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      registerRequest  true  "Registration payload"
// @Success     201      {object}  map[string]any
// @Failure     400      {object}  map[string]string  "validation error or taken username/email"
// @Router      /api/v1/auth/register [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Register(r.Context(), req.Username, req.Email, req.Password, req.PasswordConfirm)
	if err != nil {
		errorResponse(w, err)
		return
	}

	token, err := h.jwtMgr.Generate(u.ID, u.Username, h.tokenTTL)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  u,
		"token": token,
	})
}

// @Summary     Log in with username or email
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      loginRequest  true  "Login payload"
// @Success     200      {object}  map[string]any
// @Failure     401      {object}  map[string]string  "invalid credentials"
// @Router      /api/v1/auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	token, err := h.jwtMgr.Generate(u.ID, u.Username, h.tokenTTL)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":  u,
		"token": token,
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.userSvc.GetByID(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.UpdateProfile(r.Context(), userIDFromCtx(r), user.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Tokens are stateless; logout is an acknowledgement for clients that want
// a round trip before discarding the token.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
}

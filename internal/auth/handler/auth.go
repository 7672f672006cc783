package handler

import (
	"net/http"
	"time"

	"github.com/rancho/rancho-backend/internal/auth/service"
	"github.com/rancho/rancho-backend/internal/auth/token"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// AuthHandler handles authentication HTTP endpoints
type AuthHandler struct {
	authService *service.AuthService
	tokens      *token.Manager
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.AuthService, tokens *token.Manager, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: svc,
		tokens:      tokens,
		logger:      log,
	}
}

type loginRequest struct {
	NII      string `json:"nii" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token              string    `json:"token"`
	ExpiresAt          time.Time `json:"expires_at"`
	UserID             string    `json:"user_id"`
	NII                string    `json:"nii"`
	Role               string    `json:"role"`
	Year               int       `json:"year"`
	MustChangePassword bool      `json:"must_change_password"`
}

// Login authenticates a NII/password pair and issues a session token
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.NII, req.Password, r.RemoteAddr)
	if err != nil {
		h.logger.Info().Err(err).Str("nii", req.NII).Msg("login refused")
		httputil.Error(w, err)
		return
	}

	signed, expiresAt, err := h.tokens.Generate(result.Identity)
	if err != nil {
		h.logger.Error().Err(err).Msg("token generation failed")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, loginResponse{
		Token:              signed,
		ExpiresAt:          expiresAt,
		UserID:             result.Identity.UserID,
		NII:                result.Identity.NII,
		Role:               result.Identity.Role,
		Year:               result.Identity.Year,
		MustChangePassword: result.MustChangePassword,
	})
}

// Logout ends the caller's session. POST only; the token itself is
// discarded client-side.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.Logout(r.Context(), httputil.GetUserNII(r.Context()))
	httputil.NoContent(w)
}

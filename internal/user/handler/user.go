package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rancho/rancho-backend/internal/user/repository"
	"github.com/rancho/rancho-backend/internal/user/service"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// UserHandler handles user HTTP endpoints
type UserHandler struct {
	userService *service.UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: svc,
		logger:      log,
	}
}

// Create creates a user
// POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.userService.Create(r.Context(), httputil.GetUserNII(r.Context()), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, user)
}

// Get returns one user
// GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, user)
}

// List lists users
// GET /users — supports query params: year, role, active, q, page, per_page
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		users, err := h.userService.SearchByName(r.Context(), q)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, users)
		return
	}

	params := repository.ListParams{}

	if s := r.URL.Query().Get("year"); s != "" {
		if year, err := strconv.Atoi(s); err == nil {
			params.Year = &year
		}
	}
	if s := r.URL.Query().Get("role"); s != "" {
		params.Role = &s
	}
	if s := r.URL.Query().Get("active"); s != "" {
		if active, err := strconv.ParseBool(s); err == nil {
			params.Active = &active
		}
	}

	params.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if params.Page < 1 {
		params.Page = 1
	}
	params.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 50
	}

	users, total, err := h.userService.List(r.Context(), params)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / params.PerPage
	if int(total)%params.PerPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, users, &httputil.Meta{
		Page:       params.Page,
		PerPage:    params.PerPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Update applies admin edits to a user
// PUT /users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.userService.Update(r.Context(), httputil.GetUserNII(r.Context()), chi.URLParam(r, "id"), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, user)
}

// Delete removes a user
// DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Delete(r.Context(), httputil.GetUserNII(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// ResetPassword resets a user's password to their NII
// POST /users/{id}/reset-password
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.ResetPassword(r.Context(), httputil.GetUserNII(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Import bulk-creates users from a CSV request body
// POST /users/import
func (h *UserHandler) Import(w http.ResponseWriter, r *http.Request) {
	result, err := h.userService.ImportCSV(r.Context(), httputil.GetUserNII(r.Context()), r.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("user import failed")
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Promote advances every active student one academic year
// POST /users/promote
func (h *UserHandler) Promote(w http.ResponseWriter, r *http.Request) {
	promoted, err := h.userService.Promote(r.Context(), httputil.GetUserNII(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int64{"promoted": promoted})
}

// ChangePassword changes the caller's own password
// POST /me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Current string `json:"current_password" validate:"required"`
		Next    string `json:"new_password" validate:"required,min=6"`
	}
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.userService.ChangeOwnPassword(r.Context(), httputil.GetUserID(r.Context()), input.Current, input.Next); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// UpdateContacts updates the caller's own contacts
// PUT /me/contacts
func (h *UserHandler) UpdateContacts(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email" validate:"omitempty,email"`
		Phone string `json:"phone"`
	}
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.userService.UpdateOwnContacts(r.Context(), httputil.GetUserID(r.Context()), input.Email, input.Phone); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Me returns the caller's own profile
// GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, user)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rancho/rancho-backend/internal/absence/service"
	"github.com/rancho/rancho-backend/internal/user/domain"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// AbsenceHandler handles absence HTTP endpoints
type AbsenceHandler struct {
	absenceService *service.AbsenceService
	logger         *logger.Logger
}

// NewAbsenceHandler creates a new absence handler
func NewAbsenceHandler(svc *service.AbsenceService, log *logger.Logger) *AbsenceHandler {
	return &AbsenceHandler{
		absenceService: svc,
		logger:         log,
	}
}

func actorFrom(r *http.Request) service.Actor {
	role := httputil.GetUserRole(r.Context())
	return service.Actor{
		UserID: httputil.GetUserID(r.Context()),
		NII:    httputil.GetUserNII(r.Context()),
		CanStaff: role == domain.RoleDutyOfficer || role == domain.RoleYearCommander ||
			role == domain.RoleAdmin,
	}
}

// Create records an absence
// POST /absences
func (h *AbsenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	absence, err := h.absenceService.Create(r.Context(), actorFrom(r), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, absence)
}

// Delete removes an absence
// DELETE /absences/{id}
func (h *AbsenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.absenceService.Delete(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// ListMine returns the caller's absences
// GET /me/absences
func (h *AbsenceHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	absences, err := h.absenceService.ListByUser(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, absences)
}

// ListByUser returns the absences of one user
// GET /users/{id}/absences
func (h *AbsenceHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	absences, err := h.absenceService.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, absences)
}

// ListRange returns the absences intersecting a date range
// GET /absences?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *AbsenceHandler) ListRange(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	absences, err := h.absenceService.ListOverlapping(r.Context(), from, to)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, absences)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/calendar/repository"
	"github.com/rancho/rancho-backend/internal/calendar/service"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// CalendarHandler handles calendar HTTP endpoints
type CalendarHandler struct {
	calendarService *service.CalendarService
	audit           *auditrepo.AuditRepository
	logger          *logger.Logger
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(svc *service.CalendarService, audit *auditrepo.AuditRepository, log *logger.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendarService: svc,
		audit:           audit,
		logger:          log,
	}
}

// ListRange returns the entries between two dates
// GET /calendar?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *CalendarHandler) ListRange(w http.ResponseWriter, r *http.Request) {
	entries, err := h.calendarService.ListRange(r.Context(),
		r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, entries)
}

// Classify returns the operational kind of one date
// GET /calendar/{date}
func (h *CalendarHandler) Classify(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	kind, err := h.calendarService.Classify(r.Context(), date)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"date": date, "kind": kind})
}

// Put creates or replaces a calendar entry
// PUT /calendar/{date}
func (h *CalendarHandler) Put(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Kind string  `json:"kind" validate:"required"`
		Note *string `json:"note"`
	}
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	entry := &repository.Entry{
		Date: chi.URLParam(r, "date"),
		Kind: input.Kind,
		Note: input.Note,
	}
	if err := h.calendarService.SetEntry(r.Context(), entry); err != nil {
		httputil.Error(w, err)
		return
	}

	h.recordAudit(r, "calendar.set", entry.Date+" "+entry.Kind)
	httputil.JSON(w, http.StatusOK, entry)
}

// Delete removes a calendar entry
// DELETE /calendar/{date}
func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := h.calendarService.DeleteEntry(r.Context(), date); err != nil {
		httputil.Error(w, err)
		return
	}

	h.recordAudit(r, "calendar.delete", date)
	httputil.NoContent(w)
}

func (h *CalendarHandler) recordAudit(r *http.Request, action, detail string) {
	actor := httputil.GetUserNII(r.Context())
	if err := h.audit.RecordAdmin(r.Context(), actor, action, detail); err != nil {
		h.logger.Warn().Err(err).Str("action", action).Msg("audit record failed")
	}
}

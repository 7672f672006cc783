package handler

import (
	"net/http"
	"strconv"

	"github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// AuditHandler exposes the append-only logs to administrators
type AuditHandler struct {
	repo   *repository.AuditRepository
	logger *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(repo *repository.AuditRepository, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		repo:   repo,
		logger: log,
	}
}

func pagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	return page, perPage
}

func meta(page, perPage int, total int64) *httputil.Meta {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	return &httputil.Meta{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ListAdmin lists administrative audit entries
// GET /audit/admin — supports query params: page, per_page
func (h *AuditHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	entries, total, err := h.repo.ListAdmin(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list admin audit entries")
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, entries, meta(page, perPage, total))
}

// ListBookingLog lists booking-field changes
// GET /audit/bookings — supports query params: nii, date, page, per_page
func (h *AuditHandler) ListBookingLog(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	entries, total, err := h.repo.ListBookingLog(r.Context(),
		r.URL.Query().Get("nii"), r.URL.Query().Get("date"), page, perPage)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list booking log")
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, entries, meta(page, perPage, total))
}

// ListLogins lists authentication attempts
// GET /audit/logins — supports query params: nii, page, per_page
func (h *AuditHandler) ListLogins(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	events, total, err := h.repo.ListLogins(r.Context(), r.URL.Query().Get("nii"), page, perPage)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list login events")
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, events, meta(page, perPage, total))
}

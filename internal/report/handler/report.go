package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rancho/rancho-backend/internal/report/service"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// ReportHandler handles report HTTP endpoints
type ReportHandler struct {
	reportService *service.ReportService
	logger        *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: svc,
		logger:        log,
	}
}

// Day returns the meal totals for one date
// GET /reports/day/{date} — supports query param: year
func (h *ReportHandler) Day(w http.ResponseWriter, r *http.Request) {
	var year *int
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			httputil.Error(w, errors.BadInput("invalid year"))
			return
		}
		year = &y
	}

	totals, err := h.reportService.DayTotals(r.Context(), chi.URLParam(r, "date"), year)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, totals)
}

// Week returns the totals of the seven days starting at monday
// GET /reports/week/{monday}
func (h *ReportHandler) Week(w http.ResponseWriter, r *http.Request) {
	week, err := h.reportService.WeekTotals(r.Context(), chi.URLParam(r, "monday"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, week)
}

// Roster returns the per-user rows of one year on one date
// GET /reports/roster/{year}/{date}
func (h *ReportHandler) Roster(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httputil.Error(w, errors.BadInput("invalid year"))
		return
	}

	rows, err := h.reportService.Roster(r.Context(), year, chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rows)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rancho/rancho-backend/internal/calendar"
	"github.com/rancho/rancho-backend/internal/menu/repository"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// MenuHandler handles daily menu HTTP endpoints
type MenuHandler struct {
	repo   *repository.MenuRepository
	logger *logger.Logger
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(repo *repository.MenuRepository, log *logger.Logger) *MenuHandler {
	return &MenuHandler{
		repo:   repo,
		logger: log,
	}
}

// Get returns the menu for a date
// GET /menus/{date}
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := calendar.ParseDate(date); err != nil {
		httputil.Error(w, err)
		return
	}

	menu, err := h.repo.Get(r.Context(), date)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, menu)
}

// ListWeek returns the menus for the seven days starting at monday
// GET /menus/week/{monday}
func (h *MenuHandler) ListWeek(w http.ResponseWriter, r *http.Request) {
	monday := chi.URLParam(r, "monday")
	start, err := calendar.ParseDate(monday)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	menus, err := h.repo.ListRange(r.Context(), monday, calendar.FormatDate(start.AddDate(0, 0, 6)))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, menus)
}

// Put creates or replaces the menu for a date
// PUT /menus/{date}
func (h *MenuHandler) Put(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := calendar.ParseDate(date); err != nil {
		httputil.Error(w, err)
		return
	}

	var menu repository.Menu
	if err := httputil.DecodeJSON(r, &menu); err != nil {
		httputil.Error(w, err)
		return
	}
	menu.Date = date

	if err := h.repo.Upsert(r.Context(), &menu); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, menu)
}

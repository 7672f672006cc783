package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rancho/rancho-backend/internal/capacity/service"
	"github.com/rancho/rancho-backend/internal/meal"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// CapacityHandler handles capacity HTTP endpoints
type CapacityHandler struct {
	capacityService *service.CapacityService
	logger          *logger.Logger
}

// NewCapacityHandler creates a new capacity handler
func NewCapacityHandler(svc *service.CapacityService, log *logger.Logger) *CapacityHandler {
	return &CapacityHandler{
		capacityService: svc,
		logger:          log,
	}
}

// Occupancy returns current load and caps for every meal of a date
// GET /capacities/{date}
func (h *CapacityHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	occ, err := h.capacityService.Occupancy(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, occ)
}

// Set configures the cap for one meal on a date. A negative max removes it.
// PUT /capacities/{date}
func (h *CapacityHandler) Set(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Meal string `json:"meal" validate:"required"`
		Max  int    `json:"max"`
	}
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(input); err != nil {
		httputil.Error(w, err)
		return
	}

	err := h.capacityService.Set(r.Context(), httputil.GetUserNII(r.Context()),
		chi.URLParam(r, "date"), meal.Meal(input.Meal), input.Max)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rancho/rancho-backend/internal/booking/service"
	userservice "github.com/rancho/rancho-backend/internal/user/service"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// BookingHandler handles booking HTTP endpoints
type BookingHandler struct {
	bookingService *service.BookingService
	userService    *userservice.UserService
	logger         *logger.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *service.BookingService, users *userservice.UserService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookings,
		userService:    users,
		logger:         log,
	}
}

func actorFrom(r *http.Request) service.Actor {
	return service.Actor{
		UserID: httputil.GetUserID(r.Context()),
		NII:    httputil.GetUserNII(r.Context()),
		Role:   httputil.GetUserRole(r.Context()),
	}
}

// Get returns the caller's booking for a date
// GET /bookings/{date}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookingService.Get(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, booking)
}

// Week returns the caller's bookings for the week starting at monday
// GET /bookings/week/{monday}
func (h *BookingHandler) Week(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.Week(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "monday"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bookings)
}

// Edit writes the caller's own booking for a date
// PUT /bookings/{date}
func (h *BookingHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var fields service.Fields
	if err := httputil.DecodeJSON(r, &fields); err != nil {
		httputil.Error(w, err)
		return
	}

	actor := actorFrom(r)
	booking, err := h.bookingService.Edit(r.Context(), service.EditInput{
		UserID:  actor.UserID,
		UserNII: actor.NII,
		Date:    chi.URLParam(r, "date"),
		Fields:  fields,
		Actor:   actor,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, booking)
}

// Override writes another user's booking, bypassing the edit window
// PUT /bookings/{date}/users/{id}
func (h *BookingHandler) Override(w http.ResponseWriter, r *http.Request) {
	var fields service.Fields
	if err := httputil.DecodeJSON(r, &fields); err != nil {
		httputil.Error(w, err)
		return
	}

	target, err := h.userService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	booking, err := h.bookingService.Edit(r.Context(), service.EditInput{
		UserID:   target.ID,
		UserNII:  target.NII,
		Date:     chi.URLParam(r, "date"),
		Fields:   fields,
		Actor:    actorFrom(r),
		Override: true,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, booking)
}

// GetForUser returns another user's booking for a date, for staff panels
// GET /bookings/{date}/users/{id}
func (h *BookingHandler) GetForUser(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookingService.Get(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "date"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, booking)
}

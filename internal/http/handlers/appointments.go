package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/hospital-voicebot/internal/appointments"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// AppointmentService is the slice of appointments.Service the API uses.
type AppointmentService interface {
	Book(ctx context.Context, req appointments.BookingRequest) appointments.Result
	Cancel(ctx context.Context, id, reason string) appointments.Result
	Reschedule(ctx context.Context, id, date, time string) appointments.Result
	GetAppointment(ctx context.Context, id string) (*appointments.Appointment, error)
	GetDoctorAvailability(ctx context.Context, doctor, date string) ([]string, error)
	UpcomingAppointments(ctx context.Context) ([]appointments.Appointment, error)
	Statistics(ctx context.Context) (appointments.Statistics, error)
}

// AppointmentHandler serves the /api/appointments routes.
type AppointmentHandler struct {
	svc    AppointmentService
	logger *logging.Logger
}

func NewAppointmentHandler(svc AppointmentService, logger *logging.Logger) *AppointmentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentHandler{svc: svc, logger: logger}
}

// Book handles POST /api/appointments/book. Booking rejections are 200
// responses with success=false.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req appointments.BookingRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Book(r.Context(), req))
}

func (h *AppointmentHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.UpcomingAppointments(r.Context())
	if err != nil {
		h.logger.Error("list upcoming appointments failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"count":        len(list),
		"appointments": list,
	})
}

func (h *AppointmentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.logger.Error("appointment stats failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// Availability handles GET /api/appointments/availability/{doctorName}?date=.
func (h *AppointmentHandler) Availability(w http.ResponseWriter, r *http.Request) {
	doctor := strings.TrimSpace(chi.URLParam(r, "doctorName"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))

	slots, err := h.svc.GetDoctorAvailability(r.Context(), doctor, date)
	if err != nil {
		var apptErr *appointments.Error
		if errors.As(err, &apptErr) {
			jsonError(w, apptErr.Message, http.StatusBadRequest)
			return
		}
		h.logger.Error("availability lookup failed", "error", err, "doctor", doctor)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	label := date
	if label == "" {
		label = "general"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"doctor":         doctor,
		"date":           label,
		"availableSlots": slots,
	})
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appt, err := h.svc.GetAppointment(r.Context(), id)
	if errors.Is(err, appointments.ErrNotFound) {
		jsonError(w, "Appointment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("get appointment failed", "error", err, "appointment_id", id)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointment": appt})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason))
}

type rescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Reschedule(r.Context(), chi.URLParam(r, "id"), req.NewDate, req.NewTime))
}

// Package appointments books doctor appointments into 30-minute slots.
package appointments

import (
	"errors"
	"fmt"
	"time"
)

// Status of an appointment.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Appointment is one booked slot. Date is YYYY-MM-DD and Time a 12-hour slot
// label such as "9:00 AM".
type Appointment struct {
	ID                 string     `json:"appointmentId"`
	DoctorName         string     `json:"doctorName"`
	PatientName        string     `json:"patientName"`
	PatientPhone       string     `json:"patientPhone"`
	Date               string     `json:"appointmentDate"`
	Time               string     `json:"appointmentTime"`
	Status             Status     `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	Notes              string     `json:"notes"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	Rescheduled        bool       `json:"rescheduled,omitempty"`
	RescheduledAt      *time.Time `json:"rescheduledAt,omitempty"`
}

// BookingRequest is what callers supply to book a slot. PreferredTime is
// optional; without it the first free slot is taken.
type BookingRequest struct {
	DoctorName    string `json:"doctor_name"`
	PatientName   string `json:"patient_name"`
	PatientPhone  string `json:"patient_phone"`
	PreferredDate string `json:"preferred_date"`
	PreferredTime string `json:"preferred_time,omitempty"`
}

// Result is the caller-facing outcome of a mutation.
type Result struct {
	Success       bool         `json:"success"`
	AppointmentID string       `json:"appointmentId,omitempty"`
	Appointment   *Appointment `json:"appointment,omitempty"`
	Message       string       `json:"message"`
}

// Statistics summarizes the appointment book.
type Statistics struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Upcoming  int `json:"upcoming"`
}

var (
	ErrMissingFields     = errors.New("appointments: missing required fields")
	ErrInvalidDate       = errors.New("appointments: invalid date")
	ErrPastDate          = errors.New("appointments: date is in the past")
	ErrDoctorUnavailable = errors.New("appointments: doctor not available on date")
	ErrSlotUnavailable   = errors.New("appointments: slot not available")
	ErrNotFound          = errors.New("appointments: not found")
	ErrAlreadyCancelled  = errors.New("appointments: already cancelled")
)

// Error pairs a sentinel with the message spoken back to the patient.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

func fail(sentinel error, msg string) error {
	return &Error{Err: sentinel, Message: msg}
}

func errNotFound() error { return fail(ErrNotFound, "Appointment not found") }

// errSlotTaken reports a slot claimed by another writer after availability
// was checked.
func errSlotTaken(a Appointment) error {
	return fail(ErrSlotUnavailable, fmt.Sprintf("Sorry, %s on %s with %s was just booked. Please choose another time.", a.Time, a.Date, a.DoctorName))
}

// conflicts reports whether b holds the confirmed slot a wants.
func conflicts(a, b Appointment) bool {
	return a.Status == StatusConfirmed && b.Status == StatusConfirmed && a.ID != b.ID &&
		a.DoctorName == b.DoctorName && a.Date == b.Date && a.Time == b.Time
}

// ResultFromError converts a mutation error into a failed Result. Errors that
// carry no patient-facing message get a generic one.
func ResultFromError(err error) Result {
	var e *Error
	if errors.As(err, &e) {
		return Result{Success: false, Message: e.Message}
	}
	return Result{Success: false, Message: "Unable to process the appointment right now. Please try again."}
}

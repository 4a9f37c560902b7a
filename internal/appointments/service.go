package appointments

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

var appointmentsTracer = otel.Tracer("hospital.internal.appointments")

const (
	upcomingWindowDays = 7
	suggestedSlots     = 5
	idAlphabet         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Service books, cancels and reschedules appointments. Read-modify-write
// sequences are serialized so two callers cannot take the same slot.
type Service struct {
	store     Store
	schedules Schedules
	now       func() time.Time
	metrics   *metrics.AppointmentMetrics
	logger    *logging.Logger

	mu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

func WithSchedules(s Schedules) Option { return func(svc *Service) { svc.schedules = s } }

func WithClock(now func() time.Time) Option { return func(svc *Service) { svc.now = now } }

func WithMetrics(m *metrics.AppointmentMetrics) Option { return func(svc *Service) { svc.metrics = m } }

func WithLogger(l *logging.Logger) Option { return func(svc *Service) { svc.logger = l } }

func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	s := &Service{
		store:     store,
		schedules: Schedules{Default: DefaultSchedule()},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

func (s *Service) today() string {
	return s.now().UTC().Format(dateLayout)
}

// normalizeSlot turns "9:00 am" into "9:00 AM"; unparseable input is returned trimmed.
func normalizeSlot(raw string) string {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(slotLayout, strings.ToUpper(raw))
	if err != nil {
		return raw
	}
	return t.Format(slotLayout)
}

func (s *Service) available(list []Appointment, doctor string, date string, day time.Weekday) []string {
	schedule := s.schedules.slots(doctor, day)
	if len(schedule) == 0 {
		return []string{}
	}
	booked := make(map[string]bool)
	for _, a := range list {
		if a.DoctorName == doctor && a.Date == date && a.Status == StatusConfirmed {
			booked[a.Time] = true
		}
	}
	out := make([]string, 0, len(schedule))
	for _, slot := range schedule {
		if !booked[slot] {
			out = append(out, slot)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func firstSlots(slots []string) string {
	if len(slots) <= suggestedSlots {
		return strings.Join(slots, ", ")
	}
	return strings.Join(slots[:suggestedSlots], ", ") + "..."
}

func (s *Service) newID(list []Appointment) string {
	taken := make(map[string]bool, len(list))
	for _, a := range list {
		taken[a.ID] = true
	}
	for {
		ms := strconv.FormatInt(s.now().UnixMilli(), 10)
		if len(ms) > 8 {
			ms = ms[len(ms)-8:]
		}
		var b strings.Builder
		b.WriteString("APT")
		b.WriteString(ms)
		for i := 0; i < 4; i++ {
			b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
		}
		if id := b.String(); !taken[id] {
			return id
		}
	}
}

func (s *Service) observe(action string, err error) {
	status := "ok"
	var e *Error
	switch {
	case err == nil:
	case errors.As(err, &e):
		status = "rejected"
	default:
		status = "error"
	}
	s.metrics.Observe(action, status)
}

// CreateAppointment books the preferred slot, or the first free slot on the
// preferred date when no time is given.
func (s *Service) CreateAppointment(ctx context.Context, req BookingRequest) (appt *Appointment, err error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("appointment.doctor", req.DoctorName),
		attribute.String("appointment.date", req.PreferredDate),
	)
	defer func() {
		s.observe("create", err)
		if err != nil {
			span.RecordError(err)
		}
	}()

	if strings.TrimSpace(req.DoctorName) == "" || strings.TrimSpace(req.PatientName) == "" ||
		strings.TrimSpace(req.PatientPhone) == "" || strings.TrimSpace(req.PreferredDate) == "" {
		return nil, fail(ErrMissingFields, "Missing required appointment information")
	}
	date, day, err := NormalizeDate(req.PreferredDate)
	if err != nil {
		return nil, err
	}
	if date < s.today() {
		return nil, fail(ErrPastDate, "Cannot book appointments for past dates")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	slots := s.available(list, req.DoctorName, date, day.Weekday())
	if len(slots) == 0 {
		return nil, fail(ErrDoctorUnavailable, fmt.Sprintf("Sorry, %s is not available on %s. Please choose another date.", req.DoctorName, date))
	}

	slot := slots[0]
	if strings.TrimSpace(req.PreferredTime) != "" {
		slot = normalizeSlot(req.PreferredTime)
		if !contains(slots, slot) {
			return nil, fail(ErrSlotUnavailable, fmt.Sprintf("Sorry, %s is not available. Available times: %s", req.PreferredTime, firstSlots(slots)))
		}
	}

	a := Appointment{
		ID:           s.newID(list),
		DoctorName:   req.DoctorName,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		Date:         date,
		Time:         slot,
		Status:       StatusConfirmed,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("appointment booked", "appointment_id", a.ID, "doctor", a.DoctorName, "date", a.Date, "time", a.Time)
	return &a, nil
}

// Book wraps CreateAppointment in a caller-facing Result.
func (s *Service) Book(ctx context.Context, req BookingRequest) Result {
	a, err := s.CreateAppointment(ctx, req)
	if err != nil {
		if !isPatientError(err) {
			s.logger.Error("appointment booking failed", "error", err)
		}
		return ResultFromError(err)
	}
	return Result{
		Success:       true,
		AppointmentID: a.ID,
		Appointment:   a,
		Message:       fmt.Sprintf("Appointment confirmed with %s on %s at %s", a.DoctorName, a.Date, a.Time),
	}
}

func isPatientError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// GetDoctorAvailability lists free slots for the doctor on date, defaulting
// to tomorrow.
func (s *Service) GetDoctorAvailability(ctx context.Context, doctor, date string) ([]string, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		day = s.now().UTC().AddDate(0, 0, 1)
		date = day.Format(dateLayout)
	} else {
		var err error
		if date, day, err = NormalizeDate(date); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.available(list, doctor, date, day.Weekday()), nil
}

// GetAppointment returns ErrNotFound for unknown ids.
func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, errNotFound()
}

// PatientAppointments returns every appointment booked under phone.
func (s *Service) PatientAppointments(ctx context.Context, phone string) ([]Appointment, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []Appointment{}
	for _, a := range list {
		if a.PatientPhone == phone {
			out = append(out, a)
		}
	}
	return out, nil
}

// DoctorAppointments returns the doctor's confirmed appointments in time
// order, optionally limited to one date.
func (s *Service) DoctorAppointments(ctx context.Context, doctor, date string) ([]Appointment, error) {
	if date != "" {
		var err error
		if date, _, err = NormalizeDate(date); err != nil {
			return nil, err
		}
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []Appointment{}
	for _, a := range list {
		if a.DoctorName != doctor || a.Status != StatusConfirmed {
			continue
		}
		if date != "" && a.Date != date {
			continue
		}
		out = append(out, a)
	}
	sortBySlot(out)
	return out, nil
}

func sortBySlot(list []Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		return slotTime(list[i]).Before(slotTime(list[j]))
	})
}

// CancelAppointment marks an appointment cancelled and frees its slot.
func (s *Service) CancelAppointment(ctx context.Context, id, reason string) (appt *Appointment, err error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id))
	defer func() {
		s.observe("cancel", err)
		if err != nil {
			span.RecordError(err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return nil, fail(ErrAlreadyCancelled, "Appointment is already cancelled")
	}
	now := s.now().UTC()
	a.Status = StatusCancelled
	a.CancellationReason = reason
	a.CancelledAt = &now
	if err := s.store.Update(ctx, *a); err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", a.ID)
	return a, nil
}

// Cancel wraps CancelAppointment in a caller-facing Result.
func (s *Service) Cancel(ctx context.Context, id, reason string) Result {
	a, err := s.CancelAppointment(ctx, id, reason)
	if err != nil {
		if !isPatientError(err) {
			s.logger.Error("appointment cancel failed", "error", err, "appointment_id", id)
		}
		return ResultFromError(err)
	}
	return Result{Success: true, AppointmentID: a.ID, Appointment: a, Message: "Appointment cancelled successfully"}
}

// RescheduleAppointment moves a confirmed appointment to a free slot.
func (s *Service) RescheduleAppointment(ctx context.Context, id, newDate, newTime string) (appt *Appointment, err error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("appointment.id", id),
		attribute.String("appointment.date", newDate),
	)
	defer func() {
		s.observe("reschedule", err)
		if err != nil {
			span.RecordError(err)
		}
	}()

	if strings.TrimSpace(newDate) == "" || strings.TrimSpace(newTime) == "" {
		return nil, fail(ErrMissingFields, "A new date and time are required to reschedule")
	}
	date, day, err := NormalizeDate(newDate)
	if err != nil {
		return nil, err
	}
	if date < s.today() {
		return nil, fail(ErrPastDate, "Cannot book appointments for past dates")
	}
	slot := normalizeSlot(newTime)

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return nil, fail(ErrAlreadyCancelled, "Appointment is already cancelled")
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	slots := s.available(list, a.DoctorName, date, day.Weekday())
	if !contains(slots, slot) {
		return nil, fail(ErrSlotUnavailable, fmt.Sprintf("Doctor not available at %s on %s. Available times: %s", newTime, date, strings.Join(firstN(slots, suggestedSlots), ", ")))
	}

	now := s.now().UTC()
	a.Date = date
	a.Time = slot
	a.Rescheduled = true
	a.RescheduledAt = &now
	if err := s.store.Update(ctx, *a); err != nil {
		return nil, err
	}
	s.logger.Info("appointment rescheduled", "appointment_id", a.ID, "date", a.Date, "time", a.Time)
	return a, nil
}

// Reschedule wraps RescheduleAppointment in a caller-facing Result.
func (s *Service) Reschedule(ctx context.Context, id, newDate, newTime string) Result {
	a, err := s.RescheduleAppointment(ctx, id, newDate, newTime)
	if err != nil {
		if !isPatientError(err) {
			s.logger.Error("appointment reschedule failed", "error", err, "appointment_id", id)
		}
		return ResultFromError(err)
	}
	return Result{
		Success:       true,
		AppointmentID: a.ID,
		Appointment:   a,
		Message:       fmt.Sprintf("Appointment rescheduled to %s at %s", a.Date, a.Time),
	}
}

func firstN(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

// UpcomingAppointments returns confirmed appointments dated today through
// seven days out, in time order.
func (s *Service) UpcomingAppointments(ctx context.Context) ([]Appointment, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.upcoming(list), nil
}

func (s *Service) upcoming(list []Appointment) []Appointment {
	today := s.now().UTC()
	from := today.Format(dateLayout)
	to := today.AddDate(0, 0, upcomingWindowDays).Format(dateLayout)
	out := []Appointment{}
	for _, a := range list {
		if a.Status == StatusConfirmed && a.Date >= from && a.Date <= to {
			out = append(out, a)
		}
	}
	sortBySlot(out)
	return out
}

// Statistics counts appointments by status.
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return Statistics{}, err
	}
	st := Statistics{Total: len(list), Upcoming: len(s.upcoming(list))}
	for _, a := range list {
		switch a.Status {
		case StatusConfirmed:
			st.Confirmed++
		case StatusCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

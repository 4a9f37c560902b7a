package appointments

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// Wednesday.
var fixedNow = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

const doctor = "Dr. Harish Puranik"

func newTestService(t *testing.T, opts ...Option) (*Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewAppointmentMetrics(reg)
	store := NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithMetrics(m),
		WithLogger(logging.Discard()),
	}
	return NewService(store, append(base, opts...)...), reg
}

func counterValue(t *testing.T, reg *prometheus.Registry, action, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "hospital_appointments_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["action"] == action && labels["status"] == status {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func booking(date, slot string) BookingRequest {
	return BookingRequest{
		DoctorName:    doctor,
		PatientName:   "Asha",
		PatientPhone:  "+919800000001",
		PreferredDate: date,
		PreferredTime: slot,
	}
}

func TestBookTakesFirstFreeSlot(t *testing.T) {
	svc, reg := newTestService(t)
	ctx := context.Background()

	res := svc.Book(ctx, booking("2026-10-15", ""))
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Appointment)
	assert.Regexp(t, regexp.MustCompile(`^APT\d{8}[A-Z0-9]{4}$`), res.AppointmentID)
	assert.Equal(t, "9:00 AM", res.Appointment.Time)
	assert.Equal(t, StatusConfirmed, res.Appointment.Status)
	assert.Equal(t, "Appointment confirmed with Dr. Harish Puranik on 2026-10-15 at 9:00 AM", res.Message)

	second := svc.Book(ctx, booking("2026-10-15", ""))
	require.True(t, second.Success)
	assert.Equal(t, "9:30 AM", second.Appointment.Time)
	assert.NotEqual(t, res.AppointmentID, second.AppointmentID)

	assert.Equal(t, 2.0, counterValue(t, reg, "create", "ok"))
}

func TestBookRejectsTakenSlot(t *testing.T) {
	svc, reg := newTestService(t)
	ctx := context.Background()

	require.True(t, svc.Book(ctx, booking("2026-10-15", "9:00 AM")).Success)

	res := svc.Book(ctx, booking("2026-10-15", "9:00 AM"))
	assert.False(t, res.Success)
	assert.Equal(t, "Sorry, 9:00 AM is not available. Available times: 9:30 AM, 10:00 AM, 10:30 AM, 11:00 AM, 11:30 AM...", res.Message)

	_, err := svc.CreateAppointment(ctx, booking("2026-10-15", "9:00 AM"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Equal(t, 2.0, counterValue(t, reg, "create", "rejected"))
}

func TestBookNormalizesInput(t *testing.T) {
	svc, _ := newTestService(t)

	a, err := svc.CreateAppointment(context.Background(), booking("2026-10-15T00:00:00.000Z", "2:30 pm"))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", a.Date)
	assert.Equal(t, "2:30 PM", a.Time)
}

func TestBookValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  BookingRequest
		want error
		msg  string
	}{
		{"missing patient", BookingRequest{DoctorName: doctor, PatientPhone: "1", PreferredDate: "2026-10-15"}, ErrMissingFields, "Missing required appointment information"},
		{"bad date", booking("15/10/2026", ""), ErrInvalidDate, ""},
		{"past date", booking("2026-10-13", ""), ErrPastDate, "Cannot book appointments for past dates"},
		{"sunday", booking("2026-10-18", ""), ErrDoctorUnavailable, "Sorry, Dr. Harish Puranik is not available on 2026-10-18. Please choose another date."},
		{"outside hours", booking("2026-10-15", "1:00 PM"), ErrSlotUnavailable, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateAppointment(ctx, tc.req)
			require.ErrorIs(t, err, tc.want)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, ResultFromError(err).Message)
			}
		})
	}

	// Same-day bookings are allowed.
	_, err := svc.CreateAppointment(ctx, booking("2026-10-14", "4:00 PM"))
	assert.NoError(t, err)
}

func TestSaturdayHasMorningSlotsOnly(t *testing.T) {
	svc, _ := newTestService(t)

	slots, err := svc.GetDoctorAvailability(context.Background(), doctor, "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00 AM", "9:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM"}, slots)
}

func TestAvailabilityDefaultsToTomorrow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	slots, err := svc.GetDoctorAvailability(ctx, doctor, "")
	require.NoError(t, err)
	assert.Len(t, slots, 14)

	_, err = svc.CreateAppointment(ctx, booking("2026-10-15", "10:00 AM"))
	require.NoError(t, err)

	slots, err = svc.GetDoctorAvailability(ctx, doctor, "")
	require.NoError(t, err)
	assert.Len(t, slots, 13)
	assert.NotContains(t, slots, "10:00 AM")

	other, err := svc.GetDoctorAvailability(ctx, "Dr. Meera Rao", "2026-10-15")
	require.NoError(t, err)
	assert.Len(t, other, 14)
}

func TestDoctorScheduleOverride(t *testing.T) {
	svc, _ := newTestService(t, WithSchedules(Schedules{
		Default: DefaultSchedule(),
		Doctors: map[string]Schedule{doctor: {time.Thursday: {"8:00 AM"}}},
	}))
	ctx := context.Background()

	slots, err := svc.GetDoctorAvailability(ctx, doctor, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"8:00 AM"}, slots)

	slots, err = svc.GetDoctorAvailability(ctx, doctor, "2026-10-16")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCancelAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	booked := svc.Book(ctx, booking("2026-10-15", "9:00 AM"))
	require.True(t, booked.Success)

	res := svc.Cancel(ctx, booked.AppointmentID, "feeling better")
	require.True(t, res.Success)
	assert.Equal(t, "Appointment cancelled successfully", res.Message)
	assert.Equal(t, StatusCancelled, res.Appointment.Status)
	assert.Equal(t, "feeling better", res.Appointment.CancellationReason)
	require.NotNil(t, res.Appointment.CancelledAt)

	again := svc.Cancel(ctx, booked.AppointmentID, "")
	assert.False(t, again.Success)
	assert.Equal(t, "Appointment is already cancelled", again.Message)

	missing := svc.Cancel(ctx, "APT00000000XXXX", "")
	assert.False(t, missing.Success)
	assert.Equal(t, "Appointment not found", missing.Message)

	// The slot is free again.
	rebooked := svc.Book(ctx, booking("2026-10-15", "9:00 AM"))
	assert.True(t, rebooked.Success)

	stored, err := svc.GetAppointment(ctx, booked.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
}

func TestRescheduleAppointment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := svc.Book(ctx, booking("2026-10-15", "9:00 AM"))
	second := svc.Book(ctx, booking("2026-10-15", "9:30 AM"))
	require.True(t, first.Success)
	require.True(t, second.Success)

	clash := svc.Reschedule(ctx, second.AppointmentID, "2026-10-15", "9:00 AM")
	assert.False(t, clash.Success)
	assert.Equal(t, "Doctor not available at 9:00 AM on 2026-10-15. Available times: 10:00 AM, 10:30 AM, 11:00 AM, 11:30 AM, 2:00 PM", clash.Message)

	moved := svc.Reschedule(ctx, second.AppointmentID, "2026-10-16", "3:00 PM")
	require.True(t, moved.Success, moved.Message)
	assert.Equal(t, "Appointment rescheduled to 2026-10-16 at 3:00 PM", moved.Message)
	assert.True(t, moved.Appointment.Rescheduled)
	require.NotNil(t, moved.Appointment.RescheduledAt)

	slots, err := svc.GetDoctorAvailability(ctx, doctor, "2026-10-15")
	require.NoError(t, err)
	assert.Contains(t, slots, "9:30 AM")

	assert.Equal(t, "Appointment not found", svc.Reschedule(ctx, "nope", "2026-10-16", "9:00 AM").Message)

	require.True(t, svc.Cancel(ctx, first.AppointmentID, "").Success)
	_, err = svc.RescheduleAppointment(ctx, first.AppointmentID, "2026-10-16", "9:00 AM")
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustBook := func(req BookingRequest) *Appointment {
		a, err := svc.CreateAppointment(ctx, req)
		require.NoError(t, err)
		return a
	}

	late := mustBook(booking("2026-10-21", "4:00 PM"))
	early := mustBook(booking("2026-10-15", "11:00 AM"))
	earliest := mustBook(booking("2026-10-15", "9:00 AM"))
	outside := mustBook(booking("2026-10-22", "9:00 AM"))
	otherReq := booking("2026-10-16", "9:00 AM")
	otherReq.DoctorName = "Dr. Meera Rao"
	otherReq.PatientPhone = "+919800000002"
	other := mustBook(otherReq)
	cancelled := mustBook(booking("2026-10-16", "10:00 AM"))
	_, err := svc.CancelAppointment(ctx, cancelled.ID, "")
	require.NoError(t, err)

	upcoming, err := svc.UpcomingAppointments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{earliest.ID, early.ID, other.ID, late.ID}, ids(upcoming))

	byDoctor, err := svc.DoctorAppointments(ctx, doctor, "")
	require.NoError(t, err)
	assert.Equal(t, []string{earliest.ID, early.ID, late.ID, outside.ID}, ids(byDoctor))

	onDate, err := svc.DoctorAppointments(ctx, doctor, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, []string{earliest.ID, early.ID}, ids(onDate))

	byPatient, err := svc.PatientAppointments(ctx, "+919800000002")
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids(byPatient))

	none, err := svc.PatientAppointments(ctx, "+10000000000")
	require.NoError(t, err)
	assert.Empty(t, none)

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, Statistics{Total: 6, Confirmed: 5, Cancelled: 1, Upcoming: 4}, stats)
}

func ids(list []Appointment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestConcurrentBookingsTakeDistinctSlots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CreateAppointment(ctx, booking("2026-10-15", "9:00 AM")); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}

type failingStore struct{ Store }

var errStoreDown = errors.New("store down")

func (failingStore) List(context.Context) ([]Appointment, error) { return nil, errStoreDown }

func TestStoreFailureIsNotPatientFacing(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAppointmentMetrics(reg)
	svc := NewService(failingStore{}, WithClock(func() time.Time { return fixedNow }), WithMetrics(m), WithLogger(logging.Discard()))

	res := svc.Book(context.Background(), booking("2026-10-15", ""))
	assert.False(t, res.Success)
	assert.Equal(t, "Unable to process the appointment right now. Please try again.", res.Message)
	assert.Equal(t, 1.0, counterValue(t, reg, "create", "error"))
}

// listBarrier holds every List call until n callers have read the book, so
// separate services see the same free slot before either writes.
type listBarrier struct {
	Store
	wg *sync.WaitGroup
}

func (b listBarrier) List(ctx context.Context) ([]Appointment, error) {
	list, err := b.Store.List(ctx)
	b.wg.Done()
	b.wg.Wait()
	return list, err
}

func TestSeparateServicesCannotDoubleBookSlot(t *testing.T) {
	shared := NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	var gate sync.WaitGroup
	gate.Add(2)
	store := listBarrier{Store: shared, wg: &gate}

	newSvc := func() *Service {
		return NewService(store, WithClock(func() time.Time { return fixedNow }), WithLogger(logging.Discard()))
	}
	replicas := []*Service{newSvc(), newSvc()}

	results := make([]Result, len(replicas))
	var wg sync.WaitGroup
	for i, svc := range replicas {
		wg.Add(1)
		go func(i int, svc *Service) {
			defer wg.Done()
			results[i] = svc.Book(context.Background(), booking("2026-10-15", "9:00 AM"))
		}(i, svc)
	}
	wg.Wait()

	booked := 0
	for _, res := range results {
		if res.Success {
			booked++
		} else {
			assert.Contains(t, res.Message, "was just booked")
		}
	}
	assert.Equal(t, 1, booked)

	list, err := shared.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

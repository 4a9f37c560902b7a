// Package voice adapts the retrieval and appointment services to the tool
// calls made by hosted voice platforms (Vapi and Retell).
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/hospital-voicebot/internal/appointments"
	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/internal/retrieval"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

var (
	ErrUnknownFunction  = errors.New("voice: unknown function")
	ErrInvalidArguments = errors.New("voice: invalid function arguments")
)

const (
	availabilityPreview = 6

	noSpecialistsMessage = "I couldn't find specific specialists for that condition. Let me recommend our general physicians."
)

var specialtySuffix = regexp.MustCompile(`(?i)\s+(Surgeon|Surgery)$`)

// DoctorFinder resolves symptoms to recommendations.
type DoctorFinder interface {
	GenerateVoiceBotResponse(ctx context.Context, query string) (*retrieval.Response, error)
}

// Directory lists every doctor profile.
type Directory interface {
	AllDoctors() []knowledge.Doctor
}

// Scheduler books appointments and reports free slots.
type Scheduler interface {
	Book(ctx context.Context, req appointments.BookingRequest) appointments.Result
	GetDoctorAvailability(ctx context.Context, doctor, date string) ([]string, error)
}

// Doctor is the spoken view of a doctor in function results.
type Doctor struct {
	Name              string        `json:"name"`
	Specialty         string        `json:"specialty"`
	OriginalSpecialty string        `json:"originalSpecialty"`
	Experience        string        `json:"experience"`
	Fee               knowledge.Fee `json:"fee"`
	Languages         string        `json:"languages"`
	TopExpertise      string        `json:"topExpertise"`
	WhyRecommend      string        `json:"whyRecommend"`
}

// Result is what a function call returns to the platform. Message is the
// line the assistant reads aloud.
type Result struct {
	Success        bool     `json:"success"`
	Query          string   `json:"query,omitempty"`
	DoctorsFound   int      `json:"doctorsFound,omitempty"`
	Doctors        []Doctor `json:"doctors,omitempty"`
	AppointmentID  string   `json:"appointmentId,omitempty"`
	Doctor         string   `json:"doctor,omitempty"`
	AvailableSlots []string `json:"availableSlots,omitempty"`
	Error          string   `json:"error,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// Speech returns the message, or the JSON form of the result when there is none.
func (r *Result) Speech() string {
	if r.Message != "" {
		return r.Message
	}
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

type findDoctorArgs struct {
	Symptoms string `json:"symptoms"`
}

type doctorNameArgs struct {
	DoctorName string `json:"doctor_name"`
	Date       string `json:"date"`
}

// Options wires a Dispatcher.
type Options struct {
	Finder    DoctorFinder
	Directory Directory
	Scheduler Scheduler
	Metrics   *metrics.VoiceMetrics
	Logger    *logging.Logger
}

// Dispatcher executes named function calls.
type Dispatcher struct {
	finder    DoctorFinder
	directory Directory
	scheduler Scheduler
	metrics   *metrics.VoiceMetrics
	logger    *logging.Logger
}

func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Finder == nil || opts.Directory == nil || opts.Scheduler == nil {
		return nil, errors.New("voice: finder, directory and scheduler are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		finder:    opts.Finder,
		directory: opts.Directory,
		scheduler: opts.Scheduler,
		metrics:   opts.Metrics,
		logger:    logger.Component("voice"),
	}, nil
}

// Dispatch runs one function call for platform. Arguments may be a JSON
// object or a JSON string holding one.
func (d *Dispatcher) Dispatch(ctx context.Context, platform, name string, args json.RawMessage) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		switch {
		case err != nil:
			status = "error"
		case !res.Success:
			status = "failed"
		}
		d.metrics.ObserveFunctionCall(platform, name, status)
		d.logger.Info("voice function handled",
			"platform", platform,
			"function", name,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	switch name {
	case FuncFindDoctor:
		var a findDoctorArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return d.findDoctor(ctx, a.Symptoms)
	case FuncFindDoctorByName:
		var a doctorNameArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return d.findDoctorByName(a.DoctorName), nil
	case FuncBookAppointment:
		var a appointments.BookingRequest
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return d.bookAppointment(ctx, a), nil
	case FuncGetDoctorAvailability:
		var a doctorNameArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return d.availability(ctx, a)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		if strings.TrimSpace(inner) == "" {
			return nil
		}
		raw = json.RawMessage(inner)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func normalizeSpecialty(s string) string {
	return specialtySuffix.ReplaceAllString(s, "")
}

func titled(name string) string {
	if strings.HasPrefix(name, "Dr.") {
		return name
	}
	return "Dr. " + name
}

// listNames joins names as "A", "A, and B" or "A, B, and C".
func listNames(docs []Doctor) string {
	var b strings.Builder
	for i, doc := range docs {
		switch {
		case i == 0:
		case i == len(docs)-1:
			b.WriteString(", and ")
		default:
			b.WriteString(", ")
		}
		b.WriteString(titled(doc.Name))
	}
	return b.String()
}

func (d *Dispatcher) findDoctor(ctx context.Context, symptoms string) (*Result, error) {
	resp, err := d.finder.GenerateVoiceBotResponse(ctx, symptoms)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return &Result{Success: false, Query: symptoms, Error: resp.Error, Message: resp.Message}, nil
	}

	docs := make([]Doctor, 0, len(resp.Doctors))
	for _, fd := range resp.Doctors {
		docs = append(docs, Doctor{
			Name:              fd.Name,
			Specialty:         normalizeSpecialty(fd.Specialty),
			OriginalSpecialty: fd.Specialty,
			Experience:        fd.Experience,
			Fee:               fd.Fee,
			Languages:         fd.Languages,
			TopExpertise:      fd.Expertise,
			WhyRecommend:      fd.Recommendation,
		})
	}

	msg := noSpecialistsMessage
	if len(docs) > 0 {
		plural := ""
		if len(docs) > 1 {
			plural = "s"
		}
		msg = fmt.Sprintf("I found %d specialist%s who can help: %s. Could you tell me a bit more about your specific symptoms or concerns?",
			len(docs), plural, listNames(docs))
	}
	return &Result{
		Success:      true,
		Query:        symptoms,
		DoctorsFound: len(docs),
		Doctors:      docs,
		Message:      msg,
	}, nil
}

func profileView(doc knowledge.Doctor) Doctor {
	expertise := doc.KeyExpertise
	if len(expertise) > 3 {
		expertise = expertise[:3]
	}
	return Doctor{
		Name:              doc.Name,
		Specialty:         normalizeSpecialty(doc.Specialty),
		OriginalSpecialty: doc.Specialty,
		Experience:        fmt.Sprintf("%d years", doc.ExperienceYears),
		Fee:               doc.ConsultationFee,
		Languages:         strings.Join(doc.Languages, ", "),
		TopExpertise:      strings.Join(expertise, ", "),
		WhyRecommend:      doc.WhyRecommend,
	}
}

func (d *Dispatcher) findDoctorByName(name string) *Result {
	matches := MatchDoctorsByName(d.directory.AllDoctors(), name)
	if len(matches) == 0 {
		return &Result{
			Success: false,
			Query:   name,
			Message: fmt.Sprintf("I'm sorry, I cannot find a doctor named \"%s\". Could you please check the spelling or tell me what symptoms you're experiencing so I can find the right specialist for you?", name),
		}
	}

	shown := matches
	if len(shown) > maxNameMatches {
		shown = shown[:maxNameMatches]
	}
	docs := make([]Doctor, len(shown))
	for i, m := range shown {
		docs[i] = profileView(m)
	}

	var msg string
	if len(matches) == 1 {
		msg = fmt.Sprintf("I found 1 specialist who can help: %s. Could you tell me a bit more about your specific symptoms or concerns?", titled(docs[0].Name))
	} else {
		msg = fmt.Sprintf("I found %d specialists with similar names: %s. Which one would you like to book with?", len(docs), listNames(docs))
	}
	return &Result{
		Success:      true,
		Query:        name,
		DoctorsFound: len(matches),
		Doctors:      docs,
		Message:      msg,
	}
}

func (d *Dispatcher) bookAppointment(ctx context.Context, req appointments.BookingRequest) *Result {
	out := d.scheduler.Book(ctx, req)
	if !out.Success {
		return &Result{Success: false, Message: out.Message}
	}
	a := out.Appointment
	return &Result{
		Success:       true,
		AppointmentID: out.AppointmentID,
		Message: fmt.Sprintf("Perfect! Your appointment is confirmed with %s on %s at %s. You'll receive a confirmation SMS at %s. The appointment reference number is %s.",
			a.DoctorName, a.Date, a.Time, a.PatientPhone, out.AppointmentID),
	}
}

// spokenDate renders 2026-10-15 as "Thursday, October 15".
func spokenDate(date string) string {
	if date == "" {
		return "that date"
	}
	_, t, err := appointments.NormalizeDate(date)
	if err != nil {
		return "that date"
	}
	return t.Format("Monday, January 2")
}

func (d *Dispatcher) availability(ctx context.Context, a doctorNameArgs) (*Result, error) {
	slots, err := d.scheduler.GetDoctorAvailability(ctx, a.DoctorName, a.Date)
	if err != nil {
		var apptErr *appointments.Error
		if errors.As(err, &apptErr) {
			return &Result{Success: false, Doctor: a.DoctorName, Message: apptErr.Message}, nil
		}
		return nil, err
	}

	var msg string
	switch {
	case len(slots) == 0:
		msg = fmt.Sprintf("%s is fully booked on %s, would you like to try another date?", a.DoctorName, spokenDate(a.Date))
	case len(slots) > availabilityPreview:
		msg = fmt.Sprintf("%s is available at: %s and %d more slots", a.DoctorName,
			strings.Join(slots[:availabilityPreview], ", "), len(slots)-availabilityPreview)
	default:
		msg = fmt.Sprintf("%s is available at: %s", a.DoctorName, strings.Join(slots, ", "))
	}
	return &Result{
		Success:        true,
		Doctor:         a.DoctorName,
		AvailableSlots: slots,
		Message:        msg,
	}, nil
}

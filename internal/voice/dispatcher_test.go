package voice

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-voicebot/internal/appointments"
	"github.com/wolfman30/hospital-voicebot/internal/embedding"
	"github.com/wolfman30/hospital-voicebot/internal/embedding/embeddingtest"
	"github.com/wolfman30/hospital-voicebot/internal/knowledge/knowledgetest"
	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/internal/retrieval"
	"github.com/wolfman30/hospital-voicebot/internal/vectorindex"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

type stubFinder struct {
	resp    *retrieval.Response
	err     error
	queries []string
}

func (s *stubFinder) GenerateVoiceBotResponse(_ context.Context, q string) (*retrieval.Response, error) {
	s.queries = append(s.queries, q)
	return s.resp, s.err
}

// Wednesday.
var fixedNow = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

func newDispatcher(t *testing.T, finder DoctorFinder) (*Dispatcher, *prometheus.Registry) {
	t.Helper()
	appts := appointments.NewService(
		appointments.NewFileStore(filepath.Join(t.TempDir(), "appointments.json")),
		appointments.WithClock(func() time.Time { return fixedNow }),
		appointments.WithLogger(logging.Discard()),
	)
	reg := prometheus.NewRegistry()
	m := metrics.NewVoiceMetrics(reg)
	d, err := NewDispatcher(Options{
		Finder:    finder,
		Directory: knowledgetest.Base(),
		Scheduler: appts,
		Metrics:   m,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	return d, reg
}

func functionCalls(t *testing.T, reg *prometheus.Registry, platform, function, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "hospital_voice_function_calls_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["platform"] == platform && labels["function"] == function && labels["status"] == status {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestNewDispatcherRequiresDependencies(t *testing.T) {
	_, err := NewDispatcher(Options{})
	assert.Error(t, err)
}

func TestFindDoctorListsNamesOnly(t *testing.T) {
	finder := &stubFinder{resp: &retrieval.Response{
		Success: true,
		Doctors: []retrieval.FormattedDoctor{
			{Name: "Harish Puranik", Specialty: "Orthopedic Surgeon", Experience: "17 years"},
			{Name: "Rajesh Kumar", Specialty: "Orthopedics", Experience: "9 years"},
		},
	}}
	d, reg := newDispatcher(t, finder)

	res, err := d.Dispatch(context.Background(), PlatformVapi, FuncFindDoctor, json.RawMessage(`{"symptoms":"knee pain"}`))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.DoctorsFound)
	assert.Equal(t, "Orthopedic", res.Doctors[0].Specialty)
	assert.Equal(t, "Orthopedic Surgeon", res.Doctors[0].OriginalSpecialty)
	assert.Equal(t, "I found 2 specialists who can help: Dr. Harish Puranik, and Dr. Rajesh Kumar. Could you tell me a bit more about your specific symptoms or concerns?", res.Message)
	assert.Equal(t, []string{"knee pain"}, finder.queries)
	assert.Equal(t, 1.0, functionCalls(t, reg, PlatformVapi, FuncFindDoctor, "ok"))
}

func TestFindDoctorMessages(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		d, _ := newDispatcher(t, &stubFinder{resp: &retrieval.Response{
			Success: true,
			Doctors: []retrieval.FormattedDoctor{{Name: "Dr. Meera Rao", Specialty: "Gastroenterology"}},
		}})
		res, err := d.Dispatch(context.Background(), PlatformVapi, FuncFindDoctor, json.RawMessage(`{"symptoms":"stomach ache"}`))
		require.NoError(t, err)
		assert.Equal(t, "I found 1 specialist who can help: Dr. Meera Rao. Could you tell me a bit more about your specific symptoms or concerns?", res.Message)
	})
	t.Run("none", func(t *testing.T) {
		d, _ := newDispatcher(t, &stubFinder{resp: &retrieval.Response{Success: true}})
		res, err := d.Dispatch(context.Background(), PlatformVapi, FuncFindDoctor, json.RawMessage(`{"symptoms":"x"}`))
		require.NoError(t, err)
		assert.Equal(t, noSpecialistsMessage, res.Message)
	})
	t.Run("gated", func(t *testing.T) {
		d, reg := newDispatcher(t, &stubFinder{resp: &retrieval.Response{
			Success: false,
			Error:   retrieval.ErrorUnavailableService,
			Message: "We do not offer dental care.",
		}})
		res, err := d.Dispatch(context.Background(), PlatformRetell, FuncFindDoctor, json.RawMessage(`{"symptoms":"tooth ache"}`))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, retrieval.ErrorUnavailableService, res.Error)
		assert.Equal(t, "We do not offer dental care.", res.Message)
		assert.Equal(t, 1.0, functionCalls(t, reg, PlatformRetell, FuncFindDoctor, "failed"))
	})
}

func TestDispatchArgumentForms(t *testing.T) {
	finder := &stubFinder{resp: &retrieval.Response{Success: true}}
	d, _ := newDispatcher(t, finder)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, PlatformVapi, FuncFindDoctor, json.RawMessage(`"{\"symptoms\":\"back pain\"}"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"back pain"}, finder.queries)

	_, err = d.Dispatch(ctx, PlatformVapi, FuncFindDoctor, json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = d.Dispatch(ctx, PlatformVapi, "order_pizza", nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestFindDoctorByName(t *testing.T) {
	d, _ := newDispatcher(t, &stubFinder{})
	ctx := context.Background()

	res, err := d.Dispatch(ctx, PlatformVapi, FuncFindDoctorByName, json.RawMessage(`{"doctor_name":"Dr. Puranic"}`))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "I found 1 specialist who can help: Dr. Harish Puranik. Could you tell me a bit more about your specific symptoms or concerns?", res.Message)
	assert.Equal(t, "17 years", res.Doctors[0].Experience)
	assert.Equal(t, "Joint replacement, Sports injuries, Arthroscopy", res.Doctors[0].TopExpertise)

	res, err = d.Dispatch(ctx, PlatformVapi, FuncFindDoctorByName, json.RawMessage(`{"doctor_name":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, 4, res.DoctorsFound)
	assert.Len(t, res.Doctors, 3)
	assert.Equal(t, "I found 3 specialists with similar names: Dr. Harish Puranik, Dr. Meera Rao, and Dr. Anjali Desai. Which one would you like to book with?", res.Message)

	res, err = d.Dispatch(ctx, PlatformVapi, FuncFindDoctorByName, json.RawMessage(`{"doctor_name":"Dr. Zed"}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, `I'm sorry, I cannot find a doctor named "Dr. Zed".`), res.Message)
}

func TestBookAppointmentThroughDispatcher(t *testing.T) {
	d, _ := newDispatcher(t, &stubFinder{})
	ctx := context.Background()
	args := json.RawMessage(`{"doctor_name":"Harish Puranik","patient_name":"Asha","patient_phone":"+919800000001","preferred_date":"2026-10-15","preferred_time":"9:00 AM"}`)

	res, err := d.Dispatch(ctx, PlatformVapi, FuncBookAppointment, args)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Regexp(t, `^APT\d{8}[A-Z0-9]{4}$`, res.AppointmentID)
	assert.Equal(t, "Perfect! Your appointment is confirmed with Harish Puranik on 2026-10-15 at 9:00 AM. You'll receive a confirmation SMS at +919800000001. The appointment reference number is "+res.AppointmentID+".", res.Message)

	res, err = d.Dispatch(ctx, PlatformVapi, FuncBookAppointment, args)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "Sorry, 9:00 AM is not available."), res.Message)
}

func TestAvailabilityMessages(t *testing.T) {
	d, _ := newDispatcher(t, &stubFinder{})
	ctx := context.Background()

	cases := []struct {
		name    string
		args    string
		success bool
		message string
	}{
		{"weekday", `{"doctor_name":"Harish Puranik","date":"2026-10-15"}`, true,
			"Harish Puranik is available at: 9:00 AM, 9:30 AM, 10:00 AM, 10:30 AM, 11:00 AM, 11:30 AM and 8 more slots"},
		{"saturday", `{"doctor_name":"Harish Puranik","date":"2026-10-17"}`, true,
			"Harish Puranik is available at: 9:00 AM, 9:30 AM, 10:00 AM, 10:30 AM, 11:00 AM, 11:30 AM"},
		{"sunday", `{"doctor_name":"Harish Puranik","date":"2026-10-18"}`, true,
			"Harish Puranik is fully booked on Sunday, October 18, would you like to try another date?"},
		{"bad date", `{"doctor_name":"Harish Puranik","date":"next friday"}`, false,
			`Invalid date "next friday". Please use the format YYYY-MM-DD.`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := d.Dispatch(ctx, PlatformRetell, FuncGetDoctorAvailability, json.RawMessage(tc.args))
			require.NoError(t, err)
			assert.Equal(t, tc.success, res.Success)
			assert.Equal(t, tc.message, res.Message)
		})
	}

	res, err := d.Dispatch(ctx, PlatformRetell, FuncGetDoctorAvailability, json.RawMessage(`{"doctor_name":"Harish Puranik"}`))
	require.NoError(t, err)
	assert.Len(t, res.AvailableSlots, 14, "tomorrow is a Thursday")
}

func TestVapiAndRetellErrorShapes(t *testing.T) {
	d, _ := newDispatcher(t, &stubFinder{err: embedding.ErrRetrievalUnavailable})
	ctx := context.Background()

	res := d.HandleVapiFunction(ctx, FuncFindDoctor, json.RawMessage(`{"symptoms":"knee pain"}`))
	assert.Equal(t, embedding.ErrRetrievalUnavailable.Error(), res.Error)

	res = d.HandleVapiFunction(ctx, "nope", nil)
	assert.Equal(t, "Unknown function", res.Error)
	assert.Equal(t, `{"success":false,"error":"Unknown function"}`, res.Speech())

	out := d.HandleRetellFunction(ctx, RetellWebhook{FunctionName: FuncFindDoctor, Arguments: json.RawMessage(`{"symptoms":"knee"}`)})
	assert.Equal(t, "I'm sorry, I encountered an error: "+embedding.ErrRetrievalUnavailable.Error(), out.Result)

	out = d.HandleRetellFunction(ctx, RetellWebhook{FunctionName: "nope"})
	assert.Equal(t, "Unknown function", out.Result)
}

func TestHandleVapiToolCalls(t *testing.T) {
	d, _ := newDispatcher(t, &stubFinder{})
	var calls []VapiToolCall
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"call_1","type":"function","function":{"name":"find_doctor_by_name","arguments":{"doctor_name":"Rao"}}},
		{"id":"call_2","type":"other"}
	]`), &calls))

	results := d.HandleVapiToolCalls(context.Background(), calls)
	require.Len(t, results, 1)
	assert.Equal(t, "call_1", results[0].ToolCallID)
	assert.Contains(t, results[0].Result, "Dr. Meera Rao")
}

func TestFindDoctorEndToEnd(t *testing.T) {
	e := embeddingtest.NewHashEmbedder()
	kb := knowledgetest.Base()
	artifact, err := vectorindex.Generate(context.Background(), kb, e, embedding.BatchOptions{})
	require.NoError(t, err)
	svc, err := retrieval.New(retrieval.Options{Knowledge: kb, Artifact: artifact, Embedder: e, Logger: logging.Discard()})
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))

	d, _ := newDispatcher(t, svc)
	res, err := d.Dispatch(context.Background(), PlatformVapi, FuncFindDoctor, json.RawMessage(`{"symptoms":"I have severe stomach pain"}`))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Meera Rao", res.Doctors[0].Name)
	assert.True(t, strings.HasPrefix(res.Message, "I found "), res.Message)
	assert.Contains(t, res.Message, "Dr. Meera Rao")
}

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, m := setupMetrics()
	require.NotNil(t, handler)

	m.appointments.Observe("create", "ok")
	m.voice.ObserveFunctionCall("vapi", "find_doctor", "ok")
	m.retrieval.ObserveQuery("success")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "hospital_appointments_total")
	assert.Contains(t, body, "hospital_voice_function_calls_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestVoiceAPIsKeepsNilClientsNil(t *testing.T) {
	v, r := voiceAPIs(nil, nil)
	assert.Nil(t, v)
	assert.Nil(t, r)
	assert.Nil(t, cmdable(nil))
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRetrievalMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRetrievalMetrics(reg)
	m.ObserveQuery("success")
	m.ObserveQuery("success")
	m.ObserveQuery("cache_hit")
	m.ObserveCacheEviction()
	m.ObserveEmbedding(120 * time.Millisecond)

	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheEvictions); got != 1 {
		t.Fatalf("expected 1 eviction, got %v", got)
	}
	if n := testutil.CollectAndCount(m.embeddingLatency); n != 1 {
		t.Fatalf("expected histogram to be collected, got %d", n)
	}
}

func TestAppointmentMetricsObserve(t *testing.T) {
	m := NewAppointmentMetrics(prometheus.NewRegistry())
	m.Observe("create", "ok")
	m.Observe("create", "error")
	if got := testutil.ToFloat64(m.total.WithLabelValues("create", "ok")); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestVoiceMetricsDefaultRegistry(t *testing.T) {
	m := NewVoiceMetrics(nil)
	t.Cleanup(func() {
		prometheus.DefaultRegisterer.Unregister(m.functionCalls)
		prometheus.DefaultRegisterer.Unregister(m.webhookLatency)
	})
	m.ObserveFunctionCall("vapi", "find_doctor", "ok")
	m.ObserveWebhookLatency("retell", 0.5)
}

func TestMetricsNilSafe(t *testing.T) {
	var r *RetrievalMetrics
	r.ObserveQuery("success")
	r.ObserveCacheEviction()
	r.ObserveEmbedding(time.Second)

	var a *AppointmentMetrics
	a.Observe("cancel", "ok")

	var v *VoiceMetrics
	v.ObserveFunctionCall("vapi", "x", "ok")
	v.ObserveWebhookLatency("vapi", 0.1)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hospital"

func register(reg prometheus.Registerer, cs ...prometheus.Collector) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cs...)
}

// RetrievalMetrics covers the doctor-search pipeline.
type RetrievalMetrics struct {
	queriesTotal     *prometheus.CounterVec
	cacheEvictions   prometheus.Counter
	embeddingLatency prometheus.Histogram
}

func NewRetrievalMetrics(reg prometheus.Registerer) *RetrievalMetrics {
	m := &RetrievalMetrics{
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Voice bot queries by outcome",
		}, []string{"outcome"}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "cache_evictions_total",
			Help:      "Response cache entries evicted to stay under the size bound",
		}),
		embeddingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "embedding_latency_seconds",
			Help:      "Latency of embedding provider calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	register(reg, m.queriesTotal, m.cacheEvictions, m.embeddingLatency)
	return m
}

func (m *RetrievalMetrics) ObserveQuery(outcome string) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome).Inc()
}

func (m *RetrievalMetrics) ObserveCacheEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}

func (m *RetrievalMetrics) ObserveEmbedding(d time.Duration) {
	if m == nil {
		return
	}
	m.embeddingLatency.Observe(d.Seconds())
}

// AppointmentMetrics counts appointment mutations.
type AppointmentMetrics struct {
	total *prometheus.CounterVec
}

func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	m := &AppointmentMetrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointments",
			Name:      "total",
			Help:      "Appointment operations by action and result",
		}, []string{"action", "status"}),
	}
	register(reg, m.total)
	return m
}

func (m *AppointmentMetrics) Observe(action, status string) {
	if m == nil {
		return
	}
	m.total.WithLabelValues(action, status).Inc()
}

// VoiceMetrics exposes counters/histograms for voice platform webhooks.
type VoiceMetrics struct {
	functionCalls  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewVoiceMetrics(reg prometheus.Registerer) *VoiceMetrics {
	m := &VoiceMetrics{
		functionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "function_calls_total",
			Help:      "Tool/function calls dispatched from voice platforms",
		}, []string{"platform", "function", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of voice webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
	}
	register(reg, m.functionCalls, m.webhookLatency)
	return m
}

func (m *VoiceMetrics) ObserveFunctionCall(platform, function, status string) {
	if m == nil {
		return
	}
	m.functionCalls.WithLabelValues(platform, function, status).Inc()
}

func (m *VoiceMetrics) ObserveWebhookLatency(platform string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(platform).Observe(seconds)
}

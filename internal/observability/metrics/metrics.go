package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClientMetrics exposes counters/histograms for calls to the analysis service.
type ClientMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	keywordsTotal   *prometheus.CounterVec
	flowCompletions prometheus.Counter
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medai",
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Total requests sent to the analysis service",
		}, []string{"endpoint", "outcome"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medai",
			Subsystem: "analysis",
			Name:      "request_latency_seconds",
			Help:      "Latency of analysis service requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		keywordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medai",
			Subsystem: "intake",
			Name:      "keywords_extracted_total",
			Help:      "Keywords returned per extraction endpoint",
		}, []string{"endpoint"}),
		flowCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medai",
			Subsystem: "intake",
			Name:      "conversations_completed_total",
			Help:      "Intake conversations that reached the final step",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.keywordsTotal, m.flowCompletions)
	return m
}

// ObserveRequest records one outbound call. outcome is "ok", "network_error"
// or "server_error".
func (m *ClientMetrics) ObserveRequest(endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.requestLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *ClientMetrics) ObserveKeywords(endpoint string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.keywordsTotal.WithLabelValues(endpoint).Add(float64(n))
}

func (m *ClientMetrics) ObserveCompletion() {
	if m == nil {
		return
	}
	m.flowCompletions.Inc()
}

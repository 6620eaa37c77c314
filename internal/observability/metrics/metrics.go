package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the TalkTalk conversation flow.
type ConversationMetrics struct {
	inboundTotal       *prometheus.CounterVec
	outboundTotal      *prometheus.CounterVec
	webhookLatency     *prometheus.HistogramVec
	consultationTotal  *prometheus.CounterVec
	llmCallsTotal      *prometheus.CounterVec
	llmLatency         *prometheus.HistogramVec
	verificationTotal  *prometheus.CounterVec
	rateLimitedTotal   *prometheus.CounterVec
	reminderSendsTotal *prometheus.CounterVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xivix",
			Subsystem: "talktalk",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound TalkTalk webhooks",
		}, []string{"event", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xivix",
			Subsystem: "talktalk",
			Name:      "outbound_total",
			Help:      "Total outbound TalkTalk sends",
		}, []string{"kind", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xivix",
			Subsystem: "talktalk",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of TalkTalk webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		consultationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xivix",
			Subsystem: "conversation",
			Name:      "consultation_total",
			Help:      "Inbound messages by consultation type",
		}, []string{"type"}),
		llmCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xivix",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls by model and status",
		}, []string{"model", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xivix",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "LLM call latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"model"}),
		verificationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xivix",
			Subsystem: "llm",
			Name:      "verification_total",
			Help:      "Verification pass outcomes",
		}, []string{"outcome"}),
		rateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xivix",
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"scope"}),
		reminderSendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xivix",
			Subsystem: "reminders",
			Name:      "sends_total",
			Help:      "Reservation reminder sends by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.inboundTotal,
		m.outboundTotal,
		m.webhookLatency,
		m.consultationTotal,
		m.llmCallsTotal,
		m.llmLatency,
		m.verificationTotal,
		m.rateLimitedTotal,
		m.reminderSendsTotal,
	)
	return m
}

func (m *ConversationMetrics) ObserveInbound(event, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(event, status).Inc()
}

func (m *ConversationMetrics) ObserveOutbound(kind, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *ConversationMetrics) ObserveWebhookLatency(event string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(event).Observe(seconds)
}

func (m *ConversationMetrics) ObserveConsultation(consultationType string) {
	if m == nil {
		return
	}
	m.consultationTotal.WithLabelValues(consultationType).Inc()
}

// ObserveLLMCall records one provider call. status is "ok" or "error".
func (m *ConversationMetrics) ObserveLLMCall(model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.llmCallsTotal.WithLabelValues(model, status).Inc()
	m.llmLatency.WithLabelValues(model).Observe(seconds)
}

// ObserveVerification records a verification outcome: approved, corrected,
// refused, unparsed or error.
func (m *ConversationMetrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.verificationTotal.WithLabelValues(outcome).Inc()
}

func (m *ConversationMetrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(scope).Inc()
}

func (m *ConversationMetrics) ObserveReminderSend(status string) {
	if m == nil {
		return
	}
	m.reminderSendsTotal.WithLabelValues(status).Inc()
}

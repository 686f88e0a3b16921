// Package metrics собирает метрики Prometheus для HTTP, чата и провайдеров
// моделей. Методы безопасны для nil-коллектора: компоненты могут работать
// без метрик.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const DefaultNamespace = "storyforge"

type Collector struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	chatRequestsTotal *prometheus.CounterVec
	contextTokens     *prometheus.HistogramVec
	rateLimitDenials  *prometheus.CounterVec
	stubsCreated      prometheus.Counter

	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec
	providerErrors     *prometheus.CounterVec
}

// New регистрирует метрики в отдельном реестре. Для /metrics используется
// Handler этого же коллектора.
func New(namespace string, log *zap.Logger) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(namespace, reg, reg, log)
}

func NewWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer, log *zap.Logger) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if log == nil {
		log = zap.NewNop()
	}
	f := promauto.With(reg)
	c := &Collector{gatherer: gatherer}

	c.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.chatRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	c.contextTokens = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_tokens",
			Help:      "Estimated tokens of assembled context",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"stage"},
	)
	c.rateLimitDenials = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_denials_total",
			Help:      "Requests denied by the rate limiter",
		},
		[]string{"route"},
	)
	c.stubsCreated = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stubs_created_total",
			Help:      "Stub entities created from unresolved mentions",
		},
	)

	c.llmRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)
	c.llmRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)
	c.llmTokensUsed = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"},
	)
	c.providerErrors = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Classified provider errors",
		},
		[]string{"provider", "code"},
	)

	log.Debug("Метрики инициализированы", zap.String("namespace", namespace))
	return c
}

// Handler обработчик /metrics.
func (c *Collector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordChat outcome: ok, invalid, rate_limited, provider_error, error.
func (c *Collector) RecordChat(mode, outcome string) {
	if c == nil {
		return
	}
	c.chatRequestsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordContextTokens stage: entities или prompt.
func (c *Collector) RecordContextTokens(stage string, tokens int) {
	if c == nil {
		return
	}
	c.contextTokens.WithLabelValues(stage).Observe(float64(tokens))
}

func (c *Collector) RecordRateLimitDenial(route string) {
	if c == nil {
		return
	}
	c.rateLimitDenials.WithLabelValues(route).Inc()
}

func (c *Collector) RecordStubs(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.stubsCreated.Add(float64(n))
}

func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

func (c *Collector) RecordProviderError(provider, code string) {
	if c == nil {
		return
	}
	c.providerErrors.WithLabelValues(provider, code).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

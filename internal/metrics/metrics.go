package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages timed per endpoint
const (
	StageRateLimit = "rate_limit"
	StageValidate  = "validate"
	StageBotVerify = "bot_verify"
	StageCRM       = "crm_upsert"
	StageUpload    = "cms_upload"
	StageCreate    = "cms_create"
	StageTotal     = "total"
)

// Side effects whose failure is absorbed
const (
	SideEffectCRM     = "crm"
	SideEffectUpload  = "cms_upload"
	SideEffectJobLink = "job_link"
	SideEffectAudit   = "audit"
)

// Collector owns the service metrics and the registry they are exposed from
type Collector struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	stages      *prometheus.HistogramVec
	sideEffects *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
}

// New creates a Collector on a fresh registry, including Go runtime and
// process collectors
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careers_submissions_total",
			Help: "Form submissions by endpoint and terminal outcome.",
		}, []string{"endpoint", "outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "careers_stage_duration_seconds",
			Help:    "Time spent in each submission pipeline stage.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint", "stage"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careers_side_effect_failures_total",
			Help: "Best-effort side effects that failed without failing the request.",
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "careers_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"endpoint"}),
	}

	c.registry.MustRegister(
		c.submissions,
		c.stages,
		c.sideEffects,
		c.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Submission counts a terminal pipeline outcome
func (c *Collector) Submission(endpoint, outcome string) {
	c.submissions.WithLabelValues(endpoint, outcome).Inc()
}

// Stage records how long a pipeline stage took
func (c *Collector) Stage(endpoint, stage string, d time.Duration) {
	c.stages.WithLabelValues(endpoint, stage).Observe(d.Seconds())
}

// SideEffectFailed counts an absorbed failure
func (c *Collector) SideEffectFailed(kind string) {
	c.sideEffects.WithLabelValues(kind).Inc()
}

// RateLimited counts a rate limit rejection
func (c *Collector) RateLimited(endpoint string) {
	c.rateLimited.WithLabelValues(endpoint).Inc()
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Package metrics prometheus 指标，nil *Metrics 上的调用都是空操作
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsfeed"

type Metrics struct {
	IngestArticles *prometheus.CounterVec
	IngestRuns     *prometheus.CounterVec
	Summaries      *prometheus.CounterVec
	QueueRetries   prometheus.Counter
	QueueAbandoned prometheus.Counter
	JobDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New 注册到给定 registry；传 nil 时新建一个独立 registry
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		IngestArticles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_articles_total",
			Help:      "Articles seen by ingestion, by result (stored, skipped, failed).",
		}, []string{"result"}),
		IngestRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by status.",
		}, []string{"status"}),
		Summaries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summarization attempts by outcome.",
		}, []string{"outcome"}),
		QueueRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_retries_total",
			Help:      "Summarization jobs scheduled for another attempt.",
		}),
		QueueAbandoned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_abandoned_total",
			Help:      "Summarization jobs abandoned after exhausting attempts.",
		}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduled_job_duration_seconds",
			Help:      "Duration of scheduled task runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job", "status"}),
		gatherer: reg,
	}
}

func (m *Metrics) IngestArticle(result string) {
	if m == nil {
		return
	}
	m.IngestArticles.WithLabelValues(result).Inc()
}

func (m *Metrics) IngestRun(status string) {
	if m == nil {
		return
	}
	m.IngestRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) Summary(outcome string) {
	if m == nil {
		return
	}
	m.Summaries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.QueueRetries.Inc()
}

func (m *Metrics) Abandon() {
	if m == nil {
		return
	}
	m.QueueAbandoned.Inc()
}

func (m *Metrics) ObserveJob(job, status string, seconds float64) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(job, status).Observe(seconds)
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

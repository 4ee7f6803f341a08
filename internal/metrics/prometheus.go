// Package metrics exports pipeline metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects model-call, workflow and OCR metrics.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	agentCalls *prometheus.CounterVec

	analyses   *prometheus.CounterVec
	iterations prometheus.Histogram
	scores     *prometheus.HistogramVec

	ocrRuns    *prometheus.CounterVec
	ocrLatency *prometheus.HistogramVec

	translations *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}
}

// New creates a Recorder and registers its collectors.
func New(cfg Config) *Recorder {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	r := &Recorder{registry: registry}

	r.llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wordweaver",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total number of model calls",
		},
		[]string{"client", "model", "status"},
	)
	r.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wordweaver",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Model call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"client", "model"},
	)
	r.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wordweaver",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens reported by the model runtime",
		},
		[]string{"client", "kind"},
	)
	r.agentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wordweaver",
			Subsystem: "agent",
			Name:      "calls_total",
			Help:      "Agent invocations by agent and outcome",
		},
		[]string{"agent", "status"},
	)
	r.analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wordweaver",
			Subsystem: "workflow",
			Name:      "analyses_total",
			Help:      "Completed analysis workflows",
		},
		[]string{"status"},
	)
	r.iterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wordweaver",
			Subsystem: "workflow",
			Name:      "iterations",
			Help:      "Grammar/voice iterations per analysis",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)
	r.scores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wordweaver",
			Subsystem: "workflow",
			Name:      "score",
			Help:      "Scores assigned by the workflow",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"kind"},
	)
	r.ocrRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wordweaver",
			Subsystem: "ocr",
			Name:      "runs_total",
			Help:      "Text extraction attempts by engine and outcome",
		},
		[]string{"engine", "status"},
	)
	r.ocrLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wordweaver",
			Subsystem: "ocr",
			Name:      "latency_seconds",
			Help:      "Text extraction latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"engine"},
	)
	r.translations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wordweaver",
			Subsystem: "translation",
			Name:      "requests_total",
			Help:      "Translations by direction and outcome",
		},
		[]string{"direction", "status"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wordweaver",
			Subsystem: "translation",
			Name:      "memory_lookups_total",
			Help:      "Translation memory lookups by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		r.llmRequests, r.llmLatency, r.llmTokens,
		r.agentCalls,
		r.analyses, r.iterations, r.scores,
		r.ocrRuns, r.ocrLatency,
		r.translations, r.cacheLookups,
	)
	return r
}

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (used by tests).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveLLMCall records one model call.
func (r *Recorder) ObserveLLMCall(client, model string, d time.Duration, promptTokens, completionTokens int, err error) {
	if r == nil {
		return
	}
	r.llmRequests.WithLabelValues(client, model, status(err)).Inc()
	r.llmLatency.WithLabelValues(client, model).Observe(d.Seconds())
	if promptTokens > 0 {
		r.llmTokens.WithLabelValues(client, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		r.llmTokens.WithLabelValues(client, "completion").Add(float64(completionTokens))
	}
}

// ObserveAgent records one agent invocation.
func (r *Recorder) ObserveAgent(agent string, err error) {
	if r == nil {
		return
	}
	r.agentCalls.WithLabelValues(agent, status(err)).Inc()
}

// ObserveAnalysis records a finished workflow.
func (r *Recorder) ObserveAnalysis(iterations int, overall, voice float64, err error) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	r.iterations.Observe(float64(iterations))
	r.scores.WithLabelValues("overall").Observe(overall)
	r.scores.WithLabelValues("voice").Observe(voice)
}

// ObserveOCR records one extraction attempt.
func (r *Recorder) ObserveOCR(engine string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.ocrRuns.WithLabelValues(engine, status(err)).Inc()
	r.ocrLatency.WithLabelValues(engine).Observe(d.Seconds())
}

// ObserveTranslation records one translation.
func (r *Recorder) ObserveTranslation(direction string, err error) {
	if r == nil {
		return
	}
	r.translations.WithLabelValues(direction, status(err)).Inc()
}

// ObserveMemoryLookup records a translation memory hit or miss.
func (r *Recorder) ObserveMemoryLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

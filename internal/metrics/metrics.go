// Package metrics exposes Prometheus instrumentation for the ask pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	Questions          prometheus.Counter
	SmalltalkHits      prometheus.Counter
	LLMCalls           *prometheus.CounterVec
	GroundingFailures  prometheus.Counter
	AnswersCorrected   prometheus.Counter
	AskDuration        prometheus.Histogram
}

// New registers the pipeline collectors with reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Questions: factory.NewCounter(prometheus.CounterOpts{
			Name: "notewise_questions_total",
			Help: "Questions received by the ask pipeline.",
		}),
		SmalltalkHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "notewise_smalltalk_total",
			Help: "Questions answered by the personalized matcher without retrieval.",
		}),
		LLMCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notewise_llm_calls_total",
			Help: "LLM completion calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		GroundingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "notewise_grounding_failures_total",
			Help: "Answers that failed grounding validation.",
		}),
		AnswersCorrected: factory.NewCounter(prometheus.CounterOpts{
			Name: "notewise_answers_corrected_total",
			Help: "Answers repaired or replaced by the local corrector.",
		}),
		AskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notewise_ask_duration_seconds",
			Help:    "End-to-end ask latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// Nop returns metrics bound to a throwaway registry, for tests and
// library callers that do not scrape.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

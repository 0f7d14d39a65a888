package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Questions.Inc()
	m.SmalltalkHits.Inc()
	m.LLMCalls.WithLabelValues("generate", "ok").Inc()
	m.GroundingFailures.Inc()
	m.AnswersCorrected.Inc()
	m.AskDuration.Observe(0.2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Questions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMCalls.WithLabelValues("generate", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LLMCalls.WithLabelValues("generate", "fallback")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestNopIsUsable(t *testing.T) {
	m := Nop()
	m.Questions.Inc()
	m.AskDuration.Observe(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Questions))
}

package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveReply("reflective", nil, 10*time.Millisecond)
	m.ObserveReply("crisis", errors.New("boom"), time.Second)
	m.DegradedRead("semantic")
	m.DegradedRead("semantic")
	m.SafetyReplaced()
	m.ObserveLLM("chat", nil, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RepliesTotal.WithLabelValues("reflective", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RepliesTotal.WithLabelValues("crisis", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DegradedReads.WithLabelValues("semantic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SafetyReplacements))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReply("supportive", nil, time.Millisecond)
		m.ObserveLLM("embedding", nil, time.Millisecond)
		m.DegradedRead("history")
		m.SafetyReplaced()
	})
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTool(t *testing.T) {
	m := New()

	m.ObserveTool("rotate_opioid", false, 2*time.Millisecond)
	m.ObserveTool("rotate_opioid", false, time.Millisecond)
	m.ObserveTool("rotate_opioid", true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("rotate_opioid", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("rotate_opioid", OutcomeError)))
}

func TestObserveFeedback(t *testing.T) {
	m := New()
	m.ObserveFeedback(true)
	m.ObserveFeedback(false)
	m.ObserveFeedback(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedbackSaved.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FeedbackSaved.WithLabelValues("false")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTool("x", false, time.Second)
		m.ObserveFeedback(true)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveTool("prn_table", false, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `mcp_tool_calls_total{outcome="ok",tool="prn_table"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

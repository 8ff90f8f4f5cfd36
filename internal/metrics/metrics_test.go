package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/graph"
	"github.com/vk/framegraph/internal/node"
	"github.com/vk/framegraph/internal/value"
)

func TestMetrics_CountsEvaluations(t *testing.T) {
	// --- Arrange ---
	m := New(prometheus.NewRegistry())
	fail := false
	n, err := node.New(node.Spec{
		Type:    "Flaky",
		Outputs: []node.OutputSpec{{Name: "Out", Kind: value.KindInt}},
		Compute: func([]value.Value) ([]value.Value, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return []value.Value{value.Int(1)}, nil
		},
	})
	require.NoError(t, err)
	g := graph.New()
	id, err := g.AddNode(n)
	require.NoError(t, err)
	g.Subscribe(m.Observe)

	// --- Act ---
	_, err = g.EvaluateOutput(id, 0)
	require.NoError(t, err)
	_, err = g.EvaluateOutput(id, 0)
	require.NoError(t, err, "cached, no second compute")
	fail = true
	require.NoError(t, g.Invalidate(id))
	_, err = g.EvaluateOutput(id, 0)
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("Flaky", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("Flaky", ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invalidations.WithLabelValues("Flaky")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ComputeSeconds))
}

func TestMetrics_Commands(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveCommand(time.Millisecond, nil)
	m.ObserveCommand(time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CommandSeconds))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.ObserveCommand(time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "framegraph_session_command_seconds_count 1")
	assert.Contains(t, string(body), "go_goroutines")
}

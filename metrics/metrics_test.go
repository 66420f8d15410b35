package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromCounters(t *testing.T) {
	p := NewProm("relay_test")

	p.ObserveRequest("POST", "/api/chat", "200", 0.05)
	p.ObserveRequest("POST", "/api/chat", "200", 0.07)
	p.IncNormalization(NormalizeWrapped)
	p.ObserveCompletion("chat", "ok", 1.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.httpRequests.WithLabelValues("POST", "/api/chat", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.normalizations.WithLabelValues(NormalizeWrapped)))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.normalizations.WithLabelValues(NormalizeUnchanged)))
}

func TestPromHandler(t *testing.T) {
	p := NewProm("relay_test")
	p.IncNormalization(NormalizeUnchanged)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `relay_test_latex_normalizations_total{result="unchanged"} 1`)
}

func TestNoopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Noop{}
	r.ObserveRequest("GET", "/", "200", 0)
	r.ObserveCompletion("translate", "error", 0)
	r.IncNormalization(NormalizeSkipped)
}

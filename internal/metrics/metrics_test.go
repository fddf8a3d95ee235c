package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistersEveryCollectorOnce(t *testing.T) {
	require.NotPanics(t, func() {
		New()
	})
}

func TestHandlerExposesObservedValues(t *testing.T) {
	m := New()
	m.CacheHits.Inc()
	m.RequestsTotal.WithLabelValues("200").Inc()
	m.RenderDuration.WithLabelValues("png").Observe(0.05)
	m.RenderPhaseDur.WithLabelValues("paint").Observe(0.01)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "alacarte_tilecache_hits_total 1")
	require.Contains(t, body, `alacarte_http_requests_total{status="200"} 1`)
	require.Contains(t, body, "alacarte_renderer_meta_render_seconds")
	require.Contains(t, body, "alacarte_renderer_phase_seconds")
}

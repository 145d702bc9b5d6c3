package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/peereval/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	ready   func() bool
	metrics http.Handler
}

// NewHealthHandler creates a new health handler. ready may be nil.
func NewHealthHandler(ready func() bool) *HealthHandler {
	return &HealthHandler{
		ready:   ready,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz. It answers 503 until the service has
// started and serves the Prometheus exposition afterwards.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil && !h.ready() {
		writeError(w, http.StatusServiceUnavailable, "not_ready", nil)
		return
	}
	h.metrics.ServeHTTP(w, r)
}

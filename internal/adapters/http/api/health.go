package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/cuerank/pkg/metrics"
)

// StatsProvider reports service statistics for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// opsHandler serves the operational endpoints outside /v1. /healthz is the
// Prometheus exposition; answering it at all is the liveness signal.
type opsHandler struct {
	metrics http.Handler
	stats   StatsProvider
}

func newOpsHandler(stats StatsProvider) *opsHandler {
	return &opsHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		stats:   stats,
	}
}

func (h *opsHandler) health(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

func (h *opsHandler) statsJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}

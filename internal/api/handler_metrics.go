package api

import (
	"net/http"

	"github.com/ira-chat/ira/internal/metrics"
)

// HandleMetrics serves GET /metrics: uptime and decision counters.
func HandleMetrics(collector *metrics.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, collector.Snapshot())
	})
}

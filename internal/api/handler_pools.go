package api

import (
	"net/http"

	"github.com/ira-chat/ira/internal/pool"
)

// PoolSnapshotter exposes pool state for the operator surface.
type PoolSnapshotter interface {
	Snapshot() map[string]pool.StateView
}

// HandlePools serves GET /pools: per-pool health, inflight, and latency.
func HandlePools(pools PoolSnapshotter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"pools": pools.Snapshot()})
	})
}

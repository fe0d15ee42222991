package api

import "net/http"

// HandleHealthz reports process liveness.
func HandleHealthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ReadyFunc reports whether the process can serve traffic.
type ReadyFunc func() bool

// HandleReadyz reports readiness: 200 when ready reports true, 503 otherwise.
func HandleReadyz(ready ReadyFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			WriteError(w, http.StatusServiceUnavailable, "NOT_READY", "not ready")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
}

package handlers

import (
	"net/http"
	"time"
)

var startTime = time.Now()

// healthz responds with a simple liveness payload. Dependency probes live on
// the authenticated /admin/system/health endpoint.
func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

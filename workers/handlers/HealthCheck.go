package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// HealthCheck answers 503 while the prover's state store is unreachable.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.prover != nil {
		if err := h.prover.Ping(); err != nil {
			log.WithError(err).Warn("health check: state store unreachable")
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "state store unreachable",
			}, http.StatusServiceUnavailable)
			return
		}
	}

	responseJSON(w, &APIResponse{Status: "ok"}, http.StatusOK)
}

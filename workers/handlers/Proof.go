package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

func (h *Handlers) ConstructProof(w http.ResponseWriter, r *http.Request) {
	var req ConstructProofRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := req.MessageID.Validate(); err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "message_id",
			Message: err.Error(),
		}, http.StatusBadRequest)
		return
	}

	sessionID, err := h.prover.ConstructProof(r.Context(), req.MessageID, req.Payload)
	if err != nil {
		responseError(w, r, err, "")
		return
	}

	log.WithFields(log.Fields{
		"session_id": sessionID,
		"message_id": req.MessageID.String(),
	}).Info("proof construction started")

	responseJSON(w, &APISessionResponse{
		Status:    "ok",
		SessionID: sessionID,
	}, http.StatusOK)
}

func (h *Handlers) GetProof(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseUint(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "session_id",
			Message: "Session id must be an unsigned integer",
		}, http.StatusBadRequest)
		return
	}

	proof, err := h.prover.GetProof(r.Context(), sessionID)
	if err != nil {
		responseError(w, r, err, "session_id")
		return
	}

	responseJSON(w, proof, http.StatusOK)
}

func (h *Handlers) TicketCreate(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.prover.TicketCreate(r.Context())
	if err != nil {
		responseError(w, r, err, "")
		return
	}

	responseJSON(w, &APISessionResponse{
		Status:    "ok",
		SessionID: sessionID,
	}, http.StatusOK)
}

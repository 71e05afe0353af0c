package handlers

import (
	"net/http"
)

func (h *Handlers) UpdateVerifierSet(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.prover.UpdateVerifierSet(r.Context(), Sender(r))
	if err != nil {
		responseError(w, r, err, "")
		return
	}

	// session id 0: the first set was installed without a transaction
	responseJSON(w, &APISessionResponse{
		Status:    "ok",
		SessionID: sessionID,
	}, http.StatusOK)
}

func (h *Handlers) GetVerifierSet(w http.ResponseWriter, r *http.Request) {
	vs, err := h.prover.GetVerifierSet()
	if err != nil {
		responseError(w, r, err, "")
		return
	}

	responseJSON(w, &APIVerifierSetResponse{
		ID:          vs.ID(),
		VerifierSet: vs,
	}, http.StatusOK)
}

package handlers

import (
	"net/http"

	"xrplprover/prover"
)

func (h *Handlers) UpdateTxStatus(w http.ResponseWriter, r *http.Request) {
	var req prover.TxStatusUpdate
	if !readJSON(w, r, &req) {
		return
	}

	info, err := h.prover.UpdateTxStatus(r.Context(), Sender(r), req)
	if err != nil {
		responseError(w, r, err, "")
		return
	}

	responseJSON(w, info, http.StatusOK)
}

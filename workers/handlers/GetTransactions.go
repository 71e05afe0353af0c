package handlers

import (
	"net/http"

	"xrplprover/types"

	"github.com/go-chi/chi"
)

// GetTransactions lists the proofs in one status, e.g. /stats/failed_on_chain.
func (h *Handlers) GetTransactions(w http.ResponseWriter, r *http.Request) {
	status, err := types.ParseTxStatus(chi.URLParam(r, "status"))
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "status",
			Message: err.Error(),
		}, http.StatusBadRequest)
		return
	}

	txs, err := h.prover.Transactions(status)
	if err != nil {
		responseJSON(w, nil, http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []*types.TransactionInfo{}
	}

	responseJSON(w, txs, http.StatusOK)
}

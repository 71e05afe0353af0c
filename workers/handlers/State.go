package handlers

import (
	"net/http"
)

func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.prover.State()
	if err != nil {
		responseError(w, r, err, "")
		return
	}

	responseJSON(w, &APIStateResponse{
		Status: "ok",
		State:  state,
	}, http.StatusOK)
}

package handlers

import (
	"net/http"

	"xrplprover/types"

	log "github.com/sirupsen/logrus"
)

func (h *Handlers) RegisterToken(w http.ResponseWriter, r *http.Request) {
	var req types.RegisteredToken
	if !readJSON(w, r, &req) {
		return
	}

	if err := h.prover.RegisterToken(Sender(r), req); err != nil {
		responseError(w, r, err, "token")
		return
	}

	log.WithField("token_id", req.TokenID.Hex()).Info("token registration accepted")

	responseJSON(w, &APIResponse{
		Status: "ok",
	}, http.StatusOK)
}

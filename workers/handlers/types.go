package handlers

import (
	"xrplprover/types"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type APIStateResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	State   interface{} `json:"state,omitempty"`
}

type APISessionResponse struct {
	Status    string `json:"status"`
	SessionID uint64 `json:"session_id"`
}

type ConstructProofRequest struct {
	MessageID types.CrossChainID `json:"message_id"`
	Payload   hexutil.Bytes      `json:"payload"`
}

type APIVerifierSetResponse struct {
	ID          string             `json:"id"`
	VerifierSet *types.VerifierSet `json:"verifier_set"`
}

package handlers

import (
	"context"

	"xrplprover/prover"
	"xrplprover/types"
)

// Prover is the part of prover.Prover the HTTP surface drives.
type Prover interface {
	ConstructProof(ctx context.Context, id types.CrossChainID, payload []byte) (uint64, error)
	TicketCreate(ctx context.Context) (uint64, error)
	UpdateVerifierSet(ctx context.Context, sender string) (uint64, error)
	UpdateTxStatus(ctx context.Context, sender string, update prover.TxStatusUpdate) (*types.TransactionInfo, error)
	RegisterToken(sender string, token types.RegisteredToken) error
	GetProof(ctx context.Context, sessionID uint64) (*prover.Proof, error)
	GetVerifierSet() (*types.VerifierSet, error)
	Transactions(status types.TxStatus) ([]*types.TransactionInfo, error)
	State() (*prover.State, error)
	Ping() error
}

type Handlers struct {
	prover Prover
}

func New(p Prover) *Handlers {
	return &Handlers{prover: p}
}

package prover

import (
	"context"
	"fmt"

	"xrplprover/metrics"
	"xrplprover/types"
	"xrplprover/xrpl"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type ProofStatus string

const (
	ProofPending   ProofStatus = "pending"
	ProofCompleted ProofStatus = "completed"
)

// Proof is Pending{message_id} or Completed{message_id, tx_blob}. MessageID
// is unset for ticket and signer list transactions.
type Proof struct {
	Status    ProofStatus         `json:"status"`
	MessageID *types.CrossChainID `json:"message_id,omitempty"`
	TxBlob    hexutil.Bytes       `json:"tx_blob,omitempty"`
	// ledger id of the signed transaction
	TxID     *common.Hash   `json:"tx_id,omitempty"`
	TxType   xrpl.TxType    `json:"tx_type"`
	TxStatus types.TxStatus `json:"tx_status"`
}

// GetProof holds the lock only while reading local records. The multisig
// query and assembly run outside it.
func (p *Prover) GetProof(ctx context.Context, sessionID uint64) (*Proof, error) {
	p.mu.Lock()
	info, vs, err := p.proofRecords(sessionID)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return p.getProof(ctx, info, vs)
}

// proofRecords loads the transaction of a session and the verifier set
// pinned to it.
func (p *Prover) proofRecords(sessionID uint64) (*types.TransactionInfo, *types.VerifierSet, error) {
	info, err := p.sessionTransaction(sessionID)
	if err != nil {
		return nil, nil, err
	}
	vs, err := p.store.VerifierSet(info.VerifierSetID)
	if err != nil {
		return nil, nil, err
	}
	return info, vs, nil
}

func (p *Prover) getProof(ctx context.Context, info *types.TransactionInfo, vs *types.VerifierSet) (*Proof, error) {
	sessionID := info.SessionID
	session, err := p.multisig.SigningSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying signing session %d: %w", sessionID, err)
	}
	if session == nil || session.ID != sessionID {
		return nil, fmt.Errorf("%w: no signing session %d", ErrInvalidContractReply, sessionID)
	}

	proof := &Proof{
		Status:    ProofPending,
		MessageID: info.MessageID,
		TxType:    info.UnsignedTx.Type(),
		TxStatus:  info.Status,
	}

	switch session.State {
	case types.SessionPending:
		return proof, nil
	case types.SessionCompleted:
		blob, err := assemble(info, session, vs)
		if err != nil {
			return nil, err
		}
		txID := xrpl.TxID(blob)
		proof.Status = ProofCompleted
		proof.TxBlob = blob
		proof.TxID = &txID
		metrics.ProofsAssembled.WithLabelValues(string(proof.TxType)).Inc()
		return proof, nil
	default:
		return nil, fmt.Errorf("%w: unknown session state %q", ErrInvalidContractReply, session.State)
	}
}

func (p *Prover) sessionTransaction(sessionID uint64) (*types.TransactionInfo, error) {
	txHash, found, err := p.store.SessionTx(sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: session %d", ErrProofNotFound, sessionID)
	}

	info, err := p.store.TransactionInfo(txHash)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: transaction %s", ErrProofNotFound, txHash.Hex())
	}
	return info, nil
}

func (p *Prover) GetVerifierSet() (*types.VerifierSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.currentVerifierSet()
}

// PendingTransactions lists proofs whose ledger outcome is not known yet.
func (p *Prover) PendingTransactions() ([]*types.TransactionInfo, error) {
	return p.Transactions(types.TxStatusPending)
}

func (p *Prover) Transactions(status types.TxStatus) ([]*types.TransactionInfo, error) {
	if !knownStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionStatus, status)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.store.TransactionsByStatus(status)
}

type State struct {
	TicketPool    *types.TicketPool  `json:"ticket_pool"`
	CurrentSet    *types.VerifierSet `json:"current_verifier_set,omitempty"`
	CurrentSetID  string             `json:"current_verifier_set_id,omitempty"`
	NextSet       *types.VerifierSet `json:"next_verifier_set,omitempty"`
	NextSetID     string             `json:"next_verifier_set_id,omitempty"`
	PendingProofs int                `json:"pending_proofs"`
}

func (p *Prover) State() (*State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool, err := p.ticketPool()
	if err != nil {
		return nil, err
	}
	current, err := p.store.CurrentVerifierSet()
	if err != nil {
		return nil, err
	}
	next, err := p.store.NextVerifierSet()
	if err != nil {
		return nil, err
	}
	pending, err := p.store.TransactionsByStatus(types.TxStatusPending)
	if err != nil {
		return nil, err
	}

	state := &State{TicketPool: pool, CurrentSet: current, NextSet: next, PendingProofs: len(pending)}
	if current != nil {
		state.CurrentSetID = current.ID()
	}
	if next != nil {
		state.NextSetID = next.ID()
	}
	return state, nil
}

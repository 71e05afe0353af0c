package workers

import (
	"context"
	"errors"
	"time"

	"xrplprover/events"
	"xrplprover/prover"
	"xrplprover/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
)

type RelayProver interface {
	PendingTransactions() ([]*types.TransactionInfo, error)
	GetProof(ctx context.Context, sessionID uint64) (*prover.Proof, error)
	NeedsRefill() (bool, error)
	TicketCreate(ctx context.Context) (uint64, error)
}

// ProofLedger remembers which completed proofs were handed to relayers.
type ProofLedger interface {
	IsProofPublished(sessionID uint64) (bool, error)
	MarkProofPublished(sessionID uint64) (bool, error)
}

type Publisher interface {
	Publish(eventType string, data interface{}) error
}

type ProofCompletedEvent struct {
	SessionID uint64              `json:"session_id"`
	TxHash    common.Hash         `json:"tx_hash"`
	TxID      *common.Hash        `json:"tx_id"`
	TxType    string              `json:"tx_type"`
	MessageID *types.CrossChainID `json:"message_id,omitempty"`
	TxBlob    hexutil.Bytes       `json:"tx_blob"`
}

type Relayer struct {
	Prover    RelayProver
	Ledger    ProofLedger
	Publisher Publisher
	Interval  time.Duration
}

// Worker_relayProofs polls pending proofs, publishes each completed signed
// blob once for submission to the ledger and requests a TicketCreate when
// the pool runs low.
func (r *Relayer) Worker_relayProofs() {
	log.WithField("interval", r.Interval).Info("starting proof relay worker")

	for !WorkerShutdown.Load() {
		time.Sleep(r.Interval)

		ctx, cancel := context.WithTimeout(context.Background(), r.Interval*10)
		r.relayOnce(ctx)
		r.refillTickets(ctx)
		cancel()
	}

	log.Info("proof relay worker stopped")
}

func (r *Relayer) relayOnce(ctx context.Context) int {
	if r.Publisher == nil {
		return 0
	}

	pending, err := r.Prover.PendingTransactions()
	if err != nil {
		log.WithError(err).Error("error getting pending transactions")
		return 0
	}

	published := 0
	for _, info := range pending {
		done, err := r.Ledger.IsProofPublished(info.SessionID)
		if err != nil {
			log.WithError(err).WithField("session_id", info.SessionID).Error("error checking published proofs")
			continue
		}
		if done {
			continue
		}

		proof, err := r.Prover.GetProof(ctx, info.SessionID)
		if err != nil {
			log.WithError(err).WithField("session_id", info.SessionID).Warn("error getting proof")
			continue
		}
		if proof.Status != prover.ProofCompleted {
			continue
		}

		err = r.Publisher.Publish(events.ProofCompleted, &ProofCompletedEvent{
			SessionID: info.SessionID,
			TxHash:    info.TxHash,
			TxID:      proof.TxID,
			TxType:    string(proof.TxType),
			MessageID: proof.MessageID,
			TxBlob:    proof.TxBlob,
		})
		if err != nil {
			log.WithError(err).WithField("session_id", info.SessionID).Warn("error publishing completed proof, will retry")
			continue
		}

		if _, err := r.Ledger.MarkProofPublished(info.SessionID); err != nil {
			log.WithError(err).WithField("session_id", info.SessionID).Error("error marking proof as published")
			continue
		}
		published++

		log.WithFields(log.Fields{
			"session_id": info.SessionID,
			"tx_type":    proof.TxType,
			"tx_id":      proof.TxID.Hex(),
		}).Info("completed proof published")
	}
	return published
}

func (r *Relayer) refillTickets(ctx context.Context) {
	refill, err := r.Prover.NeedsRefill()
	if err != nil {
		log.WithError(err).Error("error checking ticket pool")
		return
	}
	if !refill {
		return
	}

	sessionID, err := r.Prover.TicketCreate(ctx)
	switch {
	case err == nil:
		log.WithField("session_id", sessionID).Info("ticket refill requested")
	case errors.Is(err, prover.ErrWorkerSetIsNotSet), errors.Is(err, prover.ErrPreviousTicketCreateTxPending):
		log.WithError(err).Debug("ticket refill skipped")
	default:
		log.WithError(err).Error("error requesting ticket refill")
	}
}

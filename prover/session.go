package prover

import (
	"context"
	"fmt"
	"strings"

	"xrplprover/metrics"
	"xrplprover/types"
	"xrplprover/xrpl"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
)

// ConstructProof builds the payment for a routed message and starts its
// signing session. At most one proof per message is in flight.
func (p *Prover) ConstructProof(ctx context.Context, id types.CrossChainID, payload []byte) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := id.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidMessageID, err)
	}

	current, err := p.currentVerifierSet()
	if err != nil {
		return 0, err
	}

	if err := p.checkNoProofInFlight(id); err != nil {
		return 0, err
	}

	msg, err := p.gateway.OutgoingMessage(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("querying gateway: %w", err)
	}
	if msg == nil {
		return 0, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	if msg.CCID != id {
		return 0, fmt.Errorf("%w: gateway returned message %s for %s", ErrInvalidContractReply, msg.CCID, id)
	}
	if !strings.EqualFold(msg.DestinationChain, p.cfg.ChainName) {
		return 0, fmt.Errorf("%w: message is destined for %s", ErrInvalidChainName, msg.DestinationChain)
	}

	pool, err := p.ticketPool()
	if err != nil {
		return 0, err
	}

	tx, err := p.buildPayment(pool, msg, payload, p.fee(current))
	if err != nil {
		return 0, err
	}

	change := &types.StateChange{TicketPool: pool}
	info, err := p.startSession(ctx, change, tx, &id, current)
	if err != nil {
		return 0, err
	}

	if err := p.store.Commit(change); err != nil {
		return 0, err
	}
	setTicketGauge(pool)
	p.sessionStarted(info)

	log.WithFields(log.Fields{
		"session_id": info.SessionID,
		"tx_hash":    info.TxHash.Hex(),
		"message_id": id.String(),
		"sequence":   tx.Sequence.String(),
		"amount":     tx.Amount.String(),
	}).Info("payment proof requested")

	return info.SessionID, nil
}

func (p *Prover) checkNoProofInFlight(id types.CrossChainID) error {
	txHash, found, err := p.store.MessageTx(id)
	if err != nil || !found {
		return err
	}
	prior, err := p.store.TransactionInfo(txHash)
	if err != nil {
		return err
	}
	if prior == nil {
		return nil
	}

	switch prior.Status {
	case types.TxStatusPending:
		return fmt.Errorf("%w: session %d", ErrPaymentAlreadyPending, prior.SessionID)
	case types.TxStatusConfirmed:
		return fmt.Errorf("%w: message %s was already delivered", ErrTransactionStatusAlreadyUpdated, id)
	}
	return nil
}

// startSession registers the unsigned transaction with the multisig module,
// to be signed by vs, and adds the new records to change.
func (p *Prover) startSession(ctx context.Context, change *types.StateChange, tx xrpl.UnsignedTx, messageID *types.CrossChainID, vs *types.VerifierSet) (*types.TransactionInfo, error) {
	txHash := xrpl.UnsignedTxHash(tx)

	existing, err := p.store.TransactionInfo(txHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: transaction %s already exists", ErrTransactionStatusAlreadyUpdated, txHash.Hex())
	}

	sessionID, err := p.multisig.StartSigningSession(ctx, vs, xrpl.SigningHash(tx))
	if err != nil {
		return nil, fmt.Errorf("starting signing session: %w", err)
	}

	_, taken, err := p.store.SessionTx(sessionID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: session id %d is already in use", ErrInvalidContractReply, sessionID)
	}

	info := &types.TransactionInfo{
		TxHash:        txHash,
		UnsignedTx:    tx,
		Status:        types.TxStatusPending,
		MessageID:     messageID,
		SessionID:     sessionID,
		VerifierSetID: vs.ID(),
	}
	change.PutTx(info, "")
	change.PutSession(sessionID, txHash)
	if messageID != nil {
		change.PutMessage(*messageID, txHash)
	}
	return info, nil
}

// collectSignatures turns session signatures into ledger multisignatures.
// Signers without a signature are skipped; signatures that do not decode or
// verify are dropped.
func collectSignatures(tx xrpl.UnsignedTx, signers []types.SessionSigner) ([]xrpl.Signer, uint64) {
	out := make([]xrpl.Signer, 0, len(signers))
	var weight uint64
	for _, s := range signers {
		if len(s.Signature) == 0 {
			continue
		}

		account := s.Signer.XRPLAccount()
		digest := xrpl.MultiSigningHash(tx, account)
		sig, err := xrpl.CanonicalSignature(s.Signature, s.Signer.PubKey, digest.Bytes())
		if err != nil {
			log.WithFields(log.Fields{
				"signer":  s.Signer.Address,
				"account": account.String(),
			}).WithError(err).Warn("dropping signature")
			metrics.DroppedSignatures.Inc()
			continue
		}

		out = append(out, xrpl.Signer{Account: account, PublicKey: s.Signer.PubKey, Signature: sig})
		weight += s.Signer.Weight
	}
	return out, weight
}

// assemble serializes the signed transaction of a completed session. It is a
// pure function of its inputs.
func assemble(info *types.TransactionInfo, session *types.SigningSession, vs *types.VerifierSet) ([]byte, error) {
	signers, weight := collectSignatures(info.UnsignedTx, session.Signers)
	if len(signers) == 0 {
		return nil, fmt.Errorf("%w: completed session %d has no valid signature", ErrInvalidContractReply, session.ID)
	}
	if vs != nil && weight < vs.Threshold {
		log.WithFields(log.Fields{
			"session_id": session.ID,
			"weight":     weight,
			"threshold":  vs.Threshold,
		}).Warn("completed session carries less than the threshold weight of valid signatures")
	}

	blob, err := xrpl.SerializeSigned(info.UnsignedTx, signers)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSerializationFailed, err)
	}
	return blob, nil
}

type signingStartedEvent struct {
	SessionID     uint64              `json:"session_id"`
	TxHash        common.Hash         `json:"tx_hash"`
	TxType        xrpl.TxType         `json:"tx_type"`
	MessageID     *types.CrossChainID `json:"message_id,omitempty"`
	VerifierSetID string              `json:"verifier_set_id"`
	UnsignedTx    hexutil.Bytes       `json:"unsigned_tx"`
}

func newSigningStartedEvent(info *types.TransactionInfo) signingStartedEvent {
	return signingStartedEvent{
		SessionID:     info.SessionID,
		TxHash:        info.TxHash,
		TxType:        info.UnsignedTx.Type(),
		MessageID:     info.MessageID,
		VerifierSetID: info.VerifierSetID,
		UnsignedTx:    xrpl.SerializeUnsigned(info.UnsignedTx),
	}
}

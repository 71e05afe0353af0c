package prover

import (
	"context"
	"fmt"
	"strings"

	"xrplprover/events"
	"xrplprover/metrics"
	"xrplprover/types"
	"xrplprover/xrpl"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"
)

// TxStatusUpdate is a verifier-attested ledger outcome of a proof.
// MessageID is the ledger id of the signed transaction that was submitted
// and SignerPublicKeys are the keys whose signatures it carries.
type TxStatusUpdate struct {
	SessionID        uint64          `json:"session_id"`
	MessageID        string          `json:"message_id"`
	Status           types.TxStatus  `json:"status"`
	SignerPublicKeys []hexutil.Bytes `json:"signer_public_keys"`
}

type txStatusUpdatedEvent struct {
	SessionID uint64              `json:"session_id"`
	TxHash    common.Hash         `json:"tx_hash"`
	TxID      common.Hash         `json:"tx_id"`
	TxType    xrpl.TxType         `json:"tx_type"`
	MessageID *types.CrossChainID `json:"message_id,omitempty"`
	Status    types.TxStatus      `json:"status"`
}

// UpdateTxStatus records the terminal outcome of a proof. Outcomes are
// one-shot; the side effects of a confirmation are applied atomically with
// the status change.
func (p *Prover) UpdateTxStatus(ctx context.Context, sender string, update TxStatusUpdate) (*types.TransactionInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sender == "" || sender != p.cfg.VerifierAddress {
		return nil, fmt.Errorf("%w: %s may not report transaction status", ErrUnauthorized, sender)
	}
	if !update.Status.IsTerminal() || !knownStatus(update.Status) {
		return nil, fmt.Errorf("%w: %q is not a terminal status", ErrInvalidTransactionStatus, update.Status)
	}

	txHash, found, err := p.store.SessionTx(update.SessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: unknown session %d", ErrInvalidTransactionStatus, update.SessionID)
	}
	info, err := p.store.TransactionInfo(txHash)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: unknown transaction %s", ErrInvalidTransactionStatus, txHash.Hex())
	}
	if info.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: transaction %s is %s", ErrTransactionStatusAlreadyUpdated, txHash.Hex(), info.Status)
	}

	// the set pinned when the session started, not the current one
	vs, err := p.store.VerifierSet(info.VerifierSetID)
	if err != nil {
		return nil, err
	}
	if vs == nil {
		return nil, fmt.Errorf("%w: verifier set %s of session %d is unknown", ErrInvalidContractReply, info.VerifierSetID, update.SessionID)
	}

	signers, err := quorumSigners(vs, update.SignerPublicKeys)
	if err != nil {
		return nil, err
	}

	txID, err := p.signedTxID(ctx, info, signers)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimPrefix(update.MessageID, "0x"), strings.TrimPrefix(txID.Hex(), "0x")) {
		return nil, fmt.Errorf("%w: %s does not match signed transaction %s", ErrInvalidMessageID, update.MessageID, txID.Hex())
	}

	prev := info.Status
	info.Status = update.Status
	change := &types.StateChange{}
	change.PutTx(info, prev)

	if err := p.applySideEffects(change, info); err != nil {
		return nil, err
	}

	if err := p.store.Commit(change); err != nil {
		return nil, err
	}
	if change.TicketPool != nil {
		setTicketGauge(change.TicketPool)
	}

	txType := info.UnsignedTx.Type()
	metrics.TxStatusTransitions.WithLabelValues(string(txType), string(info.Status)).Inc()
	p.publish(events.TxStatusUpdated, txStatusUpdatedEvent{
		SessionID: info.SessionID,
		TxHash:    info.TxHash,
		TxID:      txID,
		TxType:    txType,
		MessageID: info.MessageID,
		Status:    info.Status,
	})
	if change.CurrentVerifierSet != nil {
		p.publish(events.VerifierSetSet, change.CurrentVerifierSet)
	}

	log.WithFields(log.Fields{
		"session_id": info.SessionID,
		"tx_hash":    info.TxHash.Hex(),
		"tx_id":      txID.Hex(),
		"tx_type":    txType,
		"status":     info.Status,
	}).Info("transaction status updated")

	return info, nil
}

func knownStatus(s types.TxStatus) bool {
	for _, status := range types.TxStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// quorumSigners resolves the reported keys against the pinned set. Keys
// must be distinct members that together reach the threshold.
func quorumSigners(vs *types.VerifierSet, keys []hexutil.Bytes) ([]types.Signer, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys given", ErrInvalidSignerPublicKeys)
	}

	seen := make(map[string]bool, len(keys))
	signers := make([]types.Signer, 0, len(keys))
	var weight uint64
	for _, key := range keys {
		if seen[string(key)] {
			return nil, fmt.Errorf("%w: duplicate key %s", ErrInvalidSignerPublicKeys, key)
		}
		seen[string(key)] = true

		signer, ok := vs.SignerByPubKey(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not in verifier set %s", ErrInvalidSignerPublicKeys, key, vs.ID())
		}
		signers = append(signers, signer)
		weight += signer.Weight
	}

	if weight < vs.Threshold {
		return nil, fmt.Errorf("%w: weight %d below threshold %d", ErrInvalidSignerPublicKeys, weight, vs.Threshold)
	}
	return signers, nil
}

// signedTxID rebuilds the signed transaction from the session signatures of
// exactly the given signers and returns its ledger id.
func (p *Prover) signedTxID(ctx context.Context, info *types.TransactionInfo, signers []types.Signer) (common.Hash, error) {
	session, err := p.multisig.SigningSession(ctx, info.SessionID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("querying signing session %d: %w", info.SessionID, err)
	}
	if session == nil {
		return common.Hash{}, fmt.Errorf("%w: no signing session %d", ErrInvalidContractReply, info.SessionID)
	}

	byKey := make(map[string]types.SessionSigner, len(session.Signers))
	for _, s := range session.Signers {
		byKey[string(s.Signer.PubKey)] = s
	}

	selected := make([]types.SessionSigner, 0, len(signers))
	for _, signer := range signers {
		s, ok := byKey[string(signer.PubKey)]
		if !ok || len(s.Signature) == 0 {
			return common.Hash{}, fmt.Errorf("%w: %s did not sign session %d", ErrInvalidSignerPublicKeys, signer.Address, info.SessionID)
		}
		selected = append(selected, s)
	}

	ledgerSigners, _ := collectSignatures(info.UnsignedTx, selected)
	if len(ledgerSigners) != len(selected) {
		return common.Hash{}, fmt.Errorf("%w: session %d holds invalid signatures for the given keys", ErrInvalidSignerPublicKeys, info.SessionID)
	}

	blob, err := xrpl.SerializeSigned(info.UnsignedTx, ledgerSigners)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrSerializationFailed, err)
	}
	return xrpl.TxID(blob), nil
}

func (p *Prover) applySideEffects(change *types.StateChange, info *types.TransactionInfo) error {
	switch tx := info.UnsignedTx.(type) {
	case *xrpl.TicketCreate:
		if info.Status != types.TxStatusConfirmed {
			return nil
		}
		pool, err := p.ticketPool()
		if err != nil {
			return err
		}
		onTicketCreateConfirmed(pool, tx.Sequence.Number, tx.TicketCount)
		change.TicketPool = pool

	case *xrpl.SignerListSet:
		next, err := p.store.NextVerifierSet()
		if err != nil {
			return err
		}
		if next == nil {
			log.WithField("tx_hash", info.TxHash.Hex()).Warn("signer list set resolved without a pending verifier set")
			return nil
		}
		if info.Status == types.TxStatusConfirmed {
			change.CurrentVerifierSet = next
		}
		change.ClearNext = true

	case *xrpl.Payment:
		// the slot is consumed whatever the outcome; nothing to release
	default:
		return fmt.Errorf("unknown transaction type %T", tx)
	}
	return nil
}

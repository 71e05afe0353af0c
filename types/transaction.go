package types

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"xrplprover/xrpl"
)

type TxStatus string

const (
	TxStatusPending       TxStatus = "pending"
	TxStatusConfirmed     TxStatus = "confirmed"
	TxStatusFailedOnChain TxStatus = "failed_on_chain"
	TxStatusInconclusive  TxStatus = "inconclusive"
)

var TxStatuses = []TxStatus{TxStatusPending, TxStatusConfirmed, TxStatusFailedOnChain, TxStatusInconclusive}

func ParseTxStatus(s string) (TxStatus, error) {
	for _, status := range TxStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

func (s TxStatus) IsTerminal() bool {
	return s != TxStatusPending
}

// TransactionInfo is the record of one proof, keyed by the hash of its
// unsigned content. Records are never deleted.
type TransactionInfo struct {
	TxHash        common.Hash
	UnsignedTx    xrpl.UnsignedTx
	Status        TxStatus
	MessageID     *CrossChainID
	SessionID     uint64
	VerifierSetID string
}

type transactionInfoJSON struct {
	TxHash        common.Hash      `json:"tx_hash"`
	UnsignedTx    *xrpl.TxEnvelope `json:"unsigned_tx"`
	Status        TxStatus         `json:"status"`
	MessageID     *CrossChainID    `json:"message_id,omitempty"`
	SessionID     uint64           `json:"session_id"`
	VerifierSetID string           `json:"verifier_set_id"`
}

func (t TransactionInfo) MarshalJSON() ([]byte, error) {
	if t.UnsignedTx == nil {
		return nil, fmt.Errorf("transaction %s has no content", t.TxHash.Hex())
	}
	env := xrpl.Envelope(t.UnsignedTx)
	return json.Marshal(transactionInfoJSON{
		TxHash:        t.TxHash,
		UnsignedTx:    &env,
		Status:        t.Status,
		MessageID:     t.MessageID,
		SessionID:     t.SessionID,
		VerifierSetID: t.VerifierSetID,
	})
}

func (t *TransactionInfo) UnmarshalJSON(data []byte) error {
	var raw transactionInfoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.UnsignedTx == nil {
		return fmt.Errorf("transaction %s has no content", raw.TxHash.Hex())
	}
	tx, err := raw.UnsignedTx.Tx()
	if err != nil {
		return err
	}
	*t = TransactionInfo{
		TxHash:        raw.TxHash,
		UnsignedTx:    tx,
		Status:        raw.Status,
		MessageID:     raw.MessageID,
		SessionID:     raw.SessionID,
		VerifierSetID: raw.VerifierSetID,
	}
	return nil
}

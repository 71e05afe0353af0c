package types

import "github.com/ethereum/go-ethereum/common"

// TxWrite stores a transaction record. PrevStatus is empty for a new
// record, otherwise the status the record is moving out of.
type TxWrite struct {
	Info       *TransactionInfo
	PrevStatus TxStatus
}

// StateChange is everything one entrypoint writes. It is applied
// atomically; nil members are left untouched.
type StateChange struct {
	TicketPool         *TicketPool
	Transactions       []TxWrite
	SessionTx          map[uint64]common.Hash
	MessageTx          map[string]common.Hash
	CurrentVerifierSet *VerifierSet
	NextVerifierSet    *VerifierSet
	ClearNext          bool
	Tokens             []*RegisteredToken
}

func (c *StateChange) PutTx(info *TransactionInfo, prev TxStatus) {
	c.Transactions = append(c.Transactions, TxWrite{Info: info, PrevStatus: prev})
}

func (c *StateChange) PutSession(sessionID uint64, txHash common.Hash) {
	if c.SessionTx == nil {
		c.SessionTx = map[uint64]common.Hash{}
	}
	c.SessionTx[sessionID] = txHash
}

func (c *StateChange) PutMessage(id CrossChainID, txHash common.Hash) {
	if c.MessageTx == nil {
		c.MessageTx = map[string]common.Hash{}
	}
	c.MessageTx[id.String()] = txHash
}

func (c *StateChange) Empty() bool {
	return c.TicketPool == nil && len(c.Transactions) == 0 && len(c.SessionTx) == 0 &&
		len(c.MessageTx) == 0 && c.CurrentVerifierSet == nil && c.NextVerifierSet == nil &&
		!c.ClearNext && len(c.Tokens) == 0
}

package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"xrplprover/xrpl"
)

// CrossChainID identifies a routed message: the source chain plus the
// chain-specific message id.
type CrossChainID struct {
	SourceChain string `json:"source_chain"`
	MessageID   string `json:"message_id"`
}

func (id CrossChainID) String() string {
	return fmt.Sprintf("%s_%s", strings.ToLower(id.SourceChain), id.MessageID)
}

func (id CrossChainID) Validate() error {
	if id.SourceChain == "" || id.MessageID == "" {
		return errors.New("cross-chain id must have a source chain and a message id")
	}
	return nil
}

// Message is a routed message as stored by the gateway.
type Message struct {
	CCID               CrossChainID `json:"cc_id"`
	SourceAddress      string       `json:"source_address"`
	DestinationChain   string       `json:"destination_chain"`
	DestinationAddress string       `json:"destination_address"`
	PayloadHash        common.Hash  `json:"payload_hash"`
}

// TokenID is the interchain token id (32 bytes).
type TokenID = common.Hash

// XRPLToken is the issued currency a token id maps to.
type XRPLToken struct {
	Issuer   xrpl.AccountID `json:"issuer"`
	Currency xrpl.Currency  `json:"currency"`
}

// RegisteredToken is a token registry record.
type RegisteredToken struct {
	TokenID  TokenID   `json:"token_id"`
	Token    XRPLToken `json:"token"`
	Decimals uint8     `json:"decimals"`
}

// TicketPool tracks the ledger slots of the multisig account.
// AvailableTickets is kept sorted and unique.
type TicketPool struct {
	AvailableTickets         []uint32 `json:"available_tickets"`
	NextSequenceNumber       uint32   `json:"next_sequence_number"`
	LastAssignedTicketNumber uint32   `json:"last_assigned_ticket_number"`

	// zero when no TicketCreate was ever built
	LatestTicketCreateTx common.Hash `json:"latest_ticket_create_tx"`
}

func (p *TicketPool) Clone() *TicketPool {
	c := *p
	c.AvailableTickets = append([]uint32(nil), p.AvailableTickets...)
	return &c
}

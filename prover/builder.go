package prover

import (
	"fmt"
	"math"

	"xrplprover/its"
	"xrplprover/types"
	"xrplprover/xrpl"

	"github.com/ethereum/go-ethereum/crypto"
)

// buildPayment turns a routed ITS transfer into a ledger payment. All
// validation happens before a slot is taken from the pool.
func (p *Prover) buildPayment(pool *types.TicketPool, msg *types.Message, payload []byte, fee uint64) (*xrpl.Payment, error) {
	if crypto.Keccak256Hash(payload) != msg.PayloadHash {
		return nil, fmt.Errorf("%w: payload does not match hash %s", ErrInvalidPayload, msg.PayloadHash.Hex())
	}

	hubMsg, err := its.DecodeHubMessage(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}
	transfer := hubMsg.Transfer

	destination, err := xrpl.ParseAddress(string(transfer.DestinationAddress))
	if err != nil {
		return nil, fmt.Errorf("%w: destination %q: %s", ErrInvalidPayload, transfer.DestinationAddress, err)
	}

	amount, err := p.paymentAmount(transfer)
	if err != nil {
		return nil, err
	}

	return &xrpl.Payment{
		TxHeader: xrpl.TxHeader{
			Account:  p.cfg.MultisigAccount,
			Fee:      fee,
			Sequence: allocate(pool),
		},
		Destination: destination,
		Amount:      amount,
		MessageID:   msg.CCID.String(),
	}, nil
}

func (p *Prover) paymentAmount(transfer its.InterchainTransfer) (xrpl.Amount, error) {
	if transfer.TokenID == p.cfg.XRPTokenID {
		if !transfer.Amount.IsUint64() {
			return xrpl.Amount{}, fmt.Errorf("%w: %s drops", ErrInvalidAmount, transfer.Amount)
		}
		amount, err := xrpl.NativeAmount(transfer.Amount.Uint64())
		if err != nil {
			return xrpl.Amount{}, fmt.Errorf("%w: %s", ErrInvalidAmount, err)
		}
		return amount, nil
	}

	token, err := p.store.Token(transfer.TokenID)
	if err != nil {
		return xrpl.Amount{}, err
	}
	if token == nil {
		return xrpl.Amount{}, fmt.Errorf("%w: %s", ErrTokenNotRegistered, transfer.TokenID.Hex())
	}

	value, err := xrpl.NewTokenValue(transfer.Amount, token.Decimals)
	if err != nil {
		return xrpl.Amount{}, fmt.Errorf("%w: %s", ErrInvalidPaymentAmount, err)
	}
	amount, err := xrpl.IssuedTokenAmount(value, token.Token.Currency, token.Token.Issuer)
	if err != nil {
		return xrpl.Amount{}, fmt.Errorf("%w: %s", ErrInvalidPaymentAmount, err)
	}
	return amount, nil
}

func (p *Prover) buildTicketCreate(pool *types.TicketPool, count uint32, fee uint64) *xrpl.TicketCreate {
	return &xrpl.TicketCreate{
		TxHeader: xrpl.TxHeader{
			Account:  p.cfg.MultisigAccount,
			Fee:      fee,
			Sequence: nextSequence(pool),
		},
		TicketCount: count,
	}
}

// buildSignerListSet installs next as the signer list of the multisig
// account. current is the set that will sign it.
func (p *Prover) buildSignerListSet(pool *types.TicketPool, current, next *types.VerifierSet, fee uint64) (*xrpl.SignerListSet, error) {
	if current.SameSigners(next) {
		return nil, ErrWorkerSetUnchanged
	}
	if len(next.Signers) == 0 || len(next.Signers) > xrpl.MaxSignerEntries {
		return nil, fmt.Errorf("%w: %d signers, at most %d", ErrTooManySigners, len(next.Signers), xrpl.MaxSignerEntries)
	}

	entries := make([]xrpl.SignerEntry, 0, len(next.Signers))
	seen := make(map[xrpl.AccountID]bool, len(next.Signers))
	for _, s := range next.Signers {
		if s.Weight == 0 || s.Weight > math.MaxUint16 {
			return nil, fmt.Errorf("%w: %s has weight %d", ErrInvalidSignerWeight, s.Address, s.Weight)
		}
		if err := xrpl.ValidatePublicKey(s.PubKey); err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrInvalidContractReply, s.Address, err)
		}
		account := s.XRPLAccount()
		if seen[account] {
			return nil, fmt.Errorf("%w: %s shares a key with another signer", ErrInvalidContractReply, s.Address)
		}
		seen[account] = true
		entries = append(entries, xrpl.SignerEntry{Account: account, Weight: uint16(s.Weight)})
	}

	if next.Threshold == 0 || next.Threshold > next.TotalWeight() || next.Threshold > math.MaxUint32 {
		return nil, fmt.Errorf("%w: quorum %d of total weight %d", ErrInvalidSigningThreshold, next.Threshold, next.TotalWeight())
	}

	return &xrpl.SignerListSet{
		TxHeader: xrpl.TxHeader{
			Account:  p.cfg.MultisigAccount,
			Fee:      fee,
			Sequence: allocate(pool),
		},
		SignerQuorum:  uint32(next.Threshold),
		SignerEntries: entries,
	}, nil
}

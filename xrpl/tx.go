package xrpl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

type TxType string

const (
	TxTypePayment       TxType = "Payment"
	TxTypeTicketCreate  TxType = "TicketCreate"
	TxTypeSignerListSet TxType = "SignerListSet"
)

var txTypeCodes = map[TxType]uint16{
	TxTypePayment:       0,
	TxTypeTicketCreate:  10,
	TxTypeSignerListSet: 12,
}

const (
	// MaxTicketCount is the number of tickets an account may hold.
	MaxTicketCount = 250
	// MaxSignerEntries is the size limit of a signer list.
	MaxSignerEntries = 32
)

// Sequence is the slot a transaction consumes: a plain account sequence
// number or a ticket.
type Sequence struct {
	Number uint32 `json:"number"`
	Ticket bool   `json:"ticket"`
}

func (s Sequence) String() string {
	if s.Ticket {
		return fmt.Sprintf("ticket %d", s.Number)
	}
	return fmt.Sprintf("sequence %d", s.Number)
}

// TxHeader holds the fields every transaction built here carries.
type TxHeader struct {
	Account  AccountID `json:"account"`
	Fee      uint64    `json:"fee"`
	Sequence Sequence  `json:"sequence"`
}

func (h TxHeader) entries(t TxType) object {
	fee, _ := NativeAmount(h.Fee)
	o := object{
		uint16Entry(fieldTransactionType, txTypeCodes[t]),
		accountEntry(fieldAccount, h.Account),
		amountEntry(fieldFee, fee),
	}
	if h.Sequence.Ticket {
		o = append(o, uint32Entry(fieldSequence, 0), uint32Entry(fieldTicketSequence, h.Sequence.Number))
	} else {
		o = append(o, uint32Entry(fieldSequence, h.Sequence.Number))
	}
	return o
}

// UnsignedTx is implemented by Payment, TicketCreate and SignerListSet only.
type UnsignedTx interface {
	Type() TxType
	Header() TxHeader
	entries() object
}

type Payment struct {
	TxHeader
	Destination AccountID `json:"destination"`
	Amount      Amount    `json:"amount"`
	MessageID   string    `json:"message_id"`
}

func (p *Payment) Type() TxType     { return TxTypePayment }
func (p *Payment) Header() TxHeader { return p.TxHeader }

func (p *Payment) entries() object {
	o := p.TxHeader.entries(TxTypePayment)
	o = append(o,
		accountEntry(fieldDestination, p.Destination),
		amountEntry(fieldAmount, p.Amount),
	)
	if p.MessageID != "" {
		memo := objectEntry(fieldMemo, object{
			blobEntry(fieldMemoType, []byte("message_id")),
			blobEntry(fieldMemoData, []byte(p.MessageID)),
		})
		o = append(o, arrayEntry(fieldMemos, []entry{memo}))
	}
	return o
}

type TicketCreate struct {
	TxHeader
	TicketCount uint32 `json:"ticket_count"`
}

func (t *TicketCreate) Type() TxType     { return TxTypeTicketCreate }
func (t *TicketCreate) Header() TxHeader { return t.TxHeader }

func (t *TicketCreate) entries() object {
	return append(t.TxHeader.entries(TxTypeTicketCreate), uint32Entry(fieldTicketCount, t.TicketCount))
}

type SignerEntry struct {
	Account AccountID `json:"account"`
	Weight  uint16    `json:"weight"`
}

type SignerListSet struct {
	TxHeader
	SignerQuorum  uint32        `json:"signer_quorum"`
	SignerEntries []SignerEntry `json:"signer_entries"`
}

func (s *SignerListSet) Type() TxType     { return TxTypeSignerListSet }
func (s *SignerListSet) Header() TxHeader { return s.TxHeader }

func (s *SignerListSet) entries() object {
	signerEntries := make([]SignerEntry, len(s.SignerEntries))
	copy(signerEntries, s.SignerEntries)
	sort.Slice(signerEntries, func(i, j int) bool {
		return bytes.Compare(signerEntries[i].Account[:], signerEntries[j].Account[:]) < 0
	})

	elems := make([]entry, 0, len(signerEntries))
	for _, se := range signerEntries {
		elems = append(elems, objectEntry(fieldSignerEntry, object{
			accountEntry(fieldAccount, se.Account),
			uint16Entry(fieldSignerWeight, se.Weight),
		}))
	}

	o := s.TxHeader.entries(TxTypeSignerListSet)
	return append(o,
		uint32Entry(fieldSignerQuorum, s.SignerQuorum),
		arrayEntry(fieldSignerEntries, elems),
	)
}

// SerializeUnsigned encodes the transaction the way every multisigner
// signs it: no Signers array and an empty SigningPubKey.
func SerializeUnsigned(tx UnsignedTx) []byte {
	o := append(tx.entries(), blobEntry(fieldSigningPubKey, nil))
	return o.encode()
}

// Signer is one multisignature of a signed transaction.
type Signer struct {
	Account   AccountID
	PublicKey []byte
	// DER encoded
	Signature []byte
}

var ErrDuplicateSigner = errors.New("duplicate signer account")

// SerializeSigned encodes the transaction with the Signers array sorted by
// account id, as the ledger requires.
func SerializeSigned(tx UnsignedTx, signers []Signer) ([]byte, error) {
	sorted := make([]Signer, len(signers))
	copy(sorted, signers)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Account[:], sorted[j].Account[:]) < 0
	})

	elems := make([]entry, 0, len(sorted))
	for i, s := range sorted {
		if i > 0 && sorted[i-1].Account == s.Account {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSigner, s.Account)
		}
		elems = append(elems, objectEntry(fieldSigner, object{
			accountEntry(fieldAccount, s.Account),
			blobEntry(fieldSigningPubKey, s.PublicKey),
			blobEntry(fieldTxnSignature, s.Signature),
		}))
	}

	o := append(tx.entries(),
		blobEntry(fieldSigningPubKey, nil),
		arrayEntry(fieldSigners, elems),
	)
	return o.encode(), nil
}

// TxEnvelope is the storage form of an UnsignedTx: exactly one member is set.
type TxEnvelope struct {
	Payment       *Payment       `json:"payment,omitempty"`
	TicketCreate  *TicketCreate  `json:"ticket_create,omitempty"`
	SignerListSet *SignerListSet `json:"signer_list_set,omitempty"`
}

func Envelope(tx UnsignedTx) TxEnvelope {
	switch t := tx.(type) {
	case *Payment:
		return TxEnvelope{Payment: t}
	case *TicketCreate:
		return TxEnvelope{TicketCreate: t}
	case *SignerListSet:
		return TxEnvelope{SignerListSet: t}
	default:
		panic(fmt.Sprintf("unknown transaction type %T", tx))
	}
}

func (e TxEnvelope) Tx() (UnsignedTx, error) {
	switch {
	case e.Payment != nil && e.TicketCreate == nil && e.SignerListSet == nil:
		return e.Payment, nil
	case e.TicketCreate != nil && e.Payment == nil && e.SignerListSet == nil:
		return e.TicketCreate, nil
	case e.SignerListSet != nil && e.Payment == nil && e.TicketCreate == nil:
		return e.SignerListSet, nil
	default:
		return nil, errors.New("transaction envelope must hold exactly one transaction")
	}
}

func MarshalTx(tx UnsignedTx) ([]byte, error) {
	return json.Marshal(Envelope(tx))
}

func UnmarshalTx(data []byte) (UnsignedTx, error) {
	var e TxEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e.Tx()
}

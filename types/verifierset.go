package types

import (
	"encoding/binary"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"xrplprover/xrpl"
)

// Signer is a weighted verifier. Address is the verifier's address on the
// hub chain; PubKey is its compressed secp256k1 key.
type Signer struct {
	Address string        `json:"address"`
	PubKey  hexutil.Bytes `json:"pub_key"`
	Weight  uint64        `json:"weight"`
}

// XRPLAccount is the ledger account controlled by the signer's key.
func (s Signer) XRPLAccount() xrpl.AccountID {
	return xrpl.AccountIDFromPublicKey(s.PubKey)
}

// VerifierSet is a weighted signer set with a cumulative weight threshold.
// Signers are kept sorted by address.
type VerifierSet struct {
	Signers   []Signer `json:"signers"`
	Threshold uint64   `json:"threshold"`
	CreatedAt uint64   `json:"created_at"`
}

func NewVerifierSet(signers []Signer, threshold, createdAt uint64) *VerifierSet {
	sorted := append([]Signer(nil), signers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })
	return &VerifierSet{Signers: sorted, Threshold: threshold, CreatedAt: createdAt}
}

// ID is a content hash of the set, used to pin the set a session was
// started with.
func (vs *VerifierSet) ID() string {
	buf := make([]byte, 0, 64*len(vs.Signers)+16)
	for _, s := range vs.Signers {
		buf = append(buf, []byte(s.Address)...)
		buf = append(buf, 0)
		buf = append(buf, s.PubKey...)
		buf = binary.BigEndian.AppendUint64(buf, s.Weight)
	}
	buf = binary.BigEndian.AppendUint64(buf, vs.Threshold)
	buf = binary.BigEndian.AppendUint64(buf, vs.CreatedAt)
	return crypto.Keccak256Hash(buf).Hex()
}

func (vs *VerifierSet) TotalWeight() uint64 {
	var total uint64
	for _, s := range vs.Signers {
		total += s.Weight
	}
	return total
}

func (vs *VerifierSet) SignerByPubKey(pubKey []byte) (Signer, bool) {
	for _, s := range vs.Signers {
		if string(s.PubKey) == string(pubKey) {
			return s, true
		}
	}
	return Signer{}, false
}

func (vs *VerifierSet) SignerByAddress(address string) (Signer, bool) {
	for _, s := range vs.Signers {
		if s.Address == address {
			return s, true
		}
	}
	return Signer{}, false
}

// Diff counts signers added, removed or reweighted between two sets; a
// changed threshold counts as one more.
func (vs *VerifierSet) Diff(other *VerifierSet) int {
	ours := make(map[string]Signer, len(vs.Signers))
	for _, s := range vs.Signers {
		ours[s.Address] = s
	}

	diff := 0
	for _, s := range other.Signers {
		mine, ok := ours[s.Address]
		if !ok || mine.Weight != s.Weight || string(mine.PubKey) != string(s.PubKey) {
			diff++
		}
		delete(ours, s.Address)
	}
	diff += len(ours)

	if vs.Threshold != other.Threshold {
		diff++
	}
	return diff
}

// SameSigners reports whether both sets hold the same weighted keys and
// threshold, ignoring CreatedAt.
func (vs *VerifierSet) SameSigners(other *VerifierSet) bool {
	return vs.Diff(other) == 0
}

// SessionState is the state of an external signing session.
type SessionState string

const (
	SessionPending   SessionState = "pending"
	SessionCompleted SessionState = "completed"
)

// SessionSigner is a participant of a signing session with its signature,
// if one was submitted.
type SessionSigner struct {
	Signer    Signer        `json:"signer"`
	Signature hexutil.Bytes `json:"signature,omitempty"`
}

// SigningSession is the multisig module's view of a session.
type SigningSession struct {
	ID      uint64          `json:"id"`
	State   SessionState    `json:"state"`
	MsgHash common.Hash     `json:"msg_hash"`
	Signers []SessionSigner `json:"signers"`
}

package xrpl

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/ripemd160"
)

// ledger addresses use the same base58 math as bitcoin with another alphabet
const (
	bitcoinAlphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	rippleAlphabet  = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

	accountIDVersion = 0x00
)

var (
	toRipple  = strings.NewReplacer(alphabetPairs(bitcoinAlphabet, rippleAlphabet)...)
	toBitcoin = strings.NewReplacer(alphabetPairs(rippleAlphabet, bitcoinAlphabet)...)
)

func alphabetPairs(from, to string) []string {
	pairs := make([]string, 0, 2*len(from))
	for i := range from {
		pairs = append(pairs, from[i:i+1], to[i:i+1])
	}
	return pairs
}

var ErrInvalidAddress = errors.New("invalid XRPL address")

// AccountID is the 20 byte ledger account identifier.
type AccountID [20]byte

// AccountIDFromPublicKey derives RIPEMD160(SHA256(pubkey)).
func AccountIDFromPublicKey(pubKey []byte) AccountID {
	sha := sha256.Sum256(pubKey)
	h := ripemd160.New()
	h.Write(sha[:])

	var id AccountID
	copy(id[:], h.Sum(nil))
	return id
}

// ParseAddress decodes a classic "r..." address.
func ParseAddress(address string) (AccountID, error) {
	var id AccountID
	if address == "" || address[0] != 'r' {
		return id, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	decoded := base58.Decode(toBitcoin.Replace(address))
	if len(decoded) != 1+20+4 {
		return id, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if decoded[0] != accountIDVersion {
		return id, fmt.Errorf("%w: %q has wrong version", ErrInvalidAddress, address)
	}

	payload, sum := decoded[:21], decoded[21:]
	if !bytes.Equal(checksum(payload), sum) {
		return id, fmt.Errorf("%w: %q has bad checksum", ErrInvalidAddress, address)
	}

	copy(id[:], payload[1:])
	return id, nil
}

func MustParseAddress(address string) AccountID {
	id, err := ParseAddress(address)
	if err != nil {
		panic(err)
	}
	return id
}

func (a AccountID) String() string {
	payload := append([]byte{accountIDVersion}, a[:]...)
	payload = append(payload, checksum(payload)...)
	return toRipple.Replace(base58.Encode(payload))
}

func (a AccountID) Hex() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

func (a AccountID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *AccountID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

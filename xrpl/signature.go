package xrpl

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var (
	ErrInvalidPublicKey = errors.New("invalid secp256k1 public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// ValidatePublicKey accepts compressed or uncompressed secp256k1 keys.
func ValidatePublicKey(pubKey []byte) error {
	if _, err := secp256k1.ParsePubKey(pubKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return nil
}

func parseSignature(raw []byte) (*ecdsa.Signature, error) {
	if len(raw) == 64 {
		var r, s secp256k1.ModNScalar
		if overflow := r.SetByteSlice(raw[:32]); overflow || r.IsZero() {
			return nil, fmt.Errorf("%w: r out of range", ErrInvalidSignature)
		}
		if overflow := s.SetByteSlice(raw[32:]); overflow || s.IsZero() {
			return nil, fmt.Errorf("%w: s out of range", ErrInvalidSignature)
		}
		return ecdsa.NewSignature(&r, &s), nil
	}

	sig, err := ecdsa.ParseDERSignature(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return sig, nil
}

// CanonicalSignature decodes a compact (r||s) or DER signature, verifies it
// over digest and returns the low-S DER encoding the ledger accepts.
func CanonicalSignature(raw, pubKey, digest []byte) ([]byte, error) {
	key, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	sig, err := parseSignature(raw)
	if err != nil {
		return nil, err
	}

	if !sig.Verify(digest, key) {
		return nil, fmt.Errorf("%w: verification failed", ErrInvalidSignature)
	}

	return sig.Serialize(), nil
}

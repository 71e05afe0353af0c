package xrpl

import (
	"crypto/sha512"

	"github.com/ethereum/go-ethereum/common"
)

var (
	hashPrefixTransactionID = []byte{'T', 'X', 'N', 0x00}
	hashPrefixMultiSigning  = []byte{'S', 'M', 'T', 0x00}
)

// SHA512Half is the first half of SHA-512, the ledger's hash function.
func SHA512Half(parts ...[]byte) common.Hash {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return common.BytesToHash(h.Sum(nil)[:32])
}

// TxID is the ledger transaction id of a serialized (signed) transaction.
func TxID(blob []byte) common.Hash {
	return SHA512Half(hashPrefixTransactionID, blob)
}

// UnsignedTxHash identifies unsigned contents; it is the key transaction
// records are stored under.
func UnsignedTxHash(tx UnsignedTx) common.Hash {
	return TxID(SerializeUnsigned(tx))
}

// SigningHash is the multi-signing hash of the unsigned transaction before
// a signer account is appended. Signing sessions are opened over it.
func SigningHash(tx UnsignedTx) common.Hash {
	return SHA512Half(hashPrefixMultiSigning, SerializeUnsigned(tx))
}

// MultiSigningHash is the digest a given signer account signs.
func MultiSigningHash(tx UnsignedTx, signer AccountID) common.Hash {
	return SHA512Half(hashPrefixMultiSigning, SerializeUnsigned(tx), signer[:])
}

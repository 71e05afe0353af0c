// Package xrpl implements the parts of the XRP Ledger binary format the
// prover needs: canonical serialization of Payment, TicketCreate and
// SignerListSet transactions, multi-signing hashes, signature encoding and
// classic address handling.
package xrpl

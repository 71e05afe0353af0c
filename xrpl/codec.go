package xrpl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// type codes of the ledger's binary format
const (
	typeUInt16    = 1
	typeUInt32    = 2
	typeHash256   = 5
	typeAmount    = 6
	typeBlob      = 7
	typeAccountID = 8
	typeObject    = 14
	typeArray     = 15
)

const (
	objectEndMarker byte = 0xE1
	arrayEndMarker  byte = 0xF1
)

type field struct {
	name string
	typ  int
	nth  int
}

var (
	fieldTransactionType = field{"TransactionType", typeUInt16, 2}
	fieldSignerWeight    = field{"SignerWeight", typeUInt16, 3}
	fieldFlags           = field{"Flags", typeUInt32, 2}
	fieldSequence        = field{"Sequence", typeUInt32, 4}
	fieldSignerQuorum    = field{"SignerQuorum", typeUInt32, 35}
	fieldTicketCount     = field{"TicketCount", typeUInt32, 40}
	fieldTicketSequence  = field{"TicketSequence", typeUInt32, 41}
	fieldAmount          = field{"Amount", typeAmount, 1}
	fieldFee             = field{"Fee", typeAmount, 8}
	fieldSigningPubKey   = field{"SigningPubKey", typeBlob, 3}
	fieldTxnSignature    = field{"TxnSignature", typeBlob, 4}
	fieldMemoType        = field{"MemoType", typeBlob, 12}
	fieldMemoData        = field{"MemoData", typeBlob, 13}
	fieldAccount         = field{"Account", typeAccountID, 1}
	fieldDestination     = field{"Destination", typeAccountID, 3}
	fieldMemo            = field{"Memo", typeObject, 10}
	fieldSignerEntry     = field{"SignerEntry", typeObject, 11}
	fieldSigner          = field{"Signer", typeObject, 16}
	fieldSigners         = field{"Signers", typeArray, 3}
	fieldSignerEntries   = field{"SignerEntries", typeArray, 4}
	fieldMemos           = field{"Memos", typeArray, 9}
)

var knownFields = map[[2]int]field{}

func init() {
	for _, f := range []field{
		fieldTransactionType, fieldSignerWeight, fieldFlags, fieldSequence,
		fieldSignerQuorum, fieldTicketCount, fieldTicketSequence, fieldAmount,
		fieldFee, fieldSigningPubKey, fieldTxnSignature, fieldMemoType,
		fieldMemoData, fieldAccount, fieldDestination, fieldMemo,
		fieldSignerEntry, fieldSigner, fieldSigners, fieldSignerEntries,
		fieldMemos,
	} {
		knownFields[[2]int{f.typ, f.nth}] = f
	}
}

func (f field) header() []byte {
	switch {
	case f.typ < 16 && f.nth < 16:
		return []byte{byte(f.typ<<4 | f.nth)}
	case f.typ < 16:
		return []byte{byte(f.typ << 4), byte(f.nth)}
	case f.nth < 16:
		return []byte{byte(f.nth), byte(f.typ)}
	default:
		return []byte{0, byte(f.typ), byte(f.nth)}
	}
}

func (f field) less(o field) bool {
	if f.typ != o.typ {
		return f.typ < o.typ
	}
	return f.nth < o.nth
}

// entry is a field with its already encoded value.
type entry struct {
	f     field
	value []byte
}

// object is serialized in canonical field order regardless of the order
// entries were added in.
type object []entry

func (o object) encode() []byte {
	sorted := make(object, len(o))
	copy(sorted, o)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].f.less(sorted[j].f) })

	var out []byte
	for _, e := range sorted {
		out = append(out, e.f.header()...)
		out = append(out, e.value...)
	}
	return out
}

func uint16Entry(f field, v uint16) entry {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return entry{f, b}
}

func uint32Entry(f field, v uint32) entry {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return entry{f, b}
}

func amountEntry(f field, a Amount) entry {
	return entry{f, a.encode()}
}

func blobEntry(f field, b []byte) entry {
	return entry{f, append(encodeLength(len(b)), b...)}
}

func accountEntry(f field, a AccountID) entry {
	return entry{f, append(encodeLength(len(a)), a[:]...)}
}

func objectEntry(f field, inner object) entry {
	return entry{f, append(inner.encode(), objectEndMarker)}
}

func arrayEntry(f field, elems []entry) entry {
	var out []byte
	for _, e := range elems {
		out = append(out, e.f.header()...)
		out = append(out, e.value...)
	}
	return entry{f, append(out, arrayEndMarker)}
}

// encodeLength writes the variable length prefix used by blobs and accounts.
func encodeLength(n int) []byte {
	switch {
	case n <= 192:
		return []byte{byte(n)}
	case n <= 12480:
		n -= 193
		return []byte{byte(193 + n>>8), byte(n & 0xff)}
	default:
		n -= 12481
		return []byte{byte(241 + n>>16), byte(n >> 8 & 0xff), byte(n & 0xff)}
	}
}

var errShortInput = errors.New("unexpected end of input")

func decodeLength(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, errShortInput
	}
	b0 := int(data[0])
	switch {
	case b0 <= 192:
		return b0, 1, nil
	case b0 <= 240:
		if len(data) < 2 {
			return 0, 0, errShortInput
		}
		return 193 + (b0-193)*256 + int(data[1]), 2, nil
	case b0 <= 254:
		if len(data) < 3 {
			return 0, 0, errShortInput
		}
		return 12481 + (b0-241)*65536 + int(data[1])*256 + int(data[2]), 3, nil
	default:
		return 0, 0, fmt.Errorf("invalid length prefix %#x", b0)
	}
}

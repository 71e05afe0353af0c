package xrpl

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multisigAddress = "rfEf91bLxrTVC76vw1W3Ur8Jk4Lwujskmb"

func TestFieldHeader(t *testing.T) {
	assert.Equal(t, []byte{0x12}, fieldTransactionType.header())
	assert.Equal(t, []byte{0x20, 0x23}, fieldSignerQuorum.header())
	assert.Equal(t, []byte{0xE0, 0x10}, fieldSigner.header())
	assert.Equal(t, []byte{0xF4}, fieldSignerEntries.header())
	assert.Equal(t, []byte{0x81}, fieldAccount.header())
}

func TestLengthPrefix(t *testing.T) {
	for _, n := range []int{0, 20, 192, 193, 500, 12480, 12481, 20000} {
		prefix := encodeLength(n)
		got, size, err := decodeLength(prefix)
		require.NoError(t, err)
		assert.Equal(t, n, got)
		assert.Equal(t, len(prefix), size)
	}
	assert.Equal(t, []byte{193, 0}, encodeLength(193))
	assert.Equal(t, []byte{240, 255}, encodeLength(12480))
}

func testPayment(t *testing.T, seq Sequence) *Payment {
	t.Helper()
	amount, err := NativeAmount(1_000_000)
	require.NoError(t, err)
	return &Payment{
		TxHeader: TxHeader{
			Account:  MustParseAddress(multisigAddress),
			Fee:      120,
			Sequence: seq,
		},
		Destination: MustParseAddress(genesisAddress),
		Amount:      amount,
		MessageID:   "ethereum_0xabc-1",
	}
}

func TestSerializeUnsignedIsCanonical(t *testing.T) {
	p := testPayment(t, Sequence{Number: 44218195, Ticket: true})
	blob := SerializeUnsigned(p)

	// TransactionType first, Fee then SigningPubKey, Account and Destination last
	assert.Equal(t, []byte{0x12, 0x00, 0x00}, blob[:3])
	assert.Equal(t, blob, SerializeUnsigned(testPayment(t, Sequence{Number: 44218195, Ticket: true})))
	assert.NotEqual(t, blob, SerializeUnsigned(testPayment(t, Sequence{Number: 44218196, Ticket: true})))

	decoded, err := Decode(blob)
	require.NoError(t, err)

	seq, ok := decoded.Uint32("Sequence")
	require.True(t, ok)
	assert.Zero(t, seq)

	ticket, ok := decoded.Uint32("TicketSequence")
	require.True(t, ok)
	assert.EqualValues(t, 44218195, ticket)

	dest, ok := decoded.Account("Destination")
	require.True(t, ok)
	assert.Equal(t, genesisAddress, dest.String())

	pub, ok := decoded.Get("SigningPubKey")
	require.True(t, ok)
	assert.Empty(t, pub.Bytes)

	memos, ok := decoded.Get("Memos")
	require.True(t, ok)
	require.Len(t, memos.Array, 1)
	data, ok := memos.Array[0].Object.Get("MemoData")
	require.True(t, ok)
	assert.Equal(t, "ethereum_0xabc-1", string(data.Bytes))

	// field order in the blob is ascending by (type, code)
	prev := field{}
	for _, f := range decoded {
		cur := fieldByName(t, f.Name)
		assert.False(t, cur.less(prev), "%s out of order", f.Name)
		prev = cur
	}
}

func fieldByName(t *testing.T, name string) field {
	for _, f := range knownFields {
		if f.name == name {
			return f
		}
	}
	t.Fatalf("unknown field %s", name)
	return field{}
}

func TestSignerListSetSortsEntries(t *testing.T) {
	a := AccountIDFromPublicKey([]byte("a"))
	b := AccountIDFromPublicKey([]byte("b"))

	tx1 := &SignerListSet{
		TxHeader:      TxHeader{Account: MustParseAddress(multisigAddress), Fee: 30, Sequence: Sequence{Number: 10}},
		SignerQuorum:  2,
		SignerEntries: []SignerEntry{{Account: a, Weight: 1}, {Account: b, Weight: 1}},
	}
	tx2 := &SignerListSet{
		TxHeader:      tx1.TxHeader,
		SignerQuorum:  2,
		SignerEntries: []SignerEntry{{Account: b, Weight: 1}, {Account: a, Weight: 1}},
	}
	assert.Equal(t, SerializeUnsigned(tx1), SerializeUnsigned(tx2))
	assert.Equal(t, UnsignedTxHash(tx1), UnsignedTxHash(tx2))

	decoded, err := Decode(SerializeUnsigned(tx1))
	require.NoError(t, err)
	quorum, ok := decoded.Uint32("SignerQuorum")
	require.True(t, ok)
	assert.EqualValues(t, 2, quorum)

	entries, ok := decoded.Get("SignerEntries")
	require.True(t, ok)
	require.Len(t, entries.Array, 2)
	first, _ := entries.Array[0].Object.Account("Account")
	second, _ := entries.Array[1].Object.Account("Account")
	assert.Negative(t, bytes.Compare(first[:], second[:]))
}

func TestSerializeSignedOrdersSigners(t *testing.T) {
	p := testPayment(t, Sequence{Number: 7})

	var signers []Signer
	for i := 0; i < 3; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		pub := crypto.CompressPubkey(&key.PublicKey)
		account := AccountIDFromPublicKey(pub)

		digest := MultiSigningHash(p, account)
		raw, err := crypto.Sign(digest.Bytes(), key)
		require.NoError(t, err)

		der, err := CanonicalSignature(raw[:64], pub, digest.Bytes())
		require.NoError(t, err)
		signers = append(signers, Signer{Account: account, PublicKey: pub, Signature: der})
	}

	blob, err := SerializeSigned(p, signers)
	require.NoError(t, err)

	reversed := []Signer{signers[2], signers[1], signers[0]}
	blob2, err := SerializeSigned(p, reversed)
	require.NoError(t, err)
	assert.Equal(t, blob, blob2)

	decoded, err := Decode(blob)
	require.NoError(t, err)
	got := decoded.Signers()
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.Negative(t, bytes.Compare(got[i-1].Account[:], got[i].Account[:]))
	}
	for _, s := range got {
		assert.Len(t, s.PublicKey, 33)
		assert.NotEmpty(t, s.Signature)
	}

	_, err = SerializeSigned(p, []Signer{signers[0], signers[0]})
	assert.ErrorIs(t, err, ErrDuplicateSigner)
}

func TestTxEnvelopeRoundTrip(t *testing.T) {
	p := testPayment(t, Sequence{Number: 3, Ticket: true})

	data, err := MarshalTx(p)
	require.NoError(t, err)

	tx, err := UnmarshalTx(data)
	require.NoError(t, err)
	assert.Equal(t, TxTypePayment, tx.Type())
	assert.Equal(t, SerializeUnsigned(p), SerializeUnsigned(tx))

	_, err = UnmarshalTx([]byte(`{}`))
	assert.Error(t, err)
}

func TestHashesDiffer(t *testing.T) {
	p := testPayment(t, Sequence{Number: 3})
	signer := MustParseAddress(genesisAddress)

	assert.NotEqual(t, UnsignedTxHash(p), SigningHash(p))
	assert.NotEqual(t, SigningHash(p), MultiSigningHash(p, signer))
	assert.Equal(t, "534d5400", hex.EncodeToString(hashPrefixMultiSigning))
}

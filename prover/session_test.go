package prover

import (
	"bytes"
	"context"
	"math/big"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrplprover/redis"
	"xrplprover/types"
	"xrplprover/xrpl"
)

func TestConstructProofRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	ccid, sessionID := env.constructXRP("0x01-0", 1_000_000)
	assert.EqualValues(t, 1, sessionID)

	info := env.transaction(sessionID)
	assert.Equal(t, types.TxStatusPending, info.Status)
	require.NotNil(t, info.MessageID)
	assert.Equal(t, ccid, *info.MessageID)

	current, err := env.prover.GetVerifierSet()
	require.NoError(t, err)
	assert.Equal(t, current.ID(), info.VerifierSetID)

	payment, ok := info.UnsignedTx.(*xrpl.Payment)
	require.True(t, ok)
	assert.Equal(t, xrpl.Sequence{Number: 44218195, Ticket: true}, payment.Sequence)
	assert.EqualValues(t, 120, payment.Fee)
	assert.Equal(t, "axelar_0x01-0", payment.MessageID)
	assert.Equal(t, xrpl.MustParseAddress(testDestination), payment.Destination)
	assert.True(t, payment.Amount.IsNative())

	proof, err := env.prover.GetProof(env.ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, ProofPending, proof.Status)
	assert.Equal(t, &ccid, proof.MessageID)
	assert.Empty(t, proof.TxBlob)

	pending, err := env.prover.PendingTransactions()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, info.TxHash, pending[0].TxHash)

	env.sign(sessionID, "axelar1c", "axelar1a")

	proof, err = env.prover.GetProof(env.ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, ProofCompleted, proof.Status)
	assert.Equal(t, xrpl.TxID(proof.TxBlob), *proof.TxID)

	decoded, err := xrpl.Decode(proof.TxBlob)
	require.NoError(t, err)
	signers := decoded.Signers()
	require.Len(t, signers, 2)
	assert.True(t, sort.SliceIsSorted(signers, func(i, j int) bool {
		return bytes.Compare(signers[i].Account[:], signers[j].Account[:]) < 0
	}))
	for _, s := range signers {
		assert.Equal(t, xrpl.AccountIDFromPublicKey(s.PublicKey), s.Account)
	}
	seq, ok := decoded.Uint32("TicketSequence")
	require.True(t, ok)
	assert.EqualValues(t, 44218195, seq)

	again, err := env.prover.GetProof(env.ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, proof.TxBlob, again.TxBlob)
}

func TestConstructProofIsDeterministic(t *testing.T) {
	first := newTestEnv(t)
	second := newTestEnv(t)

	_, a := first.constructXRP("0x02-0", 5_000_000)
	_, b := second.constructXRP("0x02-0", 5_000_000)

	assert.Equal(t, first.transaction(a).TxHash, second.transaction(b).TxHash)
}

func TestConstructProofRejections(t *testing.T) {
	env := newTestEnv(t)
	before := env.pool()

	_, err := env.prover.ConstructProof(env.ctx, types.CrossChainID{SourceChain: "axelar"}, nil)
	assert.ErrorIs(t, err, ErrInvalidMessageID)

	_, err = env.prover.ConstructProof(env.ctx, types.CrossChainID{SourceChain: "axelar", MessageID: "0xunknown"}, nil)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	ccid, payload := env.route("0x03-0", xrpTokenID, big.NewInt(1), testDestination)
	_, err = env.prover.ConstructProof(env.ctx, ccid, append(payload, 0))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	ccid, payload = env.route("0x03-1", xrpTokenID, big.NewInt(0), testDestination)
	_, err = env.prover.ConstructProof(env.ctx, ccid, payload)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	ccid, payload = env.route("0x03-2", common.HexToHash("0xdead"), big.NewInt(1), testDestination)
	_, err = env.prover.ConstructProof(env.ctx, ccid, payload)
	assert.ErrorIs(t, err, ErrTokenNotRegistered)

	ccid, payload = env.route("0x03-3", xrpTokenID, big.NewInt(1), "not-an-address")
	_, err = env.prover.ConstructProof(env.ctx, ccid, payload)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	ccid, payload = env.route("0x03-4", xrpTokenID, big.NewInt(1), testDestination)
	env.gateway.messages[ccid].DestinationChain = "ethereum"
	_, err = env.prover.ConstructProof(env.ctx, ccid, payload)
	assert.ErrorIs(t, err, ErrInvalidChainName)

	assert.Equal(t, before, env.pool())
	assert.Empty(t, env.multisig.sessions)
}

func TestConstructProofOncePerMessage(t *testing.T) {
	env := newTestEnv(t)

	ccid, payload := env.route("0x04-0", xrpTokenID, big.NewInt(10), testDestination)
	first, err := env.prover.ConstructProof(env.ctx, ccid, payload)
	require.NoError(t, err)

	_, err = env.prover.ConstructProof(env.ctx, ccid, payload)
	require.ErrorIs(t, err, ErrPaymentAlreadyPending)

	env.confirm(first, types.TxStatusFailedOnChain, "axelar1a", "axelar1b")

	// a failed payment may be retried; its ticket stays consumed
	retry, err := env.prover.ConstructProof(env.ctx, ccid, payload)
	require.NoError(t, err)
	assert.Equal(t, xrpl.Sequence{Number: 44218196, Ticket: true}, env.transaction(retry).UnsignedTx.Header().Sequence)

	env.confirm(retry, types.TxStatusConfirmed, "axelar1a", "axelar1b")

	_, err = env.prover.ConstructProof(env.ctx, ccid, payload)
	require.ErrorIs(t, err, ErrTransactionStatusAlreadyUpdated)
}

func TestConstructProofRequiresVerifierSet(t *testing.T) {
	mr := miniredis.RunT(t)
	store := redis.New(mr.Addr())
	defer store.Close()

	env := &testEnv{t: t, gateway: &fakeGateway{messages: map[types.CrossChainID]*types.Message{}}}
	p, err := New(testConfig(), store, newFakeMultisig(), env.gateway, &fakeCoordinator{}, nil)
	require.NoError(t, err)

	ccid, payload := env.route("0x05-0", xrpTokenID, big.NewInt(10), testDestination)
	_, err = p.ConstructProof(context.Background(), ccid, payload)
	assert.ErrorIs(t, err, ErrWorkerSetIsNotSet)

	_, err = p.TicketCreate(context.Background())
	assert.ErrorIs(t, err, ErrWorkerSetIsNotSet)
}

func TestInvalidSignatureIsDropped(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID := env.constructXRP("0x06-0", 1_000_000)

	env.sign(sessionID, "axelar1a", "axelar1b", "axelar1c")

	// a signature by the right key over the wrong digest
	forged, err := crypto.Sign(crypto.Keccak256([]byte("other")), env.verifiers["axelar1c"].key)
	require.NoError(t, err)
	env.multisig.sessions[sessionID].sigs["axelar1c"] = forged[:64]

	proof, err := env.prover.GetProof(env.ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, ProofCompleted, proof.Status)

	decoded, err := xrpl.Decode(proof.TxBlob)
	require.NoError(t, err)
	signers := decoded.Signers()
	require.Len(t, signers, 2)
	forgedAccount := env.verifiers["axelar1c"].signer.XRPLAccount()
	for _, s := range signers {
		assert.NotEqual(t, forgedAccount, s.Account)
	}

	_, err = env.prover.UpdateTxStatus(env.ctx, verifierAddr, TxStatusUpdate{
		SessionID:        sessionID,
		MessageID:        proof.TxID.Hex(),
		Status:           types.TxStatusConfirmed,
		SignerPublicKeys: env.pubKeys("axelar1a", "axelar1c"),
	})
	assert.ErrorIs(t, err, ErrInvalidSignerPublicKeys)
}

func TestGetProofUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.prover.GetProof(env.ctx, 42)
	assert.ErrorIs(t, err, ErrProofNotFound)
}

type blockingMultisig struct {
	*fakeMultisig
	entered chan struct{}
	release chan struct{}
}

func (m *blockingMultisig) SigningSession(ctx context.Context, sessionID uint64) (*types.SigningSession, error) {
	close(m.entered)
	<-m.release
	return m.fakeMultisig.SigningSession(ctx, sessionID)
}

func TestGetProofReleasesLockDuringSessionQuery(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID := env.constructXRP("0x07-0", 1_000_000)

	slow := &blockingMultisig{fakeMultisig: env.multisig, entered: make(chan struct{}), release: make(chan struct{})}
	env.prover.multisig = slow

	proofs := make(chan error, 1)
	go func() {
		_, err := env.prover.GetProof(env.ctx, sessionID)
		proofs <- err
	}()
	<-slow.entered

	token := usdToken(t)
	writes := make(chan error, 1)
	go func() {
		writes <- env.prover.RegisterToken(governanceAddr, token)
	}()

	select {
	case err := <-writes:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		close(slow.release)
		t.Fatal("write blocked behind a pending signing session query")
	}

	close(slow.release)
	require.NoError(t, <-proofs)
}

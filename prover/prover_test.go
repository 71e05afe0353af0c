package prover

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrplprover/its"
	"xrplprover/redis"
	"xrplprover/types"
	"xrplprover/xrpl"
)

const (
	testChain       = "xrpl"
	testMultisig    = "rfEf91bLxrTVC76vw1W3Ur8Jk4Lwujskmb"
	testDestination = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	verifierAddr    = "axelar1verifier"
	governanceAddr  = "axelar1governance"
	adminAddr       = "axelar1admin"
)

var xrpTokenID = common.HexToHash("0xc2bb311dd03a93be4b74d3b4ab8612241c4dd1fd0232467c54a03b064f8583b6")

type fakeSession struct {
	vs      *types.VerifierSet
	msgHash common.Hash
	sigs    map[string]hexutil.Bytes
}

type fakeMultisig struct {
	nextID   uint64
	sessions map[uint64]*fakeSession
}

func newFakeMultisig() *fakeMultisig {
	return &fakeMultisig{nextID: 1, sessions: map[uint64]*fakeSession{}}
}

func (m *fakeMultisig) StartSigningSession(_ context.Context, vs *types.VerifierSet, msgHash common.Hash) (uint64, error) {
	id := m.nextID
	m.nextID++
	m.sessions[id] = &fakeSession{vs: vs, msgHash: msgHash, sigs: map[string]hexutil.Bytes{}}
	return id, nil
}

func (m *fakeMultisig) SigningSession(_ context.Context, sessionID uint64) (*types.SigningSession, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %d not found", sessionID)
	}

	out := &types.SigningSession{ID: sessionID, State: types.SessionPending, MsgHash: s.msgHash}
	var weight uint64
	for _, signer := range s.vs.Signers {
		sig := s.sigs[signer.Address]
		if len(sig) > 0 {
			weight += signer.Weight
		}
		out.Signers = append(out.Signers, types.SessionSigner{Signer: signer, Signature: sig})
	}
	if weight >= s.vs.Threshold {
		out.State = types.SessionCompleted
	}
	return out, nil
}

type fakeGateway struct {
	messages map[types.CrossChainID]*types.Message
}

func (g *fakeGateway) OutgoingMessage(_ context.Context, id types.CrossChainID) (*types.Message, error) {
	return g.messages[id], nil
}

type fakeCoordinator struct {
	signers []types.Signer
	height  uint64
}

func (c *fakeCoordinator) ActiveVerifiers(context.Context) ([]types.Signer, uint64, error) {
	return c.signers, c.height, nil
}

type testVerifier struct {
	key    *ecdsa.PrivateKey
	signer types.Signer
}

func newTestVerifier(t *testing.T, address string) testVerifier {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return testVerifier{
		key:    key,
		signer: types.Signer{Address: address, PubKey: crypto.CompressPubkey(&key.PublicKey), Weight: 1},
	}
}

type testEnv struct {
	t           *testing.T
	ctx         context.Context
	prover      *Prover
	store       *redis.Store
	multisig    *fakeMultisig
	gateway     *fakeGateway
	coordinator *fakeCoordinator
	verifiers   map[string]testVerifier
}

func testConfig() Config {
	return Config{
		ChainName:                testChain,
		MultisigAccount:          xrpl.MustParseAddress(testMultisig),
		XRPTokenID:               xrpTokenID,
		Fee:                      30,
		TicketCountThreshold:     1,
		SigningThresholdNum:      2,
		SigningThresholdDen:      3,
		VerifierSetDiffThreshold: 1,
		VerifierAddress:          verifierAddr,
		GovernanceAddress:        governanceAddr,
		AdminAddress:             adminAddr,
		InitialTicketPool: types.TicketPool{
			AvailableTickets:         []uint32{44218195, 44218196, 44218197, 44218198, 44218199},
			NextSequenceNumber:       44218446,
			LastAssignedTicketNumber: 44218195,
		},
	}
}

// newTestEnv starts a prover with three weight-1 verifiers installed and a
// 2-of-3 threshold.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	store := redis.New(mr.Addr())
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		t:           t,
		ctx:         context.Background(),
		store:       store,
		multisig:    newFakeMultisig(),
		gateway:     &fakeGateway{messages: map[types.CrossChainID]*types.Message{}},
		coordinator: &fakeCoordinator{height: 100},
		verifiers:   map[string]testVerifier{},
	}

	p, err := New(cfg, store, env.multisig, env.gateway, env.coordinator, nil)
	require.NoError(t, err)
	env.prover = p

	env.setActiveVerifiers("axelar1a", "axelar1b", "axelar1c")
	sessionID, err := p.UpdateVerifierSet(env.ctx, governanceAddr)
	require.NoError(t, err)
	require.Zero(t, sessionID)

	return env
}

func (e *testEnv) setActiveVerifiers(addresses ...string) {
	e.coordinator.signers = nil
	for _, address := range addresses {
		v, ok := e.verifiers[address]
		if !ok {
			v = newTestVerifier(e.t, address)
			e.verifiers[address] = v
		}
		e.coordinator.signers = append(e.coordinator.signers, v.signer)
	}
	e.coordinator.height++
}

// route registers an outgoing transfer with the gateway and returns its id
// and payload.
func (e *testEnv) route(id string, tokenID common.Hash, amount *big.Int, destination string) (types.CrossChainID, []byte) {
	e.t.Helper()

	msg := &its.HubMessage{
		SourceChain: "ethereum",
		Transfer: its.InterchainTransfer{
			TokenID:            tokenID,
			SourceAddress:      common.HexToAddress("0x1234").Bytes(),
			DestinationAddress: []byte(destination),
			Amount:             amount,
			Data:               []byte{},
		},
	}
	payload, err := msg.Encode()
	require.NoError(e.t, err)

	ccid := types.CrossChainID{SourceChain: "axelar", MessageID: id}
	e.gateway.messages[ccid] = &types.Message{
		CCID:               ccid,
		SourceAddress:      "axelar1its",
		DestinationChain:   testChain,
		DestinationAddress: testMultisig,
		PayloadHash:        crypto.Keccak256Hash(payload),
	}
	return ccid, payload
}

func (e *testEnv) constructXRP(id string, drops int64) (types.CrossChainID, uint64) {
	e.t.Helper()
	ccid, payload := e.route(id, xrpTokenID, big.NewInt(drops), testDestination)
	sessionID, err := e.prover.ConstructProof(e.ctx, ccid, payload)
	require.NoError(e.t, err)
	return ccid, sessionID
}

func (e *testEnv) transaction(sessionID uint64) *types.TransactionInfo {
	e.t.Helper()
	txHash, found, err := e.store.SessionTx(sessionID)
	require.NoError(e.t, err)
	require.True(e.t, found)
	info, err := e.store.TransactionInfo(txHash)
	require.NoError(e.t, err)
	require.NotNil(e.t, info)
	return info
}

// sign submits the signatures of the given verifiers to a session.
func (e *testEnv) sign(sessionID uint64, addresses ...string) {
	e.t.Helper()
	info := e.transaction(sessionID)
	session := e.multisig.sessions[sessionID]
	require.NotNil(e.t, session)

	for _, address := range addresses {
		v := e.verifiers[address]
		digest := xrpl.MultiSigningHash(info.UnsignedTx, v.signer.XRPLAccount())
		sig, err := crypto.Sign(digest.Bytes(), v.key)
		require.NoError(e.t, err)
		session.sigs[address] = sig[:64]
	}
}

func (e *testEnv) pubKeys(addresses ...string) []hexutil.Bytes {
	keys := make([]hexutil.Bytes, 0, len(addresses))
	for _, address := range addresses {
		keys = append(keys, e.verifiers[address].signer.PubKey)
	}
	return keys
}

// confirm signs a session with the given verifiers and reports the outcome.
func (e *testEnv) confirm(sessionID uint64, status types.TxStatus, addresses ...string) *types.TransactionInfo {
	e.t.Helper()
	e.sign(sessionID, addresses...)

	proof, err := e.prover.GetProof(e.ctx, sessionID)
	require.NoError(e.t, err)
	require.Equal(e.t, ProofCompleted, proof.Status)

	info, err := e.prover.UpdateTxStatus(e.ctx, verifierAddr, TxStatusUpdate{
		SessionID:        sessionID,
		MessageID:        proof.TxID.Hex(),
		Status:           status,
		SignerPublicKeys: e.pubKeys(addresses...),
	})
	require.NoError(e.t, err)
	return info
}

func (e *testEnv) pool() *types.TicketPool {
	e.t.Helper()
	pool, err := e.store.TicketPool()
	require.NoError(e.t, err)
	require.NotNil(e.t, pool)
	return pool
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"valid", func(*Config) {}, nil},
		{"empty chain name", func(c *Config) { c.ChainName = "" }, ErrInvalidChainName},
		{"long chain name", func(c *Config) { c.ChainName = "averyveryverylongchainname" }, ErrInvalidChainName},
		{"chain name with separator", func(c *Config) { c.ChainName = "xrpl:main" }, ErrInvalidChainName},
		{"zero ticket threshold", func(c *Config) { c.TicketCountThreshold = 0 }, ErrInvalidTicketCountThreshold},
		{"ticket threshold at ledger maximum", func(c *Config) { c.TicketCountThreshold = xrpl.MaxTicketCount }, ErrInvalidTicketCountThreshold},
		{"signing threshold above one", func(c *Config) { c.SigningThresholdNum = 4 }, ErrInvalidSigningThreshold},
		{"zero denominator", func(c *Config) { c.SigningThresholdDen = 0 }, ErrInvalidSigningThreshold},
		{"no multisig account", func(c *Config) { c.MultisigAccount = xrpl.AccountID{} }, xrpl.ErrInvalidAddress},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNewInitialisesTicketPoolOnce(t *testing.T) {
	env := newTestEnv(t)

	pool := env.pool()
	assert.Equal(t, []uint32{44218195, 44218196, 44218197, 44218198, 44218199}, pool.AvailableTickets)
	assert.EqualValues(t, 44218199, pool.LastAssignedTicketNumber)

	env.constructXRP("0x01-1", 1_000_000)

	// a restart keeps the stored pool
	_, err := New(testConfig(), env.store, env.multisig, env.gateway, env.coordinator, nil)
	require.NoError(t, err)
	assert.Len(t, env.pool().AvailableTickets, 4)
}

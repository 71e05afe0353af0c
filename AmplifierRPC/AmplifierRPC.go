// Package AmplifierRPC queries and executes the Amplifier hub contracts the
// prover depends on: the multisig module, the gateway and the coordinator.
package AmplifierRPC

import (
	"context"
	"errors"
	"fmt"

	"xrplprover/config"
	"xrplprover/metrics"
	"xrplprover/types"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
)

const (
	methodStartSigningSession = "multisig_startSigningSession"
	methodSigningSession      = "multisig_signingSession"
	methodOutgoingMessages    = "gateway_outgoingMessages"
	methodActiveVerifiers     = "coordinator_activeVerifiers"
)

var ErrNoEndpoints = errors.New("no amplifier rpc endpoints configured")

type Contracts struct {
	Multisig    string
	Gateway     string
	Coordinator string
	// the prover's own contract address, as the multisig module knows it
	Prover    string
	ChainName string
}

type Client struct {
	rpcList   []string
	contracts Contracts
	retries   int
	dial      func(url string) jsonrpc.RPCClient
}

func NewClient(rpcList []string, contracts Contracts) *Client {
	return &Client{
		rpcList:   rpcList,
		contracts: contracts,
		retries:   config.AMPLIFIER_RETRIES,
		dial:      jsonrpc.NewClient,
	}
}

// FromConfig builds a client for the endpoints and contracts in config.Config.
func FromConfig() *Client {
	amp := config.Config.Amplifier
	return NewClient(amp.RPCList, Contracts{
		Multisig:    amp.MultisigAddress,
		Gateway:     amp.GatewayAddress,
		Coordinator: amp.CoordinatorAddress,
		Prover:      amp.ServiceName,
		ChainName:   config.Config.XRPL.ChainName,
	})
}

// WithClient runs f against each endpoint in turn until one succeeds.
func WithClient[T any](ctx context.Context, c *Client, method string, f func(client jsonrpc.RPCClient) (T, error)) (res T, err error) {
	if len(c.rpcList) == 0 {
		return res, ErrNoEndpoints
	}

	for _, url := range c.rpcList {
		client := c.dial(url)
		for attempt := 0; attempt < c.retries; attempt++ {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}

			res, err = f(client)
			if err == nil {
				return
			}
			metrics.AmplifierRPCErrors.WithLabelValues(method).Inc()
			log.WithFields(log.Fields{
				"endpoint": url,
				"method":   method,
				"attempt":  attempt + 1,
			}).WithError(err).Warn("amplifier rpc call failed")

			var rpcErr *jsonrpc.RPCError
			if errors.As(err, &rpcErr) {
				// the node answered; another attempt will not change the answer
				break
			}
		}
	}
	return res, fmt.Errorf("%s: %w", method, err)
}

// Execute sends a call that changes hub state to the first endpoint, once.
// A call whose reply was lost may still have been applied, so it is never
// replayed or sent to another endpoint.
func Execute[T any](ctx context.Context, c *Client, method string, f func(client jsonrpc.RPCClient) (T, error)) (res T, err error) {
	if len(c.rpcList) == 0 {
		return res, ErrNoEndpoints
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	url := c.rpcList[0]
	res, err = f(c.dial(url))
	if err != nil {
		metrics.AmplifierRPCErrors.WithLabelValues(method).Inc()
		log.WithFields(log.Fields{
			"endpoint": url,
			"method":   method,
		}).WithError(err).Warn("amplifier rpc execute failed")
		return res, fmt.Errorf("%s: %w", method, err)
	}
	return res, nil
}

type startSigningSessionParams struct {
	Contract      string      `json:"contract"`
	ChainName     string      `json:"chain_name"`
	VerifierSetID string      `json:"verifier_set_id"`
	Msg           common.Hash `json:"msg"`
	Sender        string      `json:"sender"`
}

type startSigningSessionResult struct {
	SessionID uint64 `json:"session_id"`
}

func (c *Client) StartSigningSession(ctx context.Context, vs *types.VerifierSet, msgHash common.Hash) (uint64, error) {
	params := startSigningSessionParams{
		Contract:      c.contracts.Multisig,
		ChainName:     c.contracts.ChainName,
		VerifierSetID: vs.ID(),
		Msg:           msgHash,
		Sender:        c.contracts.Prover,
	}
	res, err := Execute(ctx, c, methodStartSigningSession, func(client jsonrpc.RPCClient) (*startSigningSessionResult, error) {
		var out startSigningSessionResult
		if err := client.CallFor(&out, methodStartSigningSession, params); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return 0, err
	}
	if res.SessionID == 0 {
		return 0, fmt.Errorf("%s: multisig returned session id 0", methodStartSigningSession)
	}
	return res.SessionID, nil
}

type sessionParams struct {
	Contract  string `json:"contract"`
	SessionID uint64 `json:"session_id"`
}

func (c *Client) SigningSession(ctx context.Context, sessionID uint64) (*types.SigningSession, error) {
	params := sessionParams{Contract: c.contracts.Multisig, SessionID: sessionID}
	return WithClient(ctx, c, methodSigningSession, func(client jsonrpc.RPCClient) (*types.SigningSession, error) {
		var out *types.SigningSession
		if err := client.CallFor(&out, methodSigningSession, params); err != nil {
			return nil, err
		}
		return out, nil
	})
}

type outgoingMessagesParams struct {
	Contract string               `json:"contract"`
	IDs      []types.CrossChainID `json:"ids"`
}

// OutgoingMessage returns nil when the gateway does not know the message.
func (c *Client) OutgoingMessage(ctx context.Context, id types.CrossChainID) (*types.Message, error) {
	params := outgoingMessagesParams{Contract: c.contracts.Gateway, IDs: []types.CrossChainID{id}}
	msgs, err := WithClient(ctx, c, methodOutgoingMessages, func(client jsonrpc.RPCClient) ([]types.Message, error) {
		var out []types.Message
		if err := client.CallFor(&out, methodOutgoingMessages, params); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	for i := range msgs {
		if msgs[i].CCID == id {
			return &msgs[i], nil
		}
	}
	return nil, nil
}

type activeVerifiersParams struct {
	Contract  string `json:"contract"`
	ChainName string `json:"chain_name"`
}

type activeVerifiersResult struct {
	Verifiers   []types.Signer `json:"verifiers"`
	BlockHeight uint64         `json:"block_height"`
}

func (c *Client) ActiveVerifiers(ctx context.Context) ([]types.Signer, uint64, error) {
	params := activeVerifiersParams{Contract: c.contracts.Coordinator, ChainName: c.contracts.ChainName}
	res, err := WithClient(ctx, c, methodActiveVerifiers, func(client jsonrpc.RPCClient) (*activeVerifiersResult, error) {
		var out activeVerifiersResult
		if err := client.CallFor(&out, methodActiveVerifiers, params); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Verifiers, res.BlockHeight, nil
}

// Package its decodes interchain token service payloads routed through the
// hub. Only token transfers are turned into ledger payments; the other
// message types are recognised and rejected.
package its

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type MessageType uint64

const (
	MessageTypeInterchainTransfer MessageType = iota
	MessageTypeDeployInterchainToken
	MessageTypeDeployTokenManager
	MessageTypeSendToHub
	MessageTypeReceiveFromHub
)

var (
	ErrDecodeFailed       = errors.New("failed to decode ITS message")
	ErrInvalidMessageType = errors.New("invalid ITS message type")
)

var (
	uint256Type, _ = abi.NewType("uint256", "", nil)
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	bytesType, _   = abi.NewType("bytes", "", nil)
	stringType, _  = abi.NewType("string", "", nil)

	hubArgs = abi.Arguments{
		{Name: "messageType", Type: uint256Type},
		{Name: "chain", Type: stringType},
		{Name: "message", Type: bytesType},
	}
	transferArgs = abi.Arguments{
		{Name: "messageType", Type: uint256Type},
		{Name: "tokenId", Type: bytes32Type},
		{Name: "sourceAddress", Type: bytesType},
		{Name: "destinationAddress", Type: bytesType},
		{Name: "amount", Type: uint256Type},
		{Name: "data", Type: bytesType},
	}
)

// InterchainTransfer moves Amount of TokenID to DestinationAddress, which
// for this chain is the UTF-8 classic address of the recipient.
type InterchainTransfer struct {
	TokenID            common.Hash
	SourceAddress      []byte
	DestinationAddress []byte
	Amount             *big.Int
	Data               []byte
}

// HubMessage is a ReceiveFromHub envelope carrying a transfer.
type HubMessage struct {
	SourceChain string
	Transfer    InterchainTransfer
}

func messageType(payload []byte) (MessageType, error) {
	if len(payload) < 32 {
		return 0, fmt.Errorf("%w: payload too short", ErrDecodeFailed)
	}
	t := new(big.Int).SetBytes(payload[:32])
	if !t.IsUint64() || t.Uint64() > uint64(MessageTypeReceiveFromHub) {
		return 0, ErrInvalidMessageType
	}
	return MessageType(t.Uint64()), nil
}

// DecodeHubMessage decodes a ReceiveFromHub payload wrapping an
// InterchainTransfer.
func DecodeHubMessage(payload []byte) (*HubMessage, error) {
	t, err := messageType(payload)
	if err != nil {
		return nil, err
	}
	if t != MessageTypeReceiveFromHub {
		return nil, fmt.Errorf("%w: expected ReceiveFromHub, got %d", ErrInvalidMessageType, t)
	}

	values, err := hubArgs.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecodeFailed, err)
	}
	sourceChain, _ := values[1].(string)
	inner, _ := values[2].([]byte)

	transfer, err := DecodeTransfer(inner)
	if err != nil {
		return nil, err
	}
	return &HubMessage{SourceChain: sourceChain, Transfer: *transfer}, nil
}

func DecodeTransfer(payload []byte) (*InterchainTransfer, error) {
	t, err := messageType(payload)
	if err != nil {
		return nil, err
	}
	if t != MessageTypeInterchainTransfer {
		return nil, fmt.Errorf("%w: expected InterchainTransfer, got %d", ErrInvalidMessageType, t)
	}

	values, err := transferArgs.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecodeFailed, err)
	}

	tokenID, _ := values[1].([32]byte)
	source, _ := values[2].([]byte)
	dest, _ := values[3].([]byte)
	amount, _ := values[4].(*big.Int)
	data, _ := values[5].([]byte)
	if amount == nil {
		return nil, fmt.Errorf("%w: missing amount", ErrDecodeFailed)
	}

	return &InterchainTransfer{
		TokenID:            common.Hash(tokenID),
		SourceAddress:      source,
		DestinationAddress: dest,
		Amount:             amount,
		Data:               data,
	}, nil
}

// Encode is the inverse of DecodeHubMessage.
func (m *HubMessage) Encode() ([]byte, error) {
	inner, err := transferArgs.Pack(
		big.NewInt(int64(MessageTypeInterchainTransfer)),
		[32]byte(m.Transfer.TokenID),
		m.Transfer.SourceAddress,
		m.Transfer.DestinationAddress,
		m.Transfer.Amount,
		m.Transfer.Data,
	)
	if err != nil {
		return nil, err
	}
	return hubArgs.Pack(big.NewInt(int64(MessageTypeReceiveFromHub)), m.SourceChain, inner)
}

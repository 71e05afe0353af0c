package prover

import "errors"

// validation
var (
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInvalidPaymentAmount        = errors.New("invalid payment amount")
	ErrInvalidChainName            = errors.New("invalid chain name")
	ErrInvalidTicketCountThreshold = errors.New("invalid ticket count threshold")
	ErrInvalidSigningThreshold     = errors.New("invalid signing threshold")
	ErrInvalidMessageID            = errors.New("invalid message id")
	ErrInvalidPayload              = errors.New("invalid payload")
	ErrInvalidToken                = errors.New("invalid token")
	ErrInvalidSignerPublicKeys     = errors.New("invalid signer public keys")
	ErrTooManySigners              = errors.New("too many signers")
	ErrInvalidSignerWeight         = errors.New("invalid signer weight")
)

// conflict: the caller must wait or change its input
var (
	ErrPreviousTicketCreateTxPending   = errors.New("previous ticket create transaction is pending")
	ErrTicketCountThresholdNotReached  = errors.New("ticket count threshold not reached")
	ErrTransactionStatusAlreadyUpdated = errors.New("transaction status is already updated")
	ErrPaymentAlreadyPending           = errors.New("payment for this message is already pending")
	ErrWorkerSetUnchanged              = errors.New("worker set has not changed sufficiently since last update")
	ErrVerifierSetUpdatePending        = errors.New("verifier set update is pending")
)

// not found
var (
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")
	ErrProofNotFound            = errors.New("proof not found")
	ErrWorkerSetIsNotSet        = errors.New("worker set is not set")
	ErrTokenNotRegistered       = errors.New("token is not registered")
	ErrMessageNotFound          = errors.New("message not found")
)

var ErrUnauthorized = errors.New("unauthorized")

// integrity: a collaborator answered with something unusable
var (
	ErrSerializationFailed  = errors.New("serialization failed")
	ErrInvalidContractReply = errors.New("invalid contract reply")
)

// Package prover builds XRPL multisig transactions for the gateway, drives
// their signing sessions and tracks their confirmation. Every entrypoint
// runs to completion under one lock and persists its writes atomically.
package prover

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"xrplprover/types"
	"xrplprover/xrpl"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

type Store interface {
	SaveConfig(cfg interface{}) error
	TicketPool() (*types.TicketPool, error)
	TransactionInfo(txHash common.Hash) (*types.TransactionInfo, error)
	TransactionsByStatus(status types.TxStatus) ([]*types.TransactionInfo, error)
	SessionTx(sessionID uint64) (common.Hash, bool, error)
	MessageTx(id types.CrossChainID) (common.Hash, bool, error)
	CurrentVerifierSet() (*types.VerifierSet, error)
	NextVerifierSet() (*types.VerifierSet, error)
	VerifierSet(id string) (*types.VerifierSet, error)
	Token(id types.TokenID) (*types.RegisteredToken, error)
	Commit(change *types.StateChange) error
	Ping() error
}

// Multisig is the signing module. Sessions complete once signers holding the
// set threshold of weight have signed.
type Multisig interface {
	StartSigningSession(ctx context.Context, vs *types.VerifierSet, msgHash common.Hash) (uint64, error)
	SigningSession(ctx context.Context, sessionID uint64) (*types.SigningSession, error)
}

type Gateway interface {
	// OutgoingMessage returns nil, nil for unknown messages.
	OutgoingMessage(ctx context.Context, id types.CrossChainID) (*types.Message, error)
}

type Coordinator interface {
	// ActiveVerifiers returns the registered verifier set and the block
	// height it was read at.
	ActiveVerifiers(ctx context.Context) ([]types.Signer, uint64, error)
}

type Publisher interface {
	Publish(eventType string, data interface{}) error
}

const maxChainNameLength = 20

type Config struct {
	ChainName       string         `json:"chain_name"`
	MultisigAccount xrpl.AccountID `json:"multisig_account"`
	XRPTokenID      types.TokenID  `json:"xrp_token_id"`
	// drops per signature
	Fee                      uint64 `json:"fee"`
	TicketCountThreshold     uint32 `json:"ticket_count_threshold"`
	SigningThresholdNum      uint64 `json:"signing_threshold_numerator"`
	SigningThresholdDen      uint64 `json:"signing_threshold_denominator"`
	VerifierSetDiffThreshold int    `json:"verifier_set_diff_threshold"`

	VerifierAddress   string `json:"verifier_address"`
	GovernanceAddress string `json:"governance_address"`
	AdminAddress      string `json:"admin_address"`

	InitialTicketPool types.TicketPool `json:"-"`
}

func (c *Config) Validate() error {
	if c.ChainName == "" || len(c.ChainName) > maxChainNameLength || strings.ContainsAny(c.ChainName, ":_") {
		return fmt.Errorf("%w: %q", ErrInvalidChainName, c.ChainName)
	}
	if c.TicketCountThreshold == 0 || c.TicketCountThreshold >= xrpl.MaxTicketCount {
		return fmt.Errorf("%w: %d must be in [1, %d)", ErrInvalidTicketCountThreshold, c.TicketCountThreshold, xrpl.MaxTicketCount)
	}
	if c.SigningThresholdNum == 0 || c.SigningThresholdDen == 0 || c.SigningThresholdNum > c.SigningThresholdDen {
		return fmt.Errorf("%w: %d/%d", ErrInvalidSigningThreshold, c.SigningThresholdNum, c.SigningThresholdDen)
	}
	if c.MultisigAccount.IsZero() {
		return fmt.Errorf("%w: multisig account is not set", xrpl.ErrInvalidAddress)
	}
	if c.Fee == 0 {
		return fmt.Errorf("%w: fee must be positive", ErrInvalidAmount)
	}
	if c.VerifierSetDiffThreshold < 0 {
		return fmt.Errorf("negative verifier set diff threshold %d", c.VerifierSetDiffThreshold)
	}
	return nil
}

type Prover struct {
	mu sync.Mutex

	cfg         Config
	store       Store
	multisig    Multisig
	gateway     Gateway
	coordinator Coordinator
	events      Publisher
}

// New validates the configuration and stores the initial ticket pool if
// none is persisted yet.
func New(cfg Config, store Store, multisig Multisig, gateway Gateway, coordinator Coordinator, events Publisher) (*Prover, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Prover{
		cfg:         cfg,
		store:       store,
		multisig:    multisig,
		gateway:     gateway,
		coordinator: coordinator,
		events:      events,
	}

	if err := store.SaveConfig(cfg); err != nil {
		return nil, err
	}

	pool, err := store.TicketPool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = cfg.InitialTicketPool.Clone()
		pool.AvailableTickets = sortedUnique(pool.AvailableTickets)
		for _, t := range pool.AvailableTickets {
			if t > pool.LastAssignedTicketNumber {
				pool.LastAssignedTicketNumber = t
			}
		}
		if err := store.Commit(&types.StateChange{TicketPool: pool}); err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"available_tickets":    len(pool.AvailableTickets),
			"next_sequence_number": pool.NextSequenceNumber,
		}).Info("initialised ticket pool")
	}
	setTicketGauge(pool)

	return p, nil
}

// Ping checks that the state store answers.
func (p *Prover) Ping() error {
	return p.store.Ping()
}

func (p *Prover) Config() Config {
	return p.cfg
}

func (p *Prover) publish(eventType string, data interface{}) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(eventType, data); err != nil {
		log.WithError(err).WithField("event", eventType).Warn("cannot publish event")
	}
}

func (p *Prover) isGovernance(sender string) bool {
	return sender != "" && sender == p.cfg.GovernanceAddress
}

func (p *Prover) isAdminOrGovernance(sender string) bool {
	return p.isGovernance(sender) || (sender != "" && sender == p.cfg.AdminAddress)
}

func (p *Prover) ticketPool() (*types.TicketPool, error) {
	pool, err := p.store.TicketPool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("ticket pool is not initialised")
	}
	return pool.Clone(), nil
}

func (p *Prover) currentVerifierSet() (*types.VerifierSet, error) {
	vs, err := p.store.CurrentVerifierSet()
	if err != nil {
		return nil, err
	}
	if vs == nil {
		return nil, ErrWorkerSetIsNotSet
	}
	return vs, nil
}

// fee is paid per signature plus the base transaction cost.
func (p *Prover) fee(signers *types.VerifierSet) uint64 {
	return p.cfg.Fee * uint64(1+len(signers.Signers))
}

func sortedUnique(values []uint32) []uint32 {
	out := append([]uint32(nil), values...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}

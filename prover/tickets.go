package prover

import (
	"context"
	"fmt"

	"xrplprover/events"
	"xrplprover/metrics"
	"xrplprover/types"
	"xrplprover/xrpl"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// allocate takes the lowest available ticket, or the next account sequence
// number when none is left. Each slot is handed out once.
func allocate(pool *types.TicketPool) xrpl.Sequence {
	if len(pool.AvailableTickets) > 0 {
		ticket := pool.AvailableTickets[0]
		pool.AvailableTickets = pool.AvailableTickets[1:]
		return xrpl.Sequence{Number: ticket, Ticket: true}
	}
	return nextSequence(pool)
}

func nextSequence(pool *types.TicketPool) xrpl.Sequence {
	seq := pool.NextSequenceNumber
	pool.NextSequenceNumber++
	return xrpl.Sequence{Number: seq}
}

func needsRefill(pool *types.TicketPool, threshold uint32, ticketCreatePending bool) bool {
	return len(pool.AvailableTickets) <= int(threshold) && !ticketCreatePending
}

// onTicketCreateConfirmed makes the tickets of a confirmed TicketCreate
// available. The ledger creates count tickets right after the sequence the
// TicketCreate consumed and moves the account sequence past them.
func onTicketCreateConfirmed(pool *types.TicketPool, sequence, count uint32) {
	pool.LastAssignedTicketNumber = sequence
	first := pool.LastAssignedTicketNumber + 1
	tickets := append([]uint32(nil), pool.AvailableTickets...)
	for i := uint32(0); i < count; i++ {
		tickets = append(tickets, first+i)
	}
	pool.AvailableTickets = sortedUnique(tickets)
	pool.LastAssignedTicketNumber += count
	if next := pool.LastAssignedTicketNumber + 1; pool.NextSequenceNumber < next {
		pool.NextSequenceNumber = next
	}
}

func (p *Prover) ticketCreatePending(pool *types.TicketPool) (bool, error) {
	if pool.LatestTicketCreateTx == (common.Hash{}) {
		return false, nil
	}
	info, err := p.store.TransactionInfo(pool.LatestTicketCreateTx)
	if err != nil {
		return false, err
	}
	return info != nil && info.Status == types.TxStatusPending, nil
}

// NeedsRefill reports whether a TicketCreate can and should be requested.
func (p *Prover) NeedsRefill() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool, err := p.ticketPool()
	if err != nil {
		return false, err
	}
	pending, err := p.ticketCreatePending(pool)
	if err != nil {
		return false, err
	}
	return needsRefill(pool, p.cfg.TicketCountThreshold, pending), nil
}

// TicketCreate starts signing a TicketCreate that tops the account up to the
// ledger maximum of tickets. It always consumes a plain sequence number.
func (p *Prover) TicketCreate(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.currentVerifierSet()
	if err != nil {
		return 0, err
	}

	pool, err := p.ticketPool()
	if err != nil {
		return 0, err
	}

	pending, err := p.ticketCreatePending(pool)
	if err != nil {
		return 0, err
	}
	if pending {
		return 0, ErrPreviousTicketCreateTxPending
	}
	if !needsRefill(pool, p.cfg.TicketCountThreshold, false) {
		return 0, fmt.Errorf("%w: %d tickets available, threshold %d", ErrTicketCountThresholdNotReached, len(pool.AvailableTickets), p.cfg.TicketCountThreshold)
	}

	count := uint32(xrpl.MaxTicketCount - len(pool.AvailableTickets))
	tx := p.buildTicketCreate(pool, count, p.fee(current))

	change := &types.StateChange{}
	info, err := p.startSession(ctx, change, tx, nil, current)
	if err != nil {
		return 0, err
	}
	pool.LatestTicketCreateTx = info.TxHash
	change.TicketPool = pool

	if err := p.store.Commit(change); err != nil {
		return 0, err
	}
	setTicketGauge(pool)
	p.sessionStarted(info)

	log.WithFields(log.Fields{
		"session_id":   info.SessionID,
		"tx_hash":      info.TxHash.Hex(),
		"ticket_count": count,
	}).Info("ticket create proof requested")

	return info.SessionID, nil
}

func setTicketGauge(pool *types.TicketPool) {
	metrics.AvailableTickets.Set(float64(len(pool.AvailableTickets)))
}

func (p *Prover) sessionStarted(info *types.TransactionInfo) {
	metrics.ProofsStarted.WithLabelValues(string(info.UnsignedTx.Type())).Inc()
	p.publish(events.SigningStarted, newSigningStartedEvent(info))
}

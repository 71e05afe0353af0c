package prover

import (
	"context"
	"fmt"

	"xrplprover/events"
	"xrplprover/types"
	"xrplprover/xrpl"

	log "github.com/sirupsen/logrus"
)

// UpdateVerifierSet proposes the coordinator's active verifiers as the next
// signer list. The first call installs the set directly and returns session
// id 0. Later calls build a SignerListSet signed by the current set; the
// proposed set becomes current only once that transaction is confirmed.
func (p *Prover) UpdateVerifierSet(ctx context.Context, sender string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isAdminOrGovernance(sender) {
		return 0, fmt.Errorf("%w: %s may not update the verifier set", ErrUnauthorized, sender)
	}

	candidate, err := p.candidateVerifierSet(ctx)
	if err != nil {
		return 0, err
	}

	current, err := p.store.CurrentVerifierSet()
	if err != nil {
		return 0, err
	}
	if current == nil {
		if _, err := p.buildSignerListSet(&types.TicketPool{}, &types.VerifierSet{}, candidate, p.cfg.Fee); err != nil {
			return 0, err
		}
		if err := p.store.Commit(&types.StateChange{CurrentVerifierSet: candidate}); err != nil {
			return 0, err
		}
		p.publish(events.VerifierSetSet, candidate)
		log.WithFields(log.Fields{
			"verifier_set_id": candidate.ID(),
			"signers":         len(candidate.Signers),
			"threshold":       candidate.Threshold,
		}).Info("initial verifier set installed")
		return 0, nil
	}

	next, err := p.store.NextVerifierSet()
	if err != nil {
		return 0, err
	}
	if next != nil {
		return 0, fmt.Errorf("%w: %s", ErrVerifierSetUpdatePending, next.ID())
	}

	diff := current.Diff(candidate)
	if diff == 0 || diff < p.cfg.VerifierSetDiffThreshold {
		return 0, fmt.Errorf("%w: %d changes, %d required", ErrWorkerSetUnchanged, diff, p.cfg.VerifierSetDiffThreshold)
	}

	pool, err := p.ticketPool()
	if err != nil {
		return 0, err
	}

	tx, err := p.buildSignerListSet(pool, current, candidate, p.fee(current))
	if err != nil {
		return 0, err
	}

	change := &types.StateChange{TicketPool: pool, NextVerifierSet: candidate}
	info, err := p.startSession(ctx, change, tx, nil, current)
	if err != nil {
		return 0, err
	}

	if err := p.store.Commit(change); err != nil {
		return 0, err
	}
	setTicketGauge(pool)
	p.sessionStarted(info)

	log.WithFields(log.Fields{
		"session_id":           info.SessionID,
		"tx_hash":              info.TxHash.Hex(),
		"current_verifier_set": current.ID(),
		"next_verifier_set":    candidate.ID(),
		"diff":                 diff,
	}).Info("verifier set update proof requested")

	return info.SessionID, nil
}

// candidateVerifierSet reads the active verifiers and applies the signing
// threshold, rounded up.
func (p *Prover) candidateVerifierSet(ctx context.Context) (*types.VerifierSet, error) {
	signers, height, err := p.coordinator.ActiveVerifiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying active verifiers: %w", err)
	}
	if len(signers) == 0 {
		return nil, fmt.Errorf("%w: no active verifiers", ErrInvalidContractReply)
	}

	seen := make(map[string]bool, len(signers))
	for _, s := range signers {
		if s.Address == "" || seen[s.Address] {
			return nil, fmt.Errorf("%w: duplicate or empty verifier address %q", ErrInvalidContractReply, s.Address)
		}
		seen[s.Address] = true
		if err := xrpl.ValidatePublicKey(s.PubKey); err != nil {
			return nil, fmt.Errorf("%w: verifier %s: %s", ErrInvalidContractReply, s.Address, err)
		}
	}

	vs := types.NewVerifierSet(signers, 0, height)
	total := vs.TotalWeight()
	vs.Threshold = (total*p.cfg.SigningThresholdNum + p.cfg.SigningThresholdDen - 1) / p.cfg.SigningThresholdDen
	return vs, nil
}

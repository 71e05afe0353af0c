package prover

import (
	"fmt"

	"xrplprover/types"
	"xrplprover/xrpl"

	log "github.com/sirupsen/logrus"
)

// RegisterToken maps an interchain token id to an issued currency.
// Re-registering the same mapping is a no-op; changing it is refused.
func (p *Prover) RegisterToken(sender string, token types.RegisteredToken) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isGovernance(sender) {
		return fmt.Errorf("%w: %s may not register tokens", ErrUnauthorized, sender)
	}
	if token.TokenID == p.cfg.XRPTokenID {
		return fmt.Errorf("%w: %s is the native token", ErrInvalidToken, token.TokenID.Hex())
	}
	if token.Token.Issuer.IsZero() {
		return fmt.Errorf("%w: issuer is not set", ErrInvalidToken)
	}
	if token.Token.Currency == (xrpl.Currency{}) {
		return fmt.Errorf("%w: currency is not set", ErrInvalidToken)
	}

	existing, err := p.store.Token(token.TokenID)
	if err != nil {
		return err
	}
	if existing != nil {
		if *existing == token {
			return nil
		}
		return fmt.Errorf("%w: %s is already registered as %s/%s", ErrInvalidToken, token.TokenID.Hex(), existing.Token.Currency, existing.Token.Issuer)
	}

	if err := p.store.Commit(&types.StateChange{Tokens: []*types.RegisteredToken{&token}}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"token_id": token.TokenID.Hex(),
		"currency": token.Token.Currency.String(),
		"issuer":   token.Token.Issuer.String(),
		"decimals": token.Decimals,
	}).Info("token registered")
	return nil
}

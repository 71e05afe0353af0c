// Package events publishes prover lifecycle events to NATS for relayers
// and monitoring.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"xrplprover/metrics"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	SigningStarted  = "signing_started"
	TxStatusUpdated = "tx_status_updated"
	ProofCompleted  = "proof_completed"
	VerifierSetSet  = "verifier_set_set"
)

// Event is the envelope of every published message.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

type Publisher struct {
	conn   *nats.Conn
	prefix string
}

func Connect(url, prefix string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("xrpl-prover"),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS failed: %w", err)
	}
	return &Publisher{conn: conn, prefix: prefix}, nil
}

func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

func newMessage(prefix, eventType string, data interface{}) (*nats.Msg, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	body, err := json.Marshal(Event{ID: id, Type: eventType, Time: time.Now().UTC(), Data: raw})
	if err != nil {
		return nil, err
	}

	msg := nats.NewMsg(fmt.Sprintf("%s.%s", prefix, eventType))
	msg.Header.Set(nats.MsgIdHdr, id)
	msg.Data = body
	return msg, nil
}

// Publish sends one event. A nil publisher drops events, so the prover runs
// without NATS configured.
func (p *Publisher) Publish(eventType string, data interface{}) error {
	if p == nil || p.conn == nil {
		return nil
	}

	msg, err := newMessage(p.prefix, eventType, data)
	if err != nil {
		metrics.EventsFailed.WithLabelValues(eventType).Inc()
		return fmt.Errorf("cannot marshal %s event: %w", eventType, err)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		metrics.EventsFailed.WithLabelValues(eventType).Inc()
		return err
	}
	metrics.EventsPublished.WithLabelValues(eventType).Inc()
	return nil
}

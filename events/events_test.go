package events

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg, err := newMessage("xrpl.prover", ProofCompleted, map[string]uint64{"session_id": 3})
	require.NoError(t, err)

	assert.Equal(t, "xrpl.prover.proof_completed", msg.Subject)

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, ProofCompleted, ev.Type)
	assert.Equal(t, ev.ID, msg.Header.Get(nats.MsgIdHdr))
	assert.JSONEq(t, `{"session_id":3}`, string(ev.Data))
}

func TestNilPublisherDropsEvents(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Publish(SigningStarted, nil))
	p.Close()
}

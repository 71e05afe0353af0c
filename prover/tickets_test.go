package prover

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrplprover/types"
	"xrplprover/xrpl"
)

func TestAllocate(t *testing.T) {
	pool := &types.TicketPool{
		AvailableTickets:   []uint32{7, 9},
		NextSequenceNumber: 20,
	}

	assert.Equal(t, xrpl.Sequence{Number: 7, Ticket: true}, allocate(pool))
	assert.Equal(t, xrpl.Sequence{Number: 9, Ticket: true}, allocate(pool))
	assert.Empty(t, pool.AvailableTickets)

	assert.Equal(t, xrpl.Sequence{Number: 20}, allocate(pool))
	assert.Equal(t, xrpl.Sequence{Number: 21}, allocate(pool))
	assert.EqualValues(t, 22, pool.NextSequenceNumber)
}

func TestOnTicketCreateConfirmed(t *testing.T) {
	// TicketCreate at sequence 20 while ticket 5 is still unused
	pool := &types.TicketPool{
		AvailableTickets:         []uint32{5},
		NextSequenceNumber:       21,
		LastAssignedTicketNumber: 5,
	}

	onTicketCreateConfirmed(pool, 20, 3)

	assert.Equal(t, []uint32{5, 21, 22, 23}, pool.AvailableTickets)
	assert.EqualValues(t, 23, pool.LastAssignedTicketNumber)
	assert.EqualValues(t, 24, pool.NextSequenceNumber)
	assert.NotContains(t, pool.AvailableTickets, uint32(20))

	pool = &types.TicketPool{NextSequenceNumber: 100, LastAssignedTicketNumber: 10}
	onTicketCreateConfirmed(pool, 40, 2)
	assert.Equal(t, []uint32{41, 42}, pool.AvailableTickets)
	assert.EqualValues(t, 42, pool.LastAssignedTicketNumber)
	assert.EqualValues(t, 100, pool.NextSequenceNumber)
}

func TestNeedsRefill(t *testing.T) {
	pool := &types.TicketPool{AvailableTickets: []uint32{1, 2, 3}}

	assert.False(t, needsRefill(pool, 2, false))
	assert.True(t, needsRefill(pool, 3, false))
	assert.False(t, needsRefill(pool, 3, true))

	pool.AvailableTickets = nil
	assert.True(t, needsRefill(pool, 1, false))
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t, []uint32{1, 2, 5}, sortedUnique([]uint32{5, 1, 2, 5, 1}))
	assert.Empty(t, sortedUnique(nil))
}

func TestTicketCreateLifecycle(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.prover.TicketCreate(env.ctx)
	require.ErrorIs(t, err, ErrTicketCountThresholdNotReached)

	for i := 0; i < 4; i++ {
		env.constructXRP(fmt.Sprintf("0xaa-%d", i), 1_000_000)
	}
	assert.Equal(t, []uint32{44218199}, env.pool().AvailableTickets)

	refill, err := env.prover.NeedsRefill()
	require.NoError(t, err)
	assert.True(t, refill)

	sessionID, err := env.prover.TicketCreate(env.ctx)
	require.NoError(t, err)

	info := env.transaction(sessionID)
	tx, ok := info.UnsignedTx.(*xrpl.TicketCreate)
	require.True(t, ok)
	assert.EqualValues(t, xrpl.MaxTicketCount-1, tx.TicketCount)
	assert.Equal(t, xrpl.Sequence{Number: 44218446}, tx.Sequence)
	assert.Equal(t, info.TxHash, env.pool().LatestTicketCreateTx)

	refill, err = env.prover.NeedsRefill()
	require.NoError(t, err)
	assert.False(t, refill)

	_, err = env.prover.TicketCreate(env.ctx)
	require.ErrorIs(t, err, ErrPreviousTicketCreateTxPending)

	env.confirm(sessionID, types.TxStatusConfirmed, "axelar1a", "axelar1b")

	// the ledger creates tickets right after the TicketCreate's own sequence
	pool := env.pool()
	require.Len(t, pool.AvailableTickets, xrpl.MaxTicketCount)
	assert.EqualValues(t, 44218199, pool.AvailableTickets[0])
	assert.EqualValues(t, 44218447, pool.AvailableTickets[1])
	assert.EqualValues(t, 44218695, pool.AvailableTickets[len(pool.AvailableTickets)-1])
	assert.NotContains(t, pool.AvailableTickets, uint32(44218446))
	assert.EqualValues(t, 44218695, pool.LastAssignedTicketNumber)
	assert.EqualValues(t, 44218696, pool.NextSequenceNumber)

	for i := 0; i < 2; i++ {
		env.constructXRP(fmt.Sprintf("0xab-%d", i), 1_000_000)
	}
	assert.EqualValues(t, 44218448, env.pool().AvailableTickets[0])

	_, err = env.prover.TicketCreate(env.ctx)
	require.ErrorIs(t, err, ErrTicketCountThresholdNotReached)
}

func TestFailedTicketCreateReleasesGuard(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.constructXRP(fmt.Sprintf("0xbb-%d", i), 1_000_000)
	}

	sessionID, err := env.prover.TicketCreate(env.ctx)
	require.NoError(t, err)

	env.confirm(sessionID, types.TxStatusFailedOnChain, "axelar1b", "axelar1c")

	pool := env.pool()
	assert.Empty(t, pool.AvailableTickets)
	assert.EqualValues(t, 44218447, pool.NextSequenceNumber)

	retry, err := env.prover.TicketCreate(env.ctx)
	require.NoError(t, err)
	assert.NotEqual(t, sessionID, retry)

	tx := env.transaction(retry).UnsignedTx.(*xrpl.TicketCreate)
	assert.Equal(t, xrpl.Sequence{Number: 44218447}, tx.Sequence)
	assert.EqualValues(t, xrpl.MaxTicketCount, tx.TicketCount)
}

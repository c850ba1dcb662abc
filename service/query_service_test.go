package service_test

import (
	"errors"
	"testing"

	"wagerledger/models"
	"wagerledger/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryService_Bets(t *testing.T) {
	h := newLedgerHarness(t)
	alice := h.user("alice", startBalance)
	bob := h.user("bob", startBalance)
	carol := h.user("carol", startBalance)

	_, err := h.submit(alice, h.selfBet(alice, 0, unit, 1, 1))
	require.NoError(t, err)
	_, err = h.submit(alice, h.selfBet(alice, 1, unit, 1, 1))
	require.NoError(t, err)
	_, err = h.submit(carol, h.selfBet(carol, 0, unit, 1, 1))
	require.NoError(t, err)
	_, err = h.submit(bob, h.acceptOp(bob, alice, 1))
	require.NoError(t, err)

	open, err := h.query.ListBetsByStatus(h.ctx, models.BetStatusOpen)
	require.NoError(t, err)
	assert.Len(t, open, 2)
	for _, bet := range open {
		assert.Equal(t, "open", bet.Status)
	}

	bobBets, err := h.query.ListBetsByWallet(h.ctx, bob.wallet)
	require.NoError(t, err)
	require.Len(t, bobBets, 1)
	assert.Equal(t, uint32(1), bobBets[0].Index)
	assert.Equal(t, "alice", bobBets[0].CreatorName)

	aliceBets, err := h.query.ListBetsByWallet(h.ctx, alice.wallet)
	require.NoError(t, err)
	assert.Len(t, aliceBets, 2)
}

func TestQueryService_GetAccount(t *testing.T) {
	h := newLedgerHarness(t)
	alice := h.user("alice", startBalance)
	_, err := h.submit(alice, h.selfBet(alice, 0, 2*unit, 1, 1))
	require.NoError(t, err)

	betAddr, vault := h.betAddresses(alice, 0)

	view, err := h.query.GetAccount(h.ctx, betAddr)
	require.NoError(t, err)
	assert.Equal(t, "bet", view.Kind)
	require.NotNil(t, view.Bet)
	assert.Equal(t, "2", view.Bet.Stake.String())

	view, err = h.query.GetAccount(h.ctx, vault)
	require.NoError(t, err)
	assert.Equal(t, "vault", view.Kind)
	assert.Equal(t, "2", view.Balance.String())

	view, err = h.query.GetAccount(h.ctx, alice.wallet)
	require.NoError(t, err)
	assert.Equal(t, "wallet", view.Kind)
	assert.Equal(t, "8", view.Balance.String())

	_, err = h.query.GetAccount(h.ctx, h.keypair("nobody").wallet)
	assert.True(t, errors.Is(err, service.ErrAccountNotFound))

	_, err = h.query.GetProfile(h.ctx, h.keypair("nobody").wallet)
	assert.True(t, errors.Is(err, service.ErrProfileNotFound))
}

func TestQueryService_Leaderboard(t *testing.T) {
	h := newLedgerHarness(t)
	alice := h.user("alice", startBalance)
	bob := h.user("bob", startBalance)
	h.user("carol", 0)

	_, err := h.submit(alice, h.selfBet(alice, 0, unit, 2, 1))
	require.NoError(t, err)
	_, err = h.submit(bob, h.acceptOp(bob, alice, 0))
	require.NoError(t, err)
	_, err = h.submit(alice, h.resolveOp(alice, alice, bob, 0, true))
	require.NoError(t, err)

	board, err := h.query.Leaderboard(h.ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)

	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "alice", board[0].Name)
	assert.Equal(t, int64(2*unit), board[0].TotalProfit)
	assert.Equal(t, uint64(1), board[0].Wins)
	assert.Equal(t, "carol", board[1].Name)
	assert.Equal(t, "bob", board[2].Name)
	assert.Equal(t, uint64(1), board[2].Losses)

	top, err := h.query.Leaderboard(h.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

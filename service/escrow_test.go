package service

import (
	"errors"
	"math"
	"testing"

	"wagerledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleByOdds(t *testing.T) {
	tests := []struct {
		name     string
		stake    uint64
		oddsWin  uint64
		oddsLose uint64
		want     uint64
		wantErr  error
	}{
		{name: "three to one", stake: 1_000_000_000, oddsWin: 3, oddsLose: 1, want: 3_000_000_000},
		{name: "one to three rounds down", stake: 1_000_000_000, oddsWin: 1, oddsLose: 3, want: 333_333_333},
		{name: "even", stake: 42, oddsWin: 7, oddsLose: 7, want: 42},
		{name: "tiny stake rounds to zero", stake: 1, oddsWin: 1, oddsLose: 2, want: 0},
		{name: "wide intermediate product", stake: math.MaxUint64, oddsWin: 2, oddsLose: 4, want: math.MaxUint64 / 2},
		{name: "zero odds lose", stake: 10, oddsWin: 1, oddsLose: 0, wantErr: ErrInvalidOdds},
		{name: "quotient overflows", stake: math.MaxUint64, oddsWin: 2, oddsLose: 1, wantErr: ErrArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scaleByOdds(tt.stake, tt.oddsWin, tt.oddsLose)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransfer(t *testing.T) {
	t.Run("moves lamports", func(t *testing.T) {
		from := &models.Account{Lamports: 100}
		to := &models.Account{Lamports: 5}
		require.NoError(t, transfer(from, to, 40))
		assert.Equal(t, uint64(60), from.Lamports)
		assert.Equal(t, uint64(45), to.Lamports)
	})

	t.Run("insufficient funds leaves both untouched", func(t *testing.T) {
		from := &models.Account{Lamports: 10}
		to := &models.Account{Lamports: 0}
		err := transfer(from, to, 11)
		assert.True(t, errors.Is(err, ErrInsufficientFunds))
		assert.Equal(t, uint64(10), from.Lamports)
		assert.Equal(t, uint64(0), to.Lamports)
	})

	t.Run("credit beyond storage range", func(t *testing.T) {
		from := &models.Account{Lamports: 2}
		to := &models.Account{Lamports: math.MaxInt64 - 1}
		err := transfer(from, to, 2)
		assert.True(t, errors.Is(err, ErrArithmeticOverflow))
		assert.Equal(t, uint64(2), from.Lamports)
	})

	t.Run("zero amount", func(t *testing.T) {
		from := &models.Account{}
		to := &models.Account{}
		assert.NoError(t, transfer(from, to, 0))
	})
}

func TestProfitArithmetic(t *testing.T) {
	got, err := addProfit(-5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	got, err = subProfit(5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), got)

	_, err = addProfit(math.MaxInt64, 1)
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))

	_, err = subProfit(math.MinInt64, 1)
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))

	_, err = addProfit(0, math.MaxUint64)
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))
}

func TestCounters(t *testing.T) {
	c, err := incrementCounter(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), c)

	_, err = incrementCounter(math.MaxUint32)
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))

	_, err = decrementCounter(0)
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))
}

func TestLedgerError_Is(t *testing.T) {
	specific := ErrInsufficientFunds.WithMessage("balance %d is below %d", 1, 2)
	assert.True(t, errors.Is(specific, ErrInsufficientFunds))
	assert.False(t, errors.Is(specific, ErrInvalidStake))
	assert.Equal(t, ClassState, specific.Class)
	assert.Equal(t, "InsufficientFunds: balance 1 is below 2", specific.Error())

	var ledgerErr *LedgerError
	wrapped := errors.Join(errors.New("context"), specific)
	require.True(t, errors.As(wrapped, &ledgerErr))
	assert.Equal(t, "InsufficientFunds", ledgerErr.Code)
}

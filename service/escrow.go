package service

import (
	"math"
	"math/bits"

	"wagerledger/models"
)

// transfer moves lamports between two accounts held by the current unit of work
func transfer(from, to *models.Account, amount uint64) error {
	if from.Lamports < amount {
		return ErrInsufficientFunds.WithMessage("balance %d is below required %d", from.Lamports, amount)
	}
	credited, carry := bits.Add64(to.Lamports, amount, 0)
	if carry != 0 || credited > math.MaxInt64 {
		return ErrArithmeticOverflow.WithMessage("credit of %d overflows balance %d", amount, to.Lamports)
	}
	from.Lamports -= amount
	to.Lamports = credited
	return nil
}

// scaleByOdds returns stake * oddsWin / oddsLose, truncated. It is both the
// acceptor's required stake and the winner's profit.
func scaleByOdds(stake, oddsWin, oddsLose uint64) (uint64, error) {
	if oddsLose == 0 {
		return 0, ErrInvalidOdds
	}
	hi, lo := bits.Mul64(stake, oddsWin)
	if hi >= oddsLose {
		return 0, ErrArithmeticOverflow.WithMessage("stake %d at %d:%d does not fit in 64 bits", stake, oddsWin, oddsLose)
	}
	quotient, _ := bits.Div64(hi, lo, oddsLose)
	return quotient, nil
}

func addProfit(current int64, gain uint64) (int64, error) {
	if gain > math.MaxInt64 || current > math.MaxInt64-int64(gain) {
		return 0, ErrArithmeticOverflow.WithMessage("profit %d + %d overflows", current, gain)
	}
	return current + int64(gain), nil
}

func subProfit(current int64, loss uint64) (int64, error) {
	if loss > math.MaxInt64 || current < math.MinInt64+int64(loss) {
		return 0, ErrArithmeticOverflow.WithMessage("profit %d - %d overflows", current, loss)
	}
	return current - int64(loss), nil
}

func incrementCounter(c uint32) (uint32, error) {
	if c == math.MaxUint32 {
		return 0, ErrArithmeticOverflow.WithMessage("counter overflow")
	}
	return c + 1, nil
}

func decrementCounter(c uint32) (uint32, error) {
	if c == 0 {
		return 0, ErrArithmeticOverflow.WithMessage("counter underflow")
	}
	return c - 1, nil
}

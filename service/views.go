package service

import (
	"encoding/hex"
	"math/big"
	"time"

	"wagerledger/address"
	"wagerledger/models"

	"github.com/shopspring/decimal"
)

// LamportsPerUnit is the number of lamports in one whole unit
const LamportsPerUnit = 1_000_000_000

const unitExponent = -9

// LamportsToUnits converts a lamport amount into whole units for display
func LamportsToUnits(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), unitExponent)
}

// ProfitToUnits converts a signed lamport amount into whole units for display
func ProfitToUnits(lamports int64) decimal.Decimal {
	return decimal.New(lamports, unitExponent)
}

// UnitsToLamports converts a whole unit amount into lamports, rejecting
// fractions smaller than one lamport and negative values.
func UnitsToLamports(units decimal.Decimal) (uint64, error) {
	lamports := units.Shift(-unitExponent)
	if lamports.IsNegative() || !lamports.Equal(lamports.Truncate(0)) {
		return 0, ErrInvalidAmount.WithMessage("%s is not a whole number of lamports", units)
	}
	n := lamports.BigInt()
	if !n.IsUint64() {
		return 0, ErrArithmeticOverflow.WithMessage("%s units overflows", units)
	}
	return n.Uint64(), nil
}

// AccountView is the decoded form of any ledger account
type AccountView struct {
	Address    address.Address `json:"address"`
	Owner      address.Address `json:"owner"`
	Kind       string          `json:"kind"`
	Lamports   uint64          `json:"lamports"`
	Balance    decimal.Decimal `json:"balance"`
	Profile    *ProfileView    `json:"profile,omitempty"`
	Bet        *BetView        `json:"bet,omitempty"`
	Friendship *FriendshipView `json:"friendship,omitempty"`
}

// ProfileView is the read model of a profile
type ProfileView struct {
	Address          address.Address `json:"address"`
	Wallet           address.Address `json:"wallet"`
	Name             string          `json:"name"`
	BetsCreated      uint32          `json:"bets_created"`
	BetsCancelled    uint32          `json:"bets_cancelled"`
	BetsAccepted     uint32          `json:"bets_accepted"`
	BetsCreatedWon   uint32          `json:"bets_created_won"`
	BetsCreatedLost  uint32          `json:"bets_created_lost"`
	BetsAcceptedWon  uint32          `json:"bets_accepted_won"`
	BetsAcceptedLost uint32          `json:"bets_accepted_lost"`
	TotalProfit      int64           `json:"total_profit"`
	Profit           decimal.Decimal `json:"profit"`
	CreatedAt        time.Time       `json:"created_at"`
}

func newProfileView(addr address.Address, p *models.Profile) *ProfileView {
	return &ProfileView{
		Address:          addr,
		Wallet:           p.Wallet,
		Name:             p.Name,
		BetsCreated:      p.BetsCreated,
		BetsCancelled:    p.BetsCancelled,
		BetsAccepted:     p.BetsAccepted,
		BetsCreatedWon:   p.BetsCreatedWon,
		BetsCreatedLost:  p.BetsCreatedLost,
		BetsAcceptedWon:  p.BetsAcceptedWon,
		BetsAcceptedLost: p.BetsAcceptedLost,
		TotalProfit:      p.TotalProfit,
		Profit:           ProfitToUnits(p.TotalProfit),
		CreatedAt:        p.CreatedAt,
	}
}

// BetView is the read model of a bet
type BetView struct {
	Address          address.Address  `json:"address"`
	Creator          address.Address  `json:"creator"`
	CreatorName      string           `json:"creator_name"`
	Acceptor         *address.Address `json:"acceptor,omitempty"`
	Referee          address.Address  `json:"referee"`
	Winner           *address.Address `json:"winner,omitempty"`
	Description      string           `json:"description"`
	StakeAmount      uint64           `json:"stake_amount"`
	Stake            decimal.Decimal  `json:"stake"`
	AcceptorStake    uint64           `json:"acceptor_stake"`
	RefereeType      string           `json:"referee_type"`
	Category         uint8            `json:"category"`
	Visibility       string           `json:"visibility"`
	PrivateRecipient *address.Address `json:"private_recipient,omitempty"`
	OddsWin          uint64           `json:"odds_win"`
	OddsLose         uint64           `json:"odds_lose"`
	Status           string           `json:"status"`
	Index            uint32           `json:"index"`
	ExpiresAt        time.Time        `json:"expires_at"`
	CreatedAt        time.Time        `json:"created_at"`
	AcceptedAt       *time.Time       `json:"accepted_at,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	// Terms is the hex digest an accept_bet instruction must carry
	Terms string `json:"terms"`
}

func newBetView(addr address.Address, b *models.Bet) *BetView {
	// Terms were validated at creation, so the derived stake always fits
	acceptorStake, _ := scaleByOdds(b.StakeAmount, b.OddsWin, b.OddsLose)
	terms := b.Terms()
	return &BetView{
		Address:          addr,
		Creator:          b.Creator,
		CreatorName:      b.CreatorName,
		Acceptor:         b.Acceptor,
		Referee:          b.Referee,
		Winner:           b.Winner,
		Description:      b.Description,
		StakeAmount:      b.StakeAmount,
		Stake:            LamportsToUnits(b.StakeAmount),
		AcceptorStake:    acceptorStake,
		RefereeType:      b.RefereeType.String(),
		Category:         b.Category,
		Visibility:       b.Visibility.String(),
		PrivateRecipient: b.PrivateRecipient,
		OddsWin:          b.OddsWin,
		OddsLose:         b.OddsLose,
		Status:           b.Status.String(),
		Index:            b.Index,
		ExpiresAt:        b.ExpiresAt,
		CreatedAt:        b.CreatedAt,
		AcceptedAt:       b.AcceptedAt,
		ResolvedAt:       b.ResolvedAt,
		Terms:            hex.EncodeToString(terms[:]),
	}
}

// FriendshipView is the read model of a friendship record
type FriendshipView struct {
	Address     address.Address `json:"address"`
	UserAWallet address.Address `json:"user_a_wallet"`
	UserAName   string          `json:"user_a_name"`
	UserAStatus string          `json:"user_a_status"`
	UserBWallet address.Address `json:"user_b_wallet"`
	UserBName   string          `json:"user_b_name"`
	UserBStatus string          `json:"user_b_status"`
	Mutual      bool            `json:"mutual"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newFriendshipView(addr address.Address, f *models.Friendship) *FriendshipView {
	return &FriendshipView{
		Address:     addr,
		UserAWallet: f.UserAWallet,
		UserAName:   f.UserAName,
		UserAStatus: f.UserAStatus.String(),
		UserBWallet: f.UserBWallet,
		UserBName:   f.UserBName,
		UserBStatus: f.UserBStatus.String(),
		Mutual:      f.IsMutual(),
		CreatedAt:   f.CreatedAt,
	}
}

// Friend states as seen from one wallet
const (
	FriendStateAccepted = "accepted"
	FriendStateOutgoing = "outgoing"
	FriendStateIncoming = "incoming"
)

// FriendView is one friendship seen from a specific wallet
type FriendView struct {
	Friendship address.Address `json:"friendship"`
	Wallet     address.Address `json:"wallet"`
	Name       string          `json:"name"`
	State      string          `json:"state"`
}

// LeaderboardEntry ranks a profile by total profit
type LeaderboardEntry struct {
	Rank         int             `json:"rank"`
	Wallet       address.Address `json:"wallet"`
	Name         string          `json:"name"`
	TotalProfit  int64           `json:"total_profit"`
	Profit       decimal.Decimal `json:"profit"`
	Wins         uint64          `json:"wins"`
	Losses       uint64          `json:"losses"`
	BetsCreated  uint32          `json:"bets_created"`
	BetsAccepted uint32          `json:"bets_accepted"`
}

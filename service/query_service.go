package service

import (
	"context"
	"fmt"
	"sort"

	"wagerledger/address"
	"wagerledger/models"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

type queryService struct {
	reader  AccountReader
	program address.Address
}

// NewQueryService creates the read side over reader, which may be cached
func NewQueryService(reader AccountReader, program address.Address) QueryService {
	return &queryService{
		reader:  reader,
		program: program,
	}
}

// GetAccount decodes whatever record lives at addr
func (s *queryService) GetAccount(ctx context.Context, addr address.Address) (*AccountView, error) {
	account, err := s.reader.Get(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound.WithMessage("no account at %s", addr)
	}

	view := &AccountView{
		Address:  account.Address,
		Owner:    account.Owner,
		Kind:     account.Kind.String(),
		Lamports: account.Lamports,
		Balance:  LamportsToUnits(account.Lamports),
	}

	switch account.Kind {
	case models.AccountKindProfile:
		var profile models.Profile
		if err := profile.Unmarshal(account.Data); err != nil {
			return nil, fmt.Errorf("failed to decode profile %s: %w", addr, err)
		}
		view.Profile = newProfileView(addr, &profile)
	case models.AccountKindBet:
		var bet models.Bet
		if err := bet.Unmarshal(account.Data); err != nil {
			return nil, fmt.Errorf("failed to decode bet %s: %w", addr, err)
		}
		view.Bet = newBetView(addr, &bet)
	case models.AccountKindFriendship:
		var friendship models.Friendship
		if err := friendship.Unmarshal(account.Data); err != nil {
			return nil, fmt.Errorf("failed to decode friendship %s: %w", addr, err)
		}
		view.Friendship = newFriendshipView(addr, &friendship)
	}

	return view, nil
}

// GetProfile returns the profile registered by wallet
func (s *queryService) GetProfile(ctx context.Context, wallet address.Address) (*ProfileView, error) {
	addr, _, err := address.GetProfileAddress(s.program, &address.GetProfileAddressArgs{Wallet: wallet})
	if err != nil {
		return nil, fmt.Errorf("failed to derive profile address: %w", err)
	}

	account, err := s.reader.Get(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if account == nil || account.Kind != models.AccountKindProfile {
		return nil, ErrProfileNotFound.WithMessage("wallet %s has no profile", wallet)
	}

	var profile models.Profile
	if err := profile.Unmarshal(account.Data); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", addr, err)
	}
	return newProfileView(addr, &profile), nil
}

// ListBetsByWallet returns bets the wallet created, accepted or referees,
// newest first
func (s *queryService) ListBetsByWallet(ctx context.Context, wallet address.Address) ([]*BetView, error) {
	return s.listBets(ctx, func(b *models.Bet) bool {
		return b.IsParticipant(wallet) || b.Referee == wallet
	})
}

// ListBetsByStatus returns bets in the given status, newest first
func (s *queryService) ListBetsByStatus(ctx context.Context, status models.BetStatus) ([]*BetView, error) {
	return s.listBets(ctx, func(b *models.Bet) bool {
		return b.Status == status
	})
}

func (s *queryService) listBets(ctx context.Context, match func(b *models.Bet) bool) ([]*BetView, error) {
	accounts, err := s.reader.ListByKind(ctx, models.AccountKindBet)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}

	views := make([]*BetView, 0)
	for _, account := range accounts {
		var bet models.Bet
		if err := bet.Unmarshal(account.Data); err != nil {
			return nil, fmt.Errorf("failed to decode bet %s: %w", account.Address, err)
		}
		if match(&bet) {
			views = append(views, newBetView(account.Address, &bet))
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}

// ListFriends returns every friendship record wallet is part of
func (s *queryService) ListFriends(ctx context.Context, wallet address.Address) ([]*FriendView, error) {
	accounts, err := s.reader.ListByKind(ctx, models.AccountKindFriendship)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}

	friends := make([]*FriendView, 0)
	for _, account := range accounts {
		var friendship models.Friendship
		if err := friendship.Unmarshal(account.Data); err != nil {
			return nil, fmt.Errorf("failed to decode friendship %s: %w", account.Address, err)
		}
		if !friendship.HasParty(wallet) {
			continue
		}

		other, name := friendship.Counterparty(wallet)
		state := FriendStateIncoming
		switch {
		case friendship.IsMutual():
			state = FriendStateAccepted
		case friendship.IsSideA(wallet) && friendship.UserAStatus == models.FriendStatusRequested,
			!friendship.IsSideA(wallet) && friendship.UserBStatus == models.FriendStatusRequested:
			state = FriendStateOutgoing
		}

		friends = append(friends, &FriendView{
			Friendship: account.Address,
			Wallet:     other,
			Name:       name,
			State:      state,
		})
	}
	return friends, nil
}

// Leaderboard ranks profiles by total profit, then wins
func (s *queryService) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	accounts, err := s.reader.ListByKind(ctx, models.AccountKindProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	entries := make([]*LeaderboardEntry, 0, len(accounts))
	for _, account := range accounts {
		var profile models.Profile
		if err := profile.Unmarshal(account.Data); err != nil {
			return nil, fmt.Errorf("failed to decode profile %s: %w", account.Address, err)
		}
		entries = append(entries, &LeaderboardEntry{
			Wallet:       profile.Wallet,
			Name:         profile.Name,
			TotalProfit:  profile.TotalProfit,
			Profit:       ProfitToUnits(profile.TotalProfit),
			Wins:         profile.TotalWins(),
			Losses:       profile.TotalLosses(),
			BetsCreated:  profile.BetsCreated,
			BetsAccepted: profile.BetsAccepted,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalProfit != entries[j].TotalProfit {
			return entries[i].TotalProfit > entries[j].TotalProfit
		}
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].Wallet.Less(entries[j].Wallet)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries, nil
}

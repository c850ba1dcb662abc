package service

import (
	"context"

	"wagerledger/address"
	"wagerledger/events"
	"wagerledger/instruction"
	"wagerledger/models"
)

// AccountRepository defines the interface for account storage inside a unit of work
type AccountRepository interface {
	// Get returns the account at addr, or nil if the slot is empty. The
	// account stays locked until the unit of work ends.
	Get(ctx context.Context, addr address.Address) (*models.Account, error)

	// Create stores a new account, failing with ErrAlreadyExists if the address is taken
	Create(ctx context.Context, account *models.Account) error

	// Update overwrites the lamports and data of an existing account
	Update(ctx context.Context, account *models.Account) error

	// Delete removes the account at addr
	Delete(ctx context.Context, addr address.Address) error

	// ListByKind returns every account of the given kind ordered by address
	ListByKind(ctx context.Context, kind models.AccountKind) ([]*models.Account, error)
}

// AccountReader defines read access outside of any unit of work
type AccountReader interface {
	Get(ctx context.Context, addr address.Address) (*models.Account, error)
	ListByKind(ctx context.Context, kind models.AccountKind) ([]*models.Account, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// ProfileService defines the interface for profile registration
type ProfileService interface {
	// CreateProfile allocates the signer's profile
	CreateProfile(ctx context.Context, signer address.Address, op *instruction.CreateProfile) (*models.Profile, error)
}

// BetService defines the interface for the bet state machine and its escrow
type BetService interface {
	// CreateBet opens a bet and moves the creator's stake into its vault
	CreateBet(ctx context.Context, signer address.Address, op *instruction.CreateBet) (*models.Bet, error)

	// AcceptBet matches an open bet with the acceptor's derived stake
	AcceptBet(ctx context.Context, signer address.Address, op *instruction.AcceptBet) (*models.Bet, error)

	// CancelBet refunds an open bet to its creator
	CancelBet(ctx context.Context, signer address.Address, op *instruction.CancelBet) (*models.Bet, error)

	// ResolveBet pays the vault to the winner and books profit and loss
	ResolveBet(ctx context.Context, signer address.Address, op *instruction.ResolveBet) (*models.Bet, error)

	// CloseBet removes a terminal bet and its vault
	CloseBet(ctx context.Context, signer address.Address, op *instruction.CloseBet) error
}

// FriendshipService defines the interface for the two sided friendship protocol
type FriendshipService interface {
	AddFriend(ctx context.Context, signer address.Address, op *instruction.AddFriend) (*models.Friendship, error)
	AcceptFriend(ctx context.Context, signer address.Address, op *instruction.AcceptFriend) (*models.Friendship, error)
}

// WalletService defines administrative wallet operations
type WalletService interface {
	// Airdrop credits lamports to a wallet, creating it if needed
	Airdrop(ctx context.Context, wallet address.Address, amount uint64) (*models.Account, error)
}

// QueryService defines the read side used by the HTTP API
type QueryService interface {
	GetAccount(ctx context.Context, addr address.Address) (*AccountView, error)
	GetProfile(ctx context.Context, wallet address.Address) (*ProfileView, error)
	ListBetsByWallet(ctx context.Context, wallet address.Address) ([]*BetView, error)
	ListBetsByStatus(ctx context.Context, status models.BetStatus) ([]*BetView, error)
	ListFriends(ctx context.Context, wallet address.Address) ([]*FriendView, error)
	Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error)
}

// UnitOfWork defines the transaction boundary of one instruction
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	AccountRepository() AccountRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

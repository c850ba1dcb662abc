package service

import (
	"context"
	"fmt"

	"wagerledger/address"
	"wagerledger/events"
	"wagerledger/instruction"
	"wagerledger/models"

	log "github.com/sirupsen/logrus"
)

type friendshipService struct {
	uowFactory UnitOfWorkFactory
	program    address.Address
	now        Clock
}

// NewFriendshipService creates a new friendship service
func NewFriendshipService(uowFactory UnitOfWorkFactory, program address.Address, now Clock) FriendshipService {
	return &friendshipService{
		uowFactory: uowFactory,
		program:    program,
		now:        now,
	}
}

// AddFriend records the requester's side of a friendship with the target
// profile's wallet, creating the pair record on first contact.
func (s *friendshipService) AddFriend(ctx context.Context, signer address.Address, op *instruction.AddFriend) (*models.Friendship, error) {
	if signer != op.Requester {
		return nil, ErrUnauthorized.WithMessage("friend requests must be signed by the requester")
	}
	if op.RequesterProfile == op.TargetProfile {
		return nil, ErrSelfFriendship
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, s.program)

	_, requester, err := accounts.loadProfile(ctx, op.Requester, op.RequesterProfile)
	if err != nil {
		return nil, err
	}

	targetAccount, err := accounts.get(ctx, op.TargetProfile, models.AccountKindProfile)
	if err != nil {
		return nil, err
	}
	if targetAccount == nil {
		return nil, ErrProfileNotFound.WithMessage("no profile at %s", op.TargetProfile)
	}
	var target models.Profile
	if err := accounts.decode(targetAccount, &target); err != nil {
		return nil, err
	}
	if _, err := accounts.profileAddress(target.Wallet, op.TargetProfile); err != nil {
		return nil, err
	}
	if target.Wallet == op.Requester {
		return nil, ErrSelfFriendship
	}

	bump, err := accounts.friendshipAddress(op.Requester, target.Wallet, op.Friendship)
	if err != nil {
		return nil, err
	}

	account, err := accounts.get(ctx, op.Friendship, models.AccountKindFriendship)
	if err != nil {
		return nil, err
	}

	exists := account != nil
	var friendship *models.Friendship
	if exists {
		friendship = &models.Friendship{}
		if err := accounts.decode(account, friendship); err != nil {
			return nil, err
		}
	} else {
		friendship = models.NewFriendship(op.Requester, requester.Name, target.Wallet, target.Name, s.now())
		friendship.Bump = bump
		account = &models.Account{Address: op.Friendship, Owner: s.program, Kind: models.AccountKindFriendship}
	}

	if err := friendship.Apply(models.FriendActionRequest, op.Requester); err != nil {
		return nil, friendshipError(err)
	}

	if err := accounts.saveRecord(ctx, account, friendship, exists); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.FriendRequestedEvent{
		Friendship: op.Friendship,
		Requester:  op.Requester,
		Target:     target.Wallet,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"friendship": op.Friendship,
		"requester":  op.Requester,
		"target":     target.Wallet,
	}).Info("Friend request sent")

	return friendship, nil
}

// AcceptFriend answers the counterparty's pending request. Both sides become
// Accepted in the same step.
func (s *friendshipService) AcceptFriend(ctx context.Context, signer address.Address, op *instruction.AcceptFriend) (*models.Friendship, error) {
	if signer != op.Accepter {
		return nil, ErrUnauthorized.WithMessage("friend requests must be accepted by the signing wallet")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, s.program)

	account, err := accounts.get(ctx, op.Friendship, models.AccountKindFriendship)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrFriendshipNotFound.WithMessage("no friendship at %s", op.Friendship)
	}

	var friendship models.Friendship
	if err := accounts.decode(account, &friendship); err != nil {
		return nil, err
	}
	if _, err := accounts.friendshipAddress(friendship.UserAWallet, friendship.UserBWallet, op.Friendship); err != nil {
		return nil, err
	}

	if err := friendship.Apply(models.FriendActionAccept, op.Accepter); err != nil {
		return nil, friendshipError(err)
	}

	if err := accounts.saveRecord(ctx, account, &friendship, true); err != nil {
		return nil, err
	}

	requester, _ := friendship.Counterparty(op.Accepter)
	uow.EventBus().Publish(events.FriendAcceptedEvent{
		Friendship: op.Friendship,
		Accepter:   op.Accepter,
		Requester:  requester,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"friendship": op.Friendship,
		"accepter":   op.Accepter,
		"requester":  requester,
	}).Info("Friend request accepted")

	return &friendship, nil
}

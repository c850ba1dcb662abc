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

type profileService struct {
	uowFactory UnitOfWorkFactory
	program    address.Address
	now        Clock
}

// NewProfileService creates a new profile service
func NewProfileService(uowFactory UnitOfWorkFactory, program address.Address, now Clock) ProfileService {
	return &profileService{
		uowFactory: uowFactory,
		program:    program,
		now:        now,
	}
}

// CreateProfile allocates a zeroed profile for the signing wallet
func (s *profileService) CreateProfile(ctx context.Context, signer address.Address, op *instruction.CreateProfile) (*models.Profile, error) {
	if signer != op.Wallet {
		return nil, ErrUnauthorized.WithMessage("profile must be created by its own wallet")
	}
	if len(op.Name) == 0 || len(op.Name) > models.NameSize {
		return nil, ErrInvalidName
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, s.program)

	bump, err := accounts.profileAddress(op.Wallet, op.Profile)
	if err != nil {
		return nil, err
	}

	existing, err := accounts.repo.Get(ctx, op.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists.WithMessage("wallet %s already has a profile", op.Wallet)
	}

	profile := &models.Profile{
		Wallet:    op.Wallet,
		Name:      op.Name,
		CreatedAt: s.now(),
		Version:   models.RecordVersion,
		Bump:      bump,
	}

	account := &models.Account{
		Address: op.Profile,
		Owner:   s.program,
		Kind:    models.AccountKindProfile,
	}
	if err := accounts.saveRecord(ctx, account, profile, false); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.ProfileCreatedEvent{
		Wallet:  op.Wallet,
		Profile: op.Profile,
		Name:    op.Name,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"wallet":  op.Wallet,
		"profile": op.Profile,
		"name":    op.Name,
	}).Info("Profile created")

	return profile, nil
}

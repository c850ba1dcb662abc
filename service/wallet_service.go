package service

import (
	"context"
	"fmt"

	"wagerledger/address"
	"wagerledger/events"
	"wagerledger/models"

	log "github.com/sirupsen/logrus"
)

type walletService struct {
	uowFactory  UnitOfWorkFactory
	enabled     bool
	maxLamports uint64
}

// NewWalletService creates a wallet service. Airdrops are refused unless
// enabled, and a single airdrop may not exceed maxLamports.
func NewWalletService(uowFactory UnitOfWorkFactory, enabled bool, maxLamports uint64) WalletService {
	return &walletService{
		uowFactory:  uowFactory,
		enabled:     enabled,
		maxLamports: maxLamports,
	}
}

// Airdrop credits lamports to a wallet, creating its system account if needed
func (s *walletService) Airdrop(ctx context.Context, wallet address.Address, amount uint64) (*models.Account, error) {
	if !s.enabled {
		return nil, ErrAirdropDisabled
	}
	if amount == 0 || amount > s.maxLamports {
		return nil, ErrInvalidAmount.WithMessage("airdrop must be between 1 and %d lamports", s.maxLamports)
	}
	if wallet.IsZero() {
		return nil, ErrInvalidAccount.WithMessage("cannot fund the system program")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts := newLedgerAccounts(uow, address.SystemProgram)

	account, exists, err := accounts.loadWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	// Minted lamports come from a scratch source so the credit uses the same checks
	source := &models.Account{Lamports: amount}
	if err := transfer(source, account, amount); err != nil {
		return nil, err
	}

	if err := accounts.save(ctx, account, exists); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.WalletFundedEvent{
		Wallet:     wallet,
		Amount:     amount,
		NewBalance: account.Lamports,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"wallet":     wallet,
		"amount":     amount,
		"newBalance": account.Lamports,
	}).Info("Wallet funded")

	return account, nil
}

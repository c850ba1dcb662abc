package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wagerledger/address"
	"wagerledger/config"
	"wagerledger/database"
	"wagerledger/events"
	"wagerledger/repository"
	"wagerledger/service"
)

// Airdrop funds a wallet in the configured database with a whole unit amount
func Airdrop(ctx context.Context, walletArg, unitsArg string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	if cfg.UseMemoryStore() {
		return fmt.Errorf("airdrop requires DATABASE_URL")
	}

	wallet, err := address.Parse(walletArg)
	if err != nil {
		return fmt.Errorf("invalid wallet %q: %w", walletArg, err)
	}
	units, err := decimal.NewFromString(unitsArg)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", unitsArg, err)
	}
	lamports, err := service.UnitsToLamports(units)
	if err != nil {
		return err
	}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	uowFactory := repository.NewUnitOfWorkFactory(db, events.NewBus())
	wallets := service.NewWalletService(uowFactory, cfg.AirdropEnabled, cfg.MaxAirdropLamports)

	account, err := wallets.Airdrop(ctx, wallet, lamports)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"wallet":  wallet,
		"balance": service.LamportsToUnits(account.Lamports),
	}).Info("Airdrop complete")
	return nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"wagerledger/address"
	"wagerledger/models"
)

// record is implemented by every fixed layout stored in account data
type record interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// ledgerAccounts wraps the repository of one unit of work with the address
// checks every instruction performs before touching a record.
type ledgerAccounts struct {
	repo    AccountRepository
	program address.Address
}

func newLedgerAccounts(uow UnitOfWork, program address.Address) *ledgerAccounts {
	return &ledgerAccounts{repo: uow.AccountRepository(), program: program}
}

func (l *ledgerAccounts) get(ctx context.Context, addr address.Address, kind models.AccountKind) (*models.Account, error) {
	account, err := l.repo.Get(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", addr, err)
	}
	if account != nil && account.Kind != kind {
		return nil, ErrInvalidAccount.WithMessage("account %s holds a %s, expected %s", addr, account.Kind, kind)
	}
	return account, nil
}

func (l *ledgerAccounts) decode(account *models.Account, into record) error {
	if err := into.Unmarshal(account.Data); err != nil {
		return ErrInvalidAccount.WithMessage("account %s: %v", account.Address, err)
	}
	return nil
}

// profileAddress checks that addr is the profile slot of wallet
func (l *ledgerAccounts) profileAddress(wallet, addr address.Address) (uint8, error) {
	derived, bump, err := address.GetProfileAddress(l.program, &address.GetProfileAddressArgs{Wallet: wallet})
	if err != nil {
		return 0, fmt.Errorf("failed to derive profile address: %w", err)
	}
	if derived != addr {
		return 0, ErrInvalidAccount.WithMessage("profile account %s is not derived from wallet %s", addr, wallet)
	}
	return bump, nil
}

// betAddress checks that addr is the bet slot at index for creator
func (l *ledgerAccounts) betAddress(creator address.Address, index uint32, addr address.Address) (uint8, error) {
	derived, bump, err := address.GetBetAddress(l.program, &address.GetBetAddressArgs{Creator: creator, Index: index})
	if err != nil {
		return 0, fmt.Errorf("failed to derive bet address: %w", err)
	}
	if derived != addr {
		return 0, ErrInvalidAccount.WithMessage("bet account %s is not slot %d of %s", addr, index, creator)
	}
	return bump, nil
}

// vaultAddress checks that addr is the escrow vault bound to bet
func (l *ledgerAccounts) vaultAddress(bet, addr address.Address) error {
	derived, _, err := address.GetVaultAddress(l.program, &address.GetVaultAddressArgs{Bet: bet})
	if err != nil {
		return fmt.Errorf("failed to derive vault address: %w", err)
	}
	if derived != addr {
		return ErrInvalidAccount.WithMessage("vault account %s is not bound to bet %s", addr, bet)
	}
	return nil
}

// friendshipAddress checks that addr is the friendship slot for the pair
func (l *ledgerAccounts) friendshipAddress(a, b, addr address.Address) (uint8, error) {
	derived, bump, err := address.GetFriendshipAddress(l.program, &address.GetFriendshipAddressArgs{UserA: a, UserB: b})
	if err != nil {
		return 0, fmt.Errorf("failed to derive friendship address: %w", err)
	}
	if derived != addr {
		return 0, ErrInvalidAccount.WithMessage("friendship account %s is not derived from %s and %s", addr, a, b)
	}
	return bump, nil
}

// loadProfile returns the profile of wallet stored at addr
func (l *ledgerAccounts) loadProfile(ctx context.Context, wallet, addr address.Address) (*models.Account, *models.Profile, error) {
	if _, err := l.profileAddress(wallet, addr); err != nil {
		return nil, nil, err
	}
	account, err := l.get(ctx, addr, models.AccountKindProfile)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, ErrProfileNotFound.WithMessage("wallet %s has no profile", wallet)
	}
	var profile models.Profile
	if err := l.decode(account, &profile); err != nil {
		return nil, nil, err
	}
	return account, &profile, nil
}

// loadBet returns the bet at addr after checking it sits in its creator's slot
func (l *ledgerAccounts) loadBet(ctx context.Context, addr address.Address) (*models.Account, *models.Bet, error) {
	account, err := l.get(ctx, addr, models.AccountKindBet)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, ErrBetNotFound.WithMessage("no bet at %s", addr)
	}
	var bet models.Bet
	if err := l.decode(account, &bet); err != nil {
		return nil, nil, err
	}
	if _, err := l.betAddress(bet.Creator, bet.Index, addr); err != nil {
		return nil, nil, err
	}
	return account, &bet, nil
}

// loadVault returns the vault of bet, or an empty unsaved one if the slot is free
func (l *ledgerAccounts) loadVault(ctx context.Context, bet, addr address.Address) (*models.Account, bool, error) {
	if err := l.vaultAddress(bet, addr); err != nil {
		return nil, false, err
	}
	account, err := l.get(ctx, addr, models.AccountKindVault)
	if err != nil {
		return nil, false, err
	}
	if account == nil {
		return &models.Account{Address: addr, Owner: l.program, Kind: models.AccountKindVault}, false, nil
	}
	return account, true, nil
}

// loadWallet returns the system account of wallet, or an empty unsaved one
func (l *ledgerAccounts) loadWallet(ctx context.Context, wallet address.Address) (*models.Account, bool, error) {
	account, err := l.get(ctx, wallet, models.AccountKindWallet)
	if err != nil {
		return nil, false, err
	}
	if account == nil {
		return models.NewWalletAccount(wallet), false, nil
	}
	return account, true, nil
}

// save writes account, creating it when it did not exist before
func (l *ledgerAccounts) save(ctx context.Context, account *models.Account, exists bool) error {
	if exists {
		if err := l.repo.Update(ctx, account); err != nil {
			return fmt.Errorf("failed to update account %s: %w", account.Address, err)
		}
		return nil
	}
	if err := l.repo.Create(ctx, account); err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Address, err)
	}
	return nil
}

// saveRecord encodes rec into account data and writes the account
func (l *ledgerAccounts) saveRecord(ctx context.Context, account *models.Account, rec record, exists bool) error {
	data, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode account %s: %w", account.Address, err)
	}
	account.Data = data
	return l.save(ctx, account, exists)
}

func (l *ledgerAccounts) delete(ctx context.Context, addr address.Address) error {
	if err := l.repo.Delete(ctx, addr); err != nil {
		return fmt.Errorf("failed to delete account %s: %w", addr, err)
	}
	return nil
}

// Clock returns the ledger's notion of now
type Clock func() time.Time

// SystemClock is the wall clock truncated to whole seconds
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

package testutil

import (
	"crypto/sha256"
	"time"

	"wagerledger/address"
	"wagerledger/models"
)

// TestProgram is the program id used by repository and service tests
var TestProgram = TestAddress("wagerledger-test-program")

// TestAddress derives a stable address from a label
func TestAddress(label string) address.Address {
	return address.Address(sha256.Sum256([]byte(label)))
}

// CreateTestWallet creates a funded wallet account
func CreateTestWallet(label string, lamports uint64) *models.Account {
	account := models.NewWalletAccount(TestAddress(label))
	account.Lamports = lamports
	return account
}

// CreateTestProfileAccount creates a profile account at its derived address
func CreateTestProfileAccount(wallet address.Address, name string) (*models.Account, error) {
	addr, bump, err := address.GetProfileAddress(TestProgram, &address.GetProfileAddressArgs{Wallet: wallet})
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		Wallet:    wallet,
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Version:   models.RecordVersion,
		Bump:      bump,
	}
	data, err := profile.Marshal()
	if err != nil {
		return nil, err
	}

	return &models.Account{
		Address: addr,
		Owner:   TestProgram,
		Kind:    models.AccountKindProfile,
		Data:    data,
	}, nil
}

// CreateTestVault creates a vault account holding lamports
func CreateTestVault(label string, lamports uint64) *models.Account {
	return &models.Account{
		Address:  TestAddress(label),
		Owner:    TestProgram,
		Kind:     models.AccountKindVault,
		Lamports: lamports,
	}
}

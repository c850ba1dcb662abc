package models

import (
	"time"

	"wagerledger/address"
)

// AccountKind identifies the record layout stored in an account
type AccountKind uint8

const (
	AccountKindWallet AccountKind = iota
	AccountKindProfile
	AccountKindBet
	AccountKindVault
	AccountKindFriendship
	AccountKindSignature
)

func (k AccountKind) String() string {
	switch k {
	case AccountKindWallet:
		return "wallet"
	case AccountKindProfile:
		return "profile"
	case AccountKindBet:
		return "bet"
	case AccountKindVault:
		return "vault"
	case AccountKindFriendship:
		return "friendship"
	case AccountKindSignature:
		return "signature"
	default:
		return "unknown"
	}
}

// Account is the unit of storage. Every ledger record lives in the Data of
// exactly one account, and Lamports is the native value held at the address.
type Account struct {
	Address   address.Address `db:"address"`
	Owner     address.Address `db:"owner"`
	Kind      AccountKind     `db:"kind"`
	Lamports  uint64          `db:"lamports"`
	Data      []byte          `db:"data"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Clone returns a deep copy so callers never share the Data buffer
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cloned := *a
	if a.Data != nil {
		cloned.Data = append([]byte(nil), a.Data...)
	}
	return &cloned
}

// NewWalletAccount returns an empty system account for a wallet key
func NewWalletAccount(wallet address.Address) *Account {
	return &Account{
		Address: wallet,
		Owner:   address.SystemProgram,
		Kind:    AccountKindWallet,
	}
}

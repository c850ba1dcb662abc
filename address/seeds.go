package address

import (
	"encoding/binary"
)

var (
	ProfilePrefix    = []byte("profile-")
	BetPrefix        = []byte("bet")
	VaultPrefix      = []byte("bet-treasury-")
	FriendshipPrefix = []byte("friend-")
	SignaturePrefix  = []byte("signature-")
)

// SystemProgram owns plain wallet accounts. It is the all-zero address.
var SystemProgram = Zero

type GetProfileAddressArgs struct {
	Wallet Address
}

func GetProfileAddress(program Address, args *GetProfileAddressArgs) (Address, uint8, error) {
	return FindProgramAddressAndBump(
		program,
		ProfilePrefix,
		args.Wallet[:],
	)
}

type GetBetAddressArgs struct {
	Creator Address
	Index   uint32
}

func GetBetAddress(program Address, args *GetBetAddressArgs) (Address, uint8, error) {
	index := make([]byte, 4)
	binary.LittleEndian.PutUint32(index, args.Index)

	return FindProgramAddressAndBump(
		program,
		BetPrefix,
		args.Creator[:],
		index,
	)
}

type GetVaultAddressArgs struct {
	Bet Address
}

func GetVaultAddress(program Address, args *GetVaultAddressArgs) (Address, uint8, error) {
	return FindProgramAddressAndBump(
		program,
		VaultPrefix,
		args.Bet[:],
	)
}

type GetFriendshipAddressArgs struct {
	UserA Address
	UserB Address
}

// GetFriendshipAddress sorts the pair first, so both wallets derive the same
// record regardless of who asks.
func GetFriendshipAddress(program Address, args *GetFriendshipAddressArgs) (Address, uint8, error) {
	first, second := SortPair(args.UserA, args.UserB)
	return FindProgramAddressAndBump(
		program,
		FriendshipPrefix,
		first[:],
		second[:],
	)
}

type GetSignatureAddressArgs struct {
	Signature [64]byte
}

// GetSignatureAddress derives the record that marks a transaction signature
// as spent. The signature is split in two because a seed holds 32 bytes.
func GetSignatureAddress(program Address, args *GetSignatureAddressArgs) (Address, uint8, error) {
	return FindProgramAddressAndBump(
		program,
		SignaturePrefix,
		args.Signature[:32],
		args.Signature[32:],
	)
}

// SortPair returns the two addresses in ascending byte order.
func SortPair(a, b Address) (Address, Address) {
	if b.Less(a) {
		return b, a
	}
	return a, b
}

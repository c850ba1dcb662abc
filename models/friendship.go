package models

import (
	"errors"
	"fmt"
	"time"

	"wagerledger/address"
)

// FriendStatus is one side's view of a friendship
type FriendStatus uint8

const (
	FriendStatusNone FriendStatus = iota
	FriendStatusRequested
	FriendStatusAccepted
)

func (s FriendStatus) String() string {
	switch s {
	case FriendStatusNone:
		return "none"
	case FriendStatusRequested:
		return "requested"
	case FriendStatusAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// FriendAction is an operation one party performs on the pair
type FriendAction uint8

const (
	FriendActionRequest FriendAction = iota
	FriendActionAccept
)

var (
	ErrAlreadyFriends    = errors.New("wallets are already friends")
	ErrRequestPending    = errors.New("friend request already sent")
	ErrIncomingRequest   = errors.New("counterparty already requested; accept instead")
	ErrNoPendingRequest  = errors.New("no pending friend request to accept")
	ErrNotFriendshipSide = errors.New("wallet is not a party to this friendship")
)

// FriendPair holds both sides' statuses. Side A always belongs to the wallet
// that sorts first.
type FriendPair struct {
	A FriendStatus
	B FriendStatus
}

// IsMutual reports whether the pair may vouch for third party refereeing
func (p FriendPair) IsMutual() bool {
	return p.A == FriendStatusAccepted || p.B == FriendStatusAccepted
}

// Apply is the friendship transition function. actingIsA selects which side
// performs the action; the receiver is never modified.
func (p FriendPair) Apply(action FriendAction, actingIsA bool) (FriendPair, error) {
	own, other := p.B, p.A
	if actingIsA {
		own, other = p.A, p.B
	}

	if p.IsMutual() {
		return p, ErrAlreadyFriends
	}

	switch action {
	case FriendActionRequest:
		if own == FriendStatusRequested {
			return p, ErrRequestPending
		}
		if other == FriendStatusRequested {
			return p, ErrIncomingRequest
		}
		own = FriendStatusRequested
	case FriendActionAccept:
		if own != FriendStatusNone || other != FriendStatusRequested {
			return p, ErrNoPendingRequest
		}
		own, other = FriendStatusAccepted, FriendStatusAccepted
	default:
		return p, fmt.Errorf("unknown friend action %d", action)
	}

	if actingIsA {
		return FriendPair{A: own, B: other}, nil
	}
	return FriendPair{A: other, B: own}, nil
}

var FriendshipDiscriminator = discriminatorFor("Friendship")

const FriendshipSize = (DiscriminatorSize +
	address.Size + // user_a_wallet
	NameSize + // user_a_name
	1 + // user_a_status
	address.Size + // user_b_wallet
	NameSize + // user_b_name
	1 + // user_b_status
	8 + // created_at
	1 + // version
	1 + // bump
	friendshipPadding)

const friendshipPadding = 12

// Friendship is the single record kept for an unordered pair of wallets
type Friendship struct {
	UserAWallet address.Address
	UserAName   string
	UserAStatus FriendStatus
	UserBWallet address.Address
	UserBName   string
	UserBStatus FriendStatus
	CreatedAt   time.Time
	Version     uint8
	Bump        uint8
}

// NewFriendship orders the two parties the same way friendship addresses do
func NewFriendship(wallet address.Address, walletName string, other address.Address, otherName string, now time.Time) *Friendship {
	f := &Friendship{CreatedAt: now, Version: RecordVersion}
	if other.Less(wallet) {
		f.UserAWallet, f.UserAName = other, otherName
		f.UserBWallet, f.UserBName = wallet, walletName
	} else {
		f.UserAWallet, f.UserAName = wallet, walletName
		f.UserBWallet, f.UserBName = other, otherName
	}
	return f
}

// Pair returns the transition state of the friendship
func (f *Friendship) Pair() FriendPair {
	return FriendPair{A: f.UserAStatus, B: f.UserBStatus}
}

// SetPair stores the result of a transition
func (f *Friendship) SetPair(p FriendPair) {
	f.UserAStatus = p.A
	f.UserBStatus = p.B
}

// IsMutual reports whether the two wallets are friends
func (f *Friendship) IsMutual() bool {
	return f.Pair().IsMutual()
}

// HasParty checks if the wallet is one side of the friendship
func (f *Friendship) HasParty(wallet address.Address) bool {
	return f.UserAWallet == wallet || f.UserBWallet == wallet
}

// IsSideA reports whether wallet occupies side A. Callers check HasParty first.
func (f *Friendship) IsSideA(wallet address.Address) bool {
	return f.UserAWallet == wallet
}

// Apply runs the transition function for the acting wallet
func (f *Friendship) Apply(action FriendAction, wallet address.Address) error {
	if !f.HasParty(wallet) {
		return ErrNotFriendshipSide
	}
	next, err := f.Pair().Apply(action, f.IsSideA(wallet))
	if err != nil {
		return err
	}
	f.SetPair(next)
	return nil
}

// Counterparty returns the other wallet and its name snapshot
func (f *Friendship) Counterparty(wallet address.Address) (address.Address, string) {
	if f.UserAWallet == wallet {
		return f.UserBWallet, f.UserBName
	}
	return f.UserAWallet, f.UserAName
}

func (f *Friendship) Marshal() ([]byte, error) {
	if len(f.UserAName) > NameSize || len(f.UserBName) > NameSize {
		return nil, ErrFieldTooLong
	}

	b := make([]byte, FriendshipSize)
	var offset int

	putDiscriminator(b, FriendshipDiscriminator, &offset)
	putKey(b, f.UserAWallet, &offset)
	putFixedString(b, f.UserAName, NameSize, &offset)
	putUint8(b, uint8(f.UserAStatus), &offset)
	putKey(b, f.UserBWallet, &offset)
	putFixedString(b, f.UserBName, NameSize, &offset)
	putUint8(b, uint8(f.UserBStatus), &offset)
	putTime(b, f.CreatedAt, &offset)
	putUint8(b, f.Version, &offset)
	putUint8(b, f.Bump, &offset)

	return b, nil
}

func (f *Friendship) Unmarshal(data []byte) error {
	if len(data) != FriendshipSize {
		return ErrInvalidAccountData
	}

	var offset int
	if !checkDiscriminator(data, FriendshipDiscriminator, &offset) {
		return ErrInvalidAccountData
	}

	var aStatus, bStatus uint8

	getKey(data, &f.UserAWallet, &offset)
	getFixedString(data, &f.UserAName, NameSize, &offset)
	getUint8(data, &aStatus, &offset)
	getKey(data, &f.UserBWallet, &offset)
	getFixedString(data, &f.UserBName, NameSize, &offset)
	getUint8(data, &bStatus, &offset)
	getTime(data, &f.CreatedAt, &offset)
	getUint8(data, &f.Version, &offset)
	getUint8(data, &f.Bump, &offset)

	f.UserAStatus = FriendStatus(aStatus)
	f.UserBStatus = FriendStatus(bStatus)

	return nil
}

func (f *Friendship) String() string {
	return fmt.Sprintf(
		"Friendship{a=%s(%s),b=%s(%s)}",
		f.UserAWallet,
		f.UserAStatus,
		f.UserBWallet,
		f.UserBStatus,
	)
}
